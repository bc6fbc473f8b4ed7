package domain

import (
	"strconv"
	"strings"
	"time"
)

// PendingOrder is the server-side record of a checkout attempt, written before
// payment and read back when the provider confirms it. Records are never
// deleted.
type PendingOrder struct {
	OrderID   string       `json:"order_id"`
	Items     []CartItem   `json:"items"`
	Shipping  ShippingInfo `json:"shipping"`
	CreatedAt time.Time    `json:"created_at"`
}

// Submission is the result of a successful checkout submission: the order id
// and the provider URL the buyer is redirected to.
type Submission struct {
	OrderID   string `json:"order_id"`
	InitPoint string `json:"init_point"`
}

// MaxPendingQuantity bounds how many cart lines one preference-shaped item may
// expand to.
const MaxPendingQuantity = 99

// PendingItem is an item posted to the pending-order endpoint. Pages send
// either a cart line {id, product, price, size} or the preference line they
// also send to the provider {id, title, quantity, unit_price}.
type PendingItem struct {
	ID        FlexString `json:"id"`
	Product   string     `json:"product"`
	Price     FlexString `json:"price"`
	Size      string     `json:"size"`
	Title     string     `json:"title"`
	Quantity  FlexString `json:"quantity"`
	UnitPrice FlexString `json:"unit_price"`
}

// CartItems converts the item into cart lines. A preference line with
// quantity n becomes n lines. It returns false when the item names no
// product.
func (i PendingItem) CartItems() ([]CartItem, bool) {
	if i.Product != "" {
		price, _ := strconv.ParseFloat(string(i.Price), 64)
		return []CartItem{{ID: string(i.ID), Product: i.Product, Price: int64(price), Size: i.Size}}, true
	}

	title := strings.TrimSpace(i.Title)
	if title == "" {
		return nil, false
	}
	qty, err := strconv.Atoi(string(i.Quantity))
	if err != nil || qty <= 0 {
		qty = 1
	}
	if qty > MaxPendingQuantity {
		return nil, false
	}

	price, _ := strconv.ParseFloat(string(i.UnitPrice), 64)
	product, size := splitTitle(title)
	items := make([]CartItem, qty)
	for n := range items {
		items[n] = CartItem{ID: string(i.ID), Product: product, Price: int64(price), Size: size}
	}
	return items, true
}

// splitTitle undoes CartItem.Title: "Classic Tee (M)" is product "Classic Tee"
// in size "M".
func splitTitle(title string) (product, size string) {
	open := strings.LastIndex(title, " (")
	if open <= 0 || !strings.HasSuffix(title, ")") {
		return title, ""
	}
	return title[:open], title[open+2 : len(title)-1]
}
