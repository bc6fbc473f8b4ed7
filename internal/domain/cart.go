package domain

import "fmt"

// CartItem is one line of the shopping cart. Items are not de-duplicated:
// adding the same product twice yields two lines.
type CartItem struct {
	ID      string `json:"id"`
	Product string `json:"product"`
	Price   int64  `json:"price"`
	Size    string `json:"size"`
}

// Title is the line title sent to the payment provider, e.g. "Classic Tee (M)".
// Lines without a size use the product name alone.
func (i CartItem) Title() string {
	if i.Size == "" {
		return i.Product
	}
	return fmt.Sprintf("%s (%s)", i.Product, i.Size)
}

// LineItem is a priced line as the payment provider and the order summary see it.
type LineItem struct {
	ID        string `json:"id,omitempty"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// LineItemsFromCart maps every cart line to a single-unit LineItem.
func LineItemsFromCart(items []CartItem) []LineItem {
	lines := make([]LineItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, LineItem{
			ID:        item.ID,
			Title:     item.Title(),
			Quantity:  1,
			UnitPrice: item.Price,
		})
	}
	return lines
}

// CartTotal sums the prices of all items.
func CartTotal(items []CartItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Price
	}
	return total
}
