package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// PaymentStatusApproved is the only status that fulfils an order.
const PaymentStatusApproved = "approved"

// Preference is the purchase description sent to the payment provider.
type Preference struct {
	Items             []PreferenceItem `json:"items"`
	Payer             *PreferencePayer `json:"payer,omitempty"`
	ExternalReference string           `json:"external_reference,omitempty"`
	NotificationURL   string           `json:"notification_url,omitempty"`
	BackURLs          BackURLs         `json:"back_urls"`
	AutoReturn        string           `json:"auto_return,omitempty"`
}

type PreferenceItem struct {
	Title      string `json:"title"`
	Quantity   int    `json:"quantity"`
	UnitPrice  int64  `json:"unit_price"`
	CurrencyID string `json:"currency_id"`
}

type PreferencePayer struct {
	Email string `json:"email"`
}

// BackURLs are where the provider sends the buyer after checkout.
type BackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

// PreferenceResult is the provider's answer to a preference request. Raw keeps
// the untouched response body for callers that relay it.
type PreferenceResult struct {
	ID        string          `json:"id"`
	InitPoint string          `json:"init_point"`
	Raw       json.RawMessage `json:"-"`
}

// PaymentDetails is the authoritative payment record fetched by id.
type PaymentDetails struct {
	ID                FlexString     `json:"id"`
	Status            string         `json:"status"`
	StatusDetail      string         `json:"status_detail"`
	ExternalReference string         `json:"external_reference"`
	Payer             Payer          `json:"payer"`
	AdditionalInfo    AdditionalInfo `json:"additional_info"`
}

// Approved reports whether the payment fulfils its order.
func (p *PaymentDetails) Approved() bool {
	return p != nil && p.Status == PaymentStatusApproved
}

type Payer struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// FullName joins first and last name, trimming the gap when either is empty.
func (p Payer) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

type AdditionalInfo struct {
	Items []PaymentItem `json:"items"`
}

// PaymentItem is an item as the provider echoes it back. The provider sends
// quantity and unit_price either as numbers or as strings.
type PaymentItem struct {
	ID        FlexString `json:"id"`
	Title     string     `json:"title"`
	Quantity  FlexString `json:"quantity"`
	UnitPrice FlexString `json:"unit_price"`
}

// LineItem converts the echoed item, treating unparsable numbers as zero.
func (i PaymentItem) LineItem() LineItem {
	qty, _ := strconv.Atoi(string(i.Quantity))
	price, _ := strconv.ParseFloat(string(i.UnitPrice), 64)
	return LineItem{
		ID:        string(i.ID),
		Title:     i.Title,
		Quantity:  qty,
		UnitPrice: int64(price),
	}
}

// FlexString accepts a JSON string or number and keeps its textual form.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// PaymentNotification is the inbound webhook event.
type PaymentNotification struct {
	Type   string `json:"type"`
	Action string `json:"action,omitempty"`
	Data   struct {
		ID FlexString `json:"id"`
	} `json:"data"`
}
