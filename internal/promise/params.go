// Package promise implements the delivery-estimate widget harness: the
// readiness poller that waits for the widget entry point, the API panel that
// queries the delivery-options endpoint, and the pieces they run against.
package promise

// WidgetParameters is the record handed to the widget entry point. JSON keys
// match what the widget script reads.
type WidgetParameters struct {
	CustomerID                string  `json:"customerId"`
	ItemSKU                   string  `json:"itemSku"`
	ItemOriginalPriceAmount   float64 `json:"itemOriginalPriceAmount"`
	LocaleLanguage            string  `json:"localeLanguage"`
	SessionID                 string  `json:"sessionId"`
	ItemQuantity              int     `json:"itemQuantity"`
	ItemOriginalPriceCurrency string  `json:"itemOriginalPriceCurrency"`
	ItemInStock               bool    `json:"itemInStock"`
	ItemRequiresShipping      bool    `json:"itemRequiresShipping"`
	ItemBrand                 string  `json:"itemBrand"`
	ItemCustomAttributes      string  `json:"itemCustomAttributes"`
	ItemTags                  string  `json:"itemTags"`
	ItemProductCategory       string  `json:"itemProductCategory"`
	DestCountry               string  `json:"destCountry"`
	DestPostalCode            string  `json:"destPostalCode,omitempty"`
	TestMode                  bool    `json:"testMode,omitempty"`
	CustomerTags              string  `json:"customerTags"`
	OrderTags                 string  `json:"orderTags"`
}

const defaultSessionID = "aNmO3yg8Fr4UlpCrHhuI0oXzhVFIE6JVkvlKxLYa30TVwbV70w"

// DefaultWidgetParameters returns the product the mock page renders.
func DefaultWidgetParameters() WidgetParameters {
	return WidgetParameters{
		CustomerID:                "4858719224",
		ItemSKU:                   "BURZ9S1",
		ItemOriginalPriceAmount:   1149.9,
		LocaleLanguage:            "en",
		SessionID:                 defaultSessionID,
		ItemQuantity:              1,
		ItemOriginalPriceCurrency: "USD",
		ItemInStock:               true,
		ItemRequiresShipping:      true,
		ItemBrand:                 "Burton",
		ItemCustomAttributes:      `{"vendor_id": "dc_01"}`,
		ItemTags:                  "",
		ItemProductCategory:       "Snowboards",
		DestCountry:               "US",
		CustomerTags:              "",
		OrderTags:                 "",
	}
}

type Destination struct {
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
}

type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type LineItem struct {
	SKU           string `json:"sku"`
	Quantity      int    `json:"quantity"`
	OriginalPrice Money  `json:"original_price"`
}

// RequestPayload is the body encoded into the delivery-options query.
type RequestPayload struct {
	DisplayContext string      `json:"display_context"`
	Channel        string      `json:"channel"`
	SessionID      string      `json:"session_id"`
	Language       string      `json:"language"`
	Destination    Destination `json:"destination"`
	OrderSubtotal  Money       `json:"order_subtotal"`
	Customer       Customer    `json:"customer"`
	Items          []LineItem  `json:"items"`
}

func DefaultRequestPayload() RequestPayload {
	price := Money{Amount: 89.95, Currency: "USD"}
	return RequestPayload{
		DisplayContext: "pdp",
		Channel:        "web",
		SessionID:      defaultSessionID,
		Language:       "en",
		Destination:    Destination{Country: "US", PostalCode: "78801"},
		OrderSubtotal:  price,
		Customer:       Customer{ID: "4858719224", Email: "promise-test@example.com"},
		Items: []LineItem{
			{SKU: "3ME10101430M9", Quantity: 1, OriginalPrice: price},
		},
	}
}

// Clone returns a copy that shares no slices with p.
func (p RequestPayload) Clone() RequestPayload {
	out := p
	if p.Items != nil {
		out.Items = make([]LineItem, len(p.Items))
		copy(out.Items, p.Items)
	}
	return out
}

// SKU is the sku of the first line item, the one the panel edits.
func (p RequestPayload) SKU() string {
	if len(p.Items) == 0 {
		return ""
	}
	return p.Items[0].SKU
}
