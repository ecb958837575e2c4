package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderView is the response-facing shape of an order: the Shopify order plus
// metafield data, with formatted price strings, a single derived status and a
// cancellability flag. It is recomputed on every lookup.
type OrderView struct {
	// OrderNumber is the order number without the # prefix.
	OrderNumber string `json:"orderNumber"`
	// CreatedAt is when the order was placed.
	CreatedAt time.Time `json:"createdAt"`
	// Email is the customer's contact email.
	Email string `json:"email"`
	// Phone is the customer's contact phone, if any.
	Phone string `json:"phone,omitempty"`
	// Currency is the ISO currency code.
	Currency string `json:"currency"`
	// FinancialStatus is Shopify's raw payment state.
	FinancialStatus string `json:"financialStatus"`
	// FulfillmentStatus is Shopify's raw shipment state, if any.
	FulfillmentStatus string `json:"fulfillmentStatus,omitempty"`
	// Status is the derived display status.
	Status OrderStatus `json:"status"`
	// CanCancel reports whether the order may still be cancelled.
	CanCancel bool `json:"canCancel"`
	// Items are the purchased line items.
	Items []LineItemView `json:"items"`

	// Formatted totals ("1190.00 THB") plus raw amounts for downstream arithmetic.
	Subtotal       string  `json:"subtotal"`
	SubtotalAmount float64 `json:"subtotalAmount"`
	Shipping       string  `json:"shipping"`
	ShippingAmount float64 `json:"shippingAmount"`
	Tax            string  `json:"tax"`
	TaxAmount      float64 `json:"taxAmount"`
	Total          string  `json:"total"`
	TotalAmount    float64 `json:"totalAmount"`

	// PaymentSlip summarizes the uploaded slip, if any.
	PaymentSlip *SlipView `json:"paymentSlip,omitempty"`
}

// LineItemView is the response-facing shape of a line item.
type LineItemView struct {
	// Name is the product name.
	Name string `json:"name"`
	// Variant is the variant label, if any.
	Variant string `json:"variant,omitempty"`
	// Quantity is the number of units purchased.
	Quantity int `json:"quantity"`
	// Price is the formatted unit price ("590.00 THB").
	Price string `json:"price"`
	// UnitPrice is the raw unit price amount.
	UnitPrice float64 `json:"unitPrice"`
	// Image is the product image URL, if any.
	Image string `json:"image,omitempty"`
	// SKU is the product SKU.
	SKU string `json:"sku,omitempty"`
}

// SlipView summarizes a stored payment slip without exposing its bytes.
type SlipView struct {
	// Uploaded reports whether a slip exists for the order.
	Uploaded bool `json:"uploaded"`
	// Filename is the original upload filename (inline storage only).
	Filename string `json:"filename,omitempty"`
	// FileID is the Shopify file GID (reference storage only).
	FileID string `json:"fileId,omitempty"`
	// UploadedAt is when the slip was uploaded, if known.
	UploadedAt *time.Time `json:"uploadedAt,omitempty"`
}

// FormatAmount renders a monetary amount with two decimals and the currency
// code suffix, e.g. "1190.00 THB".
func FormatAmount(amount decimal.Decimal, currency string) string {
	return amount.StringFixed(2) + " " + currency
}

// BuildView assembles the derived order view. stage is the fulfillment_stage
// metafield value (empty when absent), slip the payment-slip summary (nil
// when absent).
func BuildView(o *Order, stage string, slip *SlipView, source StatusSource, now time.Time) *OrderView {
	items := make([]LineItemView, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, LineItemView{
			Name:      item.Name,
			Variant:   item.Variant,
			Quantity:  item.Quantity,
			Price:     FormatAmount(item.Price, o.Currency),
			UnitPrice: item.Price.InexactFloat64(),
			Image:     item.Image,
			SKU:       item.SKU,
		})
	}

	return &OrderView{
		OrderNumber:       CleanOrderNumber(o.Name),
		CreatedAt:         o.CreatedAt,
		Email:             o.Email,
		Phone:             o.Phone,
		Currency:          o.Currency,
		FinancialStatus:   o.FinancialStatus,
		FulfillmentStatus: o.FulfillmentStatus,
		Status:            DeriveStatus(o, stage, source),
		CanCancel:         CanCancel(o, now),
		Items:             items,
		Subtotal:          FormatAmount(o.Subtotal, o.Currency),
		SubtotalAmount:    o.Subtotal.InexactFloat64(),
		Shipping:          FormatAmount(o.Shipping, o.Currency),
		ShippingAmount:    o.Shipping.InexactFloat64(),
		Tax:               FormatAmount(o.Tax, o.Currency),
		TaxAmount:         o.Tax.InexactFloat64(),
		Total:             FormatAmount(o.Total, o.Currency),
		TotalAmount:       o.Total.InexactFloat64(),
		PaymentSlip:       slip,
	}
}
