package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Metafield namespace and keys used by the adapter on Shopify orders.
const (
	// MetafieldNamespace is the namespace of every metafield this service owns.
	MetafieldNamespace = "custom"
	// KeyPaymentSlip is the metafield key holding the payment slip.
	KeyPaymentSlip = "payment_slip"
	// KeyFulfillmentStage is the staff-set metafield key overriding the display stage.
	KeyFulfillmentStage = "fulfillment_stage"
)

// Metafield value types as named by the Shopify Admin API.
const (
	// MetafieldTypeJSON carries an inline payment-slip blob.
	MetafieldTypeJSON = "json"
	// MetafieldTypeFileReference carries the GID of a Shopify-managed file.
	MetafieldTypeFileReference = "file_reference"
)

// TagPaymentConfirmed marks an order whose payment a staff member confirmed.
const TagPaymentConfirmed = "payment-confirmed"

// Order represents a customer order as owned by the Shopify store.
type Order struct {
	// ID is Shopify's numeric order ID.
	ID int64
	// Name is the human-readable order number including the # prefix (e.g. "#1006").
	Name string
	// CreatedAt is when the order was placed.
	CreatedAt time.Time
	// CancelledAt is set once the order has been cancelled.
	CancelledAt *time.Time
	// Email is the customer's contact email.
	Email string
	// Phone is the customer's contact phone, if any.
	Phone string
	// Currency is the ISO currency code of all monetary amounts.
	Currency string
	// Subtotal, Shipping, Tax and Total are the order's monetary totals.
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
	// FinancialStatus is Shopify's payment state (pending, authorized, paid, ...).
	FinancialStatus string
	// FulfillmentStatus is Shopify's shipment state (empty, partial, shipped, fulfilled).
	FulfillmentStatus string
	// Tags is the order's comma-separated tag list, kept in Shopify's native shape.
	Tags string
	// Items are the purchased line items.
	Items []LineItem
}

// LineItem represents an individual product within an order.
type LineItem struct {
	// Name is the product name.
	Name string
	// Variant is the variant label (size, color, ...), if any.
	Variant string
	// Quantity is the number of units purchased.
	Quantity int
	// Price is the unit price.
	Price decimal.Decimal
	// Image is the URL to a product image, if any.
	Image string
	// SKU is the Stock Keeping Unit identifier.
	SKU string
}

// Metafield is a namespaced key-value attachment on a Shopify order.
// Entries are unique per (namespace, key) pair per order.
type Metafield struct {
	// ID is Shopify's metafield ID, zero for entries not yet created.
	ID int64
	// Namespace groups related metafields.
	Namespace string
	// Key identifies the entry within its namespace.
	Key string
	// Type is the Shopify value type (json, file_reference, single_line_text_field, ...).
	Type string
	// Value is the raw string value.
	Value string
}

// PaymentSlip is the inline payment-slip blob stored as a JSON metafield
// when the deployment uses the inline storage strategy.
type PaymentSlip struct {
	// Filename is the original upload filename.
	Filename string `json:"filename"`
	// MimeType is the declared content type of the file.
	MimeType string `json:"mimeType"`
	// Size is the file size in bytes.
	Size int64 `json:"size"`
	// UploadedAt is when the slip was encoded, in ISO-8601.
	UploadedAt time.Time `json:"uploadedAt"`
	// Data is the base64-encoded file content.
	Data string `json:"data"`
}

// CleanOrderNumber strips the optional # prefix from a human-readable order
// number. Idempotent: "#1006" and "1006" both yield "1006".
func CleanOrderNumber(number string) string {
	return strings.TrimPrefix(strings.TrimSpace(number), "#")
}

// SplitTags splits a comma-separated tag list into trimmed tags.
func SplitTags(tags string) []string {
	parts := strings.Split(tags, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// HasTag reports whether the comma-separated tag list contains tag.
func HasTag(tags, tag string) bool {
	for _, t := range SplitTags(tags) {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// AppendTag returns the tag list with tag appended, preserving order and
// never duplicating an existing entry.
func AppendTag(tags, tag string) string {
	existing := SplitTags(tags)
	if HasTag(tags, tag) {
		return strings.Join(existing, ", ")
	}
	return strings.Join(append(existing, tag), ", ")
}
