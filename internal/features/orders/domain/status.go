package domain

import (
	"strings"
	"time"
)

// OrderStatus is the single display status derived for an order.
// It is computed per request and never stored.
type OrderStatus string

const (
	// StatusCancelled indicates the order has been cancelled.
	StatusCancelled OrderStatus = "cancelled"
	// StatusProcessing indicates the order is being prepared.
	StatusProcessing OrderStatus = "processing"
	// StatusShipped indicates the order has been handed to a carrier.
	StatusShipped OrderStatus = "shipped"
	// StatusDelivered indicates the order has reached the customer.
	StatusDelivered OrderStatus = "delivered"
	// StatusConfirmed indicates payment has been received in full.
	StatusConfirmed OrderStatus = "confirmed"
	// StatusPendingPayment indicates payment is still outstanding.
	StatusPendingPayment OrderStatus = "pending_payment"
)

// StatusSource selects which signal drives the derived stage; real
// deployments pick exactly one.
type StatusSource string

const (
	// StatusSourceMetafield trusts the staff-set fulfillment_stage metafield.
	StatusSourceMetafield StatusSource = "metafield"
	// StatusSourcePlatform trusts Shopify's fulfillment status and tags.
	StatusSourcePlatform StatusSource = "platform"
)

// CancelWindow is how long after creation a customer may still cancel.
const CancelWindow = 3 * 24 * time.Hour

// DeriveStatus computes the display status for an order. stage is the value
// of the fulfillment_stage metafield, empty when absent; it is only consulted
// under StatusSourceMetafield. First matching rule wins:
// cancellation, then the stage signal, then financial status.
func DeriveStatus(o *Order, stage string, source StatusSource) OrderStatus {
	if o.CancelledAt != nil {
		return StatusCancelled
	}

	switch source {
	case StatusSourceMetafield:
		switch strings.ToLower(strings.TrimSpace(stage)) {
		case "processing":
			return StatusProcessing
		case "shipped":
			return StatusShipped
		case "delivered":
			return StatusDelivered
		}
	case StatusSourcePlatform:
		switch o.FulfillmentStatus {
		case "fulfilled":
			return StatusDelivered
		case "partial", "shipped":
			return StatusShipped
		}
		if HasTag(o.Tags, TagPaymentConfirmed) {
			return StatusProcessing
		}
	}

	switch o.FinancialStatus {
	case "paid":
		return StatusConfirmed
	case "pending", "authorized", "partially_paid":
		return StatusPendingPayment
	}

	return StatusPendingPayment
}

// CanCancel reports whether the customer may still cancel the order at now.
// Cancelled and fulfilled/shipped orders are never cancellable; otherwise the
// order must be at most CancelWindow old, boundary inclusive.
func CanCancel(o *Order, now time.Time) bool {
	if o.CancelledAt != nil {
		return false
	}

	switch o.FulfillmentStatus {
	case "fulfilled", "shipped":
		return false
	}

	return now.Sub(o.CreatedAt) <= CancelWindow
}
