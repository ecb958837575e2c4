package ports

import (
	"context"

	"order-adapter/internal/features/orders/domain"
)

// OrderProvider defines the interface to the external commerce platform.
// This is a Secondary Port (Driven Port).
type OrderProvider interface {
	// FindOrderByNumber retrieves the order whose display name equals the
	// cleaned number (no # prefix), across all statuses. Returns (nil, nil)
	// when no order matches; the first match wins when several do.
	FindOrderByNumber(ctx context.Context, number string) (*domain.Order, error)

	// GetMetafields lists the metafields attached to an order.
	GetMetafields(ctx context.Context, orderID int64) ([]domain.Metafield, error)

	// CreateOrderMetafield attaches a new metafield to an order.
	CreateOrderMetafield(ctx context.Context, orderID int64, mf domain.Metafield) error

	// UpdateMetafield overwrites the value of an existing metafield.
	UpdateMetafield(ctx context.Context, metafieldID int64, valueType, value string) error

	// UpdateTags replaces the order's full comma-separated tag list.
	UpdateTags(ctx context.Context, orderID int64, tags string) error

	// CancelOrder cancels the order with the given reason and requests
	// customer notification.
	CancelOrder(ctx context.Context, orderID int64, reason string) error

	// UploadFile performs the platform's staged upload sequence and returns
	// the identifier of the registered file.
	UploadFile(ctx context.Context, filename, mimeType string, data []byte) (string, error)
}
