package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"order-adapter/internal/core/config"
	"order-adapter/internal/core/logger"
	"order-adapter/internal/features/orders/domain"
	"order-adapter/internal/features/orders/ports"

	"go.uber.org/zap"
)

// ErrOrderNotFound is returned when no order matches the given number.
var ErrOrderNotFound = errors.New("order not found")

// ErrNoFile is returned when an upload request carries no file.
var ErrNoFile = errors.New("no file uploaded")

// ErrUnsupportedFileType is returned when the uploaded MIME type is outside
// the allow-list. The check runs before any platform call.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// ErrNotCancellable is returned when the cancellation window has passed or
// the order state forbids cancellation.
var ErrNotCancellable = errors.New("order can no longer be cancelled")

// imageMimeTypes are the always-accepted payment-slip types, including the
// phone-camera formats.
var imageMimeTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"image/heic",
	"image/heif",
}

// SlipReceipt echoes what was stored for a successful upload.
type SlipReceipt struct {
	// Name is the original filename.
	Name string `json:"name"`
	// Size is the stored size in bytes.
	Size int64 `json:"size"`
	// UploadedAt is when the slip was encoded.
	UploadedAt time.Time `json:"uploadedAt"`
}

// OrderService handles the business logic of the four order operations. It
// holds no mutable state; every request runs its own sequential call chain
// against the platform.
type OrderService struct {
	// provider is the external commerce platform.
	provider ports.OrderProvider
	// statusSource selects the status derivation variant.
	statusSource domain.StatusSource
	// slipStorage selects the payment-slip persistence strategy.
	slipStorage string
	// allowedTypes is the upload MIME allow-list.
	allowedTypes map[string]bool
}

// NewOrderService creates a new instance of OrderService.
func NewOrderService(provider ports.OrderProvider, policy config.PolicyConfig, upload config.UploadConfig) *OrderService {
	allowed := make(map[string]bool, len(imageMimeTypes)+1)
	for _, mt := range imageMimeTypes {
		allowed[mt] = true
	}
	if upload.AllowPDF {
		allowed["application/pdf"] = true
	}

	return &OrderService{
		provider:     provider,
		statusSource: domain.StatusSource(policy.StatusSource),
		slipStorage:  policy.SlipStorage,
		allowedTypes: allowed,
	}
}

// locateOrder cleans the number and resolves it to an order.
func (s *OrderService) locateOrder(ctx context.Context, number string) (*domain.Order, error) {
	order, err := s.provider.FindOrderByNumber(ctx, domain.CleanOrderNumber(number))
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// GetOrder resolves an order number to its derived view: order fields plus
// metafield data, formatted prices, display status and cancellability.
func (s *OrderService) GetOrder(ctx context.Context, number string) (*domain.OrderView, error) {
	order, err := s.locateOrder(ctx, number)
	if err != nil {
		return nil, err
	}

	metafields, err := s.provider.GetMetafields(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order metafields: %w", err)
	}

	var stage string
	var slip *domain.SlipView
	for _, mf := range metafields {
		if mf.Namespace != domain.MetafieldNamespace {
			continue
		}
		switch mf.Key {
		case domain.KeyFulfillmentStage:
			stage = mf.Value
		case domain.KeyPaymentSlip:
			slip = slipSummary(mf)
		}
	}

	return domain.BuildView(order, stage, slip, s.statusSource, time.Now()), nil
}

// slipSummary shapes a payment_slip metafield into its response summary.
func slipSummary(mf domain.Metafield) *domain.SlipView {
	if mf.Type == domain.MetafieldTypeFileReference {
		return &domain.SlipView{Uploaded: true, FileID: mf.Value}
	}

	var ps domain.PaymentSlip
	if err := json.Unmarshal([]byte(mf.Value), &ps); err != nil {
		logger.Get().Warn("Malformed payment_slip metafield", zap.Int64("metafield_id", mf.ID), zap.Error(err))
		return &domain.SlipView{Uploaded: true}
	}

	view := &domain.SlipView{Uploaded: true, Filename: ps.Filename}
	if !ps.UploadedAt.IsZero() {
		uploadedAt := ps.UploadedAt
		view.UploadedAt = &uploadedAt
	}
	return view
}

// AcceptsMimeType reports whether the configured allow-list accepts the type.
func (s *OrderService) AcceptsMimeType(mimeType string) bool {
	return s.allowedTypes[mimeType]
}

// UploadPaymentSlip persists a payment slip against the order using the
// configured storage strategy, updating the existing payment_slip metafield
// when one exists and creating it otherwise.
func (s *OrderService) UploadPaymentSlip(ctx context.Context, number, filename, mimeType string, data []byte) (*SlipReceipt, error) {
	if len(data) == 0 {
		return nil, ErrNoFile
	}
	if !s.AcceptsMimeType(mimeType) {
		return nil, ErrUnsupportedFileType
	}

	order, err := s.locateOrder(ctx, number)
	if err != nil {
		return nil, err
	}

	// The timestamp is generated here, at encode time, and echoed back.
	uploadedAt := time.Now().UTC()

	var value, valueType string
	switch s.slipStorage {
	case config.SlipStorageReference:
		fileID, err := s.provider.UploadFile(ctx, filename, mimeType, data)
		if err != nil {
			return nil, fmt.Errorf("failed to upload slip file: %w", err)
		}
		value, valueType = fileID, domain.MetafieldTypeFileReference
	default:
		blob, err := json.Marshal(domain.PaymentSlip{
			Filename:   filename,
			MimeType:   mimeType,
			Size:       int64(len(data)),
			UploadedAt: uploadedAt,
			Data:       base64.StdEncoding.EncodeToString(data),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode slip blob: %w", err)
		}
		value, valueType = string(blob), domain.MetafieldTypeJSON
	}

	if err := s.storeSlipMetafield(ctx, order.ID, valueType, value); err != nil {
		return nil, err
	}

	return &SlipReceipt{Name: filename, Size: int64(len(data)), UploadedAt: uploadedAt}, nil
}

// storeSlipMetafield reads the order's metafields to decide between create
// and update; entries are unique per (namespace, key).
func (s *OrderService) storeSlipMetafield(ctx context.Context, orderID int64, valueType, value string) error {
	metafields, err := s.provider.GetMetafields(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to check existing slip: %w", err)
	}

	for _, mf := range metafields {
		if mf.Namespace == domain.MetafieldNamespace && mf.Key == domain.KeyPaymentSlip {
			if err := s.provider.UpdateMetafield(ctx, mf.ID, valueType, value); err != nil {
				return fmt.Errorf("failed to update slip metafield: %w", err)
			}
			return nil
		}
	}

	err = s.provider.CreateOrderMetafield(ctx, orderID, domain.Metafield{
		Namespace: domain.MetafieldNamespace,
		Key:       domain.KeyPaymentSlip,
		Type:      valueType,
		Value:     value,
	})
	if err != nil {
		return fmt.Errorf("failed to create slip metafield: %w", err)
	}
	return nil
}

// ConfirmPayment appends the payment-confirmed tag to the order's tag list
// and writes the full list back. Confirming twice is a no-op write.
func (s *OrderService) ConfirmPayment(ctx context.Context, number string) error {
	order, err := s.locateOrder(ctx, number)
	if err != nil {
		return err
	}

	updated := domain.AppendTag(order.Tags, domain.TagPaymentConfirmed)
	if err := s.provider.UpdateTags(ctx, order.ID, updated); err != nil {
		return fmt.Errorf("failed to write tags: %w", err)
	}
	return nil
}

// CancelOrder cancels the order after re-validating the cancellation window
// server-side; the state may have changed since the caller looked it up.
func (s *OrderService) CancelOrder(ctx context.Context, number, reason string) error {
	order, err := s.locateOrder(ctx, number)
	if err != nil {
		return err
	}

	if !domain.CanCancel(order, time.Now()) {
		return ErrNotCancellable
	}

	if reason == "" {
		reason = "customer"
	}

	if err := s.provider.CancelOrder(ctx, order.ID, reason); err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}
	return nil
}
