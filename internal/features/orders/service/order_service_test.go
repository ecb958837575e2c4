package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"order-adapter/internal/core/config"
	"order-adapter/internal/features/orders/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProvider is a mock implementation of ports.OrderProvider recording the
// calls it receives.
type mockProvider struct {
	order         *domain.Order
	findErr       error
	metafields    []domain.Metafield
	metafieldsErr error

	findNumbers []string
	created     []domain.Metafield
	updatedID   int64
	updatedType string
	updatedVal  string
	updateCalls int
	tags        string
	tagCalls    int
	cancelCalls int
	cancelID    int64
	reason      string
	uploadCalls int
	uploadName  string
	uploadMime  string
	fileID      string
}

func (m *mockProvider) FindOrderByNumber(_ context.Context, number string) (*domain.Order, error) {
	m.findNumbers = append(m.findNumbers, number)
	return m.order, m.findErr
}

func (m *mockProvider) GetMetafields(_ context.Context, _ int64) ([]domain.Metafield, error) {
	return m.metafields, m.metafieldsErr
}

func (m *mockProvider) CreateOrderMetafield(_ context.Context, _ int64, mf domain.Metafield) error {
	m.created = append(m.created, mf)
	return nil
}

func (m *mockProvider) UpdateMetafield(_ context.Context, id int64, valueType, value string) error {
	m.updateCalls++
	m.updatedID, m.updatedType, m.updatedVal = id, valueType, value
	return nil
}

func (m *mockProvider) UpdateTags(_ context.Context, _ int64, tags string) error {
	m.tagCalls++
	m.tags = tags
	return nil
}

func (m *mockProvider) CancelOrder(_ context.Context, orderID int64, reason string) error {
	m.cancelCalls++
	m.cancelID, m.reason = orderID, reason
	return nil
}

func (m *mockProvider) UploadFile(_ context.Context, filename, mimeType string, _ []byte) (string, error) {
	m.uploadCalls++
	m.uploadName, m.uploadMime = filename, mimeType
	return m.fileID, nil
}

func defaultPolicy() config.PolicyConfig {
	return config.PolicyConfig{
		StatusSource: config.StatusSourceMetafield,
		SlipStorage:  config.SlipStorageInline,
	}
}

func testOrder() *domain.Order {
	return &domain.Order{
		ID:              42,
		Name:            "#1006",
		CreatedAt:       time.Now().Add(-24 * time.Hour),
		Currency:        "THB",
		FinancialStatus: "paid",
		Tags:            "vip",
	}
}

// TestGetOrder_Success verifies the view is built from order and metafields.
func TestGetOrder_Success(t *testing.T) {
	provider := &mockProvider{
		order: testOrder(),
		metafields: []domain.Metafield{
			{ID: 1, Namespace: "custom", Key: "fulfillment_stage", Type: "single_line_text_field", Value: "shipped"},
			{ID: 2, Namespace: "custom", Key: "payment_slip", Type: "json", Value: `{"filename":"slip.jpg","uploadedAt":"2024-03-02T09:00:00Z"}`},
		},
	}
	svc := NewOrderService(provider, defaultPolicy(), config.UploadConfig{MaxMB: 10})

	view, err := svc.GetOrder(context.Background(), "#1006")

	require.NoError(t, err)
	assert.Equal(t, "1006", view.OrderNumber)
	assert.Equal(t, domain.StatusShipped, view.Status)
	require.NotNil(t, view.PaymentSlip)
	assert.True(t, view.PaymentSlip.Uploaded)
	assert.Equal(t, "slip.jpg", view.PaymentSlip.Filename)
	require.NotNil(t, view.PaymentSlip.UploadedAt)
}

// TestGetOrder_NumberCleaning verifies "#1006" and "1006" query identically.
func TestGetOrder_NumberCleaning(t *testing.T) {
	provider := &mockProvider{order: testOrder()}
	svc := NewOrderService(provider, defaultPolicy(), config.UploadConfig{})

	_, err := svc.GetOrder(context.Background(), "#1006")
	require.NoError(t, err)
	_, err = svc.GetOrder(context.Background(), "1006")
	require.NoError(t, err)

	require.Len(t, provider.findNumbers, 2)
	assert.Equal(t, provider.findNumbers[0], provider.findNumbers[1])
	assert.Equal(t, "1006", provider.findNumbers[0])
}

// TestGetOrder_NotFound verifies a nil provider result maps to ErrOrderNotFound.
func TestGetOrder_NotFound(t *testing.T) {
	svc := NewOrderService(&mockProvider{}, defaultPolicy(), config.UploadConfig{})

	_, err := svc.GetOrder(context.Background(), "9999")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

// TestGetOrder_FileReferenceSlip verifies reference-stored slips summarize
// with the file ID.
func TestGetOrder_FileReferenceSlip(t *testing.T) {
	provider := &mockProvider{
		order: testOrder(),
		metafields: []domain.Metafield{
			{ID: 2, Namespace: "custom", Key: "payment_slip", Type: "file_reference", Value: "gid://shopify/GenericFile/123"},
		},
	}
	svc := NewOrderService(provider, defaultPolicy(), config.UploadConfig{})

	view, err := svc.GetOrder(context.Background(), "1006")

	require.NoError(t, err)
	require.NotNil(t, view.PaymentSlip)
	assert.Equal(t, "gid://shopify/GenericFile/123", view.PaymentSlip.FileID)
}

// TestUploadPaymentSlip_InlineCreate verifies the inline blob is created when
// no slip metafield exists yet.
func TestUploadPaymentSlip_InlineCreate(t *testing.T) {
	provider := &mockProvider{order: testOrder()}
	svc := NewOrderService(provider, defaultPolicy(), config.UploadConfig{MaxMB: 10})

	data := []byte("fake-image-bytes")
	receipt, err := svc.UploadPaymentSlip(context.Background(), "#1006", "slip.jpg", "image/jpeg", data)

	require.NoError(t, err)
	assert.Equal(t, "slip.jpg", receipt.Name)
	assert.Equal(t, int64(len(data)), receipt.Size)
	assert.WithinDuration(t, time.Now(), receipt.UploadedAt, time.Minute)

	require.Len(t, provider.created, 1)
	created := provider.created[0]
	assert.Equal(t, domain.MetafieldNamespace, created.Namespace)
	assert.Equal(t, domain.KeyPaymentSlip, created.Key)
	assert.Equal(t, domain.MetafieldTypeJSON, created.Type)

	var slip domain.PaymentSlip
	require.NoError(t, json.Unmarshal([]byte(created.Value), &slip))
	assert.Equal(t, "slip.jpg", slip.Filename)
	assert.Equal(t, "image/jpeg", slip.MimeType)
	assert.Equal(t, int64(len(data)), slip.Size)
	assert.Equal(t, base64.StdEncoding.EncodeToString(data), slip.Data)
	assert.Equal(t, receipt.UploadedAt, slip.UploadedAt)
}

// TestUploadPaymentSlip_InlineUpdate verifies an existing slip metafield is
// updated instead of duplicated.
func TestUploadPaymentSlip_InlineUpdate(t *testing.T) {
	provider := &mockProvider{
		order: testOrder(),
		metafields: []domain.Metafield{
			{ID: 77, Namespace: "custom", Key: "payment_slip", Type: "json", Value: `{}`},
		},
	}
	svc := NewOrderService(provider, defaultPolicy(), config.UploadConfig{})

	_, err := svc.UploadPaymentSlip(context.Background(), "1006", "slip2.png", "image/png", []byte("y"))

	require.NoError(t, err)
	assert.Empty(t, provider.created)
	assert.Equal(t, 1, provider.updateCalls)
	assert.Equal(t, int64(77), provider.updatedID)
	assert.Equal(t, domain.MetafieldTypeJSON, provider.updatedType)
	assert.Contains(t, provider.updatedVal, "slip2.png")
}

// TestUploadPaymentSlip_ReferenceStrategy verifies the staged upload path
// stores only the file reference.
func TestUploadPaymentSlip_ReferenceStrategy(t *testing.T) {
	provider := &mockProvider{order: testOrder(), fileID: "gid://shopify/GenericFile/9"}
	policy := config.PolicyConfig{StatusSource: config.StatusSourceMetafield, SlipStorage: config.SlipStorageReference}
	svc := NewOrderService(provider, policy, config.UploadConfig{})

	_, err := svc.UploadPaymentSlip(context.Background(), "1006", "slip.jpg", "image/jpeg", []byte("z"))

	require.NoError(t, err)
	assert.Equal(t, 1, provider.uploadCalls)
	assert.Equal(t, "slip.jpg", provider.uploadName)

	require.Len(t, provider.created, 1)
	assert.Equal(t, domain.MetafieldTypeFileReference, provider.created[0].Type)
	assert.Equal(t, "gid://shopify/GenericFile/9", provider.created[0].Value)
}

// TestUploadPaymentSlip_RejectsDisallowedType verifies the allow-list check
// fires before any platform call.
func TestUploadPaymentSlip_RejectsDisallowedType(t *testing.T) {
	provider := &mockProvider{order: testOrder()}
	svc := NewOrderService(provider, defaultPolicy(), config.UploadConfig{AllowPDF: false})

	_, err := svc.UploadPaymentSlip(context.Background(), "1006", "doc.pdf", "application/pdf", []byte("x"))

	assert.ErrorIs(t, err, ErrUnsupportedFileType)
	assert.Empty(t, provider.findNumbers)
	assert.Zero(t, provider.uploadCalls)
}

// TestUploadPaymentSlip_AllowPDF verifies the PDF variant accepts PDFs.
func TestUploadPaymentSlip_AllowPDF(t *testing.T) {
	provider := &mockProvider{order: testOrder()}
	svc := NewOrderService(provider, defaultPolicy(), config.UploadConfig{AllowPDF: true})

	_, err := svc.UploadPaymentSlip(context.Background(), "1006", "doc.pdf", "application/pdf", []byte("x"))
	require.NoError(t, err)
}

// TestUploadPaymentSlip_NoFile verifies empty uploads fail fast.
func TestUploadPaymentSlip_NoFile(t *testing.T) {
	provider := &mockProvider{order: testOrder()}
	svc := NewOrderService(provider, defaultPolicy(), config.UploadConfig{})

	_, err := svc.UploadPaymentSlip(context.Background(), "1006", "slip.jpg", "image/jpeg", nil)

	assert.ErrorIs(t, err, ErrNoFile)
	assert.Empty(t, provider.findNumbers)
}

// TestConfirmPayment verifies the tag union write and its idempotency.
func TestConfirmPayment(t *testing.T) {
	provider := &mockProvider{order: testOrder()}
	svc := NewOrderService(provider, defaultPolicy(), config.UploadConfig{})

	require.NoError(t, svc.ConfirmPayment(context.Background(), "#1006"))
	assert.Equal(t, "vip, payment-confirmed", provider.tags)

	// Second confirmation writes the same set; the list grows by at most one.
	provider.order.Tags = provider.tags
	require.NoError(t, svc.ConfirmPayment(context.Background(), "#1006"))
	assert.Equal(t, "vip, payment-confirmed", provider.tags)
	assert.Len(t, domain.SplitTags(provider.tags), 2)
	assert.Equal(t, 2, provider.tagCalls)
}

// TestCancelOrder_WithinWindow verifies cancellation passes the reason through.
func TestCancelOrder_WithinWindow(t *testing.T) {
	provider := &mockProvider{order: testOrder()}
	svc := NewOrderService(provider, defaultPolicy(), config.UploadConfig{})

	require.NoError(t, svc.CancelOrder(context.Background(), "1006", "changed my mind"))
	assert.Equal(t, 1, provider.cancelCalls)
	assert.Equal(t, int64(42), provider.cancelID)
	assert.Equal(t, "changed my mind", provider.reason)
}

// TestCancelOrder_DefaultReason verifies the reason defaults to customer.
func TestCancelOrder_DefaultReason(t *testing.T) {
	provider := &mockProvider{order: testOrder()}
	svc := NewOrderService(provider, defaultPolicy(), config.UploadConfig{})

	require.NoError(t, svc.CancelOrder(context.Background(), "1006", ""))
	assert.Equal(t, "customer", provider.reason)
}

// TestCancelOrder_WindowExpired verifies an old order is rejected without any
// upstream cancel call.
func TestCancelOrder_WindowExpired(t *testing.T) {
	old := testOrder()
	old.CreatedAt = time.Now().Add(-10 * 24 * time.Hour)
	provider := &mockProvider{order: old}
	svc := NewOrderService(provider, defaultPolicy(), config.UploadConfig{})

	err := svc.CancelOrder(context.Background(), "1006", "customer")

	assert.ErrorIs(t, err, ErrNotCancellable)
	assert.Zero(t, provider.cancelCalls)
}
