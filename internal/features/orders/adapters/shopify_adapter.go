package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"order-adapter/internal/core/config"
	"order-adapter/internal/core/httpclient"
	"order-adapter/internal/core/logger"
	"order-adapter/internal/core/shopify"
	"order-adapter/internal/features/orders/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ShopifyAdapter implements the OrderProvider interface using the Shopify
// Admin REST and GraphQL APIs.
type ShopifyAdapter struct {
	// api performs the authenticated Admin API calls.
	api *shopify.Client
	// uploader posts raw bytes to staged upload targets. Those targets live
	// on Shopify's storage backend and are pre-signed, so no token is sent.
	uploader *http.Client
}

// NewShopifyAdapter creates a new instance of ShopifyAdapter.
func NewShopifyAdapter(cfg config.ShopifyConfig) *ShopifyAdapter {
	return &ShopifyAdapter{
		api:      shopify.NewClient(cfg),
		uploader: httpclient.NewClient(60 * time.Second),
	}
}

// HealthCheck verifies that the Admin API is reachable and credentials are valid.
func (a *ShopifyAdapter) HealthCheck(ctx context.Context) error {
	return a.api.HealthCheck(ctx)
}

// FindOrderByNumber fetches the order whose display name equals the given
// number, over any status. Returns (nil, nil) when nothing matches.
func (a *ShopifyAdapter) FindOrderByNumber(ctx context.Context, number string) (*domain.Order, error) {
	path := fmt.Sprintf("/orders.json?name=%s&status=any", url.QueryEscape(number))

	var out struct {
		Orders []shopifyOrder `json:"orders"`
	}
	if err := a.api.REST(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to search orders: %w", err)
	}

	if len(out.Orders) == 0 {
		return nil, nil
	}
	if len(out.Orders) > 1 {
		logger.Get().Warn("Multiple orders matched number, taking first",
			zap.String("order_number", number),
			zap.Int("matches", len(out.Orders)),
		)
	}

	return mapOrder(out.Orders[0]), nil
}

// GetMetafields lists the metafields attached to an order.
func (a *ShopifyAdapter) GetMetafields(ctx context.Context, orderID int64) ([]domain.Metafield, error) {
	path := fmt.Sprintf("/orders/%d/metafields.json", orderID)

	var out struct {
		Metafields []shopifyMetafield `json:"metafields"`
	}
	if err := a.api.REST(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch metafields: %w", err)
	}

	metafields := make([]domain.Metafield, 0, len(out.Metafields))
	for _, mf := range out.Metafields {
		metafields = append(metafields, domain.Metafield{
			ID:        mf.ID,
			Namespace: mf.Namespace,
			Key:       mf.Key,
			Type:      mf.Type,
			Value:     metafieldValueString(mf.Value),
		})
	}
	return metafields, nil
}

// CreateOrderMetafield attaches a new metafield to an order.
func (a *ShopifyAdapter) CreateOrderMetafield(ctx context.Context, orderID int64, mf domain.Metafield) error {
	path := fmt.Sprintf("/orders/%d/metafields.json", orderID)
	body := map[string]interface{}{
		"metafield": map[string]interface{}{
			"namespace": mf.Namespace,
			"key":       mf.Key,
			"type":      mf.Type,
			"value":     mf.Value,
		},
	}

	if err := a.api.REST(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("failed to create metafield %s.%s: %w", mf.Namespace, mf.Key, err)
	}
	return nil
}

// UpdateMetafield overwrites the value of an existing metafield.
func (a *ShopifyAdapter) UpdateMetafield(ctx context.Context, metafieldID int64, valueType, value string) error {
	path := fmt.Sprintf("/metafields/%d.json", metafieldID)
	body := map[string]interface{}{
		"metafield": map[string]interface{}{
			"id":    metafieldID,
			"type":  valueType,
			"value": value,
		},
	}

	if err := a.api.REST(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("failed to update metafield %d: %w", metafieldID, err)
	}
	return nil
}

// UpdateTags replaces the order's full comma-separated tag list.
func (a *ShopifyAdapter) UpdateTags(ctx context.Context, orderID int64, tags string) error {
	path := fmt.Sprintf("/orders/%d.json", orderID)
	body := map[string]interface{}{
		"order": map[string]interface{}{
			"id":   orderID,
			"tags": tags,
		},
	}

	if err := a.api.REST(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("failed to update tags on order %d: %w", orderID, err)
	}
	return nil
}

// CancelOrder cancels the order and asks Shopify to notify the customer.
func (a *ShopifyAdapter) CancelOrder(ctx context.Context, orderID int64, reason string) error {
	path := fmt.Sprintf("/orders/%d/cancel.json", orderID)
	body := map[string]interface{}{
		"reason": reason,
		"email":  true,
	}

	if err := a.api.REST(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("failed to cancel order %d: %w", orderID, err)
	}
	return nil
}

// GraphQL documents for the staged upload sequence.
const (
	stagedUploadsCreateMutation = `mutation stagedUploadsCreate($input: [StagedUploadInput!]!) {
  stagedUploadsCreate(input: $input) {
    stagedTargets {
      url
      resourceUrl
      parameters { name value }
    }
    userErrors { field message }
  }
}`

	fileCreateMutation = `mutation fileCreate($files: [FileCreateInput!]!) {
  fileCreate(files: $files) {
    files { id }
    userErrors { field message }
  }
}`
)

// UploadFile runs Shopify's staged upload sequence: request a pre-signed
// target, post the raw bytes there, then register the uploaded object as a
// Shopify-managed file. Returns the file GID.
func (a *ShopifyAdapter) UploadFile(ctx context.Context, filename, mimeType string, data []byte) (string, error) {
	target, err := a.createStagedTarget(ctx, filename, mimeType, len(data))
	if err != nil {
		return "", err
	}

	if err := a.postToStagedTarget(ctx, target, filename, data); err != nil {
		return "", err
	}

	return a.registerFile(ctx, target.ResourceURL, filename)
}

// createStagedTarget requests a temporary pre-signed upload target.
func (a *ShopifyAdapter) createStagedTarget(ctx context.Context, filename, mimeType string, size int) (*stagedTarget, error) {
	variables := map[string]interface{}{
		"input": []map[string]interface{}{
			{
				"filename":   filename,
				"mimeType":   mimeType,
				"fileSize":   fmt.Sprintf("%d", size),
				"resource":   "FILE",
				"httpMethod": "POST",
			},
		},
	}

	var out struct {
		StagedUploadsCreate struct {
			StagedTargets []stagedTarget `json:"stagedTargets"`
			UserErrors    []userError    `json:"userErrors"`
		} `json:"stagedUploadsCreate"`
	}
	if err := a.api.GraphQL(ctx, stagedUploadsCreateMutation, variables, &out); err != nil {
		return nil, fmt.Errorf("failed to create staged upload: %w", err)
	}
	if len(out.StagedUploadsCreate.UserErrors) > 0 {
		return nil, fmt.Errorf("staged upload rejected: %s", out.StagedUploadsCreate.UserErrors[0].Message)
	}
	if len(out.StagedUploadsCreate.StagedTargets) == 0 {
		return nil, fmt.Errorf("staged upload returned no target")
	}

	return &out.StagedUploadsCreate.StagedTargets[0], nil
}

// postToStagedTarget transfers the raw bytes to the pre-signed target via a
// multipart POST. The signed parameters must precede the file part.
func (a *ShopifyAdapter) postToStagedTarget(ctx context.Context, target *stagedTarget, filename string, data []byte) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, p := range target.Parameters {
		if err := writer.WriteField(p.Name, p.Value); err != nil {
			return fmt.Errorf("failed to write upload parameter: %w", err)
		}
	}

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("failed to write file part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, &buf)
	if err != nil {
		return fmt.Errorf("failed to create staged upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := a.uploader.Do(req)
	if err != nil {
		return fmt.Errorf("staged upload transfer failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("staged upload target returned status %d", resp.StatusCode)
	}
	return nil
}

// registerFile turns the staged object into a Shopify-managed file.
func (a *ShopifyAdapter) registerFile(ctx context.Context, resourceURL, filename string) (string, error) {
	variables := map[string]interface{}{
		"files": []map[string]interface{}{
			{
				"originalSource": resourceURL,
				"alt":            filename,
			},
		},
	}

	var out struct {
		FileCreate struct {
			Files []struct {
				ID string `json:"id"`
			} `json:"files"`
			UserErrors []userError `json:"userErrors"`
		} `json:"fileCreate"`
	}
	if err := a.api.GraphQL(ctx, fileCreateMutation, variables, &out); err != nil {
		return "", fmt.Errorf("failed to register file: %w", err)
	}
	if len(out.FileCreate.UserErrors) > 0 {
		return "", fmt.Errorf("file registration rejected: %s", out.FileCreate.UserErrors[0].Message)
	}
	if len(out.FileCreate.Files) == 0 {
		return "", fmt.Errorf("file registration returned no file")
	}

	return out.FileCreate.Files[0].ID, nil
}

// mapOrder converts a raw Shopify order into the domain entity.
func mapOrder(so shopifyOrder) *domain.Order {
	items := make([]domain.LineItem, 0, len(so.LineItems))
	for _, li := range so.LineItems {
		items = append(items, domain.LineItem{
			Name:     li.Name,
			Variant:  li.VariantTitle,
			Quantity: li.Quantity,
			Price:    parseAmount(li.Price),
			Image:    li.Image.Src,
			SKU:      li.SKU,
		})
	}

	var fulfillment string
	if so.FulfillmentStatus != nil {
		fulfillment = *so.FulfillmentStatus
	}

	return &domain.Order{
		ID:                so.ID,
		Name:              so.Name,
		CreatedAt:         so.CreatedAt,
		CancelledAt:       so.CancelledAt,
		Email:             so.Email,
		Phone:             so.Phone,
		Currency:          so.Currency,
		Subtotal:          parseAmount(so.SubtotalPrice),
		Shipping:          parseAmount(so.TotalShippingPriceSet.ShopMoney.Amount),
		Tax:               parseAmount(so.TotalTax),
		Total:             parseAmount(so.TotalPrice),
		FinancialStatus:   so.FinancialStatus,
		FulfillmentStatus: fulfillment,
		Tags:              so.Tags,
		Items:             items,
	}
}

// parseAmount converts Shopify's string amounts into decimals. A missing or
// malformed amount becomes zero, matching the shipping default.
func parseAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		logger.Get().Warn("Failed to parse amount", zap.String("amount", s), zap.Error(err))
		return decimal.Zero
	}
	return d
}

// metafieldValueString normalizes a metafield value to its raw string form.
// Shopify encodes string-typed values as JSON strings and numeric ones bare.
func metafieldValueString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// internal structs for mapping

// shopifyOrder represents the JSON structure of an order from the Admin REST API.
type shopifyOrder struct {
	// ID is the unique numeric order ID.
	ID int64 `json:"id"`
	// Name is the display order number, e.g. "#1006".
	Name string `json:"name"`
	// CreatedAt is when the order was placed.
	CreatedAt time.Time `json:"created_at"`
	// CancelledAt is set once the order has been cancelled.
	CancelledAt *time.Time `json:"cancelled_at"`
	// Email is the customer's contact email.
	Email string `json:"email"`
	// Phone is the customer's contact phone.
	Phone string `json:"phone"`
	// Currency is the ISO currency code of the amounts below.
	Currency string `json:"currency"`
	// SubtotalPrice, TotalTax and TotalPrice are string-encoded amounts.
	SubtotalPrice string `json:"subtotal_price"`
	TotalTax      string `json:"total_tax"`
	TotalPrice    string `json:"total_price"`
	// TotalShippingPriceSet carries the shipping amount; absent on some orders.
	TotalShippingPriceSet struct {
		ShopMoney struct {
			Amount string `json:"amount"`
		} `json:"shop_money"`
	} `json:"total_shipping_price_set"`
	// FinancialStatus is the payment state.
	FinancialStatus string `json:"financial_status"`
	// FulfillmentStatus is the shipment state, null until fulfillment starts.
	FulfillmentStatus *string `json:"fulfillment_status"`
	// Tags is the comma-separated tag list.
	Tags string `json:"tags"`
	// LineItems contains the products ordered.
	LineItems []shopifyLineItem `json:"line_items"`
}

// shopifyLineItem represents a product in the Shopify order.
type shopifyLineItem struct {
	// Name is the product name.
	Name string `json:"name"`
	// VariantTitle is the variant label, if any.
	VariantTitle string `json:"variant_title"`
	// Quantity is the number of units ordered.
	Quantity int `json:"quantity"`
	// Price is the string-encoded unit price.
	Price string `json:"price"`
	// SKU is the product SKU.
	SKU string `json:"sku"`
	// Image holds the product image details when the platform includes them.
	Image struct {
		Src string `json:"src"`
	} `json:"image"`
}

// shopifyMetafield represents a metafield from the Admin REST API.
type shopifyMetafield struct {
	// ID is the unique metafield ID.
	ID int64 `json:"id"`
	// Namespace groups related metafields.
	Namespace string `json:"namespace"`
	// Key identifies the entry within its namespace.
	Key string `json:"key"`
	// Type is the declared value type.
	Type string `json:"type"`
	// Value is the raw value; string-typed values arrive JSON-quoted.
	Value json.RawMessage `json:"value"`
}

// stagedTarget is a pre-signed upload destination returned by stagedUploadsCreate.
type stagedTarget struct {
	// URL is where the bytes are posted.
	URL string `json:"url"`
	// ResourceURL is the address of the object after upload.
	ResourceURL string `json:"resourceUrl"`
	// Parameters are signed form fields that must accompany the upload.
	Parameters []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"parameters"`
}

// userError is Shopify's GraphQL mutation error shape.
type userError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}
