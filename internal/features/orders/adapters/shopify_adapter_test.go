package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"order-adapter/internal/core/config"
	"order-adapter/internal/features/orders/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAdapter(url string) *ShopifyAdapter {
	return NewShopifyAdapter(config.ShopifyConfig{
		Domain:      url,
		AccessToken: "shpat_test",
		APIVersion:  "2024-01",
	})
}

// TestShopifyAdapter_FindOrderByNumber_Success verifies the search query and
// the mapping into the domain entity.
func TestShopifyAdapter_FindOrderByNumber_Success(t *testing.T) {
	mockResponse := `{
		"orders": [
			{
				"id": 450789469,
				"name": "#1006",
				"created_at": "2024-03-01T10:00:00+07:00",
				"cancelled_at": null,
				"email": "somchai@example.com",
				"phone": "+66812345678",
				"currency": "THB",
				"subtotal_price": "1190.00",
				"total_tax": "83.30",
				"total_price": "1273.30",
				"total_shipping_price_set": {"shop_money": {"amount": "0.00"}},
				"financial_status": "paid",
				"fulfillment_status": null,
				"tags": "vip",
				"line_items": [
					{
						"name": "Cotton Shirt",
						"variant_title": "M / White",
						"quantity": 2,
						"price": "595.00",
						"sku": "SHIRT-M-W",
						"image": {"src": "https://cdn.example.com/shirt.jpg"}
					}
				]
			}
		]
	}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/2024-01/orders.json", r.URL.Path)
		assert.Equal(t, "1006", r.URL.Query().Get("name"))
		assert.Equal(t, "any", r.URL.Query().Get("status"))
		assert.Equal(t, "shpat_test", r.Header.Get("X-Shopify-Access-Token"))

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(mockResponse))
	}))
	defer server.Close()

	order, err := testAdapter(server.URL).FindOrderByNumber(context.Background(), "1006")

	require.NoError(t, err)
	require.NotNil(t, order)

	assert.Equal(t, int64(450789469), order.ID)
	assert.Equal(t, "#1006", order.Name)
	assert.Nil(t, order.CancelledAt)
	assert.Equal(t, "somchai@example.com", order.Email)
	assert.Equal(t, "THB", order.Currency)
	assert.Equal(t, "paid", order.FinancialStatus)
	assert.Equal(t, "", order.FulfillmentStatus)
	assert.Equal(t, "vip", order.Tags)
	assert.Equal(t, "1190", order.Subtotal.String())
	assert.Equal(t, "1273.3", order.Total.String())
	assert.True(t, order.Shipping.IsZero())

	require.Len(t, order.Items, 1)
	assert.Equal(t, "Cotton Shirt", order.Items[0].Name)
	assert.Equal(t, "M / White", order.Items[0].Variant)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, "595", order.Items[0].Price.String())
	assert.Equal(t, "SHIRT-M-W", order.Items[0].SKU)
	assert.Equal(t, "https://cdn.example.com/shirt.jpg", order.Items[0].Image)
}

// TestShopifyAdapter_FindOrderByNumber_NotFound verifies an empty result set
// maps to (nil, nil).
func TestShopifyAdapter_FindOrderByNumber_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"orders": []}`))
	}))
	defer server.Close()

	order, err := testAdapter(server.URL).FindOrderByNumber(context.Background(), "9999")

	require.NoError(t, err)
	assert.Nil(t, order)
}

// TestShopifyAdapter_FindOrderByNumber_MissingShipping verifies a missing
// shipping price set defaults to zero.
func TestShopifyAdapter_FindOrderByNumber_MissingShipping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"orders": [{"id": 1, "name": "#1", "created_at": "2024-03-01T10:00:00+07:00", "currency": "THB", "subtotal_price": "100.00", "total_price": "100.00", "financial_status": "pending", "line_items": []}]}`))
	}))
	defer server.Close()

	order, err := testAdapter(server.URL).FindOrderByNumber(context.Background(), "1")

	require.NoError(t, err)
	require.NotNil(t, order)
	assert.True(t, order.Shipping.IsZero())
	assert.True(t, order.Tax.IsZero())
}

// TestShopifyAdapter_GetMetafields verifies value normalization for string
// and JSON typed metafields.
func TestShopifyAdapter_GetMetafields(t *testing.T) {
	mockResponse := `{
		"metafields": [
			{"id": 11, "namespace": "custom", "key": "fulfillment_stage", "type": "single_line_text_field", "value": "shipped"},
			{"id": 12, "namespace": "custom", "key": "payment_slip", "type": "json", "value": "{\"filename\":\"slip.jpg\"}"}
		]
	}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/2024-01/orders/450789469/metafields.json", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(mockResponse))
	}))
	defer server.Close()

	metafields, err := testAdapter(server.URL).GetMetafields(context.Background(), 450789469)

	require.NoError(t, err)
	require.Len(t, metafields, 2)

	assert.Equal(t, int64(11), metafields[0].ID)
	assert.Equal(t, domain.KeyFulfillmentStage, metafields[0].Key)
	assert.Equal(t, "shipped", metafields[0].Value)

	assert.Equal(t, domain.KeyPaymentSlip, metafields[1].Key)
	assert.Equal(t, domain.MetafieldTypeJSON, metafields[1].Type)
	assert.JSONEq(t, `{"filename":"slip.jpg"}`, metafields[1].Value)
}

// TestShopifyAdapter_CreateAndUpdateMetafield verifies the create and update
// payloads and paths.
func TestShopifyAdapter_CreateAndUpdateMetafield(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/admin/api/2024-01/orders/42/metafields.json":
			assert.Equal(t, "custom", body["metafield"]["namespace"])
			assert.Equal(t, "payment_slip", body["metafield"]["key"])
			assert.Equal(t, "json", body["metafield"]["type"])
		case r.Method == http.MethodPut && r.URL.Path == "/admin/api/2024-01/metafields/11.json":
			assert.Equal(t, float64(11), body["metafield"]["id"])
			assert.Equal(t, "json", body["metafield"]["type"])
			assert.Equal(t, "{}", body["metafield"]["value"])
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	a := testAdapter(server.URL)

	err := a.CreateOrderMetafield(context.Background(), 42, domain.Metafield{
		Namespace: domain.MetafieldNamespace,
		Key:       domain.KeyPaymentSlip,
		Type:      domain.MetafieldTypeJSON,
		Value:     "{}",
	})
	require.NoError(t, err)

	err = a.UpdateMetafield(context.Background(), 11, domain.MetafieldTypeJSON, "{}")
	require.NoError(t, err)
}

// TestShopifyAdapter_UpdateTags verifies the order update payload.
func TestShopifyAdapter_UpdateTags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/admin/api/2024-01/orders/42.json", r.URL.Path)

		var body map[string]map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "vip, payment-confirmed", body["order"]["tags"])

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	err := testAdapter(server.URL).UpdateTags(context.Background(), 42, "vip, payment-confirmed")
	require.NoError(t, err)
}

// TestShopifyAdapter_CancelOrder verifies reason and customer notification.
func TestShopifyAdapter_CancelOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/admin/api/2024-01/orders/42/cancel.json", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "customer", body["reason"])
		assert.Equal(t, true, body["email"])

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	err := testAdapter(server.URL).CancelOrder(context.Background(), 42, "customer")
	require.NoError(t, err)
}

// TestShopifyAdapter_UploadFile verifies the full staged upload sequence:
// stagedUploadsCreate, multipart transfer with signed parameters, fileCreate.
func TestShopifyAdapter_UploadFile(t *testing.T) {
	var server *httptest.Server
	var stagedHit, registered bool

	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/admin/api/2024-01/graphql.json":
			var req struct {
				Query string `json:"query"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

			if strings.Contains(req.Query, "stagedUploadsCreate") {
				resp := `{"data": {"stagedUploadsCreate": {"stagedTargets": [{"url": "` + server.URL + `/staged", "resourceUrl": "` + server.URL + `/staged/slip.jpg", "parameters": [{"name": "key", "value": "tmp/slip.jpg"}]}], "userErrors": []}}}`
				w.Write([]byte(resp))
				return
			}

			registered = true
			w.Write([]byte(`{"data": {"fileCreate": {"files": [{"id": "gid://shopify/GenericFile/123"}], "userErrors": []}}}`))

		case "/staged":
			stagedHit = true
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "tmp/slip.jpg", r.FormValue("key"))

			file, header, err := r.FormFile("file")
			require.NoError(t, err)
			defer file.Close()
			assert.Equal(t, "slip.jpg", header.Filename)

			w.WriteHeader(http.StatusCreated)

		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	fileID, err := testAdapter(server.URL).UploadFile(context.Background(), "slip.jpg", "image/jpeg", []byte("fake-image-bytes"))

	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/GenericFile/123", fileID)
	assert.True(t, stagedHit)
	assert.True(t, registered)
}

// TestShopifyAdapter_UploadFile_UserError verifies mutation user errors abort
// the sequence.
func TestShopifyAdapter_UploadFile_UserError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"stagedUploadsCreate": {"stagedTargets": [], "userErrors": [{"field": ["input"], "message": "file size too large"}]}}}`))
	}))
	defer server.Close()

	_, err := testAdapter(server.URL).UploadFile(context.Background(), "slip.jpg", "image/jpeg", []byte("x"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "file size too large")
}
