package handler

import (
	"errors"
	"io"
	"net/http"

	"order-adapter/internal/core/logger"
	"order-adapter/internal/features/orders/domain"
	"order-adapter/internal/features/orders/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Fixed user-facing messages (Thai). Upstream error detail is logged
// server-side and never leaks into these responses.
const (
	msgOrderNotFound  = "ไม่พบคำสั่งซื้อ"
	msgFetchError     = "เกิดข้อผิดพลาดในการดึงข้อมูลคำสั่งซื้อ"
	msgNoFile         = "กรุณาแนบไฟล์สลิปการโอนเงิน"
	msgBadFileType    = "ประเภทไฟล์ไม่ถูกต้อง รองรับเฉพาะไฟล์รูปภาพเท่านั้น"
	msgUploadError    = "เกิดข้อผิดพลาดในการอัปโหลดไฟล์"
	msgUploadSuccess  = "อัปโหลดสลิปการโอนเงินเรียบร้อยแล้ว"
	msgConfirmSuccess = "ยืนยันการชำระเงินเรียบร้อยแล้ว"
	msgConfirmError   = "เกิดข้อผิดพลาดในการยืนยันการชำระเงิน"
	msgCannotCancel   = "ไม่สามารถยกเลิกคำสั่งซื้อได้หลังจาก 3 วัน"
	msgCancelSuccess  = "ยกเลิกคำสั่งซื้อเรียบร้อยแล้ว"
	msgCancelError    = "เกิดข้อผิดพลาดในการยกเลิกคำสั่งซื้อ"
)

// OrderHandler handles the HTTP surface of the four order operations.
type OrderHandler struct {
	// service is the OrderService instance.
	service *service.OrderService
}

// NewOrderHandler creates a new instance of OrderHandler.
func NewOrderHandler(s *service.OrderService) *OrderHandler {
	return &OrderHandler{
		service: s,
	}
}

// ErrorResponse represents the structure of an error response.
type ErrorResponse struct {
	// Success is always false for errors.
	Success bool `json:"success"`
	// Error is the fixed localized message.
	Error string `json:"error"`
}

// OrderResponse wraps a successful lookup.
type OrderResponse struct {
	Success bool              `json:"success"`
	Order   *domain.OrderView `json:"order"`
}

// MessageResponse wraps a successful mutation.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// UploadResponse wraps a successful slip upload.
type UploadResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	File    *service.SlipReceipt `json:"file"`
}

// cancelRequest is the optional cancellation body.
type cancelRequest struct {
	// Reason is the free-text cancellation reason.
	Reason string `json:"reason"`
}

// rayID extracts the request id set by the requestid middleware.
func rayID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return "unknown"
}

// GetOrder handles the order lookup request.
// @Summary Get order by number
// @Description Fetches an order by its human-readable number (with or without the # prefix) and returns the derived view.
// @Tags orders
// @Produce json
// @Param orderNumber path string true "Order number"
// @Success 200 {object} OrderResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/order/{orderNumber} [get]
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	number := c.Params("orderNumber")

	view, err := h.service.GetOrder(c.UserContext(), number)
	if err != nil {
		logger.Get().Error("Failed to fetch order",
			zap.String("order_number", number),
			zap.String("ray_id", rayID(c)),
			zap.Error(err),
		)

		if errors.Is(err, service.ErrOrderNotFound) {
			return c.Status(http.StatusNotFound).JSON(ErrorResponse{Error: msgOrderNotFound})
		}
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{Error: msgFetchError})
	}

	return c.Status(http.StatusOK).JSON(OrderResponse{Success: true, Order: view})
}

// UploadPaymentSlip handles the payment-slip upload request.
// @Summary Upload a payment slip
// @Description Accepts a multipart file and persists it against the order's payment_slip metafield.
// @Tags orders
// @Accept multipart/form-data
// @Produce json
// @Param orderNumber path string true "Order number"
// @Param paymentSlip formData file true "Payment slip image"
// @Success 200 {object} UploadResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/order/{orderNumber}/upload-payment [post]
func (h *OrderHandler) UploadPaymentSlip(c *fiber.Ctx) error {
	number := c.Params("orderNumber")

	fileHeader, err := c.FormFile("paymentSlip")
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{Error: msgNoFile})
	}

	// Type gate runs before the file is even read, let alone any platform call.
	mimeType := fileHeader.Header.Get("Content-Type")
	if !h.service.AcceptsMimeType(mimeType) {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{Error: msgBadFileType})
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.Get().Error("Failed to open uploaded file",
			zap.String("order_number", number),
			zap.String("ray_id", rayID(c)),
			zap.Error(err),
		)
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{Error: msgUploadError})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		logger.Get().Error("Failed to read uploaded file",
			zap.String("order_number", number),
			zap.String("ray_id", rayID(c)),
			zap.Error(err),
		)
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{Error: msgUploadError})
	}

	receipt, err := h.service.UploadPaymentSlip(c.UserContext(), number, fileHeader.Filename, mimeType, data)
	if err != nil {
		logger.Get().Error("Failed to store payment slip",
			zap.String("order_number", number),
			zap.String("ray_id", rayID(c)),
			zap.Error(err),
		)

		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			return c.Status(http.StatusNotFound).JSON(ErrorResponse{Error: msgOrderNotFound})
		case errors.Is(err, service.ErrNoFile):
			return c.Status(http.StatusBadRequest).JSON(ErrorResponse{Error: msgNoFile})
		case errors.Is(err, service.ErrUnsupportedFileType):
			return c.Status(http.StatusBadRequest).JSON(ErrorResponse{Error: msgBadFileType})
		}
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{Error: msgUploadError})
	}

	return c.Status(http.StatusOK).JSON(UploadResponse{
		Success: true,
		Message: msgUploadSuccess,
		File:    receipt,
	})
}

// ConfirmPayment handles the staff payment confirmation request.
// @Summary Confirm an order's payment
// @Description Tags the order payment-confirmed. Confirming twice is a no-op.
// @Tags orders
// @Produce json
// @Param orderNumber path string true "Order number"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/order/{orderNumber}/confirm-payment [post]
func (h *OrderHandler) ConfirmPayment(c *fiber.Ctx) error {
	number := c.Params("orderNumber")

	if err := h.service.ConfirmPayment(c.UserContext(), number); err != nil {
		logger.Get().Error("Failed to confirm payment",
			zap.String("order_number", number),
			zap.String("ray_id", rayID(c)),
			zap.Error(err),
		)

		if errors.Is(err, service.ErrOrderNotFound) {
			return c.Status(http.StatusNotFound).JSON(ErrorResponse{Error: msgOrderNotFound})
		}
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{Error: msgConfirmError})
	}

	return c.Status(http.StatusOK).JSON(MessageResponse{Success: true, Message: msgConfirmSuccess})
}

// CancelOrder handles the order cancellation request.
// @Summary Cancel an order
// @Description Cancels the order if it is still inside the 3-day window. The window is re-validated server-side.
// @Tags orders
// @Accept json
// @Produce json
// @Param orderNumber path string true "Order number"
// @Param body body cancelRequest false "Cancellation reason"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/order/{orderNumber}/cancel [post]
func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	number := c.Params("orderNumber")

	var req cancelRequest
	// The body is optional; an empty or non-JSON body means the default reason.
	if err := c.BodyParser(&req); err != nil {
		req.Reason = ""
	}

	if err := h.service.CancelOrder(c.UserContext(), number, req.Reason); err != nil {
		logger.Get().Error("Failed to cancel order",
			zap.String("order_number", number),
			zap.String("ray_id", rayID(c)),
			zap.Error(err),
		)

		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			return c.Status(http.StatusNotFound).JSON(ErrorResponse{Error: msgOrderNotFound})
		case errors.Is(err, service.ErrNotCancellable):
			return c.Status(http.StatusBadRequest).JSON(ErrorResponse{Error: msgCannotCancel})
		}
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{Error: msgCancelError})
	}

	return c.Status(http.StatusOK).JSON(MessageResponse{Success: true, Message: msgCancelSuccess})
}
