package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/FelipeCastroBR/TeleGate/internal/pkg/payments"
)

// UpdatePaymentRequest is the body of PATCH /api/v1/payments/:id. Action
// decides which terminal transition is requested.
type UpdatePaymentRequest struct {
	Action string `json:"action" validate:"required,oneof=approve reject"`
	Actor  string `json:"actor" validate:"required,min=1,max=100"`
	Reason string `json:"reason" validate:"omitempty,max=1000"`
}

// HandleUpdatePayment drives a payment to its terminal state. Approvals kick
// off invite provisioning and notification; rejections send the reason to the
// member. The transition itself never fails because of delivery problems.
func HandleUpdatePayment(c *fiber.Ctx) error {
	if paymentService == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Payment service unavailable"})
	}

	paymentID, err := c.ParamsInt("id")
	if err != nil || paymentID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid payment id"})
	}

	var req UpdatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": err.Error()})
	}

	switch req.Action {
	case "approve":
		return handleApprove(c, uint(paymentID), req)
	case "reject":
		return handleReject(c, uint(paymentID), req)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Unknown action"})
	}
}

func handleApprove(c *fiber.Ctx, paymentID uint, req UpdatePaymentRequest) error {
	outcome, err := paymentService.Approve(paymentID, req.Actor)
	if err != nil {
		return paymentErrorResponse(c, err)
	}

	response := fiber.Map{
		"success":           true,
		"message":           "Pagamento aprovado",
		"payment_id":        outcome.Payment.ID,
		"status":            outcome.Payment.Status,
		"invite_link":       outcome.InviteLink,
		"email_sent":        outcome.EmailSent,
		"telegram_sent":     outcome.TelegramSent,
		"notification_sent": outcome.EmailSent || outcome.TelegramSent,
		"access_expires_at": outcome.NewExpiry.UTC().Format(time.RFC3339),
	}
	if outcome.Warning != "" {
		response["warning"] = outcome.Warning
	}
	return c.JSON(response)
}

func handleReject(c *fiber.Ctx, paymentID uint, req UpdatePaymentRequest) error {
	payment, err := paymentService.Reject(paymentID, req.Actor, req.Reason)
	if err != nil {
		return paymentErrorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"success":           true,
		"message":           "Pagamento rejeitado",
		"payment_id":        payment.ID,
		"status":            payment.Status,
		"notification_sent": payment.NotificationSent,
	})
}

// HandleGetPayment returns one payment with its member and plan preloaded.
func HandleGetPayment(c *fiber.Ctx) error {
	paymentID, err := c.ParamsInt("id")
	if err != nil || paymentID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid payment id"})
	}

	repo := repositoryFactory().GetPaymentRepository()
	payment, err := repo.GetByIDWithMember(uint(paymentID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Payment not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load payment"})
	}
	return c.JSON(payment)
}

func paymentErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, payments.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Payment not found"})
	case errors.Is(err, payments.ErrAlreadyProcessed):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "Payment already processed"})
	case errors.Is(err, payments.ErrInvalidApprover):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Actor identity is required"})
	case errors.Is(err, payments.ErrMissingReason):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Rejection reason is required"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": err.Error()})
	}
}
