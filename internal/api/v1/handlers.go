package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/FelipeCastroBR/TeleGate/app/controllers"
)

// Pong is the ping endpoint response body.
type Pong struct {
	Ping string `json:"ping"`
}

// APIServer implements the public v1 API surface
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// GetPlans lists the active plans available for purchase.
func (s *APIServer) GetPlans(c *fiber.Ctx) error {
	return controllers.HandleListPlans(c)
}

// GetPayment returns one payment by id with member and plan preloaded.
func (s *APIServer) GetPayment(c *fiber.Ctx) error {
	return controllers.HandleGetPayment(c)
}

// PatchPayment drives a pending payment to aprovado or rejeitado. The action
// and actor come from the request body; see controllers.UpdatePaymentRequest.
func (s *APIServer) PatchPayment(c *fiber.Ctx) error {
	return controllers.HandleUpdatePayment(c)
}

// PostProcessApprovedPayments triggers the retroactive link sweep. Security is
// enforced via the cron bearer middleware attached in the router.
func (s *APIServer) PostProcessApprovedPayments(c *fiber.Ctx) error {
	return controllers.HandleProcessApprovedPayments(c)
}

// GetProcessApprovedPayments reports the sweep backlog and last run outcome.
func (s *APIServer) GetProcessApprovedPayments(c *fiber.Ctx) error {
	return controllers.HandleSweepStatus(c)
}
