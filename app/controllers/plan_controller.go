package controllers

import (
	"github.com/gofiber/fiber/v2"
)

// HandleListPlans returns the purchasable plans. Inactive and soft-deleted
// plans are excluded; this is the list a checkout page renders.
func HandleListPlans(c *fiber.Ctx) error {
	repo := repositoryFactory().GetPlanRepository()
	plans, err := repo.GetActive()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load plans"})
	}

	return c.JSON(fiber.Map{
		"total": len(plans),
		"plans": plans,
	})
}
