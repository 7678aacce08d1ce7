package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// HandleProcessApprovedPayments triggers one retroactive sweep run. The
// endpoint is idempotent: a run that finds nothing to repair reports zero
// totals, and overlapping triggers are coalesced by the sweep lock.
func HandleProcessApprovedPayments(c *fiber.Ctx) error {
	if sweepManager == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Sweeper unavailable"})
	}

	result, err := sweepManager.RunSweepOnce()
	if err != nil {
		log.Errorf("[Cron] sweep trigger failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Sweep failed: " + err.Error()})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Processamento concluído",
		"results": result,
	})
}

// HandleSweepStatus reports how many approved payments still miss an invite
// link and when the sweep last ran. Read only, no side effects.
func HandleSweepStatus(c *fiber.Ctx) error {
	if sweepManager == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Sweeper unavailable"})
	}

	pending, err := sweepManager.Sweeper().PendingCount()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to count pending payments"})
	}

	response := fiber.Map{
		"pending": pending,
		"running": sweepManager.IsRunning(),
	}

	if lastRun, err := sweepManager.Sweeper().LastRun(); err == nil && lastRun != nil {
		response["last_run"] = fiber.Map{
			"job_name":        lastRun.JobName,
			"last_run_at":     formatTimePtr(lastRun.LastRunAt),
			"last_success_at": formatTimePtr(lastRun.LastSuccessAt),
			"last_error":      lastRun.LastError,
			"runs":            lastRun.Runs,
		}
	}

	return c.JSON(response)
}
