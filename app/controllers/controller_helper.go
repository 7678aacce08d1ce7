package controllers

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/FelipeCastroBR/TeleGate/app/repository"
	"github.com/FelipeCastroBR/TeleGate/internal/pkg/payments"
	"github.com/FelipeCastroBR/TeleGate/internal/pkg/sweeper"
)

var validate = validator.New()

var (
	paymentService *payments.Service
	sweepManager   *sweeper.Manager
)

// SetupServices wires the controllers to their services. Called once from main
// after the repositories and external clients are initialized.
func SetupServices(service *payments.Service, manager *sweeper.Manager) {
	paymentService = service
	sweepManager = manager
}

func repositoryFactory() *repository.Factory {
	return repository.GetGlobalFactory()
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
