package repository

import (
	"github.com/FelipeCastroBR/TeleGate/app/models"
	"gorm.io/gorm"
)

// cronRepository implements the CronRepository interface
type cronRepository struct {
	db *gorm.DB
}

// NewCronRepository creates a new cron tracker repository instance
func NewCronRepository(db *gorm.DB) CronRepository {
	return &cronRepository{db: db}
}

// Record upserts the tracker row for one job invocation outcome
func (r *cronRepository) Record(jobName string, runErr error) error {
	return models.RecordCronRun(r.db, jobName, runErr)
}

// Get retrieves the tracker row for a job name
func (r *cronRepository) Get(jobName string) (*models.CronRun, error) {
	var run models.CronRun
	err := r.db.Where("job_name = ?", jobName).First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}
