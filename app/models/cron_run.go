package models

import (
	"time"

	"gorm.io/gorm"
)

// CronRun tracks the outcome of scheduled job invocations, one row per job
// name. The sweeper and the monitoring endpoint consume it.
type CronRun struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	JobName       string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"job_name"`
	LastRunAt     *time.Time `gorm:"type:timestamp;default:null" json:"last_run_at"`
	LastSuccessAt *time.Time `gorm:"type:timestamp;default:null" json:"last_success_at"`
	LastErrorAt   *time.Time `gorm:"type:timestamp;default:null" json:"last_error_at"`
	LastError     string     `gorm:"type:text" json:"last_error"`
	Runs          int64      `gorm:"default:0" json:"runs"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// RecordCronRun upserts the tracker row for jobName with the outcome of one
// invocation. runErr == nil marks success.
func RecordCronRun(db *gorm.DB, jobName string, runErr error) error {
	now := time.Now()

	var run CronRun
	err := db.Where("job_name = ?", jobName).First(&run).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			return err
		}
		run = CronRun{JobName: jobName}
	}

	run.LastRunAt = &now
	run.Runs++
	if runErr != nil {
		run.LastErrorAt = &now
		run.LastError = runErr.Error()
	} else {
		run.LastSuccessAt = &now
		run.LastError = ""
	}

	return db.Save(&run).Error
}
