package counter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm/clause"

	"github.com/FelipeCastroBR/TeleGate/app/models"
	"github.com/FelipeCastroBR/TeleGate/internal/pkg/cache"
	"github.com/FelipeCastroBR/TeleGate/internal/pkg/database"
)

const countersKeyPrefix = "notify:counters:"

// Stat names flushed into daily_stats rows.
const (
	StatPaymentApproved  = "payments_approved"
	StatPaymentRejected  = "payments_rejected"
	StatMemberLink       = "links_member"
	StatGenericLink      = "links_generic"
	StatEmailSent        = "emails_sent"
	StatTelegramSent     = "telegram_sent"
	StatSweeperRecovered = "sweeper_recovered"
	StatSweeperError     = "sweeper_errors"
)

// Add increments today's pending counter for a stat in Redis. Best effort;
// callers ignore the error because metrics must never block the pipeline.
func Add(stat string) error {
	rdb := cache.GetClient()
	if rdb == nil {
		return nil
	}
	ctx := context.Background()
	key := countersKeyPrefix + time.Now().Format("2006-01-02")
	return rdb.HIncrBy(ctx, key, stat, 1).Err()
}

// FlushAll drains today's and yesterday's pending counters to the database.
// Yesterday is included so increments racing the midnight rollover survive.
func FlushAll() error {
	now := time.Now()
	for _, day := range []string{now.AddDate(0, 0, -1).Format("2006-01-02"), now.Format("2006-01-02")} {
		if err := flushDay(day); err != nil {
			return err
		}
	}
	return nil
}

// flushDay drains one day's Redis hash atomically and applies batched
// increments to daily_stats. Uses RENAME to a temporary key for atomic drain
// without losing in-flight increments.
func flushDay(day string) error {
	ctx := context.Background()
	rdb := cache.GetClient()
	if rdb == nil {
		return nil
	}
	redisKey := countersKeyPrefix + day

	tmpKey := fmt.Sprintf("%s:tmp:%d", redisKey, time.Now().UnixNano())
	if err := rdb.Do(ctx, "RENAME", redisKey, tmpKey).Err(); err != nil {
		// If key does not exist, nothing to flush
		if strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return nil
		}
		if err.Error() == "redis: nil" {
			return nil
		}
		return err
	}

	// Ensure cleanup of tmpKey even if later steps fail
	defer rdb.Del(ctx, tmpKey)

	data, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	db := database.GetDB()
	for stat, raw := range data {
		inc, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil || inc == 0 {
			continue
		}
		row := models.DailyStat{Day: day, Stat: stat, Value: inc}
		err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "day"}, {Name: "stat"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"value": clause.Expr{SQL: "value + ?", Vars: []interface{}{inc}},
			}),
		}).Create(&row).Error
		if err != nil {
			return err
		}
	}
	return nil
}
