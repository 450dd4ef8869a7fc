package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultCronExpr — расписание reconcile по умолчанию: каждые 5 минут.
const DefaultCronExpr = "*/5 * * * *"

// cronParser — парсер cron-выражений (стандартные 5 полей).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseCronExpr парсит cron-выражение.
func ParseCronExpr(expr string) (cron.Schedule, error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", expr, err)
	}
	return schedule, nil
}

// NextDue вычисляет следующее время срабатывания после from.
func NextDue(schedule cron.Schedule, from time.Time) time.Time {
	return schedule.Next(from).UTC()
}

// ValidateCronExpr проверяет валидность cron-выражения.
func ValidateCronExpr(expr string) error {
	_, err := ParseCronExpr(expr)
	return err
}
