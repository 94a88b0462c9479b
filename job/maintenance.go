package job

import (
	"time"

	"github.com/gobuffalo/buffalo/worker"
	"github.com/gobuffalo/pop/v6"

	"github.com/equitrack/partnership-api/log"
	"github.com/equitrack/partnership-api/models"
)

// dailyMaintenanceHandler is the Worker handler for the date-driven rules:
// status recomputes, country programme rollover, assurance counters and
// attachment cleanup.
func dailyMaintenanceHandler(_ worker.Args) error {
	defer resubmitMaintenanceJob()

	return models.DB.Transaction(func(tx *pop.Connection) error {
		return models.RunDailyMaintenance(tx, time.Now().UTC())
	})
}

func resubmitMaintenanceJob() {
	// Run twice a day, in case it errors out
	delay := time.Hour * 12

	if err := SubmitDelayed(DailyMaintenance, delay, map[string]any{}); err != nil {
		log.Errorf("error resubmitting dailyMaintenanceHandler: %s", err)
	}
}
