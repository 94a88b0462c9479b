package job

import (
	"runtime/debug"
	"time"

	"github.com/gobuffalo/buffalo/worker"

	"github.com/equitrack/partnership-api/domain"
	"github.com/equitrack/partnership-api/log"
)

const (
	handlerKey = "job_handler"
	argJobType = "job_type"
)

const (
	DailyMaintenance = "daily_maintenance"
)

var w *worker.Worker

var handlers = map[string]func(worker.Args) error{
	DailyMaintenance: dailyMaintenanceHandler,
}

func Init(appWorker *worker.Worker) {
	w = appWorker
	if err := (*w).Register(handlerKey, mainHandler); err != nil {
		log.Errorf("error registering '%s' handler, %s", handlerKey, err)
	}

	delay := time.Second * 10

	// Kick off the first maintenance run between 1h11 and 3h27 from now so
	// multiple instances started together do not pile up.
	if domain.Env.GoEnv != "development" {
		randMins := time.Duration(domain.RandomInsecureIntInRange(71, 387))
		delay = randMins * time.Minute
	}

	if err := SubmitDelayed(DailyMaintenance, delay, map[string]any{}); err != nil {
		log.Fatalf("error initializing DailyMaintenance job: %s", err)
	}
}

func mainHandler(args worker.Args) error {
	jobType := args[argJobType].(string)

	log.Infof("starting %s job", jobType)
	start := time.Now().UTC()

	defer func() {
		if err := recover(); err != nil {
			log.Errorf("panic in job handler %s: %s\n%s", jobType, err, debug.Stack())
		}
	}()

	if err := handlers[jobType](args); err != nil {
		log.Errorf("batch job %s failed: %s", jobType, err)
	}

	log.Infof("completed %s job in %s", jobType, time.Since(start))
	return nil
}

// Submit enqueues a new Worker job for the given job type. Arguments can be provided in `args`.
func Submit(jobType string, args map[string]any) error {
	if domain.Env.GoEnv == "test" {
		return nil
	}
	job := worker.Job{
		Queue:   "default",
		Args:    args,
		Handler: handlerKey,
	}
	job.Args[argJobType] = jobType
	return (*w).Perform(job)
}

// SubmitDelayed enqueues a delayed Worker job for the given job type. Arguments can be provided in `args`.
func SubmitDelayed(jobType string, delay time.Duration, args map[string]any) error {
	if domain.Env.GoEnv == "test" {
		return nil
	}
	job := worker.Job{
		Queue:   "default",
		Args:    args,
		Handler: handlerKey,
	}
	job.Args[argJobType] = jobType
	return (*w).PerformIn(job, delay)
}
