package river

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riversqlite"
	"github.com/riverqueue/river/rivermigrate"
)

// Setup creates a River client with the event, notification, and sweep
// workers registered and runs River's internal migrations. When
// sweepInterval is positive the SLA sweep is scheduled as a periodic
// job. The caller must call client.Start() to begin processing jobs and
// client.Stop() for graceful shutdown, and must Set the returned handle
// once the application service is constructed.
func Setup(ctx context.Context, db *sql.DB, sweepInterval time.Duration) (*Client, *SweepHandle, error) {
	driver := riversqlite.New(db)

	// Run River's own migrations (creates river_job, river_leader, etc.).
	// These are separate from the app's goose migrations.
	migrator, err := rivermigrate.New(driver, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("creating river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return nil, nil, fmt.Errorf("running river migrations: %w", err)
	}

	handle := &SweepHandle{}

	workers := river.NewWorkers()
	river.AddWorker(workers, &EventWorker{})
	river.AddWorker(workers, &NotificationWorker{})
	river.AddWorker(workers, &SweepWorker{handle: handle})

	cfg := &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 2},
		},
		Workers: workers,
	}

	if sweepInterval > 0 {
		cfg.PeriodicJobs = []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(sweepInterval),
				func() (river.JobArgs, *river.InsertOpts) {
					return SweepArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: false},
			),
		}
	}

	client, err := river.NewClient(driver, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating river client: %w", err)
	}

	return client, handle, nil
}
