package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/auth"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/batch"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/ingest"
	ingestrepo "github.com/ovaphlow/pitchfork/service-health-ingest/internal/ingest/repo"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/job"
	jobrepo "github.com/ovaphlow/pitchfork/service-health-ingest/internal/job/repo"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/metric"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/query"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-health-ingest/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-health-ingest/pkg/database"
)

const (
	partitionMonthsBack  = 12
	partitionMonthsAhead = 3
)

// App holds the opened stores and the services built on them.
type App struct {
	Config Config
	DB     *sqlx.DB
	Pool   *pgxpool.Pool

	Processor *batch.Processor
	Raws      *ingestrepo.RawRepo
	JobRepo   *jobrepo.JobRepo
	Users     *user.UserService
	Auth      *auth.Service
	Jobs      *job.Service
	Query     *query.Service

	log *zap.SugaredLogger
}

// Open connects both database handles, applies migrations when enabled and
// builds the services. Close releases what Open acquired.
func Open(ctx context.Context, cfg Config, log *zap.SugaredLogger) (*App, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := migrate(ctx, db, log); err != nil {
			db.Close()
			return nil, err
		}
	}
	pool, err := database.OpenPool(ctx, cfg.Database)
	if err != nil {
		db.Close()
		return nil, err
	}

	store := batch.NewPgxStore(ctx, pool, cfg.Database.StatementTimeout)
	jobs := jobrepo.NewJobRepo(db)
	a := &App{
		Config:    cfg,
		DB:        db,
		Pool:      pool,
		Processor: batch.NewProcessor(store, cfg.Batch, &cfg.Validation, log),
		Raws:      ingestrepo.NewRawRepo(db),
		JobRepo:   jobs,
		Users:     user.NewUserService(db, userrepo.NewUserRepo(db)),
		Auth:      auth.NewServiceDB(db, cfg.Auth.Pepper, log),
		Jobs:      job.NewService(jobs),
		Query:     query.NewServiceDB(db, log),
		log:       log,
	}
	log.Infow("stores ready",
		"database", cfg.Database.Redacted().DSN,
		"route_geometry", store.RouteGeometry())
	return a, nil
}

func migrate(ctx context.Context, db *sqlx.DB, log *zap.SugaredLogger) error {
	applied, err := database.MigrateUp(ctx, db.DB)
	if err != nil {
		return err
	}
	n, err := database.EnsurePartitions(ctx, db.DB, metric.PartitionedTables(), partitionMonthsBack, partitionMonthsAhead)
	if err != nil {
		return err
	}
	log.Infow("schema migrated", "applied", applied, "partitions_created", n)
	return nil
}

// NewIngest builds the ingest service, with the raw payload archive when a
// bucket is configured.
func (a *App) NewIngest(ctx context.Context) (*ingest.Service, error) {
	svc := ingest.NewService(a.Raws, a.JobRepo, a.Processor, a.Config.Ingest, a.log)
	if a.Config.Archive.Bucket == "" {
		return svc, nil
	}
	archiver, err := ingest.NewS3Archiver(ctx, a.Config.Archive)
	if err != nil {
		return nil, fmt.Errorf("raw archive: %w", err)
	}
	a.log.Infow("raw payload archive enabled", "bucket", a.Config.Archive.Bucket)
	return svc.WithArchiver(archiver), nil
}

func (a *App) NewRunner() *job.Runner {
	return job.NewRunner(a.JobRepo, a.Raws, a.Processor, a.Config.Runner, a.log)
}

// Ping checks the repository handle.
func (a *App) Ping(ctx context.Context) error {
	return database.Ping(ctx, a.DB, a.Config.Database.TestTimeout)
}

func (a *App) Close() {
	a.Pool.Close()
	if err := a.DB.Close(); err != nil {
		a.log.Warnw("db close failed", "error", err)
	}
}
