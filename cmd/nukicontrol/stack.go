package main

import (
	"context"
	"fmt"

	"github.com/nerrad567/nuki-control/internal/audit"
	"github.com/nerrad567/nuki-control/internal/bridges/nuki"
	"github.com/nerrad567/nuki-control/internal/infrastructure/config"
	"github.com/nerrad567/nuki-control/internal/infrastructure/database"
	"github.com/nerrad567/nuki-control/internal/infrastructure/influxdb"
	"github.com/nerrad567/nuki-control/internal/infrastructure/logging"
)

// stack is the lock controller together with the optional sinks it writes to.
type stack struct {
	log        *logging.Logger
	controller *nuki.Controller
	influx     *influxdb.Client
	db         *database.DB
	auditRepo  audit.Repository
}

// buildStack connects the enabled sinks and creates the controller.
// On error everything opened so far is closed again.
func buildStack(ctx context.Context, cfg *config.Config, log *logging.Logger) (_ *stack, err error) {
	s := &stack{log: log}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	opts := nuki.ControllerOptions{
		Client: nuki.NewClient(nuki.ClientOptions{
			Identity:      cfg.Identity(),
			StateTimeout:  cfg.GetStateTimeout(),
			ActionTimeout: cfg.GetActionTimeout(),
			Logger:        log,
		}),
		DeviceID: cfg.Nuki.ID,
		Logger:   log,
	}

	// Connect to InfluxDB (optional)
	if cfg.InfluxDB.Enabled {
		s.influx, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		s.influx.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		opts.Telemetry = s.influx
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Debug("InfluxDB disabled")
	}

	// Open the audit database (optional)
	if cfg.Database.Enabled {
		s.db, err = database.Open(database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		if err = s.db.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		repo := audit.NewSQLiteRepository(s.db.DB)
		s.auditRepo = repo
		opts.Audit = audit.NewRecorder(repo)
		log.Info("audit database ready", "path", cfg.Database.Path)
	} else {
		log.Debug("audit database disabled")
	}

	s.controller, err = nuki.NewController(opts)
	if err != nil {
		return nil, fmt.Errorf("creating controller: %w", err)
	}
	return s, nil
}

// healthCheck verifies the enabled sinks are reachable.
func (s *stack) healthCheck(ctx context.Context) error {
	if s.db != nil {
		if err := s.db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if s.influx != nil {
		if err := s.influx.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}

// Close flushes and closes the sinks. Safe on a partially built stack.
func (s *stack) Close() {
	if s.influx != nil {
		written, failed := s.influx.Stats()
		s.log.Info("closing InfluxDB connection", "points_written", written, "failed_batches", failed)
		if err := s.influx.Close(); err != nil {
			s.log.Error("error closing InfluxDB", "error", err)
		}
		s.influx = nil
	}
	if s.db != nil {
		s.log.Info("closing database")
		if err := s.db.Close(); err != nil {
			s.log.Error("error closing database", "error", err)
		}
		s.db = nil
	}
}
