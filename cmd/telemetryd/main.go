// Telemetry Core - device registry and telemetry ingestion service.
//
// This is the main entry point. It wires the identity store, the device
// registry, telemetry ingestion and the audit trail behind the HTTP API,
// with optional MQTT announcements, an InfluxDB mirror and a Redis
// revocation list.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/telemetry-core/internal/api"
	"github.com/nerrad567/telemetry-core/internal/audit"
	"github.com/nerrad567/telemetry-core/internal/auth"
	"github.com/nerrad567/telemetry-core/internal/device"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/config"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/database"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/logging"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/redis"
	"github.com/nerrad567/telemetry-core/internal/telemetry"
	"github.com/nerrad567/telemetry-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// options are the command-line switches. With none set, run serves until
// the context is cancelled.
type options struct {
	migrateStatus bool
	migrateDown   bool
	out           io.Writer
}

func main() {
	opts := options{out: os.Stdout}
	flag.BoolVar(&opts.migrateStatus, "migrate-status", false, "print applied and pending migrations, then exit")
	flag.BoolVar(&opts.migrateDown, "migrate-down", false, "roll back the most recent migration, then exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application lifecycle, separated from main for testability.
// Resources are released in reverse order through defers.
func run(ctx context.Context, opts options) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting telemetry core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := config.PathFromEnv()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	defer log.Close() //nolint:errcheck // shutdown
	log.Info("configuration loaded", "path", configPath, "level", cfg.Logging.Level)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	switch {
	case opts.migrateStatus:
		return printMigrationStatus(ctx, db, opts.out)
	case opts.migrateDown:
		if downErr := db.MigrateDown(ctx, migrations.FS); downErr != nil {
			return fmt.Errorf("rolling back migration: %w", downErr)
		}
		log.Info("rolled back latest migration", "path", cfg.Database.Path)
		return nil
	}

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	checks := map[string]api.HealthChecker{"database": db}

	// Optional Redis revocation list; falls back to in-process.
	var revocations auth.RevocationStore
	redisClient, err := redis.Connect(cfg.Redis)
	switch {
	case errors.Is(err, redis.ErrDisabled):
		log.Info("redis disabled, using in-process revocation list")
	case err != nil:
		return fmt.Errorf("connecting to redis: %w", err)
	default:
		defer func() {
			log.Info("closing redis")
			if closeErr := redisClient.Close(); closeErr != nil {
				log.Error("error closing redis", "error", closeErr)
			}
		}()
		revocations = auth.NewRedisRevocationStore(redisClient, redisClient.KeyPrefix())
		checks["redis"] = redisClient
		log.Info("redis connected", "addr", cfg.Redis.Addr)
	}

	authSvc := auth.NewService(auth.ServiceConfig{
		Users: auth.NewUserRepository(db.DB),
		Hasher: auth.NewArgon2Hasher(auth.Argon2Params{
			Time:    cfg.Security.Passwords.Argon2.Time,
			Memory:  cfg.Security.Passwords.Argon2.Memory,
			Threads: cfg.Security.Passwords.Argon2.Threads,
		}),
		Issuer:            auth.NewJWTIssuer(cfg.Security.JWT.Secret, cfg.AccessTokenTTL(), cfg.Security.JWT.Issuer),
		Revocations:       revocations,
		MinPasswordLength: cfg.Security.Passwords.MinLength,
	})
	authSvc.SetLogger(log)

	if _, seedErr := authSvc.SeedOwner(ctx, cfg.Security.SeedOwner.Username); seedErr != nil {
		return fmt.Errorf("seeding owner account: %w", seedErr)
	}

	registry := device.NewRegistry(device.NewSQLiteRepository(db.DB), authSvc)
	registry.SetLogger(log)

	ingest := telemetry.NewService(telemetry.NewSQLiteRepository(db.DB))
	ingest.SetLogger(log)

	auditSvc := audit.NewService(audit.NewSQLiteRepository(db.DB))
	auditSvc.SetLogger(log)

	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		registry.SetPublisher(mqttClient)
		ingest.SetPublisher(mqttClient)
		checks["mqtt"] = mqttClient
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	influxClient, err := influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB mirror disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		ingest.SetMirror(influxClient)
		checks["influxdb"] = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	}

	server, err := api.New(api.Deps{
		Config:    cfg.API,
		Logger:    log,
		Auth:      authSvc,
		Devices:   registry,
		Telemetry: ingest,
		Audit:     auditSvc,
		Checks:    checks,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// printMigrationStatus writes one line per migration: applied ones with
// their timestamp, then pending ones with their name.
func printMigrationStatus(ctx context.Context, db *database.DB, w io.Writer) error {
	applied, pending, err := db.MigrationStatus(ctx, migrations.FS)
	if err != nil {
		return fmt.Errorf("reading migration status: %w", err)
	}
	if w == nil {
		w = io.Discard
	}
	for _, m := range applied {
		fmt.Fprintf(w, "applied  %s  %s\n", m.Version, m.AppliedAt.Format(time.RFC3339))
	}
	for _, m := range pending {
		fmt.Fprintf(w, "pending  %s  %s\n", m.Version, m.Name)
	}
	return nil
}

// healthCheck probes every dependency once at startup.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	for name, c := range checks {
		if err := c.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
