package cmd

import (
	"context"
	"fmt"
	"time"

	"enip/config"
	"enip/database"
	"enip/errtrack"
	"enip/events"
	"enip/feed"
	"enip/notify"
	"enip/publish"
	"enip/repository"
	"enip/service"
	"enip/storage"

	log "github.com/sirupsen/logrus"
)

// application holds the wired collaborators shared by the commands
type application struct {
	cfg        *config.Config
	db         *database.DB
	bus        *events.Bus
	uowFactory service.UnitOfWorkFactory
	store      *storage.Store
	reporter   *errtrack.Reporter
	nats       *notify.NATSClient

	runs *service.RunService
}

// newApplication connects to the database and, when publishing is needed, the
// object store and notification collaborators
func newApplication(ctx context.Context, publishing bool) (*application, error) {
	cfg := config.Get()
	app := &application{cfg: cfg, bus: events.NewBus()}

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL(), cfg.DatabaseMaxConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.db = db
	app.uowFactory = repository.NewUnitOfWorkFactory(db, app.bus)

	if !publishing {
		return app, nil
	}

	if err := app.wirePublishing(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *application) wirePublishing(ctx context.Context) error {
	cfg := a.cfg

	store, err := storage.Open(ctx, cfg.BlobURL, cfg.BlobPrefix)
	if err != nil {
		return err
	}
	a.store = store

	reporter, err := errtrack.New(cfg.SentryDSN, cfg.Environment)
	if err != nil {
		return err
	}
	a.reporter = reporter

	if cfg.NATSURL != "" {
		a.nats = notify.NewNATSClient(cfg.NATSURL)
		if err := a.nats.Connect(ctx); err != nil {
			return err
		}
		notify.NewForwarder(a.nats).Register(a.bus)
	} else {
		log.Info("NATS_URL not set, document notifications disabled")
	}

	scheduler, err := cfg.Scheduler()
	if err != nil {
		return err
	}

	var client service.FeedClient
	if cfg.FeedFile != "" {
		client = feed.NewFileClient(cfg.FeedFile)
	} else {
		client = feed.NewAPClient(cfg.APIURL, cfg.APIKey, cfg.ElectionDate, cfg.IngestTestData)
	}

	ingest := service.NewIngestService(a.uowFactory, client, scheduler, cfg.PersistLevels)
	export := service.NewExportService(
		a.uowFactory,
		publish.NewPublisher(store, cfg.CDNURL),
		reporter,
		a.bus,
		cfg.ExportWorkers,
		cfg.HistoryWaypoint,
	)
	a.runs = service.NewRunService(a.uowFactory, ingest, export, cfg.HistoryWaypoint)
	return nil
}

// Close waits for in-flight notifications and releases every connection
func (a *application) Close() {
	a.bus.Wait()

	if a.reporter != nil {
		a.reporter.Flush(5 * time.Second)
	}
	if a.nats != nil {
		if err := a.nats.Close(); err != nil {
			log.WithError(err).Error("Error closing NATS connection")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.WithError(err).Error("Error closing object store")
		}
	}
	if a.db != nil {
		log.Info("Closing database connection...")
		a.db.Close()
	}
}
