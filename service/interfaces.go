package service

import (
	"context"
	"time"

	"enip/aggregate"
	"enip/events"
	"enip/models"
	"enip/publish"
)

// ResultFilter narrows a result query to some levels and optionally one state
type ResultFilter struct {
	Levels []models.Level
	State  string // empty matches every state
}

// IngestRunRepository defines the interface for ingest run data access
type IngestRunRepository interface {
	// Create inserts the run and claims its waypoints in claimOrder; lost waypoints are removed from run.Waypoints
	Create(ctx context.Context, run *models.IngestRun, claimOrder []string) error

	// GetByID retrieves a run with its waypoints
	GetByID(ctx context.Context, id int64) (*models.IngestRun, error)

	// GetLatest returns the most recent run
	GetLatest(ctx context.Context) (*models.IngestRun, error)

	// LatestWaypoints returns the most recent waypoint recorded for each interval
	LatestWaypoints(ctx context.Context) (map[string]time.Time, error)

	// ListWithWaypoint returns runs that reached a waypoint of interval within [from, to]
	ListWithWaypoint(ctx context.Context, interval string, from, to time.Time) ([]*models.IngestRun, error)
}

// ResultRepository defines the interface for raw result access
type ResultRepository interface {
	// Insert bulk-copies records
	Insert(ctx context.Context, records []models.ResultRecord) (int64, error)

	// LoadForRun returns one run's records matching filter
	LoadForRun(ctx context.Context, ingestID int64, filter ResultFilter) ([]models.ResultRecord, error)

	// LoadHistoricals returns the compacted vote count series of runs before the given time
	LoadHistoricals(ctx context.Context, before time.Time, interval string, filter ResultFilter) (aggregate.Historicals, error)

	// States lists the states holding records of a level in one run
	States(ctx context.Context, ingestID int64, level models.Level) ([]string, error)
}

// CallRepository defines the interface for the call register
type CallRepository interface {
	List(ctx context.Context) ([]models.Call, error)

	// Upsert writes only calls whose party changed; returns rows written
	Upsert(ctx context.Context, updates []models.CallUpdate, at time.Time) (int64, error)

	// SetPublished sets the editor flag; false when no register entry exists
	SetPublished(ctx context.Context, office models.Office, state string, published bool) (bool, error)
}

// CommentRepository defines the interface for editorial comments
type CommentRepository interface {
	List(ctx context.Context) ([]models.Comment, error)
	ReplaceAll(ctx context.Context, comments []models.Comment) error
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes queued events
	Commit() error

	// Rollback rolls back the transaction and drops queued events
	Rollback() error

	// Repository getters
	IngestRunRepository() IngestRunRepository
	ResultRepository() ResultRepository
	CallRepository() CallRepository
	CommentRepository() CommentRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// FeedClient fetches the complete current record set from the results feed
type FeedClient interface {
	Fetch(ctx context.Context) ([]models.ResultRecord, error)
}

// Publisher validates a document and moves its latest pointer when the content changed
type Publisher interface {
	Publish(ctx context.Context, doc publish.Document) (*publish.Result, error)
}

// Reporter sends export failures to an error tracker
type Reporter interface {
	Report(ctx context.Context, err error, tags map[string]string)
}
