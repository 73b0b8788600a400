package service

import (
	"context"
	"time"

	"enip/aggregate"
	"enip/events"
	"enip/models"
	"enip/publish"

	"github.com/stretchr/testify/mock"
)

// MockIngestRunRepository is a mock implementation of IngestRunRepository
type MockIngestRunRepository struct {
	mock.Mock
}

func (m *MockIngestRunRepository) Create(ctx context.Context, run *models.IngestRun, claimOrder []string) error {
	args := m.Called(ctx, run, claimOrder)
	return args.Error(0)
}

func (m *MockIngestRunRepository) GetByID(ctx context.Context, id int64) (*models.IngestRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IngestRun), args.Error(1)
}

func (m *MockIngestRunRepository) GetLatest(ctx context.Context) (*models.IngestRun, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IngestRun), args.Error(1)
}

func (m *MockIngestRunRepository) LatestWaypoints(ctx context.Context) (map[string]time.Time, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]time.Time), args.Error(1)
}

func (m *MockIngestRunRepository) ListWithWaypoint(ctx context.Context, interval string, from, to time.Time) ([]*models.IngestRun, error) {
	args := m.Called(ctx, interval, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.IngestRun), args.Error(1)
}

// MockResultRepository is a mock implementation of ResultRepository
type MockResultRepository struct {
	mock.Mock
}

func (m *MockResultRepository) Insert(ctx context.Context, records []models.ResultRecord) (int64, error) {
	args := m.Called(ctx, records)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockResultRepository) LoadForRun(ctx context.Context, ingestID int64, filter ResultFilter) ([]models.ResultRecord, error) {
	args := m.Called(ctx, ingestID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ResultRecord), args.Error(1)
}

func (m *MockResultRepository) LoadHistoricals(ctx context.Context, before time.Time, interval string, filter ResultFilter) (aggregate.Historicals, error) {
	args := m.Called(ctx, before, interval, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(aggregate.Historicals), args.Error(1)
}

func (m *MockResultRepository) States(ctx context.Context, ingestID int64, level models.Level) ([]string, error) {
	args := m.Called(ctx, ingestID, level)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockCallRepository is a mock implementation of CallRepository
type MockCallRepository struct {
	mock.Mock
}

func (m *MockCallRepository) List(ctx context.Context) ([]models.Call, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Call), args.Error(1)
}

func (m *MockCallRepository) Upsert(ctx context.Context, updates []models.CallUpdate, at time.Time) (int64, error) {
	args := m.Called(ctx, updates, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCallRepository) SetPublished(ctx context.Context, office models.Office, state string, published bool) (bool, error) {
	args := m.Called(ctx, office, state, published)
	return args.Bool(0), args.Error(1)
}

// MockCommentRepository is a mock implementation of CommentRepository
type MockCommentRepository struct {
	mock.Mock
}

func (m *MockCommentRepository) List(ctx context.Context) ([]models.Comment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Comment), args.Error(1)
}

func (m *MockCommentRepository) ReplaceAll(ctx context.Context, comments []models.Comment) error {
	args := m.Called(ctx, comments)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repository getters return
// whatever SetRepositories installed.
type MockUnitOfWork struct {
	mock.Mock
	ingestRuns IngestRunRepository
	results    ResultRepository
	calls      CallRepository
	comments   CommentRepository
	bus        EventPublisher
}

func (m *MockUnitOfWork) SetRepositories(ingestRuns IngestRunRepository, results ResultRepository, calls CallRepository, comments CommentRepository, bus EventPublisher) {
	m.ingestRuns = ingestRuns
	m.results = results
	m.calls = calls
	m.comments = comments
	m.bus = bus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) IngestRunRepository() IngestRunRepository { return m.ingestRuns }
func (m *MockUnitOfWork) ResultRepository() ResultRepository       { return m.results }
func (m *MockUnitOfWork) CallRepository() CallRepository           { return m.calls }
func (m *MockUnitOfWork) CommentRepository() CommentRepository     { return m.comments }
func (m *MockUnitOfWork) EventBus() EventPublisher                 { return m.bus }

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}

// MockFeedClient is a mock implementation of FeedClient
type MockFeedClient struct {
	mock.Mock
}

func (m *MockFeedClient) Fetch(ctx context.Context) ([]models.ResultRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ResultRecord), args.Error(1)
}

// MockPublisher is a mock implementation of Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, doc publish.Document) (*publish.Result, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*publish.Result), args.Error(1)
}

// MockReporter is a mock implementation of Reporter
type MockReporter struct {
	mock.Mock
}

func (m *MockReporter) Report(ctx context.Context, err error, tags map[string]string) {
	m.Called(ctx, err, tags)
}
