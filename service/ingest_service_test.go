package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"enip/events"
	"enip/models"
	"enip/waypoint"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type ingestMocks struct {
	factory  *MockUnitOfWorkFactory
	uow      *MockUnitOfWork
	runs     *MockIngestRunRepository
	results  *MockResultRepository
	calls    *MockCallRepository
	comments *MockCommentRepository
	bus      *MockEventPublisher
	feed     *MockFeedClient
}

func newIngestMocks() *ingestMocks {
	m := &ingestMocks{
		factory:  new(MockUnitOfWorkFactory),
		uow:      new(MockUnitOfWork),
		runs:     new(MockIngestRunRepository),
		results:  new(MockResultRepository),
		calls:    new(MockCallRepository),
		comments: new(MockCommentRepository),
		bus:      new(MockEventPublisher),
		feed:     new(MockFeedClient),
	}
	m.uow.SetRepositories(m.runs, m.results, m.calls, m.comments, m.bus)
	m.factory.On("Create").Return(m.uow)
	return m
}

func testScheduler(t *testing.T) *waypoint.Scheduler {
	s, err := waypoint.NewScheduler([]waypoint.Interval{
		{Name: "15m", Duration: 15 * time.Minute},
		{Name: "30m", Duration: 30 * time.Minute},
	})
	require.NoError(t, err)
	return s
}

func feedSnapshot() []models.ResultRecord {
	return []models.ResultRecord{
		{ElexID: "US-Dem", StatePostal: "US", Level: models.LevelNational, OfficeID: models.OfficePresident, Party: "Dem", VoteCount: 100},
		{ElexID: "PA-Dem", StatePostal: "PA", Level: models.LevelState, OfficeID: models.OfficePresident, Party: "Dem", VoteCount: 60, Winner: true},
		{ElexID: "PA-GOP", StatePostal: "PA", Level: models.LevelState, OfficeID: models.OfficePresident, Party: "GOP", VoteCount: 40},
		{ElexID: "PA-c-Dem", StatePostal: "PA", FIPSCode: "42001", Level: models.LevelCounty, OfficeID: models.OfficePresident, Party: "Dem", VoteCount: 6},
	}
}

func TestIngestService_FirstRunPersists(t *testing.T) {
	ctx := context.Background()
	m := newIngestMocks()
	now := time.Date(2020, 11, 4, 2, 7, 0, 0, time.UTC)

	m.feed.On("Fetch", ctx).Return(feedSnapshot(), nil)
	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Commit").Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.runs.On("LatestWaypoints", ctx).Return(map[string]time.Time{}, nil)
	m.runs.On("Create", ctx, mock.MatchedBy(func(run *models.IngestRun) bool {
		return run.IngestDT.Equal(now) && len(run.Waypoints) == 2
	}), []string{"15m", "30m"}).Run(func(args mock.Arguments) {
		args.Get(1).(*models.IngestRun).ID = 42
	}).Return(nil)
	m.results.On("Insert", ctx, mock.MatchedBy(func(records []models.ResultRecord) bool {
		for _, r := range records {
			if r.Level == models.LevelCounty || r.IngestID != 42 {
				return false
			}
		}
		return len(records) == 3
	})).Return(int64(3), nil)
	m.calls.On("List", ctx).Return([]models.Call{}, nil)
	m.calls.On("Upsert", ctx, mock.MatchedBy(func(u []models.CallUpdate) bool {
		return len(u) == 1 && u[0].State == "PA" && *u[0].Party == models.PartyDem
	}), now).Return(int64(1), nil)
	m.bus.On("Publish", mock.AnythingOfType("events.CallChangedEvent")).Return()
	m.bus.On("Publish", mock.MatchedBy(func(e events.Event) bool {
		done, ok := e.(events.IngestCompletedEvent)
		return ok && done.IngestID == 42 && done.Persisted && done.Records == 4 &&
			assert.ObjectsAreEqual([]string{"15m", "30m"}, done.Waypoints)
	})).Return()

	svc := NewIngestService(m.factory, m.feed, testScheduler(t), []models.Level{models.LevelNational, models.LevelState, models.LevelDistrict})
	svc.now = func() time.Time { return now }

	result, err := svc.Ingest(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.Run.ID)
	assert.Equal(t, int64(3), result.Persisted)
	assert.Equal(t, 1, result.CallsChanged)
	assert.Len(t, result.Records, 4)
	assert.True(t, result.Decision.Persist)

	m.results.AssertExpectations(t)
	m.calls.AssertExpectations(t)
	m.bus.AssertExpectations(t)
	m.uow.AssertCalled(t, "Commit")
}

func TestIngestService_SameWaypointSkipsPersist(t *testing.T) {
	ctx := context.Background()
	m := newIngestMocks()
	now := time.Date(2020, 11, 4, 2, 7, 0, 0, time.UTC)
	floor15 := time.Date(2020, 11, 4, 2, 0, 0, 0, time.UTC)

	m.feed.On("Fetch", ctx).Return(feedSnapshot(), nil)
	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Commit").Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.runs.On("LatestWaypoints", ctx).Return(map[string]time.Time{"15m": floor15, "30m": floor15}, nil)
	m.runs.On("Create", ctx, mock.MatchedBy(func(run *models.IngestRun) bool {
		return len(run.Waypoints) == 0
	}), []string(nil)).Run(func(args mock.Arguments) {
		args.Get(1).(*models.IngestRun).ID = 43
	}).Return(nil)
	m.calls.On("List", ctx).Return([]models.Call{
		{Office: models.OfficePresident, State: "PA", APCall: ptrParty(models.PartyDem)},
	}, nil)
	m.bus.On("Publish", mock.AnythingOfType("events.IngestCompletedEvent")).Return()

	svc := NewIngestService(m.factory, m.feed, testScheduler(t), []models.Level{models.LevelState})
	svc.now = func() time.Time { return now }

	result, err := svc.Ingest(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Persisted)
	assert.Zero(t, result.CallsChanged)
	assert.False(t, result.Decision.Persist)

	m.results.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	m.calls.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestService_LostWaypointSkipsPersist(t *testing.T) {
	ctx := context.Background()
	m := newIngestMocks()
	now := time.Date(2020, 11, 4, 2, 7, 0, 0, time.UTC)

	m.feed.On("Fetch", ctx).Return(feedSnapshot(), nil)
	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Commit").Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.runs.On("LatestWaypoints", ctx).Return(map[string]time.Time{}, nil)
	// A concurrent run claimed the 15m waypoint first, so the coarser claims were skipped
	m.runs.On("Create", ctx, mock.Anything, []string{"15m", "30m"}).Run(func(args mock.Arguments) {
		run := args.Get(1).(*models.IngestRun)
		run.ID = 44
		delete(run.Waypoints, "15m")
		delete(run.Waypoints, "30m")
	}).Return(nil)
	m.calls.On("List", ctx).Return([]models.Call{
		{Office: models.OfficePresident, State: "PA", APCall: ptrParty(models.PartyDem)},
	}, nil)
	m.bus.On("Publish", mock.MatchedBy(func(e events.Event) bool {
		done, ok := e.(events.IngestCompletedEvent)
		return ok && !done.Persisted && len(done.Waypoints) == 0
	})).Return()

	svc := NewIngestService(m.factory, m.feed, testScheduler(t), []models.Level{models.LevelState})
	svc.now = func() time.Time { return now }

	result, err := svc.Ingest(ctx)
	require.NoError(t, err)
	assert.True(t, result.Decision.Persist)
	assert.Zero(t, result.Persisted)
	m.results.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	m.bus.AssertExpectations(t)
}

func TestIngestService_FeedError(t *testing.T) {
	ctx := context.Background()
	m := newIngestMocks()
	m.feed.On("Fetch", ctx).Return(nil, errors.New("feed down"))

	svc := NewIngestService(m.factory, m.feed, testScheduler(t), nil)

	result, err := svc.Ingest(ctx)
	assert.Nil(t, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feed down")
	m.factory.AssertNotCalled(t, "Create")
}

func TestIngestService_BadDistrictRollsBack(t *testing.T) {
	ctx := context.Background()
	m := newIngestMocks()

	records := append(feedSnapshot(), models.ResultRecord{
		ElexID: "ME-9", StatePostal: "ME", Level: models.LevelDistrict, ReportingUnitName: "District 9",
		OfficeID: models.OfficePresident, Party: "Dem",
	})
	m.feed.On("Fetch", ctx).Return(records, nil)
	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.runs.On("LatestWaypoints", ctx).Return(map[string]time.Time{}, nil)
	m.runs.On("Create", ctx, mock.Anything, mock.Anything).Return(nil)
	m.results.On("Insert", ctx, mock.Anything).Return(int64(0), nil)

	svc := NewIngestService(m.factory, m.feed, testScheduler(t), []models.Level{models.LevelState})

	_, err := svc.Ingest(ctx)
	require.Error(t, err)
	m.uow.AssertNotCalled(t, "Commit")
	m.uow.AssertCalled(t, "Rollback")
}

func ptrParty(p models.Party) *models.Party {
	return &p
}
