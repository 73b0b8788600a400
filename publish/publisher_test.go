package publish

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"enip/aggregate"
	"enip/models"
	"enip/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"
)

// countingStore counts writes per key on top of an in-memory bucket
type countingStore struct {
	*storage.Store
	writes map[string]*atomic.Int32
}

func newCountingStore(t *testing.T) *countingStore {
	s := storage.New(memblob.OpenBucket(nil), "")
	t.Cleanup(func() { s.Close() })
	return &countingStore{Store: s, writes: map[string]*atomic.Int32{}}
}

func (c *countingStore) WriteJSON(ctx context.Context, key string, payload []byte, cacheControl string) error {
	if c.writes[key] == nil {
		c.writes[key] = &atomic.Int32{}
	}
	c.writes[key].Add(1)
	return c.Store.WriteJSON(ctx, key, payload, cacheControl)
}

func (c *countingStore) count(key string) int {
	if c.writes[key] == nil {
		return 0
	}
	return int(c.writes[key].Load())
}

func stateRecord(state, party string, votes int64, pct float64) models.ResultRecord {
	return models.ResultRecord{
		IngestID:    7,
		ElexID:      state + "-" + party,
		StatePostal: state,
		Level:       models.LevelState,
		OfficeID:    models.OfficePresident,
		Party:       party,
		First:       "First",
		Last:        party,
		ElectTotal:  20,
		VoteCount:   votes,
		VotePct:     pct,
	}
}

func nationalDoc(t *testing.T, demVotes int64) *aggregate.NationalData {
	data, err := aggregate.BuildNational([]models.ResultRecord{
		stateRecord("PA", "Dem", demVotes, 0.5),
		stateRecord("PA", "GOP", 90, 0.45),
		stateRecord("PA", "Lib", 10, 0.05),
	}, nil, nil, nil)
	require.NoError(t, err)
	return data
}

func TestPublisher_Publish(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore(t)
	pub := NewPublisher(store, "https://cdn.example.test")
	schema := MustLoadSchema(NationalSchema)
	runDT := time.Date(2020, 11, 4, 2, 0, 0, 0, time.UTC)

	doc := Document{
		Path:    "national",
		Payload: nationalDoc(t, 100),
		Schema:  schema,
		RunID:   7,
		RunDT:   runDT,
		Stamp:   "20201104020000",
	}

	t.Run("first publish moves latest", func(t *testing.T) {
		res, err := pub.Publish(ctx, doc)
		require.NoError(t, err)
		assert.True(t, res.Changed)
		assert.Equal(t, "national/20201104020000_7.json", res.ObjectPath)
		assert.Equal(t, "https://cdn.example.test/national/20201104020000_7.json", res.URL)
		assert.Equal(t, 1, store.count("national/latest.json"))

		raw, err := store.Read(ctx, "national/latest.json")
		require.NoError(t, err)
		var ptr Pointer
		require.NoError(t, json.Unmarshal(raw, &ptr))
		assert.Equal(t, res.ObjectPath, ptr.Path)
		assert.Equal(t, res.URL, ptr.CDNURL)
		assert.True(t, runDT.Equal(ptr.LastUpdated))

		attrs, err := store.Attributes(ctx, "national/latest.json")
		require.NoError(t, err)
		assert.Equal(t, storage.NonCacheable, attrs.CacheControl)
		attrs, err = store.Attributes(ctx, res.ObjectPath)
		require.NoError(t, err)
		assert.Equal(t, storage.Cacheable, attrs.CacheControl)
	})

	t.Run("identical input leaves latest untouched", func(t *testing.T) {
		again := doc
		again.Payload = nationalDoc(t, 100)
		again.RunID = 8
		again.Stamp = "20201104020100"

		res, err := pub.Publish(ctx, again)
		require.NoError(t, err)
		assert.False(t, res.Changed)
		assert.Equal(t, "https://cdn.example.test/national/20201104020000_7.json", res.URL)
		assert.Equal(t, 1, store.count("national/latest.json"))
		assert.Equal(t, 1, store.count("national/20201104020100_8.json"))
	})

	t.Run("changed input moves latest again", func(t *testing.T) {
		changed := doc
		changed.Payload = nationalDoc(t, 101)
		changed.RunID = 9
		changed.Stamp = "20201104020200"

		res, err := pub.Publish(ctx, changed)
		require.NoError(t, err)
		assert.True(t, res.Changed)
		assert.Equal(t, 2, store.count("national/latest.json"))
	})
}

func TestPublisher_FormattingIsIgnored(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore(t)
	pub := NewPublisher(store, "")

	require.NoError(t, store.WriteJSON(ctx, "states/PA/old.json", []byte(`{ "b": [1, 2],   "a": 1 }`), storage.Cacheable))
	require.NoError(t, store.WriteJSON(ctx, "states/PA/latest.json", []byte(`{"lastUpdated":"2020-11-04T00:00:00Z","path":"states/PA/old.json","cdnUrl":"states/PA/old.json"}`), storage.NonCacheable))

	res, err := pub.Publish(ctx, Document{
		Path:    "states/PA",
		Payload: map[string]any{"a": 1, "b": []int{1, 2}},
		RunID:   1,
		Stamp:   "20201104000100",
	})
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, "states/PA/old.json", res.URL)
	assert.Equal(t, 1, store.count("states/PA/latest.json"))
}

func TestPublisher_DanglingPointerRepublishes(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore(t)
	pub := NewPublisher(store, "")

	require.NoError(t, store.WriteJSON(ctx, "national/latest.json", []byte(`{"path":"national/gone.json"}`), storage.NonCacheable))

	res, err := pub.Publish(ctx, Document{Path: "national", Payload: map[string]int{"a": 1}, RunID: 2})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.True(t, strings.HasPrefix(res.ObjectPath, "national/"))
	assert.True(t, strings.HasSuffix(res.ObjectPath, "_2.json"))
}

func TestPublisher_Quarantine(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore(t)
	pub := NewPublisher(store, "")

	res, err := pub.Publish(ctx, Document{
		Path:    "states/PA",
		Payload: map[string]any{"counties": map[string]any{"42001": map[string]any{"P": "not a race"}}},
		Schema:  MustLoadSchema(StateSchema),
		RunID:   3,
		Stamp:   "20201104030000",
	})
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaValidation))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "quarantine/states/PA/20201104030000_3.json", verr.QuarantinePath)
	assert.NotEmpty(t, verr.Problems)

	raw, err := store.Read(ctx, verr.QuarantinePath)
	require.NoError(t, err)
	require.NotNil(t, raw)
	var q map[string]any
	require.NoError(t, json.Unmarshal(raw, &q))
	assert.Equal(t, "states/PA", q["path"])
	assert.NotNil(t, q["payload"])

	assert.Zero(t, store.count("states/PA/latest.json"))
	assert.Zero(t, store.count("states/PA/20201104030000_3.json"))
}
