package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"enip/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	messages [][]byte
	err      error
}

func (p *recordingPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.subjects = append(p.subjects, subject)
	p.messages = append(p.messages, data)
	return nil
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "enip.documents.national", Subject("national"))
	assert.Equal(t, "enip.documents.states.PA", Subject("states/PA"))
	assert.Equal(t, "enip.documents.states.NE-02", Subject("/states/NE-02/"))
	assert.Equal(t, "enip.documents.a_b", Subject("a.b"))
	assert.Equal(t, "enip.documents", Subject(""))
}

func TestForwarder_Forward(t *testing.T) {
	t.Run("wraps the event in an envelope", func(t *testing.T) {
		pub := &recordingPublisher{}
		f := NewForwarder(pub)

		event := events.DocumentPublishedEvent{
			IngestID:    7,
			Path:        "states/PA",
			ObjectPath:  "states/PA/20201103230000_7.json",
			URL:         "https://cdn.example.test/states/PA/20201103230000_7.json",
			LastUpdated: time.Date(2020, 11, 3, 23, 0, 0, 0, time.UTC),
		}
		require.NoError(t, f.Forward(context.Background(), event))

		require.Len(t, pub.subjects, 1)
		assert.Equal(t, "enip.documents.states.PA", pub.subjects[0])

		var envelope Envelope
		require.NoError(t, json.Unmarshal(pub.messages[0], &envelope))
		assert.Equal(t, "document_published", envelope.EventType)
		assert.Equal(t, "enip", envelope.SourceService)
		_, err := uuid.Parse(envelope.EventID)
		assert.NoError(t, err)

		var payload events.DocumentPublishedEvent
		require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
		assert.Equal(t, event, payload)
	})

	t.Run("returns publisher errors", func(t *testing.T) {
		pub := &recordingPublisher{err: errors.New("no responders")}
		f := NewForwarder(pub)

		err := f.Forward(context.Background(), events.DocumentPublishedEvent{Path: "national"})
		assert.Error(t, err)
	})
}

func TestForwarder_Register(t *testing.T) {
	pub := &recordingPublisher{}
	bus := events.NewBus()
	NewForwarder(pub).Register(bus)

	bus.Emit(context.Background(), events.DocumentPublishedEvent{IngestID: 1, Path: "national"})
	bus.Emit(context.Background(), events.ExportCompletedEvent{IngestID: 1})
	bus.Wait()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Equal(t, []string{"enip.documents.national"}, pub.subjects)
}
