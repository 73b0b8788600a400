package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"enip/events"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// SubjectPrefix roots every document notification subject
const SubjectPrefix = "enip.documents"

// MessagePublisher sends raw payloads to a subject
type MessagePublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Envelope wraps every forwarded event
type Envelope struct {
	EventID       string          `json:"eventId"`
	EventType     string          `json:"eventType"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"sourceService"`
	Payload       json.RawMessage `json:"payload"`
}

// Forwarder relays published documents from the in-process bus to NATS
type Forwarder struct {
	publisher MessagePublisher
	timeout   time.Duration
}

func NewForwarder(publisher MessagePublisher) *Forwarder {
	return &Forwarder{publisher: publisher, timeout: 10 * time.Second}
}

// Register subscribes the forwarder to document events on bus
func (f *Forwarder) Register(bus *events.Bus) {
	bus.Subscribe(events.EventTypeDocumentPublished, f.handle)
}

func (f *Forwarder) handle(ctx context.Context, event events.Event) {
	published, ok := event.(events.DocumentPublishedEvent)
	if !ok {
		return
	}

	// The emitting export may already be done with its context
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
	defer cancel()

	if err := f.Forward(ctx, published); err != nil {
		log.WithFields(log.Fields{
			"path":     published.Path,
			"ingestId": published.IngestID,
		}).WithError(err).Error("Failed to forward document notification")
	}
}

// Forward publishes one document notification
func (f *Forwarder) Forward(ctx context.Context, event events.DocumentPublishedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := Envelope{
		EventID:       uuid.New().String(),
		EventType:     string(event.Type()),
		Timestamp:     time.Now().UTC(),
		SourceService: "enip",
		Payload:       payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	subject := Subject(event.Path)
	if err := f.publisher.Publish(ctx, subject, data); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"subject": subject,
		"eventId": envelope.EventID,
	}).Debug("Forwarded document notification")
	return nil
}

// Subject maps a document path such as states/PA onto enip.documents.states.PA
func Subject(path string) string {
	var tokens []string
	for _, part := range strings.Split(path, "/") {
		part = strings.Map(func(r rune) rune {
			switch r {
			case '.', '*', '>', ' ':
				return '_'
			}
			return r
		}, part)
		if part != "" {
			tokens = append(tokens, part)
		}
	}
	if len(tokens) == 0 {
		return SubjectPrefix
	}
	return SubjectPrefix + "." + strings.Join(tokens, ".")
}
