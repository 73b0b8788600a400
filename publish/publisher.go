package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"enip/storage"

	"github.com/google/go-cmp/cmp"
	log "github.com/sirupsen/logrus"
)

// StampFormat names timestamped objects, e.g. national/20201104020000_12.json
const StampFormat = "20060102150405"

const quarantineRoot = "quarantine"

// Store is the object storage the publisher writes to
type Store interface {
	WriteJSON(ctx context.Context, key string, payload []byte, cacheControl string) error
	Read(ctx context.Context, key string) ([]byte, error)
}

// Document is one geography's aggregated tree ready to publish
type Document struct {
	// Path is the document's directory, "national" or "states/<code>".
	Path    string
	Payload any
	Schema  *Schema
	RunID   int64
	RunDT   time.Time
	// Stamp prefixes the timestamped object name. Empty uses the current time.
	Stamp string
}

// Result reports what a publish did
type Result struct {
	Path       string
	ObjectPath string
	Changed    bool
	// URL is the public address of the document now referenced by latest.json.
	URL string
}

// Pointer is the content of a latest.json document
type Pointer struct {
	LastUpdated time.Time `json:"lastUpdated"`
	Path        string    `json:"path"`
	CDNURL      string    `json:"cdnUrl"`
}

type quarantined struct {
	Path     string          `json:"path"`
	Schema   string          `json:"schema"`
	RunID    int64           `json:"runId"`
	RunDT    time.Time       `json:"runDt"`
	Problems []string        `json:"problems"`
	Payload  json.RawMessage `json:"payload"`
}

// Publisher writes documents and moves their latest pointer when content changes
type Publisher struct {
	store  Store
	cdnURL string
	now    func() time.Time
}

// NewPublisher creates a publisher writing to store. cdnURL is the public base of the bucket.
func NewPublisher(store Store, cdnURL string) *Publisher {
	return &Publisher{
		store:  store,
		cdnURL: cdnURL,
		now:    time.Now,
	}
}

// Publish validates doc, writes it under a timestamped name and repoints
// <path>/latest.json at it when it differs from the previously published payload.
func (p *Publisher) Publish(ctx context.Context, doc Document) (*Result, error) {
	payload, err := json.Marshal(doc.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", doc.Path, err)
	}

	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", doc.Path, err)
	}

	stamp := doc.Stamp
	if stamp == "" {
		stamp = p.now().UTC().Format(StampFormat)
	}
	name := fmt.Sprintf("%s/%s_%d.json", doc.Path, stamp, doc.RunID)

	if doc.Schema != nil {
		problems, err := doc.Schema.validate(decoded)
		if err != nil {
			return nil, err
		}
		if len(problems) > 0 {
			return nil, p.quarantine(ctx, doc, name, payload, problems)
		}
	}

	if err := p.store.WriteJSON(ctx, name, payload, storage.Cacheable); err != nil {
		return nil, err
	}

	latestName := doc.Path + "/latest.json"
	previous, err := p.latest(ctx, latestName)
	if err != nil {
		return nil, err
	}

	if previous != nil && cmp.Equal(previous.decoded, decoded) {
		log.WithFields(log.Fields{
			"path":   doc.Path,
			"object": name,
			"runId":  doc.RunID,
		}).Debug("Document unchanged")
		return &Result{Path: doc.Path, ObjectPath: name, Changed: false, URL: previous.pointer.CDNURL}, nil
	}

	pointer := Pointer{
		LastUpdated: doc.RunDT.UTC(),
		Path:        name,
		CDNURL:      p.url(name),
	}
	raw, err := json.Marshal(pointer)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pointer for %s: %w", doc.Path, err)
	}
	if err := p.store.WriteJSON(ctx, latestName, raw, storage.NonCacheable); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"path":   doc.Path,
		"object": name,
		"runId":  doc.RunID,
	}).Info("Published new document")

	return &Result{Path: doc.Path, ObjectPath: name, Changed: true, URL: pointer.CDNURL}, nil
}

type published struct {
	pointer Pointer
	decoded any
}

// latest returns the currently published payload, or nil when there is none.
// A pointer to a missing object counts as nothing published.
func (p *Publisher) latest(ctx context.Context, latestName string) (*published, error) {
	raw, err := p.store.Read(ctx, latestName)
	if err != nil || raw == nil {
		return nil, err
	}

	var pointer Pointer
	if err := json.Unmarshal(raw, &pointer); err != nil {
		log.WithError(err).WithField("key", latestName).Warn("Ignoring unreadable latest pointer")
		return nil, nil
	}

	body, err := p.store.Read(ctx, pointer.Path)
	if err != nil || body == nil {
		return nil, err
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		log.WithError(err).WithField("key", pointer.Path).Warn("Ignoring unreadable published document")
		return nil, nil
	}
	return &published{pointer: pointer, decoded: decoded}, nil
}

func (p *Publisher) quarantine(ctx context.Context, doc Document, name string, payload []byte, problems []string) error {
	qpath := quarantineRoot + "/" + name
	verr := &ValidationError{
		Path:           doc.Path,
		Schema:         doc.Schema.Name(),
		QuarantinePath: qpath,
		Problems:       problems,
	}

	raw, err := json.Marshal(quarantined{
		Path:     doc.Path,
		Schema:   doc.Schema.Name(),
		RunID:    doc.RunID,
		RunDT:    doc.RunDT.UTC(),
		Problems: problems,
		Payload:  payload,
	})
	if err != nil {
		return fmt.Errorf("%w (quarantine marshal failed: %v)", verr, err)
	}
	if err := p.store.WriteJSON(ctx, qpath, raw, storage.NonCacheable); err != nil {
		return fmt.Errorf("%w (quarantine write failed: %v)", verr, err)
	}

	log.WithFields(log.Fields{
		"path":       doc.Path,
		"quarantine": qpath,
		"problems":   len(problems),
	}).Error("Document failed schema validation")

	return verr
}

func (p *Publisher) url(name string) string {
	if p.cdnURL == "" {
		return name
	}
	return p.cdnURL + "/" + name
}
