package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"enip/models"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

// APClient fetches results from the AP elections API
type APClient struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	electionDate string
	test         bool
	maxElapsed   time.Duration
}

// NewAPClient creates a client for the given election. test selects AP's test data.
func NewAPClient(baseURL, apiKey, electionDate string, test bool) *APClient {
	return &APClient{
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		electionDate: electionDate,
		test:         test,
		maxElapsed:   2 * time.Minute,
	}
}

// Fetch requests every presidential, senate and house result down to reporting
// units, retrying transient failures with exponential backoff
func (c *APClient) Fetch(ctx context.Context) ([]models.ResultRecord, error) {
	endpoint, err := c.endpoint()
	if err != nil {
		return nil, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxElapsedTime = c.maxElapsed

	attempt := 0
	operation := func() ([]models.ResultRecord, error) {
		attempt++
		return c.fetchOnce(ctx, endpoint)
	}
	notify := func(err error, wait time.Duration) {
		log.WithFields(log.Fields{
			"attempt": attempt,
			"wait":    wait,
		}).WithError(err).Warn("Results feed request failed, retrying")
	}

	records, err := backoff.RetryNotifyWithData(operation, backoff.WithContext(b, ctx), notify)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"records":  len(records),
		"attempts": attempt,
		"test":     c.test,
	}).Info("Fetched results feed")
	return records, nil
}

func (c *APClient) endpoint() (string, error) {
	u, err := url.Parse(c.baseURL + "/" + c.electionDate)
	if err != nil {
		return "", fmt.Errorf("invalid results feed URL: %w", err)
	}

	offices := make([]string, len(models.AllOffices))
	for i, o := range models.AllOffices {
		offices[i] = string(o)
	}

	q := u.Query()
	q.Set("format", "json")
	q.Set("level", "ru")
	q.Set("officeID", strings.Join(offices, ","))
	q.Set("setzerocounts", "false")
	if c.test {
		q.Set("test", "true")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *APClient) fetchOnce(ctx context.Context, endpoint string) ([]models.ResultRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("results feed returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
		// Client errors other than rate limiting will not fix themselves
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	records, err := Decode(resp.Body)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	return records, nil
}

// FileClient replays a recorded AP response from disk
type FileClient struct {
	path string
}

func NewFileClient(path string) *FileClient {
	return &FileClient{path: path}
}

func (c *FileClient) Fetch(ctx context.Context) ([]models.ResultRecord, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recorded feed: %w", err)
	}
	defer f.Close()

	records, err := Decode(f)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"file":    c.path,
		"records": len(records),
	}).Info("Loaded recorded results feed")
	return records, nil
}
