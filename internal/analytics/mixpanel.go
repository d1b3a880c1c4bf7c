// AngelaMos | 2026
// mixpanel.go

package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultQueueSize = 1024
	deliveryTimeout  = 10 * time.Second
)

type MixpanelConfig struct {
	Token      string
	APIURL     string
	QueueSize  int
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type mixpanelEvent struct {
	Event      string         `json:"event"`
	Properties map[string]any `json:"properties"`
}

// Mixpanel queues events and delivers them from a single background
// goroutine. A full queue drops the event.
type Mixpanel struct {
	token    string
	trackURL string
	client   *http.Client
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan mixpanelEvent
	done   chan struct{}
}

func NewMixpanel(cfg MixpanelConfig) *Mixpanel {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: deliveryTimeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	m := &Mixpanel{
		token:    cfg.Token,
		trackURL: strings.TrimRight(cfg.APIURL, "/") + "/track?verbose=1",
		client:   cfg.HTTPClient,
		logger:   cfg.Logger,
		now:      time.Now,
		queue:    make(chan mixpanelEvent, cfg.QueueSize),
		done:     make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *Mixpanel) Track(
	_ context.Context,
	event string,
	userID int64,
	props Properties,
) {
	distinctID := strconv.FormatInt(userID, 10)

	properties := make(map[string]any, len(props)+5)
	for k, v := range props {
		properties[k] = v
	}
	properties["token"] = m.token
	properties["distinct_id"] = distinctID
	properties["$user_id"] = distinctID
	properties["$insert_id"] = uuid.NewString()
	properties["time"] = m.now().UnixMilli()

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return
	}

	select {
	case m.queue <- mixpanelEvent{Event: event, Properties: properties}:
	default:
		m.logger.Warn("analytics queue full, dropping event", "event", event)
	}
}

func (m *Mixpanel) run() {
	defer close(m.done)
	for evt := range m.queue {
		if err := m.deliver(evt); err != nil {
			m.logger.Warn("mixpanel delivery failed",
				"event", evt.Event,
				"error", err,
			)
		}
	}
}

func (m *Mixpanel) deliver(evt mixpanelEvent) error {
	body, err := json.Marshal([]mixpanelEvent{evt})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.trackURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("send event: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096)) //nolint:errcheck // diagnostics only
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("mixpanel status %d: %s", resp.StatusCode, respBody)
	}

	var verbose struct {
		Status int    `json:"status"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(respBody, &verbose); err == nil && verbose.Status != 1 {
		return fmt.Errorf("mixpanel rejected event: %s", verbose.Error)
	}

	return nil
}

// Close stops accepting events and waits for the queue to drain or ctx to
// expire.
func (m *Mixpanel) Close(ctx context.Context) error {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.queue)
	}
	m.mu.Unlock()

	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ Sink = (*Mixpanel)(nil)
