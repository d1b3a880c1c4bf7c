// AngelaMos | 2026
// mixpanel_test.go

package analytics

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capture struct {
	mu     sync.Mutex
	events []mixpanelEvent
	paths  []string
}

func (c *capture) handler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body) //nolint:errcheck

		var batch []mixpanelEvent
		_ = json.Unmarshal(raw, &batch) //nolint:errcheck

		c.mu.Lock()
		c.events = append(c.events, batch...)
		c.paths = append(c.paths, r.URL.RequestURI())
		c.mu.Unlock()

		w.WriteHeader(status)
		_, _ = io.WriteString(w, body) //nolint:errcheck
	}
}

func closeWithin(t *testing.T, m *Mixpanel) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Close(ctx))
}

func TestMixpanelDeliversEvent(t *testing.T) {
	c := &capture{}
	srv := httptest.NewServer(c.handler(http.StatusOK, `{"status":1,"error":null}`))
	defer srv.Close()

	m := NewMixpanel(MixpanelConfig{Token: "tok", APIURL: srv.URL + "/"})
	m.now = func() time.Time { return time.UnixMilli(1700000000123) }

	m.Track(context.Background(), EventPromoCodeSuccess, 77, Properties{"promo_code": "FREE30"})
	closeWithin(t, m)

	c.mu.Lock()
	defer c.mu.Unlock()

	require.Len(t, c.events, 1)
	assert.Equal(t, "/track?verbose=1", c.paths[0])

	evt := c.events[0]
	assert.Equal(t, EventPromoCodeSuccess, evt.Event)
	assert.Equal(t, "tok", evt.Properties["token"])
	assert.Equal(t, "77", evt.Properties["distinct_id"])
	assert.Equal(t, "77", evt.Properties["$user_id"])
	assert.Equal(t, "FREE30", evt.Properties["promo_code"])
	assert.InDelta(t, 1700000000123, evt.Properties["time"], 0)
	assert.NotEmpty(t, evt.Properties["$insert_id"])
}

func TestMixpanelSwallowsFailures(t *testing.T) {
	c := &capture{}
	srv := httptest.NewServer(c.handler(http.StatusInternalServerError, `boom`))
	defer srv.Close()

	m := NewMixpanel(MixpanelConfig{Token: "tok", APIURL: srv.URL})

	assert.NotPanics(t, func() {
		m.Track(context.Background(), EventErrorOccurred, 1, nil)
		m.Track(context.Background(), EventErrorOccurred, 2, nil)
	})
	closeWithin(t, m)

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Len(t, c.events, 2)
}

func TestMixpanelRejectedVerboseStatus(t *testing.T) {
	c := &capture{}
	srv := httptest.NewServer(c.handler(http.StatusOK, `{"status":0,"error":"token invalid"}`))
	defer srv.Close()

	m := NewMixpanel(MixpanelConfig{Token: "bad", APIURL: srv.URL})
	err := m.deliver(mixpanelEvent{Event: "x", Properties: map[string]any{}})
	assert.ErrorContains(t, err, "token invalid")
	closeWithin(t, m)
}

func TestMixpanelTrackAfterClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	m := NewMixpanel(MixpanelConfig{APIURL: srv.URL})
	closeWithin(t, m)

	assert.NotPanics(t, func() {
		m.Track(context.Background(), EventCommandUsed, 1, nil)
	})
	closeWithin(t, m)
}

func TestMixpanelDropsWhenQueueFull(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()

	m := NewMixpanel(MixpanelConfig{APIURL: srv.URL, QueueSize: 1})

	done := make(chan struct{})
	go func() {
		for i := range 10 {
			m.Track(context.Background(), EventMessageReceived, int64(i), nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Track blocked on a full queue")
	}

	close(release)
	closeWithin(t, m)
}

func TestNoopSink(t *testing.T) {
	var s Sink = Noop{}
	assert.NotPanics(t, func() { s.Track(context.Background(), "x", 1, nil) })
}
