package api

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mattjoyce/clitask/internal/events"
)

func TestEventsDisabledWithoutHub(t *testing.T) {
	s := newTestServer(t, testDeps{})
	rec := doRequest(t, s, http.MethodGet, "/events", adminKey, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestEventsStreamReplaysAndFollows(t *testing.T) {
	hub := events.NewHub(16)
	hub.Publish(events.TypeTaskStarted, map[string]string{"id": "old"})
	hub.Publish(events.TypeTaskStarted, map[string]string{"id": "h1"})

	s := newTestServer(t, testDeps{hub: hub})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+adminKey)
	req.Header.Set("Last-Event-ID", "1")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /events: %v", err)
	}
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 32)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	next := func() string {
		t.Helper()
		for {
			select {
			case l, ok := <-lines:
				if !ok {
					t.Fatal("stream closed")
				}
				if strings.HasPrefix(l, "data: ") {
					return strings.TrimPrefix(l, "data: ")
				}
			case <-ctx.Done():
				t.Fatal("timed out waiting for event")
			}
		}
	}

	assert.JSONEq(t, `{"id":"h1"}`, next())

	hub.Publish(events.TypeTaskEnded, map[string]string{"id": "h1", "status": "succeeded"})
	assert.JSONEq(t, `{"id":"h1","status":"succeeded"}`, next())
}

func TestParseLastEventID(t *testing.T) {
	assert.Equal(t, int64(0), parseLastEventID(""))
	assert.Equal(t, int64(0), parseLastEventID("abc"))
	assert.Equal(t, int64(0), parseLastEventID("-4"))
	assert.Equal(t, int64(42), parseLastEventID("42"))
}
