package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/josephadah/trading-ai/internal/model"
)

type fakeHistory struct {
	signals []model.Signal
	err     error
	symbol  string
	n       int64
}

func (f *fakeHistory) Recent(_ context.Context, symbol string, n int64) ([]model.Signal, error) {
	f.symbol, f.n = symbol, n
	return f.signals, f.err
}

func newTestServer(t *testing.T, h *Hub, history SignalHistory, ping func(context.Context) error) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	RegisterRoutes(mux, h, history, ping, time.Now())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, v interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return resp.StatusCode
}

func TestHandlers_LatestAndRecent(t *testing.T) {
	h := NewHub(nil, nil, nil)
	h.broadcast("pub:signal:EURUSD", []byte(`{"symbol":"EURUSD"}`))
	hist := &fakeHistory{signals: []model.Signal{{Symbol: "EURUSD", Direction: model.Short}}}
	srv := newTestServer(t, h, hist, nil)

	var latest map[string]model.Signal
	if code := getJSON(t, srv.URL+"/api/signals/latest", &latest); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if latest["EURUSD"].Symbol != "EURUSD" {
		t.Errorf("latest = %+v", latest)
	}

	var recent []model.Signal
	if code := getJSON(t, srv.URL+"/api/signals/recent?symbol=EURUSD&limit=5", &recent); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if len(recent) != 1 || hist.symbol != "EURUSD" || hist.n != 5 {
		t.Errorf("recent = %+v, called with %s/%d", recent, hist.symbol, hist.n)
	}

	var errBody map[string]string
	if code := getJSON(t, srv.URL+"/api/signals/recent", &errBody); code != http.StatusBadRequest {
		t.Errorf("missing symbol: status %d", code)
	}

	hist.err = errors.New("redis down")
	if code := getJSON(t, srv.URL+"/api/signals/recent?symbol=EURUSD", &errBody); code != http.StatusBadGateway {
		t.Errorf("history error: status %d", code)
	}
	if hist.n != 20 {
		t.Errorf("default limit = %d, want 20", hist.n)
	}
}

func TestHandlers_Missed(t *testing.T) {
	h := NewHub(nil, nil, nil)
	for i := 0; i < 4; i++ {
		h.broadcast("pub:signal:EURUSD", []byte(`{}`))
	}
	srv := newTestServer(t, h, nil, nil)

	var body struct {
		ChannelSeq int64      `json:"channel_seq"`
		Messages   []envelope `json:"messages"`
	}
	if code := getJSON(t, srv.URL+"/api/signals/missed?channel=pub:signal:EURUSD&from=2&to=3", &body); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if body.ChannelSeq != 4 || len(body.Messages) != 2 || body.Messages[0].ChannelSeq != 2 {
		t.Errorf("missed = %+v", body)
	}

	var errBody map[string]string
	if code := getJSON(t, srv.URL+"/api/signals/missed?channel=x&from=a", &errBody); code != http.StatusBadRequest {
		t.Errorf("bad params: status %d", code)
	}
}

func TestHandlers_Healthz(t *testing.T) {
	h := NewHub(nil, nil, nil)
	ok := newTestServer(t, h, nil, func(context.Context) error { return nil })
	down := newTestServer(t, h, nil, func(context.Context) error { return errors.New("refused") })

	var body map[string]interface{}
	if code := getJSON(t, ok.URL+"/healthz", &body); code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("healthy: %d %v", code, body)
	}
	if code := getJSON(t, down.URL+"/healthz", &body); code != http.StatusServiceUnavailable || body["status"] != "degraded" {
		t.Errorf("redis down: %d %v", code, body)
	}
	if _, ok := body["market_status"]; !ok {
		t.Error("missing market_status")
	}
}

func TestHandlers_WebSocketFeed(t *testing.T) {
	h := NewHub(nil, nil, nil)
	h.Seed(map[string]model.Signal{"GBPUSD": {Symbol: "GBPUSD", SignalTS: time.Now().UTC()}})
	srv := newTestServer(t, h, nil, nil)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?symbols=eurusd"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// GBPUSD is filtered out; only the EURUSD broadcast arrives.
	h.broadcast("pub:signal:GBPUSD", []byte(`{"symbol":"GBPUSD"}`))
	h.broadcast("pub:signal:EURUSD", []byte(`{"symbol":"EURUSD"}`))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	first := strings.Split(string(msg), "\n")[0]
	var env envelope
	if err := json.Unmarshal([]byte(first), &env); err != nil {
		t.Fatalf("bad envelope %q: %v", first, err)
	}
	if env.Channel != "pub:signal:EURUSD" {
		t.Errorf("channel = %q", env.Channel)
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for h.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never removed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
