package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/josephadah/trading-ai/internal/model"
)

func testSignal() model.Signal {
	return model.Signal{
		Symbol:     "EURUSD",
		SignalTS:   time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		Direction:  model.Long,
		EntryPrice: 1.0891,
		StopLoss:   1.0851,
		TakeProfit: 1.0991,
		StopPips:   40,
		TargetPips: 100,
		RiskReward: 2.5,
		Reasoning: []model.Step{
			{Name: "trend", Passed: true, Detail: "Long trend confirmed"},
			{Name: "trigger", Passed: true, Detail: "Entry trigger confirmed"},
		},
	}
}

func TestSignalAlert(t *testing.T) {
	a := SignalAlert(testSignal(), nil)
	if a.Level != AlertInfo {
		t.Errorf("level = %s", a.Level)
	}
	if a.Title != "LONG EURUSD @ 1.08910" {
		t.Errorf("title = %q", a.Title)
	}
	for _, want := range []string{
		"BUY 2024-03-04",
		"SL 1.08510 (40.0 pips)",
		"TP 1.09910 (100.0 pips)",
		"RR 2.50",
		"Long trend confirmed | Entry trigger confirmed",
	} {
		if !strings.Contains(a.Message, want) {
			t.Errorf("message missing %q:\n%s", want, a.Message)
		}
	}
	if a.Signal == nil || a.Signal.Symbol != "EURUSD" {
		t.Errorf("signal payload = %+v", a.Signal)
	}
}

type recorder struct {
	alerts []Alert
	err    error
}

func (r *recorder) Send(_ context.Context, a Alert) error {
	r.alerts = append(r.alerts, a)
	return r.err
}

func TestMulti_SendsToAllAndJoinsErrors(t *testing.T) {
	ok := &recorder{}
	bad := &recorder{err: errors.New("down")}
	err := Multi{bad, ok}.Send(context.Background(), Alert{Title: "x"})
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Fatalf("err = %v", err)
	}
	if len(ok.alerts) != 1 || len(bad.alerts) != 1 {
		t.Errorf("deliveries: ok=%d bad=%d", len(ok.alerts), len(bad.alerts))
	}
}

func TestNotifySignals(t *testing.T) {
	r := &recorder{}
	short := testSignal()
	short.Direction = model.Short
	if err := NotifySignals(context.Background(), r, []model.Signal{testSignal(), short}, nil); err != nil {
		t.Fatal(err)
	}
	if len(r.alerts) != 2 {
		t.Fatalf("alerts = %d, want 2", len(r.alerts))
	}
	if !strings.HasPrefix(r.alerts[1].Title, "SHORT EURUSD") {
		t.Errorf("second title = %q", r.alerts[1].Title)
	}
}

func TestWebhookNotifier(t *testing.T) {
	var got map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := NewWebhookNotifier(srv.URL, nil).Send(context.Background(), SignalAlert(testSignal(), nil)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	for _, k := range []string{"level", "title", "message", "ts", "symbol", "direction", "signal"} {
		if _, ok := got[k]; !ok {
			t.Errorf("payload missing %q", k)
		}
	}
	var sig model.Signal
	if err := json.Unmarshal(got["signal"], &sig); err != nil || sig.RiskReward != 2.5 {
		t.Errorf("signal payload = %+v, err %v", sig, err)
	}
}

func TestWebhookNotifier_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL, nil).Send(context.Background(), Alert{Title: "x"})
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("err = %v", err)
	}
}

func TestTelegramNotifier(t *testing.T) {
	var body map[string]string
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tn := NewTelegramNotifier("TOKEN", "42", nil)
	tn.baseURL = srv.URL
	if err := tn.Send(context.Background(), SignalAlert(testSignal(), nil)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if path != "/botTOKEN/sendMessage" {
		t.Errorf("path = %q", path)
	}
	if body["chat_id"] != "42" || body["parse_mode"] != "MarkdownV2" {
		t.Errorf("body = %v", body)
	}
	if !strings.Contains(body["text"], `1\.08910`) {
		t.Errorf("text not escaped: %q", body["text"])
	}
	if !strings.HasPrefix(body["text"], "📈 *LONG EURUSD") {
		t.Errorf("text = %q", body["text"])
	}
}

func TestTelegramNotifier_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	tn := NewTelegramNotifier("TOKEN", "42", nil)
	tn.baseURL = srv.URL
	err := tn.Send(context.Background(), Alert{Level: AlertWarning, Title: "x"})
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("err = %v", err)
	}
}

func TestAlertEmoji(t *testing.T) {
	long, short := testSignal(), testSignal()
	short.Direction = model.Short
	tests := []struct {
		alert Alert
		want  string
	}{
		{Alert{Level: AlertInfo}, "ℹ️"},
		{Alert{Level: AlertInfo, Signal: &long}, "📈"},
		{Alert{Level: AlertInfo, Signal: &short}, "📉"},
		{Alert{Level: AlertWarning, Signal: &long}, "⚠️"},
		{Alert{Level: AlertCritical}, "🚨"},
	}
	for _, tt := range tests {
		if got := alertEmoji(tt.alert); got != tt.want {
			t.Errorf("alertEmoji(%+v) = %q, want %q", tt.alert.Level, got, tt.want)
		}
	}
}

func TestEscapeMarkdown(t *testing.T) {
	if got := escapeMarkdown("a_b (1.5) \\"); got != `a\_b \(1\.5\) \\` {
		t.Errorf("escapeMarkdown = %q", got)
	}
}

func TestBuild(t *testing.T) {
	if n := len(Build("", "", "", nil).(Multi)); n != 1 {
		t.Errorf("log only: %d notifiers", n)
	}
	if n := len(Build("http://x", "tok", "", nil).(Multi)); n != 2 {
		t.Errorf("webhook: %d notifiers", n)
	}
	if n := len(Build("http://x", "tok", "1", nil).(Multi)); n != 3 {
		t.Errorf("all: %d notifiers", n)
	}
}
