package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PullbackScanner/internal/model"
)

func TestFormatSignals(t *testing.T) {
	tests := []struct {
		name  string
		table model.ResultTable
		want  string
	}{
		{"empty", nil, NoSignalsMessage},
		{"two tickers", model.ResultTable{{Symbol: "AAPL"}, {Symbol: "MSFT"}}, SignalsHeader + "\nAAPL\nMSFT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatSignals(tt.table))
		})
	}
}

func TestFormatLast(t *testing.T) {
	assert.Contains(t, FormatLast(nil, time.Time{}), "No scan")

	at := time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC)
	got := FormatLast(model.ResultTable{{Symbol: "AAPL", Close: 187.456, RSI: 51.26, FromHigh: -0.0712}}, at)
	assert.Contains(t, got, "2026-03-02 15:30")
	assert.Contains(t, got, "AAPL  close 187.46  rsi 51.3  drop -7.1%")
}

func TestTelegramNotifier_Enabled(t *testing.T) {
	tests := []struct {
		token, chat string
		want        bool
	}{
		{"t", "c", true},
		{"", "c", false},
		{"t", "", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NewTelegramNotifier(tt.token, tt.chat, "", "").Enabled())
	}
	var nilNotifier *TelegramNotifier
	assert.False(t, nilNotifier.Enabled())
}

func TestTelegramNotifier_Send(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("123:abc", "42", srv.URL, "")
	require.NoError(t, n.Send(context.Background(), "hello\nAAPL"))

	assert.Equal(t, "/bot123:abc/sendMessage", gotPath)
	assert.Equal(t, "42", gotBody["chat_id"])
	assert.Equal(t, "hello\nAAPL", gotBody["text"])
	_, hasParseMode := gotBody["parse_mode"]
	assert.False(t, hasParseMode, "messages are plain text")
}

func TestTelegramNotifier_NotifyRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"ok":false,"description":"bad gateway"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("t", "c", srv.URL, "")
	n.RetryBase = time.Millisecond
	require.NoError(t, n.Notify(context.Background(), "x"))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestTelegramNotifier_NotifyGivesUp(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Unauthorized"}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("t", "c", srv.URL, "")
	n.RetryBase = time.Millisecond
	n.MaxRetries = 1
	err := n.Notify(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestTelegramNotifier_NotifySkipsWithoutCredentials(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("", "c", srv.URL, "")
	assert.NoError(t, n.Notify(context.Background(), "x"))
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestTelegramNotifier_Polling(t *testing.T) {
	var mu sync.Mutex
	var replies []string
	var served int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if atomic.AddInt32(&served, 1) == 1 {
				_, _ = w.Write([]byte(`{"ok":true,"result":[
					{"update_id":10,"message":{"text":" /last ","chat":{"id":42}}},
					{"update_id":11,"message":{"text":"/scan","chat":{"id":999}}}
				]}`))
				return
			}
			assert.Equal(t, "12", r.URL.Query().Get("offset"))
			_, _ = w.Write([]byte(`{"ok":true,"result":[]}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			replies = append(replies, body["text"])
			mu.Unlock()
			_, _ = w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer srv.Close()

	n := NewTelegramNotifier("t", "42", srv.URL, "")
	ctx, cancel := context.WithCancel(context.Background())
	var handled []string
	done := make(chan struct{})
	go func() {
		defer close(done)
		n.poll(ctx, func(_ context.Context, cmd string) string {
			handled = append(handled, cmd)
			return "reply to " + cmd
		}, 0, time.Millisecond)
	}()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&served) >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, []string{"/last"}, handled, "commands from other chats are ignored")
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"reply to /last"}, replies)
}
