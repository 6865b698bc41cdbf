package notify

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riteshkumar/greengrid/internal/models"
)

func TestRecorderKeepsNewestWithinLimit(t *testing.T) {
	r := NewRecorder(2)
	ctx := context.Background()

	r.Notify(ctx, Info("one"))
	r.Notify(ctx, Info("two"))
	r.Notify(ctx, Error("three"))

	got := r.Notices()
	require.Len(t, got, 2)
	assert.Equal(t, "three", got[0].Message)
	assert.Equal(t, models.NoticeError, got[0].Level)
	assert.Equal(t, "two", got[1].Message)
}

func TestMultiAndLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	rec := NewRecorder(10)

	Multi{NewLogNotifier(logger), rec}.Notify(context.Background(), Error("amount must be positive"))

	assert.Len(t, rec.Notices(), 1)
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), "amount must be positive")
}

func TestTelegramNotifierSendsMessage(t *testing.T) {
	var mu sync.Mutex
	var sent []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"grid","username":"grid_bot"}}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			require.NoError(t, r.ParseForm())
			mu.Lock()
			sent = append(sent, r.PostForm.Get("chat_id")+":"+r.PostForm.Get("text"))
			mu.Unlock()
			io.WriteString(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"},"text":"ok"}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	n, err := NewTelegramNotifierWithEndpoint("token", srv.URL+"/bot%s/%s", 42, srv.Client(), logger)
	require.NoError(t, err)

	n.Notify(context.Background(), Info("payment PAY-1 settled: 1485.00"))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "42:")
	assert.Contains(t, sent[0], "payment PAY-1 settled: 1485.00")
}
