// Package notify carries user-facing notices out of the engine. The engine
// only calls Notify; rendering belongs to whoever implements Notifier.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/riteshkumar/greengrid/internal/models"
)

type Notifier interface {
	Notify(ctx context.Context, n models.Notice)
}

func Info(msg string) models.Notice {
	return models.Notice{Level: models.NoticeInfo, Message: msg, CreatedAt: time.Now().UTC()}
}

func Error(msg string) models.Notice {
	return models.Notice{Level: models.NoticeError, Message: msg, CreatedAt: time.Now().UTC()}
}

// LogNotifier writes notices to the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, notice models.Notice) {
	level := slog.LevelInfo
	if notice.Level == models.NoticeError {
		level = slog.LevelWarn
	}
	n.logger.Log(ctx, level, "notice", "level", notice.Level, "message", notice.Message)
}

// Recorder keeps the most recent notices in memory for polling clients.
type Recorder struct {
	mu      sync.RWMutex
	limit   int
	notices []models.Notice
}

func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = 100
	}
	return &Recorder{limit: limit}
}

func (r *Recorder) Notify(_ context.Context, n models.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append([]models.Notice{n}, r.notices...)
	if len(r.notices) > r.limit {
		r.notices = r.notices[:r.limit]
	}
}

// Notices returns recorded notices, newest first.
func (r *Recorder) Notices() []models.Notice {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.Notice(nil), r.notices...)
}

// Multi fans a notice out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n models.Notice) {
	for _, notifier := range m {
		notifier.Notify(ctx, n)
	}
}
