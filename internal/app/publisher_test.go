package app

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/bookstorage/internal/config"
	"github.com/hitoshi/bookstorage/internal/notify"
)

type stubGuard struct {
	validateErr error
}

func (g stubGuard) ValidateURL(string) error { return g.validateErr }

func (g stubGuard) NewSafeClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func notifyConfig() *config.Config {
	return &config.Config{
		NotifyStream:  "book-storage:book-deleted",
		NotifyTimeout: time.Second,
	}
}

func TestBuildPublisher_DefaultsToLog(t *testing.T) {
	pub, cleanup, err := buildPublisher(notifyConfig(), stubGuard{}, discardLogger())
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, "log", pub.Name())
}

func TestBuildPublisher_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := notifyConfig()
	cfg.RedisURL = "redis://" + mr.Addr()

	pub, cleanup, err := buildPublisher(cfg, stubGuard{}, discardLogger())
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, "redis", pub.Name())
}

func TestBuildPublisher_Webhook(t *testing.T) {
	cfg := notifyConfig()
	cfg.NotifyWebhookURL = "https://hooks.example.com/books"

	pub, cleanup, err := buildPublisher(cfg, stubGuard{}, discardLogger())
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, "webhook", pub.Name())
}

func TestBuildPublisher_Both(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := notifyConfig()
	cfg.RedisURL = "redis://" + mr.Addr()
	cfg.NotifyWebhookURL = "https://hooks.example.com/books"

	pub, cleanup, err := buildPublisher(cfg, stubGuard{}, discardLogger())
	require.NoError(t, err)
	defer cleanup()

	fanout, ok := pub.(notify.Fanout)
	require.True(t, ok, "expected notify.Fanout, got %T", pub)
	assert.Len(t, fanout, 2)
}

func TestBuildPublisher_RejectsUnsafeWebhook(t *testing.T) {
	cfg := notifyConfig()
	cfg.NotifyWebhookURL = "http://127.0.0.1/hook"

	_, _, err := buildPublisher(cfg, stubGuard{validateErr: errors.New("blocked")}, discardLogger())
	assert.Error(t, err)
}

func TestBuildPublisher_InvalidRedisURL(t *testing.T) {
	cfg := notifyConfig()
	cfg.RedisURL = "://bad"

	_, _, err := buildPublisher(cfg, stubGuard{}, discardLogger())
	assert.Error(t, err)
}
