package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/bookstorage/internal/model"
)

// 配信結果のメトリクスラベル。
const (
	OutcomeDelivered = "delivered"
	OutcomeRetried   = "retried"
	OutcomeFailed    = "failed"
	OutcomeDropped   = "dropped"
)

// Recorder は配信結果を記録する。
type Recorder interface {
	ObserveNotification(outcome string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveNotification(string) {}

// DispatcherConfig はDispatcherの設定。
type DispatcherConfig struct {
	QueueSize   int
	Workers     int
	MaxAttempts int
}

// Dispatcher は書籍削除イベントを有界キューに積み、ワーカーが非同期に配信する。
// 配信はベストエフォートで、上限回数まで指数バックオフで再試行する。
type Dispatcher struct {
	publisher   Publisher
	recorder    Recorder
	logger      *slog.Logger
	workers     int
	maxAttempts int
	backoff     func(failures int) time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan model.BookDeletedEvent

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewDispatcher はDispatcherを生成する。
// 0以下の設定値にはデフォルト（キュー256、ワーカー2、試行5回）を使用する。
func NewDispatcher(publisher Publisher, config DispatcherConfig, recorder Recorder, logger *slog.Logger) *Dispatcher {
	if config.QueueSize <= 0 {
		config.QueueSize = 256
	}
	if config.Workers <= 0 {
		config.Workers = 2
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 5
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		publisher:   publisher,
		recorder:    recorder,
		logger:      logger,
		workers:     config.Workers,
		maxAttempts: config.MaxAttempts,
		backoff:     CalculateBackoff,
		queue:       make(chan model.BookDeletedEvent, config.QueueSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start はワーカーgoroutineを起動する。
func (d *Dispatcher) Start() {
	d.logger.Info("notification dispatcher started",
		slog.String("publisher", d.publisher.Name()),
		slog.Int("workers", d.workers),
		slog.Int("queue_size", cap(d.queue)),
	)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
}

// NotifyBookDeleted はイベントをキューに積む。呼び出し元をブロックしない。
// キューが満杯、または停止済みの場合はイベントを破棄してログと計数を残す。
func (d *Dispatcher) NotifyBookDeleted(event model.BookDeletedEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(event, "dispatcher stopped")
		return
	}
	select {
	case d.queue <- event:
	default:
		d.drop(event, "queue full")
	}
}

// Stop は新規受付を止め、キューに残ったイベントの配信を待つ。
// ctxが先に終了した場合は進行中の再試行を打ち切り、ctx.Err()を返す。
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		d.logger.Info("notification dispatcher stopped")
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		d.logger.Warn("notification dispatcher stopped before queue drained",
			slog.String("error", ctx.Err().Error()),
		)
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for event := range d.queue {
		d.deliver(event)
	}
}

// deliver は1件のイベントを上限回数まで配信する。
func (d *Dispatcher) deliver(event model.BookDeletedEvent) {
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		err := d.publisher.Publish(d.ctx, event)
		if err == nil {
			d.recorder.ObserveNotification(OutcomeDelivered)
			return
		}

		if IsPermanent(err) || attempt == d.maxAttempts || d.ctx.Err() != nil {
			d.recorder.ObserveNotification(OutcomeFailed)
			d.logger.Error("book deleted notification failed",
				slog.String("event_id", event.EventID),
				slog.Int64("book_id", event.BookID),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
			return
		}

		d.recorder.ObserveNotification(OutcomeRetried)
		delay := d.backoff(attempt - 1)
		d.logger.Warn("book deleted notification retry scheduled",
			slog.String("event_id", event.EventID),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", delay),
			slog.String("error", err.Error()),
		)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-d.ctx.Done():
			timer.Stop()
		}
	}
}

func (d *Dispatcher) drop(event model.BookDeletedEvent, reason string) {
	d.recorder.ObserveNotification(OutcomeDropped)
	d.logger.Warn("book deleted notification dropped",
		slog.String("event_id", event.EventID),
		slog.Int64("book_id", event.BookID),
		slog.String("reason", reason),
	)
}
