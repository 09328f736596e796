package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/bookstorage/internal/model"
)

// DefaultStreamMaxLen はストリームに保持する概算最大件数。
const DefaultStreamMaxLen = 10000

// RedisPublisher はRedis Streamsへイベントを追加する。
type RedisPublisher struct {
	client redis.UniversalClient
	stream string
	maxLen int64
}

// NewRedisPublisher はRedisPublisherを生成する。
// maxLenが0の場合はストリームをトリムしない。
func NewRedisPublisher(client redis.UniversalClient, stream string, maxLen int64) *RedisPublisher {
	return &RedisPublisher{
		client: client,
		stream: stream,
		maxLen: maxLen,
	}
}

// NewRedisClient はREDIS_URL形式の接続文字列からクライアントを生成する。
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Publish はXADDでイベントをストリームに追加する。
func (p *RedisPublisher) Publish(ctx context.Context, event model.BookDeletedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return Permanent(fmt.Errorf("failed to marshal event: %w", err))
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"event_id":   event.EventID,
			"book_id":    strconv.FormatInt(event.BookID, 10),
			"isbn":       event.ISBN,
			"deleted_at": event.DeletedAt.UTC().Format(time.RFC3339Nano),
			"payload":    string(payload),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to xadd to %s: %w", p.stream, err)
	}
	return nil
}

// Name はPublisherの識別名を返す。
func (p *RedisPublisher) Name() string { return "redis" }

// Ping は接続確認を行う。
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// compile-time interface check
var _ Publisher = (*RedisPublisher)(nil)
