package redisstream

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vnykmshr/gopump/pkg/common/validation"
	"github.com/vnykmshr/gopump/pkg/streaming/stream"
)

const module = "redisstream"

// DefaultPollInterval is how long a source waits before popping an empty list again.
const DefaultPollInterval = 100 * time.Millisecond

// SourceConfig configures a ListSource.
type SourceConfig struct {
	// PollInterval is the wait between pops while the list is empty.
	// Default: DefaultPollInterval
	PollInterval time.Duration

	// EndMarker ends the source when popped. The marker itself is not emitted.
	// Empty disables the marker.
	EndMarker string

	// IdleTimeout ends the source when no item arrives for this long.
	// Zero waits forever.
	IdleTimeout time.Duration
}

type listSource struct {
	client redis.UniversalClient
	key    string
	config SourceConfig

	lastItem time.Time
	ended    bool
}

// NewListSource returns a Source that pops items from the head of the list at key.
func NewListSource(client redis.UniversalClient, key string, config SourceConfig) (stream.Source[string], error) {
	if err := validation.ValidateNotNil(module, "client", client); err != nil {
		return nil, err
	}
	if err := validation.ValidateNotEmpty(module, "key", key); err != nil {
		return nil, err
	}
	if err := validation.ValidateNonNegative(module, "idleTimeout", float64(config.IdleTimeout)); err != nil {
		return nil, err
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}

	return &listSource{
		client:   client,
		key:      key,
		config:   config,
		lastItem: time.Now(),
	}, nil
}

// NewListReader wraps a ListSource in a stream.Readable bound to ctx.
func NewListReader(ctx context.Context, client redis.UniversalClient, key string, config SourceConfig) (*stream.Readable[string], error) {
	src, err := NewListSource(client, key, config)
	if err != nil {
		return nil, err
	}
	return stream.NewWithContext(ctx, src), nil
}

func (s *listSource) Next(ctx context.Context) (string, bool, error) {
	if s.ended {
		return "", false, nil
	}

	for {
		val, err := s.client.LPop(ctx, s.key).Result()
		switch {
		case err == nil:
			if s.config.EndMarker != "" && val == s.config.EndMarker {
				s.ended = true
				return "", false, nil
			}
			s.lastItem = time.Now()
			return val, true, nil
		case errors.Is(err, redis.Nil):
			// Empty list, poll again below.
		case ctx.Err() != nil:
			return "", false, ctx.Err()
		default:
			return "", false, &RedisError{"lpop", s.key, err}
		}

		if s.config.IdleTimeout > 0 && time.Since(s.lastItem) >= s.config.IdleTimeout {
			s.ended = true
			return "", false, nil
		}

		timer := time.NewTimer(s.config.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", false, ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *listSource) Close() error {
	s.ended = true
	return nil
}
