package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/yourusername/vidgrab-go/internal/domain"
	"go.uber.org/zap"
)

// RedisSessionProvider shares the session across processes.
// The signed-in user id lives under a single key and auth changes are
// broadcast on a pub/sub channel.
type RedisSessionProvider struct {
	client  *redis.Client
	key     string
	channel string
	logger  *zap.Logger
}

// NewRedisSessionProvider connects to Redis and verifies the connection
func NewRedisSessionProvider(ctx context.Context, cfg *domain.AuthConfig, logger *zap.Logger) (*RedisSessionProvider, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}

	return &RedisSessionProvider{
		client:  client,
		key:     cfg.SessionKey,
		channel: cfg.EventChannel,
		logger:  logger,
	}, nil
}

// GetSession returns the current session
func (p *RedisSessionProvider) GetSession(ctx context.Context) (domain.Session, error) {
	userID, err := p.client.Get(ctx, p.key).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, nil
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	return domain.Session{Authenticated: true, UserID: userID}, nil
}

// SignIn stores the user id and broadcasts SIGNED_IN
func (p *RedisSessionProvider) SignIn(ctx context.Context, userID string) error {
	if err := p.client.Set(ctx, p.key, userID, 0).Err(); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return p.publish(ctx, domain.AuthEvent{Type: domain.AuthSignedIn, UserID: userID})
}

// SignOut deletes the session and broadcasts SIGNED_OUT
func (p *RedisSessionProvider) SignOut(ctx context.Context) error {
	if err := p.client.Del(ctx, p.key).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return p.publish(ctx, domain.AuthEvent{Type: domain.AuthSignedOut})
}

// OnAuthStateChange subscribes to the auth channel
func (p *RedisSessionProvider) OnAuthStateChange(ctx context.Context) (<-chan domain.AuthEvent, func(), error) {
	sub := p.client.Subscribe(ctx, p.channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", p.channel, err)
	}

	events := make(chan domain.AuthEvent, 8)
	go func() {
		defer close(events)
		for msg := range sub.Channel() {
			event, err := decodeAuthEvent(msg.Payload)
			if err != nil {
				p.logger.Warn("Ignoring malformed auth event",
					zap.String("payload", msg.Payload),
					zap.Error(err))
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, func() { sub.Close() }, nil
}

// Close releases the Redis connection
func (p *RedisSessionProvider) Close() error {
	return p.client.Close()
}

func (p *RedisSessionProvider) publish(ctx context.Context, event domain.AuthEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish auth event: %w", err)
	}
	return nil
}

func decodeAuthEvent(payload string) (domain.AuthEvent, error) {
	var event domain.AuthEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return event, err
	}
	switch event.Type {
	case domain.AuthSignedIn, domain.AuthSignedOut:
		return event, nil
	default:
		return event, fmt.Errorf("unknown auth event type %q", event.Type)
	}
}
