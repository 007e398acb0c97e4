package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
)

const (
	eventKeyPrefix = "event:doc:"
	eventGenPrefix = "event:gen:"
	// a generation key only has to outlive the slowest in-flight read
	eventGenTTL = 24 * time.Hour
)

// Store the document only if nobody invalidated the event since the reader
// sampled the generation. A missing generation key reads as "".
// KEYS[1] doc, KEYS[2] gen; ARGV[1] sampled gen, ARGV[2] doc, ARGV[3] ttl ms
const setIfGenLua = `
local g = redis.call("GET", KEYS[2]) or ""
if g ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`

type eventSource interface {
	GetEvent(ctx context.Context, id string) (*domain.Event, error)
}

// EventCache is a read-through cache of event documents (title, quota, schedule).
// Registrations and availability are never cached; they are always counted live.
type EventCache struct {
	cache *Cache
	next  eventSource
	ttl   time.Duration
}

func NewEventCache(c *Cache, next eventSource, ttl time.Duration) *EventCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &EventCache{cache: c, next: next, ttl: ttl}
}

type cachedEvent struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Location    string          `json:"location"`
	Quota       int             `json:"quota"`
	Schedule    domain.Schedule `json:"schedule"`
	Benefits    []string        `json:"benefits"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// GetEvent reads through the cache. The generation is sampled before the
// store read, so a document loaded before an Update or Delete committed is
// never written back after that write's invalidation.
func (c *EventCache) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	key := eventKeyPrefix + id
	genKey := eventGenPrefix + id

	raw, err := c.cache.Client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var ce cachedEvent
		if jerr := json.Unmarshal(raw, &ce); jerr == nil {
			return ce.toDomain(), nil
		}
		_ = c.cache.Client.Del(ctx, key).Err()
	case !errors.Is(err, redis.Nil):
		zlog.Debug().Err(err).Str("event_id", id).Msg("event cache read failed")
	}

	gen, gerr := c.cache.Client.Get(ctx, genKey).Result()
	cacheable := gerr == nil || errors.Is(gerr, redis.Nil)

	ev, err := c.next.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cacheable {
		return ev, nil
	}
	if b, jerr := json.Marshal(fromDomain(ev)); jerr == nil {
		serr := c.cache.Client.Eval(ctx, setIfGenLua, []string{key, genKey}, gen, b, c.ttl.Milliseconds()).Err()
		if serr != nil {
			zlog.Debug().Err(serr).Str("event_id", id).Msg("event cache write failed")
		}
	}
	return ev, nil
}

// InvalidateEvent bumps the event's generation and drops the cached document.
func (c *EventCache) InvalidateEvent(ctx context.Context, id string) error {
	genKey := eventGenPrefix + id
	_, err := c.cache.Client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, genKey)
		p.Expire(ctx, genKey, eventGenTTL)
		p.Del(ctx, eventKeyPrefix+id)
		return nil
	})
	return err
}

func fromDomain(e *domain.Event) cachedEvent {
	return cachedEvent{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		Quota:       e.Quota,
		Schedule:    e.Schedule,
		Benefits:    e.Benefits,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func (ce cachedEvent) toDomain() *domain.Event {
	return &domain.Event{
		ID:          ce.ID,
		Title:       ce.Title,
		Description: ce.Description,
		Location:    ce.Location,
		Quota:       ce.Quota,
		Schedule:    ce.Schedule,
		Benefits:    ce.Benefits,
		CreatedAt:   ce.CreatedAt,
		UpdatedAt:   ce.UpdatedAt,
	}
}
