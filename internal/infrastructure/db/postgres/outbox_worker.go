package postgres

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/metrics"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/pkg/logger"
)

const (
	outboxBatchSize   = 20
	outboxMaxAttempts = 12
	outboxPollEvery   = 500 * time.Millisecond
	outboxInFlight    = 30 * time.Second
)

// Publisher delivers one outbox row to the broker and returns once it is confirmed.
type Publisher interface {
	PublishEvent(ctx context.Context, routingKey, messageID string, body []byte) error
}

// backoff: exponential with jitter, bounded to [5s, 30m]
func computeNextRetry(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	sec := math.Pow(2, float64(attempt))
	if sec < 5 {
		sec = 5
	}
	if sec > 1800 {
		sec = 1800
	}

	d := time.Duration(sec) * time.Second

	// jitter +/-10%
	j := time.Duration(rand.Int63n(int64(d/5))) - d/10
	return d + j
}

type outboxRow struct {
	ID         int64
	MessageID  string
	RoutingKey string
	Body       []byte
	Attempts   int
}

// StartOutboxWorker relays pending registration_outbox rows until ctx is done.
// Rows are claimed in a short transaction, published without holding locks,
// then marked sent, rescheduled, or dead.
func (s *Store) StartOutboxWorker(ctx context.Context, pub Publisher) {
	go func() {
		log := logger.Logger.With().Str("component", "outbox_worker").Logger()

		time.Sleep(time.Duration(rand.Intn(1000)) * time.Millisecond)
		ticker := time.NewTicker(outboxPollEvery)
		defer ticker.Stop()

		var lastErr string
		var lastAt time.Time

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("stopped")
				return
			case <-ticker.C:
				if err := s.processOutboxBatch(ctx, pub, outboxBatchSize); err != nil {
					if err.Error() != lastErr || time.Since(lastAt) > 10*time.Second {
						log.Warn().Err(err).Msg("outbox batch failed")
						lastErr = err.Error()
						lastAt = time.Now()
					}
				} else {
					lastErr = ""
				}
			}
		}
	}()
}

func (s *Store) processOutboxBatch(ctx context.Context, pub Publisher, limit int) error {
	if limit <= 0 {
		limit = outboxBatchSize
	}

	claimCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := s.pool.Begin(claimCtx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(claimCtx) }()

	rows, err := tx.Query(claimCtx, selectOutboxClaimsSQL, limit)
	if err != nil {
		return err
	}

	var batch []outboxRow
	for rows.Next() {
		var item outboxRow
		if err := rows.Scan(&item.ID, &item.MessageID, &item.RoutingKey, &item.Body, &item.Attempts); err != nil {
			rows.Close()
			return err
		}
		batch = append(batch, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if len(batch) == 0 {
		return tx.Commit(claimCtx)
	}

	// Push the claimed rows into the future so no other relay picks them up
	// while this one is publishing.
	reservation := time.Now().UTC().Add(outboxInFlight)
	for _, item := range batch {
		if _, err := tx.Exec(claimCtx, reserveOutboxSQL, item.ID, reservation); err != nil {
			return err
		}
	}
	if err := tx.Commit(claimCtx); err != nil {
		return err
	}

	for _, item := range batch {
		s.publishOne(ctx, pub, item)
	}
	return nil
}

// outboxExec is the part of the pool settleOutbox needs.
type outboxExec interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *Store) publishOne(ctx context.Context, pub Publisher, item outboxRow) {
	log := logger.Logger.With().
		Str("component", "outbox_worker").
		Int64("outbox_id", item.ID).
		Str("message_id", item.MessageID).
		Str("routing_key", item.RoutingKey).
		Logger()

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err := pub.PublishEvent(pubCtx, item.RoutingKey, item.MessageID, item.Body)
	cancel()

	resCtx, cancelRes := context.WithTimeout(ctx, 3*time.Second)
	defer cancelRes()
	settleOutbox(resCtx, s.pool, log, item, err)
}

// settleOutbox records the publish outcome. A failed update leaves the row
// reserved until outboxInFlight passes, after which it is claimed again.
func settleOutbox(ctx context.Context, db outboxExec, log zerolog.Logger, item outboxRow, pubErr error) {
	if pubErr == nil {
		if _, err := db.Exec(ctx, markOutboxSentSQL, item.ID); err != nil {
			log.Warn().Err(err).Msg("mark outbox sent failed")
		}
		metrics.RecordOutbox("sent")
		log.Debug().Msg("published")
		return
	}

	next := item.Attempts + 1
	if next >= outboxMaxAttempts {
		if _, err := db.Exec(ctx, markOutboxDeadSQL, item.ID, next, pubErr.Error()); err != nil {
			log.Error().Err(err).Int("attempt", next).Msg("mark outbox dead failed")
		}
		metrics.RecordOutbox("dead")
		log.Error().Err(pubErr).Int("attempt", next).Msg("outbox moved to DEAD")
		return
	}

	delay := computeNextRetry(next)
	if _, err := db.Exec(ctx, markOutboxRetrySQL, item.ID, next, time.Now().UTC().Add(delay), pubErr.Error()); err != nil {
		log.Warn().Err(err).Int("attempt", next).Msg("mark outbox retry failed")
	}
	metrics.RecordOutbox("retry")
	log.Warn().Err(pubErr).Int("attempt", next).Dur("retry_in", delay).Msg("outbox publish failed; scheduled retry")
}
