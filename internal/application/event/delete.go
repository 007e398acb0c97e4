package event

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/contracts/events"
	appCtx "github.com/baechuer/real-time-ressys/services/registration-service/internal/pkg/context"
)

// Delete removes the event together with every registration that points at it.
// It returns the number of registrations removed.
func (s *Service) Delete(ctx context.Context, id string) (int, error) {
	removed := 0
	err := s.repo.WithTx(ctx, func(tx TxEventRepo) error {
		if _, err := tx.GetByIDForUpdate(ctx, id); err != nil {
			return err
		}
		n, err := tx.DeleteCascade(ctx, id)
		if err != nil {
			return err
		}

		msg, err := events.NewOutboxMessage(events.RouteEventDeleted, appCtx.GetRequestID(ctx),
			events.EventDeletedPayload{EventID: id, RemovedRegistrations: n}, s.clock.Now())
		if err != nil {
			return err
		}
		if err := tx.InsertOutbox(ctx, msg); err != nil {
			return err
		}
		removed = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.invalidate(ctx, id)
	return removed, nil
}
