package repositories

import (
	"context"
	"time"

	"github.com/satriahrh/arunika-actor/domain/entities"
)

// TurnJournal records finished turns for later inspection. It is an audit
// trail only; nothing is ever loaded back into a running actor.
type TurnJournal interface {
	Record(ctx context.Context, turn *entities.SessionTurn) error
	Recent(ctx context.Context, limit int) ([]*entities.SessionTurn, error)
	Prune(ctx context.Context, now time.Time) (int64, error)
	Close() error
}

// EventSink receives turn events. Emit must not block the caller.
type EventSink interface {
	Emit(event entities.TurnEvent)
}
