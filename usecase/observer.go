package usecase

import (
	"context"

	"github.com/satriahrh/arunika-actor/domain/entities"
)

// Observer receives measurements from the turn pipeline
type Observer interface {
	// StartStage marks the beginning of a pipeline stage. The returned
	// function ends it.
	StartStage(ctx context.Context, stage entities.TurnState) (context.Context, func(err error))
	CacheLookup(ctx context.Context, hit bool)
	TurnFinished(ctx context.Context, turn *entities.SessionTurn)
}

type nopObserver struct{}

func (nopObserver) StartStage(ctx context.Context, _ entities.TurnState) (context.Context, func(error)) {
	return ctx, func(error) {}
}

func (nopObserver) CacheLookup(context.Context, bool) {}

func (nopObserver) TurnFinished(context.Context, *entities.SessionTurn) {}

// NopObserver discards every measurement
var NopObserver Observer = nopObserver{}
