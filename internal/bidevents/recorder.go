// Package bidevents persists coordinator activity as durable outbox events so
// downstream consumers (analytics, notifications) see every bid transition.
package bidevents

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/kurumart/kurumart-backend/pkg/enums"
	pkgerrors "github.com/kurumart/kurumart-backend/pkg/errors"
	"github.com/kurumart/kurumart-backend/pkg/logger"
	"github.com/kurumart/kurumart-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Recorder writes bid events through the outbox inside their own transaction.
// Writes happen off the caller's goroutine so the bid engine's event loop is
// never blocked on the database.
type Recorder struct {
	db      txRunner
	outbox  eventEmitter
	logg    *logger.Logger
	pending sync.WaitGroup
}

// NewRecorder constructs a recorder backed by the given transaction runner
// and outbox service.
func NewRecorder(db txRunner, emitter eventEmitter, logg *logger.Logger) (*Recorder, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	}
	if emitter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox emitter is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &Recorder{db: db, outbox: emitter, logg: logg}, nil
}

// Record queues one outbox write. Failures are logged, not returned: a lost
// analytics event must never fail the bid operation that produced it.
func (r *Recorder) Record(ctx context.Context, eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType, aggregateID string, data any) {
	detached := context.WithoutCancel(ctx)
	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		err := r.db.WithTx(detached, func(tx *gorm.DB) error {
			return r.outbox.Emit(detached, tx, outbox.DomainEvent{
				EventType:     eventType,
				AggregateType: aggregateType,
				AggregateID:   aggregateID,
				Data:          data,
			})
		})
		if err != nil {
			r.logg.Error(r.logg.WithFields(detached, map[string]any{
				"event_type":   string(eventType),
				"aggregate_id": aggregateID,
			}), "record bid event", err)
		}
	}()
}

// Flush blocks until all queued writes have completed. Intended for shutdown
// and tests.
func (r *Recorder) Flush() {
	r.pending.Wait()
}
