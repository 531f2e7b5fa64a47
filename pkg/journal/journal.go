// Package journal writes an append-only audit trail of order actions. It is write-only:
// strategy state is never rebuilt from it.
package journal

import (
	"context"
	"errors"

	"github.com/joripage/futures-bot/pkg/oms/model"
)

type Sink interface {
	Record(ctx context.Context, ev *model.OrderEvent) error
}

type nopSink struct{}

func (nopSink) Record(context.Context, *model.OrderEvent) error { return nil }

// Nop discards every event.
func Nop() Sink { return nopSink{} }

type multiSink []Sink

// Multi fans an event out to every sink, returning all errors joined.
func Multi(sinks ...Sink) Sink {
	return multiSink(sinks)
}

func (m multiSink) Record(ctx context.Context, ev *model.OrderEvent) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
