package events

import (
	"context"
	"errors"
	"fmt"
)

// Fanout hands each entry to every named handler. Handlers that already
// succeeded for an entry are skipped when a sibling's failure causes a retry.
type Fanout struct {
	processed Processed
	handlers  []namedHandler
}

type namedHandler struct {
	name    string
	handler DeliveryHandler
}

func NewFanout(processed Processed) *Fanout {
	if processed == nil {
		processed = NewMemoryProcessed()
	}
	return &Fanout{processed: processed}
}

// Add registers a handler under a stable name used for dedup bookkeeping.
func (f *Fanout) Add(name string, h DeliveryHandler) *Fanout {
	if h != nil {
		f.handlers = append(f.handlers, namedHandler{name: name, handler: h})
	}
	return f
}

func (f *Fanout) Handle(ctx context.Context, entry OutboxEntry) error {
	var errs []error
	eventID := entry.ID.String()
	for _, nh := range f.handlers {
		done, err := f.processed.AlreadyProcessed(ctx, nh.name, eventID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if done {
			continue
		}
		if err := nh.handler.Handle(ctx, entry); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", nh.name, err))
			continue
		}
		if _, err := f.processed.MarkProcessed(ctx, nh.name, eventID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
