// Package persistence holds the change feed sinks that forward document
// change events from the in-process bus to external brokers.
package persistence

import (
	"context"
	"fmt"

	"docstore-gateway/internal/docstore/domain/model"
	"docstore-gateway/internal/shared/eventbus"
)

// ChangeFeedSink receives change events from the bus.
type ChangeFeedSink interface {
	Name() string
	Handle(ctx context.Context, event eventbus.Event) error
	Ping(ctx context.Context) error
}

// Attach subscribes sink to every document change type.
func Attach(bus *eventbus.EventBus, sink ChangeFeedSink) {
	types := make([]string, 0, len(model.AllChangeTypes))
	for _, t := range model.AllChangeTypes {
		types = append(types, string(t))
	}
	bus.Subscribe(sink.Handle, types...)
}

func changeEventFrom(event eventbus.Event) (model.ChangeEvent, error) {
	switch data := event.Data().(type) {
	case model.ChangeEvent:
		return data, nil
	case *model.ChangeEvent:
		if data != nil {
			return *data, nil
		}
	}
	return model.ChangeEvent{}, fmt.Errorf("unexpected payload %T for event %s", event.Data(), event.Type())
}
