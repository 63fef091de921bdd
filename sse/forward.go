package sse

import (
	"context"
	"encoding/json"

	"github.com/kbukum/melos/errors"
	"github.com/kbukum/melos/events"
	"github.com/kbukum/melos/logger"
)

// Envelope is the JSON payload of a forwarded event.
type Envelope struct {
	Type  events.Kind  `json:"type"`
	RunID string       `json:"run_id"`
	Data  events.Event `json:"data"`
}

// Encode renders e as a frame named after its kind.
func Encode(runID string, e events.Event) (Frame, error) {
	data, err := json.Marshal(Envelope{Type: e.Kind(), RunID: runID, Data: e})
	if err != nil {
		return Frame{}, errors.Internal(err)
	}
	return Frame{Event: string(e.Kind()), Data: data}, nil
}

// Forward broadcasts every event of sub to the clients watching runID.
//
// With an empty runID, Forward follows consecutive runs: events published
// before a CommandStarted (such as filter warnings) are held back and sent
// with that run once its id is known, and a CommandFinished ends the run so
// later events wait for the next one. Events still held when the
// subscription closes are dropped.
//
// Forward returns nil once the subscription closes, or the context error.
// The subscription is released on return.
func Forward(ctx context.Context, sub *events.Subscription, hub Broadcaster, runID string) error {
	defer sub.Unsubscribe()
	f := forwarder{hub: hub, runID: runID, follow: runID == "", log: logger.Get(logger.ComponentSSE)}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-sub.Events():
			if !ok {
				if len(f.held) > 0 {
					f.log.Debug("dropping events of a run that never started", logger.Fields(logger.FieldCount, len(f.held)))
				}
				return nil
			}
			f.handle(e)
		}
	}
}

type forwarder struct {
	hub    Broadcaster
	runID  string
	follow bool
	held   []events.Event
	log    *logger.Logger
}

func (f *forwarder) handle(e events.Event) {
	if !f.follow {
		f.send(e)
		return
	}
	switch ev := e.(type) {
	case events.CommandStarted:
		f.runID = ev.RunID
		held := f.held
		f.held = nil
		for _, h := range held {
			f.send(h)
		}
		f.send(e)
	case events.CommandFinished:
		if f.runID == "" {
			f.runID = ev.RunID
		}
		f.send(e)
		f.runID = ""
	default:
		if f.runID == "" {
			f.held = append(f.held, e)
			return
		}
		f.send(e)
	}
}

func (f *forwarder) send(e events.Event) {
	frame, err := Encode(f.runID, e)
	if err != nil {
		f.log.Warn("dropping event", logger.ErrorFields("forward", err))
		return
	}
	f.hub.Broadcast(ClientPattern(f.runID), frame)
}
