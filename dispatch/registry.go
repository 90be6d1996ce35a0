// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dispatch implements the event/handler registry described
// in SPEC_FULL.md §4.1: one Event has N Handlers, invoked serially in
// registration order; a handler's error is appended to a per-dispatch
// list without aborting the handlers after it.
//
// This generalizes perfsession.Session.Update's type-switch dispatch
// (from the teacher repo this package grew out of) into a registry
// indexed by event id rather than a Go type switch, and borrows its
// "log and continue" error policy from the observer pattern used by
// other_examples' tetragon pkg/observer (iterate listeners, record
// each error, never stop the loop early).
package dispatch

import (
	"github.com/sirupsen/logrus"

	"github.com/aclements/go-traceprobe/tracefmt"
)

// Handler is a callable invoked once per matching record. Handlers
// must not block (SPEC_FULL.md §5): heavy work should be queued into
// the handler's own owned state and processed at flush time.
type Handler func(tracefmt.EventData) error

// Event binds a numeric id and a schema to an ordered list of
// handlers.
type Event struct {
	ID     uint64
	Name   string
	Format *tracefmt.EventFormat

	handlers []Handler
}

// AddHandler registers h to run on every dispatch of this event,
// after any handler already registered.
func (e *Event) AddHandler(h Handler) {
	e.handlers = append(e.handlers, h)
}

// setDynamicOffsets updates every RelativeOffset field's backing
// DataFieldRef before any handler observes this record. This
// implements SPEC_FULL.md's resolution of the Open Question in
// spec.md §9: the update happens strictly before any handler runs.
func (e *Event) setDynamicOffsets(offsets map[tracefmt.FieldRef]uint32) {
	for ref, off := range offsets {
		e.Format.Field(ref).Dynamic.Set(off)
	}
}

func (e *Event) dispatch(data tracefmt.EventData) []error {
	var errs []error
	for _, h := range e.handlers {
		if err := h(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Registry holds the set of known events, keyed by event id.
type Registry struct {
	events map[uint64]*Event
	log    logrus.FieldLogger
}

// NewRegistry creates an empty registry. log may be nil, in which
// case logrus.StandardLogger() is used.
func NewRegistry(log logrus.FieldLogger) *Registry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Registry{events: make(map[uint64]*Event), log: log}
}

// Register adds a new event to the registry. It is only safe to call
// between sessions, per spec.md §3's Event invariant ("Mutated only
// between sessions (handler addition) or during dispatch (error
// accumulation)").
func (r *Registry) Register(id uint64, name string, format *tracefmt.EventFormat) *Event {
	e := &Event{ID: id, Name: name, Format: format}
	r.events[id] = e
	return e
}

// Lookup returns the event registered under id, or nil.
func (r *Registry) Lookup(id uint64) *Event {
	return r.events[id]
}

// Dispatch locates the event named by id, updates its dynamic field
// offsets (if any), and invokes its handlers in registration order
// over data. Per §4.1's dispatch policy, handler errors never abort
// dispatch of the remaining handlers; they are returned as a list.
// An unknown event id is itself reported as a SchemaError in that
// same list, and dispatch of course invokes no handlers.
func (r *Registry) Dispatch(id uint64, dynamicOffsets map[tracefmt.FieldRef]uint32, data tracefmt.EventData) []error {
	e := r.events[id]
	if e == nil {
		r.log.WithField("event_id", id).Debug("dispatch: unknown event id")
		return []error{&tracefmt.SchemaError{Format: "<unknown>", Field: "", Reason: "unknown event id"}}
	}
	if len(dynamicOffsets) > 0 {
		e.setDynamicOffsets(dynamicOffsets)
	}
	errs := e.dispatch(data)
	for _, err := range errs {
		r.log.WithField("event", e.Name).WithError(err).Warn("handler error")
	}
	return errs
}
