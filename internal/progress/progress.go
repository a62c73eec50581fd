// Package progress implements a side progress channel: a stream of
// status events kept separate from result output so that piping query
// results stays safe.
package progress

import (
	"fmt"
	"log"
)

// EventKind names the category of a progress event.
type EventKind string

const (
	EventWalk       EventKind = "walk"
	EventIndexFile  EventKind = "index_file"
	EventEmbedBatch EventKind = "embed_batch"
	EventEviction   EventKind = "session_eviction"
	EventWarning    EventKind = "warning"
)

// Event is one message on the progress channel.
type Event struct {
	Kind       EventKind
	Path       string // relevant file path, if any
	ChunkCount int    // for EventIndexFile
	Done       int    // processed count, for EventWalk/EventEmbedBatch
	Total      int    // total count, if known (0 = unknown)
	Message    string
}

// Sink receives progress events. A Reporter created with quiet set drops
// every event before it reaches its Sink.
type Sink interface {
	Report(Event)
}

// Reporter fans events out to a Sink without blocking the caller on a full
// channel; it never blocks indexing on a slow or absent consumer.
type Reporter struct {
	ch    chan Event
	sink  Sink
	quiet bool
}

// NewReporter creates a Reporter backed by a buffered channel. If quiet is
// true (config key quiet_mode), events are dropped instead of logged.
func NewReporter(sink Sink, quiet bool) *Reporter {
	r := &Reporter{ch: make(chan Event, 256), sink: sink, quiet: quiet}
	go r.drain()
	return r
}

func (r *Reporter) drain() {
	for ev := range r.ch {
		if r.quiet {
			continue
		}
		if r.sink != nil {
			r.sink.Report(ev)
		}
	}
}

// Emit sends an event, dropping it rather than blocking if the channel is
// saturated — progress reporting must never slow down indexing.
func (r *Reporter) Emit(ev Event) {
	select {
	case r.ch <- ev:
	default:
	}
}

// Close stops the drain goroutine. Safe to call once.
func (r *Reporter) Close() { close(r.ch) }

// LogSink is the default Sink: writes to a standard log.Logger. No pack
// repo wires a structured logging library into application code (zerolog
// appears only as an indirect, unexercised transitive dependency), so the
// default sink stays on the standard library rather than adopt a dependency
// nothing else in the module would exercise.
type LogSink struct {
	Logger *log.Logger
}

func (s LogSink) Report(ev Event) {
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}
	switch ev.Kind {
	case EventIndexFile:
		logger.Printf("index: %s (%d chunks)", ev.Path, ev.ChunkCount)
	case EventWalk:
		logger.Printf("walk: %d/%d", ev.Done, ev.Total)
	case EventEmbedBatch:
		logger.Printf("embed: batch %d/%d", ev.Done, ev.Total)
	case EventEviction:
		logger.Printf("session: evicted %s", ev.Path)
	case EventWarning:
		logger.Printf("warning: %s", ev.Message)
	default:
		logger.Printf("%s: %s", ev.Kind, ev.Message)
	}
}

// NoopSink discards every event.
type NoopSink struct{}

func (NoopSink) Report(Event) {}

// Warningf is a convenience for emitting a formatted warning event.
func (r *Reporter) Warningf(format string, args ...any) {
	r.Emit(Event{Kind: EventWarning, Message: fmt.Sprintf(format, args...)})
}
