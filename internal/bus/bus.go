// Package bus provides asynchronous, at-most-once message passing between
// the isolated execution contexts (content, background, popup). Contexts
// share no memory; everything crossing a boundary travels in an Envelope.
package bus

import (
	"fmt"
	"sync"

	"github.com/jbird-nerd/CalendarCaptureExtension/internal/logger"
)

// Well-known context names.
const (
	ContextContent    = "content"
	ContextBackground = "background"
	ContextPopup      = "popup"
)

// Bus routes envelopes between registered endpoints. Delivery is
// at-most-once: sending to a full inbox drops the envelope, and sending to
// an unregistered context fails without side effects.
type Bus struct {
	mu        sync.Mutex
	endpoints map[string]*Endpoint
	logger    *logger.Logger
}

// Endpoint is one context's attachment to the bus.
type Endpoint struct {
	name  string
	bus   *Bus
	inbox chan Envelope
}

// New creates an empty bus.
func New(log *logger.Logger) *Bus {
	if log == nil {
		log = logger.Get()
	}
	return &Bus{
		endpoints: map[string]*Endpoint{},
		logger:    log,
	}
}

// Register attaches a context to the bus with a buffered inbox. Registering
// a name that is already attached replaces the previous endpoint; the old
// inbox is closed and any unread envelopes on it are lost.
func (b *Bus) Register(name string, buffer int) *Endpoint {
	b.mu.Lock()
	defer b.mu.Unlock()

	if old, ok := b.endpoints[name]; ok {
		close(old.inbox)
	}
	ep := &Endpoint{
		name:  name,
		bus:   b,
		inbox: make(chan Envelope, buffer),
	}
	b.endpoints[name] = ep
	return ep
}

// Unregister detaches a context. In-flight responses targeting it are
// dropped by subsequent Send calls, mirroring a closed popup window.
func (b *Bus) Unregister(ep *Endpoint) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current, ok := b.endpoints[ep.name]
	if !ok || current != ep {
		return
	}
	delete(b.endpoints, ep.name)
	close(ep.inbox)
}

// Send delivers an envelope to the named context. It never blocks: a full
// inbox drops the envelope (at-most-once), an unknown target is an error.
// The send happens under the bus lock, the same lock Register and
// Unregister close inboxes under, so an endpoint cannot be closed between
// the lookup and the delivery.
func (b *Bus) Send(to string, env Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ep, ok := b.endpoints[to]
	if !ok {
		return fmt.Errorf("no context registered as %q", to)
	}

	select {
	case ep.inbox <- env:
		return nil
	default:
		b.logger.WithFields("to", to, "type", env.Type).Warn("Inbox full, dropping envelope")
		return fmt.Errorf("inbox for %q is full", to)
	}
}

// Name returns the context name of this endpoint.
func (e *Endpoint) Name() string {
	return e.name
}

// Inbox returns the receive side of this endpoint. The channel is closed
// when the endpoint is unregistered or replaced.
func (e *Endpoint) Inbox() <-chan Envelope {
	return e.inbox
}

// Send delivers an envelope to another context, stamping this endpoint as
// the sender.
func (e *Endpoint) Send(to string, env Envelope) error {
	env.From = e.name
	return e.bus.Send(to, env)
}
