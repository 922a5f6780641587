package bus

import (
	"sync"

	"github.com/google/uuid"
)

// MessageType tags an envelope with its handler.
type MessageType string

// Request and signal types exchanged between contexts.
const (
	// Routed requests handled by the background dispatcher
	MsgRunOCR       MessageType = "run-ocr"
	MsgRunParse     MessageType = "run-parse"
	MsgTestProvider MessageType = "test-provider"
	MsgListModels   MessageType = "list-models"
	MsgValidateKey  MessageType = "validate-key"
	MsgGetSettings  MessageType = "get-settings"

	// Capture pipeline signals
	MsgScreenshot   MessageType = "screenshot"
	MsgOpenPopup    MessageType = "open-popup"
	MsgPopupReady   MessageType = "popup-ready"
	MsgDeliverImage MessageType = "deliver-image"
	MsgOpenOptions  MessageType = "open-options"

	// MsgResponse carries a Result back to the requesting context
	MsgResponse MessageType = "response"
)

// Envelope is the unit of cross-context communication. Payload contents
// are owned by the receiver once sent; senders must not retain references.
type Envelope struct {
	Type      MessageType
	RequestID string
	From      string

	// Provider and Model carry optional routing overrides for request types
	Provider string
	Model    string

	Payload any
}

// NewRequestID returns a fresh correlation identifier.
func NewRequestID() string {
	return uuid.NewString()
}

// Latest tracks the most recent request ID issued by a consumer so late
// responses to superseded requests can be detected and discarded. Once a
// network call is in flight it cannot be cancelled; superseding it only
// means its eventual response is ignored.
type Latest struct {
	mu sync.Mutex
	id string
}

// Begin issues a new request ID, superseding any outstanding one.
func (l *Latest) Begin() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.id = uuid.NewString()
	return l.id
}

// Accept reports whether a response with the given request ID corresponds
// to the current in-flight request. Stale IDs are rejected.
func (l *Latest) Accept(requestID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return requestID != "" && requestID == l.id
}

// Clear forgets the in-flight request; subsequent responses are all stale.
func (l *Latest) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.id = ""
}
