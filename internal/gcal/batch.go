package gcal

import (
	"time"

	"github.com/google/uuid"
)

// OpKind selects the event mutation an Operation performs.
type OpKind int

const (
	// OpCreate inserts a new event; the response carries its ID.
	OpCreate OpKind = iota
	// OpPatch updates fields of an existing event in place.
	OpPatch
)

func (k OpKind) String() string {
	switch k {
	case OpCreate:
		return "create"
	case OpPatch:
		return "patch"
	default:
		return "unknown"
	}
}

// Event is the subset of a calendar event gradecal writes. Start doubles as
// the end time: assignments are rendered as zero-length events at their
// deadline. Empty fields are left untouched by a patch.
type Event struct {
	Summary     string
	Description string
	Start       time.Time
	ColorID     string
}

// Operation is one mutation queued in a Batch. EventID is required for
// OpPatch and ignored for OpCreate.
type Operation struct {
	Kind    OpKind
	EventID string
	Event   Event
}

// Response is the part of an API response callbacks can read.
type Response struct {
	ID string
}

// Callback receives the outcome of one operation. Exactly one of resp and
// err is non-nil.
type Callback func(requestID string, resp *Response, err error)

// Entry is a queued operation with its request ID and optional callback.
type Entry struct {
	RequestID string
	Op        Operation
	Callback  Callback
}

// Batch collects mutations against one calendar for execution in a single
// ExecuteBatch call. Not safe for concurrent use; build it on one goroutine.
type Batch struct {
	calendarID string
	entries    []Entry
}

// NewBatch returns an empty batch targeting calendarID.
func NewBatch(calendarID string) *Batch {
	return &Batch{calendarID: calendarID}
}

// Add queues op and returns the request ID that its callback will receive.
// cb may be nil.
func (b *Batch) Add(op Operation, cb Callback) string {
	id := uuid.NewString()
	b.entries = append(b.entries, Entry{RequestID: id, Op: op, Callback: cb})

	return id
}

// CalendarID returns the target calendar.
func (b *Batch) CalendarID() string {
	return b.calendarID
}

// Len returns the number of queued operations.
func (b *Batch) Len() int {
	return len(b.entries)
}

// Entries returns the queued operations in submission order.
func (b *Batch) Entries() []Entry {
	return b.entries
}

// Deliver invokes the callback of the i-th entry, if it has one.
func (b *Batch) Deliver(i int, resp *Response, err error) {
	e := b.entries[i]
	if e.Callback != nil {
		e.Callback(e.RequestID, resp, err)
	}
}
