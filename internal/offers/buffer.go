// Package offers holds at most one undelivered offer per call.
package offers

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultTTL bounds how long an offer stays deliverable
const DefaultTTL = 5 * time.Minute

var ErrUnknownCall = errors.New("offer for unknown call")

// CallChecker reports whether a call is still live
type CallChecker interface {
	Exists(callID string) bool
}

// Entry is a withheld offer
type Entry struct {
	CallID     string
	Payload    json.RawMessage
	From       string
	To         string
	BufferedAt time.Time
}

// Buffer is the offer slot table. Not safe for concurrent use.
type Buffer struct {
	calls   CallChecker
	clock   clock.Clock
	ttl     time.Duration
	entries map[string]Entry
}

// New creates a buffer. A zero ttl means DefaultTTL.
func New(calls CallChecker, clk clock.Clock, ttl time.Duration) *Buffer {
	if clk == nil {
		clk = clock.New()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Buffer{
		calls:   calls,
		clock:   clk,
		ttl:     ttl,
		entries: make(map[string]Entry),
	}
}

// Buffer stores payload in the slot for callID, overwriting any previous
// entry. The returned previous entry is only meaningful when replaced is true.
func (b *Buffer) Buffer(callID string, payload json.RawMessage, from, to string) (prev Entry, replaced bool, err error) {
	if !b.calls.Exists(callID) {
		return Entry{}, false, fmt.Errorf("buffer %q: %w", callID, ErrUnknownCall)
	}
	prev, replaced = b.entries[callID]
	b.entries[callID] = Entry{
		CallID:     callID,
		Payload:    payload,
		From:       from,
		To:         to,
		BufferedAt: b.clock.Now(),
	}
	return prev, replaced, nil
}

// TakeIfPresent reads and removes the entry for callID
func (b *Buffer) TakeIfPresent(callID string) (Entry, bool) {
	e, ok := b.entries[callID]
	if ok {
		delete(b.entries, callID)
	}
	return e, ok
}

// DropForCall discards the entry for callID
func (b *Buffer) DropForCall(callID string) bool {
	_, ok := b.entries[callID]
	delete(b.entries, callID)
	return ok
}

// PurgeExpired removes every entry older than the ttl and returns their call ids
func (b *Buffer) PurgeExpired(now time.Time) []string {
	var expired []string
	for id, e := range b.entries {
		if now.Sub(e.BufferedAt) > b.ttl {
			delete(b.entries, id)
			expired = append(expired, id)
		}
	}
	return expired
}

// Len returns the number of buffered offers
func (b *Buffer) Len() int {
	return len(b.entries)
}

// TTL returns the configured expiry
func (b *Buffer) TTL() time.Duration {
	return b.ttl
}
