// Package signaling is the call-signaling core: a single event loop that owns
// the connection registry, the call sessions and the offer buffer.
//
// Every inbound event (socket attach, message, socket loss, sweep tick) is
// handled to completion before the next one is taken off the queue, so the
// components need no locking. Outbound sends never block the loop.
package signaling

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"

	"github.com/mossy-p/call-signaling/internal/calls"
	"github.com/mossy-p/call-signaling/internal/models"
	"github.com/mossy-p/call-signaling/internal/offers"
	"github.com/mossy-p/call-signaling/internal/registry"
)

const (
	DefaultSweepInterval = time.Minute
	defaultQueueSize     = 1024
)

// Peer is one live duplex channel as seen by the hub
type Peer interface {
	ID() string
	// Send queues msg without blocking; false means it was dropped.
	Send(msg models.Message) bool
	// Identity is the authenticated user id, empty for anonymous sockets.
	Identity() string
	UserAgent() string
}

// PresenceSink mirrors presence changes elsewhere. Implementations must not block.
type PresenceSink interface {
	Online(userID, connID string)
	Offline(userID string)
}

type nopPresence struct{}

func (nopPresence) Online(string, string) {}
func (nopPresence) Offline(string)        {}

// Config tunes a Hub. Zero values select defaults.
type Config struct {
	Clock         clock.Clock
	OfferTTL      time.Duration
	SweepInterval time.Duration
	QueueSize     int
	Presence      PresenceSink
}

type eventKind int

const (
	eventAttach eventKind = iota
	eventMessage
	eventDetach
)

type event struct {
	kind   eventKind
	peer   Peer
	connID string
	msg    models.Message
}

// Hub serializes all signaling state changes
type Hub struct {
	registry    *registry.Registry
	calls       *calls.Manager
	offers      *offers.Buffer
	disconnects *DisconnectCoordinator
	presence    PresenceSink

	// attached sockets, registered or not
	peers map[string]Peer

	clock         clock.Clock
	sweepInterval time.Duration
	events        chan event
	done          chan struct{}

	registered atomic.Int64
	live       atomic.Int64
	buffered   atomic.Int64
	sockets    atomic.Int64
}

// New wires the four core components together
func New(cfg Config) *Hub {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	presence := cfg.Presence
	if presence == nil {
		presence = nopPresence{}
	}

	reg := registry.New()
	mgr := calls.NewManager(reg, clk)
	buf := offers.New(mgr, clk, cfg.OfferTTL)

	h := &Hub{
		registry:      reg,
		calls:         mgr,
		offers:        buf,
		presence:      presence,
		peers:         make(map[string]Peer),
		clock:         clk,
		sweepInterval: cfg.SweepInterval,
		events:        make(chan event, cfg.QueueSize),
		done:          make(chan struct{}),
	}
	h.disconnects = NewDisconnectCoordinator(reg, mgr, buf, h, presence)
	return h
}

// Run processes events until ctx is cancelled. The offer sweep runs on the
// same loop and stops with it.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	ticker := h.clock.Ticker(h.sweepInterval)
	defer ticker.Stop()

	log.Info().Str("module", "signaling").
		Dur("offer_ttl", h.offers.TTL()).
		Dur("sweep_interval", h.sweepInterval).
		Msg("hub started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signaling").Msg("hub stopped")
			return nil
		case ev := <-h.events:
			h.handle(ev)
		case <-ticker.C:
			h.sweep()
		}
	}
}

// Connect attaches a new socket
func (h *Hub) Connect(p Peer) bool {
	return h.submit(event{kind: eventAttach, peer: p, connID: p.ID()})
}

// Deliver queues an inbound message from connID
func (h *Hub) Deliver(connID string, msg models.Message) bool {
	return h.submit(event{kind: eventMessage, connID: connID, msg: msg})
}

// Disconnect reports the loss of connID
func (h *Hub) Disconnect(connID string) bool {
	return h.submit(event{kind: eventDetach, connID: connID})
}

func (h *Hub) submit(ev event) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.events <- ev:
		return true
	case <-h.done:
		return false
	}
}

// Counters is safe to call from any goroutine
func (h *Hub) Counters() models.Counters {
	return models.Counters{
		RegisteredConnections: int(h.registered.Load()),
		ActiveCalls:           int(h.live.Load()),
		BufferedOffers:        int(h.buffered.Load()),
		AttachedSockets:       int(h.sockets.Load()),
	}
}

func (h *Hub) handle(ev event) {
	switch ev.kind {
	case eventAttach:
		h.peers[ev.connID] = ev.peer
		log.Debug().Str("module", "signaling").Str("conn", ev.connID).Msg("socket attached")
	case eventDetach:
		delete(h.peers, ev.connID)
		h.disconnects.Handle(ev.connID)
		log.Debug().Str("module", "signaling").Str("conn", ev.connID).Msg("socket detached")
	case eventMessage:
		if _, ok := h.peers[ev.connID]; !ok {
			log.Warn().Str("module", "signaling").Str("conn", ev.connID).
				Str("type", string(ev.msg.Type)).Msg("message from detached socket dropped")
			break
		}
		h.dispatch(ev.connID, ev.msg)
	}
	h.publishCounters()
}

func (h *Hub) sweep() {
	for _, callID := range h.offers.PurgeExpired(h.clock.Now()) {
		log.Info().Str("module", "signaling").Str("call_id", callID).Msg("expired buffered offer purged")
	}
	h.publishCounters()
}

func (h *Hub) publishCounters() {
	h.registered.Store(int64(h.registry.Len()))
	h.live.Store(int64(h.calls.Len()))
	h.buffered.Store(int64(h.offers.Len()))
	h.sockets.Store(int64(len(h.peers)))
}
