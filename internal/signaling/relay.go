package signaling

import (
	"github.com/rs/zerolog/log"

	"github.com/mossy-p/call-signaling/internal/calls"
	"github.com/mossy-p/call-signaling/internal/models"
)

// relay forwards offer, answer, iceCandidate and screenShareStatus payloads
// verbatim. Unknown calls are dropped without telling the sender: it may
// already hold an ended/rejected notice that raced its own send.
func (h *Hub) relay(connID string, msg models.Message) {
	s, ok := h.calls.Get(msg.CallID)
	if !ok {
		log.Warn().Str("module", "signaling").Str("type", string(msg.Type)).
			Str("call_id", msg.CallID).Str("conn", connID).Msg("relay for unknown call dropped")
		return
	}

	from, ok := h.senderSide(s, connID)
	if !ok {
		log.Warn().Str("module", "signaling").Str("type", string(msg.Type)).
			Str("call_id", s.ID).Str("conn", connID).Msg("relay from non-party dropped")
		return
	}
	to := calls.CounterpartConnection(s, from)
	out := models.Message{Type: msg.Type, CallID: s.ID, Payload: msg.Payload}

	if h.Reachable(to) {
		h.Send(to, out)
		log.Debug().Str("module", "signaling").Str("type", string(msg.Type)).
			Str("call_id", s.ID).Str("to", to).Msg("relayed")
		return
	}

	if msg.Type != models.EventOffer {
		log.Debug().Str("module", "signaling").Str("type", string(msg.Type)).
			Str("call_id", s.ID).Str("to", to).Msg("relay target unreachable, dropped")
		return
	}

	prev, replaced, err := h.offers.Buffer(s.ID, msg.Payload, connID, to)
	if err != nil {
		log.Error().Err(err).Str("module", "signaling").Str("call_id", s.ID).Msg("offer buffering failed")
		return
	}
	if replaced {
		log.Warn().Str("module", "signaling").Str("call_id", s.ID).
			Time("previous_buffered_at", prev.BufferedAt).Msg("buffered offer replaced by newer offer")
		return
	}
	log.Info().Str("module", "signaling").Str("call_id", s.ID).Str("to", to).Msg("offer buffered")
}

// senderSide maps the sending socket onto one of the session's snapshotted
// connections. A party that reconnected on a new socket still routes as its
// original side.
func (h *Hub) senderSide(s calls.Session, connID string) (string, bool) {
	role, ok := h.partyRole(s, connID)
	if !ok {
		return "", false
	}
	return s.Connection(role), true
}

// partyRole resolves connID to its side of s. A registered socket is judged
// by its identity; an unregistered one only by the snapshotted connections.
func (h *Hub) partyRole(s calls.Session, connID string) (calls.Role, bool) {
	if userID, ok := h.registry.ResolveByConnection(connID); ok {
		return s.RoleOf(userID)
	}
	switch connID {
	case s.CallerConn:
		return calls.RoleCaller, true
	case s.CalleeConn:
		return calls.RoleCallee, true
	}
	return 0, false
}
