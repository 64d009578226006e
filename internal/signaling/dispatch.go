package signaling

import (
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/mossy-p/call-signaling/internal/calls"
	"github.com/mossy-p/call-signaling/internal/models"
)

func (h *Hub) dispatch(connID string, msg models.Message) {
	if msg.Type.IsRelay() {
		h.relay(connID, msg)
		return
	}

	switch msg.Type {
	case models.EventRegister:
		h.handleRegister(connID, msg)
	case models.EventInitiateCall:
		h.handleInitiate(connID, msg)
	case models.EventAcceptCall:
		h.handleAccept(connID, msg)
	case models.EventRejectCall:
		h.handleReject(connID, msg)
	case models.EventEndCall:
		h.handleEnd(connID, msg)
	case models.EventRequestOffer:
		h.handleRequestOffer(connID, msg)
	case models.EventPing:
		h.Send(connID, models.Message{Type: models.EventPong})
	default:
		log.Warn().Str("module", "signaling").Str("conn", connID).Str("type", string(msg.Type)).Msg("unknown message type")
		h.protocolError(connID, models.CodeUnknownType, "")
	}
}

func (h *Hub) handleRegister(connID string, msg models.Message) {
	if msg.UserID == "" {
		h.protocolError(connID, models.CodeInvalidPayload, "userId is required")
		return
	}
	if id := h.peers[connID].Identity(); id != "" && id != msg.UserID {
		log.Warn().Str("module", "signaling").Str("conn", connID).
			Str("identity", id).Str("user_id", msg.UserID).Msg("register rejected: identity mismatch")
		h.protocolError(connID, models.CodeForbidden, "")
		return
	}

	prev, registered := h.registry.ResolveByConnection(connID)
	unchanged := registered && prev == msg.UserID

	// Switching identity on the same socket releases the old one first.
	if registered && !unchanged {
		h.disconnects.Handle(connID)
	}

	if evicted := h.registry.Register(msg.UserID, connID); evicted != "" {
		log.Info().Str("module", "signaling").Str("user_id", msg.UserID).
			Str("from", evicted).Str("to", connID).Msg("user reconnecting")
		h.Send(evicted, models.Message{
			Type:         models.EventSessionReplaced,
			UserID:       msg.UserID,
			ConnectionID: connID,
		})
	}

	log.Info().Str("module", "signaling").Str("user_id", msg.UserID).
		Str("name", msg.DisplayName).Str("conn", connID).Msg("user registered")

	h.Send(connID, models.Message{
		Type:         models.EventRegistered,
		UserID:       msg.UserID,
		DisplayName:  msg.DisplayName,
		ConnectionID: connID,
	})
	h.Send(connID, models.Message{
		Type:  models.EventOnlineUsers,
		Users: h.registry.SnapshotUserIDs(),
	})
	if unchanged {
		return
	}
	online := true
	h.Broadcast(models.Message{
		Type:        models.EventUserStatusChange,
		UserID:      msg.UserID,
		DisplayName: msg.DisplayName,
		IsOnline:    &online,
	}, connID)
	h.presence.Online(msg.UserID, connID)
}

func (h *Hub) handleInitiate(connID string, msg models.Message) {
	callerID, ok := h.registry.ResolveByConnection(connID)
	if !ok {
		h.callError(connID, msg.CallID, models.CodeNotRegistered)
		return
	}
	if msg.CallID == "" || msg.CalleeID == "" {
		h.callError(connID, msg.CallID, models.CodeInvalidPayload)
		return
	}
	if msg.CallerID != "" && msg.CallerID != callerID {
		log.Warn().Str("module", "signaling").Str("call_id", msg.CallID).
			Str("claimed", msg.CallerID).Str("registered", callerID).Msg("callerId overridden by registered identity")
	}

	s, notices, err := h.calls.Initiate(msg.CallID, callerID, msg.CalleeID, connID, msg.CallerName)
	if err != nil {
		log.Info().Err(err).Str("module", "signaling").Str("call_id", msg.CallID).Msg("initiate failed")
		h.callError(connID, msg.CallID, ErrorCode(err))
		return
	}

	log.Info().Str("module", "signaling").Str("call_id", s.ID).
		Str("caller", s.CallerID).Str("callee", s.CalleeID).Msg("call initiated")
	h.Notify(s, notices)
}

func (h *Hub) handleAccept(connID string, msg models.Message) {
	if !h.authorizeParty(connID, msg, calls.RoleCallee) {
		return
	}
	s, notices, err := h.calls.Accept(msg.CallID)
	if err != nil {
		h.callError(connID, msg.CallID, ErrorCode(err))
		return
	}
	log.Info().Str("module", "signaling").Str("call_id", s.ID).Msg("call accepted")

	// The withheld offer goes straight to the accepting socket.
	if e, ok := h.offers.TakeIfPresent(s.ID); ok {
		log.Info().Str("module", "signaling").Str("call_id", s.ID).
			Dur("waited", h.clock.Since(e.BufferedAt)).Msg("delivering buffered offer")
		h.Send(connID, models.Message{Type: models.EventOffer, CallID: s.ID, Payload: e.Payload})
	}
	h.Notify(s, notices)
}

func (h *Hub) handleReject(connID string, msg models.Message) {
	if !h.authorizeParty(connID, msg) {
		return
	}
	s, notices, err := h.calls.Reject(msg.CallID)
	if err != nil {
		h.callError(connID, msg.CallID, ErrorCode(err))
		return
	}
	h.offers.DropForCall(s.ID)
	log.Info().Str("module", "signaling").Str("call_id", s.ID).Msg("call rejected")
	h.Notify(s, notices)
}

// authorizeParty checks that connID belongs to a party of msg.CallID and,
// when roles are given, that it plays one of them. Failures are reported to
// the sender and leave the session untouched.
func (h *Hub) authorizeParty(connID string, msg models.Message, roles ...calls.Role) bool {
	s, ok := h.calls.Get(msg.CallID)
	if !ok {
		h.callError(connID, msg.CallID, models.CodeCallNotFound)
		return false
	}
	role, ok := h.partyRole(s, connID)
	if ok && len(roles) > 0 {
		ok = slices.Contains(roles, role)
	}
	if !ok {
		log.Warn().Str("module", "signaling").Str("call_id", s.ID).Str("conn", connID).
			Str("type", string(msg.Type)).Msg("call action from non-party rejected")
		h.callError(connID, msg.CallID, models.CodeNotCallParty)
		return false
	}
	return true
}

func (h *Hub) handleEnd(connID string, msg models.Message) {
	s, notices, ok := h.calls.End(msg.CallID)
	if !ok {
		log.Debug().Str("module", "signaling").Str("call_id", msg.CallID).Str("conn", connID).Msg("end for absent call ignored")
		return
	}
	h.offers.DropForCall(s.ID)
	log.Info().Str("module", "signaling").Str("call_id", s.ID).Msg("call ended")
	h.Notify(s, notices)
}

func (h *Hub) handleRequestOffer(connID string, msg models.Message) {
	if !h.calls.Exists(msg.CallID) {
		h.callError(connID, msg.CallID, models.CodeCallNotFound)
		return
	}
	requester, ok := h.registry.ResolveByConnection(connID)
	if !ok {
		h.callError(connID, msg.CallID, models.CodeNotRegistered)
		return
	}
	target, ok := h.registry.ResolveByUser(msg.TargetUserID)
	if !ok {
		log.Warn().Str("module", "signaling").Str("call_id", msg.CallID).
			Str("target", msg.TargetUserID).Msg("requestOffer target offline")
		return
	}

	log.Info().Str("module", "signaling").Str("call_id", msg.CallID).Str("target", msg.TargetUserID).Msg("requesting offer")
	h.Send(target, models.Message{
		Type:         models.EventRequestOffer,
		CallID:       msg.CallID,
		TargetUserID: requester,
	})
}
