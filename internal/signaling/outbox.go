package signaling

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/mossy-p/call-signaling/internal/calls"
	"github.com/mossy-p/call-signaling/internal/compat"
	"github.com/mossy-p/call-signaling/internal/models"
)

// ErrorCode maps a core error to its wire code
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, calls.ErrUserOffline):
		return models.CodeUserOffline
	case errors.Is(err, calls.ErrCallNotFound):
		return models.CodeCallNotFound
	case errors.Is(err, calls.ErrCallExists):
		return models.CodeCallExists
	}
	return models.CodeInternal
}

var codeText = map[string]string{
	models.CodeUserOffline:    "User is not online",
	models.CodeCallNotFound:   "Call not found",
	models.CodeCallExists:     "Call already exists",
	models.CodeNotRegistered:  "Connection is not registered",
	models.CodeInvalidPayload: "Invalid payload",
	models.CodeForbidden:      "Identity does not match credentials",
	models.CodeNotCallParty:   "Not a party to this call",
	models.CodeUnknownType:    "Unknown message type",
	models.CodeInternal:       "Internal error",
}

// Reachable reports whether connID is attached and is the live connection of
// a registered user. Relays and notices only go to reachable connections.
func (h *Hub) Reachable(connID string) bool {
	if _, ok := h.peers[connID]; !ok {
		return false
	}
	_, ok := h.registry.ResolveByConnection(connID)
	return ok
}

// Send hands msg to the attached socket connID
func (h *Hub) Send(connID string, msg models.Message) bool {
	p, ok := h.peers[connID]
	if !ok {
		return false
	}
	if !p.Send(msg) {
		log.Warn().Str("module", "signaling").Str("conn", connID).
			Str("type", string(msg.Type)).Msg("send buffer full, message dropped")
		return false
	}
	return true
}

// Broadcast sends msg to every attached socket except one
func (h *Hub) Broadcast(msg models.Message, except string) {
	for id := range h.peers {
		if id != except {
			h.Send(id, msg)
		}
	}
}

// Notify delivers transition notices to the connections snapshotted in s
func (h *Hub) Notify(s calls.Session, notices []calls.Notice) {
	for _, n := range notices {
		conn := s.Connection(n.To)
		if !h.Reachable(conn) {
			log.Debug().Str("module", "signaling").Str("call_id", s.ID).Str("conn", conn).
				Str("type", string(n.Type)).Msg("notice target unreachable")
			continue
		}
		h.Send(conn, h.noticeMessage(s, n))
	}
}

func (h *Hub) noticeMessage(s calls.Session, n calls.Notice) models.Message {
	msg := models.Message{Type: n.Type, CallID: s.ID}
	if n.Type == models.EventIncomingCall {
		msg.CallerID = s.CallerID
		msg.CallerName = s.CallerName
		if p, ok := h.peers[s.CallerConn]; ok {
			msg.Browser = compat.Label(p.UserAgent())
		}
	}
	return msg
}

func (h *Hub) callError(connID, callID, code string) {
	h.Send(connID, models.Message{
		Type:   models.EventCallError,
		CallID: callID,
		Error:  codeText[code],
		Code:   code,
	})
}

func (h *Hub) protocolError(connID, code, detail string) {
	text := codeText[code]
	if detail != "" {
		text = detail
	}
	h.Send(connID, models.Message{Type: models.EventError, Error: text, Code: code})
}
