package models

import "encoding/json"

// EventType names a signaling message on the wire
type EventType string

// Inbound events
const (
	EventRegister          EventType = "register"
	EventInitiateCall      EventType = "initiateCall"
	EventAcceptCall        EventType = "acceptCall"
	EventRejectCall        EventType = "rejectCall"
	EventEndCall           EventType = "endCall"
	EventOffer             EventType = "offer"
	EventAnswer            EventType = "answer"
	EventICECandidate      EventType = "iceCandidate"
	EventScreenShareStatus EventType = "screenShareStatus"
	EventRequestOffer      EventType = "requestOffer"
	EventPing              EventType = "ping"
)

// Outbound events
const (
	EventRegistered       EventType = "registered"
	EventOnlineUsers      EventType = "onlineUsers"
	EventUserStatusChange EventType = "userStatusChange"
	EventIncomingCall     EventType = "incomingCall"
	EventCallAccepted     EventType = "callAccepted"
	EventCallRejected     EventType = "callRejected"
	EventCallEnded        EventType = "callEnded"
	EventCallError        EventType = "callError"
	EventSessionReplaced  EventType = "sessionReplaced"
	EventPong             EventType = "pong"
	EventError            EventType = "error"
)

// IsRelay reports whether the event carries an opaque payload that is
// forwarded to the other party of a call.
func (t EventType) IsRelay() bool {
	switch t {
	case EventOffer, EventAnswer, EventICECandidate, EventScreenShareStatus:
		return true
	}
	return false
}

// Message is the single envelope used in both directions on the signaling socket
type Message struct {
	Type         EventType       `json:"type"`
	CallID       string          `json:"callId,omitempty"`
	UserID       string          `json:"userId,omitempty"`
	DisplayName  string          `json:"displayName,omitempty"`
	ConnectionID string          `json:"connectionId,omitempty"`
	CallerID     string          `json:"callerId,omitempty"`
	CalleeID     string          `json:"calleeId,omitempty"`
	CallerName   string          `json:"callerName,omitempty"`
	TargetUserID string          `json:"targetUserId,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	IsOnline     *bool           `json:"isOnline,omitempty"`
	Users        []string        `json:"users,omitempty"`
	Browser      string          `json:"browser,omitempty"`
	Error        string          `json:"error,omitempty"`
	Code         string          `json:"code,omitempty"`
}

// Machine-readable codes carried in callError and error messages
const (
	CodeUserOffline    = "USER_OFFLINE"
	CodeCallNotFound   = "CALL_NOT_FOUND"
	CodeCallExists     = "CALL_EXISTS"
	CodeNotRegistered  = "NOT_REGISTERED"
	CodeInvalidPayload = "INVALID_PAYLOAD"
	CodeForbidden      = "FORBIDDEN"
	CodeNotCallParty   = "NOT_CALL_PARTY"
	CodeRateLimited    = "RATE_LIMITED"
	CodeUnknownType    = "UNKNOWN_TYPE"
	CodeInternal       = "INTERNAL"
)
