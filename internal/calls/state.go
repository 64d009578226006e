package calls

import (
	"errors"
	"fmt"

	"github.com/mossy-p/call-signaling/internal/models"
)

var (
	ErrUserOffline  = errors.New("user is not online")
	ErrCallNotFound = errors.New("call not found")
	ErrCallExists   = errors.New("call already exists")
)

// State is the lifecycle state of a call. Only pending and active are stored;
// removed is what every terminal transition leads to.
type State string

const (
	StatePending State = "pending"
	StateActive  State = "active"
	StateRemoved State = "removed"
)

// Action drives a transition
type Action int

const (
	ActionAccept Action = iota
	ActionReject
	ActionEnd
	ActionCallerDisconnect
	ActionCalleeDisconnect
)

func (a Action) String() string {
	switch a {
	case ActionAccept:
		return "accept"
	case ActionReject:
		return "reject"
	case ActionEnd:
		return "end"
	case ActionCallerDisconnect:
		return "caller-disconnect"
	case ActionCalleeDisconnect:
		return "callee-disconnect"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Role selects one side of a session
type Role int

const (
	RoleCaller Role = iota
	RoleCallee
)

// Notice is an outbound notification produced by a transition. The hub
// resolves Role to the connection snapshotted in the session.
type Notice struct {
	To   Role
	Type models.EventType
}

// Transition is the call state machine. It never mutates anything; the
// Manager applies the returned state.
func Transition(from State, action Action) (State, []Notice, error) {
	if from != StatePending && from != StateActive {
		return StateRemoved, nil, ErrCallNotFound
	}

	switch action {
	case ActionAccept:
		return StateActive, []Notice{
			{To: RoleCaller, Type: models.EventCallAccepted},
			{To: RoleCallee, Type: models.EventCallAccepted},
		}, nil
	case ActionReject:
		return StateRemoved, []Notice{
			{To: RoleCaller, Type: models.EventCallRejected},
		}, nil
	case ActionEnd:
		return StateRemoved, []Notice{
			{To: RoleCaller, Type: models.EventCallEnded},
			{To: RoleCallee, Type: models.EventCallEnded},
		}, nil
	case ActionCallerDisconnect:
		return StateRemoved, []Notice{{To: RoleCallee, Type: models.EventCallEnded}}, nil
	case ActionCalleeDisconnect:
		return StateRemoved, []Notice{{To: RoleCaller, Type: models.EventCallEnded}}, nil
	}
	return from, nil, fmt.Errorf("calls: unknown %s", action)
}
