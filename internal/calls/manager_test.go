package calls

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossy-p/call-signaling/internal/models"
)

type fakeResolver map[string]string

func (f fakeResolver) ResolveByUser(userID string) (string, bool) {
	c, ok := f[userID]
	return c, ok
}

func newTestManager() (*Manager, *clock.Mock) {
	clk := clock.NewMock()
	return NewManager(fakeResolver{"u1": "c1", "u2": "c2", "u3": "c3"}, clk), clk
}

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		action  Action
		want    State
		notices []Notice
		wantErr error
	}{
		{
			name: "pending accept", from: StatePending, action: ActionAccept, want: StateActive,
			notices: []Notice{{RoleCaller, models.EventCallAccepted}, {RoleCallee, models.EventCallAccepted}},
		},
		{
			name: "active accept is idempotent", from: StateActive, action: ActionAccept, want: StateActive,
			notices: []Notice{{RoleCaller, models.EventCallAccepted}, {RoleCallee, models.EventCallAccepted}},
		},
		{
			name: "pending reject", from: StatePending, action: ActionReject, want: StateRemoved,
			notices: []Notice{{RoleCaller, models.EventCallRejected}},
		},
		{
			name: "active end", from: StateActive, action: ActionEnd, want: StateRemoved,
			notices: []Notice{{RoleCaller, models.EventCallEnded}, {RoleCallee, models.EventCallEnded}},
		},
		{
			name: "caller disconnect", from: StatePending, action: ActionCallerDisconnect, want: StateRemoved,
			notices: []Notice{{RoleCallee, models.EventCallEnded}},
		},
		{
			name: "callee disconnect", from: StateActive, action: ActionCalleeDisconnect, want: StateRemoved,
			notices: []Notice{{RoleCaller, models.EventCallEnded}},
		},
		{name: "removed accept", from: StateRemoved, action: ActionAccept, want: StateRemoved, wantErr: ErrCallNotFound},
		{name: "removed end", from: StateRemoved, action: ActionEnd, want: StateRemoved, wantErr: ErrCallNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, notices, err := Transition(tt.from, tt.action)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, notices)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.notices, notices)
		})
	}
}

func TestInitiate_CalleeOffline(t *testing.T) {
	m, _ := newTestManager()

	_, _, err := m.Initiate("call-1", "u1", "ghost", "c1", "Alice")
	assert.ErrorIs(t, err, ErrUserOffline)
	assert.Equal(t, 0, m.Len())
	assert.False(t, m.Exists("call-1"))
}

func TestInitiate_SnapshotsConnections(t *testing.T) {
	m, clk := newTestManager()
	clk.Add(time.Minute)

	s, notices, err := m.Initiate("call-1", "u1", "u2", "c1", "Alice")
	require.NoError(t, err)
	assert.Equal(t, StatePending, s.State)
	assert.Equal(t, "c1", s.CallerConn)
	assert.Equal(t, "c2", s.CalleeConn)
	assert.Equal(t, clk.Now(), s.CreatedAt)
	assert.Equal(t, []Notice{{RoleCallee, models.EventIncomingCall}}, notices)
}

func TestInitiate_DuplicateCallID(t *testing.T) {
	m, _ := newTestManager()
	_, _, err := m.Initiate("call-1", "u1", "u2", "c1", "")
	require.NoError(t, err)

	_, _, err = m.Initiate("call-1", "u3", "u2", "c3", "")
	assert.ErrorIs(t, err, ErrCallExists)

	s, _ := m.Get("call-1")
	assert.Equal(t, "u1", s.CallerID)
}

func TestAccept(t *testing.T) {
	m, _ := newTestManager()
	_, _, err := m.Initiate("call-1", "u1", "u2", "c1", "")
	require.NoError(t, err)

	s, notices, err := m.Accept("call-1")
	require.NoError(t, err)
	assert.Equal(t, StateActive, s.State)
	assert.Len(t, notices, 2)

	stored, ok := m.Get("call-1")
	require.True(t, ok)
	assert.Equal(t, StateActive, stored.State)
}

func TestUnknownCall_MutatesNothing(t *testing.T) {
	m, _ := newTestManager()
	_, _, err := m.Initiate("call-1", "u1", "u2", "c1", "")
	require.NoError(t, err)

	_, _, err = m.Accept("nope")
	assert.ErrorIs(t, err, ErrCallNotFound)
	_, _, err = m.Reject("nope")
	assert.ErrorIs(t, err, ErrCallNotFound)

	assert.Equal(t, 1, m.Len())
	s, _ := m.Get("call-1")
	assert.Equal(t, StatePending, s.State)
}

func TestReject_RemovesSession(t *testing.T) {
	m, _ := newTestManager()
	_, _, _ = m.Initiate("call-1", "u1", "u2", "c1", "")
	_, _, _ = m.Accept("call-1")

	s, notices, err := m.Reject("call-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", s.CallerID)
	assert.Equal(t, []Notice{{RoleCaller, models.EventCallRejected}}, notices)
	assert.False(t, m.Exists("call-1"))
}

func TestEnd_TwiceIsSilent(t *testing.T) {
	m, _ := newTestManager()
	_, _, _ = m.Initiate("call-1", "u1", "u2", "c1", "")

	_, notices, ok := m.End("call-1")
	assert.True(t, ok)
	assert.Len(t, notices, 2)

	_, notices, ok = m.End("call-1")
	assert.False(t, ok)
	assert.Empty(t, notices)
}

func TestDropParty(t *testing.T) {
	m, _ := newTestManager()
	_, _, _ = m.Initiate("call-1", "u1", "u2", "c1", "")

	_, _, err := m.DropParty("call-1", "u3")
	assert.Error(t, err)
	assert.True(t, m.Exists("call-1"))

	_, notices, err := m.DropParty("call-1", "u2")
	require.NoError(t, err)
	assert.Equal(t, []Notice{{RoleCaller, models.EventCallEnded}}, notices)
	assert.False(t, m.Exists("call-1"))

	_, _, err = m.DropParty("call-1", "u2")
	assert.ErrorIs(t, err, ErrCallNotFound)
}

func TestForUser_OrderedByCreation(t *testing.T) {
	m, clk := newTestManager()
	_, _, _ = m.Initiate("b", "u1", "u2", "c1", "")
	clk.Add(time.Second)
	_, _, _ = m.Initiate("a", "u3", "u1", "c3", "")
	clk.Add(time.Second)
	_, _, _ = m.Initiate("c", "u2", "u3", "c2", "")

	assert.Equal(t, []string{"b", "a"}, m.ForUser("u1"))
	assert.Equal(t, []string{"a", "c"}, m.ForUser("u3"))
	assert.Empty(t, m.ForUser("nobody"))
}

func TestCounterpartConnection(t *testing.T) {
	s := Session{CallerConn: "c1", CalleeConn: "c2"}

	assert.Equal(t, "c2", CounterpartConnection(s, "c1"))
	assert.Equal(t, "c1", CounterpartConnection(s, "c2"))
	assert.Equal(t, "c1", CounterpartConnection(s, "stranger"))
}
