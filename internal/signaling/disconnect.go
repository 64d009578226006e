package signaling

import (
	"github.com/rs/zerolog/log"

	"github.com/mossy-p/call-signaling/internal/calls"
	"github.com/mossy-p/call-signaling/internal/models"
	"github.com/mossy-p/call-signaling/internal/offers"
	"github.com/mossy-p/call-signaling/internal/registry"
)

// Outbox is what the coordinator needs from the transport side
type Outbox interface {
	Notify(s calls.Session, notices []calls.Notice)
	Broadcast(msg models.Message, except string)
}

// DisconnectCoordinator tears down everything a lost connection owned
type DisconnectCoordinator struct {
	registry *registry.Registry
	calls    *calls.Manager
	offers   *offers.Buffer
	out      Outbox
	presence PresenceSink
}

func NewDisconnectCoordinator(reg *registry.Registry, mgr *calls.Manager, buf *offers.Buffer, out Outbox, presence PresenceSink) *DisconnectCoordinator {
	if presence == nil {
		presence = nopPresence{}
	}
	return &DisconnectCoordinator{
		registry: reg,
		calls:    mgr,
		offers:   buf,
		out:      out,
		presence: presence,
	}
}

// Handle runs the cascade for connID and returns the user that went offline
// and the calls that were ended. It is idempotent: an unknown connection or a
// session that is already gone is skipped.
func (d *DisconnectCoordinator) Handle(connID string) (userID string, ended []string) {
	userID, ok := d.registry.ResolveByConnection(connID)
	if !ok {
		return "", nil
	}
	d.registry.Remove(connID)

	for _, callID := range d.calls.ForUser(userID) {
		s, notices, err := d.calls.DropParty(callID, userID)
		if err != nil {
			continue
		}
		d.offers.DropForCall(callID)
		d.out.Notify(s, notices)
		ended = append(ended, callID)
		log.Info().Str("module", "signaling").Str("call_id", callID).
			Str("user_id", userID).Msg("call ended by disconnect")
	}

	offline := false
	d.out.Broadcast(models.Message{
		Type:     models.EventUserStatusChange,
		UserID:   userID,
		IsOnline: &offline,
	}, connID)
	d.presence.Offline(userID)

	log.Info().Str("module", "signaling").Str("user_id", userID).Str("conn", connID).
		Int("calls_ended", len(ended)).Msg("user disconnected")
	return userID, ended
}
