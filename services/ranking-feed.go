package services

import (
	"encoding/json"
	"errors"

	"safr-server/logging"
	"safr-server/usecases"
	"safr-server/ws"
)

// RankingFeed forwards ranking events to the user's open websocket clients.
type RankingFeed struct {
	mgr *ws.Manager
}

func NewRankingFeed(mgr *ws.Manager) *RankingFeed {
	return &RankingFeed{mgr: mgr}
}

// NotifyUser implements usecases.Notifier. Users without an open feed are skipped.
func (f *RankingFeed) NotifyUser(userID uint, event usecases.RankingEvent) {
	b, err := json.Marshal(event)
	if err != nil {
		logging.Error().Err(err).Str("event", event.Type).Msg("failed to encode ranking event")
		return
	}
	if err := f.mgr.SendToUser(userID, b); err != nil {
		if errors.Is(err, ws.ErrNotConnected) {
			return
		}
		logging.Warn().Err(err).Uint("user_id", userID).Str("event", event.Type).Msg("failed to push ranking event")
	}
}
