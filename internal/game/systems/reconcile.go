package systems

import (
	"time"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/models"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/prediction"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/game/components"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/transport"
)

// ReconcileTransform snaps to the authoritative position when the predicted
// one is more than snapDistance away and otherwise moves blend of the way
// toward it each tick.
func ReconcileTransform(snapDistance, blend float64) prediction.ReconcileFunc[components.Transform] {
	return func(live, authoritative components.Transform, _ time.Duration) components.Transform {
		if live.Position.Sub(authoritative.Position).Length() > snapDistance {
			return authoritative
		}
		live.Position = live.Position.Lerp(authoritative.Position, blend)
		return live
	}
}

// PredictLocalPlayer starts predicting the transform of the player entity
// owned by the local peer once it has been replicated.
type PredictLocalPlayer struct {
	local transport.PeerID
}

func NewPredictLocalPlayer(local transport.PeerID) *PredictLocalPlayer {
	return &PredictLocalPlayer{local: local}
}

func (s *PredictLocalPlayer) Name() string { return "predict.local_player" }

func (s *PredictLocalPlayer) Update(r *models.EntityRegistry, _ uint64, _ time.Duration) error {
	for e := range models.WithBoth[components.Player, components.Transform](r).Seq() {
		if models.Get[components.Player](e).Peer != s.local || prediction.IsPredicted[components.Transform](e) {
			continue
		}
		if err := prediction.Predict[components.Transform](e); err != nil {
			return err
		}
	}
	return nil
}
