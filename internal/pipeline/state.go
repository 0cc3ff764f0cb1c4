package pipeline

import (
	"fmt"
	"time"

	"voxclip/internal/clipstore"
	"voxclip/internal/services"
)

// Video, Clip, and State are the persisted pipeline records.
type (
	Video = clipstore.Video
	Clip  = clipstore.Clip
	State = clipstore.State
)

var transitions = map[State][]State{
	clipstore.StateInput:         {clipstore.StateProcessing},
	clipstore.StateProcessing:    {clipstore.StateClips, clipstore.StateInput},
	clipstore.StateClips:         {clipstore.StateProcessing, clipstore.StateTranscription, clipstore.StateStorage},
	clipstore.StateTranscription: {clipstore.StateProcessing, clipstore.StateTranscription, clipstore.StateStorage},
	clipstore.StateStorage:       {clipstore.StateProcessing, clipstore.StateTranscription, clipstore.StateStorage, clipstore.StateComplete},
	clipstore.StateComplete:      {clipstore.StateComplete},
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to State) bool {
	if from == "" {
		from = clipstore.StateInput
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// advance moves video to state to, stamping UpdatedAt.
func advance(video *Video, to State, now time.Time) error {
	if !CanTransition(video.State, to) {
		return services.Wrap(services.ErrConflict, "pipeline", "transition", fmt.Sprintf("video %s cannot move from %s to %s", video.VideoID, video.State, to), nil)
	}
	video.State = to
	video.UpdatedAt = now
	return nil
}
