// Package pipeline drives a video through split, transcribe, and save.
//
// Each command takes the per-video lock, reads the persisted state from the
// clip store, does its work through the capability interfaces held in Deps,
// and writes state back before returning. Video-level failures leave the
// previous state untouched; clip-level failures are recorded on the clip
// and reported in the result.
//
// State machine:
//
//	input -> processing -> clips -> transcription -> storage -> complete
//
// A re-split returns to processing from any pre-complete state, transcribe
// may follow a partial save, and save on a completed video re-persists the
// catalog rows without touching storage.
package pipeline
