// Package transcribe runs speech-to-text over the clips of one video.
//
// Coordinator fans per-clip calls out to a bounded worker pool, applies a
// per-clip timeout, and records every outcome on the clip itself. A failing
// clip never aborts the batch; Run returns once every selected clip has been
// attempted or skipped.
package transcribe
