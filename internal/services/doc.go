// Package services defines shared utilities consumed by the pipeline
// coordinators and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp video IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the pipeline's error taxonomy (acquisition, segmentation,
//     persistence, validation, not found, ...).
//
// Use these helpers when wiring new pipeline logic so error handling and
// observability stay uniform across split, transcribe, and save.
package services
