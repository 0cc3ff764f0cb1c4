// Package vad classifies fixed-length PCM16 frames as voiced or unvoiced.
//
// The segmenter depends only on the FrameClassifier interface. The default
// EnergyClassifier calibrates a noise floor over the whole input before
// classification and applies stricter margins as the aggressiveness level
// rises from 0 (least aggressive) to 3 (most aggressive).
package vad
