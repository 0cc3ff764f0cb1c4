// Package whisperx runs WhisperX through uvx to transcribe clip audio.
//
// Each call writes WhisperX output into a private temporary directory,
// reads the JSON segments back, and joins their text. Model, device, and
// cache location come from Config.
package whisperx
