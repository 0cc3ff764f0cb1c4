// Package wav reads and writes the RIFF/WAVE PCM16 files exchanged between
// ffmpeg, the segmenter, and the transcription providers.
//
// Only uncompressed 16-bit little-endian PCM is supported. Readers expose
// the data chunk as an io.SectionReader so clips can be rendered by copying
// byte ranges without decoding.
package wav
