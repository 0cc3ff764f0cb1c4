// Package openaistt talks to an OpenAI-compatible speech-to-text endpoint
// (POST {base}/audio/transcriptions, multipart form upload).
package openaistt
