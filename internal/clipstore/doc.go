// Package clipstore owns the on-disk layout of processed videos.
//
// Each video lives in exactly one directory at a time, either under the
// active root while it is being worked on or under the completed root after
// a successful save:
//
//	<root>/<video_id>/
//	    <video_id>-001.wav ...
//	    clip_metadata.json
//	    video_metadata.json
//
// Metadata files are replaced atomically. Complete moves a video from the
// active root to the completed root, falling back to copy-then-delete when
// the roots are on different filesystems. Locker serializes commands on the
// same video across goroutines and processes.
package clipstore
