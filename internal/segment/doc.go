// Package segment turns a mono PCM16 recording into ordered, non-overlapping
// speech clips.
//
// Frames are classified by a vad.FrameClassifier, contiguous voiced frames
// become raw spans, and each span is padded and clamped to the recording.
// Padding can make neighbouring spans overlap, so merging runs as a single
// pass over the padded spans in time order; spans that touch are merged too.
// Spans shorter than the minimum clip length (or longer than an optional
// maximum) are discarded and the rest are numbered from 1 and rendered to
// <video_id>-NNN.wav files.
package segment
