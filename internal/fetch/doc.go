// Package fetch turns a remote video reference into a local mono PCM WAV
// file plus descriptive metadata.
//
// Acquisition shells out to yt-dlp for probing and downloading and to ffmpeg
// for conversion. Both run through an injectable CommandRunner so tests can
// script tool output without the binaries installed. Every Fetch failure is
// reported as services.ErrAcquisition and leaves no partial files behind in
// the work directory. Playlist lists a playlist's entries with a flat yt-dlp
// dump and downloads nothing.
package fetch
