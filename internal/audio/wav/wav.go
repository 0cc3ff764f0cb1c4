package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

var (
	ErrInvalidHeader     = errors.New("wav: invalid header")
	ErrUnsupportedFormat = errors.New("wav: unsupported format")
	ErrTruncated         = errors.New("wav: truncated data")
)

const (
	formatPCM        = 1
	formatExtensible = 0xFFFE
	headerSize       = 44
	streamingSize    = 0xFFFFFFFF
)

// Format describes the PCM layout of a file.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// Mono16 returns a single-channel 16-bit format at rate.
func Mono16(rate int) Format {
	return Format{SampleRate: rate, Channels: 1, BitsPerSample: 16}
}

// BlockAlign is the size in bytes of one sample frame across all channels.
func (f Format) BlockAlign() int {
	return f.Channels * f.BitsPerSample / 8
}

func (f Format) validate() error {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return fmt.Errorf("%w: %d Hz, %d channels", ErrUnsupportedFormat, f.SampleRate, f.Channels)
	}
	if f.BitsPerSample != 16 {
		return fmt.Errorf("%w: %d bits per sample", ErrUnsupportedFormat, f.BitsPerSample)
	}
	return nil
}

// Reader provides random access to the PCM data of a WAV file.
type Reader struct {
	Format     Format
	data       *io.SectionReader
	closer     io.Closer
	dataOffset int64
}

// Open parses the WAV file at path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	r, err := NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewReader parses a WAV stream of the given total size.
func NewReader(src io.ReaderAt, size int64) (*Reader, error) {
	var riff [12]byte
	if _, err := src.ReadAt(riff[:], 0); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: missing RIFF/WAVE magic", ErrInvalidHeader)
	}

	var (
		format     Format
		haveFormat bool
		offset     int64 = 12
	)
	for offset+8 <= size {
		var chunk [8]byte
		if _, err := src.ReadAt(chunk[:], offset); err != nil {
			return nil, fmt.Errorf("%w: chunk header: %v", ErrInvalidHeader, err)
		}
		id := string(chunk[0:4])
		chunkSize := int64(binary.LittleEndian.Uint32(chunk[4:8]))
		body := offset + 8

		switch id {
		case "fmt ":
			if chunkSize < 16 {
				return nil, fmt.Errorf("%w: fmt chunk too small", ErrInvalidHeader)
			}
			buf := make([]byte, min(chunkSize, 40))
			if _, err := src.ReadAt(buf, body); err != nil {
				return nil, fmt.Errorf("%w: fmt chunk: %v", ErrInvalidHeader, err)
			}
			audioFormat := binary.LittleEndian.Uint16(buf[0:2])
			if audioFormat == formatExtensible && len(buf) >= 26 {
				audioFormat = binary.LittleEndian.Uint16(buf[24:26])
			}
			if audioFormat != formatPCM {
				return nil, fmt.Errorf("%w: audio format %d", ErrUnsupportedFormat, audioFormat)
			}
			format = Format{
				Channels:      int(binary.LittleEndian.Uint16(buf[2:4])),
				SampleRate:    int(binary.LittleEndian.Uint32(buf[4:8])),
				BitsPerSample: int(binary.LittleEndian.Uint16(buf[14:16])),
			}
			if err := format.validate(); err != nil {
				return nil, err
			}
			haveFormat = true
		case "data":
			if !haveFormat {
				return nil, fmt.Errorf("%w: data chunk before fmt chunk", ErrInvalidHeader)
			}
			available := size - body
			if chunkSize == streamingSize {
				chunkSize = available
			}
			if chunkSize > available {
				return nil, fmt.Errorf("%w: declared %d bytes, %d present", ErrTruncated, chunkSize, available)
			}
			chunkSize -= chunkSize % int64(format.BlockAlign())
			return &Reader{
				Format:     format,
				data:       io.NewSectionReader(src, body, chunkSize),
				dataOffset: body,
			}, nil
		}
		offset = body + chunkSize + chunkSize%2
	}
	if !haveFormat {
		return nil, fmt.Errorf("%w: missing fmt chunk", ErrInvalidHeader)
	}
	return nil, fmt.Errorf("%w: missing data chunk", ErrInvalidHeader)
}

// Close releases the underlying file when the reader was created by Open.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Frames returns the number of sample frames in the data chunk.
func (r *Reader) Frames() int64 {
	return r.data.Size() / int64(r.Format.BlockAlign())
}

// Seconds returns the playback length in seconds.
func (r *Reader) Seconds() float64 {
	return float64(r.Frames()) / float64(r.Format.SampleRate)
}

// Duration returns the playback length.
func (r *Reader) Duration() time.Duration {
	return time.Duration(r.Seconds() * float64(time.Second))
}

// Samples decodes the entire data chunk. Multi-channel input is rejected
// because voice activity detection runs on mono audio.
func (r *Reader) Samples() ([]int16, error) {
	if r.Format.Channels != 1 {
		return nil, fmt.Errorf("%w: %d channels, need mono", ErrUnsupportedFormat, r.Format.Channels)
	}
	raw := make([]byte, r.data.Size())
	if _, err := r.data.ReadAt(raw, 0); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[2*i:]))
	}
	return samples, nil
}

// Range returns a reader over the sample frames [start, end).
func (r *Reader) Range(start, end int64) *io.SectionReader {
	frames := r.Frames()
	start = max(0, min(start, frames))
	end = max(start, min(end, frames))
	align := int64(r.Format.BlockAlign())
	return io.NewSectionReader(r.data, start*align, (end-start)*align)
}

// EncodeHeader returns a canonical 44-byte header for dataSize bytes of PCM.
func EncodeHeader(format Format, dataSize uint32) []byte {
	var buf bytes.Buffer
	buf.Grow(headerSize)
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36)+dataSize)
	buf.WriteString("WAVEfmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(formatPCM))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(format.Channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(format.SampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(format.SampleRate*format.BlockAlign()))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(format.BlockAlign()))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(format.BitsPerSample))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, dataSize)
	return buf.Bytes()
}

// WriteSamples writes mono PCM16 samples to path.
func WriteSamples(path string, sampleRate int, samples []int16) error {
	data := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[2*i:], uint16(s))
	}
	return writeFile(path, Mono16(sampleRate), bytes.NewReader(data), int64(len(data)))
}

// WriteRange renders frames [start, end) of src into a standalone WAV file
// at path. The file is written to a temporary sibling and renamed into place.
func WriteRange(path string, src *Reader, start, end int64) error {
	section := src.Range(start, end)
	return writeFile(path, src.Format, section, section.Size())
}

func writeFile(path string, format Format, data io.Reader, size int64) error {
	if size > int64(streamingSize)-36 {
		return fmt.Errorf("%w: %d bytes exceeds RIFF limit", ErrUnsupportedFormat, size)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	fail := func(err error) error {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if _, err := tmp.Write(EncodeHeader(format, uint32(size))); err != nil {
		return fail(err)
	}
	written, err := io.Copy(tmp, data)
	if err != nil {
		return fail(err)
	}
	if written != size {
		return fail(fmt.Errorf("%w: wrote %d of %d bytes", ErrTruncated, written, size))
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
