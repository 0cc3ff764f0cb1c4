package vad

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

var ErrInvalidFrame = errors.New("vad: invalid frame")

// FrameClassifier decides whether a single frame contains speech.
type FrameClassifier interface {
	IsSpeech(frame []int16, sampleRate int) (bool, error)
}

// Calibrator is implemented by classifiers that adapt to the input before
// classifying its frames.
type Calibrator interface {
	Calibrate(samples []int16, sampleRate, frameSamples int) error
}

// Supported sample rates and frame lengths.
var (
	SampleRates  = []int{8000, 16000, 32000, 48000}
	FrameLengths = []int{10, 20, 30}
)

// ValidRate reports whether sampleRate can be classified.
func ValidRate(sampleRate int) bool {
	return slices.Contains(SampleRates, sampleRate)
}

// FrameSamples returns the samples per frame for the given rate and length.
func FrameSamples(sampleRate, frameMillis int) (int, error) {
	if !ValidRate(sampleRate) {
		return 0, fmt.Errorf("%w: unsupported sample rate %d", ErrInvalidFrame, sampleRate)
	}
	if !slices.Contains(FrameLengths, frameMillis) {
		return 0, fmt.Errorf("%w: unsupported frame length %d ms", ErrInvalidFrame, frameMillis)
	}
	return sampleRate * frameMillis / 1000, nil
}

const (
	absoluteFloorDB = -60.0
	// Calibration never places the noise floor above this level, so a
	// recording with no quiet stretch still classifies as speech.
	maxNoiseFloorDB = -40.0
	silenceDB       = -120.0
	noisePercentile = 0.10
)

var (
	levelMarginDB = [4]float64{6, 9, 12, 15}
	// Zero-crossing rate ceiling per level; 0 disables the guard.
	levelMaxZCR = [4]float64{0, 0, 0.45, 0.35}
)

// EnergyClassifier marks frames whose energy clears the calibrated noise
// floor by a level-dependent margin.
type EnergyClassifier struct {
	level        int
	noiseFloorDB float64
}

// NewEnergyClassifier returns a classifier for aggressiveness level 0-3.
func NewEnergyClassifier(level int) (*EnergyClassifier, error) {
	if level < 0 || level > 3 {
		return nil, fmt.Errorf("vad: aggressiveness must be 0-3, got %d", level)
	}
	return &EnergyClassifier{level: level, noiseFloorDB: silenceDB}, nil
}

// Level returns the aggressiveness level.
func (c *EnergyClassifier) Level() int { return c.level }

// NoiseFloorDB returns the calibrated noise floor in dBFS.
func (c *EnergyClassifier) NoiseFloorDB() float64 { return c.noiseFloorDB }

// ThresholdDB returns the minimum frame energy classified as speech.
func (c *EnergyClassifier) ThresholdDB() float64 {
	return math.Max(c.noiseFloorDB+levelMarginDB[c.level], absoluteFloorDB)
}

// Calibrate estimates the noise floor as the 10th percentile of frame energy,
// capped at -40 dBFS.
func (c *EnergyClassifier) Calibrate(samples []int16, sampleRate, frameSamples int) error {
	if frameSamples <= 0 {
		return fmt.Errorf("%w: frame size %d", ErrInvalidFrame, frameSamples)
	}
	count := len(samples) / frameSamples
	if count == 0 {
		c.noiseFloorDB = silenceDB
		return nil
	}
	energies := make([]float64, count)
	for i := range count {
		energies[i] = EnergyDB(samples[i*frameSamples : (i+1)*frameSamples])
	}
	slices.Sort(energies)
	c.noiseFloorDB = math.Min(energies[int(float64(count-1)*noisePercentile)], maxNoiseFloorDB)
	return nil
}

// IsSpeech implements FrameClassifier.
func (c *EnergyClassifier) IsSpeech(frame []int16, sampleRate int) (bool, error) {
	if len(frame) == 0 {
		return false, fmt.Errorf("%w: empty frame", ErrInvalidFrame)
	}
	if !ValidRate(sampleRate) {
		return false, fmt.Errorf("%w: unsupported sample rate %d", ErrInvalidFrame, sampleRate)
	}
	if EnergyDB(frame) < c.ThresholdDB() {
		return false, nil
	}
	if limit := levelMaxZCR[c.level]; limit > 0 && ZeroCrossingRate(frame) > limit {
		return false, nil
	}
	return true, nil
}

// EnergyDB returns the frame's RMS level in dBFS, floored at -120.
func EnergyDB(frame []int16) float64 {
	if len(frame) == 0 {
		return silenceDB
	}
	var sum float64
	for _, s := range frame {
		v := float64(s)
		sum += v * v
	}
	mean := sum / float64(len(frame)) / (32768.0 * 32768.0)
	if mean <= 0 {
		return silenceDB
	}
	return math.Max(10*math.Log10(mean), silenceDB)
}

// ZeroCrossingRate returns sign changes per sample.
func ZeroCrossingRate(frame []int16) float64 {
	if len(frame) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(frame); i++ {
		if (frame[i-1] >= 0) != (frame[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(frame)-1)
}
