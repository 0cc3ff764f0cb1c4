package vad

import (
	"math"
	"math/rand/v2"
	"testing"
)

func sine(n int, freq, rate, amplitude float64) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(amplitude * math.Sin(2*math.Pi*freq*float64(i)/rate))
	}
	return out
}

func noise(n int, amplitude float64, seed uint64) []int16 {
	rng := rand.New(rand.NewPCG(seed, seed))
	out := make([]int16, n)
	for i := range out {
		out[i] = int16((rng.Float64()*2 - 1) * amplitude)
	}
	return out
}

func TestFrameSamples(t *testing.T) {
	n, err := FrameSamples(16000, 30)
	if err != nil || n != 480 {
		t.Fatalf("FrameSamples(16000, 30) = %d, %v", n, err)
	}
	if _, err := FrameSamples(44100, 30); err == nil {
		t.Fatal("expected unsupported rate error")
	}
	if _, err := FrameSamples(16000, 25); err == nil {
		t.Fatal("expected unsupported frame length error")
	}
}

func TestNewEnergyClassifierRejectsLevel(t *testing.T) {
	for _, level := range []int{-1, 4} {
		if _, err := NewEnergyClassifier(level); err == nil {
			t.Fatalf("expected error for level %d", level)
		}
	}
}

func TestEnergyClassifierSilenceAndTone(t *testing.T) {
	for level := range 4 {
		c, err := NewEnergyClassifier(level)
		if err != nil {
			t.Fatal(err)
		}
		if ok, err := c.IsSpeech(make([]int16, 480), 16000); err != nil || ok {
			t.Fatalf("level %d: silence classified as speech (%v)", level, err)
		}
		if ok, err := c.IsSpeech(sine(480, 220, 16000, 8000), 16000); err != nil || !ok {
			t.Fatalf("level %d: tone not classified as speech (%v)", level, err)
		}
	}
}

func TestCalibrationRaisesThresholdAboveNoise(t *testing.T) {
	const frame = 480
	// Ninety frames of low noise and ten frames of tone.
	samples := noise(90*frame, 300, 1)
	samples = append(samples, sine(10*frame, 200, 16000, 6000)...)

	c, _ := NewEnergyClassifier(1)
	if err := c.Calibrate(samples, 16000, frame); err != nil {
		t.Fatal(err)
	}
	if c.NoiseFloorDB() < -50 || c.NoiseFloorDB() > -40 {
		t.Fatalf("unexpected noise floor %.1f dB", c.NoiseFloorDB())
	}
	if ok, _ := c.IsSpeech(samples[:frame], 16000); ok {
		t.Fatal("noise frame classified as speech after calibration")
	}
	if ok, _ := c.IsSpeech(samples[95*frame:96*frame], 16000); !ok {
		t.Fatal("tone frame not classified as speech after calibration")
	}
}

func TestZeroCrossingGuardOnlyAtHighLevels(t *testing.T) {
	loud := noise(480, 12000, 7)
	if zcr := ZeroCrossingRate(loud); zcr < 0.4 {
		t.Fatalf("expected white noise zcr near 0.5, got %.2f", zcr)
	}
	low, _ := NewEnergyClassifier(0)
	high, _ := NewEnergyClassifier(3)
	if ok, _ := low.IsSpeech(loud, 16000); !ok {
		t.Fatal("level 0 should accept loud broadband frames")
	}
	if ok, _ := high.IsSpeech(loud, 16000); ok {
		t.Fatal("level 3 should reject broadband noise")
	}
}

func TestHigherLevelsAreStricter(t *testing.T) {
	const frame = 480
	samples := make([]int16, 100*frame)
	c0, _ := NewEnergyClassifier(0)
	c3, _ := NewEnergyClassifier(3)
	_ = c0.Calibrate(samples, 16000, frame)
	_ = c3.Calibrate(samples, 16000, frame)
	if c3.ThresholdDB() < c0.ThresholdDB() {
		t.Fatalf("expected level 3 threshold >= level 0 (%.1f < %.1f)", c3.ThresholdDB(), c0.ThresholdDB())
	}
	if c0.ThresholdDB() != absoluteFloorDB {
		t.Fatalf("expected absolute floor on silent calibration, got %.1f", c0.ThresholdDB())
	}
}

func TestIsSpeechRejectsBadInput(t *testing.T) {
	c, _ := NewEnergyClassifier(2)
	if _, err := c.IsSpeech(nil, 16000); err == nil {
		t.Fatal("expected error for empty frame")
	}
	if _, err := c.IsSpeech(make([]int16, 10), 11025); err == nil {
		t.Fatal("expected error for unsupported rate")
	}
}

func TestCalibrationOnContinuousToneKeepsSpeech(t *testing.T) {
	const frame = 480
	samples := sine(300*frame, 220, 16000, 8000)

	for level := range 4 {
		c, _ := NewEnergyClassifier(level)
		if err := c.Calibrate(samples, 16000, frame); err != nil {
			t.Fatal(err)
		}
		if c.NoiseFloorDB() != maxNoiseFloorDB {
			t.Fatalf("level %d: expected capped floor, got %.1f dB", level, c.NoiseFloorDB())
		}
		if ok, _ := c.IsSpeech(samples[:frame], 16000); !ok {
			t.Fatalf("level %d: continuous tone rejected (threshold %.1f dB)", level, c.ThresholdDB())
		}
	}
}
