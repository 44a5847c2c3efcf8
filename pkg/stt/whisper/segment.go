package whisper

import (
	"encoding/binary"
	"math"
)

// segmenter accumulates PCM chunks into utterance buffers. feed returns true
// when the buffer should be flushed: either the configured run of silence
// followed speech, or the buffer hit its maximum duration.
//
// Leading silence is discarded so an idle microphone never triggers
// inference. Not safe for concurrent use.
type segmenter struct {
	sampleRate          int
	channels            int
	silenceThresholdMs  int
	maxBufferDurationMs int

	buffer    []byte
	hadSpeech bool
	silenceMs int
}

func (g *segmenter) feed(chunk []byte) bool {
	rms := computeRMS(chunk)
	chunkMs := g.durationMs(len(chunk))

	if rms < rmsThreshold {
		if !g.hadSpeech {
			return false
		}
		g.silenceMs += chunkMs
		g.buffer = append(g.buffer, chunk...)
		return g.silenceMs >= g.silenceThresholdMs
	}

	g.hadSpeech = true
	g.silenceMs = 0
	g.buffer = append(g.buffer, chunk...)
	return g.durationMs(len(g.buffer)) >= g.maxBufferDurationMs
}

// take returns the buffered speech and resets the segmenter. Buffers that
// never contained speech come back empty.
func (g *segmenter) take() []byte {
	pcm := g.buffer
	spoke := g.hadSpeech
	g.buffer = nil
	g.hadSpeech = false
	g.silenceMs = 0
	if !spoke {
		return nil
	}
	return pcm
}

func (g *segmenter) durationMs(bytes int) int {
	bytesPerMs := g.sampleRate * g.channels * 2 / 1000
	if bytesPerMs <= 0 {
		bytesPerMs = 32
	}
	return bytes / bytesPerMs
}

// computeRMS returns the root-mean-square energy of 16-bit signed
// little-endian PCM, on the raw amplitude scale (0..32768).
func computeRMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := range n {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2])))
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}

// pcmToFloat32 converts 16-bit signed little-endian PCM to float32 samples
// normalised to [-1.0, 1.0]. A trailing odd byte is ignored.
func pcmToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	samples := make([]float32, n)
	for i := range n {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(pcm[i*2:i*2+2]))) / 32768.0
	}
	return samples
}

// pcmToFloat32Mono down-mixes multi-channel 16-bit PCM to mono float32 by
// averaging all channels per frame.
func pcmToFloat32Mono(pcm []byte, channels int) []float32 {
	if channels <= 1 {
		return pcmToFloat32(pcm)
	}
	frames := len(pcm) / (2 * channels)
	mono := make([]float32, frames)
	for i := range frames {
		var sum float32
		for ch := range channels {
			idx := (i*channels + ch) * 2
			sum += float32(int16(binary.LittleEndian.Uint16(pcm[idx:idx+2]))) / 32768.0
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}
