package audio

import (
	"bytes"
	"math"
	"testing"
	"time"
)

// pcm16 builds little-endian PCM bytes from int16 samples.
func pcm16(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

func TestStereoToMonoAverages(t *testing.T) {
	t.Parallel()
	in := pcm16(1000, 2000, -500, 500, 32767, 32767)
	got := StereoToMono(in)
	want := pcm16(1500, 0, 32767)
	if !bytes.Equal(got, want) {
		t.Errorf("StereoToMono = %v, want %v", got, want)
	}
}

func TestResample16Identity(t *testing.T) {
	t.Parallel()
	in := pcm16(1, 2, 3, 4)
	if got := Resample16(in, 1, 16000, 16000); !bytes.Equal(got, in) {
		t.Error("same-rate resample should return input unchanged")
	}
}

func TestResample16Halves(t *testing.T) {
	t.Parallel()
	in := make([]byte, 0, 200)
	for i := int16(0); i < 100; i++ {
		in = append(in, pcm16(i)...)
	}
	got := Resample16(in, 1, 32000, 16000)
	if len(got) != len(in)/2 {
		t.Errorf("downsample 2:1 produced %d bytes, want %d", len(got), len(in)/2)
	}
}

func TestResample16Doubles(t *testing.T) {
	t.Parallel()
	in := pcm16(0, 100, 200, 300)
	got := Resample16(in, 1, 8000, 16000)
	if len(got) != len(in)*2 {
		t.Errorf("upsample 1:2 produced %d bytes, want %d", len(got), len(in)*2)
	}
}

func TestConverterFastPath(t *testing.T) {
	t.Parallel()
	conv := FormatConverter{Target: Format{SampleRate: 16000, Channels: 1}}
	frame := Frame{Data: pcm16(1, 2, 3), SampleRate: 16000, Channels: 1}
	got := conv.Convert(frame)
	if &got.Data[0] != &frame.Data[0] {
		t.Error("matching format should return the frame without copying")
	}
}

func TestConverterDropsMisaligned(t *testing.T) {
	t.Parallel()
	conv := FormatConverter{Target: Format{SampleRate: 16000, Channels: 1}}
	got := conv.Convert(Frame{Data: []byte{1, 2, 3}, SampleRate: 48000, Channels: 2})
	if len(got.Data) != 0 {
		t.Error("odd byte count should produce an empty frame")
	}
}

func TestConverterResamplesAndDownmixes(t *testing.T) {
	t.Parallel()
	conv := FormatConverter{Target: Format{SampleRate: 16000, Channels: 1}}

	// 10 ms of 48 kHz stereo.
	in := make([]byte, 48*10*4)
	got := conv.Convert(Frame{Data: in, SampleRate: 48000, Channels: 2})
	if got.SampleRate != 16000 || got.Channels != 1 {
		t.Fatalf("converted to %dHz/%dch, want 16000Hz/1ch", got.SampleRate, got.Channels)
	}
	if len(got.Data) != 16*10*2 {
		t.Errorf("converted length = %d, want %d", len(got.Data), 16*10*2)
	}
}

func TestRMS(t *testing.T) {
	t.Parallel()
	if got := RMS(make([]byte, 320)); got != 0 {
		t.Errorf("RMS of silence = %v, want 0", got)
	}

	// Full-scale square wave has RMS ~1.
	loud := make([]int16, 160)
	for i := range loud {
		loud[i] = 32767
	}
	if got := RMS(pcm16(loud...)); math.Abs(got-1) > 0.01 {
		t.Errorf("RMS of full-scale = %v, want ~1", got)
	}
}

func TestReadFramesChunking(t *testing.T) {
	t.Parallel()
	format := Format{SampleRate: 16000, Channels: 1}

	// 50 ms of audio in 20 ms frames: two full frames plus a 10 ms tail.
	raw := make([]byte, 16000*2/20) // 50 ms
	frames := ReadFrames(bytes.NewReader(raw), format, 20*time.Millisecond)

	var got []Frame
	for f := range frames {
		got = append(got, f)
	}
	if len(got) != 3 {
		t.Fatalf("got %d frames, want 3", len(got))
	}
	full := 16000 * 2 * 20 / 1000
	if len(got[0].Data) != full || len(got[1].Data) != full {
		t.Errorf("full frame sizes = %d, %d, want %d", len(got[0].Data), len(got[1].Data), full)
	}
	if len(got[2].Data) != full/2 {
		t.Errorf("tail frame size = %d, want %d", len(got[2].Data), full/2)
	}
	if got[1].Timestamp != 20*time.Millisecond {
		t.Errorf("second frame timestamp = %v, want 20ms", got[1].Timestamp)
	}
}
