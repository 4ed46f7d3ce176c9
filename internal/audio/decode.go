package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"mime"
	"strconv"

	"github.com/dgnsrekt/lukija/internal/speech"
	"github.com/go-audio/wav"
)

// Format describes interleaved signed 16-bit PCM.
type Format struct {
	SampleRate int
	Channels   int
}

// BytesPerSecond returns the byte rate of s16le audio in this format.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * 2
}

// Decode turns an encoded payload into interleaved 16-bit samples.
// Supported types are WAV (audio/wav, audio/x-wav, audio/wave) and raw
// big-endian L16 (audio/L16;rate=N;channels=N).
func Decode(data []byte, mimeType string) ([]int16, Format, error) {
	mediaType, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return nil, Format{}, decodeError(fmt.Sprintf("invalid MIME type %q", mimeType), err)
	}

	switch mediaType {
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return decodeWAV(data)
	case "audio/l16":
		return decodeL16(data, params)
	default:
		return nil, Format{}, decodeError(fmt.Sprintf("cannot play %s", mediaType), speech.ErrUnsupportedFormat)
	}
}

func decodeWAV(data []byte) ([]int16, Format, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, Format{}, decodeError("invalid WAV data", nil)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, Format{}, decodeError("failed to read WAV samples", err)
	}

	var shift func(int) int16
	switch buf.SourceBitDepth {
	case 8:
		shift = func(v int) int16 { return int16((v - 128) << 8) } //nolint:gosec
	case 16:
		shift = func(v int) int16 { return int16(v) } //nolint:gosec
	case 24:
		shift = func(v int) int16 { return int16(v >> 8) } //nolint:gosec
	case 32:
		shift = func(v int) int16 { return int16(v >> 16) } //nolint:gosec
	default:
		return nil, Format{}, decodeError(fmt.Sprintf("unsupported bit depth %d", buf.SourceBitDepth), speech.ErrUnsupportedFormat)
	}

	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = shift(v)
	}

	return samples, Format{SampleRate: buf.Format.SampleRate, Channels: buf.Format.NumChannels}, nil
}

func decodeL16(data []byte, params map[string]string) ([]int16, Format, error) {
	f := Format{SampleRate: 44100, Channels: 1}
	if v, ok := params["rate"]; ok {
		rate, err := strconv.Atoi(v)
		if err != nil || rate <= 0 {
			return nil, Format{}, decodeError(fmt.Sprintf("invalid rate %q", v), err)
		}
		f.SampleRate = rate
	}
	if v, ok := params["channels"]; ok {
		ch, err := strconv.Atoi(v)
		if err != nil || ch <= 0 {
			return nil, Format{}, decodeError(fmt.Sprintf("invalid channels %q", v), err)
		}
		f.Channels = ch
	}
	if len(data)%2 != 0 {
		return nil, Format{}, decodeError("odd-length L16 payload", nil)
	}

	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.BigEndian.Uint16(data[i*2:])) //nolint:gosec
	}
	return samples, f, nil
}

// EncodeL16 encodes samples as big-endian L16 and returns the payload with
// its MIME type.
func EncodeL16(samples []int16, f Format) ([]byte, string) {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.BigEndian.PutUint16(out[i*2:], uint16(s)) //nolint:gosec
	}
	return out, fmt.Sprintf("audio/L16;rate=%d;channels=%d", f.SampleRate, f.Channels)
}

// Convert maps samples from one format to another, mixing channels and
// resampling linearly as needed.
func Convert(samples []int16, from, to Format) []int16 {
	if from.Channels != to.Channels {
		samples = remix(samples, from.Channels, to.Channels)
	}
	if from.SampleRate != to.SampleRate {
		samples = resample(samples, to.Channels, from.SampleRate, to.SampleRate)
	}
	return samples
}

func remix(samples []int16, from, to int) []int16 {
	frames := len(samples) / from
	out := make([]int16, frames*to)
	for i := 0; i < frames; i++ {
		frame := samples[i*from : (i+1)*from]
		if to == 1 {
			var sum int
			for _, s := range frame {
				sum += int(s)
			}
			out[i] = int16(sum / from) //nolint:gosec
			continue
		}
		for c := 0; c < to; c++ {
			out[i*to+c] = frame[c%from]
		}
	}
	return out
}

func resample(samples []int16, channels, from, to int) []int16 {
	frames := len(samples) / channels
	if frames == 0 {
		return samples[:0]
	}
	outFrames := int(int64(frames) * int64(to) / int64(from))
	out := make([]int16, outFrames*channels)
	ratio := float64(from) / float64(to)
	for i := 0; i < outFrames; i++ {
		pos := float64(i) * ratio
		j := int(pos)
		frac := pos - float64(j)
		next := j + 1
		if next >= frames {
			next = frames - 1
		}
		for c := 0; c < channels; c++ {
			a := float64(samples[j*channels+c])
			b := float64(samples[next*channels+c])
			out[i*channels+c] = int16(a + (b-a)*frac)
		}
	}
	return out
}

// pcmBytes encodes samples as s16le for the device.
func pcmBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s)) //nolint:gosec
	}
	return out
}

func decodeError(msg string, cause error) error {
	return speech.NewPlaybackError(speech.ErrorCodeDecodeFailed, msg, cause)
}
