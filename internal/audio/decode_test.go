package audio

import (
	"errors"
	"os"
	"testing"

	"github.com/dgnsrekt/lukija/internal/speech"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeWAV(t *testing.T, rate, channels int, samples []int) []byte {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "*.wav")
	if err != nil {
		t.Fatalf("CreateTemp failed: %v", err)
	}
	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("wav write failed: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("wav close failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("file close failed: %v", err)
	}

	data, err := os.ReadFile(f.Name())
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	return data
}

func TestDecode_WAV(t *testing.T) {
	data := writeWAV(t, 22050, 2, []int{100, -100, 2000, -2000})

	samples, f, err := Decode(data, "audio/wav")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if f != (Format{SampleRate: 22050, Channels: 2}) {
		t.Errorf("format = %+v", f)
	}
	want := []int16{100, -100, 2000, -2000}
	if len(samples) != len(want) {
		t.Fatalf("got %d samples, want %d", len(samples), len(want))
	}
	for i := range want {
		if samples[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, samples[i], want[i])
		}
	}
}

func TestDecode_L16RoundTrip(t *testing.T) {
	in := []int16{0, 1, -1, 32767, -32768}
	data, mimeType := EncodeL16(in, Format{SampleRate: 24000, Channels: 1})

	if mimeType != "audio/L16;rate=24000;channels=1" {
		t.Errorf("mime = %q", mimeType)
	}

	out, f, err := Decode(data, mimeType)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if f.SampleRate != 24000 || f.Channels != 1 {
		t.Errorf("format = %+v", f)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("sample %d = %d, want %d", i, out[i], in[i])
		}
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		mimeType string
		wantFmt  bool
	}{
		{name: "unsupported type", data: []byte{1, 2}, mimeType: "audio/mpeg", wantFmt: true},
		{name: "invalid mime", data: []byte{1, 2}, mimeType: ";;"},
		{name: "odd L16 payload", data: []byte{1, 2, 3}, mimeType: "audio/L16;rate=8000"},
		{name: "bad rate", data: []byte{1, 2}, mimeType: "audio/L16;rate=fast"},
		{name: "garbage wav", data: []byte("not a wav"), mimeType: "audio/x-wav"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(tt.data, tt.mimeType)
			if err == nil {
				t.Fatal("expected error")
			}
			var pe *speech.PlaybackError
			if !errors.As(err, &pe) || pe.Code != speech.ErrorCodeDecodeFailed {
				t.Errorf("error = %v, want decode PlaybackError", err)
			}
			if tt.wantFmt && !errors.Is(err, speech.ErrUnsupportedFormat) {
				t.Errorf("error = %v, want ErrUnsupportedFormat", err)
			}
		})
	}
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name     string
		in       []int16
		from, to Format
		want     []int16
	}{
		{
			name: "identity",
			in:   []int16{1, 2, 3},
			from: Format{44100, 1}, to: Format{44100, 1},
			want: []int16{1, 2, 3},
		},
		{
			name: "mono to stereo",
			in:   []int16{10, 20},
			from: Format{44100, 1}, to: Format{44100, 2},
			want: []int16{10, 10, 20, 20},
		},
		{
			name: "stereo to mono",
			in:   []int16{10, 30, -10, -30},
			from: Format{44100, 2}, to: Format{44100, 1},
			want: []int16{20, -20},
		},
		{
			name: "upsample doubles frames",
			in:   []int16{0, 100},
			from: Format{22050, 1}, to: Format{44100, 1},
			want: []int16{0, 50, 100, 100},
		},
		{
			name: "downsample halves frames",
			in:   []int16{0, 50, 100, 150},
			from: Format{48000, 1}, to: Format{24000, 1},
			want: []int16{0, 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Convert(tt.in, tt.from, tt.to)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}
