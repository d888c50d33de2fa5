package transcribe

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"unsafe"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// WhisperASR wraps whisper.cpp's Go bindings behind the ASR interface.
type WhisperASR struct {
	model whisper.Model
}

// NewWhisperASR loads a ggml model from modelPath.
func NewWhisperASR(modelPath string) (*WhisperASR, error) {
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: load model %s: %w", modelPath, err)
	}
	return &WhisperASR{model: model}, nil
}

// Close releases the underlying model.
func (w *WhisperASR) Close() error { return w.model.Close() }

// Transcribe decodes a WAV file and runs whisper.cpp inference, honoring
// ctx cancellation by checking it between segment reads.
func (w *WhisperASR) Transcribe(ctx context.Context, path, languageHint string) (Transcript, error) {
	samples, info, err := loadWAVFile(path)
	if err != nil {
		return Transcript{}, fmt.Errorf("transcribe: %w", err)
	}

	wctx, err := w.model.NewContext()
	if err != nil {
		return Transcript{}, fmt.Errorf("transcribe: new context: %w", err)
	}
	if languageHint != "" {
		_ = wctx.SetLanguage(languageHint)
	}
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return Transcript{}, fmt.Errorf("transcribe: process: %w", err)
	}

	var segments []Segment
	for {
		if err := ctx.Err(); err != nil {
			return Transcript{}, err
		}
		seg, err := wctx.NextSegment()
		if err != nil {
			break
		}
		segments = append(segments, Segment{
			Start: seg.Start.Seconds(),
			End:   seg.End.Seconds(),
			Text:  seg.Text,
		})
	}

	detected := languageHint
	if detected == "" {
		detected = wctx.DetectedLanguage()
	}

	return Transcript{
		Segments:         segments,
		DetectedLanguage: detected,
		Duration:         info.Duration,
	}, nil
}

// Inspect reports WAV container metadata without running inference.
func (w *WhisperASR) Inspect(ctx context.Context, path string) (MediaInfo, error) {
	_, info, err := loadWAVFile(path)
	return info, err
}

type wavHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

// loadWAVFile reads a PCM WAV file, converts it to mono float32 samples in
// [-1, 1] at whatever sample rate the file carries (whisper.cpp expects
// 16kHz; non-conforming input is passed through with a reported sample
// rate so the caller can decide how to react), and reports basic metadata.
func loadWAVFile(path string) ([]float32, MediaInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, MediaInfo{}, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	var header wavHeader
	if err := binary.Read(f, binary.LittleEndian, &header); err != nil {
		return nil, MediaInfo{}, fmt.Errorf("read wav header: %w", err)
	}
	if string(header.ChunkID[:]) != "RIFF" || string(header.Format[:]) != "WAVE" {
		return nil, MediaInfo{}, fmt.Errorf("invalid wav file: %s", path)
	}

	data := make([]byte, header.Subchunk2Size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, MediaInfo{}, fmt.Errorf("read wav data: %w", err)
	}

	var samples []float32
	switch header.BitsPerSample {
	case 16:
		for i := 0; i+1 < len(data); i += 2 {
			s := int16(binary.LittleEndian.Uint16(data[i : i+2]))
			samples = append(samples, float32(s)/32768.0)
		}
	case 32:
		for i := 0; i+3 < len(data); i += 4 {
			bits := binary.LittleEndian.Uint32(data[i : i+4])
			samples = append(samples, *(*float32)(unsafe.Pointer(&bits)))
		}
	default:
		return nil, MediaInfo{}, fmt.Errorf("unsupported bits per sample: %d", header.BitsPerSample)
	}

	if header.NumChannels == 2 {
		mono := make([]float32, len(samples)/2)
		for i := range mono {
			mono[i] = (samples[i*2] + samples[i*2+1]) / 2.0
		}
		samples = mono
	}

	duration := float64(0)
	if header.SampleRate > 0 {
		duration = float64(len(samples)) / float64(header.SampleRate)
	}

	return samples, MediaInfo{
		Duration:   duration,
		Format:     "wav",
		Bitrate:    int(header.ByteRate) * 8,
		SampleRate: int(header.SampleRate),
	}, nil
}
