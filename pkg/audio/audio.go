// Package audio decodes announcement payloads into playable PCM buffers.
// Speech backends return base64 audio that is either WAV-containered or raw
// 16-bit little-endian PCM mono at 24 kHz; decoding tries the container
// first and falls back to the raw interpretation.
package audio

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultSampleRate is assumed for raw PCM payloads without a container.
const DefaultSampleRate = 24000

// ErrEmptyPayload indicates there was nothing to decode.
var ErrEmptyPayload = errors.New("audio payload is empty")

// Buffer is an in-memory, mono-or-interleaved float32 sample buffer with
// samples rescaled to [-1, 1).
type Buffer struct {
	SampleRate int
	Channels   int
	Samples    []float32
}

// Duration reports the playback length of the buffer.
func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 || b.Channels <= 0 || len(b.Samples) == 0 {
		return 0
	}
	frames := len(b.Samples) / b.Channels
	return time.Duration(frames) * time.Second / time.Duration(b.SampleRate)
}

// DecodeBase64 converts a base64 payload to raw bytes. Characters outside
// the base64 alphabet are stripped first; payloads with and without padding
// are both accepted.
func DecodeBase64(payload string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == '+', r == '/', r == '=':
			return r
		}
		return -1
	}, payload)

	if cleaned == "" {
		return nil, ErrEmptyPayload
	}

	if data, err := base64.StdEncoding.DecodeString(cleaned); err == nil {
		return data, nil
	}

	data, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(cleaned, "="))
	if err != nil {
		return nil, fmt.Errorf("decode base64 payload: %w", err)
	}
	return data, nil
}

// Decode turns raw payload bytes into a sample buffer. It attempts WAV
// container decoding first and falls back to raw PCM at the default rate.
func Decode(data []byte) (Buffer, error) {
	if len(data) == 0 {
		return Buffer{}, ErrEmptyPayload
	}

	if buffer, err := decodeWAV(data); err == nil {
		return buffer, nil
	}

	return decodePCM(data, DefaultSampleRate, 1), nil
}

// DecodePayload runs the full pipeline: base64 to bytes to sample buffer.
func DecodePayload(payload string) (Buffer, error) {
	data, err := DecodeBase64(payload)
	if err != nil {
		return Buffer{}, err
	}
	return Decode(data)
}

// decodeWAV parses a RIFF/WAVE container holding 16-bit PCM.
func decodeWAV(data []byte) (Buffer, error) {
	if len(data) < 44 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Buffer{}, errors.New("not a wav container")
	}

	var (
		sampleRate    int
		channels      int
		bitsPerSample int
		pcm           []byte
	)

	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkSize > len(data) {
			chunkSize = len(data) - body
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return Buffer{}, errors.New("short fmt chunk")
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 {
				return Buffer{}, fmt.Errorf("unsupported wav format %d", format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			pcm = data[body : body+chunkSize]
		}

		// Chunks are word-aligned.
		if chunkSize%2 == 1 {
			chunkSize++
		}
		offset = body + chunkSize
	}

	if sampleRate == 0 || channels == 0 || pcm == nil {
		return Buffer{}, errors.New("incomplete wav container")
	}
	if bitsPerSample != 16 {
		return Buffer{}, fmt.Errorf("unsupported bit depth %d", bitsPerSample)
	}

	return decodePCM(pcm, sampleRate, channels), nil
}

// decodePCM interprets bytes as 16-bit little-endian signed samples and
// rescales them to float32 in [-1, 1). An odd trailing byte is zero-padded.
func decodePCM(data []byte, sampleRate, channels int) Buffer {
	if len(data)%2 != 0 {
		data = append(append([]byte(nil), data...), 0)
	}

	samples := make([]float32, len(data)/2)
	for i := range samples {
		sample := int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
		samples[i] = float32(sample) / 32768.0
	}

	return Buffer{
		SampleRate: sampleRate,
		Channels:   channels,
		Samples:    samples,
	}
}
