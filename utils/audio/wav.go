package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"alignercoach/core"

	"github.com/zaf/g711"
)

const wavHeaderSize = 44

// ClipToPCM16 returns the clip's samples as 16-bit little-endian PCM,
// transcoding µ-law and A-law payloads as needed.
func ClipToPCM16(clip core.AudioClip) ([]byte, error) {
	switch clip.Format {
	case core.PCM:
		if len(clip.Data)%2 != 0 {
			return nil, fmt.Errorf("audio: PCM16 payload has odd length %d", len(clip.Data))
		}
		return clip.Data, nil
	case core.ULAW:
		return g711.DecodeUlaw(clip.Data), nil
	case core.ALAW:
		return g711.DecodeAlaw(clip.Data), nil
	default:
		return nil, fmt.Errorf("audio: unsupported encoding %d", clip.Format)
	}
}

// EncodeWAV wraps 16-bit little-endian PCM in a WAV container.
func EncodeWAV(pcm []byte, sampleRate, channels int) ([]byte, error) {
	if len(pcm) == 0 {
		return nil, fmt.Errorf("audio: cannot encode empty PCM payload")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("audio: sample rate must be positive, got %d", sampleRate)
	}
	if channels <= 0 {
		channels = 1
	}

	const bitsPerSample = 16
	dataSize := uint32(len(pcm))
	byteRate := uint32(sampleRate * channels * bitsPerSample / 8)
	blockAlign := uint16(channels * bitsPerSample / 8)

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(pcm)))
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))            // fmt chunk size
	binary.Write(buf, binary.LittleEndian, uint16(1))             // PCM
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, byteRate)
	binary.Write(buf, binary.LittleEndian, blockAlign)
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, dataSize)
	buf.Write(pcm)

	return buf.Bytes(), nil
}

// ClipToWAV transcodes a clip to PCM16 and wraps it in a WAV container
// suitable for the transcription endpoint.
func ClipToWAV(clip core.AudioClip) ([]byte, error) {
	pcm, err := ClipToPCM16(clip)
	if err != nil {
		return nil, err
	}
	channels := clip.Channels
	if channels <= 0 {
		channels = 1
	}
	sampleRate := clip.SampleRate
	if sampleRate <= 0 {
		sampleRate = 8000
	}
	return EncodeWAV(pcm, sampleRate, channels)
}

// ValidateWAV performs a cheap structural check on a WAV payload.
func ValidateWAV(data []byte) error {
	if len(data) < wavHeaderSize {
		return fmt.Errorf("audio: WAV payload too short: %d bytes", len(data))
	}
	if string(data[0:4]) != "RIFF" {
		return fmt.Errorf("audio: missing RIFF header")
	}
	if string(data[8:12]) != "WAVE" {
		return fmt.Errorf("audio: missing WAVE format")
	}
	if string(data[12:16]) != "fmt " {
		return fmt.Errorf("audio: missing fmt chunk")
	}
	if string(data[36:40]) != "data" {
		return fmt.Errorf("audio: missing data chunk")
	}
	return nil
}
