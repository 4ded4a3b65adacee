package core

type AudioEncodingFormat int

const (
	PCM  AudioEncodingFormat = iota // Pulse-code modulation, 16-bit little-endian.
	ULAW                            // µ-law encoding.
	ALAW                            // A-law encoding.
)

// AudioClip is one recorded utterance handed to the transcriber, or one
// synthesized reply handed back for playback.
type AudioClip struct {
	Data       []byte              // Raw audio data.
	SampleRate int                 // Sample rate of the audio data.
	Channels   int                 // Number of audio channels.
	Format     AudioEncodingFormat // Encoding format of the audio data.
}

// DurationSeconds estimates the clip length from its encoding parameters.
func (c *AudioClip) DurationSeconds() float64 {
	if c.SampleRate == 0 || c.Channels == 0 || len(c.Data) == 0 {
		return 0.0
	}
	bytesPerSample := 2 // 16-bit PCM
	if c.Format == ULAW || c.Format == ALAW {
		bytesPerSample = 1
	}
	totalSamples := len(c.Data) / (bytesPerSample * c.Channels)
	return float64(totalSamples) / float64(c.SampleRate)
}
