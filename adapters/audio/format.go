// Package audio moves sound between the actor and the room: microphone
// capture, speaker playback and the temporary WAV files handed to the
// reply model.
package audio

import (
	"encoding/binary"
	"mime"
	"strconv"
	"strings"
)

const (
	// CaptureSampleRate and CaptureChannels are the microphone format
	CaptureSampleRate = 16000
	CaptureChannels   = 1

	// DefaultPlaybackRate is used when the MIME type does not carry a rate
	DefaultPlaybackRate = 24000
	// PlaybackChannels is the speaker layout; mono audio is duplicated
	PlaybackChannels = 2
)

// ParseRate extracts the sample rate from a MIME type such as
// "audio/L16;codec=pcm;rate=24000"
func ParseRate(mimeType string) (int, bool) {
	_, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return 0, false
	}
	rate, err := strconv.Atoi(params["rate"])
	if err != nil || rate <= 0 {
		return 0, false
	}
	return rate, true
}

// PlaybackRate returns the rate to play audio of mimeType at
func PlaybackRate(mimeType string) int {
	if rate, ok := ParseRate(mimeType); ok {
		return rate
	}
	return DefaultPlaybackRate
}

// IsRawPCM reports whether mimeType denotes headerless 16-bit PCM. An empty
// MIME type is treated as raw PCM.
func IsRawPCM(mimeType string) bool {
	if mimeType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return false
	}
	return strings.EqualFold(mediaType, "audio/L16") || strings.EqualFold(mediaType, "audio/pcm")
}

// Samples decodes 16-bit little-endian PCM. A trailing odd byte is dropped.
func Samples(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return out
}

// Bytes encodes samples as 16-bit little-endian PCM
func Bytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// Stereo duplicates every mono sample into a left and right pair
func Stereo(mono []int16) []int16 {
	out := make([]int16, len(mono)*2)
	for i, s := range mono {
		out[i*2] = s
		out[i*2+1] = s
	}
	return out
}
