package models

// Audio is a finished audio object produced by capture or upload, ready
// for transcription.
type Audio struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Size returns the audio payload size in bytes.
func (a Audio) Size() int64 { return int64(len(a.Data)) }
