package models

// Segment is a time-bounded slice of a transcript, in seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Sentiment holds the analysis service's tone assessment. Positive and
// negative are independent model outputs in [0,1]; nothing forces them to
// sum to 1 and they are stored as received.
type Sentiment struct {
	Overall  string  `json:"overall"`
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
}

// Analysis is the structured result of running a transcript through the
// analysis service. Summary and ActionItems are never empty after
// normalization.
type Analysis struct {
	Summary     []string  `json:"summary"`
	ActionItems []string  `json:"actionItems"`
	Sentiment   Sentiment `json:"sentiment"`
}

// MeetingRecord is the persisted result of one completed
// capture/upload + transcription + analysis cycle. ID, Title and Timestamp
// are assigned exactly once at save time; the record is read-only
// afterwards except for deletion.
type MeetingRecord struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Timestamp   string    `json:"timestamp"`
	Text        string    `json:"text"`
	Segments    []Segment `json:"segments,omitempty"`
	Summary     []string  `json:"summary"`
	ActionItems []string  `json:"actionItems"`
	Sentiment   Sentiment `json:"sentiment"`
}

// Transcript returns the record's transcript in the transcription
// service's shape.
func (m *MeetingRecord) Transcript() *Transcript {
	return &Transcript{Text: m.Text, Segments: m.Segments}
}

// Transcript is the transcription service output: plain text, plus ordered
// segments when timestamped transcription was requested and the service
// returned them.
type Transcript struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments,omitempty"`
}
