package domain

// Fingerprint is a Chromaprint fingerprint as produced by fpcalc.
type Fingerprint struct {
	Duration int    `json:"duration"`
	Value    string `json:"fingerprint"`
}

// AcoustIDMatch is the best recording found for a fingerprint.
type AcoustIDMatch struct {
	Score       float64
	RecordingID string
	Title       string
	Artists     []string
	Album       string
}
