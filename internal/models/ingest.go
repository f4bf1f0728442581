package models

// RawRow is a CSV row keyed by the original header names
type RawRow map[string]string

// Reject is a row excluded from ingestion together with the reason
type Reject struct {
	Row    RawRow `json:"row"`
	Reason string `json:"reason"`
}

// IngestResult represents the outcome of one upload
type IngestResult struct {
	Inserted      int      `json:"inserted"`
	Rejected      int      `json:"rejected"`
	SampleRejects []Reject `json:"sampleRejects"`
}
