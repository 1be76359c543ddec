package domain

import "time"

// Job is a persisted resumable batch run over one input file.
type Job struct {
	JobID            string
	InputFileHash    string
	TotalRows        int
	LastCommittedRow int
	StartedAt        time.Time
	FinishedAt       *time.Time
	Status           JobStatus
}

// JobRow is one persisted row outcome within a Job.
type JobRow struct {
	JobID              string
	RowIndex           int
	InputPayloadHash   string
	ClassificationJSON string
	Error              string
	CommittedBatchID   int
}

// InputRow is one row read from the row source (e.g. a CSV file),
// carrying the columns the core consumes plus whatever it must echo
// back on output.
type InputRow struct {
	RowIndex                  int
	EntityName                string
	DirectorName              string
	Keyword                   string
	ContactNumber             string
	EmailAddress              string
	RegisteredAddressProvince string
}

// OutputRow is an InputRow enriched with its classification outcome,
// shaped per the output row schema.
type OutputRow struct {
	InputRow
	Ethnicity        Ethnicity
	Confidence       float64
	Method           Method
	ProcessingTimeMs float64
	Status           RowStatus
	ErrorMessage     string
}
