package models

// Status represents the outcome of a record as it moves through the pipeline
type Status string

const (
	// StatusSuccess is both the optimistic initial state and the terminal
	// success state: a record stays here unless a stage demotes it.
	StatusSuccess          Status = "success"
	StatusFailedDownload   Status = "failed_download"
	StatusSkippedRobots    Status = "skipped_robots"
	StatusFailedProcessing Status = "failed_processing"
)

// String implements fmt.Stringer for logging
func (s Status) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// IsValid returns true if the status is a known value
func (s Status) IsValid() bool {
	switch s {
	case StatusSuccess, StatusFailedDownload, StatusSkippedRobots, StatusFailedProcessing:
		return true
	}
	return false
}

// IsFailure returns true for statuses that must carry an error message
func (s Status) IsFailure() bool {
	return s == StatusFailedDownload || s == StatusFailedProcessing
}

// IsTerminal returns true if no further stage may run for a record in this
// status. StatusSuccess is not terminal in this sense: the next stage still runs.
func (s Status) IsTerminal() bool {
	return s == StatusFailedDownload || s == StatusSkippedRobots || s == StatusFailedProcessing
}

// Kind is the coarse content classification of a URL
type Kind string

const (
	KindUnset    Kind = ""
	KindPage     Kind = "page"
	KindDocument Kind = "document"
	KindUnknown  Kind = "unknown"
)

// String implements fmt.Stringer for logging
func (k Kind) String() string {
	if k == "" {
		return "unset"
	}
	return string(k)
}
