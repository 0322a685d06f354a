package indexer

import "time"

// Result aggregates the outcome of one repository index run. Errors
// holds one "{path}: {message}" entry per failed file.
type Result struct {
	Indexed          int
	Skipped          int
	Failed           int
	Purged           int
	FragmentsCreated int
	Errors           []string
}

// Stats describes the current index state of one repository.
type Stats struct {
	TotalDocuments int
	TotalFragments int

	// LastIndexed is the fingerprint store's modification time.
	// HasLastIndexed is false when the repository was never indexed.
	LastIndexed    time.Time
	HasLastIndexed bool
}
