package status

import "time"

// ImportPhase represents the current phase of a menu import
type ImportPhase string

const (
	// ImportPhaseImporting means an import is currently in progress
	ImportPhaseImporting ImportPhase = "Importing"

	// ImportPhaseComplete means the last import completed successfully
	ImportPhaseComplete ImportPhase = "Complete"

	// ImportPhaseFailed means the last import failed
	ImportPhaseFailed ImportPhase = "Failed"
)

// ImportStatus represents the import state of one menu collection
type ImportStatus struct {
	// Phase represents the current import phase
	Phase ImportPhase `json:"phase,omitempty"`

	// Message provides additional information about the import status
	Message string `json:"message,omitempty"`

	// Endpoint is the URL the collection was last imported from
	Endpoint string `json:"endpoint,omitempty"`

	// LastAttempt is the timestamp of the last import attempt
	LastAttempt *time.Time `json:"lastAttempt,omitempty"`

	// AttemptCount is the number of import attempts since last success
	AttemptCount int `json:"attemptCount,omitempty"`

	// LastImportTime is the timestamp of the last successful import
	LastImportTime *time.Time `json:"lastImportTime,omitempty"`

	// LastPayloadHash is the SHA-256 of the last successfully imported document
	LastPayloadHash string `json:"lastPayloadHash,omitempty"`

	// Counts of the last successful import
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
	Skipped int `json:"skipped"`
	Linked  int `json:"linked"`
}
