package sync

import "time"

const (
	EventImportStarted  = "import.started"
	EventEntryImported  = "import.entry"
	EventEntryFailed    = "import.entry_failed"
	EventImportFinished = "import.finished"
	EventImportFailed   = "import.failed"
)

type ImportEvent struct {
	Type      string    `json:"type"`
	RunID     string    `json:"run_id"`
	Name      string    `json:"name,omitempty"`
	PokeID    int       `json:"poke_id,omitempty"`
	Processed int       `json:"processed"`
	Total     int       `json:"total"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}
