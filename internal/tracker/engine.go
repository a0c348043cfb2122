package tracker

import (
	"database/sql"
	"sync"
)

// Engine owns the time entry and invoice collections. All operations that
// check state before mutating it (starting a timer, reconciling entries into
// an invoice, sweeping) hold the mutex for the whole check-then-act sequence,
// so concurrent callers can never observe or create a second active timer or
// bill the same entry twice.
type Engine struct {
	db *sql.DB
	mu sync.Mutex
}

func New(db *sql.DB) *Engine {
	return &Engine{db: db}
}
