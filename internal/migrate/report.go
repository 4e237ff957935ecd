// Package migrate converts raw Slack export records into correlation store
// records.
package migrate

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Failure is one failed unit of work (a record, file, or channel) with the
// error that stopped it.
type Failure struct {
	Unit string
	Err  error
}

// Report collects per-unit outcomes of one pipeline stage. Stages report
// partial success instead of all-or-nothing: thanks to upsert idempotence a
// rerun only needs to redo the failed units.
type Report struct {
	RunID string

	mu        sync.Mutex
	succeeded int
	failures  []Failure
}

// NewReport creates a report with a fresh run id.
func NewReport() *Report {
	return &Report{RunID: uuid.NewString()}
}

// Success records one successfully processed unit.
func (r *Report) Success() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.succeeded++
}

// Fail records a failed unit.
func (r *Report) Fail(unit string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, Failure{Unit: unit, Err: err})
}

// Succeeded returns the number of processed units.
func (r *Report) Succeeded() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.succeeded
}

// Failures returns a copy of the recorded failures.
func (r *Report) Failures() []Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Failure, len(r.failures))
	copy(out, r.failures)
	return out
}

// Ok reports whether every unit succeeded.
func (r *Report) Ok() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.failures) == 0
}

// Summary renders a one-line result for CLI output.
func (r *Report) Summary() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf("run %s: %d succeeded, %d failed", r.RunID, r.succeeded, len(r.failures))
}
