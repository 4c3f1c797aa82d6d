package operations

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/segmentio/ksuid"
)

// Report is the result of an operation.
// It contains the inputs and other metadata that was used to execute the operation.
type Report[IN, OUT any] struct {
	ID        string       `json:"id"`
	Def       Definition   `json:"definition"`
	Output    OUT          `json:"output"`
	Input     IN           `json:"input"`
	Timestamp *time.Time   `json:"timestamp"`
	Err       *ReportError `json:"error"`
}

// ToGenericReport converts the Report to a generic Report.
func (r Report[IN, OUT]) ToGenericReport() Report[any, any] {
	return genericReport(r)
}

// WriteJSON writes the report as indented JSON to path, creating parent directories as needed.
func (r Report[IN, OUT]) WriteJSON(path string) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report %s: %w", r.ID, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	if err = os.WriteFile(path, append(b, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}

	return nil
}

// NewReport creates a new report. Report IDs are KSUIDs, so they sort by creation time.
func NewReport[IN, OUT any](def Definition, input IN, output OUT, err error) Report[IN, OUT] {
	now := time.Now()
	r := Report[IN, OUT]{
		ID:        ksuid.New().String(),
		Def:       def,
		Output:    output,
		Input:     input,
		Timestamp: &now,
	}
	if err != nil {
		r.Err = &ReportError{Message: err.Error()}
	}

	return r
}

// ReportError represents an error in the Report.
// Its purpose is to have an exported field `Message` for marshalling as the
// native error cant be marshaled to JSON.
type ReportError struct {
	Message string `json:"message"`
}

// Error implements the error interface.
func (o ReportError) Error() string {
	return o.Message
}

var ErrReportNotFound = errors.New("report not found")

// Reporter stores reports.
type Reporter interface {
	GetReport(id string) (Report[any, any], error)
	GetReports() ([]Report[any, any], error)
	AddReport(report Report[any, any]) error
}

// MemoryReporter stores reports in memory. It is safe for concurrent use.
type MemoryReporter struct {
	reports []Report[any, any]
	mu      sync.RWMutex
}

// NewMemoryReporter creates a new MemoryReporter.
func NewMemoryReporter() *MemoryReporter {
	return &MemoryReporter{}
}

// AddReport adds a report to the memory reporter.
func (e *MemoryReporter) AddReport(report Report[any, any]) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.reports = append(e.reports, report)

	return nil
}

// GetReports returns all reports in the order they were added.
func (e *MemoryReporter) GetReports() ([]Report[any, any], error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	// Create a copy to avoid data races after returning
	reports := make([]Report[any, any], len(e.reports))
	copy(reports, e.reports)

	return reports, nil
}

// GetReport returns a report by ID.
// Returns ErrReportNotFound if the report is not found.
func (e *MemoryReporter) GetReport(id string) (Report[any, any], error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, report := range e.reports {
		if report.ID == id {
			return report, nil
		}
	}

	return Report[any, any]{}, fmt.Errorf("report_id %s: %w", id, ErrReportNotFound)
}

func genericReport[IN, OUT any](r Report[IN, OUT]) Report[any, any] {
	return Report[any, any]{
		ID:        r.ID,
		Def:       r.Def,
		Output:    r.Output,
		Input:     r.Input,
		Timestamp: r.Timestamp,
		Err:       r.Err,
	}
}
