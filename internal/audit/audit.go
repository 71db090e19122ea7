// Package audit implements the order audit log: a single append-only CSV
// at a configured path, flushed on every write so each row lands durably
// before the call returns. The contract is "exactly one row per event",
// not "latest state", so entries are appended rather than upserted.
package audit

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventSent      = "SENT"
	EventModified  = "MODIFIED"
	EventCancelled = "CANCELLED"
	EventFilled    = "FILLED"
)

var header = []string{"timestamp", "event", "symbol", "quantity", "price", "order_id", "status", "notes"}

// Row is one audit log entry.
type Row struct {
	Event    string
	Symbol   string
	Quantity int64
	Price    decimal.Decimal
	OrderID  string
	Status   string
	Notes    string
}

// Log is an append-only, flush-on-write CSV audit sink.
type Log struct {
	mu   sync.Mutex
	f    *os.File
	w    *csv.Writer
	nowFn func() time.Time
}

// Open creates or appends to the audit log at path, writing the header
// only if the file is new.
func Open(path string) (*Log, error) {
	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	w := csv.NewWriter(f)
	l := &Log{f: f, w: w, nowFn: time.Now}

	if isNew {
		if err := w.Write(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("write audit header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("flush audit header: %w", err)
		}
	}

	return l, nil
}

// Record appends one row and flushes immediately.
func (l *Log) Record(row Row) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	record := []string{
		l.nowFn().UTC().Format(time.RFC3339Nano),
		row.Event,
		row.Symbol,
		fmt.Sprintf("%d", row.Quantity),
		row.Price.String(),
		row.OrderID,
		row.Status,
		row.Notes,
	}

	if err := l.w.Write(record); err != nil {
		return fmt.Errorf("write audit row: %w", err)
	}
	l.w.Flush()
	return l.w.Error()
}

// Close flushes and closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Flush()
	return l.f.Close()
}
