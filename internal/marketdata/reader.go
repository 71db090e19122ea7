// Package marketdata implements the simulation clock's CSV input and the
// live gateway's rotating CSV output, built directly on stdlib
// encoding/csv, matching the style used for the audit log.
package marketdata

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"tradingcore/internal/core"
)

var timeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

func parseDatetime(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, fmt.Errorf("parse datetime %q: %w", s, lastErr)
}

// Reader streams MarketDataEvent rows from a CSV with Datetime, Symbol,
// Close columns. Rows are trusted to already be sorted ascending by
// Datetime and deduplicated upstream; the reader does not re-sort.
type Reader struct {
	events []core.MarketDataEvent
	idx    int
}

// NewReader loads and parses path. The core reads only Datetime, Symbol,
// and Close; any extra columns are ignored.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &core.DataSourceError{Reason: "open market data csv", Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, &core.DataSourceError{Reason: "parse market data csv", Err: err}
	}
	if len(records) == 0 {
		return &Reader{}, nil
	}

	header := records[0]
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"Datetime", "Symbol", "Close"} {
		if _, ok := col[required]; !ok {
			return nil, &core.DataSourceError{Reason: fmt.Sprintf("missing column %q", required)}
		}
	}

	events := make([]core.MarketDataEvent, 0, len(records)-1)
	for _, rec := range records[1:] {
		ts, err := parseDatetime(rec[col["Datetime"]])
		if err != nil {
			return nil, &core.DataSourceError{Reason: "parse row timestamp", Err: err}
		}
		price, err := decimal.NewFromString(rec[col["Close"]])
		if err != nil {
			return nil, &core.DataSourceError{Reason: "parse row price", Err: err}
		}
		events = append(events, core.MarketDataEvent{
			Timestamp: ts,
			Symbol:    rec[col["Symbol"]],
			Price:     price,
		})
	}

	return &Reader{events: events}, nil
}

// Next returns the next event in the stream and true, or the zero value
// and false once exhausted.
func (r *Reader) Next() (core.MarketDataEvent, bool) {
	if r.idx >= len(r.events) {
		return core.MarketDataEvent{}, false
	}
	evt := r.events[r.idx]
	r.idx++
	return evt, true
}

// Len returns the total number of events in the stream.
func (r *Reader) Len() int {
	return len(r.events)
}
