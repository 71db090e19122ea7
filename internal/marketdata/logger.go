package marketdata

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"tradingcore/internal/core"
)

type dedupKey struct {
	timestamp time.Time
	price     string
}

type openFile struct {
	f    *os.File
	w    *csv.Writer
	date string
}

// Logger is the live market-data recorder: one directory per symbol under
// baseDir/<SYMBOL>/, one CSV file per UTC date named <SYMBOL>_<YYYYMMDD>.csv,
// header written only on file creation, every tick flushed. Consecutive
// identical (timestamp, price) pairs per symbol are suppressed.
type Logger struct {
	mu      sync.Mutex
	baseDir string
	files   map[string]*openFile
	lastSeen map[string]dedupKey
}

// NewLogger creates a logger rooted at baseDir (e.g. "data/live").
func NewLogger(baseDir string) *Logger {
	return &Logger{
		baseDir:  baseDir,
		files:    make(map[string]*openFile),
		lastSeen: make(map[string]dedupKey),
	}
}

// Write appends evt to its symbol's date-rotated file, deduplicating
// consecutive identical (timestamp, price) pairs for that symbol.
func (l *Logger) Write(evt core.MarketDataEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := dedupKey{timestamp: evt.Timestamp, price: evt.Price.String()}
	if prev, ok := l.lastSeen[evt.Symbol]; ok && prev == key {
		return nil
	}
	l.lastSeen[evt.Symbol] = key

	date := evt.Timestamp.UTC().Format("20060102")
	fileKey := evt.Symbol + "_" + date

	of, ok := l.files[fileKey]
	if !ok || of.date != date {
		if of != nil {
			of.w.Flush()
			of.f.Close()
		}
		var err error
		of, err = l.openFile(evt.Symbol, date)
		if err != nil {
			return err
		}
		l.files[fileKey] = of
	}

	record := []string{evt.Timestamp.Format("2006-01-02T15:04:05"), evt.Symbol, evt.Price.String()}
	if err := of.w.Write(record); err != nil {
		return fmt.Errorf("write market data row: %w", err)
	}
	of.w.Flush()
	return of.w.Error()
}

func (l *Logger) openFile(symbol, date string) (*openFile, error) {
	dir := filepath.Join(l.baseDir, symbol)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create symbol dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", symbol, date))
	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open market data file: %w", err)
	}

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write([]string{"Datetime", "Symbol", "Close"}); err != nil {
			f.Close()
			return nil, fmt.Errorf("write market data header: %w", err)
		}
		w.Flush()
	}

	return &openFile{f: f, w: w, date: date}, nil
}

// Close flushes and closes every open file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, of := range l.files {
		of.w.Flush()
		if err := of.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
