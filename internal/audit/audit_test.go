package audit

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func TestOpenWritesHeaderOnlyOnce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "audit.csv")

	l1, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := l1.Record(Row{Event: EventSent, Symbol: "AAPL", Quantity: 10, Price: decimal.NewFromInt(100), OrderID: "ord-1", Status: "Pending"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	l1.Close()

	l2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen Open() error = %v", err)
	}
	if err := l2.Record(Row{Event: EventFilled, Symbol: "AAPL", Quantity: 10, Price: decimal.NewFromInt(100), OrderID: "ord-1", Status: "Filled"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	l2.Close()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("os.Open() error = %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}

	// header + 2 data rows, header appearing exactly once.
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}
	if rows[0][0] != "timestamp" {
		t.Errorf("rows[0] = %v, want header", rows[0])
	}
	if rows[1][1] != EventSent || rows[2][1] != EventFilled {
		t.Errorf("unexpected event column ordering: %v / %v", rows[1][1], rows[2][1])
	}
}

func TestRecordRoundTripsFields(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "audit.csv")

	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer l.Close()

	if err := l.Record(Row{
		Event:    EventSent,
		Symbol:   "AAPL",
		Quantity: -5,
		Price:    decimal.NewFromFloat(110.5),
		OrderID:  "ord-7",
		Status:   "Active",
		Notes:    "test note",
	}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	f, _ := os.Open(path)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}

	row := rows[1]
	if row[2] != "AAPL" || row[3] != "-5" || row[5] != "ord-7" || row[7] != "test note" {
		t.Errorf("row = %v, fields did not round-trip", row)
	}
}
