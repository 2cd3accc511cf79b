package numerator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

// Mock objects
type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

type mockQuerier struct {
	mu           sync.Mutex
	currentValue int64 // Simulates DB sequence value
	lastIncr     int64 // Track last increment passed
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Strict passes (key); cached passes (key, increment).
	var increment int64 = 1
	if len(args) == 2 {
		if val, ok := args[1].(int64); ok {
			increment = val
		}
	}

	m.currentValue += increment
	m.lastIncr = increment

	return &mockRow{val: m.currentValue}
}

var testPeriod = time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC)

func TestGetNextNumber_Strict(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := DefaultConfig("INV")

	// 1. First call
	num, err := svc.GetNextNumber(ctx, cfg, nil, testPeriod)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "INV-2026-00001" { // mock starts at 1
		t.Errorf("expected INV-2026-00001, got %s", num)
	}

	// 2. Second call
	num, err = svc.GetNextNumber(ctx, cfg, nil, testPeriod)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "INV-2026-00002" {
		t.Errorf("expected INV-2026-00002, got %s", num)
	}
}

func TestGetNextNumber_Cached(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := DefaultConfig("TRF")

	opts := &Options{
		Strategy:  StrategyCached,
		RangeSize: 10,
	}

	// First call allocates range 1..10 with a single DB round trip.
	num, err := svc.GetNextNumber(ctx, cfg, opts, testPeriod)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "TRF-2026-00001" {
		t.Errorf("expected TRF-2026-00001, got %s", num)
	}
	if q.lastIncr != 10 {
		t.Errorf("expected range allocation of 10, got %d", q.lastIncr)
	}

	// Next nine calls are served from memory.
	for i := 2; i <= 10; i++ {
		num, err = svc.GetNextNumber(ctx, cfg, opts, testPeriod)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if num != "TRF-2026-00010" {
		t.Errorf("expected TRF-2026-00010, got %s", num)
	}
	if q.currentValue != 10 {
		t.Errorf("expected DB value still 10, got %d", q.currentValue)
	}

	// Eleventh call triggers a new range.
	num, err = svc.GetNextNumber(ctx, cfg, opts, testPeriod)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "TRF-2026-00011" {
		t.Errorf("expected TRF-2026-00011, got %s", num)
	}
	if q.currentValue != 20 {
		t.Errorf("expected DB value 20 after refill, got %d", q.currentValue)
	}
}

func TestGetNextNumber_Concurrent(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := DefaultConfig("RCPT")

	const workers = 20
	var wg sync.WaitGroup
	seen := sync.Map{}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			num, err := svc.GetNextNumber(ctx, cfg, &Options{Strategy: StrategyCached, RangeSize: 5}, testPeriod)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if _, dup := seen.LoadOrStore(num, true); dup {
				t.Errorf("duplicate number generated: %s", num)
			}
		}()
	}
	wg.Wait()
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"INV-2026-00042", 42},
		{"RCPT-00007", 7},
		{"garbage", -1},
	}

	for _, tt := range tests {
		if got := ParseNumber(tt.in); got != tt.want {
			t.Errorf("ParseNumber(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatNumber_NoYear(t *testing.T) {
	svc := New(&mockQuerier{})
	cfg := Config{Prefix: "RET", PadWidth: 4, ResetPeriod: "never"}

	got := svc.formatNumber(cfg, testPeriod, 12)
	if got != "RET-0012" {
		t.Errorf("expected RET-0012, got %s", got)
	}
}
