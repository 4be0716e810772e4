package scheduler

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mtzanidakis/tripdesk/internal/config"
	"github.com/mtzanidakis/tripdesk/internal/store"
)

func TestParseSchedule(t *testing.T) {
	tests := []struct {
		raw      string
		wantKind string
		wantErr  bool
	}{
		{"0 3 * * *", "cron", false},
		{"@daily", "cron", false},
		{"6h", "interval", false},
		{"90m", "interval", false},
		{"", "", true},
		{"-1h", "", true},
		{"not a schedule", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			s, err := ParseSchedule(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSchedule(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if s.Kind != tt.wantKind {
				t.Errorf("ParseSchedule(%q) kind = %q, want %q", tt.raw, s.Kind, tt.wantKind)
			}
		})
	}
}

func TestScheduleNext(t *testing.T) {
	ref := time.Date(2026, 3, 1, 10, 30, 0, 0, time.Local)

	cron, _ := ParseSchedule("0 3 * * *")
	next, err := cron.Next(ref)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	want := time.Date(2026, 3, 2, 3, 0, 0, 0, time.Local)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}

	interval, _ := ParseSchedule("6h")
	next, err = interval.Next(ref)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if !next.Equal(ref.Add(6 * time.Hour)) {
		t.Errorf("expected ref+6h, got %v", next)
	}

	if _, err := (Schedule{}).Next(ref); err == nil {
		t.Error("expected error for empty schedule")
	}
}

func TestScheduleString(t *testing.T) {
	tests := []struct {
		raw, want string
	}{
		{"0 3 * * *", "0 3 * * *"},
		{"1h", "Every hour"},
		{"6h", "Every 6 hours"},
		{"1m", "Every minute"},
		{"90m", "Every 90 minutes"},
		{"45s", "Every 45s"},
	}
	for _, tt := range tests {
		s, err := ParseSchedule(tt.raw)
		if err != nil {
			t.Fatalf("parse %q: %v", tt.raw, err)
		}
		if got := s.String(); got != tt.want {
			t.Errorf("String(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNewPruner(t *testing.T) {
	p, err := NewPruner(nil, config.StoreConfig{}, nil)
	if err != nil || p != nil {
		t.Errorf("expected nil pruner when retention is off, got %v, %v", p, err)
	}

	_, err = NewPruner(nil, config.StoreConfig{Retention: time.Hour, PruneSchedule: "bogus"}, nil)
	if err == nil {
		t.Error("expected error for invalid schedule")
	}
}

func TestPrunerRunOnce(t *testing.T) {
	s, err := store.New(config.StoreConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.SaveSession(&store.Session{ID: "s1", Channel: "web"}); err != nil {
		t.Fatalf("save session: %v", err)
	}

	p, err := NewPruner(s, config.StoreConfig{Retention: time.Hour, PruneSchedule: "@hourly"}, nil)
	if err != nil {
		t.Fatalf("new pruner: %v", err)
	}

	n, err := p.RunOnce(time.Now())
	if err != nil || n != 0 {
		t.Fatalf("expected nothing pruned, got %d (err %v)", n, err)
	}

	n, err = p.RunOnce(time.Now().Add(2 * time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("expected 1 pruned session, got %d (err %v)", n, err)
	}
}
