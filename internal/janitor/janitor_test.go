package janitor

import (
	"log/slog"
	"testing"
	"time"
)

func TestNewDefaultSchedule(t *testing.T) {
	j, err := New(Config{Logger: slog.New(slog.DiscardHandler)})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Следующий запуск после полуночи — в 03:00 того же дня
	from := time.Date(2025, 6, 1, 0, 30, 0, 0, time.UTC)
	next := j.schedule.Next(from)
	want := time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("Next() = %v, want %v", next, want)
	}
}

func TestNewCustomSchedule(t *testing.T) {
	j, err := New(Config{Schedule: "*/15 * * * *", Logger: slog.New(slog.DiscardHandler)})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	from := time.Date(2025, 6, 1, 10, 7, 0, 0, time.UTC)
	next := j.schedule.Next(from)
	want := time.Date(2025, 6, 1, 10, 15, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("Next() = %v, want %v", next, want)
	}
}

func TestNewInvalidSchedule(t *testing.T) {
	_, err := New(Config{Schedule: "not a cron", Logger: slog.New(slog.DiscardHandler)})
	if err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}
