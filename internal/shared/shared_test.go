package shared

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestFormat(t *testing.T) {
	t.Run("FormatDuration", func(t *testing.T) {
		tc := []struct {
			name string
			ms   int
			want string
		}{
			{name: "zero", ms: 0, want: "0:00"},
			{name: "under a minute", ms: 9_500, want: "0:09"},
			{name: "several minutes", ms: 245_000, want: "4:05"},
			{name: "negative", ms: -1, want: "0:00"},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				if got := FormatDuration(tt.ms); got != tt.want {
					t.Errorf("FormatDuration(%d) = %v, want %v", tt.ms, got, tt.want)
				}
			})
		}
	})

	t.Run("FormatFileSize", func(t *testing.T) {
		tc := []struct {
			size int64
			want string
		}{
			{size: 0, want: "Zero KB"},
			{size: 12, want: "1 KB"},
			{size: 512_000, want: "512 KB"},
			{size: 8_400_000, want: "8.4 MB"},
			{size: 1_250_000_000, want: "1.25 GB"},
		}

		for _, tt := range tc {
			if got := FormatFileSize(tt.size); got != tt.want {
				t.Errorf("FormatFileSize(%d) = %v, want %v", tt.size, got, tt.want)
			}
		}
	})

	t.Run("FormatCapacity", func(t *testing.T) {
		if got := FormatCapacity(60 * 1024 * 1024 * 1024); got != "60.0G" {
			t.Errorf("expected 60.0G, got %s", got)
		}
		if got := FormatCapacity(3 * 1024 * 1024 * 1024 / 2); got != "1.5G" {
			t.Errorf("expected 1.5G, got %s", got)
		}
	})

	t.Run("FormatDate", func(t *testing.T) {
		ts := time.Date(2024, 3, 9, 14, 5, 0, 0, time.Local)
		if got := FormatDate(ts); got != "2024-03-09 14:05" {
			t.Errorf("unexpected date %s", got)
		}
		if got := FormatDate(time.Time{}); got != "-" {
			t.Errorf("expected placeholder for zero time, got %s", got)
		}
		if got := FormatTimestamp(ts); got != "14:05:00" {
			t.Errorf("unexpected timestamp %s", got)
		}
	})
}

func TestLogging(t *testing.T) {
	t.Run("ParseLogLevel", func(t *testing.T) {
		if got := ParseLogLevel("DEBUG"); got != log.DebugLevel {
			t.Errorf("expected debug level, got %v", got)
		}
		if got := ParseLogLevel("nonsense"); got != log.InfoLevel {
			t.Errorf("expected info fallback, got %v", got)
		}
	})

	t.Run("NewFileLogger", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "app.log")
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		logger.Info("hello", "k", "v")
	})

	t.Run("GenerateID", func(t *testing.T) {
		a, b := GenerateID(), GenerateID()
		if a == b || len(a) != 36 {
			t.Errorf("expected distinct uuids, got %s and %s", a, b)
		}
	})
}

func TestMatchError(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &MatchError{SongID: "A", TargetID: "9", Reason: "catalog id not found"})

	if !errors.Is(err, ErrMatchRejected) {
		t.Error("expected MatchError to match ErrMatchRejected")
	}

	var me *MatchError
	if !errors.As(err, &me) || me.Reason != "catalog id not found" {
		t.Errorf("expected reason to survive wrapping, got %v", me)
	}

	if !strings.Contains(err.Error(), "catalog id not found") {
		t.Errorf("expected message to carry reason, got %s", err)
	}
}

func TestCatalogURLs(t *testing.T) {
	got := CatalogSearchURL("晴天-周杰伦")
	if !strings.HasPrefix(got, "https://music.163.com/#/search/m/?s=") || !strings.HasSuffix(got, "&type=1") {
		t.Errorf("unexpected search url %s", got)
	}
	if got := CatalogSongURL("186016"); got != "https://music.163.com/#/song?id=186016" {
		t.Errorf("unexpected song url %s", got)
	}
}

func TestMarshalJSON(t *testing.T) {
	t.Run("Compact", func(t *testing.T) {
		data, err := MarshalJSON(map[string]int{"a": 1}, false)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if string(data) != `{"a":1}` {
			t.Errorf("unexpected output %s", data)
		}
	})

	t.Run("Pretty", func(t *testing.T) {
		data, err := MarshalJSON(map[string]int{"a": 1}, true)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if string(data) != "{\n  \"a\": 1\n}" {
			t.Errorf("unexpected output %s", data)
		}
	})

	t.Run("Unsupported Value", func(t *testing.T) {
		if _, err := MarshalJSON(make(chan int), false); err == nil {
			t.Error("expected error for channel value")
		}
	})
}
