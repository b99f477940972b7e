package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
)

func TestTruncateRunesHelper(t *testing.T) {
	tests := []struct {
		in     string
		max    int
		suffix string
		want   string
	}{
		{"Japan", 10, "…", "Japan"},
		{"South-East Asia", 8, "…", "South-E…"},
		{"日本語の地域", 7, "…", "日本語…"},
		{"abc", 0, "…", ""},
		{"abcdef", 2, "...", ".."},
	}
	for _, tt := range tests {
		got := truncateRunesHelper(tt.in, tt.max, tt.suffix)
		if got != tt.want {
			t.Errorf("truncateRunesHelper(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
		if runewidth.StringWidth(got) > tt.max {
			t.Errorf("truncateRunesHelper(%q, %d) width %d exceeds max", tt.in, tt.max, runewidth.StringWidth(got))
		}
	}
}

func TestPadRight(t *testing.T) {
	if got := padRight("日本", 6); got != "日本  " {
		t.Errorf("padRight wide = %q", got)
	}
	if got := padRight("toolong", 3); got != "toolong" {
		t.Errorf("padRight should not cut, got %q", got)
	}
}

func TestFormatPrice(t *testing.T) {
	tests := map[int64]string{
		0:          "n/a",
		-5:         "n/a",
		950:        "950",
		1000:       "1,000",
		2500000:    "2,500,000",
		1234567890: "1,234,567,890",
	}
	for in, want := range tests {
		if got := FormatPrice(in); got != want {
			t.Errorf("FormatPrice(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatTimeRel(t *testing.T) {
	now := time.Now()
	tests := []struct {
		t    time.Time
		want string
	}{
		{time.Time{}, "unknown"},
		{now.Add(time.Hour), "now"},
		{now.Add(-30 * time.Second), "now"},
		{now.Add(-5 * time.Minute), "5m ago"},
		{now.Add(-3 * time.Hour), "3h ago"},
		{now.Add(-2 * 24 * time.Hour), "2d ago"},
		{now.Add(-14 * 24 * time.Hour), "2w ago"},
		{now.Add(-90 * 24 * time.Hour), "3mo ago"},
	}
	for _, tt := range tests {
		if got := FormatTimeRel(tt.t); got != tt.want {
			t.Errorf("FormatTimeRel(%v) = %q, want %q", tt.t, got, tt.want)
		}
	}
}

func TestRenderDealStatusBadge(t *testing.T) {
	for status, label := range map[string]string{
		"active":     "ACTIVE",
		"off_market": "OFF MKT",
		"completed":  "DONE",
		"bogus":      "????",
	} {
		if got := RenderDealStatusBadge(status); !strings.Contains(got, label) {
			t.Errorf("badge for %s = %q, want %q inside", status, got, label)
		}
	}
	if RenderDivider(0) != "" {
		t.Error("zero-width divider should be empty")
	}
	if !strings.Contains(RenderChip("Very Long Region Name", 8, false), "…") {
		t.Error("chip should be truncated")
	}
}
