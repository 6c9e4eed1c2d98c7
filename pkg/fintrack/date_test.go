package fintrack

import (
	"math"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "date only format YYYY-MM-DD",
			input: "2025-08-30",
			want:  "2025-08-30",
		},
		{
			name:  "RFC3339 format",
			input: "2025-08-30T15:04:05Z",
			want:  "2025-08-30",
		},
		{
			name:  "RFC3339 with fraction and offset",
			input: "2025-08-30T15:04:05.123+02:00",
			want:  "2025-08-30",
		},
		{
			name:  "datetime without timezone",
			input: "2025-08-30T15:04:05",
			want:  "2025-08-30",
		},
		{
			name:  "unix milliseconds",
			input: "1756512000000",
			want:  "2025-08-30",
		},
		{
			name:  "null value",
			input: "null",
			want:  "",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:    "invalid format",
			input:   "not-a-date",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDate(tt.input)

			if (err != nil) != tt.wantErr {
				t.Errorf("parseDate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err != nil {
				return
			}

			gotStr := ""
			if !got.IsZero() {
				gotStr = got.Format("2006-01-02")
			}
			if gotStr != tt.want {
				t.Errorf("parseDate() = %v, want %v", gotStr, tt.want)
			}
		})
	}
}

func TestCoerceTime(t *testing.T) {
	ref := time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		input  interface{}
		wantOK bool
	}{
		{"time value", ref, true},
		{"time pointer", &ref, true},
		{"nil time pointer", (*time.Time)(nil), false},
		{"zero time", time.Time{}, false},
		{"string", "2025-03-01T10:00:00Z", true},
		{"int64 millis", ref.UnixMilli(), true},
		{"float millis", float64(ref.UnixMilli()), true},
		{"NaN", math.NaN(), false},
		{"garbage string", "yesterday", false},
		{"bool", true, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := coerceTime(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("coerceTime(%v) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && !got.Equal(ref) {
				t.Errorf("coerceTime(%v) = %v, want %v", tt.input, got, ref)
			}
		})
	}
}

func TestCoerceFloat(t *testing.T) {
	if got := coerceFloat(12.5); got != 12.5 {
		t.Errorf("coerceFloat(12.5) = %v", got)
	}
	if got := coerceFloat(int64(40)); got != 40 {
		t.Errorf("coerceFloat(int64) = %v", got)
	}
	if got := coerceFloat(" 7.25 "); got != 7.25 {
		t.Errorf("coerceFloat(string) = %v", got)
	}
	for _, bad := range []interface{}{"abc", nil, true, map[string]interface{}{}} {
		if got := coerceFloat(bad); !math.IsNaN(got) {
			t.Errorf("coerceFloat(%v) = %v, want NaN", bad, got)
		}
	}
}
