package validation

import (
	"testing"
	"time"

	"github.com/mmeshcher/car-rental-system/internal/model"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "plain date",
			value: "2024-07-01",
			want:  model.Date(2024, 7, 1),
		},
		{
			name:  "rfc3339 timestamp",
			value: "2024-07-01T15:04:05Z",
			want:  model.Date(2024, 7, 1),
		},
		{
			name:  "timestamp with offset",
			value: "2024-07-01T23:30:00-02:00",
			want:  model.Date(2024, 7, 2),
		},
		{
			name:  "surrounding spaces",
			value: " 2024-07-01 ",
			want:  model.Date(2024, 7, 1),
		},
		{
			name:    "empty",
			value:   "",
			wantErr: true,
		},
		{
			name:    "garbage",
			value:   "01/07/2024",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.value, time.UTC)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDate(%q) expected error", tt.value)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDate(%q) error: %v", tt.value, err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("ParseDate(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestBookingRange(t *testing.T) {
	today := model.Date(2024, 7, 1)

	tests := []struct {
		name string
		r    model.DateRange
		want error
	}{
		{"starts today", model.DateRange{Start: today, End: model.Date(2024, 7, 2)}, nil},
		{"future", model.DateRange{Start: model.Date(2024, 8, 1), End: model.Date(2024, 8, 5)}, nil},
		{"starts yesterday", model.DateRange{Start: model.Date(2024, 6, 30), End: model.Date(2024, 7, 2)}, ErrStartInPast},
		{"same day", model.DateRange{Start: today, End: today}, ErrEndNotAfterStart},
		{"reversed", model.DateRange{Start: model.Date(2024, 7, 5), End: model.Date(2024, 7, 3)}, ErrEndNotAfterStart},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BookingRange(tt.r, today); got != tt.want {
				t.Fatalf("BookingRange(%s) = %v, want %v", tt.r, got, tt.want)
			}
		})
	}
}
