package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		raw  string
		want time.Time
		ok   bool
	}{
		{name: "strict layout", raw: "2024-03-15", want: want, ok: true},
		{name: "leading whitespace", raw: "  2024-03-15  ", want: want, ok: true},
		{name: "datetime", raw: "2024-03-15 08:30:00", want: want.Add(8*time.Hour + 30*time.Minute), ok: true},
		{name: "slash separated", raw: "2024/03/15", want: want, ok: true},
		{name: "day first", raw: "15-03-2024", want: want, ok: true},
		{name: "empty", raw: "", ok: false},
		{name: "garbage", raw: "not a date", ok: false},
		{name: "month out of range", raw: "2024-13-01", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.raw)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "got %v", got)
			}
		})
	}
}
