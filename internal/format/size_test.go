package format

import (
	"regexp"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes uint64
		want  string
	}{
		{0, "0.0B"},
		{1, "1.0B"},
		{1023, "1023.0B"},
		{1024, "1.0KB"},
		{1536, "1.5KB"},
		{10293, "10.1KB"},
		{2098234, "2.0MB"},
		{1 << 20, "1.0MB"},
		{1 << 30, "1.0GB"},
		{1 << 40, "1.0TB"},
		{1 << 50, "1024.0TB"},
		{3 << 50, "3072.0TB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatSize(tt.bytes, ""); got != tt.want {
				t.Errorf("FormatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestFormatSize_CustomSuffix(t *testing.T) {
	if got := FormatSize(2048, "iB"); got != "2.0KiB" {
		t.Errorf("FormatSize(2048, iB) = %q, want 2.0KiB", got)
	}
	if got := FormatSize(1<<20, "B/s"); got != "1.0MB/s" {
		t.Errorf("FormatSize(1MiB, B/s) = %q, want 1.0MB/s", got)
	}
}

// TestFormatSize_Shape verifies that every output is a number with exactly one
// fractional digit followed by exactly one prefix and the suffix.
func TestFormatSize_Shape(t *testing.T) {
	shape := regexp.MustCompile(`^[0-9]+\.[0-9](|K|M|G|T)B$`)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("output matches <digits>.<digit><prefix>B", prop.ForAll(
		func(b uint64) bool {
			return shape.MatchString(FormatSize(b, ""))
		},
		gen.UInt64(),
	))

	properties.Property("values below 1024 carry no prefix", prop.ForAll(
		func(b uint64) bool {
			return regexp.MustCompile(`^[0-9]+\.0B$`).MatchString(FormatSize(b, ""))
		},
		gen.UInt64Range(0, 1023),
	))

	properties.TestingRun(t)
}
