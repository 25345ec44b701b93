package services

import (
	"math"
	"testing"
	"time"

	apperrors "ramwatch/internal/errors"
	"ramwatch/internal/models"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecs_RoundTripIsExact_PropertyBased(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	codecs := map[string]Codec{"json": JSONCodec{}, "scalar": ScalarCodec{}}
	for name, codec := range codecs {
		properties.Property(name+" codec returns the exact percent", prop.ForAll(
			func(percent float64) bool {
				snap := models.NewMemorySnapshot(1<<34, 1<<33, 1<<33, 1<<32, percent, time.Unix(0, 0))
				got, err := RoundTripPercent(codec, snap)
				return err == nil && math.Float64bits(got) == math.Float64bits(percent)
			},
			gen.Float64Range(0, 100),
		))
	}

	properties.TestingRun(t)
}

func TestJSONCodec_EncodesAllFields(t *testing.T) {
	snap := models.NewMemorySnapshot(17179869184, 8589934592, 7516192768, 1073741824, 43.75, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	data, err := JSONCodec{}.Encode(snap)
	require.NoError(t, err)

	for _, key := range []string{"total_mem", "total_mem_f", "available_mem", "available_mem_f", "used_mem", "used_mem_f", "free_mem", "free_mem_f", "percent_mem"} {
		assert.Contains(t, string(data), `"`+key+`"`)
	}
	assert.Contains(t, string(data), `"total_mem_f":"16.0GB"`)

	decoded, err := JSONCodec{}.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, snap.TotalBytes, decoded.TotalBytes)
	assert.Equal(t, snap.PercentUsed, decoded.PercentUsed)
	assert.True(t, snap.SampledAt.Equal(decoded.SampledAt))
}

func TestJSONCodec_DecodePercentRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid json", `{"percent_mem":`},
		{"missing field", `{"total_mem":1}`},
		{"string field", `{"percent_mem":"43.7"}`},
		{"null field", `{"percent_mem":null}`},
		{"empty", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := JSONCodec{}.DecodePercent([]byte(tt.data))
			assert.ErrorIs(t, err, apperrors.ErrEncodingFailed)
		})
	}
}

func TestJSONCodec_EncodeRejectsNaN(t *testing.T) {
	snap := models.NewMemorySnapshot(1, 1, 1, 1, math.NaN(), time.Now())
	_, err := RoundTripPercent(JSONCodec{}, snap)
	assert.ErrorIs(t, err, apperrors.ErrEncodingFailed)
}

func TestScalarCodec(t *testing.T) {
	data, err := ScalarCodec{}.Encode(&models.MemorySnapshot{PercentUsed: 12.5})
	require.NoError(t, err)
	assert.Equal(t, "12.5", string(data))

	_, err = ScalarCodec{}.DecodePercent([]byte("12,5"))
	assert.ErrorIs(t, err, apperrors.ErrEncodingFailed)
}

func TestRoundTripPercent_NilSnapshot(t *testing.T) {
	_, err := RoundTripPercent(JSONCodec{}, nil)
	assert.ErrorIs(t, err, apperrors.ErrEncodingFailed)
}
