package services

import (
	"encoding/json"
	"fmt"
	"strconv"

	apperrors "ramwatch/internal/errors"
	"ramwatch/internal/models"

	"github.com/tidwall/gjson"
)

// percentField is the JSON key holding MemorySnapshot.PercentUsed.
const percentField = "percent_mem"

// Codec moves a snapshot through a text encoding so downstream code only
// depends on the encoded percent value, not on the snapshot struct.
// Implementations must return a percent that is bit-identical to the one
// that was encoded.
type Codec interface {
	Encode(snapshot *models.MemorySnapshot) ([]byte, error)
	DecodePercent(data []byte) (float64, error)
}

// RoundTripPercent encodes snapshot with codec and extracts the percent used
// from the encoded form.
func RoundTripPercent(codec Codec, snapshot *models.MemorySnapshot) (float64, error) {
	if snapshot == nil {
		return 0, fmt.Errorf("%w: nil snapshot", apperrors.ErrEncodingFailed)
	}
	data, err := codec.Encode(snapshot)
	if err != nil {
		return 0, err
	}
	return codec.DecodePercent(data)
}

// JSONCodec encodes the whole snapshot as JSON. encoding/json writes floats
// in their shortest round-trip form, so parsing the raw token restores the
// exact value.
type JSONCodec struct{}

// Encode marshals the snapshot.
func (JSONCodec) Encode(snapshot *models.MemorySnapshot) ([]byte, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, apperrors.Mark(err, apperrors.ErrEncodingFailed)
	}
	return data, nil
}

// DecodePercent reads percent_mem from an encoded snapshot without decoding
// the rest of the document.
func (JSONCodec) DecodePercent(data []byte) (float64, error) {
	if !gjson.ValidBytes(data) {
		return 0, fmt.Errorf("%w: invalid JSON document", apperrors.ErrEncodingFailed)
	}
	result := gjson.GetBytes(data, percentField)
	if result.Type != gjson.Number {
		return 0, fmt.Errorf("%w: %s is missing or not a number", apperrors.ErrEncodingFailed, percentField)
	}
	percent, err := strconv.ParseFloat(result.Raw, 64)
	if err != nil {
		return 0, apperrors.Mark(err, apperrors.ErrEncodingFailed)
	}
	return percent, nil
}

// Decode unmarshals a full snapshot.
func (JSONCodec) Decode(data []byte) (*models.MemorySnapshot, error) {
	var snapshot models.MemorySnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, apperrors.Mark(err, apperrors.ErrEncodingFailed)
	}
	return &snapshot, nil
}

// ScalarCodec encodes only the percent used, as a plain decimal string. It
// is the cheap choice when no component needs the rest of the snapshot.
type ScalarCodec struct{}

// Encode formats the percent with the shortest exact representation.
func (ScalarCodec) Encode(snapshot *models.MemorySnapshot) ([]byte, error) {
	return strconv.AppendFloat(nil, snapshot.PercentUsed, 'g', -1, 64), nil
}

// DecodePercent parses the value written by Encode.
func (ScalarCodec) DecodePercent(data []byte) (float64, error) {
	percent, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return 0, apperrors.Mark(err, apperrors.ErrEncodingFailed)
	}
	return percent, nil
}
