// Package json is the codec used for every wire and sink format in patchview.
package json

import jsoniter "github.com/json-iterator/go"

var (
	// JSON is the jsoniter configuration shared across the module
	JSON = jsoniter.ConfigCompatibleWithStandardLibrary

	// Marshal is a shorthand for JSON.Marshal
	Marshal = JSON.Marshal

	// MarshalIndent is a shorthand for JSON.MarshalIndent
	MarshalIndent = JSON.MarshalIndent

	// Unmarshal is a shorthand for JSON.Unmarshal
	Unmarshal = JSON.Unmarshal

	// NewDecoder is a shorthand for JSON.NewDecoder
	NewDecoder = JSON.NewDecoder

	// NewEncoder is a shorthand for JSON.NewEncoder
	NewEncoder = JSON.NewEncoder

	// Valid is a shorthand for JSON.Valid
	Valid = JSON.Valid
)

// RawMessage is re-exported so callers can defer decoding without importing encoding/json
type RawMessage = jsoniter.RawMessage
