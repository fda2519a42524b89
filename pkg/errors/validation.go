package errors

import (
	"fmt"
	"math"
	"regexp"
	"unicode"
)

// ValidateName validates a detector or volume name.
// Names become volume names in the geometry backend and path segments in
// reports, so the rules are conservative:
//   - No empty names
//   - No control characters or whitespace
//   - No '/' (reserved as the volume path separator)
//   - Maximum length of 128 characters
func ValidateName(detector, attribute, name string) error {
	if name == "" {
		return Configuration(detector, attribute, "name cannot be empty")
	}
	if len(name) > 128 {
		return Configuration(detector, attribute, "name too long (max 128 characters)")
	}
	for _, r := range name {
		if unicode.IsControl(r) || unicode.IsSpace(r) || r == '/' {
			return Configuration(detector, attribute, "name contains invalid character %q", r)
		}
	}
	return nil
}

// ValidatePositive checks that v is a finite number strictly greater than zero.
func ValidatePositive(detector, attribute string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Configuration(detector, attribute, "must be finite, got %v", v)
	}
	if v <= 0 {
		return Configuration(detector, attribute, "must be positive, got %g", v)
	}
	return nil
}

// ValidateNonNegative checks that v is a finite number greater than or equal to zero.
func ValidateNonNegative(detector, attribute string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Configuration(detector, attribute, "must be finite, got %v", v)
	}
	if v < 0 {
		return Configuration(detector, attribute, "must not be negative, got %g", v)
	}
	return nil
}

// ValidateCount checks that a repeat count is not negative.
// Zero is accepted and yields an empty layer.
func ValidateCount(detector, attribute string, n int) error {
	if n < 0 {
		return Configuration(detector, attribute, "must not be negative, got %d", n)
	}
	return nil
}

// layerCodesRegex matches layer code strings made of the digits 1..8.
var layerCodesRegex = regexp.MustCompile(`^[1-8]*$`)

// ValidateLayerCodes checks that every character of codes is a known layer
// code. The first offending character is reported with its position.
func ValidateLayerCodes(detector, codes string) error {
	if layerCodesRegex.MatchString(codes) {
		return nil
	}
	for i, r := range codes {
		if r < '1' || r > '8' {
			return &Error{
				Code:      ErrCodeUnknownLayerCode,
				Message:   fmt.Sprintf("unknown layer code %q at position %d", r, i),
				Detector:  detector,
				Attribute: "layer_codes",
			}
		}
	}
	return nil
}
