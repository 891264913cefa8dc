package validation

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// ErrNotANumber is returned when an input cannot be parsed as a decimal number.
var ErrNotANumber = errors.New("not a number")

// ErrNotFinite is returned when an input parses to NaN or an infinity.
var ErrNotFinite = errors.New("not a finite number")

// QueryFloat reads name from the query string. A missing or empty value yields def.
// Whitespace is trimmed. Errors wrap ErrNotANumber or ErrNotFinite and name the parameter,
// suitable for 400 INVALID_INPUT responses.
func QueryFloat(values url.Values, name string, def float64) (float64, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, ErrNotANumber)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s: %w", name, ErrNotFinite)
	}
	return v, nil
}

// BodyFloat resolves an optional numeric body field. A nil pointer yields def.
func BodyFloat(name string, v *float64, def float64) (float64, error) {
	if v == nil {
		return def, nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, fmt.Errorf("%s: %w", name, ErrNotFinite)
	}
	return *v, nil
}

// IsInputError reports whether err came from this package.
func IsInputError(err error) bool {
	return errors.Is(err, ErrNotANumber) || errors.Is(err, ErrNotFinite)
}
