package payload

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var ErrInvalidFormat = errors.New("invalid data format")

// Reading is the decrypted content of a payload: the device's current code
// and the coordinates it reports.
type Reading struct {
	Code string
	Lat  float64
	Lng  float64
}

// Format renders the "code|lat|lng" plaintext the device encrypts.
func (r Reading) Format() string {
	return r.Code + "|" + formatCoord(r.Lat) + "|" + formatCoord(r.Lng)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseReading splits plaintext into exactly three pipe separated fields with
// finite decimal coordinates.
func ParseReading(plaintext string) (Reading, error) {
	parts := strings.Split(plaintext, "|")
	if len(parts) != 3 {
		return Reading{}, ErrInvalidFormat
	}
	lat, err := parseCoord(parts[1])
	if err != nil {
		return Reading{}, err
	}
	lng, err := parseCoord(parts[2])
	if err != nil {
		return Reading{}, err
	}
	return Reading{Code: strings.TrimSpace(parts[0]), Lat: lat, Lng: lng}, nil
}

func parseCoord(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidFormat
	}
	return v, nil
}
