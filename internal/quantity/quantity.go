// backend-go/internal/quantity/quantity.go

// Package quantity parses and formats the vendor's stock quantity
// encoding: whole packs and loose pieces packed into one string, e.g.
// "3W5P" for 3 whole packs plus 5 pieces. All downstream arithmetic runs
// on pieces; the encoded form is display-only.
package quantity

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformed is returned when an encoded quantity carries neither a
// "<n>W" nor a "<n>P" segment. Callers substitute zero stock and keep going.
var ErrMalformed = errors.New("malformed quantity encoding")

var (
	wholePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)W`)
	loosePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)P`)
)

// ParsePieces decodes an encoded quantity into a piece count using the
// item's pack size. The W and P segments are extracted independently;
// an absent segment counts as 0, so "3W" and "5P" are both valid. A pack
// size of zero or below is treated as 1, which makes the whole-pack
// component count as single pieces.
func ParsePieces(encoded string, packSize float64) (float64, error) {
	if packSize <= 0 {
		packSize = 1
	}

	s := strings.ToUpper(strings.TrimSpace(encoded))
	wm := wholePattern.FindStringSubmatch(s)
	lm := loosePattern.FindStringSubmatch(s)
	if wm == nil && lm == nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, encoded)
	}

	var whole, loose float64
	if wm != nil {
		v, err := strconv.ParseFloat(wm[1], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrMalformed, encoded)
		}
		whole = v
	}
	if lm != nil {
		v, err := strconv.ParseFloat(lm[1], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrMalformed, encoded)
		}
		loose = v
	}

	return whole*packSize + loose, nil
}

// Format encodes a piece count back into the "<whole>W<pieces>P" form.
// Negative piece counts clamp to zero; a pack size of zero or below is
// treated as 1 so the count round-trips as loose pieces.
func Format(pieces, packSize float64) string {
	if packSize <= 0 {
		packSize = 1
	}
	if pieces < 0 {
		pieces = 0
	}

	whole := math.Floor(pieces / packSize)
	loose := pieces - whole*packSize

	return fmt.Sprintf("%sW%sP", trimFloat(whole), trimFloat(loose))
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
