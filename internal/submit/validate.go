package submit

import (
	"fmt"
	"strings"

	"github.com/opencandb/cansubmit/internal/canid"
)

// ValidEndians are the only accepted byte-order values. There is no
// default: an absent endianness is an error, not little.
var ValidEndians = map[string]bool{"little": true, "big": true}

// ValidateItem rejects structurally or semantically invalid items
// before any resolution or write occurs. Position is the 1-based item
// index used in error details.
func ValidateItem(item Item, position int) error {
	if item.CanID == "" {
		return errMalformedIdentifier(fmt.Sprintf("item %d: can_id is required", position))
	}
	if _, err := canid.Parse(item.CanID); err != nil {
		return errMalformedIdentifier(fmt.Sprintf("item %d: %v", position, err))
	}

	if !item.ParameterID.Valid && item.ParameterName == "" {
		return errMissingParameter(fmt.Sprintf("item %d: parameter_id or parameter_name is required", position))
	}

	endian := strings.ToLower(strings.TrimSpace(item.Endian))
	if !ValidEndians[endian] {
		return errInvalidEndianness(fmt.Sprintf("item %d: endian must be little or big, got %q", position, item.Endian))
	}

	return nil
}

// NormalizeEndian folds a validated endianness to its canonical form.
func NormalizeEndian(endian string) string {
	return strings.ToLower(strings.TrimSpace(endian))
}
