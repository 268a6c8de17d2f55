package grievance

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
)

const trackingPrefix = "GR-"

// maxTrackingAttempts bounds the regeneration loop on tracking-ID
// collisions. The unique index on tracking_id is the real guard; the
// loop is only a fast path.
const maxTrackingAttempts = 5

var trackingPattern = regexp.MustCompile(`^GR-\d{4}$`)

// NewTrackingID returns a candidate human-facing identifier, GR- plus a
// random 4-digit suffix. Callers must be prepared for collisions.
func NewTrackingID() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", trackingPrefix, n.Int64()), nil
}

// ValidTrackingID reports whether s has the GR-#### shape.
func ValidTrackingID(s string) bool {
	return trackingPattern.MatchString(s)
}
