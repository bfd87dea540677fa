package timer

import (
	"crypto/rand"
	"fmt"
	"time"
)

// notificationID creates a short random id for a completion alert.
func notificationID(now time.Time) string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("tomato-%d", now.UnixMilli())
	}
	return fmt.Sprintf("tomato-%x", b)
}
