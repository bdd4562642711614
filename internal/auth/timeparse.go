package auth

import (
	"fmt"
	"time"
)

// Expiry layouts, tried in order. New writes are RFC 3339; the rest
// cover rows imported from the legacy SQLite deployment, which stored
// naive local timestamps with and without microseconds.
var expiryLayouts = []struct {
	layout string
	local  bool
}{
	{time.RFC3339Nano, false},
	{"2006-01-02T15:04:05.999999999", true},
	{"2006-01-02 15:04:05.999999", true},
	{"2006-01-02 15:04:05", true},
}

// parseExpiry parses a stored token expiry, accepting every format the
// credential store has ever written.
func parseExpiry(s string) (time.Time, error) {
	for _, l := range expiryLayouts {
		var t time.Time
		var err error
		if l.local {
			t, err = time.ParseInLocation(l.layout, s, time.Local)
		} else {
			t, err = time.Parse(l.layout, s)
		}
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized expiry timestamp %q", s)
}
