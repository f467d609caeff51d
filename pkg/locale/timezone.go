package locale

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultTimezone = "UTC"
	TimezoneHeader  = "X-Timezone"
)

type ctxKey struct{}

// Aliases maps legacy zone names clients still send to canonical IANA names.
var Aliases = map[string]string{
	"us/eastern":    "America/New_York",
	"us/pacific":    "America/Los_Angeles",
	"us/central":    "America/Chicago",
	"israel":        "Asia/Jerusalem",
	"asia/tel_aviv": "Asia/Jerusalem",
	"gmt":           "UTC",
	"z":             "UTC",
}

// LoadLocation resolves an IANA zone name, accepting the aliases above.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("empty time zone")
	}
	if canonical, ok := Aliases[strings.ToLower(name)]; ok {
		name = canonical
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown time zone %q: %w", name, err)
	}
	return loc, nil
}

func WithLocation(ctx context.Context, loc *time.Location) context.Context {
	return context.WithValue(ctx, ctxKey{}, loc)
}

// FromContext returns the caller's time zone, or fallback when the request carried none.
func FromContext(ctx context.Context, fallback *time.Location) *time.Location {
	if loc, ok := ctx.Value(ctxKey{}).(*time.Location); ok && loc != nil {
		return loc
	}
	if fallback == nil {
		return time.UTC
	}
	return fallback
}
