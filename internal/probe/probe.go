package probe

import "context"

// Outcome is the unified result of a single reachability check.
//
// StatusCode is the HTTP status when a response was received; 0 for
// transport-level failures (timeout, DNS, refused connection, TLS).
type Outcome struct {
	Up         bool
	StatusCode int
	LatencyMS  float64
	Detail     string
}

// Checker performs a single check for a given target URL. Implementations
// must never return an error: every failure mode collapses into a DOWN
// outcome with an explanatory detail string.
type Checker interface {
	Check(ctx context.Context, url string) Outcome
}
