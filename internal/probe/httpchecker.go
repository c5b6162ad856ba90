package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const userAgent = "uptimebot/1.0 (+https://github.com/arifmahmud/uptimebot)"

type HTTPChecker struct {
	Client *http.Client
}

func NewHTTPChecker(timeout time.Duration) *HTTPChecker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPChecker{
		Client: &http.Client{Timeout: timeout},
	}
}

// Check issues a single GET against the target. The target counts as UP
// only for an exact 200; any other status code and any transport failure
// is DOWN. Non-200 and connection errors get distinct detail strings so
// logs can tell them apart, but callers treat them the same.
func (c *HTTPChecker) Check(ctx context.Context, url string) Outcome {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Outcome{Up: false, Detail: fmt.Sprintf("bad request: %v", err)}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.Client.Do(req)
	lat := time.Since(start).Seconds() * 1000
	if err != nil {
		return Outcome{Up: false, LatencyMS: lat, Detail: "connection error/timeout"}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Outcome{
			Up:         false,
			StatusCode: resp.StatusCode,
			LatencyMS:  lat,
			Detail:     fmt.Sprintf("status: %d", resp.StatusCode),
		}
	}
	return Outcome{
		Up:         true,
		StatusCode: resp.StatusCode,
		LatencyMS:  lat,
		Detail:     "200 OK",
	}
}
