package resolve

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// fetchLimiter caps outbound artifact-fetch requests, grounded on
// Mindburn-Labs-helm/core/pkg/kernel's token-bucket limiter shape but
// expressed with x/time/rate since this runs in-process rather than
// against a shared Redis bucket.
var fetchLimiter = rate.NewLimiter(rate.Limit(5), 10)

var (
	sharedClientOnce sync.Once
	sharedClient     *http.Client
)

func httpClient() *http.Client {
	sharedClientOnce.Do(func() {
		sharedClient = &http.Client{Timeout: 30 * time.Second}
	})
	return sharedClient
}

func fetchHTTP(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if err := fetchLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("fetch rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body from %s: %w", url, err)
	}
	return data, nil
}
