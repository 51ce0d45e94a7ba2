package perception

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// minRequestInterval spaces consecutive requests from one client.
const minRequestInterval = 100 * time.Millisecond

// throttle serializes request starts per client.
type throttle struct {
	mu          sync.Mutex
	lastRequest time.Time
}

func (t *throttle) wait() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if elapsed := time.Since(t.lastRequest); elapsed < minRequestInterval {
		time.Sleep(minRequestInterval - elapsed)
	}
	t.lastRequest = time.Now()
}

// postJSON sends body to url and returns the raw response on HTTP 200.
// 429 becomes *RateLimitError and any other status *ProviderError.
func postJSON(ctx context.Context, hc *http.Client, provider, url string, headers map[string]string, body any) ([]byte, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", provider, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		rl := &RateLimitError{Provider: provider, RawResponse: truncateString(string(data), 500)}
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			rl.RetryAfter = time.Duration(secs) * time.Second
		}
		return nil, rl
	case resp.StatusCode != http.StatusOK:
		return nil, &ProviderError{Provider: provider, StatusCode: resp.StatusCode, Body: truncateString(string(data), 500)}
	}
	return data, nil
}
