// Package adminclient is a small JSON-over-HTTP client for the printer's
// administrative endpoints, used by every vprinter admin subcommand so
// each one stays a few lines of flag binding, matching the teacher's
// one-command-per-package granularity.
package adminclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Post sends body, JSON-encoded, to path on addr and returns the
// response body. A non-2xx status is returned as an error carrying the
// response body text.
func Post(ctx context.Context, addr, path string, body any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	url := strings.TrimRight(addr, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", url, err)
	}
	if resp.StatusCode/100 != 2 {
		return respBody, fmt.Errorf("%s: %s", url, strings.TrimSpace(string(respBody)))
	}
	return respBody, nil
}

// PostRaw sends body as-is (Content-Type: application/json) to path on
// addr, for operations that forward an already-encoded document, such
// as import-attributes.
func PostRaw(ctx context.Context, addr, path string, body []byte) ([]byte, error) {
	url := strings.TrimRight(addr, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", url, err)
	}
	if resp.StatusCode/100 != 2 {
		return respBody, fmt.Errorf("%s: %s", url, strings.TrimSpace(string(respBody)))
	}
	return respBody, nil
}

// Get issues a GET to path on addr and returns the response body.
func Get(ctx context.Context, addr, path string) ([]byte, error) {
	url := strings.TrimRight(addr, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", url, err)
	}
	if resp.StatusCode/100 != 2 {
		return body, fmt.Errorf("%s: %s", url, strings.TrimSpace(string(body)))
	}
	return body, nil
}
