package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

var httpClient = newHTTPClient(30 * time.Second)

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// GetHTTPClient returns the shared outbound client
func GetHTTPClient() *http.Client {
	return httpClient
}

// Source is a fetched, not yet decoded, source image.
type Source struct {
	Body        []byte
	ContentType string
}

// Fetch downloads url with the shared client, refusing bodies larger than
// maxBytes when maxBytes is positive.
func Fetch(ctx context.Context, client *http.Client, url string, maxBytes int64) (*Source, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	response, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected upstream status %d", response.StatusCode)
	}

	reader := io.Reader(response.Body)
	if maxBytes > 0 {
		if response.ContentLength > maxBytes {
			return nil, fmt.Errorf("source of %d bytes exceeds limit of %d", response.ContentLength, maxBytes)
		}
		reader = io.LimitReader(response.Body, maxBytes+1)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read source body: %w", err)
	}
	if maxBytes > 0 && int64(len(body)) > maxBytes {
		return nil, fmt.Errorf("source exceeds limit of %d bytes", maxBytes)
	}

	return &Source{Body: body, ContentType: response.Header.Get("Content-Type")}, nil
}
