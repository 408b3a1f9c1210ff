package seedruns

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := marshalJSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// marshalJSON marshals a struct to JSON
func marshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// unmarshalJSON unmarshals JSON to a struct
func unmarshalJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitRuns submits runs concurrently using a worker pool
func submitRuns(ctx context.Context, config *Config, runs []runPayload, stats *Stats) error {
	log.Printf("📤 Submitting %d runs with %d workers...", len(runs), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/runs"

	// Counters for statistics
	var (
		accepted  int64
		failed    int64
		submitted int64
	)

	// Create worker pool
	runChan := make(chan runPayload, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for run := range runChan {
				select {
				case <-ctx.Done():
					return
				default:
					ok := submitSingleRun(ctx, client, url, run, config.Verbose)

					// Update counters
					total := atomic.AddInt64(&submitted, 1)
					if ok {
						atomic.AddInt64(&accepted, 1)
					} else {
						atomic.AddInt64(&failed, 1)
					}

					// Progress reporting
					if total%progressStep == 0 {
						log.Printf("📊 Progress: %d/%d submitted (accepted: %d, failed: %d)",
							total, len(runs), atomic.LoadInt64(&accepted), atomic.LoadInt64(&failed))
					}
				}
			}
		}()
	}

	// Send runs to workers
	go func() {
		defer close(runChan)
		for _, run := range runs {
			select {
			case <-ctx.Done():
				return
			case runChan <- run:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Update stats
	stats.RunsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.RunsAccepted = int(atomic.LoadInt64(&accepted))
	stats.RunsFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`✅ Run submission completed:
   Accepted: %d
   Failed: %d
`, stats.RunsAccepted, stats.RunsFailed)

	return nil
}

// submitSingleRun submits a single run and reports whether it was accepted
func submitSingleRun(ctx context.Context, client *HTTPClient, url string, run runPayload, verbose bool) bool {
	resp, err := client.Post(ctx, url, run)
	if err != nil {
		if verbose {
			log.Printf("⚠️  Failed to submit run for %s: %v", run.Scenario, err)
		}
		return false
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return false
	}

	if resp.StatusCode != StatusAccepted {
		if verbose {
			log.Printf("⚠️  Run for %s rejected: HTTP %d: %s", run.Scenario, resp.StatusCode, string(body))
		}
		return false
	}

	var ack ackResponse
	if err := unmarshalJSON(body, &ack); err == nil && ack.Status != "accepted" {
		if verbose {
			log.Printf("⚠️  Unexpected ack for %s: %s", run.Scenario, ack.Status)
		}
		return false
	}
	return true
}
