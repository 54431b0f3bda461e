package esclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPClient is a minimal net/http-based Client implementation against
// a single target host. It exists so the demo race (internal/race,
// cmd/race.go) can run end to end; production users are expected to
// supply their own Client wrapping whatever cluster library they
// already depend on.
type HTTPClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewHTTPClient builds an HTTPClient targeting baseURL (e.g.
// "http://localhost:9200"), with a default 30s request timeout.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return nil, &ConnectionError{Msg: err.Error()}
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, &ConnectionError{Msg: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		// No HTTP status is available: this is a transport-level failure.
		return nil, &ConnectionError{Msg: err.Error()}
	}
	return resp, nil
}

func statusErr(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &StatusError{Status: resp.StatusCode, Msg: strings.TrimSpace(string(body))}
}

func (c *HTTPClient) Info(ctx context.Context) (Info, error) {
	resp, err := c.do(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return Info{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return Info{}, statusErr(resp)
	}
	var out struct {
		Version struct {
			Number string `json:"number"`
		} `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Info{}, &ConnectionError{Msg: err.Error()}
	}
	return Info{VersionNumber: out.Version.Number}, nil
}

func (c *HTTPClient) ClusterHealth(ctx context.Context) (Health, error) {
	resp, err := c.do(ctx, http.MethodGet, "/_cluster/health", nil)
	if err != nil {
		return Health{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return Health{}, statusErr(resp)
	}
	var out struct {
		Status           string `json:"status"`
		RelocatingShards int    `json:"relocating_shards"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Health{}, &ConnectionError{Msg: err.Error()}
	}
	return Health{Status: HealthStatus(out.Status), RelocatingShards: out.RelocatingShards}, nil
}

func (c *HTTPClient) IndicesExists(ctx context.Context, index string) (bool, error) {
	resp, err := c.do(ctx, http.MethodHead, "/"+index, nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= 400:
		return false, statusErr(resp)
	default:
		return true, nil
	}
}

func (c *HTTPClient) IndicesCreate(ctx context.Context, index string, body map[string]interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPut, "/"+index, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return statusErr(resp)
	}
	return nil
}

func (c *HTTPClient) IndicesDelete(ctx context.Context, index string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/"+index, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return statusErr(resp)
	}
	return nil
}

func (c *HTTPClient) Bulk(ctx context.Context, index string, body []byte) (BulkResult, error) {
	resp, err := c.do(ctx, http.MethodPost, "/"+index+"/_bulk", bytes.NewReader(body))
	if err != nil {
		return BulkResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return BulkResult{}, statusErr(resp)
	}
	var out struct {
		Errors bool `json:"errors"`
		Items  []interface{} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return BulkResult{}, &ConnectionError{Msg: err.Error()}
	}
	return BulkResult{Errors: out.Errors, Items: len(out.Items)}, nil
}

func (c *HTTPClient) Search(ctx context.Context, index string, body map[string]interface{}) (map[string]interface{}, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodPost, "/"+index+"/_search", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, statusErr(resp)
	}
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &ConnectionError{Msg: err.Error()}
	}
	return out, nil
}

var _ Client = (*HTTPClient)(nil)
