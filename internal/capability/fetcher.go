package capability

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	json "github.com/goccy/go-json"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPFetcher is the default Fetcher: a plain HTTP client whose
// transport is wrapped in otelhttp so every subgraph call produces a
// span. Grounded on federation/executor/executor_v2.go's sendRequest
// (build a {query, variables} JSON body, POST it, decode the JSON
// response) and gateway/gateway.go's otelhttp.NewTransport wrapping.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher builds an HTTPFetcher with an otelhttp-instrumented
// transport.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

// Fetch issues one subgraph request (spec §6.3: POST with
// Content-Type/Accept headers, {query, variables} JSON body).
func (f *HTTPFetcher) Fetch(ctx context.Context, req SubgraphRequest) (*SubgraphResponse, error) {
	body := map[string]interface{}{"query": req.Query}
	if len(req.Variables) > 0 {
		body["variables"] = req.Variables
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("capability: marshal subgraph request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("capability: build subgraph request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/graphql-response+json, application/json")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("capability: subgraph request failed: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("capability: read subgraph response: %w", err)
	}

	var decoded struct {
		Data   map[string]interface{}   `json:"data"`
		Errors []map[string]interface{} `json:"errors"`
	}
	if err := json.Unmarshal(respBytes, &decoded); err != nil {
		return nil, fmt.Errorf("capability: decode subgraph response: %w", err)
	}

	return &SubgraphResponse{
		StatusCode: resp.StatusCode,
		Data:       decoded.Data,
		Errors:     decoded.Errors,
	}, nil
}
