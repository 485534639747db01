package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wrm3/toolflow"
)

const defaultMaxBody = 1 << 20 // 1 MiB

// HTTPFetch makes bounded HTTP requests.
type HTTPFetch struct {
	client  *http.Client
	maxBody int64
}

// NewHTTPFetch creates the "http_fetch" tool with a 30s client timeout.
func NewHTTPFetch() *HTTPFetch {
	return &HTTPFetch{
		client:  &http.Client{Timeout: 30 * time.Second},
		maxBody: defaultMaxBody,
	}
}

func (h *HTTPFetch) Spec() toolflow.ToolSpec {
	return toolflow.ToolSpec{
		Name:        "http_fetch",
		Description: "Make an HTTP request and return status and body",
		Parameters: map[string]toolflow.ParamSpec{
			"url":     {Type: "string", Description: "Request URL", Required: true},
			"method":  {Type: "string", Description: "HTTP method (GET, POST, PUT, DELETE)"},
			"headers": {Type: "object", Description: "Request headers"},
			"body":    {Type: "any", Description: "Request body (JSON-encoded if object)"},
		},
	}
}

func (h *HTTPFetch) Run(ctx context.Context, args map[string]any) (any, error) {
	url, _ := args["url"].(string)
	if url == "" {
		return nil, errors.New("missing parameter: url")
	}

	method := "GET"
	if m, ok := args["method"].(string); ok && m != "" {
		method = strings.ToUpper(m)
	}

	var bodyReader io.Reader
	if body, ok := args["body"]; ok && body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if headers, ok := args["headers"].(map[string]any); ok {
		for k, v := range headers {
			req.Header.Set(k, fmt.Sprintf("%v", v))
		}
	}
	if bodyReader != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBody))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	result := map[string]any{
		"status_code": resp.StatusCode,
		"body":        string(respBody),
	}
	// Decode JSON responses for convenient downstream access.
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var decoded any
		if json.Unmarshal(respBody, &decoded) == nil {
			result["body"] = decoded
		}
	}
	return result, nil
}
