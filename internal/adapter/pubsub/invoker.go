package pubsub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Invoker performs best-effort RPC against sibling services through the
// platform sidecar. A nil result means the call failed for any reason;
// callers treat that as "the sibling had nothing to say" and move on.
type Invoker interface {
	Invoke(ctx context.Context, app, method string, payload map[string]any) map[string]any

	// Healthy probes the sidecar's health endpoint. Makes a network call;
	// use sparingly.
	Healthy(ctx context.Context) bool
}

// Interface guard
var _ Invoker = (*SidecarInvoker)(nil)

type SidecarInvoker struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewSidecarInvoker targets the local sidecar's invocation API
// (e.g. http://localhost:3500). An empty base URL disables invocation.
func NewSidecarInvoker(baseURL string, logger *slog.Logger) *SidecarInvoker {
	return &SidecarInvoker{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		logger:  logger,
	}
}

func (i *SidecarInvoker) Healthy(ctx context.Context) bool {
	if i.baseURL == "" {
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, i.baseURL+"/v1.0/healthz", nil)
	if err != nil {
		return false
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

func (i *SidecarInvoker) Invoke(ctx context.Context, app, method string, payload map[string]any) map[string]any {
	if i.baseURL == "" {
		i.logger.Debug("sidecar not configured, skipping invocation", "app", app, "method", method)
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		i.logger.Warn("failed to marshal invocation payload", "app", app, "method", method, "err", err)
		return nil
	}

	url := fmt.Sprintf("%s/v1.0/invoke/%s/method/%s", i.baseURL, app, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		i.logger.Warn("service invocation failed", "app", app, "method", method, "err", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		i.logger.Warn("service invocation rejected", "app", app, "method", method, "status", resp.StatusCode)
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}
	if len(data) == 0 {
		return map[string]any{}
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		i.logger.Warn("service invocation returned malformed body", "app", app, "method", method, "err", err)
		return nil
	}
	return out
}
