// Package http provides the adapter that stores nothing locally and
// forwards every operation to a remote flipper HTTP API. It pairs with
// internal/httpapi: any process serving that API can back any number of
// evaluating processes.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"strings"
	"time"

	"github.com/larouxn/flipper"
	"github.com/larouxn/flipper/internal/httpapi"
)

var _ flipper.Adapter = (*Adapter)(nil)
var _ flipper.Pinger = (*Adapter)(nil)

// DefaultTimeout bounds each remote call.
const DefaultTimeout = 10 * time.Second

// Adapter implements the storage contract over a remote flipper API.
type Adapter struct {
	baseURL string
	client  *nethttp.Client
}

// New points the adapter at a base URL such as
// "http://flags.internal:8080". The API mount path (/api/v1) is
// appended automatically.
func New(baseURL string) *Adapter {
	return NewWithClient(baseURL, &nethttp.Client{Timeout: DefaultTimeout})
}

// NewWithClient is New with a caller-supplied http.Client, for custom
// transports and tests.
func NewWithClient(baseURL string, client *nethttp.Client) *Adapter {
	if client == nil {
		client = &nethttp.Client{Timeout: DefaultTimeout}
	}
	return &Adapter{
		baseURL: strings.TrimSuffix(baseURL, "/") + "/api/v1",
		client:  client,
	}
}

// Name implements flipper.Adapter.
func (a *Adapter) Name() string { return "http" }

// Ping implements flipper.Pinger by listing features.
func (a *Adapter) Ping(ctx context.Context) error {
	_, err := a.Features(ctx)
	return err
}

// Features implements flipper.Adapter.
func (a *Adapter) Features(ctx context.Context) ([]string, error) {
	var resp httpapi.FeaturesResponse
	if err := a.do(ctx, nethttp.MethodGet, "/features", nil, &resp); err != nil {
		return nil, err
	}

	features := make([]string, 0, len(resp.Features))
	for _, feature := range resp.Features {
		features = append(features, feature.Key)
	}
	return features, nil
}

// Add implements flipper.Adapter.
func (a *Adapter) Add(ctx context.Context, feature string) error {
	body := httpapi.CreateFeatureRequest{Name: feature}
	return a.do(ctx, nethttp.MethodPost, "/features", body, nil)
}

// Remove implements flipper.Adapter.
func (a *Adapter) Remove(ctx context.Context, feature string) error {
	return a.do(ctx, nethttp.MethodDelete, "/features/"+url.PathEscape(feature), nil, nil)
}

// Clear implements flipper.Adapter.
func (a *Adapter) Clear(ctx context.Context, feature string) error {
	return a.do(ctx, nethttp.MethodDelete, "/features/"+url.PathEscape(feature)+"/gates", nil, nil)
}

// Get implements flipper.Adapter.
func (a *Adapter) Get(ctx context.Context, feature string) (*flipper.GateValues, error) {
	var resp httpapi.FeatureResponse
	if err := a.do(ctx, nethttp.MethodGet, "/features/"+url.PathEscape(feature), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Gates.Values(), nil
}

// GetMulti implements flipper.Adapter.
func (a *Adapter) GetMulti(ctx context.Context, features []string) (map[string]*flipper.GateValues, error) {
	out := make(map[string]*flipper.GateValues, len(features))
	for _, feature := range features {
		values, err := a.Get(ctx, feature)
		if err != nil {
			return nil, err
		}
		out[feature] = values
	}
	return out, nil
}

// GetAll implements flipper.Adapter.
func (a *Adapter) GetAll(ctx context.Context) (map[string]*flipper.GateValues, error) {
	var resp httpapi.FeaturesResponse
	if err := a.do(ctx, nethttp.MethodGet, "/features", nil, &resp); err != nil {
		return nil, err
	}

	out := make(map[string]*flipper.GateValues, len(resp.Features))
	for _, feature := range resp.Features {
		out[feature.Key] = feature.Gates.Values()
	}
	return out, nil
}

// Enable implements flipper.Adapter.
func (a *Adapter) Enable(ctx context.Context, feature string, gate flipper.Gate, value string) error {
	path := gatePath(feature, gate, "enable")
	return a.do(ctx, nethttp.MethodPost, path, httpapi.GateRequest{Value: value}, nil)
}

// Disable implements flipper.Adapter.
func (a *Adapter) Disable(ctx context.Context, feature string, gate flipper.Gate, value string) error {
	path := gatePath(feature, gate, "disable")
	return a.do(ctx, nethttp.MethodPost, path, httpapi.GateRequest{Value: value}, nil)
}

func gatePath(feature string, gate flipper.Gate, action string) string {
	return "/features/" + url.PathEscape(feature) + "/gates/" + string(gate.Name()) + "/" + action
}

// do performs one request, decoding a 2xx body into out when given and
// turning any other status into an error carrying the API error code.
func (a *Adapter) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("http adapter: encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := nethttp.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("http adapter: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("http adapter: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr httpapi.ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Code != "" {
			return fmt.Errorf("http adapter: %s %s: %s (%s)", method, path, apiErr.Message, apiErr.Code)
		}
		return fmt.Errorf("http adapter: %s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("http adapter: decode response: %w", err)
		}
	}
	return nil
}
