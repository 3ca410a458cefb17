package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/taskdeck/taskdeck-sync/internal/config"
	"github.com/taskdeck/taskdeck-sync/internal/logger"
	"github.com/taskdeck/taskdeck-sync/internal/utils"
	"github.com/taskdeck/taskdeck-sync/models"
)

type httpRemoteStore struct {
	client *utils.HTTPClient

	credential string

	logger *logger.Logger
}

// NewHTTPRemoteStore constructs an HTTP/REST implementation of [RemoteStore].
// It normalises and validates the base URL from adapterCfg.Endpoint and
// configures the underlying HTTP client with the resolved base URL and
// request timeout. The timeout is what bounds a sync cycle: cycles have no
// explicit cancellation of their own.
//
// Returns an error if adapterCfg.Endpoint is empty or cannot be parsed as a
// valid URL.
func NewHTTPRemoteStore(adapterCfg config.Adapter, logger *logger.Logger) (RemoteStore, error) {
	client := utils.NewHTTPClient()
	baseURL, err := normalizeBaseURL(adapterCfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid remote endpoint: %w", err)
	}

	client.
		SetBaseURL(baseURL).
		SetTimeout(adapterCfg.RequestTimeout)

	return &httpRemoteStore{client: client, logger: logger}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// SetCredential implements [RemoteStore]. It stores credential
// (whitespace-trimmed) for use in the Authorization header of all subsequent
// requests.
func (h *httpRemoteStore) SetCredential(credential string) {
	h.credential = strings.TrimSpace(credential)
}

// Credential implements [RemoteStore].
func (h *httpRemoteStore) Credential() string {
	return h.credential
}

// Push implements [RemoteStore]. It sets req.Length and POSTs the batch to
// POST /api/sync/push. Returns the decoded [models.PushResponse]; a non-2xx
// status is mapped to the package sentinels before decoding is attempted.
func (h *httpRemoteStore) Push(ctx context.Context, req models.PushRequest) (models.PushResponse, error) {
	req.Length = len(req.Items)

	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/api/sync/push")
	if err != nil {
		return models.PushResponse{}, fmt.Errorf("push request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.PushResponse{}, err
	}

	var pushed models.PushResponse
	if err = json.Unmarshal(resp.Body(), &pushed); err != nil {
		return models.PushResponse{}, fmt.Errorf("decode push response: %w", err)
	}

	return pushed, nil
}

// Pull implements [RemoteStore]. It POSTs the cursor to
// POST /api/sync/pull and returns the decoded [models.PullResponse] with the
// remote deltas. Returns an error if the request, response mapping, or JSON
// decoding fails.
func (h *httpRemoteStore) Pull(ctx context.Context, req models.PullRequest) (models.PullResponse, error) {
	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/api/sync/pull")
	if err != nil {
		return models.PullResponse{}, fmt.Errorf("pull request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.PullResponse{}, err
	}

	var pulled models.PullResponse
	if err = json.Unmarshal(resp.Body(), &pulled); err != nil {
		return models.PullResponse{}, fmt.Errorf("decode pull response: %w", err)
	}

	return pulled, nil
}

func (h *httpRemoteStore) authedRequest(ctx context.Context) *resty.Request {
	req := h.client.R().SetContext(ctx)
	if credential := h.Credential(); credential != "" {
		req.SetHeader("Authorization", "Bearer "+credential)
	}
	return req
}
