package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kurumart/kurumart-backend/internal/bidding"
	"github.com/kurumart/kurumart-backend/pkg/config"
	pkgerrors "github.com/kurumart/kurumart-backend/pkg/errors"
	"github.com/kurumart/kurumart-backend/pkg/logger"
)

// Client calls the auction-house bid API. It implements bidding.Transport.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logg       *logger.Logger
}

// NewClient builds the upstream API client from config.
func NewClient(cfg config.UpstreamConfig, logg *logger.Logger) (*Client, error) {
	if cfg.APIURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "upstream api url is required")
	}
	timeout := cfg.SubmitTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.APIURL, "/"),
		token:      cfg.APIToken,
		logg:       logg,
	}, nil
}

// SubmitBid posts a bid to the auction house and returns the server bid id.
func (c *Client) SubmitBid(ctx context.Context, req bidding.SubmitRequest) (bidding.SubmitResult, error) {
	var result bidding.SubmitResult
	if err := c.doJSON(ctx, http.MethodPost, "/v1/bids", req, &result); err != nil {
		return bidding.SubmitResult{}, err
	}
	return result, nil
}

// CancelBid revokes a previously accepted bid upstream.
func (c *Client) CancelBid(ctx context.Context, req bidding.CancelRequest) error {
	path := fmt.Sprintf("/v1/bids/%s/cancel", req.BidID)
	return c.doJSON(ctx, http.MethodPost, path, req, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding upstream request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building upstream request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upstream request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return c.errorFromResponse(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding upstream response")
	}
	return nil
}

type upstreamError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (c *Client) errorFromResponse(resp *http.Response) error {
	var body upstreamError
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	_ = json.Unmarshal(raw, &body)
	message := body.Message
	if message == "" {
		message = fmt.Sprintf("upstream returned status %d", resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusConflict:
		return pkgerrors.New(pkgerrors.CodeStateConflict, message)
	case resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusBadRequest:
		return pkgerrors.New(pkgerrors.CodeValidation, message)
	case resp.StatusCode == http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, message)
	default:
		return pkgerrors.New(pkgerrors.CodeDependency, message)
	}
}
