// Package exsat talks to the exSat destination chain: paginated table reads
// through the chain API and action submission through a signing relay.
package exsat

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

	"github.com/sethvargo/go-retry"
	"github.com/sugawarayuuta/sonnet"
	"go.uber.org/zap"
)

const (
	getTableRowsPath = "/v1/chain/get_table_rows"
	transactPath     = "/v1/transact"

	defaultPageSize = 500
	maxResponseSize = 64 << 20
)

// ClientConfig configures the chain API and signing relay transport.
type ClientConfig struct {
	Endpoints       []string
	SignerURL       string
	Timeout         time.Duration
	ReadAttempts    uint64
	ReadRetryDelay  time.Duration
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// DefaultClientConfig returns the retry and breaker defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:         30 * time.Second,
		ReadAttempts:    3,
		ReadRetryDelay:  100 * time.Millisecond,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

// TableQuery selects rows from a contract table. A zero Limit drains all pages.
type TableQuery struct {
	Code          string
	Scope         string
	Table         string
	IndexPosition string
	KeyType       string
	LowerBound    string
	UpperBound    string
	Limit         uint32
	Reverse       bool
}

// Authorization is an actor@permission pair.
type Authorization struct {
	Actor      string `json:"actor"`
	Permission string `json:"permission"`
}

// Action is a contract action handed to the signing relay.
type Action struct {
	Account       string          `json:"account"`
	Name          string          `json:"name"`
	Authorization []Authorization `json:"authorization"`
	Data          any             `json:"data"`
}

// ActionResult is the outcome of an executed action.
type ActionResult struct {
	TransactionID string
	ReturnValue   json.RawMessage
}

type tableRowsRequest struct {
	Code          string `json:"code"`
	Scope         string `json:"scope"`
	Table         string `json:"table"`
	IndexPosition string `json:"index_position,omitempty"`
	KeyType       string `json:"key_type,omitempty"`
	LowerBound    string `json:"lower_bound,omitempty"`
	UpperBound    string `json:"upper_bound,omitempty"`
	Limit         uint32 `json:"limit"`
	Reverse       bool   `json:"reverse"`
	JSON          bool   `json:"json"`
}

type tableRowsResponse struct {
	Rows    []json.RawMessage `json:"rows"`
	More    bool              `json:"more"`
	NextKey string            `json:"next_key"`
}

type transactRequest struct {
	Actions []Action `json:"actions"`
}

type transactResponse struct {
	TransactionID string `json:"transaction_id"`
	Processed     struct {
		ActionTraces []struct {
			ReturnValueData json.RawMessage `json:"return_value_data"`
		} `json:"action_traces"`
	} `json:"processed"`
}

// Client implements Gateway over HTTP.
type Client struct {
	http           *http.Client
	pool           *endpointPool
	signerURL      string
	metrics        Metrics
	logger         *zap.Logger
	readAttempts   uint64
	readRetryDelay time.Duration
}

// NewClient builds a Client.
func NewClient(cfg ClientConfig, metrics Metrics, logger *zap.Logger) (*Client, error) {
	if metrics == nil {
		return nil, errors.New("gateway metrics is required")
	}
	if cfg.SignerURL == "" {
		return nil, errors.New("signer url is required")
	}
	pool, err := newEndpointPool(trimURLs(cfg.Endpoints), cfg.BreakerFailures, cfg.BreakerTimeout, metrics, logger.Named("endpointPool"))
	if err != nil {
		return nil, err
	}
	if cfg.ReadAttempts == 0 {
		cfg.ReadAttempts = 1
	}
	if cfg.ReadRetryDelay <= 0 {
		cfg.ReadRetryDelay = 100 * time.Millisecond
	}

	return &Client{
		http:           &http.Client{Timeout: cfg.Timeout},
		pool:           pool,
		signerURL:      strings.TrimRight(cfg.SignerURL, "/"),
		metrics:        metrics,
		logger:         logger,
		readAttempts:   cfg.ReadAttempts,
		readRetryDelay: cfg.ReadRetryDelay,
	}, nil
}

func trimURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// GetTableRows reads rows matching q, following next_key until the table is
// drained unless q.Limit is set.
func (c *Client) GetTableRows(ctx context.Context, q TableQuery) ([]json.RawMessage, error) {
	req := tableRowsRequest{
		Code:          q.Code,
		Scope:         q.Scope,
		Table:         q.Table,
		IndexPosition: q.IndexPosition,
		KeyType:       q.KeyType,
		LowerBound:    q.LowerBound,
		UpperBound:    q.UpperBound,
		Limit:         q.Limit,
		Reverse:       q.Reverse,
		JSON:          true,
	}
	if req.Scope == "" {
		req.Scope = req.Code
	}
	if req.Limit == 0 {
		req.Limit = defaultPageSize
	}

	var rows []json.RawMessage
	for {
		page, err := c.readPage(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("get table rows %s.%s: %w", q.Code, q.Table, err)
		}
		rows = append(rows, page.Rows...)

		if !page.More || q.Limit > 0 {
			return rows, nil
		}
		if page.NextKey == "" {
			return nil, fmt.Errorf("get table rows %s.%s: more rows reported without next key", q.Code, q.Table)
		}
		if q.Reverse {
			req.UpperBound = page.NextKey
		} else {
			req.LowerBound = page.NextKey
		}
	}
}

func (c *Client) readPage(ctx context.Context, req tableRowsRequest) (*tableRowsResponse, error) {
	backoff := retry.WithMaxRetries(c.readAttempts-1, retry.NewConstant(c.readRetryDelay))

	var page *tableRowsResponse
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, err := execute(ctx, c.pool, "get_table_rows", func(ctx context.Context, baseURL string) (*tableRowsResponse, *APIError, error) {
			var out tableRowsResponse
			apiErr, err := c.post(ctx, baseURL+getTableRowsPath, req, &out)
			return &out, apiErr, err
		})
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return err
			}
			c.logger.Warn("table read failed", zap.String("table", req.Table), zap.Error(err))
			return retry.RetryableError(err)
		}
		page = res
		return nil
	})
	return page, err
}

// PushAction submits an action through the signing relay. Failures are
// returned as is; the caller decides whether to retry.
func (c *Client) PushAction(ctx context.Context, action Action) (result *ActionResult, err error) {
	started := time.Now()
	defer func() {
		c.metrics.ObserveRequest(c.signerURL, action.Name, err, started)
	}()

	var out transactResponse
	apiErr, err := c.post(ctx, c.signerURL+transactPath, transactRequest{Actions: []Action{action}}, &out)
	if err != nil {
		return nil, fmt.Errorf("push %s::%s: %w", action.Account, action.Name, err)
	}
	if apiErr != nil {
		return nil, fmt.Errorf("push %s::%s: %w", action.Account, action.Name, apiErr)
	}
	if out.TransactionID == "" {
		return nil, fmt.Errorf("push %s::%s: empty transaction id", action.Account, action.Name)
	}

	result = &ActionResult{TransactionID: out.TransactionID}
	if len(out.Processed.ActionTraces) > 0 {
		result.ReturnValue = out.Processed.ActionTraces[0].ReturnValueData
	}
	return result, nil
}

// post returns an APIError for well-formed error replies and a plain error
// for transport failures.
func (c *Client) post(ctx context.Context, url string, body, out any) (*APIError, error) {
	payload, err := sonnet.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody apiErrorBody
		if jsonErr := sonnet.Unmarshal(data, &errBody); jsonErr == nil && errBody.Error != nil {
			return errBody.toError(resp.StatusCode), nil
		}
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(data, 256))
	}

	if err := sonnet.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return nil, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
