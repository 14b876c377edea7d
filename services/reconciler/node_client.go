package reconciler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"vulnera/core"
	"vulnera/core/types"
	"vulnera/crypto"
)

// ErrNotFound is returned when the node has no record of the requested
// transaction, account or vault.
var ErrNotFound = errors.New("reconciler: not found")

// VaultState is the decoded escrow vault as reported by the node.
type VaultState struct {
	Address      string `json:"address"`
	Owner        string `json:"owner"`
	EscrowAmount uint64 `json:"escrowAmount"`
	Lamports     uint64 `json:"lamports"`
	RentReserve  uint64 `json:"rentReserve"`
}

// NodeClient is the reconciler's view of the node. The backend treats the
// program purely as a fund-movement oracle: it submits transactions, polls
// for confirmation and tails the event log.
type NodeClient interface {
	SubmitTransaction(ctx context.Context, tx *types.Transaction) (*core.TransactionStatus, error)
	GetTransaction(ctx context.Context, txID string) (*core.TransactionStatus, error)
	GetVault(ctx context.Context, owner crypto.PublicKey) (*VaultState, error)
	FetchEvents(ctx context.Context, after uint64, limit int) ([]*types.Event, error)
}

// HTTPNodeClient talks to the node's RPC server.
type HTTPNodeClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPNodeClient creates a client for the given base URL.
func NewHTTPNodeClient(baseURL string) *HTTPNodeClient {
	return &HTTPNodeClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type submitRequest struct {
	Transaction *types.Transaction `json:"transaction"`
}

func (c *HTTPNodeClient) SubmitTransaction(ctx context.Context, tx *types.Transaction) (*core.TransactionStatus, error) {
	body, err := json.Marshal(submitRequest{Transaction: tx})
	if err != nil {
		return nil, err
	}
	var status core.TransactionStatus
	if err := c.do(ctx, http.MethodPost, "/v1/transactions", bytes.NewReader(body), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *HTTPNodeClient) GetTransaction(ctx context.Context, txID string) (*core.TransactionStatus, error) {
	var status core.TransactionStatus
	if err := c.do(ctx, http.MethodGet, "/v1/transactions/"+url.PathEscape(txID), nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *HTTPNodeClient) GetVault(ctx context.Context, owner crypto.PublicKey) (*VaultState, error) {
	var vault VaultState
	if err := c.do(ctx, http.MethodGet, "/v1/vaults/"+owner.String(), nil, &vault); err != nil {
		return nil, err
	}
	return &vault, nil
}

type eventsResponse struct {
	Events []*types.Event `json:"events"`
}

func (c *HTTPNodeClient) FetchEvents(ctx context.Context, after uint64, limit int) ([]*types.Event, error) {
	path := "/v1/events?after=" + strconv.FormatUint(after, 10)
	if limit > 0 {
		path += "&limit=" + strconv.Itoa(limit)
	}
	var resp eventsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *HTTPNodeClient) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 400:
		var envelope errorResponse
		if err := json.Unmarshal(payload, &envelope); err == nil && envelope.Error.Message != "" {
			return fmt.Errorf("reconciler: node returned %d: %s", resp.StatusCode, envelope.Error.Message)
		}
		return fmt.Errorf("reconciler: node returned %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(payload, out)
}

var _ NodeClient = (*HTTPNodeClient)(nil)
