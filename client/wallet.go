package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dropxhq/dropx/service/wallet"
)

// Status is the console's identity and activity snapshot.
type Status struct {
	Account string `json:"account"`
	Network string `json:"network"`
	Busy    bool   `json:"busy"`
}

// Client is the HTTP client for the dropx wallet console service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new console service client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		// Operations block on confirmation polling server-side.
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Status retrieves the console's account, network, and busy state.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var status Status
	if err := c.get(ctx, "/api/v1/wallet", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Balance retrieves the account balance. With refresh, the server
// refetches from the chain instead of serving the cached view.
func (c *Client) Balance(ctx context.Context, refresh bool) (string, error) {
	var response struct {
		Balance string `json:"balance"`
	}
	if err := c.get(ctx, withRefresh("/api/v1/balance", refresh), &response); err != nil {
		return "", err
	}
	return response.Balance, nil
}

// Tokens retrieves the account's token holdings.
func (c *Client) Tokens(ctx context.Context, refresh bool) ([]wallet.TokenHolding, error) {
	var response struct {
		Tokens []wallet.TokenHolding `json:"tokens"`
	}
	if err := c.get(ctx, withRefresh("/api/v1/tokens", refresh), &response); err != nil {
		return nil, err
	}
	return response.Tokens, nil
}

// History retrieves the reconstructed transaction history.
func (c *Client) History(ctx context.Context, refresh bool) ([]wallet.HistoryEntry, error) {
	var response struct {
		History []wallet.HistoryEntry `json:"history"`
	}
	if err := c.get(ctx, withRefresh("/api/v1/history", refresh), &response); err != nil {
		return nil, err
	}
	return response.History, nil
}

// Airdrop requests test funds and waits for the server to confirm them.
func (c *Client) Airdrop(ctx context.Context, amount string) (*wallet.Receipt, error) {
	return c.operation(ctx, "/api/v1/airdrop", map[string]string{
		"amount": amount,
	})
}

// SendSOL submits a native transfer and waits for confirmation.
func (c *Client) SendSOL(ctx context.Context, recipient, amount string) (*wallet.Receipt, error) {
	return c.operation(ctx, "/api/v1/transfers/sol", map[string]string{
		"recipient": recipient,
		"amount":    amount,
	})
}

// SendToken submits a token transfer and waits for confirmation.
func (c *Client) SendToken(ctx context.Context, tokenID int, recipient, amount string) (*wallet.Receipt, error) {
	return c.operation(ctx, "/api/v1/transfers/token", map[string]any{
		"token_id":  tokenID,
		"recipient": recipient,
		"amount":    amount,
	})
}

// Network retrieves the active network label.
func (c *Client) Network(ctx context.Context) (string, error) {
	var response struct {
		Network string `json:"network"`
	}
	if err := c.get(ctx, "/api/v1/network", &response); err != nil {
		return "", err
	}
	return response.Network, nil
}

// SwitchNetwork activates the named network endpoint.
func (c *Client) SwitchNetwork(ctx context.Context, network string) error {
	body, err := json.Marshal(map[string]string{"network": network})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "PUT", c.baseURL+"/api/v1/network", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}

	c.logger.Debug("network switched", "network", network)
	return nil
}

// Operations retrieves archived operations for the console's account on
// the active network.
func (c *Client) Operations(ctx context.Context, limit, offset int) ([]wallet.OperationRecord, error) {
	path := "/api/v1/operations?limit=" + strconv.Itoa(limit) + "&offset=" + strconv.Itoa(offset)

	var response struct {
		Operations []wallet.OperationRecord `json:"operations"`
	}
	if err := c.get(ctx, path, &response); err != nil {
		return nil, err
	}
	return response.Operations, nil
}

// operation POSTs an operation request and decodes the receipt. Error
// responses that carry a receipt still decode it so callers see the
// terminal state.
func (c *Client) operation(ctx context.Context, path string, reqBody any) (*wallet.Receipt, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error   string          `json:"error"`
			Receipt *wallet.Receipt `json:"receipt"`
		}
		if err := json.Unmarshal(raw, &errResp); err != nil || errResp.Error == "" {
			return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(raw))
		}
		return errResp.Receipt, fmt.Errorf("request failed: %s", errResp.Error)
	}

	var rcpt wallet.Receipt
	if err := json.Unmarshal(raw, &rcpt); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Debug("operation completed",
		"path", path,
		"outcome", rcpt.Outcome,
		"signature", rcpt.Signature,
	)
	return &rcpt, nil
}

// get performs a GET request and decodes the JSON response into dst.
func (c *Client) get(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func withRefresh(path string, refresh bool) string {
	if !refresh {
		return path
	}
	return path + "?refresh=" + url.QueryEscape("true")
}

// parseErrorResponse attempts to parse an error response from the server.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errResp struct {
		Error string `json:"error"`
	}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return fmt.Errorf("request failed: %s", errResp.Error)
}
