package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// TokenInfo describes one entry of the token list.
type TokenInfo struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	LogoURI  string `json:"logoURI"`
	Decimals int    `json:"decimals"`
}

// Directory is an in-memory token metadata directory keyed by mint address.
// It is built once from a token list and is safe for concurrent reads.
type Directory struct {
	byMint map[string]TokenInfo
}

// NewDirectory builds a Directory from a slice of token infos.
// Later entries win on duplicate mint addresses.
func NewDirectory(tokens []TokenInfo) *Directory {
	byMint := make(map[string]TokenInfo, len(tokens))
	for _, tok := range tokens {
		byMint[tok.Address] = tok
	}
	return &Directory{byMint: byMint}
}

// Lookup returns the metadata for a mint address, and whether it was found.
func (d *Directory) Lookup(mint string) (TokenInfo, bool) {
	info, ok := d.byMint[mint]
	return info, ok
}

// Len returns the number of known tokens.
func (d *Directory) Len() int {
	return len(d.byMint)
}

// tokenListResponse is the standard Solana token list document shape.
type tokenListResponse struct {
	Name   string      `json:"name"`
	Tokens []TokenInfo `json:"tokens"`
}

// Fetch downloads a token list document and builds a Directory from it.
// If httpClient is nil a default client with a 30s timeout is used.
func Fetch(ctx context.Context, url string, httpClient *http.Client, logger *slog.Logger) (*Directory, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("token list request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var list tokenListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to decode token list: %w", err)
	}

	logger.InfoContext(ctx, "token list loaded",
		"name", list.Name,
		"tokens", len(list.Tokens),
	)

	return NewDirectory(list.Tokens), nil
}
