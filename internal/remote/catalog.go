// Package remote holds the HTTP clients for the read-only collaborators:
// the catalog system and the user/loan system. Both are consumed as plain
// JSON-over-HTTP sources; an unset base URL makes every lookup fail with
// interfaces.ErrSourceNotConfigured so callers can degrade deliberately.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"holds-service/internal/interfaces"
	"holds-service/internal/models"
)

// CatalogClient fetches item status and metadata from the catalog source
type CatalogClient struct {
	baseURL string
	client  *http.Client
}

// NewCatalogClient creates a catalog client. An empty baseURL is allowed and
// marks the source as not configured.
func NewCatalogClient(baseURL string, timeout time.Duration) *CatalogClient {
	return &CatalogClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// GetItemStatus fetches the current catalog record for one item
func (c *CatalogClient) GetItemStatus(ctx context.Context, itemID string) (*models.CatalogItem, error) {
	if c.baseURL == "" {
		return nil, interfaces.ErrSourceNotConfigured
	}

	endpoint := fmt.Sprintf("%s/items/%s", c.baseURL, url.PathEscape(itemID))
	var item models.CatalogItem
	if err := getJSON(ctx, c.client, endpoint, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// ListItems fetches the whole catalog, used by the bulk snapshot refresh
func (c *CatalogClient) ListItems(ctx context.Context) ([]models.CatalogItem, error) {
	if c.baseURL == "" {
		return nil, interfaces.ErrSourceNotConfigured
	}

	var items []models.CatalogItem
	if err := getJSON(ctx, c.client, c.baseURL+"/items", &items); err != nil {
		return nil, err
	}
	return items, nil
}

func getJSON(ctx context.Context, client *http.Client, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("endpoint", endpoint).Msg("Remote source unreachable")
		return fmt.Errorf("remote source unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return interfaces.ErrRemoteNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("remote source returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode remote response: %w", err)
	}
	return nil
}
