package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"holds-service/internal/interfaces"
	"holds-service/internal/models"
)

// UserClient fetches patron profiles and loan records from the user source
type UserClient struct {
	baseURL string
	client  *http.Client
}

// NewUserClient creates a user/loan client. An empty baseURL is allowed and
// marks the source as not configured.
func NewUserClient(baseURL string, timeout time.Duration) *UserClient {
	return &UserClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// GetProfile fetches a patron profile
func (c *UserClient) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	if c.baseURL == "" {
		return nil, interfaces.ErrSourceNotConfigured
	}

	endpoint := fmt.Sprintf("%s/users/%s", c.baseURL, url.PathEscape(userID))
	var profile models.UserProfile
	if err := getJSON(ctx, c.client, endpoint, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetLoans fetches a patron's loan records
func (c *UserClient) GetLoans(ctx context.Context, userID string) ([]models.Loan, error) {
	if c.baseURL == "" {
		return nil, interfaces.ErrSourceNotConfigured
	}

	endpoint := fmt.Sprintf("%s/users/%s/loans", c.baseURL, url.PathEscape(userID))
	var loans []models.Loan
	if err := getJSON(ctx, c.client, endpoint, &loans); err != nil {
		return nil, err
	}
	return loans, nil
}
