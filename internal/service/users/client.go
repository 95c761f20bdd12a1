package users

import (
	"context"
	"fmt"

	"TradePull/internal/domain/models"
	drepo "TradePull/internal/domain/repository"
	pkghttp "TradePull/pkg/http"
)

// HTTPDirectory lists auto-trading users from the account service. The
// service owns credential storage and returns decrypted keys for users
// with trading enabled.
type HTTPDirectory struct {
	directoryURL string
	http         *pkghttp.Client
}

// NewHTTPDirectory creates a user directory client.
func NewHTTPDirectory(directoryURL string, httpClient *pkghttp.Client) drepo.UserDirectory {
	return &HTTPDirectory{directoryURL: directoryURL, http: httpClient}
}

type directoryResponse struct {
	Users []models.UserProfile `json:"users"`
}

// ActiveUsers returns users eligible for this tick. Users missing
// credentials are dropped here so the scheduler never sees them.
func (d *HTTPDirectory) ActiveUsers(ctx context.Context) ([]models.UserProfile, error) {
	var resp directoryResponse
	err := d.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodGet,
		URL:    d.directoryURL,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("user directory: %w", err)
	}

	eligible := make([]models.UserProfile, 0, len(resp.Users))
	for _, u := range resp.Users {
		if u.UserID == "" || u.APIKey == "" || u.APISecret == "" {
			continue
		}
		eligible = append(eligible, u)
	}
	return eligible, nil
}

// StaticDirectory serves a fixed user list, for development and the
// simulated trading mode.
type StaticDirectory struct {
	users []models.UserProfile
}

// NewStaticDirectory creates a directory over a fixed list.
func NewStaticDirectory(users []models.UserProfile) drepo.UserDirectory {
	return &StaticDirectory{users: users}
}

func (d *StaticDirectory) ActiveUsers(ctx context.Context) ([]models.UserProfile, error) {
	return d.users, nil
}
