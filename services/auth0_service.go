package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sticker-studio/sticker-studio-api/logger"
)

// AdminProfile is the subset of Auth0's /userinfo response used to attribute admin actions
type AdminProfile struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// AdminDirectory resolves who an admin access token belongs to
type AdminDirectory interface {
	// DisplayName returns the admin's email when it can be resolved, the
	// token subject otherwise
	DisplayName(ctx context.Context, accessToken, subject string) string
}

// Auth0Directory looks admins up through Auth0's /userinfo endpoint
type Auth0Directory struct {
	domain     string
	httpClient *http.Client
	log        *logger.Logger
}

func NewAuth0Directory(domain string, baseLog *logger.Logger) *Auth0Directory {
	return &Auth0Directory{
		domain: domain,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: baseLog.With("service", "Auth0Directory"),
	}
}

func (d *Auth0Directory) DisplayName(ctx context.Context, accessToken, subject string) string {
	if d.domain == "" || accessToken == "" {
		return subject
	}
	profile, err := d.userInfo(ctx, accessToken)
	if err != nil {
		d.log.Warn("Could not resolve admin profile", "subject", subject, "error", err)
		return subject
	}
	if profile.Email != "" {
		return profile.Email
	}
	return subject
}

func (d *Auth0Directory) userInfo(ctx context.Context, accessToken string) (*AdminProfile, error) {
	// a domain with a scheme is used as-is (tests point it at httptest)
	var url string
	if strings.HasPrefix(d.domain, "http://") || strings.HasPrefix(d.domain, "https://") {
		url = fmt.Sprintf("%s/userinfo", strings.TrimRight(d.domain, "/"))
	} else {
		url = fmt.Sprintf("https://%s/userinfo", d.domain)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Add("Authorization", "Bearer "+accessToken)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call userinfo endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("userinfo endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var profile AdminProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo response: %w", err)
	}
	return &profile, nil
}
