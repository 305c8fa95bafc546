package repo

import (
	"fmt"
	"net/url"
	"strings"
)

// AuthenticatedURL injects a bearer token into an HTTPS GitHub-style URL.
// Non-HTTPS URLs and empty tokens pass through unchanged; the token rides
// in the URL only for the duration of one git invocation and must never
// be logged.
func AuthenticatedURL(repoURL, token string) (string, error) {
	if token == "" || !strings.HasPrefix(repoURL, "https://") || !strings.Contains(repoURL, "github.com") {
		return repoURL, nil
	}

	u, err := url.Parse(repoURL)
	if err != nil {
		return "", fmt.Errorf("invalid repository url: %w", err)
	}

	// GitHub accepts the token as the username with an empty password.
	u.User = url.UserPassword(token, "")
	return u.String(), nil
}

// Scrub removes a token from text destined for logs or callers.
func Scrub(text, token string) string {
	if token == "" {
		return text
	}
	return strings.ReplaceAll(text, token, "***")
}
