package repo

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/go-github/v58/github"
	"golang.org/x/oauth2"
)

// resolveDefaultBranch decides which branch Push targets. For GitHub
// remotes with a token available, the repository's configured default
// branch is asked for via the API; otherwise origin/HEAD in the local
// checkout decides, and "main" is the final fallback.
func (m *Manager) resolveDefaultBranch(ctx context.Context, project, repoURL string) string {
	if owner, name, ok := splitGitHubURL(repoURL); ok {
		if token := m.token(); token != "" {
			ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
			client := github.NewClient(oauth2.NewClient(ctx, ts))

			r, _, err := client.Repositories.Get(ctx, owner, name)
			if err == nil && r.GetDefaultBranch() != "" {
				return r.GetDefaultBranch()
			}
			slog.Debug("github default branch lookup failed",
				"project", project, "owner", owner, "repo", name, "error", err)
		}
	}
	return m.defaultBranchLocal(ctx, m.Ops(project))
}

// splitGitHubURL extracts owner and repo from an HTTPS GitHub URL.
func splitGitHubURL(repoURL string) (owner, name string, ok bool) {
	u, err := url.Parse(repoURL)
	if err != nil || u.Host != "github.com" {
		return "", "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), true
}
