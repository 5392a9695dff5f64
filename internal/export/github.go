package export

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/nbyapp/nbyapp/internal/app"
)

// GitHubConfig configures the GitHub publisher
type GitHubConfig struct {
	Token string
	// Owner is an organization; empty means the authenticated user
	Owner      string
	RepoPrefix string
	Private    bool
	TempDir    string
}

// GitHubPublisher creates one repository per app and pushes its files
type GitHubPublisher struct {
	client *github.Client
	cfg    GitHubConfig
}

// NewGitHubPublisher creates a publisher authenticated with cfg.Token
func NewGitHubPublisher(cfg GitHubConfig) (*GitHubPublisher, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("github token is required")
	}
	if cfg.RepoPrefix == "" {
		cfg.RepoPrefix = "nbyapp-"
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	tc := oauth2.NewClient(context.Background(), ts)

	return &GitHubPublisher{
		client: github.NewClient(tc),
		cfg:    cfg,
	}, nil
}

// Name returns the exporter name
func (p *GitHubPublisher) Name() string {
	return "github"
}

// Export creates the repository <prefix><appID> and pushes files as the initial commit
func (p *GitHubPublisher) Export(ctx context.Context, appID string, files []app.File) (string, error) {
	if err := checkSegment(appID); err != nil {
		return "", err
	}
	repoName := p.cfg.RepoPrefix + strings.ReplaceAll(appID, "_", "-")

	repo, err := p.createRepository(ctx, repoName, fmt.Sprintf("Generated web app %s", appID))
	if err != nil {
		return "", err
	}

	if p.cfg.TempDir != "" {
		if err := os.MkdirAll(p.cfg.TempDir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create temp directory: %w", err)
		}
	}
	dir, err := os.MkdirTemp(p.cfg.TempDir, appID+"-")
	if err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := WriteFilesToDirectory(dir, files); err != nil {
		return "", err
	}

	if err := p.pushFiles(ctx, repo.GetCloneURL(), dir, "Initial commit: "+appID); err != nil {
		return "", err
	}
	return repo.GetHTMLURL(), nil
}

func (p *GitHubPublisher) createRepository(ctx context.Context, name, description string) (*github.Repository, error) {
	repo := &github.Repository{
		Name:        github.String(name),
		Description: github.String(description),
		Private:     github.Bool(p.cfg.Private),
		AutoInit:    github.Bool(false),
	}

	created, resp, err := p.client.Repositories.Create(ctx, p.cfg.Owner, repo)
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			if p.cfg.Owner != "" {
				return nil, fmt.Errorf("failed to create repository: organization %q not found or token lacks permission: %w", p.cfg.Owner, err)
			}
			return nil, fmt.Errorf("failed to create repository: token lacks 'repo' permission: %w", err)
		}
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}
	return created, nil
}

func (p *GitHubPublisher) pushFiles(ctx context.Context, repoURL, localPath, commitMessage string) error {
	repo, err := git.PlainInit(localPath, false)
	if err != nil {
		return fmt.Errorf("failed to init repository: %w", err)
	}

	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{repoURL},
	})
	if err != nil {
		return fmt.Errorf("failed to add remote: %w", err)
	}

	w, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	if err := w.AddGlob("."); err != nil {
		return fmt.Errorf("failed to add files: %w", err)
	}

	_, err = w.Commit(commitMessage, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "nbyapp",
			Email: "bot@nbyapp.dev",
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		Auth: &githttp.BasicAuth{
			Username: "git",
			Password: p.cfg.Token,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to push: %w", err)
	}
	return nil
}
