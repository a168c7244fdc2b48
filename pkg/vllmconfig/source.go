package vllmconfig

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/starmountain1997/vaops/pkg/config"
)

// Source supplies the upstream reference configs the resolver merges caller
// overrides into.
type Source interface {
	SingleNode(ctx context.Context) (*SingleNodeConfig, error)
	DualNode(ctx context.Context) (*DualNodeConfig, error)
}

// GitHubSource fetches the reference configs from the vllm-ascend repository
// at a given branch. Results are memoized per instance, so resolving both
// dual-node scripts downloads the config once.
type GitHubSource struct {
	Branch string
	Client *http.Client

	single *SingleNodeConfig
	dual   *DualNodeConfig
}

// NewGitHubSource returns a source reading from the given branch, or the
// default branch when empty.
func NewGitHubSource(branch string) *GitHubSource {
	if branch == "" {
		branch = config.DefaultBranch
	}
	return &GitHubSource{
		Branch: branch,
		Client: &http.Client{Timeout: config.FetchTimeout},
	}
}

func (s *GitHubSource) SingleNode(ctx context.Context) (*SingleNodeConfig, error) {
	if s.single != nil {
		return s.single, nil
	}
	body, err := s.fetch(ctx, fmt.Sprintf(config.SingleNodeConfigURL, s.Branch))
	if err != nil {
		return nil, err
	}
	cfg, err := ParseSingleNodeConfig(body)
	if err != nil {
		return nil, err
	}
	s.single = cfg
	return cfg, nil
}

func (s *GitHubSource) DualNode(ctx context.Context) (*DualNodeConfig, error) {
	if s.dual != nil {
		return s.dual, nil
	}
	body, err := s.fetch(ctx, fmt.Sprintf(config.DualNodeConfigURL, s.Branch))
	if err != nil {
		return nil, err
	}
	cfg, err := ParseDualNodeConfig(body)
	if err != nil {
		return nil, err
	}
	s.dual = cfg
	return cfg, nil
}

func (s *GitHubSource) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: config.FetchTimeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: fetch %s: %v", ErrNetwork, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: fetch %s: unexpected status %s", ErrNetwork, url, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", ErrNetwork, url, err)
	}
	return string(data), nil
}

// StaticSource serves reference configs from in-memory documents. It backs
// offline generation and tests.
type StaticSource struct {
	SingleNodePy string
	DualNodeYAML string
}

func (s StaticSource) SingleNode(context.Context) (*SingleNodeConfig, error) {
	if s.SingleNodePy == "" {
		return nil, fmt.Errorf("%w: no single-node reference config available", ErrConfig)
	}
	return ParseSingleNodeConfig(s.SingleNodePy)
}

func (s StaticSource) DualNode(context.Context) (*DualNodeConfig, error) {
	if s.DualNodeYAML == "" {
		return nil, fmt.Errorf("%w: no dual-node reference config available", ErrConfig)
	}
	return ParseDualNodeConfig(s.DualNodeYAML)
}
