package changes

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/go-github/v59/github"
	"github.com/samber/lo"
)

// filesPerPage is the largest page size the pull request files API allows.
const filesPerPage = 100

// PullRequestSource lists the files of a pull request through the GitHub API.
type PullRequestSource struct {
	Token      string
	Ref        string
	Repository string
	// APIURL overrides the API endpoint, e.g. for GitHub Enterprise. Optional.
	APIURL string
}

// Name implements Source.
func (s *PullRequestSource) Name() string {
	return "pull-request"
}

// Changes implements Source. It returns ErrUnavailable when the token, ref or
// repository is missing, or when the ref does not point at a pull request.
func (s *PullRequestSource) Changes(ctx context.Context) ([]string, error) {
	if s.Token == "" {
		return nil, fmt.Errorf("%w: GITHUB_TOKEN is not set", ErrUnavailable)
	}
	if s.Ref == "" {
		return nil, fmt.Errorf("%w: GITHUB_REF is not set", ErrUnavailable)
	}
	if s.Repository == "" {
		return nil, fmt.Errorf("%w: GITHUB_REPOSITORY is not set", ErrUnavailable)
	}

	number, ok := ParsePullRequestRef(s.Ref)
	if !ok {
		return nil, fmt.Errorf("%w: not a pull request ref %s", ErrUnavailable, s.Ref)
	}
	owner, repo, ok := SplitRepository(s.Repository)
	if !ok {
		return nil, fmt.Errorf("invalid repository %q: expected owner/repo", s.Repository)
	}

	client, err := s.client()
	if err != nil {
		return nil, err
	}

	var files []string
	opts := &github.ListOptions{PerPage: filesPerPage}
	for {
		page, resp, err := client.PullRequests.ListFiles(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("list files of pull request %d: %w", number, err)
		}

		files = append(files, lo.Map(page, func(f *github.CommitFile, _ int) string {
			return f.GetFilename()
		})...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	log.Debug("Pull request files", "number", number, "files", len(files))
	return files, nil
}

func (s *PullRequestSource) client() (*github.Client, error) {
	client := github.NewClient(nil).WithAuthToken(s.Token)
	if s.APIURL == "" {
		return client, nil
	}

	base := s.APIURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse API URL: %w", err)
	}
	client.BaseURL = u
	return client, nil
}
