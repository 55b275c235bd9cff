// Package ticketsource seeds a run's input text from an external ticket
// instead of (or in addition to) the HTTP API/queue submission paths.
// Grounded on the teacher's GitLab issue-tracker integration
// (internal/service/issue_tracker/gitlab.go's client.Issues.GetIssue call,
// internal/worker/gitlab_provider.go's gitlab.NewClient/WithBaseURL setup)
// — the same client-go calls the teacher makes to pull issue content for
// its own engagement pipeline, repurposed here to source and resolve
// orchestration runs instead of tracking support engagements.
package ticketsource

import (
	"context"
	"fmt"
	"strings"

	gitlab "gitlab.com/gitlab-org/api/client-go"
)

// GitLabSource fetches an issue's title/description as run input and posts
// the finished run's output back as a comment.
type GitLabSource struct {
	client *gitlab.Client
}

// NewGitLabSource builds a GitLabSource against a personal/project access
// token, optionally pointed at a self-hosted instance via baseURL.
func NewGitLabSource(token, baseURL string) (*GitLabSource, error) {
	opts := []gitlab.ClientOptionFunc{}
	if baseURL != "" {
		opts = append(opts, gitlab.WithBaseURL(strings.TrimSuffix(baseURL, "/")+"/api/v4"))
	}
	client, err := gitlab.NewClient(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}
	return &GitLabSource{client: client}, nil
}

// FetchIssueInput retrieves an issue's title and description, joined as the
// orchestration's input_text.
func (s *GitLabSource) FetchIssueInput(ctx context.Context, projectPath string, issueIID int) (string, error) {
	issue, _, err := s.client.Issues.GetIssue(projectPath, issueIID, nil, gitlab.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("fetching gitlab issue %s#%d: %w", projectPath, issueIID, err)
	}

	var b strings.Builder
	b.WriteString(issue.Title)
	if issue.Description != "" {
		b.WriteString("\n\n")
		b.WriteString(issue.Description)
	}
	return b.String(), nil
}

// PostResult appends the run's final output as a comment on the source
// issue, so a human following the ticket sees the outcome without needing
// access to this engine's own run store.
func (s *GitLabSource) PostResult(ctx context.Context, projectPath string, issueIID int, finalOutput string) error {
	opts := &gitlab.CreateIssueNoteOptions{Body: gitlab.Ptr(finalOutput)}
	if _, _, err := s.client.Notes.CreateIssueNote(projectPath, issueIID, opts, gitlab.WithContext(ctx)); err != nil {
		return fmt.Errorf("posting comment on gitlab issue %s#%d: %w", projectPath, issueIID, err)
	}
	return nil
}
