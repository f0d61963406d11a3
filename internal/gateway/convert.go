package gateway

import (
	"time"

	"github.com/google/go-github/v55/github"

	"github.com/ghinsight/ghinsight/internal/domain"
)

func convertRepository(repo *github.Repository) domain.Repository {
	return domain.Repository{
		ID:              repo.GetID(),
		Name:            repo.GetName(),
		FullName:        repo.GetFullName(),
		Description:     repo.GetDescription(),
		Language:        repo.GetLanguage(),
		Private:         repo.GetPrivate(),
		Fork:            repo.GetFork(),
		Archived:        repo.GetArchived(),
		DefaultBranch:   repo.GetDefaultBranch(),
		StargazersCount: repo.GetStargazersCount(),
		ForksCount:      repo.GetForksCount(),
		OpenIssuesCount: repo.GetOpenIssuesCount(),
		CreatedAt:       repo.GetCreatedAt().Time,
		UpdatedAt:       repo.GetUpdatedAt().Time,
		PushedAt:        repo.GetPushedAt().Time,
	}
}

func convertIssue(issue *github.Issue) domain.Issue {
	labels := make([]domain.Label, 0, len(issue.Labels))
	for _, label := range issue.Labels {
		labels = append(labels, domain.Label{Name: label.GetName()})
	}
	return domain.Issue{
		ID:        domain.IssueID(issue.GetID()),
		Number:    issue.GetNumber(),
		Title:     issue.GetTitle(),
		State:     issue.GetState(),
		Body:      issue.GetBody(),
		HTMLURL:   issue.GetHTMLURL(),
		User:      domain.User{Login: issue.GetUser().GetLogin()},
		Labels:    labels,
		Comments:  issue.GetComments(),
		CreatedAt: issue.GetCreatedAt().Time,
		UpdatedAt: issue.GetUpdatedAt().Time,
		ClosedAt:  timestampPtr(issue.ClosedAt),
	}
}

func convertPullRequest(pr *github.PullRequest) domain.PullRequest {
	return domain.PullRequest{
		ID:      domain.PullRequestID(pr.GetID()),
		Number:  pr.GetNumber(),
		Title:   pr.GetTitle(),
		State:   pr.GetState(),
		Body:    pr.GetBody(),
		HTMLURL: pr.GetHTMLURL(),
		User:    domain.User{Login: pr.GetUser().GetLogin()},
		Draft:   pr.GetDraft(),
		// The list endpoint never fills the merged flag, only merged_at
		Merged:    pr.MergedAt != nil,
		MergedAt:  timestampPtr(pr.MergedAt),
		CreatedAt: pr.GetCreatedAt().Time,
		UpdatedAt: pr.GetUpdatedAt().Time,
		ClosedAt:  timestampPtr(pr.ClosedAt),
	}
}

func convertCommit(commit *github.RepositoryCommit) domain.Commit {
	c := domain.Commit{
		SHA:     commit.GetSHA(),
		HTMLURL: commit.GetHTMLURL(),
	}
	if inner := commit.GetCommit(); inner != nil {
		c.Message = inner.GetMessage()
		if author := inner.GetAuthor(); author != nil {
			c.AuthorName = author.GetName()
			c.AuthorEmail = author.GetEmail()
			c.AuthorDate = author.GetDate().Time
		}
	}
	if commit.Author != nil {
		c.AuthorLogin = commit.Author.GetLogin()
	}
	return c
}

func convertComment(comment *github.IssueComment) domain.Comment {
	return domain.Comment{
		ID:        comment.GetID(),
		Body:      comment.GetBody(),
		User:      domain.User{Login: comment.GetUser().GetLogin()},
		CreatedAt: comment.GetCreatedAt().Time,
		UpdatedAt: comment.GetUpdatedAt().Time,
	}
}

func convertReview(review *github.PullRequestReview) domain.Review {
	return domain.Review{
		ID:          review.GetID(),
		State:       review.GetState(),
		Body:        review.GetBody(),
		User:        domain.User{Login: review.GetUser().GetLogin()},
		SubmittedAt: review.GetSubmittedAt().Time,
	}
}

func convertReviewComment(comment *github.PullRequestComment) domain.ReviewComment {
	return domain.ReviewComment{
		ID:        comment.GetID(),
		Body:      comment.GetBody(),
		Path:      comment.GetPath(),
		User:      domain.User{Login: comment.GetUser().GetLogin()},
		CreatedAt: comment.GetCreatedAt().Time,
	}
}

func timestampPtr(ts *github.Timestamp) *time.Time {
	if ts == nil {
		return nil
	}
	t := ts.Time
	return &t
}
