package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghinsight/ghinsight/internal/domain"
)

func fixtureRaw() *domain.RawData {
	return &domain.RawData{
		Issues: []domain.Issue{
			{ID: 101, Number: 1, User: domain.User{Login: "alice"}, Labels: []domain.Label{{Name: "bug"}, {Name: "ui"}}, RepositoryName: "repoA"},
			{ID: 102, Number: 2, User: domain.User{Login: "bob"}, Labels: []domain.Label{{Name: "bug"}}, RepositoryName: "repoA"},
			{ID: 103, Number: 3, User: domain.User{Login: "alice"}, RepositoryName: "repoB"},
		},
		PullRequests: []domain.PullRequest{
			{ID: 201, Number: 10, User: domain.User{Login: "alice"}, RepositoryName: "repoA"},
			{ID: 202, Number: 11, User: domain.User{Login: "carol"}, RepositoryName: "repoB"},
		},
		Commits: []domain.Commit{
			{SHA: "aaa", AuthorName: "Alice Doe", RepositoryName: "repoA"},
			{SHA: "bbb", AuthorName: "Bob Ray", RepositoryName: "repoB"},
			{SHA: "ccc", AuthorName: "Alice Doe", RepositoryName: "repoB"},
		},
		IssueComments: []domain.Comment{
			{ID: 301, IssueID: 101, RepositoryName: "repoA"},
			{ID: 302, IssueID: 101, RepositoryName: "repoA"},
			{ID: 303, IssueID: 102, RepositoryName: "repoA"},
		},
		PRReviews: []domain.Review{
			{ID: 401, PullRequestID: 201, RepositoryName: "repoA"},
			{ID: 402, PullRequestID: 201, RepositoryName: "repoA"},
		},
	}
}

func TestBuildBucketsByRepo(t *testing.T) {
	t.Parallel()

	idx := Build(fixtureRaw())

	assert.Equal(t, []int{0, 1}, idx.IssuesByRepo["repoA"])
	assert.Equal(t, []int{2}, idx.IssuesByRepo["repoB"])
	assert.Equal(t, []int{0}, idx.PRsByRepo["repoA"])
	assert.Equal(t, []int{1}, idx.PRsByRepo["repoB"])
	assert.Equal(t, []int{0}, idx.CommitsByRepo["repoA"])
	assert.Equal(t, []int{1, 2}, idx.CommitsByRepo["repoB"])
}

func TestBuildBucketsByAuthor(t *testing.T) {
	t.Parallel()

	idx := Build(fixtureRaw())

	alice := idx.ItemsByAuthor["alice"]
	require.Len(t, alice, 3)
	assert.Equal(t, domain.ItemReference{Index: 0, RepositoryName: "repoA", Type: domain.ItemTypeIssue}, alice[0])
	assert.Equal(t, domain.ItemReference{Index: 2, RepositoryName: "repoB", Type: domain.ItemTypeIssue}, alice[1])
	assert.Equal(t, domain.ItemReference{Index: 0, RepositoryName: "repoA", Type: domain.ItemTypePullRequest}, alice[2])

	// Commit authors key by name, not login
	aliceCommits := idx.ItemsByAuthor["Alice Doe"]
	require.Len(t, aliceCommits, 2)
	assert.Equal(t, domain.ItemTypeCommit, aliceCommits[0].Type)
	assert.Equal(t, []int(nil), idx.IssuesByRepo["missing"])
}

func TestBuildBucketsByLabel(t *testing.T) {
	t.Parallel()

	idx := Build(fixtureRaw())

	require.Len(t, idx.ItemsByLabel["bug"], 2)
	assert.Equal(t, 0, idx.ItemsByLabel["bug"][0].Index)
	assert.Equal(t, 1, idx.ItemsByLabel["bug"][1].Index)
	require.Len(t, idx.ItemsByLabel["ui"], 1)
}

func TestBuildBucketsByOwningItem(t *testing.T) {
	t.Parallel()

	idx := Build(fixtureRaw())

	assert.Equal(t, []int{0, 1}, idx.CommentsByIssue[domain.IssueID(101)])
	assert.Equal(t, []int{2}, idx.CommentsByIssue[domain.IssueID(102)])
	assert.Equal(t, []int{0, 1}, idx.ReviewsByPR[domain.PullRequestID(201)])
}

func TestBuildUnknownFallback(t *testing.T) {
	t.Parallel()

	raw := &domain.RawData{
		Issues: []domain.Issue{
			{ID: 1, Number: 1, User: domain.User{Login: ""}},
		},
		Commits: []domain.Commit{
			{SHA: "aaa", AuthorName: ""},
		},
	}

	idx := Build(raw)

	assert.Equal(t, []int{0}, idx.IssuesByRepo[domain.UnknownKey])
	assert.Equal(t, []int{0}, idx.CommitsByRepo[domain.UnknownKey])
	require.Len(t, idx.ItemsByAuthor[domain.UnknownKey], 2)
}

func TestBuildDuplicateLabelIndexedOnce(t *testing.T) {
	t.Parallel()

	raw := &domain.RawData{
		Issues: []domain.Issue{
			{ID: 1, Number: 1, User: domain.User{Login: "alice"}, Labels: []domain.Label{{Name: "bug"}, {Name: "bug"}}, RepositoryName: "repoA"},
		},
	}

	idx := Build(raw)

	require.Len(t, idx.ItemsByLabel["bug"], 1)
}

func TestBuildBucketsAreCompleteAndUnique(t *testing.T) {
	t.Parallel()

	raw := fixtureRaw()
	idx := Build(raw)

	seenIssues := map[int]int{}
	for _, bucket := range idx.IssuesByRepo {
		for _, i := range bucket {
			seenIssues[i]++
		}
	}
	require.Len(t, seenIssues, len(raw.Issues))
	for i, count := range seenIssues {
		assert.Equal(t, 1, count, "issue index %d", i)
	}

	seenCommits := map[int]int{}
	for _, bucket := range idx.CommitsByRepo {
		for _, i := range bucket {
			seenCommits[i]++
		}
	}
	require.Len(t, seenCommits, len(raw.Commits))

	seenComments := map[int]int{}
	for _, bucket := range idx.CommentsByIssue {
		for _, i := range bucket {
			seenComments[i]++
		}
	}
	require.Len(t, seenComments, len(raw.IssueComments))
}

func TestBuildEmptyRawData(t *testing.T) {
	t.Parallel()

	idx := Build(&domain.RawData{})

	assert.Empty(t, idx.IssuesByRepo)
	assert.Empty(t, idx.ItemsByAuthor)
	assert.Empty(t, idx.CommentsByIssue)
}
