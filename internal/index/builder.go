// Package index builds lookup indexes over the flattened raw arrays. Every
// bucket stores array positions, never item copies, so the indexes stay
// cheap even for large collections.
package index

import "github.com/ghinsight/ghinsight/internal/domain"

// Build walks each flat array exactly once and buckets array positions by
// repository, author, label and owning item id. Bucket order equals
// first-seen order in the source array. Items without a repository tag or
// author land under the "unknown" key
func Build(raw *domain.RawData) *domain.OptimalIndexes {
	idx := domain.NewOptimalIndexes()

	for i, issue := range raw.Issues {
		repo := orUnknown(issue.RepositoryName)
		idx.IssuesByRepo[repo] = appendOnce(idx.IssuesByRepo[repo], i)

		ref := domain.ItemReference{
			Index:          i,
			RepositoryName: issue.RepositoryName,
			Type:           domain.ItemTypeIssue,
		}
		author := orUnknown(issue.User.Login)
		idx.ItemsByAuthor[author] = appendRefOnce(idx.ItemsByAuthor[author], ref)

		for _, label := range issue.Labels {
			if label.Name == "" {
				continue
			}
			idx.ItemsByLabel[label.Name] = appendRefOnce(idx.ItemsByLabel[label.Name], ref)
		}
	}

	for i, pr := range raw.PullRequests {
		repo := orUnknown(pr.RepositoryName)
		idx.PRsByRepo[repo] = appendOnce(idx.PRsByRepo[repo], i)

		ref := domain.ItemReference{
			Index:          i,
			RepositoryName: pr.RepositoryName,
			Type:           domain.ItemTypePullRequest,
		}
		author := orUnknown(pr.User.Login)
		idx.ItemsByAuthor[author] = appendRefOnce(idx.ItemsByAuthor[author], ref)
	}

	for i, commit := range raw.Commits {
		repo := orUnknown(commit.RepositoryName)
		idx.CommitsByRepo[repo] = appendOnce(idx.CommitsByRepo[repo], i)

		// Commit authors are keyed by name: commits from users without a
		// GitHub account carry no login at all
		author := orUnknown(commit.AuthorName)
		ref := domain.ItemReference{
			Index:          i,
			RepositoryName: commit.RepositoryName,
			Type:           domain.ItemTypeCommit,
		}
		idx.ItemsByAuthor[author] = appendRefOnce(idx.ItemsByAuthor[author], ref)
	}

	for i, comment := range raw.IssueComments {
		idx.CommentsByIssue[comment.IssueID] = appendOnce(idx.CommentsByIssue[comment.IssueID], i)
	}

	for i, review := range raw.PRReviews {
		idx.ReviewsByPR[review.PullRequestID] = appendOnce(idx.ReviewsByPR[review.PullRequestID], i)
	}

	return idx
}

func orUnknown(key string) string {
	if key == "" {
		return domain.UnknownKey
	}
	return key
}

// appendOnce appends pos unless it is already the bucket's last entry.
// Positions arrive in ascending order, so checking the tail is enough to
// keep buckets duplicate-free
func appendOnce(bucket []int, pos int) []int {
	if n := len(bucket); n > 0 && bucket[n-1] == pos {
		return bucket
	}
	return append(bucket, pos)
}

func appendRefOnce(bucket []domain.ItemReference, ref domain.ItemReference) []domain.ItemReference {
	if n := len(bucket); n > 0 && bucket[n-1].Index == ref.Index && bucket[n-1].Type == ref.Type {
		return bucket
	}
	return append(bucket, ref)
}
