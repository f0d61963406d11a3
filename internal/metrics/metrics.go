// Package metrics derives the aggregate numbers of a collection run from
// the flat raw arrays and their indexes. Everything here is pure: the same
// raw data always produces the same metrics.
package metrics

import (
	"sort"
	"time"

	"github.com/ghinsight/ghinsight/internal/domain"
	"github.com/ghinsight/ghinsight/internal/facts"
)

// Compute derives all metric groups for one run
func Compute(raw *domain.RawData, indexes *domain.OptimalIndexes) domain.Metrics {
	contributors := computeContributors(raw, indexes)
	return domain.Metrics{
		ProjectSummary:     computeProjectSummary(raw, len(contributors)),
		RepositoryMetrics:  computeRepositoryMetrics(raw, indexes),
		ContributorMetrics: contributors,
		TimelineMetrics:    computeTimeline(raw),
	}
}

func computeProjectSummary(raw *domain.RawData, contributorCount int) domain.ProjectSummary {
	repoCount := len(raw.Repositories)

	closedIssues := 0
	for _, issue := range raw.Issues {
		if issue.State == "closed" {
			closedIssues++
		}
	}
	mergedPRs := 0
	for _, pr := range raw.PullRequests {
		if pr.Merged {
			mergedPRs++
		}
	}

	return domain.ProjectSummary{
		TotalRepositories:     repoCount,
		TotalIssues:           len(raw.Issues),
		TotalPullRequests:     len(raw.PullRequests),
		TotalCommits:          len(raw.Commits),
		TotalComments:         len(raw.IssueComments),
		TotalReviews:          len(raw.PRReviews),
		TotalContributors:     contributorCount,
		AverageIssuesPerRepo:  facts.Ratio(float64(len(raw.Issues)), float64(repoCount)),
		AveragePRsPerRepo:     facts.Ratio(float64(len(raw.PullRequests)), float64(repoCount)),
		AverageCommitsPerRepo: facts.Ratio(float64(len(raw.Commits)), float64(repoCount)),
		IssueCloseRate:        facts.Ratio(float64(closedIssues), float64(len(raw.Issues))),
		PRMergeRate:           facts.Ratio(float64(mergedPRs), float64(len(raw.PullRequests))),
	}
}

func computeRepositoryMetrics(raw *domain.RawData, indexes *domain.OptimalIndexes) map[string]domain.RepositoryMetrics {
	commentsByRepo := make(map[string]int)
	for _, comment := range raw.IssueComments {
		commentsByRepo[comment.RepositoryName]++
	}
	reviewsByRepo := make(map[string]int)
	for _, review := range raw.PRReviews {
		reviewsByRepo[review.RepositoryName]++
	}
	contributorsByRepo := repoContributorSets(raw)

	out := make(map[string]domain.RepositoryMetrics, len(raw.Repositories))
	for _, repo := range raw.Repositories {
		name := repo.RepositoryName

		open, closed := 0, 0
		var resolutionDays []float64
		for _, idx := range indexes.IssuesByRepo[name] {
			issue := raw.Issues[idx]
			if issue.State == "closed" {
				closed++
				if issue.ClosedAt != nil {
					resolutionDays = append(resolutionDays, float64(facts.DaysBetween(issue.CreatedAt, *issue.ClosedAt)))
				}
			} else {
				open++
			}
		}

		merged := 0
		for _, idx := range indexes.PRsByRepo[name] {
			if raw.PullRequests[idx].Merged {
				merged++
			}
		}

		issueCount := len(indexes.IssuesByRepo[name])
		prCount := len(indexes.PRsByRepo[name])

		out[name] = domain.RepositoryMetrics{
			IssueCount:                issueCount,
			OpenIssueCount:            open,
			ClosedIssueCount:          closed,
			PullRequestCount:          prCount,
			MergedPullRequestCount:    merged,
			CommitCount:               len(indexes.CommitsByRepo[name]),
			CommentCount:              commentsByRepo[name],
			ReviewCount:               reviewsByRepo[name],
			ContributorCount:          len(contributorsByRepo[name]),
			IssueCloseRate:            facts.Ratio(float64(closed), float64(issueCount)),
			PRMergeRate:               facts.Ratio(float64(merged), float64(prCount)),
			AvgCommentsPerIssue:       facts.Ratio(float64(commentsByRepo[name]), float64(issueCount)),
			AvgReviewsPerPR:           facts.Ratio(float64(reviewsByRepo[name]), float64(prCount)),
			AvgIssueResolutionDays:    facts.Mean(resolutionDays),
			MedianIssueResolutionDays: facts.Median(resolutionDays),
			Stars:                     repo.StargazersCount,
			Forks:                     repo.ForksCount,
		}
	}
	return out
}

func repoContributorSets(raw *domain.RawData) map[string]map[string]struct{} {
	sets := make(map[string]map[string]struct{})
	add := func(repo, author string) {
		if author == "" {
			author = domain.UnknownKey
		}
		if sets[repo] == nil {
			sets[repo] = make(map[string]struct{})
		}
		sets[repo][author] = struct{}{}
	}
	for _, issue := range raw.Issues {
		add(issue.RepositoryName, issue.User.Login)
	}
	for _, pr := range raw.PullRequests {
		add(pr.RepositoryName, pr.User.Login)
	}
	for _, commit := range raw.Commits {
		add(commit.RepositoryName, commit.AuthorName)
	}
	for _, comment := range raw.IssueComments {
		add(comment.RepositoryName, comment.User.Login)
	}
	for _, review := range raw.PRReviews {
		add(review.RepositoryName, review.User.Login)
	}
	return sets
}

type contributorTally struct {
	issues, prs, commits, comments, reviews int
	repos                                   map[string]struct{}
}

func computeContributors(raw *domain.RawData, indexes *domain.OptimalIndexes) map[string]domain.ContributorMetrics {
	tallies := make(map[string]*contributorTally)
	get := func(author string) *contributorTally {
		if author == "" {
			author = domain.UnknownKey
		}
		t, ok := tallies[author]
		if !ok {
			t = &contributorTally{repos: make(map[string]struct{})}
			tallies[author] = t
		}
		return t
	}

	for author, refs := range indexes.ItemsByAuthor {
		t := get(author)
		for _, ref := range refs {
			switch ref.Type {
			case domain.ItemTypeIssue:
				t.issues++
			case domain.ItemTypePullRequest:
				t.prs++
			case domain.ItemTypeCommit:
				t.commits++
			}
			t.repos[ref.RepositoryName] = struct{}{}
		}
	}
	for _, comment := range raw.IssueComments {
		t := get(comment.User.Login)
		t.comments++
		t.repos[comment.RepositoryName] = struct{}{}
	}
	for _, review := range raw.PRReviews {
		t := get(review.User.Login)
		t.reviews++
		t.repos[review.RepositoryName] = struct{}{}
	}

	out := make(map[string]domain.ContributorMetrics, len(tallies))
	for author, t := range tallies {
		repos := make([]string, 0, len(t.repos))
		for repo := range t.repos {
			repos = append(repos, repo)
		}
		sort.Strings(repos)

		out[author] = domain.ContributorMetrics{
			IssuesOpened:  t.issues,
			PRsOpened:     t.prs,
			Commits:       t.commits,
			Comments:      t.comments,
			Reviews:       t.reviews,
			Repositories:  repos,
			TotalActivity: t.issues + t.prs + t.commits + t.comments + t.reviews,
		}
	}
	return out
}

func computeTimeline(raw *domain.RawData) domain.TimelineMetrics {
	issueWeeks := make(map[time.Time]int)
	prWeeks := make(map[time.Time]int)
	commitWeeks := make(map[time.Time]int)

	var first, last time.Time
	observe := func(t time.Time) time.Time {
		week := truncateToWeek(t)
		if first.IsZero() || week.Before(first) {
			first = week
		}
		if week.After(last) {
			last = week
		}
		return week
	}

	for _, issue := range raw.Issues {
		issueWeeks[observe(issue.CreatedAt)]++
	}
	for _, pr := range raw.PullRequests {
		prWeeks[observe(pr.CreatedAt)]++
	}
	for _, commit := range raw.Commits {
		commitWeeks[observe(commit.AuthorDate)]++
	}

	if first.IsZero() {
		return domain.TimelineMetrics{}
	}

	var periods []domain.PeriodActivity
	var totals []float64
	for current := first; !current.After(last); current = current.AddDate(0, 0, 7) {
		p := domain.PeriodActivity{
			Period:       current.Format("2006-01-02"),
			Issues:       issueWeeks[current],
			PullRequests: prWeeks[current],
			Commits:      commitWeeks[current],
		}
		periods = append(periods, p)
		totals = append(totals, float64(p.Issues+p.PullRequests+p.Commits))
	}

	tm := domain.TimelineMetrics{
		Periods:      periods,
		ActivityGini: facts.Gini(totals),
	}
	if n := len(periods); n >= 2 {
		prev, curr := periods[n-2], periods[n-1]
		tm.IssueGrowthRate = facts.GrowthRate(float64(curr.Issues), float64(prev.Issues))
		tm.PRGrowthRate = facts.GrowthRate(float64(curr.PullRequests), float64(prev.PullRequests))
		tm.CommitGrowthRate = facts.GrowthRate(float64(curr.Commits), float64(prev.Commits))
	}
	return tm
}

// truncateToWeek returns the UTC Monday that starts the week containing t
func truncateToWeek(t time.Time) time.Time {
	t = t.UTC()
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return time.Date(t.Year(), t.Month(), t.Day()-weekday+1, 0, 0, 0, 0, time.UTC)
}
