package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ghinsight/ghinsight/internal/apperrors"
	"github.com/ghinsight/ghinsight/internal/collector"
	"github.com/ghinsight/ghinsight/internal/config"
	"github.com/ghinsight/ghinsight/internal/domain"
	"github.com/ghinsight/ghinsight/internal/export"
	"github.com/ghinsight/ghinsight/internal/gateway"
	"github.com/ghinsight/ghinsight/internal/mcp"
	"github.com/ghinsight/ghinsight/internal/ratebudget"
	"github.com/ghinsight/ghinsight/internal/storage"
	"github.com/ghinsight/ghinsight/internal/storage/postgres"
	"github.com/ghinsight/ghinsight/internal/storage/sqlite"
)

var (
	cfgFile    string
	outputJSON bool
	verbose    bool
	noColor    bool

	// collect / estimate options
	withIssues   bool
	withPRs      bool
	withCommits  bool
	withComments bool
	withReviews  bool
	maxIssues    int
	maxPRs       int
	maxCommits   int
	maxComments  int
	sinceDate    string
	untilDate    string
	onlyRepos    []string
	concurrency  int

	targetsFile string
	outputPath  string

	runsProject string
	runsLimit   int
)

var rootCmd = &cobra.Command{
	Use:   "ghinsight",
	Short: "GitHub activity collection tool",
	Long: `A CLI tool for collecting GitHub repository activity into a single
queryable result.

It fetches repositories, issues, pull requests, commits, comments and
reviews for an organization or user, prices the run against the GitHub
rate budget before starting, and stores each run locally for reporting
and export.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			color.NoColor = true //nolint:reassign
		}
	},
}

var collectCmd = &cobra.Command{
	Use:   "collect [org|user]",
	Short: "Collect activity data from GitHub",
	Long: `Collect activity data for a GitHub organization or user and store the
run locally. With --targets, collect every project listed in a YAML
targets file instead of a single argument.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCollect,
}

var estimateCmd = &cobra.Command{
	Use:   "estimate [org|user]",
	Short: "Price a collection without running it",
	Long: `Resolve the project's repositories and report how many API calls a
collection would cost against the current rate budget. Nothing is
fetched beyond the repository list.`,
	Args: cobra.ExactArgs(1),
	RunE: runEstimate,
}

var limitsCmd = &cobra.Command{
	Use:   "limits",
	Short: "Show the current GitHub rate limits",
	Args:  cobra.NoArgs,
	RunE:  runLimits,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored collection runs",
	Args:  cobra.NoArgs,
	RunE:  runListRuns,
}

var reportCmd = &cobra.Command{
	Use:   "report [run-id|project]",
	Short: "Show metrics for a stored run",
	Long: `Display the derived metrics of a stored run. The argument is tried as
a run ID first; if no run matches, it is treated as a project name and
the project's most recent run is shown.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

var exportCmd = &cobra.Command{
	Use:   "export [run-id|project]",
	Short: "Export a stored run to a file",
	Long: `Write a stored run as a JSON document. An output path ending in .lz4
is LZ4-compressed.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate an exported result file",
	Long: `Check an exported result document (plain or .lz4-compressed JSON)
against the result schema and list any violations.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server on stdin/stdout",
	Long: `Serve collection, estimation and rate limit tools to an MCP client
over stdio. Logs go to stderr so stdout stays a clean protocol channel.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "env file to load (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	for _, cmd := range []*cobra.Command{collectCmd, estimateCmd} {
		cmd.Flags().BoolVar(&withIssues, "issues", true, "collect issues")
		cmd.Flags().BoolVar(&withPRs, "prs", true, "collect pull requests")
		cmd.Flags().BoolVar(&withCommits, "commits", true, "collect commits")
		cmd.Flags().BoolVar(&withComments, "comments", true, "collect issue comments")
		cmd.Flags().BoolVar(&withReviews, "reviews", true, "collect pull request reviews")
		cmd.Flags().IntVar(&maxIssues, "max-issues", 0, "cap on issues per repository (0 = default)")
		cmd.Flags().IntVar(&maxPRs, "max-prs", 0, "cap on pull requests per repository (0 = default)")
		cmd.Flags().IntVar(&maxCommits, "max-commits", 0, "cap on commits per repository (0 = default)")
		cmd.Flags().IntVar(&maxComments, "max-comments", 0, "cap on comments per issue (0 = default)")
		cmd.Flags().StringVar(&sinceDate, "since", "", "only items created on or after this date (YYYY-MM-DD)")
		cmd.Flags().StringVar(&untilDate, "until", "", "only items created on or before this date (YYYY-MM-DD)")
		cmd.Flags().StringSliceVar(&onlyRepos, "repos", nil, "restrict collection to the named repositories")
		cmd.Flags().IntVar(&concurrency, "concurrency", 0, "repositories collected in parallel (0 = default)")
	}
	collectCmd.Flags().StringVar(&targetsFile, "targets", "", "YAML targets file listing projects to collect")
	collectCmd.Flags().StringVarP(&outputPath, "output", "o", "", "also write the result to this file")
	exportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output path (default <run-id>.json)")

	runsCmd.Flags().StringVar(&runsProject, "project", "", "only list runs for this project")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum number of runs to list")

	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(estimateCmd)
	rootCmd.AddCommand(limitsCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(mcpCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		_ = godotenv.Load(cfgFile)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func getStorage(cfg *config.Config) (storage.Storage, error) {
	switch cfg.StorageType {
	case "postgres":
		return postgres.NewPostgresStorage(cfg.PostgresURL)
	default:
		return sqlite.NewSQLiteStorage(cfg.SQLitePath)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// buildPipeline wires the GitHub-facing side: gateway, rate budget and
// orchestrator. Commands that only read local storage never call it,
// so they work without a token.
func buildPipeline(cfg *config.Config, logger *slog.Logger) (*collector.Orchestrator, *ratebudget.Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	gw, err := gateway.New(cfg.GitHubToken, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create GitHub gateway: %w", err)
	}
	budget := ratebudget.NewService(gw, logger)
	return collector.NewOrchestrator(gw, budget, logger), budget, nil
}

func collectionOptions() (domain.CollectionOptions, error) {
	opts := domain.CollectionOptions{
		IncludeIssues:       withIssues,
		IncludePullRequests: withPRs,
		IncludeCommits:      withCommits,
		IncludeComments:     withComments,
		IncludeReviews:      withReviews,
		MaxIssues:           maxIssues,
		MaxPullRequests:     maxPRs,
		MaxCommits:          maxCommits,
		MaxCommentsPerIssue: maxComments,
		Repositories:        onlyRepos,
		Concurrency:         concurrency,
	}
	if sinceDate != "" {
		t, err := time.Parse("2006-01-02", sinceDate)
		if err != nil {
			return opts, fmt.Errorf("invalid --since date %q: %w", sinceDate, err)
		}
		opts.Since = t
	}
	if untilDate != "" {
		t, err := time.Parse("2006-01-02", untilDate)
		if err != nil {
			return opts, fmt.Errorf("invalid --until date %q: %w", untilDate, err)
		}
		opts.Until = t
	}
	return opts, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func runDuration(result *domain.AggregateResult) time.Duration {
	return (time.Duration(result.Metadata.Execution.DurationMS) * time.Millisecond).Round(time.Millisecond)
}

func runCollect(cmd *cobra.Command, args []string) error {
	if targetsFile == "" && len(args) == 0 {
		return fmt.Errorf("a project argument or --targets is required")
	}
	if targetsFile != "" && outputPath != "" {
		return fmt.Errorf("--output cannot be combined with --targets")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := getStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	orch, _, err := buildPipeline(cfg, newLogger())
	if err != nil {
		return err
	}
	ctx := context.Background()

	if targetsFile != "" {
		return collectTargets(ctx, orch, store)
	}

	opts, err := collectionOptions()
	if err != nil {
		return err
	}
	return collectOne(ctx, orch, store, args[0], opts)
}

func collectOne(ctx context.Context, orch *collector.Orchestrator, store storage.Storage, project string, opts domain.CollectionOptions) error {
	fmt.Printf("Collecting project: %s\n", project)

	result, err := orch.Collect(ctx, project, opts)
	if err != nil {
		return fmt.Errorf("failed to collect %s: %w", project, err)
	}

	if err := store.SaveRun(ctx, result); err != nil {
		fmt.Printf("Warning: failed to save run %s: %v\n", result.Metadata.Execution.RunID, err)
	}

	if outputPath != "" {
		if err := export.WriteFile(outputPath, result); err != nil {
			return fmt.Errorf("failed to write %s: %w", outputPath, err)
		}
		fmt.Printf("Wrote %s\n", outputPath)
	}

	if outputJSON {
		return printJSON(storage.SummaryOf(result))
	}

	summary := result.Metrics.ProjectSummary
	meta := result.Metadata

	fmt.Printf("\nRun %s complete in %s\n\n", meta.Execution.RunID, runDuration(result))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Repositories", fmt.Sprintf("%d of %d", meta.Collection.RepositoriesDone, meta.Collection.RepositoriesFound)})
	table.Append([]string{"Issues", humanize.Comma(int64(summary.TotalIssues))})
	table.Append([]string{"Pull Requests", humanize.Comma(int64(summary.TotalPullRequests))})
	table.Append([]string{"Commits", humanize.Comma(int64(summary.TotalCommits))})
	table.Append([]string{"Comments", humanize.Comma(int64(summary.TotalComments))})
	table.Append([]string{"Reviews", humanize.Comma(int64(summary.TotalReviews))})
	table.Append([]string{"Contributors", humanize.Comma(int64(summary.TotalContributors))})
	table.Append([]string{"API Calls", humanize.Comma(int64(meta.APIUsage.CallsMade))})
	table.Render()

	if meta.Collection.ErrorsEncountered > 0 {
		color.New(color.FgYellow).Fprintf(os.Stdout, "\n%d repositories failed:\n", len(meta.Collection.FailedRepositories))
		for _, f := range meta.Collection.FailedRepositories {
			fmt.Printf("  - %s (%s): %s\n", f.Repository, f.Resource, f.Error)
		}
	}
	return nil
}

func collectTargets(ctx context.Context, orch *collector.Orchestrator, store storage.Storage) error {
	targets, err := config.LoadTargets(targetsFile)
	if err != nil {
		return fmt.Errorf("failed to load targets: %w", err)
	}

	fmt.Printf("Collecting %d projects from %s\n", len(targets.Projects), targetsFile)

	var failed int
	for _, target := range targets.Projects {
		opts, err := targets.CollectionOptions(target)
		if err != nil {
			return err
		}
		if err := collectOne(ctx, orch, store, target.Project, opts); err != nil {
			failed++
			fmt.Printf("Warning: %v\n", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d projects failed", failed, len(targets.Projects))
	}
	return nil
}

func runEstimate(cmd *cobra.Command, args []string) error {
	project := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	orch, _, err := buildPipeline(cfg, newLogger())
	if err != nil {
		return err
	}

	opts, err := collectionOptions()
	if err != nil {
		return err
	}

	feasibility, err := orch.Estimate(context.Background(), project, opts)
	if err != nil {
		return fmt.Errorf("failed to estimate %s: %w", project, err)
	}

	if outputJSON {
		return printJSON(feasibility)
	}

	fmt.Printf("\nCollection Estimate: %s\n\n", project)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Repositories", fmt.Sprintf("%d", feasibility.Repositories)})
	table.Append([]string{"Estimated API Calls", humanize.Comma(int64(feasibility.Estimate.EstimatedCalls))})
	table.Append([]string{"Estimated Duration", feasibility.Estimate.EstimatedDuration.Round(time.Second).String()})
	table.Append([]string{"Recommended Batch", fmt.Sprintf("%d repositories", feasibility.Estimate.RecommendedBatchSize)})
	table.Append([]string{"Core Remaining", humanize.Comma(int64(feasibility.Limits.Core.Remaining))})
	table.Append([]string{"GraphQL Remaining", humanize.Comma(int64(feasibility.Limits.GraphQL.Remaining))})
	table.Render()

	if feasibility.Estimate.Feasible {
		color.New(color.FgGreen).Fprintf(os.Stdout, "\nFeasible within the current rate budget\n")
	} else {
		color.New(color.FgRed).Fprintf(os.Stdout, "\nNot feasible: %d calls needed, %d remaining (core resets %s)\n",
			feasibility.Estimate.EstimatedCalls,
			feasibility.Limits.Core.Remaining,
			humanize.Time(feasibility.Limits.Core.ResetTime))
	}
	return nil
}

func runLimits(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	_, budget, err := buildPipeline(cfg, newLogger())
	if err != nil {
		return err
	}

	snapshot, err := budget.CheckCurrentLimits(context.Background())
	if err != nil {
		return fmt.Errorf("failed to check rate limits: %w", err)
	}

	if outputJSON {
		return printJSON(snapshot)
	}

	fmt.Printf("\nGitHub Rate Limits\n\n")

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Endpoint", "Limit", "Remaining", "Resets"})
	table.Append([]string{
		string(snapshot.Core.Endpoint),
		humanize.Comma(int64(snapshot.Core.Limit)),
		humanize.Comma(int64(snapshot.Core.Remaining)),
		humanize.Time(snapshot.Core.ResetTime),
	})
	table.Append([]string{
		string(snapshot.GraphQL.Endpoint),
		humanize.Comma(int64(snapshot.GraphQL.Limit)),
		humanize.Comma(int64(snapshot.GraphQL.Remaining)),
		humanize.Time(snapshot.GraphQL.ResetTime),
	})
	table.Render()

	return nil
}

func runListRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := getStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	summaries, err := store.ListRuns(context.Background(), runsProject, runsLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if outputJSON {
		return printJSON(summaries)
	}

	if len(summaries) == 0 {
		fmt.Println("No runs stored")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Run ID", "Project", "Started", "Repos", "Issues", "PRs", "Commits", "Errors"})
	for _, s := range summaries {
		table.Append([]string{
			s.RunID,
			s.ProjectID,
			humanize.Time(s.StartedAt),
			fmt.Sprintf("%d", s.Repositories),
			fmt.Sprintf("%d", s.Issues),
			fmt.Sprintf("%d", s.PullRequests),
			fmt.Sprintf("%d", s.Commits),
			fmt.Sprintf("%d", s.Errors),
		})
	}
	table.Render()

	return nil
}

// loadRun fetches a stored run by ID, falling back to the latest run of a
// project with that name
func loadRun(ctx context.Context, store storage.Storage, id string) (*domain.AggregateResult, error) {
	result, err := store.GetRun(ctx, id)
	if err == nil {
		return result, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, err
	}
	return store.LatestRun(ctx, id)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := getStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	result, err := loadRun(context.Background(), store, args[0])
	if err != nil {
		return fmt.Errorf("failed to load run: %w", err)
	}

	if outputJSON {
		return printJSON(result.Metrics)
	}

	meta := result.Metadata
	summary := result.Metrics.ProjectSummary

	fmt.Printf("\nRun %s: %s\n", meta.Execution.RunID, meta.Collection.ProjectID)
	fmt.Printf("Collected %s in %s\n\n", humanize.Time(meta.Execution.StartedAt), runDuration(result))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Repositories", fmt.Sprintf("%d", summary.TotalRepositories)})
	table.Append([]string{"Issues", humanize.Comma(int64(summary.TotalIssues))})
	table.Append([]string{"Pull Requests", humanize.Comma(int64(summary.TotalPullRequests))})
	table.Append([]string{"Commits", humanize.Comma(int64(summary.TotalCommits))})
	table.Append([]string{"Comments", humanize.Comma(int64(summary.TotalComments))})
	table.Append([]string{"Reviews", humanize.Comma(int64(summary.TotalReviews))})
	table.Append([]string{"Contributors", humanize.Comma(int64(summary.TotalContributors))})
	table.Append([]string{"Issue Close Rate", fmt.Sprintf("%.1f%%", summary.IssueCloseRate*100)})
	table.Append([]string{"PR Merge Rate", fmt.Sprintf("%.1f%%", summary.PRMergeRate*100)})
	table.Render()

	printRepositoryMetrics(result.Metrics.RepositoryMetrics)
	printTopContributors(result.Metrics.ContributorMetrics)

	return nil
}

func printRepositoryMetrics(metrics map[string]domain.RepositoryMetrics) {
	if len(metrics) == 0 {
		return
	}

	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("\nRepositories\n\n")

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Repository", "Issues", "PRs", "Commits", "Stars", "Close Rate", "Merge Rate"})
	for _, name := range names {
		m := metrics[name]
		table.Append([]string{
			name,
			fmt.Sprintf("%d", m.IssueCount),
			fmt.Sprintf("%d", m.PullRequestCount),
			fmt.Sprintf("%d", m.CommitCount),
			fmt.Sprintf("%d", m.Stars),
			fmt.Sprintf("%.1f%%", m.IssueCloseRate*100),
			fmt.Sprintf("%.1f%%", m.PRMergeRate*100),
		})
	}
	table.Render()
}

func printTopContributors(metrics map[string]domain.ContributorMetrics) {
	if len(metrics) == 0 {
		return
	}

	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := metrics[names[i]], metrics[names[j]]
		if a.TotalActivity != b.TotalActivity {
			return a.TotalActivity > b.TotalActivity
		}
		return names[i] < names[j]
	})
	if len(names) > 10 {
		names = names[:10]
	}

	fmt.Printf("\nTop Contributors\n\n")

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Contributor", "Issues", "PRs", "Commits", "Comments", "Reviews", "Total"})
	for _, name := range names {
		m := metrics[name]
		table.Append([]string{
			name,
			fmt.Sprintf("%d", m.IssuesOpened),
			fmt.Sprintf("%d", m.PRsOpened),
			fmt.Sprintf("%d", m.Commits),
			fmt.Sprintf("%d", m.Comments),
			fmt.Sprintf("%d", m.Reviews),
			fmt.Sprintf("%d", m.TotalActivity),
		})
	}
	table.Render()
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := getStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	result, err := loadRun(context.Background(), store, args[0])
	if err != nil {
		return fmt.Errorf("failed to load run: %w", err)
	}

	runID := result.Metadata.Execution.RunID
	path := outputPath
	if path == "" {
		path = runID + ".json"
	}

	if err := export.WriteFile(path, result); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	msg := fmt.Sprintf("Exported run %s to %s", runID, path)
	if info, err := os.Stat(path); err == nil {
		msg = fmt.Sprintf("%s (%s)", msg, humanize.Bytes(uint64(info.Size())))
	}
	fmt.Println(msg)

	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := args[0]

	issues, err := export.ValidateFile(path)
	if err != nil {
		return fmt.Errorf("failed to validate %s: %w", path, err)
	}

	if len(issues) == 0 {
		color.New(color.FgGreen).Fprintf(os.Stdout, "%s conforms to the result schema\n", path)
		return nil
	}

	color.New(color.FgRed).Fprintf(os.Stdout, "%s has %d schema violations:\n", path, len(issues))
	for _, issue := range issues {
		fmt.Printf("  - %s\n", issue)
	}
	os.Exit(1)
	return nil
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := getStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	logger := newLogger()
	orch, budget, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	server := mcp.NewServer(orch, store, budget, logger)
	return server.Run(context.Background())
}
