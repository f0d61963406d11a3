package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/ghinsight/ghinsight/internal/domain"
)

//go:embed targets-schema.json
var targetsSchema []byte

// TargetsFile is a YAML document listing the projects a batch collection
// covers. A target without its own options block uses the file's defaults;
// a target with one replaces them wholesale.
type TargetsFile struct {
	Defaults *TargetOptions `yaml:"defaults"`
	Projects []Target       `yaml:"projects"`
}

// Target selects one project and optionally restricts it to named repositories
type Target struct {
	Project      string         `yaml:"project"`
	Repositories []string       `yaml:"repositories"`
	Options      *TargetOptions `yaml:"options"`
}

// TargetOptions is the YAML form of collection options. Dates accept
// 2006-01-02 or RFC3339.
type TargetOptions struct {
	Issues              bool   `yaml:"issues"`
	PullRequests        bool   `yaml:"pull_requests"`
	Commits             bool   `yaml:"commits"`
	Comments            bool   `yaml:"comments"`
	Reviews             bool   `yaml:"reviews"`
	MaxIssues           int    `yaml:"max_issues"`
	MaxPullRequests     int    `yaml:"max_pull_requests"`
	MaxCommits          int    `yaml:"max_commits"`
	MaxCommentsPerIssue int    `yaml:"max_comments_per_issue"`
	Since               string `yaml:"since"`
	Until               string `yaml:"until"`
	Concurrency         int    `yaml:"concurrency"`
}

// LoadTargets reads a targets file, checks it against the embedded schema
// and decodes it. Schema violations surface as ConfigError before any
// decoding happens, so typos in option names fail loudly.
func LoadTargets(path string) (*TargetsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read targets file: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigError{Field: path, Message: fmt.Sprintf("invalid YAML: %v", err)}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(targetsSchema), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to validate targets file: %w", err)
	}
	if !result.Valid() {
		verr := result.Errors()[0]
		return nil, &ConfigError{Field: verr.Field(), Message: verr.Description()}
	}

	var file TargetsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &ConfigError{Field: path, Message: fmt.Sprintf("invalid YAML: %v", err)}
	}

	return &file, nil
}

// CollectionOptions resolves the effective options for one target
func (f *TargetsFile) CollectionOptions(t Target) (domain.CollectionOptions, error) {
	source := f.Defaults
	if t.Options != nil {
		source = t.Options
	}
	if source == nil {
		opts := domain.DefaultOptions()
		opts.Repositories = t.Repositories
		return opts, nil
	}
	return source.toDomain(t.Repositories)
}

func (o *TargetOptions) toDomain(repositories []string) (domain.CollectionOptions, error) {
	opts := domain.CollectionOptions{
		IncludeIssues:       o.Issues,
		IncludePullRequests: o.PullRequests,
		IncludeCommits:      o.Commits,
		IncludeComments:     o.Comments,
		IncludeReviews:      o.Reviews,
		MaxIssues:           o.MaxIssues,
		MaxPullRequests:     o.MaxPullRequests,
		MaxCommits:          o.MaxCommits,
		MaxCommentsPerIssue: o.MaxCommentsPerIssue,
		Repositories:        repositories,
		Concurrency:         o.Concurrency,
	}

	if o.Since != "" {
		t, err := parseDate(o.Since)
		if err != nil {
			return opts, &ConfigError{Field: "since", Message: fmt.Sprintf("invalid date %q", o.Since)}
		}
		opts.Since = t
	}
	if o.Until != "" {
		t, err := parseDate(o.Until)
		if err != nil {
			return opts, &ConfigError{Field: "until", Message: fmt.Sprintf("invalid date %q", o.Until)}
		}
		opts.Until = t
	}
	if !opts.Since.IsZero() && !opts.Until.IsZero() && opts.Until.Before(opts.Since) {
		return opts, &ConfigError{Field: "until", Message: "must not be before since"}
	}

	return opts, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
