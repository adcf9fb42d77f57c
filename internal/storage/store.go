// Package storage persists collected issues and analysis results as JSON
// files under a data directory:
//
//	<dir>/issues/<org>_<repo>_issue_<n>.json
//	<dir>/results/<org>_<repo>_issue_<n>_troubleshoot.json
//
// Filenames are deterministic so a result can always be located from its
// issue reference.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ghtriage/ghtriage/internal/analysis"
	"github.com/ghtriage/ghtriage/internal/github"
)

// Store reads and writes the local data directory.
type Store struct {
	Dir string
}

// StoredIssue is the on-disk envelope for a collected issue.
type StoredIssue struct {
	Org         string        `json:"org"`
	Repo        string        `json:"repo"`
	Issue       *github.Issue `json:"issue"`
	Comments    []github.Comment `json:"comments,omitempty"`
	CollectedAt time.Time     `json:"collected_at"`
}

// StoredResult is the on-disk envelope for an analysis result.
type StoredResult struct {
	Org         string           `json:"org"`
	Repo        string           `json:"repo"`
	IssueNumber int              `json:"issue_number"`
	Model       string           `json:"model"`
	Analysis    *analysis.Result `json:"analysis"`
}

// Stats summarizes the contents of the store.
type Stats struct {
	TotalIssues  int
	TotalResults int
	TotalBytes   int64
	ByRepo       map[string]int // "org/repo" -> issue count
}

// New creates a store rooted at dir, creating the layout if needed.
func New(dir string) (*Store, error) {
	for _, sub := range []string{"issues", "results"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	return &Store{Dir: dir}, nil
}

func issueFilename(org, repo string, number int) string {
	return fmt.Sprintf("%s_%s_issue_%d.json", org, repo, number)
}

func resultFilename(org, repo string, number int) string {
	return fmt.Sprintf("%s_%s_issue_%d_troubleshoot.json", org, repo, number)
}

// SaveIssue writes an issue to the store, overwriting any previous copy.
// Returns the path written.
func (s *Store) SaveIssue(org, repo string, issue *github.Issue) (string, error) {
	stored := StoredIssue{
		Org:         org,
		Repo:        repo,
		Issue:       issue,
		Comments:    issue.Comments,
		CollectedAt: time.Now().UTC(),
	}
	path := filepath.Join(s.Dir, "issues", issueFilename(org, repo, issue.Number))
	if err := writeJSON(path, &stored); err != nil {
		return "", err
	}
	return path, nil
}

// LoadIssue reads a stored issue.
func (s *Store) LoadIssue(org, repo string, number int) (*StoredIssue, error) {
	path := filepath.Join(s.Dir, "issues", issueFilename(org, repo, number))
	var stored StoredIssue
	if err := readJSON(path, &stored); err != nil {
		return nil, err
	}
	if stored.Issue != nil && len(stored.Issue.Comments) == 0 {
		stored.Issue.Comments = stored.Comments
	}
	return &stored, nil
}

// ListIssues returns stored issues matching the filters. Empty org/repo
// match everything; number 0 matches any issue number.
func (s *Store) ListIssues(org, repo string, number int) ([]*StoredIssue, error) {
	pattern := buildPattern(org, repo, number)
	paths, err := filepath.Glob(filepath.Join(s.Dir, "issues", pattern))
	if err != nil {
		return nil, fmt.Errorf("bad glob pattern: %w", err)
	}
	sort.Strings(paths)

	var issues []*StoredIssue
	for _, path := range paths {
		var stored StoredIssue
		if err := readJSON(path, &stored); err != nil {
			// Skip unreadable files rather than failing the whole listing.
			continue
		}
		if stored.Issue != nil && len(stored.Issue.Comments) == 0 {
			stored.Issue.Comments = stored.Comments
		}
		issues = append(issues, &stored)
	}
	return issues, nil
}

func buildPattern(org, repo string, number int) string {
	o, r, n := org, repo, "*"
	if o == "" {
		o = "*"
	}
	if r == "" {
		r = "*"
	}
	if number > 0 {
		n = fmt.Sprintf("%d", number)
	}
	return fmt.Sprintf("%s_%s_issue_%s.json", o, r, n)
}

// SaveResult writes an analysis result, overwriting any previous one for
// the same issue.
func (s *Store) SaveResult(org, repo string, number int, model string, result *analysis.Result) (string, error) {
	stored := StoredResult{
		Org:         org,
		Repo:        repo,
		IssueNumber: number,
		Model:       model,
		Analysis:    result,
	}
	path := filepath.Join(s.Dir, "results", resultFilename(org, repo, number))
	if err := writeJSON(path, &stored); err != nil {
		return "", err
	}
	return path, nil
}

// LoadResult reads a stored analysis result.
func (s *Store) LoadResult(org, repo string, number int) (*StoredResult, error) {
	path := filepath.Join(s.Dir, "results", resultFilename(org, repo, number))
	var stored StoredResult
	if err := readJSON(path, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// ListResults returns stored results matching the filters, like ListIssues.
func (s *Store) ListResults(org, repo string, number int) ([]*StoredResult, error) {
	o, r, n := org, repo, "*"
	if o == "" {
		o = "*"
	}
	if r == "" {
		r = "*"
	}
	if number > 0 {
		n = fmt.Sprintf("%d", number)
	}
	pattern := fmt.Sprintf("%s_%s_issue_%s_troubleshoot.json", o, r, n)
	paths, err := filepath.Glob(filepath.Join(s.Dir, "results", pattern))
	if err != nil {
		return nil, fmt.Errorf("bad glob pattern: %w", err)
	}
	sort.Strings(paths)

	var results []*StoredResult
	for _, path := range paths {
		var stored StoredResult
		if err := readJSON(path, &stored); err != nil {
			continue
		}
		results = append(results, &stored)
	}
	return results, nil
}

// Stats walks the store and summarizes its contents.
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{ByRepo: make(map[string]int)}

	issueDir := filepath.Join(s.Dir, "issues")
	entries, err := os.ReadDir(issueDir)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return nil, fmt.Errorf("failed to read issues directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		stats.TotalIssues++
		if info, err := entry.Info(); err == nil {
			stats.TotalBytes += info.Size()
		}
		// <org>_<repo>_issue_<n>.json
		parts := strings.SplitN(entry.Name(), "_", 3)
		if len(parts) == 3 {
			stats.ByRepo[parts[0]+"/"+parts[1]]++
		}
	}

	resultEntries, err := os.ReadDir(filepath.Join(s.Dir, "results"))
	if err == nil {
		for _, entry := range resultEntries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			stats.TotalResults++
			if info, err := entry.Info(); err == nil {
				stats.TotalBytes += info.Size()
			}
		}
	}

	return stats, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to rename %s into place: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}
