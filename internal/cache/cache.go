package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/serpro69/gh-backport/internal/logger"
)

// PullRequest is the cached view of a pull request
type PullRequest struct {
	Number     int       `json:"number"`
	Commits    int       `json:"commits"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Merged     bool      `json:"merged"`
	MergedAt   time.Time `json:"merged_at,omitzero"`
	URL        string    `json:"html_url"`
	Backported Flag      `json:"backported"`
}

// Commit is the cached view of a commit
type Commit struct {
	SHA        string `json:"sha"`
	Message    string `json:"message"`
	Backported Flag   `json:"backported"`
}

// Title returns the first line of the commit message
func (c Commit) Title() string {
	title, _, _ := strings.Cut(c.Message, "\n")
	return title
}

// document is the on-disk layout. PR numbers are string keys.
type document struct {
	PRs       map[string]PullRequest `json:"prs"`
	Commits   map[string]Commit      `json:"commits"`
	PRCommits map[string][]string    `json:"pr_commits"`
}

// Store is a JSON document cache of pull request and commit metadata.
// It is single-writer: concurrent processes sharing a file may lose updates.
type Store struct {
	path string
	doc  document
}

// Open loads the store at path. A missing file yields an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.doc); err != nil {
			return nil, fmt.Errorf("failed to parse cache file %s: %w", path, err)
		}
	}
	s.init()

	logger.Debug().
		Str("path", path).
		Int("prs", len(s.doc.PRs)).
		Int("commits", len(s.doc.Commits)).
		Msg("Opened metadata cache")
	return s, nil
}

// init fills in any mapping missing from the loaded document
func (s *Store) init() {
	if s.doc.PRs == nil {
		s.doc.PRs = make(map[string]PullRequest)
	}
	if s.doc.Commits == nil {
		s.doc.Commits = make(map[string]Commit)
	}
	if s.doc.PRCommits == nil {
		s.doc.PRCommits = make(map[string][]string)
	}
}

// Path returns the file backing the store
func (s *Store) Path() string {
	return s.path
}

// PullRequest returns the cached PR, if any
func (s *Store) PullRequest(number int) (PullRequest, bool) {
	pr, ok := s.doc.PRs[strconv.Itoa(number)]
	return pr, ok
}

// PutPullRequest stores pr. A confirmed backported flag already in the
// cache is never lost.
func (s *Store) PutPullRequest(pr PullRequest) {
	key := strconv.Itoa(pr.Number)
	if old, ok := s.doc.PRs[key]; ok {
		pr.Backported = pr.Backported.Merge(old.Backported)
	}
	s.doc.PRs[key] = pr
}

// PullRequestNumbers returns all cached PR numbers in ascending order
func (s *Store) PullRequestNumbers() []int {
	numbers := make([]int, 0, len(s.doc.PRs))
	for _, pr := range s.doc.PRs {
		numbers = append(numbers, pr.Number)
	}
	sort.Ints(numbers)
	return numbers
}

// Commit returns the cached commit, if any
func (s *Store) Commit(sha string) (Commit, bool) {
	c, ok := s.doc.Commits[sha]
	return c, ok
}

// PutCommit stores c. A confirmed backported flag already in the cache
// is never lost.
func (s *Store) PutCommit(c Commit) {
	if old, ok := s.doc.Commits[c.SHA]; ok {
		c.Backported = c.Backported.Merge(old.Backported)
	}
	s.doc.Commits[c.SHA] = c
}

// PRCommits returns the ordered commit SHAs of a PR, if cached
func (s *Store) PRCommits(number int) ([]string, bool) {
	shas, ok := s.doc.PRCommits[strconv.Itoa(number)]
	return slices.Clone(shas), ok
}

// PutPRCommits stores the ordered commit SHAs of a PR
func (s *Store) PutPRCommits(number int, shas []string) {
	s.doc.PRCommits[strconv.Itoa(number)] = slices.Clone(shas)
}

// Save writes the store atomically: temp file, fsync, rename.
func (s *Store) Save() error {
	data, err := json.Marshal(s.doc)
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close cache file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("failed to move cache file into place: %w", err)
	}

	logger.Trace().Str("path", s.path).Int("bytes", len(data)).Msg("Saved metadata cache")
	return nil
}

// FileName returns the cache file name for a repository, target branch and
// label set. Labels are sorted so the same set always maps to one file.
func FileName(owner, repo, target string, labels []string) string {
	name := fmt.Sprintf("%s_%s-%s", owner, repo, target)
	if len(labels) > 0 {
		sorted := slices.Clone(labels)
		sort.Strings(sorted)
		name += "-" + strings.Join(sorted, ",")
	}
	name = strings.ReplaceAll(name, string(filepath.Separator), "_")
	return name + ".json"
}

// DefaultPath joins dir with FileName
func DefaultPath(dir, owner, repo, target string, labels []string) string {
	return filepath.Join(dir, FileName(owner, repo, target, labels))
}
