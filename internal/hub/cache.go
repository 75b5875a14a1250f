package hub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"bodhi/pkg/logging"
)

const (
	// DefaultEndpoint is the public Hugging Face hub.
	DefaultEndpoint = "https://huggingface.co"

	// DefaultRevision is the branch resolved when no snapshot is requested.
	DefaultRevision = "main"

	// DefaultDownloadTimeout bounds a single file download.
	DefaultDownloadTimeout = 5 * time.Minute

	commitHeader = "X-Repo-Commit"
	maxErrorBody = 1024
)

var commitPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// isPathSegment reports whether s can be used as a single directory name
// inside the cache.
func isPathSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

// revision returns the requested snapshot, or the default branch.
func revision(snapshot *string) (string, error) {
	if snapshot == nil || *snapshot == "" {
		return DefaultRevision, nil
	}
	if !isPathSegment(*snapshot) {
		return "", fmt.Errorf("invalid snapshot %q", *snapshot)
	}
	return *snapshot, nil
}

// Cache resolves repository files against a Hugging Face style cache
// directory and fills it from the hub on demand.
//
// Layout: <root>/models--<owner>--<name>/{refs/<rev>, snapshots/<commit>/<file>}.
type Cache struct {
	root       string
	endpoint   string
	token      string
	httpClient *http.Client

	// deduplicates concurrent downloads of the same file
	downloads singleflight.Group
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithEndpoint sets the hub base URL.
func WithEndpoint(endpoint string) CacheOption {
	return func(c *Cache) {
		c.endpoint = strings.TrimSuffix(endpoint, "/")
	}
}

// WithToken sets the bearer token sent with downloads.
func WithToken(token string) CacheOption {
	return func(c *Cache) {
		c.token = token
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) CacheOption {
	return func(c *Cache) {
		c.httpClient = httpClient
	}
}

// NewCache returns a cache rooted at dir.
func NewCache(dir string, opts ...CacheOption) *Cache {
	c := &Cache{
		root:       dir,
		endpoint:   DefaultEndpoint,
		httpClient: &http.Client{Timeout: DefaultDownloadTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Root returns the cache directory.
func (c *Cache) Root() string {
	return c.root
}

// FindLocalFile looks the file up in the cache without touching the network.
// A nil snapshot resolves the commit recorded for the default branch.
func (c *Cache) FindLocalFile(repo Repo, filename string, snapshot *string) (*File, error) {
	rev, err := revision(snapshot)
	if err != nil {
		return nil, err
	}
	if !filepath.IsLocal(filename) {
		return nil, fmt.Errorf("invalid filename %q", filename)
	}

	commit, err := c.resolveRef(repo, rev)
	if err != nil {
		return nil, err
	}
	if commit == "" {
		return nil, &NotFoundError{Repo: repo, Filename: filename, Snapshot: rev}
	}

	f := &File{Root: c.root, Repo: repo, Filename: filename, Snapshot: commit}
	info, err := os.Stat(f.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &NotFoundError{Repo: repo, Filename: filename, Snapshot: rev}
		}
		return nil, fmt.Errorf("failed to stat %s: %w", f.Path(), err)
	}
	if info.IsDir() {
		return nil, &NotFoundError{Repo: repo, Filename: filename, Snapshot: rev}
	}
	return f, nil
}

// resolveRef maps a branch name to the commit recorded under refs/. Commit
// hashes resolve to themselves. An unknown or unusable ref yields "".
func (c *Cache) resolveRef(repo Repo, rev string) (string, error) {
	if commitPattern.MatchString(rev) {
		return rev, nil
	}
	path := filepath.Join(repo.cacheDir(c.root), "refs", rev)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read ref %s for %s: %w", rev, repo, err)
	}
	commit := strings.TrimSpace(string(data))
	if !isPathSegment(commit) {
		logging.Warn("Hub", "Ignoring ref %s with invalid commit %q", path, commit)
		return "", nil
	}
	return commit, nil
}

// Download returns the cached file if present and otherwise fetches it from
// the hub. Concurrent calls for the same file share one request, which is
// not cancelled when one of the callers gives up.
func (c *Cache) Download(ctx context.Context, repo Repo, filename string, snapshot *string) (*File, error) {
	f, err := c.FindLocalFile(repo, filename, snapshot)
	if err == nil {
		logging.Debug("Hub", "Using cached %s", f)
		return f, nil
	}
	if !IsNotFound(err) {
		return nil, &DownloadError{Repo: repo, Filename: filename, Err: err}
	}

	rev, _ := revision(snapshot)
	key := repo.String() + "@" + rev + "/" + filename
	ch := c.downloads.DoChan(key, func() (interface{}, error) {
		return c.fetch(context.WithoutCancel(ctx), repo, filename, rev)
	})

	select {
	case <-ctx.Done():
		return nil, &DownloadError{Repo: repo, Filename: filename, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, &DownloadError{Repo: repo, Filename: filename, Err: res.Err}
		}
		return res.Val.(*File), nil
	}
}

func (c *Cache) fetch(ctx context.Context, repo Repo, filename, rev string) (*File, error) {
	fileURL := fmt.Sprintf("%s/%s/resolve/%s/%s", c.endpoint, repo, url.PathEscape(rev), filename)
	logging.Info("Hub", "Downloading %s", fileURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("hub returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	commit := resp.Header.Get(commitHeader)
	switch {
	case commit == "":
		commit = rev
	case !commitPattern.MatchString(commit):
		return nil, fmt.Errorf("hub returned invalid %s %q", commitHeader, commit)
	}

	f := &File{Root: c.root, Repo: repo, Filename: filename, Snapshot: commit}
	if err := writeAtomic(f.Path(), resp.Body); err != nil {
		return nil, err
	}
	if !commitPattern.MatchString(rev) {
		if err := c.writeRef(repo, rev, commit); err != nil {
			return nil, err
		}
	}

	logging.Info("Hub", "Downloaded %s", f)
	return f, nil
}

func (c *Cache) writeRef(repo Repo, rev, commit string) error {
	path := filepath.Join(repo.cacheDir(c.root), "refs", rev)
	return writeAtomic(path, strings.NewReader(commit))
}

// writeAtomic streams r into a temp file next to path and renames it into
// place so readers never observe a partial file.
func writeAtomic(path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}
