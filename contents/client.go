// Package contents wraps the GitHub Contents API used as the site's
// flat-file datastore. It is the only component that holds the access
// token; everything above it works with paths, payloads, and blob SHAs.
//
// The client performs no caching and no retries. Every write carries the
// last observed SHA and relies on GitHub rejecting stale writes; conflict
// resolution belongs to the caller.
package contents

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBaseURL = "https://api.github.com"
	apiVersion     = "2022-11-28"
	acceptHeader   = "application/vnd.github+json"
)

// FolderAll fans a listing out across every content folder.
const FolderAll = "All"

// ContentFolders are the four listable top-level folders.
var ContentFolders = []string{"Words", "Lines", "Motion", "Sound"}

// Committer identity recorded on every commit made through this client.
var committer = map[string]string{
	"name":  "Site Bot",
	"email": "bot@example.com",
}

var (
	// ErrTokenMissing means a write was attempted without a configured token.
	// This is a server configuration error and is raised before any request.
	ErrTokenMissing = errors.New("GITHUB_TOKEN missing on server")

	// ErrUpstreamUnavailable covers network failures and 5xx responses.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrNotAFile means the path resolved to a directory.
	ErrNotAFile = errors.New("path is not a file")

	// ErrEmptyContent means the entry exists but has no payload.
	ErrEmptyContent = errors.New("file has no content")

	// ErrParse means the decoded payload is not valid JSON.
	ErrParse = errors.New("file content is not valid JSON")
)

// UpstreamError carries a 4xx response through unchanged so callers see
// exactly what GitHub said (including stale-SHA 409/422 conflicts).
type UpstreamError struct {
	Status int
	Body   []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.Status, strings.TrimSpace(string(e.Body)))
}

// Entry is one file inside a listed folder.
type Entry struct {
	Path        string `json:"path"`
	Name        string `json:"name"`
	DownloadURL string `json:"download_url"`
}

// File is one fetched and decoded file. SHA is the opaque concurrency
// token and must be round-tripped unmodified.
type File struct {
	Path    string
	SHA     string
	Content json.RawMessage
}

// CommitResult is the subset of GitHub's commit response the site uses.
type CommitResult struct {
	Content *struct {
		Path        string `json:"path"`
		SHA         string `json:"sha"`
		HTMLURL     string `json:"html_url"`
		DownloadURL string `json:"download_url"`
	} `json:"content"`
	Commit *struct {
		SHA     string `json:"sha"`
		HTMLURL string `json:"html_url"`
	} `json:"commit"`
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API host (used in tests).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.http.SetBaseURL(strings.TrimSuffix(u, "/"))
	}
}

// Client talks to one repository's Contents API.
type Client struct {
	http  *resty.Client
	owner string
	repo  string
	token string
}

// NewClient builds a client for owner/repo. An empty token still allows
// reads of a public repository; writes fail with ErrTokenMissing.
func NewClient(owner, repo, token string, opts ...Option) *Client {
	rc := resty.New().
		SetBaseURL(defaultBaseURL).
		SetTimeout(15 * time.Second).
		SetHeader("Accept", acceptHeader).
		SetHeader("X-GitHub-Api-Version", apiVersion)
	if token != "" {
		rc.SetAuthToken(token)
	}
	c := &Client{http: rc, owner: owner, repo: repo, token: token}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HasToken reports whether the client can perform writes.
func (c *Client) HasToken() bool {
	return c.token != ""
}

func (c *Client) contentsURL(path string) string {
	return fmt.Sprintf("/repos/%s/%s/contents/%s", c.owner, c.repo, url.PathEscape(path))
}

// wrapErr normalizes a resty response into the error taxonomy: transport
// failures and 5xx become ErrUpstreamUnavailable, 4xx pass through verbatim.
func wrapErr(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode() >= 500 {
		return fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode())
	}
	return &UpstreamError{Status: resp.StatusCode(), Body: resp.Body()}
}

// ListFolder lists the .json files directly inside one top-level folder.
// FolderAll fans out over every content folder concurrently; a folder that
// fails to list is omitted rather than failing the aggregate, since not
// every section needs to exist in the repo.
func (c *Client) ListFolder(ctx context.Context, folder string) ([]Entry, error) {
	if folder == FolderAll {
		results := make([][]Entry, len(ContentFolders))
		g, ctx := errgroup.WithContext(ctx)
		for i, f := range ContentFolders {
			i, f := i, f
			g.Go(func() error {
				entries, err := c.listOne(ctx, f)
				if err != nil {
					return nil // tolerated: folder omitted from the aggregate
				}
				results[i] = entries
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		var all []Entry
		for _, entries := range results {
			all = append(all, entries...)
		}
		return all, nil
	}
	return c.listOne(ctx, folder)
}

func (c *Client) listOne(ctx context.Context, folder string) ([]Entry, error) {
	var listing []struct {
		Path        string `json:"path"`
		Name        string `json:"name"`
		Type        string `json:"type"`
		DownloadURL string `json:"download_url"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&listing).
		Get(c.contentsURL(folder))
	if err != nil || !resp.IsSuccess() {
		return nil, wrapErr(resp, err)
	}
	var entries []Entry
	for _, item := range listing {
		if item.Type != "file" || !strings.HasSuffix(item.Name, ".json") {
			continue
		}
		entries = append(entries, Entry{Path: item.Path, Name: item.Name, DownloadURL: item.DownloadURL})
	}
	return entries, nil
}

// fileResponse is GitHub's envelope for a single file: the payload arrives
// base64-encoded with embedded newlines.
type fileResponse struct {
	Type     string `json:"type"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// GetFile fetches one file and decodes its payload. The returned SHA is
// what a subsequent commit against this path must present.
func (c *Client) GetFile(ctx context.Context, path string) (File, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(c.contentsURL(path))
	if err != nil || !resp.IsSuccess() {
		return File{}, wrapErr(resp, err)
	}

	body := resp.Body()
	// A directory listing comes back as a JSON array.
	if len(body) > 0 && body[0] == '[' {
		return File{}, fmt.Errorf("%w: %s", ErrNotAFile, path)
	}

	var fr fileResponse
	if err := json.Unmarshal(body, &fr); err != nil {
		return File{}, fmt.Errorf("%w: %s", ErrParse, path)
	}
	if fr.Type != "" && fr.Type != "file" {
		return File{}, fmt.Errorf("%w: %s", ErrNotAFile, path)
	}
	if strings.TrimSpace(fr.Content) == "" {
		return File{}, fmt.Errorf("%w: %s", ErrEmptyContent, path)
	}

	raw := strings.NewReplacer("\n", "", "\r", "").Replace(fr.Content)
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return File{}, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
	}
	if !json.Valid(decoded) {
		return File{}, fmt.Errorf("%w: %s", ErrParse, path)
	}
	filePath := fr.Path
	if filePath == "" {
		filePath = path
	}
	return File{Path: filePath, SHA: fr.SHA, Content: decoded}, nil
}

// CommitFile creates (empty sha) or updates (sha given) one file. A stale
// sha is rejected by GitHub and surfaces as an UpstreamError; this client
// never resolves the conflict itself.
func (c *Client) CommitFile(ctx context.Context, path string, content []byte, message, sha string) (*CommitResult, error) {
	if !c.HasToken() {
		return nil, ErrTokenMissing
	}
	body := map[string]any{
		"message":   message,
		"content":   base64.StdEncoding.EncodeToString(content),
		"committer": committer,
	}
	if sha != "" {
		body["sha"] = sha
	}
	var result CommitResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Put(c.contentsURL(path))
	if err != nil || !resp.IsSuccess() {
		return nil, wrapErr(resp, err)
	}
	return &result, nil
}

// DeleteFile removes one file. The current sha is required.
func (c *Client) DeleteFile(ctx context.Context, path, sha, message string) (*CommitResult, error) {
	if !c.HasToken() {
		return nil, ErrTokenMissing
	}
	body := map[string]any{
		"message":   message,
		"sha":       sha,
		"committer": committer,
	}
	var result CommitResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Delete(c.contentsURL(path))
	if err != nil || !resp.IsSuccess() {
		return nil, wrapErr(resp, err)
	}
	return &result, nil
}

// RenameFile moves a file by committing the content at newPath and then
// deleting oldPath. The two writes are not atomic. Create-first ordering
// means a failed create leaves the old file untouched, and a failed delete
// leaves both copies with the new one authoritative; already-applied edits
// are never lost.
func (c *Client) RenameFile(ctx context.Context, oldPath, oldSHA, newPath string, content []byte, message string) (*CommitResult, error) {
	result, err := c.CommitFile(ctx, newPath, content, message, "")
	if err != nil {
		return nil, err
	}
	if _, err := c.DeleteFile(ctx, oldPath, oldSHA, message); err != nil {
		return result, fmt.Errorf("created %s but failed to remove %s: %w", newPath, oldPath, err)
	}
	return result, nil
}
