package mdvserve

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ambigenius/mdvserve/contents"
)

// fakeRepo emulates the GitHub Contents API over an in-memory file map.
// It enforces the same sha rules as the real API: updates and deletes must
// present the current blob sha or are rejected with 409.
type fakeRepo struct {
	mu      sync.Mutex
	files   map[string]fakeFile
	nextSHA int

	// calls records "METHOD path" in arrival order.
	calls []string

	// failWith forces a status code for a given "METHOD path".
	failWith map[string]int
}

type fakeFile struct {
	content []byte
	sha     string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		files:    make(map[string]fakeFile),
		failWith: make(map[string]int),
	}
}

func (f *fakeRepo) put(path string, content []byte) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSHA++
	sha := fmt.Sprintf("sha-%d", f.nextSHA)
	f.files[path] = fakeFile{content: content, sha: sha}
	return sha
}

func (f *fakeRepo) putJSON(t *testing.T, path string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal fixture for %s: %v", path, err)
	}
	return f.put(path, data)
}

func (f *fakeRepo) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRepo) server() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(f.handle))
}

func (f *fakeRepo) handle(w http.ResponseWriter, r *http.Request) {
	const prefix = "/repos/owner/repo/contents/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, prefix)

	f.mu.Lock()
	f.calls = append(f.calls, r.Method+" "+path)
	forced := f.failWith[r.Method+" "+path]
	f.mu.Unlock()

	if forced != 0 {
		w.WriteHeader(forced)
		fmt.Fprintf(w, `{"message":"forced failure"}`)
		return
	}

	switch r.Method {
	case http.MethodGet:
		f.handleGet(w, path)
	case http.MethodPut:
		f.handlePut(w, r, path)
	case http.MethodDelete:
		f.handleDelete(w, r, path)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeRepo) handleGet(w http.ResponseWriter, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if file, ok := f.files[path]; ok {
		encoded := base64.StdEncoding.EncodeToString(file.content)
		json.NewEncoder(w).Encode(map[string]any{
			"type":         "file",
			"path":         path,
			"name":         path[strings.LastIndex(path, "/")+1:],
			"sha":          file.sha,
			"content":      encoded + "\n",
			"encoding":     "base64",
			"download_url": "https://raw.example.com/" + path,
		})
		return
	}

	// Folder listing: direct children of path.
	var listing []map[string]any
	for p := range f.files {
		if !strings.HasPrefix(p, path+"/") {
			continue
		}
		rest := strings.TrimPrefix(p, path+"/")
		if strings.Contains(rest, "/") {
			continue
		}
		listing = append(listing, map[string]any{
			"type":         "file",
			"path":         p,
			"name":         rest,
			"download_url": "https://raw.example.com/" + p,
		})
	}
	if len(listing) == 0 {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, `{"message":"Not Found"}`)
		return
	}
	sort.Slice(listing, func(i, j int) bool {
		return listing[i]["path"].(string) < listing[j]["path"].(string)
	})
	json.NewEncoder(w).Encode(listing)
}

func (f *fakeRepo) handlePut(w http.ResponseWriter, r *http.Request, path string) {
	var body struct {
		Message string  `json:"message"`
		Content string  `json:"content"`
		SHA     *string `json:"sha"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	decoded, err := base64.StdEncoding.DecodeString(body.Content)
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprintf(w, `{"message":"content is not valid base64"}`)
		return
	}

	f.mu.Lock()
	existing, exists := f.files[path]
	f.mu.Unlock()

	if exists && (body.SHA == nil || *body.SHA != existing.sha) {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, `{"message":"%s does not match %s"}`, path, existing.sha)
		return
	}
	if !exists && body.SHA != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprintf(w, `{"message":"%s does not exist"}`, path)
		return
	}

	sha := f.put(path, decoded)
	json.NewEncoder(w).Encode(map[string]any{
		"content": map[string]any{
			"path":         path,
			"sha":          sha,
			"html_url":     "https://github.example.com/" + path,
			"download_url": "https://raw.example.com/" + path,
		},
		"commit": map[string]any{"sha": "commit-" + sha},
	})
}

func (f *fakeRepo) handleDelete(w http.ResponseWriter, r *http.Request, path string) {
	var body struct {
		Message string `json:"message"`
		SHA     string `json:"sha"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	existing, exists := f.files[path]
	if !exists {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, `{"message":"Not Found"}`)
		return
	}
	if body.SHA != existing.sha {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, `{"message":"%s does not match %s"}`, path, existing.sha)
		return
	}
	delete(f.files, path)
	json.NewEncoder(w).Encode(map[string]any{
		"commit": map[string]any{"sha": "commit-delete"},
	})
}

// testClient builds a contents client pointed at the fake repo.
func testClient(t *testing.T, repo *fakeRepo) (*contents.Client, func()) {
	t.Helper()
	srv := repo.server()
	client := contents.NewClient("owner", "repo", "test-token", contents.WithBaseURL(srv.URL))
	return client, srv.Close
}

// fixturePost builds a valid Words post for tests.
func fixturePost(title, date string, active bool) Post {
	p := NewPost(TypeWords)
	p.ID = "words_" + Slugify(title)
	p.Title = title
	p.Slug = Slugify(title)
	p.Date = ParseTimestamp(date)
	p.CreatedAt = At(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	p.UpdatedAt = p.CreatedAt
	p.IsActive = active
	p.Text = "body of " + title
	return p
}
