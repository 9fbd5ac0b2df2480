package mdvserve

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ambigenius/mdvserve/contents"
)

// EditorState tracks one in-progress edit.
type EditorState int

const (
	StateEmpty EditorState = iota
	StateLoaded
	StateEditing
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s EditorState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoaded:
		return "loaded"
	case StateEditing:
		return "editing"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

var (
	// ErrMissingSHAForRename is raised locally, before any network call,
	// when an edit changes a post's path but the original blob SHA is
	// unknown.
	ErrMissingSHAForRename = errors.New("cannot rename post: original sha unknown, reload and try again")

	// ErrAboutDelete guards the singleton. Checked before sha presence and
	// before any network call.
	ErrAboutDelete = errors.New("the About post cannot be deleted")

	// ErrNothingLoaded means submit/delete was called with no post selected.
	ErrNothingLoaded = errors.New("no post loaded")

	// ErrMissingSHAForDelete means a delete was attempted without the
	// current blob SHA.
	ErrMissingSHAForDelete = errors.New("cannot delete post: sha unknown, reload and try again")
)

// ValidationError collects the human-readable messages from Post.Validate.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

// LoadedPost is the last state observed from the store: the decoded post,
// its path, and the blob SHA every subsequent write must present.
type LoadedPost struct {
	Post Post
	Path string
	SHA  string
}

// CommitOutcome reports where a successful commit landed.
type CommitOutcome struct {
	Path       string `json:"path"`
	SHA        string `json:"sha"`
	ContentURL string `json:"contentUrl,omitempty"`
}

// Editor drives one post through the commit workflow:
//
//	Empty -> Loaded -> Editing -> Submitting -> {Succeeded, Failed}
//
// with Failed returning to Editing. Edits are pure local state; validation
// runs before any network call; on failure the loaded state is untouched so
// the original SHA survives for a retry.
type Editor struct {
	client  *contents.Client
	state   EditorState
	loaded  *LoadedPost
	draft   Post
	lastErr error
}

// NewEditor returns an editor in the Empty state.
func NewEditor(client *contents.Client) *Editor {
	return &Editor{client: client, state: StateEmpty}
}

// State returns the current workflow state.
func (e *Editor) State() EditorState { return e.state }

// Err returns the error from the last failed submit, if any.
func (e *Editor) Err() error { return e.lastErr }

// Draft returns the current working copy.
func (e *Editor) Draft() Post { return e.draft }

// Loaded returns the last observed store state, or nil before first load.
func (e *Editor) Loaded() *LoadedPost { return e.loaded }

// Load fetches an existing post and its SHA (Empty -> Loaded).
func (e *Editor) Load(ctx context.Context, path string) error {
	file, err := e.client.GetFile(ctx, path)
	if err != nil {
		return err
	}
	post, err := DecodePost(file.Content)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	e.loaded = &LoadedPost{Post: post, Path: file.Path, SHA: file.SHA}
	e.draft = post
	e.state = StateLoaded
	e.lastErr = nil
	return nil
}

// StartNew begins a fresh post of the given type, skipping straight to
// Editing with defaults. The id and createdAt are assigned at first submit.
func (e *Editor) StartNew(t PostType) {
	e.loaded = nil
	e.draft = NewPost(t)
	e.state = StateEditing
	e.lastErr = nil
}

// Edit applies a local mutation to the draft. No network I/O happens here.
func (e *Editor) Edit(mutate func(*Post)) {
	mutate(&e.draft)
	e.state = StateEditing
}

// fail records the error and parks the editor in Failed; the next Edit
// returns it to Editing. The loaded state is never touched on failure.
func (e *Editor) fail(err error) error {
	e.lastErr = err
	e.state = StateFailed
	return err
}

// Submit validates the draft, derives its storage path, and performs the
// appropriate commit: create when nothing is loaded, update in place when
// the path is unchanged, rename otherwise.
func (e *Editor) Submit(ctx context.Context) (*CommitOutcome, error) {
	if errs := e.draft.Validate(); len(errs) > 0 {
		e.state = StateEditing
		return nil, &ValidationError{Messages: errs}
	}
	e.state = StateSubmitting

	now := Now()
	creating := e.loaded == nil
	if creating {
		if e.draft.ID == "" {
			e.draft.ID = NewPostID(e.draft.Type)
		}
		e.draft.CreatedAt = now
	} else {
		// Identity and creation time survive every edit.
		e.draft.Type = e.loaded.Post.Type
		e.draft.ID = e.loaded.Post.ID
		if e.loaded.Post.CreatedAt.IsZero() {
			e.draft.CreatedAt = now
		} else {
			e.draft.CreatedAt = e.loaded.Post.CreatedAt
		}
	}
	e.draft.UpdatedAt = now
	e.draft.Slug = PathSlug(e.draft.Title)

	newPath := e.draft.StoragePath()
	content, err := e.draft.EncodeStorage()
	if err != nil {
		return nil, e.fail(err)
	}

	var result *contents.CommitResult
	switch {
	case creating:
		message := fmt.Sprintf("Create %s %s via admin UI", e.draft.Type, e.draft.Title)
		result, err = e.client.CommitFile(ctx, newPath, content, message, "")
	case newPath == e.loaded.Path:
		message := fmt.Sprintf("Update %s post: %s", e.draft.Type, e.draft.Title)
		result, err = e.client.CommitFile(ctx, newPath, content, message, e.loaded.SHA)
	default:
		if e.loaded.SHA == "" {
			return nil, e.fail(ErrMissingSHAForRename)
		}
		message := fmt.Sprintf("Update %s post: %s", e.draft.Type, e.draft.Title)
		result, err = e.client.RenameFile(ctx, e.loaded.Path, e.loaded.SHA, newPath, content, message)
	}
	if err != nil {
		return nil, e.fail(err)
	}

	outcome := outcomeFrom(result, newPath)
	e.loaded = &LoadedPost{Post: e.draft, Path: outcome.Path, SHA: outcome.SHA}
	e.state = StateSucceeded
	e.lastErr = nil
	return outcome, nil
}

// Delete removes the loaded post. The About singleton is refused
// unconditionally, before the SHA check and before any network call.
func (e *Editor) Delete(ctx context.Context) (*CommitOutcome, error) {
	if e.loaded == nil {
		return nil, ErrNothingLoaded
	}
	if e.loaded.Post.Type == TypeAbout || e.loaded.Path == AboutPath {
		return nil, e.fail(ErrAboutDelete)
	}
	if e.loaded.SHA == "" {
		return nil, e.fail(ErrMissingSHAForDelete)
	}
	e.state = StateSubmitting

	title := e.loaded.Post.Title
	if title == "" {
		title = e.loaded.Path
	}
	message := fmt.Sprintf("Delete post: %s", title)
	result, err := e.client.DeleteFile(ctx, e.loaded.Path, e.loaded.SHA, message)
	if err != nil {
		return nil, e.fail(err)
	}

	outcome := outcomeFrom(result, e.loaded.Path)
	e.loaded = nil
	e.draft = Post{}
	e.state = StateSucceeded
	e.lastErr = nil
	return outcome, nil
}

func outcomeFrom(result *contents.CommitResult, fallbackPath string) *CommitOutcome {
	outcome := &CommitOutcome{Path: fallbackPath}
	if result != nil && result.Content != nil {
		if result.Content.Path != "" {
			outcome.Path = result.Content.Path
		}
		outcome.SHA = result.Content.SHA
		outcome.ContentURL = result.Content.HTMLURL
		if outcome.ContentURL == "" {
			outcome.ContentURL = result.Content.DownloadURL
		}
	}
	return outcome
}
