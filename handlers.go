package mdvserve

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ambigenius/mdvserve/contents"
)

// apiRoutes is the catalog returned by the 404 handler.
var apiRoutes = []string{
	"GET /api/list?folder={Words|Lines|Motion|Sound|All}",
	"GET /api/file?path={path}[&meta=true]",
	"GET /api/about",
	"GET /api/posts?section={All|Words|Lines|Motion|Sound}",
	"POST /api/commit",
	"DELETE /api/commit",
	"POST /api/posts",
	"PUT /api/posts",
	"DELETE /api/posts",
	"POST /api/admin/login",
	"POST /api/admin/logout",
	"GET /feed.xml",
	"GET /sitemap.xml",
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = c.JSON(http.StatusNotFound, echo.Map{
			"error":  "route not found",
			"routes": apiRoutes,
		})
		return
	}
	if ok && he.Code < 500 {
		a.Echo.DefaultHTTPErrorHandler(err, c)
		return
	}
	c.Logger().Errorf("server error: %v", err)
	_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "unexpected server error"})
}

// respondUpstream maps a contents client error onto the proxy response:
// config errors are 500, shape/parse errors 400, 4xx pass through with
// GitHub's original status and body, everything else is a generic 502.
func respondUpstream(c echo.Context, err error) error {
	var upstream *contents.UpstreamError
	switch {
	case errors.Is(err, contents.ErrTokenMissing):
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": contents.ErrTokenMissing.Error()})
	case errors.Is(err, contents.ErrNotAFile),
		errors.Is(err, contents.ErrEmptyContent),
		errors.Is(err, contents.ErrParse):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.As(err, &upstream):
		if json.Valid(upstream.Body) {
			return c.JSONBlob(upstream.Status, upstream.Body)
		}
		return c.JSON(upstream.Status, echo.Map{"error": string(upstream.Body)})
	default:
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "upstream unavailable"})
	}
}

func (a *App) handleList(c echo.Context) error {
	folder := c.QueryParam("folder")
	if folder == "" || !ValidSection(folder) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":        fmt.Sprintf("invalid folder %q", folder),
			"validFolders": append([]string{SectionAll}, ContentFolders...),
		})
	}
	entries, err := a.Client.ListFolder(c.Request().Context(), folder)
	if err != nil {
		return respondUpstream(c, err)
	}
	if entries == nil {
		entries = []contents.Entry{}
	}
	return c.JSON(http.StatusOK, entries)
}

func (a *App) handleFile(c echo.Context) error {
	path := c.QueryParam("path")
	if path == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "path is required"})
	}
	file, err := a.Client.GetFile(c.Request().Context(), path)
	if err != nil {
		return respondUpstream(c, err)
	}
	if c.QueryParam("meta") == "true" {
		return c.JSON(http.StatusOK, echo.Map{
			"content": file.Content,
			"sha":     file.SHA,
			"path":    file.Path,
		})
	}
	return c.JSONBlob(http.StatusOK, file.Content)
}

func (a *App) handleAbout(c echo.Context) error {
	file, err := a.Client.GetFile(c.Request().Context(), AboutPath)
	if err != nil {
		return respondUpstream(c, err)
	}
	return c.JSONBlob(http.StatusOK, file.Content)
}

func (a *App) handlePosts(c echo.Context) error {
	section := c.QueryParam("section")
	if section == "" {
		section = SectionAll
	}
	if !ValidSection(section) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":         fmt.Sprintf("invalid section %q", section),
			"validSections": append([]string{SectionAll}, ContentFolders...),
		})
	}
	posts, err := a.Cache.Posts(c.Request().Context(), section)
	if err != nil {
		return respondUpstream(c, err)
	}
	if posts == nil {
		posts = []Post{}
	}
	return c.JSON(http.StatusOK, posts)
}

// commitRequest is the low-level write body. A rename is requested by
// sending an originalPath different from path together with originalSha.
type commitRequest struct {
	Path         string          `json:"path"`
	ContentJSON  json.RawMessage `json:"contentJson"`
	Message      string          `json:"message"`
	SHA          string          `json:"sha"`
	OriginalPath string          `json:"originalPath"`
	OriginalSHA  string          `json:"originalSha"`
}

func (a *App) handleCommit(c echo.Context) error {
	var req commitRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid JSON body"})
	}
	if req.Path == "" || len(req.ContentJSON) == 0 || req.Message == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "path, contentJson, and message are required"})
	}
	if !json.Valid(req.ContentJSON) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "contentJson is not valid JSON"})
	}
	content, err := json.MarshalIndent(json.RawMessage(req.ContentJSON), "", "  ")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "contentJson is not valid JSON"})
	}

	ctx := c.Request().Context()
	var result *contents.CommitResult
	if req.OriginalPath != "" && req.OriginalPath != req.Path {
		if req.OriginalSHA == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": ErrMissingSHAForRename.Error()})
		}
		result, err = a.Client.RenameFile(ctx, req.OriginalPath, req.OriginalSHA, req.Path, content, req.Message)
	} else {
		sha := req.SHA
		if sha == "" {
			sha = req.OriginalSHA
		}
		result, err = a.Client.CommitFile(ctx, req.Path, content, req.Message, sha)
	}
	if err != nil {
		return respondUpstream(c, err)
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusOK, result)
}

type deleteRequest struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	SHA     string `json:"sha"`
}

func (a *App) handleCommitDelete(c echo.Context) error {
	var req deleteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid JSON body"})
	}
	if req.Path == "" || req.Message == "" || req.SHA == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "path, message, and sha are required"})
	}
	if req.Path == AboutPath {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ErrAboutDelete.Error()})
	}
	result, err := a.Client.DeleteFile(c.Request().Context(), req.Path, req.SHA, req.Message)
	if err != nil {
		return respondUpstream(c, err)
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusOK, result)
}

// handlePostCreate drives the editor workflow for a brand-new post.
func (a *App) handlePostCreate(c echo.Context) error {
	var post Post
	if err := c.Bind(&post); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid post body"})
	}
	editor := NewEditor(a.Client)
	editor.StartNew(post.Type)
	editor.Edit(func(d *Post) { *d = post })
	return a.submitEditor(c, editor)
}

type postUpdateRequest struct {
	Path string `json:"path"`
	Post Post   `json:"post"`
}

// handlePostUpdate loads the existing post (capturing its SHA), applies the
// edits, and submits; path changes become renames automatically.
func (a *App) handlePostUpdate(c echo.Context) error {
	var req postUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid JSON body"})
	}
	if req.Path == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "path is required"})
	}
	editor := NewEditor(a.Client)
	if err := editor.Load(c.Request().Context(), req.Path); err != nil {
		return respondUpstream(c, err)
	}
	edits := req.Post
	editor.Edit(func(d *Post) { *d = edits })
	return a.submitEditor(c, editor)
}

func (a *App) handlePostDelete(c echo.Context) error {
	path := c.QueryParam("path")
	if path == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "path is required"})
	}
	if path == AboutPath {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ErrAboutDelete.Error()})
	}
	editor := NewEditor(a.Client)
	if err := editor.Load(c.Request().Context(), path); err != nil {
		return respondUpstream(c, err)
	}
	outcome, err := editor.Delete(c.Request().Context())
	if err != nil {
		return a.respondWorkflow(c, err)
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusOK, outcome)
}

func (a *App) submitEditor(c echo.Context, editor *Editor) error {
	outcome, err := editor.Submit(c.Request().Context())
	if err != nil {
		return a.respondWorkflow(c, err)
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusOK, echo.Map{
		"path":       outcome.Path,
		"sha":        outcome.SHA,
		"contentUrl": outcome.ContentURL,
		"post":       editor.Draft(),
	})
}

// respondWorkflow maps workflow errors: validation and local guard failures
// are 400s, everything else goes through the upstream mapping.
func (a *App) respondWorkflow(c echo.Context, err error) error {
	var validation *ValidationError
	switch {
	case errors.As(err, &validation):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":  "validation failed",
			"errors": validation.Messages,
		})
	case errors.Is(err, ErrAboutDelete),
		errors.Is(err, ErrMissingSHAForRename),
		errors.Is(err, ErrMissingSHAForDelete),
		errors.Is(err, ErrNothingLoaded):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	default:
		return respondUpstream(c, err)
	}
}
