package mdvserve

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// PostType discriminates the five content variants.
type PostType string

const (
	TypeWords  PostType = "Words"
	TypeLines  PostType = "Lines"
	TypeMotion PostType = "Motion"
	TypeSound  PostType = "Sound"
	TypeAbout  PostType = "About"
)

// AboutPath is the fixed storage path of the singleton About post.
const AboutPath = "About/about.json"

// SectionAll is the pseudo-section that spans the four content folders.
const SectionAll = "All"

// ContentFolders are the listable top-level folders of the content repo.
// About is not listed; it lives at AboutPath only.
var ContentFolders = []string{"Words", "Lines", "Motion", "Sound"}

// ValidType reports whether t is one of the five known post types.
func ValidType(t PostType) bool {
	switch t {
	case TypeWords, TypeLines, TypeMotion, TypeSound, TypeAbout:
		return true
	}
	return false
}

// ValidSection reports whether s names a listable section ("All" or one
// of the four content folders).
func ValidSection(s string) bool {
	if s == SectionAll {
		return true
	}
	for _, f := range ContentFolders {
		if s == f {
			return true
		}
	}
	return false
}

const isoFormat = "2006-01-02T15:04:05.000Z07:00"

// Timestamp is a point in time that survives malformed storage values.
// Files are hand-editable JSON, so a string that fails to parse is kept
// verbatim instead of failing the whole read.
type Timestamp struct {
	Time  time.Time
	Raw   string
	Valid bool
}

// Now returns the current time as a valid Timestamp.
func Now() Timestamp {
	return Timestamp{Time: time.Now().UTC(), Valid: true}
}

// At wraps a concrete time in a Timestamp.
func At(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC(), Valid: true}
}

// ParseTimestamp accepts RFC 3339 timestamps and bare YYYY-MM-DD dates
// (treated as midnight UTC). Anything else comes back invalid with the
// raw input preserved.
func ParseTimestamp(s string) Timestamp {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return Timestamp{Time: t.UTC(), Raw: s, Valid: true}
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return Timestamp{Time: t.UTC(), Raw: s, Valid: true}
	}
	return Timestamp{Raw: s}
}

// ISO renders the timestamp as an ISO-8601 string. Invalid timestamps
// round-trip their raw value unchanged.
func (t Timestamp) ISO() string {
	if t.Valid {
		return t.Time.UTC().Format(isoFormat)
	}
	return t.Raw
}

// IsZero reports whether the timestamp carries neither a time nor a raw value.
func (t Timestamp) IsZero() bool {
	return !t.Valid && t.Raw == ""
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.ISO())
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Not a string (null, number, object): keep the raw JSON.
		raw := strings.TrimSpace(string(data))
		if raw == "null" {
			*t = Timestamp{}
			return nil
		}
		*t = Timestamp{Raw: raw}
		return nil
	}
	*t = ParseTimestamp(s)
	return nil
}

// ImageLinks holds zero or more image URLs. Storage accepts either a single
// string or an array; in memory it is always a slice, and it writes back as
// an array (or null when empty).
type ImageLinks []string

func (l ImageLinks) MarshalJSON() ([]byte, error) {
	if len(l) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal([]string(l))
}

func (l *ImageLinks) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*l = nil
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if s := strings.TrimSpace(single); s != "" {
			*l = ImageLinks{s}
		} else {
			*l = nil
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("image must be a string or an array of strings")
	}
	var out ImageLinks
	for _, s := range many {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	*l = out
	return nil
}

// NullString is a string that marshals the empty value as JSON null,
// matching how the site stores unset media URLs.
type NullString string

func (s NullString) MarshalJSON() ([]byte, error) {
	if s == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(s))
}

func (s *NullString) UnmarshalJSON(data []byte) error {
	if strings.TrimSpace(string(data)) == "null" {
		*s = ""
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = NullString(v)
	return nil
}

// Post is one content entry. The envelope fields are shared by every
// variant; the trailing fields only apply to some variants and are encoded
// per type by StorageRecord.
type Post struct {
	Type        PostType
	ID          string
	Slug        string
	Title       string
	Date        Timestamp
	Description string
	CreatedAt   Timestamp
	UpdatedAt   Timestamp
	IsActive    bool
	Metadata    map[string]any

	Text       string
	Image      ImageLinks // Lines, Sound
	ImageWidth string     // Lines, Sound
	VideoURL   NullString // Motion
	AudioURL   NullString // Sound
}

// DefaultImageWidth is the sizing hint applied when the editor leaves it blank.
const DefaultImageWidth = "600px"

// NewPost returns an empty post of the given type with editor defaults.
func NewPost(t PostType) Post {
	return Post{
		Type:       t,
		IsActive:   true,
		ImageWidth: DefaultImageWidth,
		Metadata:   map[string]any{},
	}
}

// NewPostID mints an opaque post identifier. Assigned once at first commit,
// never reassigned.
func NewPostID(t PostType) string {
	return strings.ToLower(string(t)) + "_" + uuid.NewString()
}

// Slugify converts a title to a filename-safe slug: lowercase, runs of
// whitespace become single hyphens, everything outside [a-z0-9-] is
// stripped, repeated hyphens collapse, edge hyphens are trimmed.
// Idempotent: Slugify(Slugify(s)) == Slugify(s).
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	hyphen := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			hyphen = false
		case unicode.IsSpace(r) || r == '-':
			if !hyphen && b.Len() > 0 {
				b.WriteByte('-')
				hyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// PathSlug is Slugify with the guarantee of a non-empty result.
func PathSlug(title string) string {
	if s := Slugify(title); s != "" {
		return s
	}
	return "post"
}

// DerivePath maps a post to its storage path. About always maps to
// AboutPath; everything else is {Type}/{YYYY-MM-DD}_{slug}.json.
func DerivePath(t PostType, date time.Time, slug string) string {
	if t == TypeAbout {
		return AboutPath
	}
	return fmt.Sprintf("%s/%s_%s.json", t, date.UTC().Format("2006-01-02"), slug)
}

// StoragePath is DerivePath applied to the post's own fields.
func (p Post) StoragePath() string {
	return DerivePath(p.Type, p.Date.Time, PathSlug(p.Title))
}

// Validate checks the post for commit-worthiness and returns human-readable
// messages. An empty slice means the post is valid. It never panics and is
// always called before any network I/O.
func (p Post) Validate() []string {
	var errs []string
	if !ValidType(p.Type) {
		errs = append(errs, fmt.Sprintf("Unknown post type %q", string(p.Type)))
	}
	if strings.TrimSpace(p.Title) == "" {
		errs = append(errs, "Title is required")
	}
	if !p.Date.Valid {
		errs = append(errs, "Valid date is required")
	}
	return errs
}

// StorageRecord serializes the post for the storage boundary: every date is
// an ISO-8601 string, and only the fields belonging to the post's variant
// are present.
func (p Post) StorageRecord() map[string]any {
	meta := p.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	rec := map[string]any{
		"type":        string(p.Type),
		"id":          p.ID,
		"slug":        p.Slug,
		"title":       p.Title,
		"date":        p.Date.ISO(),
		"description": p.Description,
		"createdAt":   p.CreatedAt.ISO(),
		"updatedAt":   p.UpdatedAt.ISO(),
		"isActive":    p.IsActive,
		"metadata":    meta,
		"text":        p.Text,
	}
	switch p.Type {
	case TypeLines:
		rec["image"] = p.Image
		rec["imageWidth"] = p.ImageWidth
	case TypeMotion:
		rec["videoUrl"] = p.VideoURL
	case TypeSound:
		rec["image"] = p.Image
		rec["imageWidth"] = p.ImageWidth
		rec["audioUrl"] = p.AudioURL
	}
	return rec
}

// MarshalJSON writes the storage shape, so API responses and committed
// files look identical.
func (p Post) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.StorageRecord())
}

// EncodeStorage renders the pretty-printed JSON document committed to the
// content repo.
func (p Post) EncodeStorage() ([]byte, error) {
	return json.MarshalIndent(p.StorageRecord(), "", "  ")
}

// postRecord is the tolerant decoding shape for stored files.
type postRecord struct {
	Type        string         `json:"type"`
	ID          string         `json:"id"`
	Slug        string         `json:"slug"`
	Title       string         `json:"title"`
	Date        Timestamp      `json:"date"`
	Description string         `json:"description"`
	CreatedAt   Timestamp      `json:"createdAt"`
	UpdatedAt   Timestamp      `json:"updatedAt"`
	IsActive    *bool          `json:"isActive"`
	Metadata    map[string]any `json:"metadata"`
	Text        string         `json:"text"`
	Image       ImageLinks     `json:"image"`
	ImageWidth  string         `json:"imageWidth"`
	VideoURL    NullString     `json:"videoUrl"`
	AudioURL    NullString     `json:"audioUrl"`
}

// DecodePost parses a stored file. Date fields that fail to parse are kept
// as raw strings; a missing isActive defaults to true. Only structurally
// broken JSON is an error.
func DecodePost(data []byte) (Post, error) {
	var rec postRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return Post{}, fmt.Errorf("decode post: %w", err)
	}
	active := true
	if rec.IsActive != nil {
		active = *rec.IsActive
	}
	return Post{
		Type:        PostType(rec.Type),
		ID:          rec.ID,
		Slug:        rec.Slug,
		Title:       rec.Title,
		Date:        rec.Date,
		Description: rec.Description,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
		IsActive:    active,
		Metadata:    rec.Metadata,
		Text:        rec.Text,
		Image:       rec.Image,
		ImageWidth:  rec.ImageWidth,
		VideoURL:    rec.VideoURL,
		AudioURL:    rec.AudioURL,
	}, nil
}

// UnmarshalJSON lets a Post decode from either an API request body or a
// stored file; both use the same shape.
func (p *Post) UnmarshalJSON(data []byte) error {
	decoded, err := DecodePost(data)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}
