package mdvserve

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/ambigenius/mdvserve/contents"
)

// LoadSection lists a section's files, fetches them all concurrently,
// decodes each one, drops inactive posts, and sorts by date descending.
//
// Failure handling is deliberately asymmetric: a folder that fails to list
// during an "All" fan-out is simply omitted (handled inside the client),
// but a file that was just listed and then fails to fetch or decode aborts
// the whole load. That is a real error, not a normal state of the repo.
func LoadSection(ctx context.Context, client *contents.Client, section string) ([]Post, error) {
	entries, err := client.ListFolder(ctx, section)
	if err != nil {
		return nil, err
	}

	fetched := make([]Post, len(entries))
	g, ctx := errgroup.WithContext(ctx)
	for i, entry := range entries {
		i, entry := i, entry
		g.Go(func() error {
			file, err := client.GetFile(ctx, entry.Path)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", entry.Path, err)
			}
			post, err := DecodePost(file.Content)
			if err != nil {
				return fmt.Errorf("decode %s: %w", entry.Path, err)
			}
			fetched[i] = post
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var active []Post
	for _, p := range fetched {
		if p.IsActive {
			active = append(active, p)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Date.Time.After(active[j].Date.Time)
	})
	return active, nil
}

// LoadAbout fetches and decodes the singleton About post.
func LoadAbout(ctx context.Context, client *contents.Client) (Post, error) {
	file, err := client.GetFile(ctx, AboutPath)
	if err != nil {
		return Post{}, err
	}
	post, err := DecodePost(file.Content)
	if err != nil {
		return Post{}, fmt.Errorf("decode %s: %w", AboutPath, err)
	}
	return post, nil
}
