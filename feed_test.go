package mdvserve

import (
	"encoding/xml"
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestBuildURL(t *testing.T) {
	tests := []struct {
		base string
		segs []string
		want string
	}{
		{"https://site.example.com", []string{"words", "my-post"}, "https://site.example.com/words/my-post"},
		{"https://site.example.com/", []string{"about"}, "https://site.example.com/about"},
		{"https://site.example.com/nested", []string{"a", "b"}, "https://site.example.com/nested/a/b"},
	}
	for _, tt := range tests {
		if got := BuildURL(tt.base, tt.segs...); got != tt.want {
			t.Errorf("BuildURL(%q, %v) = %q, want %q", tt.base, tt.segs, got, tt.want)
		}
	}
}

func TestRobots(t *testing.T) {
	_, srv := newTestApp(t, newFakeRepo(), testToken)

	resp, err := http.Get(srv.URL + "/robots.txt")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), "Disallow: /api/admin/") {
		t.Errorf("robots.txt missing admin disallow:\n%s", body)
	}
	if !strings.Contains(string(body), "https://site.example.com/sitemap.xml") {
		t.Errorf("robots.txt missing sitemap link:\n%s", body)
	}
}

func TestSitemap(t *testing.T) {
	repo := newFakeRepo()
	seedSectionFixture(t, repo)
	_, srv := newTestApp(t, repo, testToken)

	resp, err := http.Get(srv.URL + "/sitemap.xml")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Content-Type"); !strings.HasPrefix(got, "application/xml") {
		t.Errorf("content type = %q", got)
	}

	var sitemap struct {
		URLs []struct {
			Loc     string `xml:"loc"`
			LastMod string `xml:"lastmod"`
		} `xml:"url"`
	}
	if err := xml.NewDecoder(resp.Body).Decode(&sitemap); err != nil {
		t.Fatalf("decode sitemap: %v", err)
	}

	// Root plus the two active posts; the inactive one stays out.
	if len(sitemap.URLs) != 3 {
		t.Fatalf("got %d urls: %+v", len(sitemap.URLs), sitemap.URLs)
	}
	if sitemap.URLs[0].Loc != "https://site.example.com" {
		t.Errorf("first url = %q", sitemap.URLs[0].Loc)
	}
	if sitemap.URLs[1].Loc != "https://site.example.com/words/newest" {
		t.Errorf("post url = %q", sitemap.URLs[1].Loc)
	}
	if sitemap.URLs[1].LastMod != "2024-01-01" {
		t.Errorf("lastmod = %q", sitemap.URLs[1].LastMod)
	}
}

func TestFeed(t *testing.T) {
	repo := newFakeRepo()
	seedSectionFixture(t, repo)
	_, srv := newTestApp(t, repo, testToken)

	resp, err := http.Get(srv.URL + "/feed.xml")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Content-Type"); !strings.HasPrefix(got, "application/rss+xml") {
		t.Errorf("content type = %q", got)
	}

	var feed struct {
		Version string `xml:"version,attr"`
		Channel struct {
			Title string `xml:"title"`
			Link  string `xml:"link"`
			Items []struct {
				Title   string `xml:"title"`
				Link    string `xml:"link"`
				PubDate string `xml:"pubDate"`
				GUID    string `xml:"guid"`
			} `xml:"item"`
		} `xml:"channel"`
	}
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		t.Fatalf("decode feed: %v", err)
	}

	if feed.Version != "2.0" {
		t.Errorf("rss version = %q", feed.Version)
	}
	if feed.Channel.Title != "testsite" {
		t.Errorf("channel title = %q", feed.Channel.Title)
	}
	if len(feed.Channel.Items) != 2 {
		t.Fatalf("got %d items", len(feed.Channel.Items))
	}
	if feed.Channel.Items[0].Title != "Newest" {
		t.Errorf("items not newest-first: %q", feed.Channel.Items[0].Title)
	}
	if feed.Channel.Items[0].PubDate != "Mon, 01 Jan 2024 00:00:00 +0000" {
		t.Errorf("pubDate = %q", feed.Channel.Items[0].PubDate)
	}
	if feed.Channel.Items[0].GUID != feed.Channel.Items[0].Link {
		t.Error("guid must equal the link")
	}
}
