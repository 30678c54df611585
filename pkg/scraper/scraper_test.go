package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var site = map[string]string{
	"/": `<html>
		<head><title>2022 Winter Olympics</title><script>var tracking = "ignore me";</script></head>
		<body>
			<nav>Main menu</nav>
			<main>
				<h1>Curling</h1>
				<p>Curling at the 2022 Winter Olympics was held at the Beijing National Aquatics Centre.</p>
				<a href="/mixed_doubles.html">Mixed doubles</a>
				<a href="/womens.html#results">Women</a>
				<a href="/results.pdf">PDF</a>
				<a href="/private/admin.html">Admin</a>
				<a href="https://other.example.com/page.html">Elsewhere</a>
				<a href="mailto:press@example.com">Press</a>
				<a href="/missing.html">Missing</a>
			</main>
			<footer>Privacy Policy</footer>
		</body>
	</html>`,
	"/mixed_doubles.html": `<html><head><title>Mixed doubles</title></head>
		<body><article>Italy won the mixed doubles tournament.</article><a href="/deeper.html">deeper</a></body></html>`,
	"/womens.html": `<html><head><title>Women's tournament</title></head>
		<body><div id="content">Great Britain won the women's tournament.</div><a href="/">home</a></body></html>`,
	"/deeper.html": `<html><head><title>Deeper</title></head><body>Too deep.</body></html>`,
}

type fakeSite struct {
	*httptest.Server
	mu       sync.Mutex
	requests []string
}

func newFakeSite(t *testing.T) *fakeSite {
	t.Helper()
	fs := &fakeSite{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		fs.requests = append(fs.requests, r.URL.Path)
		fs.mu.Unlock()

		body, ok := site[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(body))
	}))
	t.Cleanup(fs.Close)
	return fs
}

func TestScrapeFollowsSameHostLinks(t *testing.T) {
	server := newFakeSite(t)

	var progress []string
	s := New(Config{
		MaxDepth:       1,
		RateLimit:      1000,
		IgnorePatterns: []string{"/private/"},
		OnProgress:     func(url string) { progress = append(progress, url) },
	})

	docs, err := s.Scrape(context.Background(), server.URL+"/")
	require.NoError(t, err)
	require.Len(t, docs, 3)

	root := docs[0]
	assert.Equal(t, server.URL+"/", root.URL)
	assert.Equal(t, "2022 Winter Olympics", root.Title)
	assert.Contains(t, root.Content, "Beijing National Aquatics Centre")
	assert.NotContains(t, root.Content, "ignore me")
	assert.NotContains(t, root.Content, "Main menu")
	assert.Equal(t, 0, root.Metadata["depth"])
	assert.NotEmpty(t, root.ID)

	titles := []string{docs[1].Title, docs[2].Title}
	sort.Strings(titles)
	assert.Equal(t, []string{"Mixed doubles", "Women's tournament"}, titles)

	for _, d := range docs[1:] {
		assert.Equal(t, 1, d.Metadata["depth"])
	}

	server.mu.Lock()
	defer server.mu.Unlock()
	assert.ElementsMatch(t, []string{"/", "/mixed_doubles.html", "/womens.html", "/missing.html"}, server.requests)
	assert.Len(t, progress, 4)
}

func TestScrapeDepthZero(t *testing.T) {
	server := newFakeSite(t)
	s := New(Config{RateLimit: 1000})

	docs, err := s.Scrape(context.Background(), server.URL+"/")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "2022 Winter Olympics", docs[0].Title)
}

func TestScrapeIDsAreStable(t *testing.T) {
	server := newFakeSite(t)
	s := New(Config{RateLimit: 1000})

	first, err := s.Scrape(context.Background(), server.URL+"/")
	require.NoError(t, err)
	second, err := s.Scrape(context.Background(), server.URL+"/")
	require.NoError(t, err)

	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestScrapeStartPageErrors(t *testing.T) {
	server := newFakeSite(t)
	s := New(Config{RateLimit: 1000})

	_, err := s.Scrape(context.Background(), server.URL+"/missing.html")
	assert.ErrorContains(t, err, "status code 404")

	_, err = s.Scrape(context.Background(), "ftp://example.com/")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Scrape(ctx, server.URL+"/")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestShouldProcessURL(t *testing.T) {
	s := New(Config{
		IgnorePatterns:    []string{"/ignore/", "private"},
		AllowedExtensions: []string{".html", "/", ""},
	})

	tests := []struct {
		url      string
		expected bool
	}{
		{"https://example.com/docs/", true},
		{"https://example.com/page.html", true},
		{"https://example.com/wiki/Curling_at_the_2022_Winter_Olympics", true},
		{"https://example.com/ignore/page.html", false},
		{"https://example.com/private.html", false},
		{"https://other-domain.com/page.html", false},
		{"https://example.com/file.pdf", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, s.shouldProcessURL("example.com", tt.url))
		})
	}
}

func TestAllowedExtensionWithoutExtensionless(t *testing.T) {
	s := New(Config{AllowedExtensions: []string{".html"}})

	assert.True(t, s.allowedExtension("/a/page.HTML"))
	assert.False(t, s.allowedExtension("/wiki/Curling"))
	assert.False(t, s.allowedExtension("/docs/"))
}
