package scraper

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/xhad/ragask/internal/models"
	"github.com/xhad/ragask/internal/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 2.0
	DefaultUserAgent = "ragask/1.0 (+https://github.com/xhad/ragask)"
)

// Config controls a crawl. MaxDepth 0 fetches only the start page.
type Config struct {
	MaxDepth          int
	RateLimit         float64 // requests per second
	IgnorePatterns    []string
	AllowedExtensions []string
	Timeout           time.Duration
	UserAgent         string
	HTTPClient        *http.Client
	Logger            *zap.Logger
	OnProgress        func(url string)
}

// Scraper crawls pages on the host of the start URL, breadth first.
type Scraper struct {
	config  Config
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

var _ types.Scraper = (*Scraper)(nil)

func New(config Config) *Scraper {
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxDepth < 0 {
		config.MaxDepth = 0
	}
	if config.RateLimit <= 0 {
		config.RateLimit = DefaultRateLimit
	}
	if len(config.AllowedExtensions) == 0 {
		config.AllowedExtensions = []string{".html", ".htm", "/", ""}
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}

	return &Scraper{
		config:  config,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		logger:  config.Logger,
	}
}

type page struct {
	url   string
	depth int
}

// Scrape fetches startURL and follows same-host links up to MaxDepth. A
// failure on the start page is returned; failures on linked pages are logged
// and skipped.
func (s *Scraper) Scrape(ctx context.Context, startURL string) ([]models.Document, error) {
	start, err := url.Parse(startURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", startURL, err)
	}
	if start.Scheme != "http" && start.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", start.Scheme)
	}
	start.Fragment = ""

	var (
		documents []models.Document
		visited   = map[string]bool{start.String(): true}
		queue     = []page{{url: start.String()}}
	)

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]

		doc, links, err := s.fetch(ctx, p)
		if err != nil {
			if p.depth == 0 || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return documents, err
			}
			s.logger.Warn("skipping page", zap.String("url", p.url), zap.Error(err))
			continue
		}
		if doc != nil {
			documents = append(documents, *doc)
		}

		if p.depth >= s.config.MaxDepth {
			continue
		}
		for _, link := range links {
			if visited[link] || !s.shouldProcessURL(start.Host, link) {
				continue
			}
			visited[link] = true
			queue = append(queue, page{url: link, depth: p.depth + 1})
		}
	}

	s.logger.Info("scrape complete", zap.String("url", start.String()), zap.Int("pages", len(documents)))
	return documents, nil
}

// fetch downloads one page. A nil document with a nil error means the page was
// not HTML.
func (s *Scraper) fetch(ctx context.Context, p page) (*models.Document, []string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}
	if s.config.OnProgress != nil {
		s.config.OnProgress(p.url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("User-Agent", s.config.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, p.url)
	}
	contentType := resp.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && mediaType != "text/html" {
		s.logger.Debug("not html", zap.String("url", p.url), zap.String("content_type", mediaType))
		return nil, nil, nil
	}

	html, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", p.url, err)
	}

	links := extractLinks(html, resp.Request.URL)
	html.Find("script, style, noscript, nav, footer").Remove()

	doc := &models.Document{
		ID:      uuid.NewSHA1(uuid.NameSpaceURL, []byte(p.url)).String(),
		URL:     p.url,
		Title:   strings.TrimSpace(html.Find("title").First().Text()),
		Content: extractMainContent(html),
		Metadata: map[string]interface{}{
			"depth":        p.depth,
			"fetched_at":   time.Now().UTC(),
			"content_type": contentType,
		},
	}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		doc.Metadata["last_modified"] = lm
	}
	return doc, links, nil
}

func (s *Scraper) shouldProcessURL(host, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host != host {
		return false
	}

	if !s.allowedExtension(u.Path) {
		return false
	}

	for _, pattern := range s.config.IgnorePatterns {
		if strings.Contains(rawURL, pattern) {
			return false
		}
	}
	return true
}

// allowedExtension matches the path's extension against the allow list. ""
// admits extensionless paths and "/" admits directory paths.
func (s *Scraper) allowedExtension(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	for _, allowed := range s.config.AllowedExtensions {
		switch {
		case allowed == "/" && (p == "" || strings.HasSuffix(p, "/")):
			return true
		case allowed != "/" && ext == allowed:
			return true
		}
	}
	return false
}

func extractLinks(html *goquery.Document, base *url.URL) []string {
	var links []string
	html.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		abs.Fragment = ""
		links = append(links, abs.String())
	})
	return links
}

var contentSelectors = []string{
	"main",
	"article",
	"#mw-content-text",
	"#content",
	".content",
}

var noise = []string{
	"Cookie Policy",
	"Accept Cookies",
	"Privacy Policy",
	"Terms of Service",
}

func extractMainContent(html *goquery.Document) string {
	var text string
	for _, selector := range contentSelectors {
		if sel := html.Find(selector); sel.Length() > 0 {
			text = sel.First().Text()
			break
		}
	}
	if text == "" {
		text = html.Find("body").Text()
	}

	for _, n := range noise {
		text = strings.ReplaceAll(text, n, "")
	}
	return strings.Join(strings.Fields(text), " ")
}
