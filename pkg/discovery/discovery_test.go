package discovery_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Akotliar/sitemap-qa-sub000/pkg/discovery"
	"github.com/Akotliar/sitemap-qa-sub000/pkg/httpclient"
)

type countingHandler struct {
	mu     sync.Mutex
	counts map[string]int
	routes map[string]func(w http.ResponseWriter, r *http.Request)
}

func newCountingHandler() *countingHandler {
	return &countingHandler{
		counts: make(map[string]int),
		routes: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}
}

func (h *countingHandler) handle(path, body string) {
	h.routes[path] = func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.counts[r.URL.Path]++
	h.mu.Unlock()

	if fn, ok := h.routes[r.URL.Path]; ok {
		fn(w, r)
		return
	}
	http.NotFound(w, r)
}

func (h *countingHandler) count(path string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counts[path]
}

func newEngine(t *testing.T) *discovery.Engine {
	t.Helper()
	client := httpclient.New(httpclient.Config{
		Timeout:      2 * time.Second,
		RetryWait:    time.Millisecond,
		RetryMaxWait: 5 * time.Millisecond,
	}, nil)
	return discovery.NewEngine(client, discovery.Config{BatchSize: 4}, zap.NewNop())
}

func urlsetOf(locs ...string) string {
	doc := "<urlset>"
	for _, loc := range locs {
		doc += fmt.Sprintf("<url><loc>%s</loc></url>", loc)
	}
	return doc + "</urlset>"
}

func TestDiscoverViaRobots(t *testing.T) {
	h := newCountingHandler()
	server := httptest.NewServer(h)
	defer server.Close()

	h.handle("/robots.txt", "User-agent: *\nDisallow:\nSitemap: "+server.URL+"/custom-sitemap.xml\n")
	h.handle("/custom-sitemap.xml", urlsetOf(server.URL+"/page-1", server.URL+"/page-2"))

	result, err := newEngine(t).Discover(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Source != discovery.SourceRobots {
		t.Fatalf("expected robots-txt source, got %q", result.Source)
	}
	if len(result.Sitemaps) != 1 || result.Sitemaps[0] != server.URL+"/custom-sitemap.xml" {
		t.Fatalf("unexpected sitemaps: %v", result.Sitemaps)
	}
}

func TestDiscoverFallsBackToStandardPath(t *testing.T) {
	h := newCountingHandler()
	server := httptest.NewServer(h)
	defer server.Close()

	h.handle("/sitemap.xml", urlsetOf(server.URL+"/page-1"))

	result, err := newEngine(t).Discover(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Source != discovery.SourceStandardPath {
		t.Fatalf("expected standard-path source, got %q", result.Source)
	}
	if len(result.Sitemaps) != 1 {
		t.Fatalf("expected 1 leaf sitemap, got %v", result.Sitemaps)
	}
}

func TestDiscoverExpandsIndexRecursively(t *testing.T) {
	h := newCountingHandler()
	server := httptest.NewServer(h)
	defer server.Close()

	h.handle("/robots.txt", "Sitemap: "+server.URL+"/sitemap_index.xml")
	h.handle("/sitemap_index.xml", fmt.Sprintf(`<sitemapindex>
		<sitemap><loc>%s/sitemap-a.xml</loc></sitemap>
		<sitemap><loc>%s/nested-index.xml</loc></sitemap>
	</sitemapindex>`, server.URL, server.URL))
	h.handle("/nested-index.xml", fmt.Sprintf(`<sitemapindex>
		<sitemap><loc>%s/sitemap-b.xml</loc></sitemap>
	</sitemapindex>`, server.URL))
	h.handle("/sitemap-a.xml", urlsetOf(server.URL+"/a"))
	h.handle("/sitemap-b.xml", urlsetOf(server.URL+"/b"))

	result, err := newEngine(t).Discover(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Sitemaps) != 2 {
		t.Fatalf("expected 2 leaf sitemaps, got %v", result.Sitemaps)
	}
}

func TestDiscoverCycleSafety(t *testing.T) {
	h := newCountingHandler()
	server := httptest.NewServer(h)
	defer server.Close()

	// Index references itself and its child; child references the index back.
	h.handle("/robots.txt", "Sitemap: "+server.URL+"/loop-index.xml")
	h.handle("/loop-index.xml", fmt.Sprintf(`<sitemapindex>
		<sitemap><loc>%s/loop-index.xml</loc></sitemap>
		<sitemap><loc>%s/loop-child.xml</loc></sitemap>
	</sitemapindex>`, server.URL, server.URL))
	h.handle("/loop-child.xml", fmt.Sprintf(`<sitemapindex>
		<sitemap><loc>%s/loop-index.xml</loc></sitemap>
		<sitemap><loc>%s/leaf.xml</loc></sitemap>
	</sitemapindex>`, server.URL, server.URL))
	h.handle("/leaf.xml", urlsetOf(server.URL+"/page"))

	result, err := newEngine(t).Discover(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Sitemaps) != 1 {
		t.Fatalf("expected 1 leaf, got %v", result.Sitemaps)
	}
	for _, path := range []string{"/loop-index.xml", "/loop-child.xml", "/leaf.xml"} {
		if got := h.count(path); got != 1 {
			t.Fatalf("expected exactly 1 fetch of %s, got %d", path, got)
		}
	}
}

func TestDiscoverMalformedIndexHeuristic(t *testing.T) {
	h := newCountingHandler()
	server := httptest.NewServer(h)
	defer server.Close()

	// A urlset whose entries are all sitemap-looking must be treated as an
	// index with all five children queued.
	children := []string{"sitemap-a.xml", "sitemap-b.xml", "sitemap-c.xml", "sitemap-d.xml", "sitemap-e.xml"}
	var locs []string
	for _, c := range children {
		locs = append(locs, server.URL+"/"+c)
	}
	h.handle("/robots.txt", "Sitemap: "+server.URL+"/fake-index.xml")
	h.handle("/fake-index.xml", urlsetOf(locs...))
	for i, c := range children {
		h.handle("/"+c, urlsetOf(fmt.Sprintf("%s/page-%d", server.URL, i)))
	}

	result, err := newEngine(t).Discover(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Sitemaps) != 5 {
		t.Fatalf("expected all 5 children discovered, got %v", result.Sitemaps)
	}
	for _, c := range children {
		if got := h.count("/" + c); got != 1 {
			t.Fatalf("child %s fetched %d times", c, got)
		}
	}
}

func TestDiscoverOrdinaryURLSetIsLeaf(t *testing.T) {
	h := newCountingHandler()
	server := httptest.NewServer(h)
	defer server.Close()

	h.handle("/robots.txt", "Sitemap: "+server.URL+"/sitemap.xml")
	h.handle("/sitemap.xml", urlsetOf(
		server.URL+"/products",
		server.URL+"/about",
		server.URL+"/contact",
	))

	result, err := newEngine(t).Discover(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Sitemaps) != 1 || result.Sitemaps[0] != server.URL+"/sitemap.xml" {
		t.Fatalf("page sitemap misclassified: %v", result.Sitemaps)
	}
}

func TestDiscoverNoSitemapAnywhere(t *testing.T) {
	h := newCountingHandler()
	server := httptest.NewServer(h)
	defer server.Close()

	result, err := newEngine(t).Discover(context.Background(), server.URL)
	if !errors.Is(err, discovery.ErrNoSitemap) {
		t.Fatalf("expected ErrNoSitemap, got %v", err)
	}
	if result == nil || result.Source != discovery.SourceNone {
		t.Fatalf("expected source none, got %+v", result)
	}
}

func TestDiscoverReportsAccessIssuesOnFailure(t *testing.T) {
	h := newCountingHandler()
	server := httptest.NewServer(h)
	defer server.Close()

	h.routes["/robots.txt"] = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}
	h.routes["/sitemap.xml"] = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}

	result, err := newEngine(t).Discover(context.Background(), server.URL)
	if !errors.Is(err, discovery.ErrNoSitemap) {
		t.Fatalf("expected ErrNoSitemap, got %v", err)
	}
	if len(result.AccessIssues) == 0 {
		t.Fatalf("expected access issues to surface when discovery fails")
	}
}

func TestDiscoverSuppressesAccessIssuesOnSuccess(t *testing.T) {
	h := newCountingHandler()
	server := httptest.NewServer(h)
	defer server.Close()

	h.handle("/robots.txt", "Sitemap: "+server.URL+"/locked.xml\nSitemap: "+server.URL+"/open.xml")
	h.routes["/locked.xml"] = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}
	h.handle("/open.xml", urlsetOf(server.URL+"/page"))

	result, err := newEngine(t).Discover(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.AccessIssues) != 0 {
		t.Fatalf("access issues must be suppressed when a sitemap was found: %+v", result.AccessIssues)
	}
}

func TestDiscoverHonorsCap(t *testing.T) {
	h := newCountingHandler()
	server := httptest.NewServer(h)
	defer server.Close()

	// Index fanning out to more children than the cap allows.
	var refs string
	for i := 0; i < 20; i++ {
		path := fmt.Sprintf("/child-%d.xml", i)
		refs += fmt.Sprintf("<sitemap><loc>%s%s</loc></sitemap>", server.URL, path)
		h.handle(path, urlsetOf(fmt.Sprintf("%s/page-%d", server.URL, i)))
	}
	h.handle("/robots.txt", "Sitemap: "+server.URL+"/big-index.xml")
	h.handle("/big-index.xml", "<sitemapindex>"+refs+"</sitemapindex>")

	client := httpclient.New(httpclient.Config{Timeout: 2 * time.Second, RetryWait: time.Millisecond}, nil)
	engine := discovery.NewEngine(client, discovery.Config{BatchSize: 4, MaxSitemaps: 9}, zap.NewNop())

	result, err := engine.Discover(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed > 9 {
		t.Fatalf("cap exceeded: processed %d", result.Processed)
	}
}
