package hub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rednhax/varman/pkg/cache"
	verrors "github.com/rednhax/varman/pkg/errors"
	"github.com/rednhax/varman/pkg/pkgid"
)

func testClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	opts = append(opts, WithHTTPClient(srv.Client()))
	return NewClient(srv.URL, opts...)
}

func TestLoadIndexBuildsRemoteCatalog(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/index" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"packages":[
			{"name":"Alice.Hair1","latest_version":5},
			{"name":"Bob.Scene","latest_version":2}
		]}`))
	}))

	if err := c.LoadIndex(context.Background()); err != nil {
		t.Fatalf("LoadIndex() error: %v", err)
	}

	v, ok := c.MaxKnownVersion(pkgid.GroupKey("alice.hair1"))
	if !ok || v != 5 {
		t.Errorf("MaxKnownVersion(alice.hair1) = %d,%v, want 5,true", v, ok)
	}
	if _, ok := c.MaxKnownVersion(pkgid.GroupKey("nobody.nothing")); ok {
		t.Error("unknown group should not resolve")
	}
}

func TestLoadIndexFailureSurfaces(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	err := c.LoadIndex(context.Background())
	if err == nil {
		t.Fatal("LoadIndex() should fail when the index endpoint is missing")
	}
	if !verrors.Is(err, verrors.ErrCodeCatalogRebuild) {
		t.Errorf("error code = %q, want CATALOG_REBUILD_FAILED", verrors.GetCode(err))
	}
}

func TestSearchMapsResources(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") != "hair" {
			t.Errorf("query param = %q, want hair", r.URL.Query().Get("query"))
		}
		_, _ = w.Write([]byte(`{"resources":[
			{"id":"42","name":"Nice Hair","dependency_count":2,
			 "files":[{"filename":"Alice.Hair1.3.var","version":"5"}]}
		],"page":1,"total_pages":3}`))
	}))

	page, err := c.Search(context.Background(), SearchParams{Query: "hair"})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(page.Resources) != 1 || page.TotalPages != 3 {
		t.Fatalf("page = %+v, want 1 resource over 3 pages", page)
	}
	res := page.Resources[0]
	if res.ID != "42" || res.DependencyCount != 2 {
		t.Errorf("resource = %+v", res)
	}
	if res.Files[0].Filename != "Alice.Hair1.3.var" || res.Files[0].HubVersion != "5" {
		t.Errorf("file = %+v", res.Files[0])
	}
}

func TestResourceDetail(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/resources/42/detail" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{
			"files":[{"filename":"Alice.Hair1.3.var"}],
			"dependencies":[
				{"group":"bob.scene","files":[{"filename":"Bob.Scene.2.var"}]}
			]}`))
	}))

	detail, err := c.ResourceDetail(context.Background(), "42")
	if err != nil {
		t.Fatalf("ResourceDetail() error: %v", err)
	}
	if !detail.HasBreakdown() {
		t.Fatal("detail should carry a dependency breakdown")
	}
	if detail.SubDeps[0].Group != pkgid.GroupKey("bob.scene") {
		t.Errorf("group = %q", detail.SubDeps[0].Group)
	}
}

func TestResourceDetailNotFoundIsPermanent(t *testing.T) {
	var hits int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.NotFound(w, r)
	}))

	_, err := c.ResourceDetail(context.Background(), "missing")
	if !verrors.Is(err, verrors.ErrCodeResourceNotFound) {
		t.Fatalf("error code = %q, want RESOURCE_NOT_FOUND", verrors.GetCode(err))
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("hub hit %d times, want 1 (404 must not be retried)", got)
	}
}

func TestResponseCacheAbsorbsRepeatFetch(t *testing.T) {
	var hits int32
	fileCache, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`{"files":[{"filename":"Alice.Hair1.3.var"}],"dependencies":[]}`))
	}), WithCache(fileCache))

	ctx := context.Background()
	if _, err := c.ResourceDetail(ctx, "42"); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if _, err := c.ResourceDetail(ctx, "42"); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("hub hit %d times, want 1 (second call should come from cache)", got)
	}
}
