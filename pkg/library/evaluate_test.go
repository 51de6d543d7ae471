package library

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/rednhax/varman/pkg/catalog"
	"github.com/rednhax/varman/pkg/pkgid"
)

type mockRemote map[pkgid.GroupKey]uint32

func (m mockRemote) MaxKnownVersion(key pkgid.GroupKey) (uint32, bool) {
	v, ok := m[key]
	return v, ok
}

type mockResolver struct {
	detail *Detail
	err    error
	calls  int32
}

func (m *mockResolver) ResourceDetail(ctx context.Context, id string) (*Detail, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.err != nil {
		return nil, m.err
	}
	return m.detail, nil
}

func localStore(names ...string) *catalog.Store {
	records := make([]catalog.Record, len(names))
	for i, n := range names {
		records[i] = catalog.Record{Name: n, OnDisk: true}
	}
	s := catalog.NewStore()
	s.Rebuild(records)
	return s
}

func TestEvaluateZeroFiles(t *testing.T) {
	e := &Evaluator{Local: localStore("P.X.1.var")}
	st, err := e.Evaluate(context.Background(), &Resource{ID: "r1"})
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if st.InLibrary || st.UpdateAvailable {
		t.Errorf("zero files should yield (false,false), got %+v", st)
	}
}

func TestEvaluateVersionedSatisfied(t *testing.T) {
	// Resource requires P at version 3; library has P at 5.
	e := &Evaluator{Local: localStore("Acme.P.5.var")}
	res := &Resource{ID: "r1", Files: []FileRef{{Filename: "Acme.P.3.var"}}}

	st, err := e.Evaluate(context.Background(), res)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if !st.InLibrary {
		t.Error("local max 5 should satisfy required version 3")
	}
	if st.UpdateAvailable {
		t.Error("no newer version is known; UpdateAvailable should be false")
	}
}

func TestEvaluateVersionedUnsatisfied(t *testing.T) {
	e := &Evaluator{Local: localStore("Acme.P.2.var")}
	res := &Resource{ID: "r1", Files: []FileRef{{Filename: "Acme.P.3.var"}}}

	st, _ := e.Evaluate(context.Background(), res)
	if st.InLibrary {
		t.Error("local max 2 must not satisfy required version 3")
	}
}

func TestEvaluateUnversionedNeedsExactName(t *testing.T) {
	// Library has P at version 5 but no record named exactly "Acme.P.latest".
	e := &Evaluator{Local: localStore("Acme.P.5.var")}
	res := &Resource{ID: "r1", Files: []FileRef{{Filename: "Acme.P.latest"}}}

	st, _ := e.Evaluate(context.Background(), res)
	if st.InLibrary {
		t.Error("an unversioned requirement is not satisfied by owning some version of the group")
	}

	// With the exact marker present it is satisfied.
	e2 := &Evaluator{Local: localStore("Acme.P.5.var", "Acme.P.latest")}
	st, _ = e2.Evaluate(context.Background(), res)
	if !st.InLibrary {
		t.Error("the exact named artifact should satisfy the requirement")
	}
}

func TestEvaluateUpdateFromDeclaredHubVersion(t *testing.T) {
	e := &Evaluator{Local: localStore("Acme.P.3.var")}
	res := &Resource{ID: "r1", Files: []FileRef{{Filename: "Acme.P.3.var", HubVersion: "7"}}}

	st, _ := e.Evaluate(context.Background(), res)
	if !st.InLibrary {
		t.Error("required version is owned")
	}
	if !st.UpdateAvailable {
		t.Error("declared hub version 7 > local 3 should flag an update")
	}
}

func TestEvaluateUpdateFromRemoteCatalog(t *testing.T) {
	e := &Evaluator{
		Local:  localStore("Acme.P.3.var"),
		Remote: mockRemote{pkgid.GroupKey("acme.p"): 9},
	}
	res := &Resource{ID: "r1", Files: []FileRef{{Filename: "Acme.P.3.var"}}}

	st, _ := e.Evaluate(context.Background(), res)
	if !st.UpdateAvailable {
		t.Error("remote max 9 > local 3 should flag an update")
	}
}

func TestEvaluateUpdateNotGatedByInLibrary(t *testing.T) {
	// Collection partially owned: one file missing entirely, another
	// outdated. UpdateAvailable must still fire.
	e := &Evaluator{
		Local:  localStore("Acme.P.3.var"),
		Remote: mockRemote{pkgid.GroupKey("acme.p"): 9},
	}
	res := &Resource{ID: "r1", Files: []FileRef{
		{Filename: "Ghost.Q.1.var"},
		{Filename: "Acme.P.3.var"},
	}}

	st, _ := e.Evaluate(context.Background(), res)
	if st.InLibrary {
		t.Error("missing file must force InLibrary=false")
	}
	if !st.UpdateAvailable {
		t.Error("UpdateAvailable must be computed even when InLibrary is false")
	}
}

func TestEvaluateCollectionHonesty(t *testing.T) {
	// dependencyCount > 0 and the detail fetch fails: never InLibrary,
	// but update detection still runs on the main file.
	e := &Evaluator{
		Local:   localStore("Acme.P.3.var"),
		Remote:  mockRemote{pkgid.GroupKey("acme.p"): 9},
		Details: &mockResolver{err: errors.New("hub unavailable")},
	}
	res := &Resource{
		ID:              "r1",
		Files:           []FileRef{{Filename: "Acme.P.3.var"}},
		DependencyCount: 2,
	}

	st, err := e.Evaluate(context.Background(), res)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if st.InLibrary {
		t.Error("an unresolvable collection must never report InLibrary=true")
	}
	if !st.UpdateAvailable {
		t.Error("main-file update detection should survive the fallback")
	}
}

func TestEvaluateCollectionWithBreakdown(t *testing.T) {
	resolver := &mockResolver{detail: &Detail{
		SubDeps: []SubDependency{
			{Group: pkgid.GroupKey("acme.q"), Files: []FileRef{{Filename: "Acme.Q.2.var"}}},
		},
	}}
	e := &Evaluator{
		Local:   localStore("Acme.P.3.var", "Acme.Q.2.var"),
		Details: resolver,
	}
	res := &Resource{
		ID:              "r1",
		Files:           []FileRef{{Filename: "Acme.P.1.var"}},
		DependencyCount: 1,
	}

	st, _ := e.Evaluate(context.Background(), res)
	if !st.InLibrary {
		t.Error("all files of the collection are owned")
	}

	// Second evaluation reuses the cached detail record.
	_, _ = e.Evaluate(context.Background(), res)
	if got := atomic.LoadInt32(&resolver.calls); got != 1 {
		t.Errorf("detail fetched %d times, want 1 (cached)", got)
	}
}

func TestEvaluateSubDependencyMissing(t *testing.T) {
	e := &Evaluator{
		Local: localStore("Acme.P.3.var"),
		Details: &mockResolver{detail: &Detail{
			SubDeps: []SubDependency{
				{Group: pkgid.GroupKey("acme.q"), Files: []FileRef{{Filename: "Acme.Q.2.var"}}},
			},
		}},
	}
	res := &Resource{
		ID:              "r1",
		Files:           []FileRef{{Filename: "Acme.P.1.var"}},
		DependencyCount: 1,
	}

	st, _ := e.Evaluate(context.Background(), res)
	if st.InLibrary {
		t.Error("a missing sub-dependency file must force InLibrary=false")
	}
}

func TestEvaluateMonotonicity(t *testing.T) {
	res := &Resource{ID: "r1", Files: []FileRef{{Filename: "Acme.P.4.var"}}}

	for v, want := range map[int]bool{3: false, 4: true, 9: true} {
		store := catalog.NewStore()
		store.Rebuild([]catalog.Record{{Name: nameAt("Acme.P", v), OnDisk: true}})
		e := &Evaluator{Local: store}
		st, _ := e.Evaluate(context.Background(), res)
		if st.InLibrary != want {
			t.Errorf("local max %d: InLibrary = %v, want %v", v, st.InLibrary, want)
		}
	}
}

func nameAt(group string, v int) string {
	return group + "." + strconv.Itoa(v) + ".var"
}

func TestEvaluateEmptyFilenameForcesOut(t *testing.T) {
	e := &Evaluator{Local: localStore("Acme.P.3.var")}
	res := &Resource{ID: "r1", Files: []FileRef{
		{Filename: ""},
		{Filename: "Acme.P.3.var"},
	}}

	st, _ := e.Evaluate(context.Background(), res)
	if st.InLibrary {
		t.Error("an unparseable filename forces InLibrary=false")
	}
}

func TestEvaluateCancellation(t *testing.T) {
	e := &Evaluator{Local: localStore("Acme.P.3.var")}
	res := &Resource{ID: "r1", Files: []FileRef{{Filename: "Acme.P.3.var"}}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.Evaluate(ctx, res); !errors.Is(err, context.Canceled) {
		t.Errorf("Evaluate() error = %v, want context.Canceled", err)
	}
}
