package library

import (
	"context"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

func schedulerFixture(delay time.Duration) (*Scheduler, []*Resource) {
	e := &Evaluator{Local: localStore("Acme.P.5.var")}
	s := &Scheduler{Evaluator: e, InitialDelay: delay}

	resources := make([]*Resource, 6)
	for i := range resources {
		resources[i] = &Resource{
			ID:    "res-" + strconv.Itoa(i),
			Files: []FileRef{{Filename: "Acme.P.3.var"}},
		}
	}
	return s, resources
}

func TestScheduleStreamsAllResults(t *testing.T) {
	s, resources := schedulerFixture(-1)

	results := s.Schedule(context.Background(), resources)

	seen := make(map[string]Status)
	var batch string
	for r := range results {
		seen[r.Resource.ID] = r.Status
		if batch == "" {
			batch = r.BatchID
		} else if r.BatchID != batch {
			t.Errorf("mixed batch ids in one stream: %s vs %s", batch, r.BatchID)
		}
	}

	if len(seen) != len(resources) {
		t.Fatalf("received %d results, want %d", len(seen), len(resources))
	}
	for id, st := range seen {
		if !st.InLibrary {
			t.Errorf("resource %s should be in library", id)
		}
	}
}

func TestScheduleInitialDelayCancellable(t *testing.T) {
	s, resources := schedulerFixture(10 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	results := s.Schedule(ctx, resources)
	cancel()

	select {
	case _, ok := <-results:
		if ok {
			t.Fatal("no result should be published after cancellation during the delay")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not close after cancellation")
	}
}

func TestScheduleSupersedesPriorBatch(t *testing.T) {
	s, resources := schedulerFixture(5 * time.Second)

	// First batch sits in its initial delay; the second batch supersedes it.
	first := s.Schedule(context.Background(), resources)
	s.InitialDelay = -1
	second := s.Schedule(context.Background(), resources)

	count := 0
	for range second {
		count++
	}
	if count != len(resources) {
		t.Errorf("second batch published %d results, want %d", count, len(resources))
	}

	select {
	case _, ok := <-first:
		if ok {
			t.Error("superseded batch must not publish results")
		}
	case <-time.After(2 * time.Second):
		t.Error("superseded batch stream did not close")
	}
}

func TestScheduleBoundedConcurrency(t *testing.T) {
	gate := make(chan struct{})
	resolver := &blockingResolver{gate: gate}
	e := &Evaluator{Local: localStore("Acme.P.5.var"), Details: resolver}
	s := &Scheduler{Evaluator: e, Concurrency: 2, InitialDelay: -1}

	resources := make([]*Resource, 5)
	for i := range resources {
		resources[i] = &Resource{
			ID:              "res-" + strconv.Itoa(i),
			Files:           []FileRef{{Filename: "Acme.P.3.var"}},
			DependencyCount: 1,
		}
	}

	results := s.Schedule(context.Background(), resources)

	// Give workers time to saturate the limit, then release them.
	time.Sleep(100 * time.Millisecond)
	if got := resolver.peak(); got > 2 {
		t.Errorf("observed %d concurrent evaluations, limit is 2", got)
	}
	close(gate)

	for range results {
	}
}

// blockingResolver holds every detail fetch until gate closes and tracks
// the high-water mark of concurrent calls.
type blockingResolver struct {
	gate     chan struct{}
	inFlight atomic.Int32
	max      atomic.Int32
}

func (b *blockingResolver) ResourceDetail(ctx context.Context, id string) (*Detail, error) {
	n := b.inFlight.Add(1)
	for {
		cur := b.max.Load()
		if n <= cur || b.max.CompareAndSwap(cur, n) {
			break
		}
	}
	defer b.inFlight.Add(-1)

	select {
	case <-b.gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &Detail{}, nil
}

func (b *blockingResolver) peak() int { return int(b.max.Load()) }
