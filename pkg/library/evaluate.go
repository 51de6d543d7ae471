package library

import (
	"context"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/rednhax/varman/pkg/catalog"
	"github.com/rednhax/varman/pkg/pkgid"
)

// DetailResolver fetches a resource's detail record from the hub.
//
// ResourceDetail must be safe for concurrent use; the scheduler calls it
// from multiple worker slots. Implementations should respect context
// cancellation.
type DetailResolver interface {
	ResourceDetail(ctx context.Context, id string) (*Detail, error)
}

// RemoteVersions exposes the hub's highest known version per group.
type RemoteVersions interface {
	MaxKnownVersion(key pkgid.GroupKey) (uint32, bool)
}

// Evaluator decides (InLibrary, UpdateAvailable) for resources against
// the local and remote catalogs.
//
// The detail cache is shared process-wide: once a resource's detail
// record has been fetched it is reused by every later evaluation of the
// same resource id. Concurrent evaluations of the same resource may fetch
// twice; that is wasteful but not incorrect, and the cache converges on
// one entry.
type Evaluator struct {
	Local   *catalog.Store
	Remote  RemoteVersions
	Details DetailResolver
	Logger  *log.Logger

	details sync.Map // resource id -> *Detail
}

// Evaluate computes the status of one resource.
//
// The only error it returns is context cancellation; every other failure
// (unresolvable detail record, unparseable filename) degrades per the
// collection-honesty rules: an unresolvable collection is never claimed
// complete.
func (e *Evaluator) Evaluate(ctx context.Context, res *Resource) (Status, error) {
	if len(res.Files) == 0 {
		return Status{}, nil
	}

	local := e.Local.Snapshot()

	detail, unresolved := e.resolveDetail(ctx, res)
	if err := ctx.Err(); err != nil {
		return Status{}, err
	}

	required := res.Files
	if detail.HasBreakdown() {
		required = requirementSet(res, detail)
	}

	inLibrary := !unresolved
	var updateAvailable bool

	for _, f := range required {
		if err := ctx.Err(); err != nil {
			return Status{}, err
		}
		// Terminal state for both flags: nothing left to learn.
		if !inLibrary && updateAvailable {
			break
		}

		if f.Filename == "" {
			inLibrary = false
			continue
		}

		id := pkgid.Normalize(f.Filename)
		key := id.Key()

		if id.Version.Kind == pkgid.VersionNumeric {
			if lv, ok := local.ResolveLatest(key); !ok || lv < id.Version.Num {
				inLibrary = false
			}
		} else {
			// Unversioned requirement: the named artifact itself must
			// exist; owning some version of the group is not enough.
			if !local.HasExactName(pkgid.Clean(f.Filename)) {
				inLibrary = false
			}
		}

		if e.updateAvailable(local, key, f) {
			updateAvailable = true
		}
	}

	return Status{InLibrary: inLibrary, UpdateAvailable: updateAvailable}, nil
}

// resolveDetail returns the detail record to evaluate with and whether
// the resource is an unresolvable collection (positive dependency count
// but no usable breakdown). At most one on-demand fetch is attempted per
// call; successful fetches are cached for the process lifetime.
func (e *Evaluator) resolveDetail(ctx context.Context, res *Resource) (*Detail, bool) {
	if res.DependencyCount == 0 {
		return res.Detail, false
	}
	if res.Detail.HasBreakdown() {
		return res.Detail, false
	}

	if cached, ok := e.details.Load(res.ID); ok {
		d := cached.(*Detail)
		return d, !d.HasBreakdown()
	}

	if e.Details == nil {
		return nil, true
	}

	d, err := e.Details.ResourceDetail(ctx, res.ID)
	if err != nil {
		e.logf("resource detail fetch failed: %s: %v", res.ID, err)
		return nil, true
	}
	if d == nil {
		return nil, true
	}

	actual, _ := e.details.LoadOrStore(res.ID, d)
	d = actual.(*Detail)
	return d, !d.HasBreakdown()
}

// requirementSet is the transitive union of the resource's own files and
// every sub-dependency group's files, preserving declaration order.
func requirementSet(res *Resource, detail *Detail) []FileRef {
	out := make([]FileRef, 0, len(res.Files)+len(detail.SubDeps))
	out = append(out, res.Files...)
	for _, sub := range detail.SubDeps {
		out = append(out, sub.Files...)
	}
	return out
}

// updateAvailable reports whether a newer version than the local one is
// known for the file's group, from either the file's declared hub version
// or the remote catalog's maximum.
func (e *Evaluator) updateAvailable(local *catalog.Catalog, key pkgid.GroupKey, f FileRef) bool {
	lv, ok := local.ResolveLatest(key)
	if !ok || lv == 0 {
		return false
	}
	if hv, err := strconv.ParseUint(f.HubVersion, 10, 32); err == nil && uint32(hv) > lv {
		return true
	}
	if e.Remote != nil {
		if rv, ok := e.Remote.MaxKnownVersion(key); ok && rv > lv {
			return true
		}
	}
	return false
}

func (e *Evaluator) logf(format string, args ...any) {
	if e.Logger != nil {
		e.Logger.Debugf(format, args...)
	}
}
