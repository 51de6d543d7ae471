package hub

import (
	"context"
	"fmt"

	"github.com/rednhax/varman/pkg/catalog"
	verrors "github.com/rednhax/varman/pkg/errors"
	"github.com/rednhax/varman/pkg/pkgid"
)

// indexState holds the remote version catalog built from the hub index.
// It is a snapshot-swap store: LoadIndex replaces it wholesale.
type indexState struct {
	store *catalog.Store
}

func newIndexState() *indexState {
	return &indexState{store: catalog.NewStore()}
}

// indexResponse is the hub's package index wire format.
type indexResponse struct {
	Packages []indexPackage `json:"packages"`
}

type indexPackage struct {
	Name          string `json:"name"`
	LatestVersion uint32 `json:"latest_version"`
}

// LoadIndex fetches the hub package index and rebuilds the remote
// catalog. A failed load surfaces as a catalog rebuild error - callers
// must not fall back to a stale or empty remote catalog silently.
func (c *Client) LoadIndex(ctx context.Context) error {
	var resp indexResponse
	if err := c.getJSON(ctx, "/api/index", &resp); err != nil {
		return verrors.Wrap(verrors.ErrCodeCatalogRebuild, err, "load hub index")
	}

	records := make([]catalog.Record, 0, len(resp.Packages))
	for _, p := range resp.Packages {
		records = append(records, catalog.Record{
			Name:   fmt.Sprintf("%s.%d", p.Name, p.LatestVersion),
			OnDisk: true, // remote records are always "present" hub-side
		})
	}
	c.index.store.Rebuild(records)
	c.logf("hub index loaded: %d packages", len(records))
	return nil
}

// MaxKnownVersion returns the hub's highest known version for a group.
// It reads the snapshot built by the last successful LoadIndex.
func (c *Client) MaxKnownVersion(key pkgid.GroupKey) (uint32, bool) {
	return c.index.store.Snapshot().ResolveLatest(key)
}
