// Package catalog maps package group keys to the highest known numeric
// version seen in a source.
//
// Two catalogs exist at runtime: one built from packages on disk and one
// built from the remote hub index. They are never merged; satisfaction
// logic compares across both. A catalog is an immutable snapshot - use
// [Store] when the underlying package set can be refreshed.
package catalog

import (
	"strings"

	"github.com/rednhax/varman/pkg/pkgid"
)

// Record is one raw package entry from a catalog source.
type Record struct {
	Name   string // raw package name, e.g. "Alice.Hair1.3.var"
	OnDisk bool   // whether the package is physically present
}

// Catalog is a read-only snapshot mapping group keys to the highest known
// numeric version. It additionally tracks the exact cleaned names seen, so
// unversioned requirements ("Alice.Hair1.latest") can be checked against
// the named artifact rather than any version of the group.
type Catalog struct {
	latest map[pkgid.GroupKey]uint32
	names  map[string]struct{} // lowercased cleaned names
}

// Build folds records into a catalog snapshot.
//
// Only records with OnDisk set contribute. Numeric versions raise the
// per-group maximum; "latest" and opaque entries do not, but their cleaned
// name is still registered in the exact-name presence set.
func Build(records []Record) *Catalog {
	c := &Catalog{
		latest: make(map[pkgid.GroupKey]uint32, len(records)),
		names:  make(map[string]struct{}, len(records)),
	}
	for _, r := range records {
		if !r.OnDisk {
			continue
		}
		id := pkgid.Normalize(r.Name)
		c.names[strings.ToLower(pkgid.Clean(r.Name))] = struct{}{}

		if id.Version.Kind != pkgid.VersionNumeric {
			continue
		}
		key := id.Key()
		if v, ok := c.latest[key]; !ok || id.Version.Num > v {
			c.latest[key] = id.Version.Num
		}
	}
	return c
}

// ResolveLatest returns the highest numeric version known for the group,
// or false if no numeric version was recorded.
func (c *Catalog) ResolveLatest(key pkgid.GroupKey) (uint32, bool) {
	v, ok := c.latest[key]
	return v, ok
}

// HasExactName reports whether some record cleaned to exactly this name
// (case-insensitive). Used for unversioned requirement satisfaction, where
// resolving an arbitrary version of the group is explicitly insufficient.
func (c *Catalog) HasExactName(cleaned string) bool {
	_, ok := c.names[strings.ToLower(cleaned)]
	return ok
}

// Groups returns the number of groups with a known numeric version.
func (c *Catalog) Groups() int { return len(c.latest) }
