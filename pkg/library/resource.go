// Package library decides whether hub resources are fully present in the
// local package library and whether newer versions are available.
//
// A resource is evaluated as one completeness unit: its own declared
// files plus, when its detail record is known, the files of every
// sub-dependency group (a "collection"). Evaluation compares requirements
// against two independent catalogs - the local on-disk catalog and the
// remote hub catalog - and publishes a per-resource status.
package library

import (
	"github.com/rednhax/varman/pkg/pkgid"
)

// FileRef is one required file of a resource, as declared by the hub.
type FileRef struct {
	// Filename is the package file name, e.g. "Alice.Hair1.3.var" or an
	// unversioned marker like "Alice.Hair1.latest".
	Filename string
	// HubVersion is the version the hub currently advertises for this
	// file's group. Empty or non-numeric values are ignored for update
	// detection.
	HubVersion string
}

// SubDependency is one dependency group of a collection with its
// required files. Groups keep slice order so evaluation is deterministic.
type SubDependency struct {
	Group pkgid.GroupKey
	Files []FileRef
}

// Detail is a resource's resolved detail record.
type Detail struct {
	Files   []FileRef
	SubDeps []SubDependency
}

// HasBreakdown reports whether the record carries a per-dependency file
// breakdown. A detail without breakdown cannot prove a collection
// complete.
func (d *Detail) HasBreakdown() bool {
	return d != nil && len(d.SubDeps) > 0
}

// Resource is a hub resource under evaluation.
type Resource struct {
	ID   string
	Name string

	// Files are the resource's own declared files.
	Files []FileRef

	// DependencyCount is the hub-declared number of sub-dependencies. A
	// positive count with no resolved Detail is the explicit "collection,
	// but unknown members" state - it is never treated as "no
	// dependencies".
	DependencyCount int

	// Detail is the resolved detail record, if the caller already has it.
	Detail *Detail
}

// Status is the evaluation outcome for one resource.
type Status struct {
	// InLibrary is true when every required file is satisfied locally.
	InLibrary bool
	// UpdateAvailable is true when any required file has a newer version
	// on the hub than locally present. It is not gated by InLibrary.
	UpdateAvailable bool
}
