// Package local enumerates the managed package folders on disk.
//
// A managed folder contains ".var" package archives. Folders may carry
// an index file listing expected package filenames; indexed files absent
// from disk are reported with StatusMissing so the rest of the system
// can distinguish "never heard of" from "known but gone". Packages
// renamed to ".var.disabled" are present but not loaded.
package local

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/rednhax/varman/pkg/catalog"
	verrors "github.com/rednhax/varman/pkg/errors"
)

// indexFile is the optional per-folder listing of expected packages.
const indexFile = "varman.index.json"

const (
	varExt      = ".var"
	disabledExt = ".var.disabled"
)

// Status describes one managed package's on-disk state.
type Status int

const (
	// StatusLoaded is a package present and active.
	StatusLoaded Status = iota
	// StatusAvailable is a package present but disabled.
	StatusAvailable
	// StatusMissing is a package listed in the folder index but absent
	// from disk.
	StatusMissing
)

// Package is one entry of a folder scan.
type Package struct {
	Filename string // base name without the ".disabled" marker
	Path     string // absolute path; empty for missing packages
	Status   Status
}

// OnDisk reports whether the package physically exists.
func (p Package) OnDisk() bool { return p.Status != StatusMissing }

// Source scans managed folders.
type Source struct {
	Folders []string
	Logger  *log.Logger
}

// Scan enumerates all managed packages across the configured folders.
//
// Directory listings are materialized before processing, so a folder
// mutating mid-scan (a download completing, a package being deleted)
// cannot corrupt the result; entries that disappear between listing and
// stat are skipped. Scan fails only when a configured folder cannot be
// enumerated at all, since building a catalog from a silently truncated
// scan would corrupt every downstream satisfaction check.
func (s *Source) Scan() ([]Package, error) {
	var out []Package
	for _, folder := range s.Folders {
		entries, err := os.ReadDir(folder)
		if err != nil {
			return nil, verrors.Wrap(verrors.ErrCodeCatalogRebuild, err, "scan folder %s", folder)
		}

		seen := make(map[string]struct{})
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			name := e.Name()
			switch {
			case strings.HasSuffix(strings.ToLower(name), disabledExt):
				base := name[:len(name)-len(".disabled")]
				seen[strings.ToLower(base)] = struct{}{}
				out = append(out, Package{
					Filename: base,
					Path:     filepath.Join(folder, name),
					Status:   StatusAvailable,
				})
			case strings.HasSuffix(strings.ToLower(name), varExt):
				seen[strings.ToLower(name)] = struct{}{}
				out = append(out, Package{
					Filename: name,
					Path:     filepath.Join(folder, name),
					Status:   StatusLoaded,
				})
			}
		}

		for _, missing := range s.readIndex(folder, seen) {
			out = append(out, Package{Filename: missing, Status: StatusMissing})
		}
	}
	return out, nil
}

// readIndex returns indexed filenames not present on disk. A malformed
// or absent index is not an error; the index only adds information.
func (s *Source) readIndex(folder string, seen map[string]struct{}) []string {
	data, err := os.ReadFile(filepath.Join(folder, indexFile))
	if err != nil {
		return nil
	}
	var listed []string
	if err := json.Unmarshal(data, &listed); err != nil {
		if s.Logger != nil {
			s.Logger.Warnf("ignoring malformed index in %s: %v", folder, err)
		}
		return nil
	}

	var missing []string
	for _, name := range listed {
		if _, ok := seen[strings.ToLower(name)]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Records converts a scan result into catalog records. Missing packages
// carry OnDisk=false and therefore never satisfy a requirement.
func Records(pkgs []Package) []catalog.Record {
	records := make([]catalog.Record, len(pkgs))
	for i, p := range pkgs {
		records[i] = catalog.Record{Name: p.Filename, OnDisk: p.OnDisk()}
	}
	return records
}
