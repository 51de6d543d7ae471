package local

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/rednhax/varman/pkg/pkgid"
)

// metaFile is the archive entry carrying a package's manifest.
const metaFile = "meta.json"

// manifest is the subset of meta.json the engine cares about.
// Dependencies appear in the wild both as an object keyed by package
// identifier and as a plain list, so the field is decoded manually.
type manifest struct {
	Dependencies json.RawMessage `json:"dependencies"`
}

// ReadDeclaredDeps opens a .var archive and returns the dependency
// identifiers its manifest declares, in manifest order for lists and
// sorted order for keyed objects.
func ReadDeclaredDeps(path string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if !strings.EqualFold(f.Name, metaFile) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s in %s: %w", metaFile, path, err)
		}
		defer rc.Close()
		return parseManifestDeps(rc)
	}
	// No manifest means no declared dependencies, not an error.
	return nil, nil
}

func parseManifestDeps(r io.Reader) ([]string, error) {
	var m manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if len(m.Dependencies) == 0 {
		return nil, nil
	}

	var list []string
	if err := json.Unmarshal(m.Dependencies, &list); err == nil {
		return list, nil
	}

	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(m.Dependencies, &keyed); err != nil {
		return nil, fmt.Errorf("decode manifest dependencies: %w", err)
	}
	deps := make([]string, 0, len(keyed))
	for k := range keyed {
		deps = append(deps, k)
	}
	sort.Strings(deps)
	return deps, nil
}

// Metadata is the declared-dependency view over one folder scan. It
// answers both directions: what a package needs, and who needs it.
type Metadata struct {
	deps       map[string][]string // dedup key -> declared specs
	dependents map[pkgid.GroupKey][]pkgid.Identifier
}

// BuildMetadata reads the manifest of every on-disk package. Archives
// that cannot be read are logged and treated as declaring nothing; one
// corrupt download must not block metadata for the rest of the library.
func BuildMetadata(pkgs []Package, logger *log.Logger) *Metadata {
	m := &Metadata{
		deps:       make(map[string][]string),
		dependents: make(map[pkgid.GroupKey][]pkgid.Identifier),
	}

	for _, p := range pkgs {
		if !p.OnDisk() {
			continue
		}
		id := pkgid.Normalize(p.Filename)
		declared, err := ReadDeclaredDeps(p.Path)
		if err != nil {
			if logger != nil {
				logger.Warnf("skipping manifest of %s: %v", p.Filename, err)
			}
			declared = nil
		}
		m.deps[id.DedupKey()] = declared

		for _, spec := range declared {
			key := pkgid.ParseSpec(spec).Key()
			m.dependents[key] = append(m.dependents[key], id)
		}
	}
	return m
}

// DeclaredDeps returns the dependency specs a package declares. The
// second result distinguishes an unknown package from one that declares
// nothing.
func (m *Metadata) DeclaredDeps(id pkgid.Identifier) ([]string, bool) {
	deps, ok := m.deps[id.DedupKey()]
	return deps, ok
}

// Dependents returns the packages that declare a dependency on the
// given identifier's group, in scan order.
func (m *Metadata) Dependents(id pkgid.Identifier) []pkgid.Identifier {
	return m.dependents[id.Key()]
}
