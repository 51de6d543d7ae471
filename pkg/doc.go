// Package pkg provides the core libraries for varman package management.
//
// # Overview
//
// Varman tracks a local library of versioned ".var" content packages,
// resolves their dependency graphs, and checks requirement satisfaction
// against the remote hub. The pkg directory is organized as:
//
//  1. [pkgid] - Identifier parsing and canonicalization
//  2. [catalog] - Version catalogs with atomic snapshot swapping
//  3. [local] - Managed folder scanning and .var manifest reading
//  4. [depgraph] - Dependency graph construction and export
//  5. [library] - Requirement evaluation and background scheduling
//  6. [hub] - Remote index client (retry, circuit breaker, caching)
//
// # Architecture
//
// The typical data flow:
//
//	Managed Folders (.var archives)
//	         ↓
//	    [local] package (scan + read manifests)
//	         ↓
//	    [catalog] package (local version catalog)
//	         ↓
//	    [library] package (evaluate against [hub] data)
//	         ↓
//	    CLI output / HTTP API / graph exports
//
// # Quick Start
//
// Scan a library and build a dependency graph:
//
//	import (
//	    "github.com/rednhax/varman/pkg/depgraph"
//	    "github.com/rednhax/varman/pkg/local"
//	    "github.com/rednhax/varman/pkg/pkgid"
//	)
//
//	src := &local.Source{Folders: []string{"/data/AddonPackages"}}
//	pkgs, _ := src.Scan()
//	meta := local.BuildMetadata(pkgs, nil)
//
//	root := pkgid.Normalize("Alice.Hair1.3")
//	deps, _ := meta.DeclaredDeps(root)
//	g := depgraph.Builder{
//	    Mode:     depgraph.ModeDependencies,
//	    MaxDepth: 3,
//	    Metadata: meta.DeclaredDeps,
//	}.Build(root, deps)
//
// # Supporting Packages
//
// [cache] - Response cache with file, redis, and null backends.
//
// [config] - TOML configuration loading with defaults.
//
// [errors] - Structured errors with stable machine-readable codes.
//
// [observability] - Optional instrumentation hooks for cache, HTTP, and
// evaluation events.
//
// [buildinfo] - Build-time version information injected via ldflags.
//
// [pkgid]: https://pkg.go.dev/github.com/rednhax/varman/pkg/pkgid
// [catalog]: https://pkg.go.dev/github.com/rednhax/varman/pkg/catalog
// [local]: https://pkg.go.dev/github.com/rednhax/varman/pkg/local
// [depgraph]: https://pkg.go.dev/github.com/rednhax/varman/pkg/depgraph
// [library]: https://pkg.go.dev/github.com/rednhax/varman/pkg/library
// [hub]: https://pkg.go.dev/github.com/rednhax/varman/pkg/hub
// [cache]: https://pkg.go.dev/github.com/rednhax/varman/pkg/cache
// [config]: https://pkg.go.dev/github.com/rednhax/varman/pkg/config
// [errors]: https://pkg.go.dev/github.com/rednhax/varman/pkg/errors
// [observability]: https://pkg.go.dev/github.com/rednhax/varman/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/rednhax/varman/pkg/buildinfo
package pkg
