// Package pkgid parses and canonicalizes versioned package identifiers.
//
// Packages are identified by strings of the form "Creator.Name.Version",
// where Version is either a non-negative integer or the sentinel "latest".
// Identifiers may carry a trailing ".var" file suffix and a ":type"
// qualifier, both of which are stripped during normalization. Names may
// themselves contain dots ("Creator.Some.Name.3" has name "Some.Name").
//
// Normalization never fails: inputs that don't fit the pattern degrade to
// an opaque identifier whose group key is the full cleaned string.
//
// All equality and key derivation is case-insensitive over the full
// identifier string.
package pkgid

import (
	"strconv"
	"strings"
)

// varSuffix is the package file extension, stripped case-insensitively.
const varSuffix = ".var"

// latestToken is the version sentinel meaning "highest known version".
const latestToken = "latest"

// VersionKind discriminates the three version forms an identifier can carry.
type VersionKind int

const (
	// VersionOpaque marks an identifier with no recognizable version
	// component. Opaque identifiers keep the whole cleaned string as their
	// group key.
	VersionOpaque VersionKind = iota
	// VersionNumeric is an explicit non-negative integer version.
	VersionNumeric
	// VersionLatest is the "latest" sentinel, resolved against a catalog
	// at use time.
	VersionLatest
)

// VersionSpec is the parsed version component of an identifier.
// The zero value is an opaque (unknown) version.
type VersionSpec struct {
	Kind VersionKind
	Num  uint32 // valid only when Kind == VersionNumeric
}

// Numeric returns a VersionSpec for an explicit integer version.
func Numeric(n uint32) VersionSpec { return VersionSpec{Kind: VersionNumeric, Num: n} }

// Latest returns the "latest" sentinel VersionSpec.
func Latest() VersionSpec { return VersionSpec{Kind: VersionLatest} }

// String renders the version as it appears in a canonical identifier.
// Opaque versions render as an empty string.
func (v VersionSpec) String() string {
	switch v.Kind {
	case VersionNumeric:
		return strconv.FormatUint(uint64(v.Num), 10)
	case VersionLatest:
		return latestToken
	default:
		return ""
	}
}

// GroupKey is a version-less package identity ("creator.name", lowercased).
// Two identifiers share a GroupKey iff their creator and name match
// case-insensitively.
type GroupKey string

// Identifier is an immutable parsed package identity.
//
// For well-formed identifiers Creator and Name are non-empty. Malformed
// inputs produce an opaque Identifier: Creator is empty, Name holds the
// full cleaned input, and Version.Kind is VersionOpaque.
type Identifier struct {
	Creator string
	Name    string
	Version VersionSpec
}

// Normalize parses a raw package name string into an Identifier.
//
// Cleaning steps, in order, each idempotent:
//  1. strip a trailing ".var" suffix (case-insensitive)
//  2. truncate at the first ":" (type qualifier)
//  3. split on "." and classify the last segment as a numeric version,
//     the "latest" sentinel, or nothing
//
// Inputs without a recognizable creator.name.version shape degrade to an
// opaque Identifier rather than returning an error.
func Normalize(raw string) Identifier {
	cleaned := Clean(raw)

	segs := strings.Split(cleaned, ".")
	if len(segs) >= 3 {
		last := segs[len(segs)-1]
		creator := segs[0]
		name := strings.Join(segs[1:len(segs)-1], ".")
		if creator != "" && name != "" {
			if n, err := strconv.ParseUint(last, 10, 32); err == nil {
				return Identifier{Creator: creator, Name: name, Version: Numeric(uint32(n))}
			}
			if strings.EqualFold(last, latestToken) {
				return Identifier{Creator: creator, Name: name, Version: Latest()}
			}
		}
	}

	return Identifier{Name: cleaned}
}

// Clean strips the ".var" suffix and any ":type" qualifier from raw.
// It does not split or validate the identifier shape.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[:i]
	}
	if len(s) >= len(varSuffix) && strings.EqualFold(s[len(s)-len(varSuffix):], varSuffix) {
		s = s[:len(s)-len(varSuffix)]
	}
	return s
}

// IsOpaque reports whether the identifier fell back to the opaque form.
func (id Identifier) IsOpaque() bool { return id.Version.Kind == VersionOpaque }

// Canonical returns the canonical string form: "creator.name.version" or
// "creator.name.latest". Opaque identifiers return the cleaned input
// unchanged. Case is preserved for display; use Equal or Key for
// comparisons.
func (id Identifier) Canonical() string {
	if id.IsOpaque() {
		return id.Name
	}
	return id.Creator + "." + id.Name + "." + id.Version.String()
}

// Key derives the version-less group key. The "latest" sentinel and
// numeric versions are stripped identically; opaque identifiers key on
// the full cleaned string.
func (id Identifier) Key() GroupKey {
	if id.IsOpaque() {
		return GroupKey(strings.ToLower(id.Name))
	}
	return GroupKey(strings.ToLower(id.Creator + "." + id.Name))
}

// Equal reports case-insensitive equality over the full canonical string.
func (id Identifier) Equal(other Identifier) bool {
	return strings.EqualFold(id.Canonical(), other.Canonical())
}

// DedupKey returns the lowercased canonical string, suitable as a map key
// when deduplicating identifiers case-insensitively.
func (id Identifier) DedupKey() string {
	return strings.ToLower(id.Canonical())
}

// ParseSpec normalizes a raw dependency list token. Dependency specs use
// the same grammar as identifiers but routinely carry ":type" qualifiers
// and ".var" suffixes; Normalize already strips both, so this is a named
// alias kept for call-site clarity.
func ParseSpec(spec string) Identifier { return Normalize(spec) }
