package domain

import "strings"

// PathSeparator joins the segments of a Path in its string form.
const PathSeparator = "/"

// Path locates an object in the external store's hierarchy.
type Path []string

// ParsePath splits a rendered path. Empty segments are not allowed.
func ParsePath(s string) (Path, bool) {
	if s == "" {
		return nil, false
	}
	parts := strings.Split(s, PathSeparator)
	for _, p := range parts {
		if p == "" {
			return nil, false
		}
	}
	return Path(parts), true
}

// SegmentRoot is the path of a provider's activity segment. All objects the
// adapter reads or writes live below it.
func SegmentRoot(provider, segment string) Path {
	return Path{"activity1", "provider", provider, "segment", segment}
}

func (p Path) String() string { return strings.Join(p, PathSeparator) }

// IsZero reports whether p has no segments.
func (p Path) IsZero() bool { return len(p) == 0 }

// Descendant returns a new path extended by segs. p is not modified.
func (p Path) Descendant(segs ...string) Path {
	out := make(Path, 0, len(p)+len(segs))
	out = append(out, p...)
	return append(out, segs...)
}

// Parent drops the last segment. The parent of a single segment path is empty.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[: len(p)-1 : len(p)-1]
}

// LastSegment returns the final segment, or "" for the empty path.
func (p Path) LastSegment() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Equal compares segment by segment.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether root is a strict ancestor of p.
func (p Path) HasPrefix(root Path) bool {
	if len(p) <= len(root) {
		return false
	}
	return p[:len(root)].Equal(root)
}

// RelativeTo returns the segments of p below root.
func (p Path) RelativeTo(root Path) (Path, bool) {
	if !p.HasPrefix(root) {
		return nil, false
	}
	return p[len(root):], true
}
