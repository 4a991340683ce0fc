// Package identity parses and validates the project:role:instance triples
// that name service instances, and the glob-shaped patterns that match them.
//
// This package is pure: no I/O, no globals, no dependency on the registry.
package identity

import (
	"fmt"
	"strings"
)

const maxSegmentLen = 64

// segmentCharset reports whether r is a legal identity/pattern character:
// letters, digits, underscore, hyphen.
func segmentCharset(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z':
		return true
	case r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-':
		return true
	default:
		return false
	}
}

// Identity is a validated, wildcard-free project:role:instance triple.
type Identity struct {
	Project  string
	Role     string
	Instance string
}

// String renders the identity back to its canonical "project:role:instance" form.
func (id Identity) String() string {
	return id.Project + ":" + id.Role + ":" + id.Instance
}

// Pattern is a 3-segment matcher where any segment (or the whole string)
// may be the wildcard "*".
type Pattern struct {
	Project  string
	Role     string
	Instance string
	// MatchAll is true when the original pattern string was the bare "*",
	// which short-circuits to "match every identity".
	MatchAll bool
}

// ParseIdentity validates s as a concrete (non-wildcard) identity.
//
// Errors returned contain one of: "wildcard", "segments", "too long",
// "invalid characters" — matching the taxonomy in the specification — or
// "empty" for an empty identity or an empty segment.
func ParseIdentity(s string) (Identity, error) {
	if s == "" {
		return Identity{}, fmt.Errorf("identity: empty identity")
	}
	if strings.Contains(s, "*") {
		return Identity{}, fmt.Errorf("identity: wildcard not allowed in identity %q", s)
	}

	segs := strings.Split(s, ":")
	if len(segs) != 3 {
		return Identity{}, fmt.Errorf("identity: %d segments, want 3 in %q", len(segs), s)
	}

	for _, seg := range segs {
		if err := validateSegment(seg); err != nil {
			return Identity{}, err
		}
	}

	return Identity{Project: segs[0], Role: segs[1], Instance: segs[2]}, nil
}

// ParsePattern validates s as a pattern: any segment, or the whole string,
// may be "*". Patterns may be shorter than 3 segments — "myapp" expands to
// "myapp:*:*", "myapp:*" expands to "myapp:*:*" — trailing segments default
// to the wildcard.
func ParsePattern(s string) (Pattern, error) {
	if s == "" {
		return Pattern{}, fmt.Errorf("identity: empty pattern")
	}
	if s == "*" {
		return Pattern{Project: "*", Role: "*", Instance: "*", MatchAll: true}, nil
	}

	segs := strings.Split(s, ":")
	if len(segs) > 3 {
		return Pattern{}, fmt.Errorf("identity: %d segments, want at most 3 in %q", len(segs), s)
	}
	for len(segs) < 3 {
		segs = append(segs, "*")
	}

	for _, seg := range segs {
		if seg == "*" {
			continue
		}
		if err := validateSegment(seg); err != nil {
			return Pattern{}, err
		}
	}

	return Pattern{Project: segs[0], Role: segs[1], Instance: segs[2]}, nil
}

// validateSegment checks length and charset for a single identity/pattern segment.
func validateSegment(seg string) error {
	if seg == "" {
		return fmt.Errorf("identity: empty segment")
	}
	if len(seg) > maxSegmentLen {
		return fmt.Errorf("identity: segment %q too long (max %d)", seg, maxSegmentLen)
	}
	for _, r := range seg {
		if !segmentCharset(r) {
			return fmt.Errorf("identity: invalid characters in segment %q", seg)
		}
	}
	return nil
}

// Matches reports whether id satisfies pattern, segment-wise, with "*"
// matching any value in that position. A whole-string "*" pattern matches
// every identity.
func Matches(p Pattern, id Identity) bool {
	if p.MatchAll {
		return true
	}
	return matchSegment(p.Project, id.Project) &&
		matchSegment(p.Role, id.Role) &&
		matchSegment(p.Instance, id.Instance)
}

func matchSegment(pat, val string) bool {
	return pat == "*" || pat == val
}
