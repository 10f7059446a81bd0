package resolve

import (
	"fmt"
	"net/url"
	"strings"
)

// Mode selects how image references are turned into absolute URLs.
type Mode string

const (
	// ModeLiteral appends relative references to the page URL as text.
	ModeLiteral Mode = "literal"
	// ModeStandard resolves references per RFC 3986.
	ModeStandard Mode = "standard"
)

// Resolver turns image references into absolute image URLs.
type Resolver struct {
	mode Mode
}

// New creates a Resolver. An empty mode selects ModeLiteral.
func New(mode Mode) (*Resolver, error) {
	switch mode {
	case "":
		mode = ModeLiteral
	case ModeLiteral, ModeStandard:
	default:
		return nil, fmt.Errorf("unknown resolve mode %q", mode)
	}
	return &Resolver{mode: mode}, nil
}

// Mode returns the resolution mode in use.
func (r *Resolver) Mode() Mode {
	return r.mode
}

// Resolve returns the absolute URL for ref found on the page at base.
func (r *Resolver) Resolve(base, ref string) (string, error) {
	if r.mode == ModeStandard {
		return Standard(base, ref)
	}
	return Literal(base, ref), nil
}

// IsAbsolute reports whether ref already carries an http or https scheme.
func IsAbsolute(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// Literal keeps absolute references unchanged and otherwise joins base
// (trailing slashes removed) and ref with a single slash. Root-relative and
// parent-relative references are not interpreted.
func Literal(base, ref string) string {
	if IsAbsolute(ref) {
		return ref
	}
	return strings.TrimRight(base, "/") + "/" + ref
}

// Standard resolves ref against base following RFC 3986.
func Standard(base, ref string) (string, error) {
	if IsAbsolute(ref) {
		return ref, nil
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("failed to parse base URL %q: %w", base, err)
	}
	if !baseURL.IsAbs() {
		return "", fmt.Errorf("base URL %q is not absolute", base)
	}

	refURL, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", fmt.Errorf("failed to parse reference %q: %w", ref, err)
	}

	return baseURL.ResolveReference(refURL).String(), nil
}
