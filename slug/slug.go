// Package slug derives URL-safe post identifiers from human titles.
package slug

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// MaxLen is the backend's limit on slug length.
const MaxLen = 36

var (
	nonAlnum   = regexp.MustCompile(`[^a-zA-Z0-9\s]+`)
	whitespace = regexp.MustCompile(`\s+`)
	hyphenRuns = regexp.MustCompile(`-{2,}`)
)

// Derive builds a slug from a title and a session suffix. The title is
// trimmed, lowercased, and punctuation/whitespace runs become single
// hyphens; the suffix is appended and the whole result is cut to MaxLen.
// A blank title yields the empty string so required-field validation can
// reject it. Very long titles can truncate into the suffix itself, which
// weakens (but does not remove) its uniqueness.
func Derive(title, suffix string) string {
	base := strings.TrimSpace(title)
	if base == "" {
		return ""
	}

	base = strings.ToLower(base)
	base = nonAlnum.ReplaceAllString(base, "-")
	base = whitespace.ReplaceAllString(base, "-")
	base = hyphenRuns.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")

	s := base + "-" + suffix
	if len(s) > MaxLen {
		s = s[:MaxLen]
	}
	return s
}

// Generator recomputes a post's slug as its title is edited. The suffix is
// fixed for the lifetime of one form session, so retyping the title keeps
// the same trailing bytes.
type Generator struct {
	suffix string
}

// NewGenerator creates a Generator with a fresh random session suffix.
func NewGenerator() *Generator {
	return &Generator{suffix: NewSuffix()}
}

// NewGeneratorWithSuffix creates a Generator with a caller-supplied suffix,
// e.g. one handed to a client when its form session was opened.
func NewGeneratorWithSuffix(suffix string) *Generator {
	return &Generator{suffix: suffix}
}

// NewSuffix returns a random token suitable as a session suffix.
func NewSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Suffix returns the generator's session suffix.
func (g *Generator) Suffix() string {
	return g.suffix
}

// Derive computes the slug for the current title.
func (g *Generator) Derive(title string) string {
	return Derive(title, g.suffix)
}
