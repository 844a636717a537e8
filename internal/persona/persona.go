// Package persona manages companion personality tones and response styling.
//
// A profile couples the system instructions sent to the language model
// with a style rule applied to the final response text. Styling is plain
// string decoration, so tone stays consistent whether the text came from
// the real backend or the demo fallback.
package persona

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownProfile is returned by [Registry.Get] for unregistered tone
// names. Lookup is exact-match only — no case folding, no fallback — so
// a misspelled tone surfaces as a caller error instead of silently
// substituting a different personality.
var ErrUnknownProfile = errors.New("unknown tone profile")

// StyleRule transforms raw response text into tone-decorated text.
// Rules must be pure: deterministic, no side effects.
type StyleRule func(text string) string

// Profile is one named personality variant. Profiles are immutable after
// registration; selection never mutates the profile.
type Profile struct {
	// Name identifies the profile for lookup and UI display.
	Name string

	// SystemInstructions is the fully resolved system prompt for this tone.
	SystemInstructions string

	// Style decorates response text. Applied exactly once per response.
	Style StyleRule
}

// Registry is a fixed catalog of tone profiles, initialized once at
// startup and read-only thereafter.
type Registry struct {
	profiles map[string]Profile
	order    []string
}

// NewRegistry creates a registry containing the given profiles, in order.
func NewRegistry(profiles ...Profile) *Registry {
	r := &Registry{profiles: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		if _, dup := r.profiles[p.Name]; dup {
			continue
		}
		r.profiles[p.Name] = p
		r.order = append(r.order, p.Name)
	}
	return r
}

// List returns all profile names in registration order.
func (r *Registry) List() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Get returns the profile registered under name. The match is exact;
// unknown names return [ErrUnknownProfile].
func (r *Registry) Get(name string) (Profile, error) {
	p, ok := r.profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return p, nil
}

// ApplyStyle runs the profile's style rule over text. Pure and
// deterministic; empty text is returned unchanged.
func (r *Registry) ApplyStyle(p Profile, text string) string {
	if strings.TrimSpace(text) == "" || p.Style == nil {
		return text
	}
	return p.Style(text)
}

// Decorate returns a style rule that wraps text in a fixed prefix and suffix.
func Decorate(prefix, suffix string) StyleRule {
	return func(text string) string {
		return prefix + text + suffix
	}
}

// EnsureSuffix returns a style rule that appends suffix unless the text
// already ends with it.
func EnsureSuffix(suffix string) StyleRule {
	return func(text string) string {
		if strings.HasSuffix(text, suffix) {
			return text
		}
		return text + suffix
	}
}
