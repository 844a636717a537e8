package persona

import "fmt"

// builtin tone traits. Each row pairs a display style (interpolated into
// the system instructions) with the prefix/suffix decoration applied to
// responses.
var builtins = []struct {
	name   string
	style  string
	prefix string
	suffix string
}{
	{"friendly", "warm and approachable", "I'd be happy to help! ", " 😊"},
	{"professional", "formal and precise", "Certainly. ", ""},
	{"casual", "relaxed and informal", "Sure thing! ", " 👍"},
	{"empathetic", "understanding and supportive", "I understand. ", " 💙"},
	{"enthusiastic", "energetic and excited", "Awesome question! ", " ✨"},
}

// Builtins returns the fixed set of built-in tone profiles: friendly,
// professional, casual, empathetic, and enthusiastic. If instructions is
// non-empty it replaces the generated system instructions for every tone
// (used when a persona file is configured).
func Builtins(instructions string) []Profile {
	profiles := make([]Profile, 0, len(builtins))
	for _, b := range builtins {
		system := instructions
		if system == "" {
			system = fmt.Sprintf("You are a %s AI companion. Respond in a %s manner.", b.style, b.name)
		}
		profiles = append(profiles, Profile{
			Name:               b.name,
			SystemInstructions: system,
			Style:              Decorate(b.prefix, b.suffix),
		})
	}
	return profiles
}

// DefaultRegistry returns a registry loaded with the built-in profiles.
func DefaultRegistry() *Registry {
	return NewRegistry(Builtins("")...)
}
