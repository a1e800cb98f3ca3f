package theme

import (
	"fmt"
	"sort"

	"github.com/iconidentify/mediaslayer/internal/domain"
)

// Set is the collection of themes a front end can serve, with one default.
type Set struct {
	themes      map[string]Theme
	defaultName string
}

// NewSet returns a set holding the built-in themes plus extra. Extra themes
// replace built-ins of the same name. defaultName must name a theme in the
// set; an empty name selects the plain theme.
func NewSet(defaultName string, extra ...Theme) (*Set, error) {
	s := &Set{themes: make(map[string]Theme, len(builtin)+len(extra))}
	for name, t := range builtin {
		s.themes[name] = t
	}
	for _, t := range extra {
		if t.Name == "" {
			return nil, fmt.Errorf("theme without name")
		}
		s.themes[t.Name] = t
	}

	if defaultName == "" {
		defaultName = PlainName
	}
	if _, ok := s.themes[defaultName]; !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownTheme, defaultName)
	}
	s.defaultName = defaultName
	return s, nil
}

// Get returns the named theme. An empty name returns the default.
func (s *Set) Get(name string) (Theme, error) {
	if name == "" {
		return s.Default(), nil
	}
	t, ok := s.themes[name]
	if !ok {
		return Theme{}, fmt.Errorf("%w: %q", domain.ErrUnknownTheme, name)
	}
	return t, nil
}

// Default returns the default theme.
func (s *Set) Default() Theme {
	return s.themes[s.defaultName]
}

// Names returns the theme names in sorted order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.themes))
	for name := range s.themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
