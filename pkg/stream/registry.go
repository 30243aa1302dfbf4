package stream

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Registry keeps named sector layouts in registration order.
type Registry struct {
	byName map[string]int
	order  []Layout
}

// layoutFile is the on-disk form of a set of layouts.
type layoutFile struct {
	Layouts []Layout `yaml:"layouts"`
}

// NewRegistry creates a registry holding the given layouts.
func NewRegistry(layouts ...Layout) (*Registry, error) {
	r := &Registry{byName: make(map[string]int)}
	for _, l := range layouts {
		if err := r.Register(l); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DefaultRegistry returns a registry with the canonical CD-ROM layouts.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(Mode1(), Mode2(), XAForm1(), XAForm2())
	if err != nil {
		panic(err)
	}
	return r
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds l to the registry. A layout with the same name is replaced.
func (r *Registry) Register(l Layout) error {
	if normalizeName(l.Name) == "" {
		return fmt.Errorf("%w: layout has no name", ErrInvalidLayout)
	}
	if err := l.Validate(); err != nil {
		return err
	}
	key := normalizeName(l.Name)
	if i, ok := r.byName[key]; ok {
		r.order[i] = l
		return nil
	}
	r.byName[key] = len(r.order)
	r.order = append(r.order, l)
	return nil
}

// Lookup finds a layout by name, ignoring case.
func (r *Registry) Lookup(name string) (Layout, error) {
	i, ok := r.byName[normalizeName(name)]
	if !ok {
		return Layout{}, fmt.Errorf("unknown sector layout %q (available: %s)", name, strings.Join(r.Names(), ", "))
	}
	return r.order[i], nil
}

// Names returns the registered layout names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	for i, l := range r.order {
		names[i] = l.Name
	}
	return names
}

// Layouts returns a copy of the registered layouts.
func (r *Registry) Layouts() []Layout {
	out := make([]Layout, len(r.order))
	copy(out, r.order)
	return out
}

// LoadLayouts decodes a yaml document of the form
//
//	layouts:
//	  - name: mode2-form1-cooked
//	    lead_in: 0
//	    chunk_size: 2048
//	    trail_out: 0
//
// and validates every layout in it.
func LoadLayouts(r io.Reader) ([]Layout, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file layoutFile
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse layouts: %w", err)
	}
	for i, l := range file.Layouts {
		if normalizeName(l.Name) == "" {
			return nil, fmt.Errorf("%w: layout %d has no name", ErrInvalidLayout, i)
		}
		if err := l.Validate(); err != nil {
			return nil, err
		}
	}
	return file.Layouts, nil
}

// WriteLayouts encodes layouts in the format read by LoadLayouts.
func WriteLayouts(w io.Writer, layouts []Layout) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(layoutFile{Layouts: layouts}); err != nil {
		return err
	}
	return enc.Close()
}
