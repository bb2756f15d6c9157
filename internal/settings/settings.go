// Package settings persists visualizer parameters as named elements of
// integer attributes in a YAML document.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Attributes are the named values of one element.
type Attributes map[string]int

// Int returns the attribute and whether it was present.
func (a Attributes) Int(name string) (int, bool) {
	v, ok := a[name]
	return v, ok
}

// Document is a set of elements keyed by name.
type Document struct {
	elements map[string]Attributes
	dropped  []string
}

func NewDocument() *Document {
	return &Document{elements: make(map[string]Attributes)}
}

// Element returns a copy of the named element.
func (d *Document) Element(name string) (Attributes, bool) {
	e, ok := d.elements[name]
	if !ok {
		return nil, false
	}
	out := make(Attributes, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out, true
}

// SetElement replaces the named element.
func (d *Document) SetElement(name string, attrs Attributes) {
	e := make(Attributes, len(attrs))
	for k, v := range attrs {
		e[k] = v
	}
	d.elements[name] = e
}

// Names lists the element names in order.
func (d *Document) Names() []string {
	names := make([]string, 0, len(d.elements))
	for n := range d.elements {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Dropped lists elements that could not be decoded when parsing.
func (d *Document) Dropped() []string { return d.dropped }

// Parse reads a document. Elements that are not a mapping of integers are
// dropped rather than failing the whole document.
func Parse(data []byte) (*Document, error) {
	d := NewDocument()
	raw := map[string]yaml.Node{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	for name, node := range raw {
		var attrs Attributes
		if err := node.Decode(&attrs); err != nil || attrs == nil {
			d.dropped = append(d.dropped, name)
			continue
		}
		d.elements[name] = attrs
	}
	sort.Strings(d.dropped)
	return d, nil
}

// Marshal encodes the document.
func (d *Document) Marshal() ([]byte, error) {
	return yaml.Marshal(d.elements)
}

// Load reads the document at path. A missing file yields an empty document.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}
	return Parse(data)
}

// Save writes the document to path.
func (d *Document) Save(path string) error {
	data, err := d.Marshal()
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o660); err != nil {
		return fmt.Errorf("write settings %s: %w", path, err)
	}
	return nil
}
