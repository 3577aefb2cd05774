// internal/schema/loader.go
//
// YAML type declarations.
//
// Context
// -------
// Widget authors may declare types in YAML instead of Go.  A file lists
// types in dependency order; each parent must be declared earlier in the
// same file, in an earlier file, or in Go before the file is applied.
//
//	types:
//	  - name: Slider
//	    parent: Widget
//	    properties:
//	      - { name: value, type: Float, default: 0 }
//	      - { name: width, override: true, default: 200 }
//
// Workflow
// --------
//   - Parse decodes one document and checks structural rules.
//   - LoadFile reads and parses one file.
//   - Registry.Apply registers parsed declarations in order.
//   - Registry.LoadDir walks a directory for "*.yaml" files in lexical order
//     and applies each.  A missing directory is not an error.
package schema

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yanizio/widgetkit/internal/property"
)

// Declaration mirrors one entry under `types:`.
type Declaration struct {
	Name       string         `yaml:"name"`
	Parent     string         `yaml:"parent"`
	Abstract   bool           `yaml:"abstract"`
	Properties []PropertyDecl `yaml:"properties"`
}

// PropertyDecl mirrors one property entry.  Type is a canonical type
// expression (see property.ParseType) and may be blank on overrides.
type PropertyDecl struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Default  any    `yaml:"default"`
	Override bool   `yaml:"override"`
	Help     string `yaml:"help"`
}

type declFile struct {
	Types []Declaration `yaml:"types"`
}

// Parse decodes a YAML document.  source is used in error messages only.
func Parse(raw []byte, source string) ([]Declaration, error) {
	var f declFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse YAML %s: %w", source, err)
	}
	for i, d := range f.Types {
		if d.Name == "" {
			return nil, fmt.Errorf("declarations %s: type #%d missing 'name'", source, i+1)
		}
		for _, p := range d.Properties {
			if p.Name == "" {
				return nil, fmt.Errorf("declarations %s: type %s has a property missing 'name'", source, d.Name)
			}
			if !p.Override && p.Type == "" {
				return nil, fmt.Errorf("declarations %s: %s.%s missing 'type'", source, d.Name, p.Name)
			}
		}
	}
	return f.Types, nil
}

// LoadFile reads and parses one declaration file.
func LoadFile(path string) ([]Declaration, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read declarations %s: %w", path, err)
	}
	return Parse(raw, path)
}

// Apply registers decls in order and returns the new nodes.  It stops at
// the first failure; types registered before the failure stay registered.
func (r *Registry) Apply(decls []Declaration) ([]*TypeNode, error) {
	out := make([]*TypeNode, 0, len(decls))
	for _, d := range decls {
		var parent *TypeNode
		if d.Parent != "" {
			p, ok := r.Lookup(d.Parent)
			if !ok {
				return out, fmt.Errorf("declare %s: parent %s: %w", d.Name, d.Parent, property.ErrUnknownType)
			}
			parent = p
		}

		props := make([]property.Descriptor, 0, len(d.Properties))
		for _, pd := range d.Properties {
			desc, err := pd.descriptor()
			if err != nil {
				return out, fmt.Errorf("declare %s: %w", d.Name, err)
			}
			props = append(props, desc)
		}

		node, err := r.RegisterType(d.Name, parent, props, d.Abstract)
		if err != nil {
			return out, err
		}
		out = append(out, node)
	}
	return out, nil
}

func (pd PropertyDecl) descriptor() (property.Descriptor, error) {
	var t property.Type
	if pd.Type != "" {
		parsed, err := property.ParseType(pd.Type)
		if err != nil {
			return property.Descriptor{}, err
		}
		t = parsed
	}

	if pd.Override {
		if t == nil {
			return property.Override(pd.Name, pd.Default).WithHelp(pd.Help), nil
		}
		return property.OverrideAs(pd.Name, t, pd.Default).WithHelp(pd.Help), nil
	}

	d, err := property.Declare(pd.Name, t, pd.Default)
	if err != nil {
		return property.Descriptor{}, err
	}
	return d.WithHelp(pd.Help), nil
}

// LoadDir applies every "*.yaml" file under dir in lexical path order.
func (r *Registry) LoadDir(dir string) ([]*TypeNode, error) {
	var out []*TypeNode
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".yaml") {
			return nil
		}
		decls, err := LoadFile(path)
		if err != nil {
			return err
		}
		nodes, err := r.Apply(decls)
		out = append(out, nodes...)
		return err
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return out, err
	}
	return out, nil
}
