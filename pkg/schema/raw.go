// Package schema loads parameter tree definitions from YAML data tables
// and provides a fluent builder for writing them in Go.
//
// A model file lists objects by their schema path, parents before children,
// the same way the Broadband Forum data model documents do:
//
//	name: tr181-device
//	spec: urn:broadband-forum-org:tr-181-2-15-0
//	objects:
//	  - path: Device.WiFi.Radio.{i}.
//	    access: readOnly
//	    numEntriesParameter: RadioNumberOfEntries
//	    parameters:
//	      - name: Channel
//	        type: unsignedInt
//	        access: readWrite
//	        ranges: [{min: 1, max: 255}]
package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RawModel is a model file as loaded from YAML.
type RawModel struct {
	Name        string         `yaml:"name"`
	Spec        string         `yaml:"spec,omitempty"`
	Description string         `yaml:"description,omitempty"`
	Objects     []RawObjectDef `yaml:"objects,omitempty"`
}

// RawObjectDef is an object definition keyed by schema path.
type RawObjectDef struct {
	Path                string            `yaml:"path"`
	Access              string            `yaml:"access,omitempty"` // tables: "readOnly", "readWrite"
	MaxEntries          int               `yaml:"maxEntries,omitempty"`
	NumEntriesParameter string            `yaml:"numEntriesParameter,omitempty"`
	UniqueKeys          [][]string        `yaml:"uniqueKeys,omitempty"`
	ResetOnWrite        *RawResetRule     `yaml:"resetOnWrite,omitempty"`
	Description         string            `yaml:"description,omitempty"`
	Parameters          []RawParameterDef `yaml:"parameters,omitempty"`
}

// RawResetRule is the YAML form of model.ResetRule.
type RawResetRule struct {
	Parameter string `yaml:"parameter,omitempty"`
	Value     any    `yaml:"value,omitempty"`
}

// RawParameterDef is a parameter definition.
type RawParameterDef struct {
	Name         string        `yaml:"name"`
	Type         string        `yaml:"type"`
	Access       string        `yaml:"access,omitempty"`
	Default      any           `yaml:"default,omitempty"`
	Ranges       []RawRange    `yaml:"ranges,omitempty"`
	MinLength    int           `yaml:"minLength,omitempty"`
	MaxLength    int           `yaml:"maxLength,omitempty"`
	Enum         []string      `yaml:"enum,omitempty"`
	Pattern      string        `yaml:"pattern,omitempty"`
	List         bool          `yaml:"list,omitempty"`
	Unit         string        `yaml:"unit,omitempty"`
	Notification string        `yaml:"notification,omitempty"` // "off", "passive", "active"
	ActiveNotify string        `yaml:"activeNotify,omitempty"` // "normal", "forceEnabled", ...
	Reference    *RawReference `yaml:"reference,omitempty"`
	Description  string        `yaml:"description,omitempty"`
}

// RawRange is an inclusive numeric range. Either bound may be omitted.
type RawRange struct {
	Min any `yaml:"min"`
	Max any `yaml:"max"`
}

// RawReference is the YAML form of model.ReferenceDef.
type RawReference struct {
	Targets  []string `yaml:"targets,omitempty"`
	OnDelete string   `yaml:"onDelete,omitempty"` // "clear", "deleteReferrer"
}

// Parse parses a model file from YAML bytes.
func Parse(data []byte) (*RawModel, error) {
	var m RawModel
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing model: %w", err)
	}
	if m.Name == "" {
		return nil, fmt.Errorf("model definition missing name")
	}
	if len(m.Objects) == 0 {
		return nil, fmt.Errorf("model %s has no objects", m.Name)
	}
	return &m, nil
}

// Load loads and parses a model file.
func Load(path string) (*RawModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}
