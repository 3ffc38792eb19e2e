package model

import (
	"fmt"
	"slices"
	"strings"
)

// InstanceSegment is the schema path segment that stands for an instance
// number of a multi-instance object.
const InstanceSegment = "{i}"

// ResetRule declares that writing any other writable parameter of the
// object through the management protocol resets Parameter to Value.
// It models the DiagnosticsState behavior of the TR-143 diagnostics objects.
type ResetRule struct {
	Parameter string
	Value     any
}

// ObjectDef describes an object of the data model: its parameters and
// child objects. Multi-instance objects (tables) are ObjectDefs with
// MultiInstance set; their rows share the definition.
type ObjectDef struct {
	// Name is the local object name.
	Name string

	// MultiInstance marks a table.
	MultiInstance bool

	// Access for a table defines whether the management protocol may add
	// and delete rows. It is ignored for singleton objects.
	Access Access

	// MaxEntries bounds the number of rows of a table. 0 is unbounded.
	MaxEntries int

	// CountParameter names the unsignedInt parameter of the parent object
	// that tracks the number of rows (e.g. "RadioNumberOfEntries").
	CountParameter string

	// UniqueKeys lists parameter name sets that must be unique among rows.
	UniqueKeys [][]string

	// ResetOnWrite is the optional diagnostics reset rule.
	ResetOnWrite *ResetRule

	// Parameters are the object's parameters, in schema order.
	Parameters []*ParameterDef

	// Objects are the child objects and tables, in schema order.
	Objects []*ObjectDef

	// Description is a human-readable description.
	Description string

	parent   *ObjectDef
	params   map[string]*ParameterDef
	objects  map[string]*ObjectDef
	compiled bool
}

// Parent returns the parent definition, or nil for the root.
func (o *ObjectDef) Parent() *ObjectDef {
	return o.parent
}

// Parameter returns the parameter definition with the given name.
func (o *ObjectDef) Parameter(name string) (*ParameterDef, bool) {
	p, ok := o.params[name]
	return p, ok
}

// Object returns the child object definition with the given name.
func (o *ObjectDef) Object(name string) (*ObjectDef, bool) {
	c, ok := o.objects[name]
	return c, ok
}

// SchemaPath returns the object's path with "{i}" for table segments,
// e.g. "Device.WiFi.Radio.{i}.".
func (o *ObjectDef) SchemaPath() string {
	var segs []string
	for d := o; d != nil; d = d.parent {
		if d.MultiInstance {
			segs = append(segs, InstanceSegment)
		}
		segs = append(segs, d.Name)
	}
	slices.Reverse(segs)
	return strings.Join(segs, ".") + "."
}

// Find returns the definition at a schema path relative to this object.
// The first segment must name this object.
func (o *ObjectDef) Find(schemaPath string) (*ObjectDef, bool) {
	segs := strings.Split(strings.TrimSuffix(schemaPath, "."), ".")
	if len(segs) == 0 || segs[0] != o.Name {
		return nil, false
	}
	d := o
	for _, seg := range segs[1:] {
		if seg == InstanceSegment {
			if !d.MultiInstance {
				return nil, false
			}
			continue
		}
		c, ok := d.objects[seg]
		if !ok {
			return nil, false
		}
		d = c
	}
	return d, true
}

// Compiled reports whether Compile has succeeded on this definition.
func (o *ObjectDef) Compiled() bool {
	return o.compiled
}

// Compile indexes the definition tree and checks it for consistency.
// It must be called on the root before the definition is used; NewTree
// calls it if needed.
func (o *ObjectDef) Compile() error {
	if o.MultiInstance {
		return fmt.Errorf("%w: root object %s cannot be multi-instance", ErrInvalidSchema, o.Name)
	}
	if err := o.compile(nil); err != nil {
		return err
	}
	if err := o.compileReferences(o); err != nil {
		o.compiled = false
		return err
	}
	return nil
}

func (o *ObjectDef) compile(parent *ObjectDef) error {
	if o.Name == "" || strings.ContainsAny(o.Name, ". {}") {
		return fmt.Errorf("%w: invalid object name %q", ErrInvalidSchema, o.Name)
	}
	o.parent = parent
	o.params = make(map[string]*ParameterDef, len(o.Parameters))
	o.objects = make(map[string]*ObjectDef, len(o.Objects))

	for _, p := range o.Parameters {
		if err := p.compile(); err != nil {
			return fmt.Errorf("%s%w", o.pathForError(), err)
		}
		if _, dup := o.params[p.Name]; dup {
			return fmt.Errorf("%w: %sduplicate parameter %s", ErrInvalidSchema, o.pathForError(), p.Name)
		}
		o.params[p.Name] = p
	}

	for _, c := range o.Objects {
		if _, dup := o.objects[c.Name]; dup {
			return fmt.Errorf("%w: %sduplicate object %s", ErrInvalidSchema, o.pathForError(), c.Name)
		}
		if _, clash := o.params[c.Name]; clash {
			return fmt.Errorf("%w: %s%s is both parameter and object", ErrInvalidSchema, o.pathForError(), c.Name)
		}
		o.objects[c.Name] = c
		if err := c.compile(o); err != nil {
			return err
		}
	}

	if !o.MultiInstance && (len(o.UniqueKeys) > 0 || o.CountParameter != "" || o.MaxEntries != 0) {
		return fmt.Errorf("%w: %s is not a table", ErrInvalidSchema, o.SchemaPath())
	}
	for _, key := range o.UniqueKeys {
		if len(key) == 0 {
			return fmt.Errorf("%w: %s empty unique key", ErrInvalidSchema, o.SchemaPath())
		}
		for _, name := range key {
			if _, ok := o.params[name]; !ok {
				return fmt.Errorf("%w: %s unique key names unknown parameter %s", ErrInvalidSchema, o.SchemaPath(), name)
			}
		}
	}
	if o.CountParameter != "" {
		p, ok := parent.params[o.CountParameter]
		if !ok || p.Type != DataTypeUnsignedInt {
			return fmt.Errorf("%w: %s count parameter %s must be an unsignedInt of the parent",
				ErrInvalidSchema, o.SchemaPath(), o.CountParameter)
		}
	}
	if r := o.ResetOnWrite; r != nil {
		p, ok := o.params[r.Parameter]
		if !ok {
			return fmt.Errorf("%w: %s reset rule names unknown parameter %s", ErrInvalidSchema, o.SchemaPath(), r.Parameter)
		}
		v, err := p.Validate(r.Value)
		if err != nil {
			return fmt.Errorf("%w: %s reset value: %v", ErrInvalidSchema, o.SchemaPath(), err)
		}
		r.Value = v
	}

	o.compiled = true
	return nil
}

// compileReferences checks that reference target types exist in the schema.
func (o *ObjectDef) compileReferences(root *ObjectDef) error {
	for _, p := range o.Parameters {
		if p.Reference == nil {
			continue
		}
		for _, target := range p.Reference.TargetTypes {
			if _, ok := root.Find(target); !ok {
				return fmt.Errorf("%w: %s%s references unknown object %s",
					ErrInvalidSchema, o.SchemaPath(), p.Name, target)
			}
		}
	}
	for _, c := range o.Objects {
		if err := c.compileReferences(root); err != nil {
			return err
		}
	}
	return nil
}

func (o *ObjectDef) pathForError() string {
	return o.SchemaPath() + ": "
}
