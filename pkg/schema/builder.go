package schema

import "github.com/paramtree/paramtree-go/pkg/model"

// ObjectBuilder builds an object definition fluently:
//
//	def, err := schema.Object("Device").
//		Param(schema.Param("UpTime", model.DataTypeUnsignedInt).Unit("seconds")).
//		Child(schema.Table("Host").Count("HostNumberOfEntries")).
//		Build()
type ObjectBuilder struct {
	def *model.ObjectDef
}

// Object starts a singleton object.
func Object(name string) *ObjectBuilder {
	return &ObjectBuilder{def: &model.ObjectDef{Name: name}}
}

// Table starts a multi-instance object. Rows are read-only for the
// management protocol until Writable is called.
func Table(name string) *ObjectBuilder {
	return &ObjectBuilder{def: &model.ObjectDef{Name: name, MultiInstance: true, Access: model.AccessReadOnly}}
}

// Writable lets the management protocol add and delete rows.
func (b *ObjectBuilder) Writable() *ObjectBuilder {
	b.def.Access = model.AccessReadWrite
	return b
}

// MaxEntries bounds the number of rows.
func (b *ObjectBuilder) MaxEntries(n int) *ObjectBuilder {
	b.def.MaxEntries = n
	return b
}

// Count names the parent's NumberOfEntries parameter.
func (b *ObjectBuilder) Count(param string) *ObjectBuilder {
	b.def.CountParameter = param
	return b
}

// Unique declares a unique key over the named parameters.
func (b *ObjectBuilder) Unique(params ...string) *ObjectBuilder {
	b.def.UniqueKeys = append(b.def.UniqueKeys, params)
	return b
}

// ResetOnWrite declares the diagnostics reset rule.
func (b *ObjectBuilder) ResetOnWrite(param string, value any) *ObjectBuilder {
	b.def.ResetOnWrite = &model.ResetRule{Parameter: param, Value: value}
	return b
}

// Describe sets the description.
func (b *ObjectBuilder) Describe(text string) *ObjectBuilder {
	b.def.Description = text
	return b
}

// Param adds parameters.
func (b *ObjectBuilder) Param(params ...*ParamBuilder) *ObjectBuilder {
	for _, p := range params {
		b.def.Parameters = append(b.def.Parameters, p.def)
	}
	return b
}

// Child adds child objects or tables.
func (b *ObjectBuilder) Child(children ...*ObjectBuilder) *ObjectBuilder {
	for _, c := range children {
		b.def.Objects = append(b.def.Objects, c.def)
	}
	return b
}

// Def returns the definition without compiling it.
func (b *ObjectBuilder) Def() *model.ObjectDef {
	return b.def
}

// Build compiles the definition. Call it on the root only.
func (b *ObjectBuilder) Build() (*model.ObjectDef, error) {
	if err := b.def.Compile(); err != nil {
		return nil, err
	}
	return b.def, nil
}

// ParamBuilder builds a parameter definition.
type ParamBuilder struct {
	def *model.ParameterDef
}

// Param starts a read-only parameter.
func Param(name string, typ model.DataType) *ParamBuilder {
	return &ParamBuilder{def: &model.ParameterDef{Name: name, Type: typ, Access: model.AccessReadOnly}}
}

// String starts a read-only string parameter.
func String(name string) *ParamBuilder { return Param(name, model.DataTypeString) }

// Bool starts a read-only boolean parameter.
func Bool(name string) *ParamBuilder { return Param(name, model.DataTypeBoolean) }

// Uint starts a read-only unsignedInt parameter.
func Uint(name string) *ParamBuilder { return Param(name, model.DataTypeUnsignedInt) }

// Int starts a read-only int parameter.
func Int(name string) *ParamBuilder { return Param(name, model.DataTypeInt) }

// Long starts a read-only long parameter.
func Long(name string) *ParamBuilder { return Param(name, model.DataTypeLong) }

// Writable makes the parameter writable by the management protocol.
func (p *ParamBuilder) Writable() *ParamBuilder {
	p.def.Access = model.AccessReadWrite
	return p
}

// Default sets the value applied at creation.
func (p *ParamBuilder) Default(v any) *ParamBuilder {
	p.def.Default = v
	return p
}

// Range adds an inclusive range. A nil bound is unbounded.
func (p *ParamBuilder) Range(lo, hi any) *ParamBuilder {
	p.def.Ranges = append(p.def.Ranges, model.Range{Min: lo, Max: hi})
	return p
}

// Length bounds the string or byte length. A max of 0 is unbounded.
func (p *ParamBuilder) Length(lo, hi int) *ParamBuilder {
	p.def.MinLength, p.def.MaxLength = lo, hi
	return p
}

// Enum restricts the value to the given strings.
func (p *ParamBuilder) Enum(values ...string) *ParamBuilder {
	p.def.Enum = values
	return p
}

// Pattern restricts the value to a regular expression.
func (p *ParamBuilder) Pattern(re string) *ParamBuilder {
	p.def.Pattern = re
	return p
}

// List marks a comma-separated list value.
func (p *ParamBuilder) List() *ParamBuilder {
	p.def.List = true
	return p
}

// Unit sets the unit of measurement.
func (p *ParamBuilder) Unit(unit string) *ParamBuilder {
	p.def.Unit = unit
	return p
}

// Notify sets the initial notification level and active notify policy.
func (p *ParamBuilder) Notify(level model.Notification, policy model.ActiveNotify) *ParamBuilder {
	p.def.Notification = level
	p.def.ActiveNotify = policy
	return p
}

// Ref marks the parameter as a path reference to objects of the given
// schema paths.
func (p *ParamBuilder) Ref(onDelete model.RefPolicy, targets ...string) *ParamBuilder {
	p.def.Reference = &model.ReferenceDef{TargetTypes: targets, OnDelete: onDelete}
	return p
}

// Describe sets the description.
func (p *ParamBuilder) Describe(text string) *ParamBuilder {
	p.def.Description = text
	return p
}
