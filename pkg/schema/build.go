package schema

import (
	"fmt"
	"strings"

	"github.com/paramtree/paramtree-go/pkg/model"
)

// Build converts one or more model files into a compiled definition.
// Later files may add objects to, or parameters to objects of, earlier
// ones; this is how the TR-143 diagnostics are merged into TR-181.
func Build(models ...*RawModel) (*model.ObjectDef, error) {
	b := &defBuilder{index: make(map[string]*model.ObjectDef)}
	for _, m := range models {
		for i := range m.Objects {
			if err := b.addObject(&m.Objects[i]); err != nil {
				return nil, fmt.Errorf("%s: %w", m.Name, err)
			}
		}
	}
	if b.root == nil {
		return nil, fmt.Errorf("%w: no root object", model.ErrInvalidSchema)
	}
	if err := b.root.Compile(); err != nil {
		return nil, err
	}
	return b.root, nil
}

// LoadFiles loads and builds the model files at paths.
func LoadFiles(paths ...string) (*model.ObjectDef, error) {
	models := make([]*RawModel, 0, len(paths))
	for _, p := range paths {
		m, err := Load(p)
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return Build(models...)
}

type defBuilder struct {
	root  *model.ObjectDef
	index map[string]*model.ObjectDef
}

func (b *defBuilder) addObject(raw *RawObjectDef) error {
	path := raw.Path
	if !strings.HasSuffix(path, ".") {
		path += "."
	}
	segs := strings.Split(strings.TrimSuffix(path, "."), ".")

	table := segs[len(segs)-1] == model.InstanceSegment
	nameIdx := len(segs) - 1
	if table {
		nameIdx--
	}
	if nameIdx < 0 {
		return fmt.Errorf("%w: invalid object path %q", model.ErrInvalidSchema, raw.Path)
	}

	obj, exists := b.index[path]
	if !exists {
		obj = &model.ObjectDef{Name: segs[nameIdx], MultiInstance: table}
		if nameIdx == 0 {
			if table {
				return fmt.Errorf("%w: root object %s cannot be a table", model.ErrInvalidSchema, path)
			}
			if b.root != nil {
				return fmt.Errorf("%w: second root object %s (have %s)", model.ErrInvalidSchema, path, b.root.Name)
			}
			b.root = obj
		} else {
			parentPath := strings.Join(segs[:nameIdx], ".") + "."
			parent, ok := b.index[parentPath]
			if !ok {
				return fmt.Errorf("%w: %s defined before its parent %s", model.ErrInvalidSchema, path, parentPath)
			}
			parent.Objects = append(parent.Objects, obj)
		}
		b.index[path] = obj
	}

	if err := applyObjectAttrs(obj, raw); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	for i := range raw.Parameters {
		p, err := convertParameter(&raw.Parameters[i])
		if err != nil {
			return fmt.Errorf("%s%s: %w", path, raw.Parameters[i].Name, err)
		}
		obj.Parameters = append(obj.Parameters, p)
	}
	return nil
}

func applyObjectAttrs(obj *model.ObjectDef, raw *RawObjectDef) error {
	if raw.Access != "" {
		a, err := model.ParseAccess(raw.Access)
		if err != nil {
			return err
		}
		obj.Access = a
	}
	if raw.MaxEntries != 0 {
		obj.MaxEntries = raw.MaxEntries
	}
	if raw.NumEntriesParameter != "" {
		obj.CountParameter = raw.NumEntriesParameter
	}
	if len(raw.UniqueKeys) > 0 {
		obj.UniqueKeys = append(obj.UniqueKeys, raw.UniqueKeys...)
	}
	if raw.ResetOnWrite != nil {
		obj.ResetOnWrite = &model.ResetRule{Parameter: raw.ResetOnWrite.Parameter, Value: raw.ResetOnWrite.Value}
	}
	if raw.Description != "" {
		obj.Description = raw.Description
	}
	return nil
}

func convertParameter(raw *RawParameterDef) (*model.ParameterDef, error) {
	typ, err := model.ParseDataType(raw.Type)
	if err != nil {
		return nil, err
	}
	access, err := model.ParseAccess(raw.Access)
	if err != nil {
		return nil, err
	}
	notif, err := model.ParseNotification(raw.Notification)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidSchema, err)
	}
	active, err := model.ParseActiveNotify(raw.ActiveNotify)
	if err != nil {
		return nil, err
	}

	p := &model.ParameterDef{
		Name:         raw.Name,
		Type:         typ,
		Access:       access,
		Default:      raw.Default,
		MinLength:    raw.MinLength,
		MaxLength:    raw.MaxLength,
		Enum:         raw.Enum,
		Pattern:      raw.Pattern,
		List:         raw.List,
		Unit:         raw.Unit,
		Notification: notif,
		ActiveNotify: active,
		Description:  strings.TrimSpace(raw.Description),
	}
	// YAML scalars like `default: 3` decode as int; strings are parsed by
	// the type, so the textual form is the portable one.
	if raw.Default != nil {
		if _, isString := raw.Default.(string); !isString {
			p.Default = fmt.Sprint(raw.Default)
		}
	}
	for _, r := range raw.Ranges {
		p.Ranges = append(p.Ranges, model.Range{Min: r.Min, Max: r.Max})
	}
	if raw.Reference != nil {
		ref := &model.ReferenceDef{TargetTypes: raw.Reference.Targets}
		switch strings.ToLower(raw.Reference.OnDelete) {
		case "", "clear":
			ref.OnDelete = model.RefClear
		case "deletereferrer", "delete":
			ref.OnDelete = model.RefDeleteReferrer
		default:
			return nil, fmt.Errorf("%w: unknown onDelete %q", model.ErrInvalidSchema, raw.Reference.OnDelete)
		}
		p.Reference = ref
	}
	return p, nil
}

// Export converts a definition back into its YAML data table form.
func Export(name string, def *model.ObjectDef) *RawModel {
	m := &RawModel{Name: name}
	var walk func(o *model.ObjectDef)
	walk = func(o *model.ObjectDef) {
		m.Objects = append(m.Objects, exportObject(o))
		for _, c := range o.Objects {
			walk(c)
		}
	}
	walk(def)
	return m
}

func exportObject(o *model.ObjectDef) RawObjectDef {
	raw := RawObjectDef{
		Path:                o.SchemaPath(),
		MaxEntries:          o.MaxEntries,
		NumEntriesParameter: o.CountParameter,
		UniqueKeys:          o.UniqueKeys,
		Description:         o.Description,
	}
	if o.MultiInstance {
		raw.Access = accessName(o.Access)
	}
	if r := o.ResetOnWrite; r != nil {
		raw.ResetOnWrite = &RawResetRule{Parameter: r.Parameter, Value: r.Value}
	}
	for _, p := range o.Parameters {
		raw.Parameters = append(raw.Parameters, exportParameter(p))
	}
	return raw
}

func exportParameter(p *model.ParameterDef) RawParameterDef {
	raw := RawParameterDef{
		Name:        p.Name,
		Type:        p.Type.String(),
		MinLength:   p.MinLength,
		MaxLength:   p.MaxLength,
		Enum:        p.Enum,
		Pattern:     p.Pattern,
		List:        p.List,
		Unit:        p.Unit,
		Description: p.Description,
	}
	if p.Writable() {
		raw.Access = accessName(p.Access)
	}
	if p.Default != nil {
		raw.Default = p.Type.Format(p.DefaultValue())
	}
	if p.Notification != model.NotificationOff {
		raw.Notification = p.Notification.String()
	}
	if p.ActiveNotify != model.ActiveNotifyNormal {
		raw.ActiveNotify = p.ActiveNotify.String()
	}
	for _, r := range p.Ranges {
		raw.Ranges = append(raw.Ranges, RawRange{Min: r.Min, Max: r.Max})
	}
	if p.Reference != nil {
		raw.Reference = &RawReference{Targets: p.Reference.TargetTypes}
		if p.Reference.OnDelete == model.RefDeleteReferrer {
			raw.Reference.OnDelete = "deleteReferrer"
		}
	}
	return raw
}

func accessName(a model.Access) string {
	if a.CanWrite() {
		return "readWrite"
	}
	return "readOnly"
}
