package inspect

import (
	"errors"
	"fmt"
	"strings"

	"github.com/paramtree/paramtree-go/pkg/model"
)

// Inspector errors.
var (
	ErrNotParameter = errors.New("path is not a parameter")
	ErrNotObject    = errors.New("path is not an object")
)

// Inspector provides inspection and mutation capabilities for a local tree.
// Writes go through the management path, so access rights apply.
type Inspector struct {
	tree *model.Tree
}

// NewInspector creates a new Inspector for the given tree.
func NewInspector(tree *model.Tree) *Inspector {
	return &Inspector{tree: tree}
}

// Tree returns the underlying tree.
func (i *Inspector) Tree() *model.Tree {
	return i.tree
}

// ObjectInfo represents an object for display.
type ObjectInfo struct {
	Path       string
	Instance   uint32
	Parameters []ParameterInfo
	Objects    []string
	Tables     []TableInfo
}

// TableInfo represents a table for display.
type TableInfo struct {
	Path      string
	Writable  bool
	Instances []uint32
}

// ParameterInfo represents a parameter for display.
type ParameterInfo struct {
	Name         string
	Path         string
	Value        model.ParameterValue
	Access       model.Access
	Unit         string
	Notification model.Notification
	ActiveNotify model.ActiveNotify
	Description  string
}

// InspectObject returns the parameters and children of the object at path.
func (i *Inspector) InspectObject(path string) (*ObjectInfo, error) {
	n, err := i.tree.Lookup(path)
	if err != nil {
		if tb, terr := i.tree.LookupTable(path); terr == nil {
			return &ObjectInfo{
				Path:   tb.Path(),
				Tables: []TableInfo{{Path: tb.Path(), Writable: tb.Writable(), Instances: tb.Instances()}},
			}, nil
		}
		return nil, err
	}

	info := &ObjectInfo{Path: n.Path(), Instance: n.Instance()}
	for _, pv := range n.Values() {
		pi, err := i.parameterInfo(n.Def(), pv)
		if err != nil {
			return nil, err
		}
		info.Parameters = append(info.Parameters, pi)
	}
	for _, c := range n.Children() {
		info.Objects = append(info.Objects, c.Path())
	}
	for _, tb := range n.Tables() {
		info.Tables = append(info.Tables, TableInfo{Path: tb.Path(), Writable: tb.Writable(), Instances: tb.Instances()})
	}
	return info, nil
}

func (i *Inspector) parameterInfo(obj *model.ObjectDef, pv model.ParameterValue) (ParameterInfo, error) {
	name := Base(pv.Path)
	pd, ok := obj.Parameter(name)
	if !ok {
		return ParameterInfo{}, fmt.Errorf("%w: %s", model.ErrUnknownParameter, pv.Path)
	}
	level, err := i.tree.Notification(pv.Path)
	if err != nil {
		return ParameterInfo{}, err
	}
	return ParameterInfo{
		Name:         name,
		Path:         pv.Path,
		Value:        pv,
		Access:       pd.Access,
		Unit:         pd.Unit,
		Notification: level,
		ActiveNotify: pd.ActiveNotify,
		Description:  pd.Description,
	}, nil
}

// ReadParameter reads one parameter with its metadata.
func (i *Inspector) ReadParameter(path string) (*ParameterInfo, error) {
	if IsPartial(path) {
		return nil, fmt.Errorf("%w: %s", ErrNotParameter, path)
	}
	values, err := i.tree.GetValues(path)
	if err != nil {
		return nil, err
	}
	obj, ok := i.tree.Def().Find(model.SchemaPathOf(Parent(path)))
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownParameter, path)
	}
	info, err := i.parameterInfo(obj, values[0])
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// WriteParameter parses s as the parameter's data type and writes it.
func (i *Inspector) WriteParameter(path, s string) error {
	pd, ok := ParameterDef(i.tree.Def(), path)
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrUnknownParameter, path)
	}
	v, err := pd.Type.Parse(s)
	if err != nil {
		return &model.Fault{Path: path, Code: model.FaultCodeOf(err), Err: err}
	}
	return i.tree.Set(path, v)
}

// SetNotification parses level ("off", "passive", "active") and applies it
// to the parameter or subtree at path.
func (i *Inspector) SetNotification(path, level string) error {
	n, err := model.ParseNotification(level)
	if err != nil {
		return err
	}
	return i.tree.SetNotification(path, n)
}

// AddObject adds a row to the table at path and returns the row path.
func (i *Inspector) AddObject(path string) (string, error) {
	id, err := i.tree.AddObject(model.ObjectPath(path))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d.", model.ObjectPath(path), id), nil
}

// DeleteObject deletes the row at path.
func (i *Inspector) DeleteObject(path string) error {
	return i.tree.DeleteObject(model.ObjectPath(path))
}

// FormatObject formats one object level for display.
func (i *Inspector) FormatObject(info *ObjectInfo, f *Formatter) string {
	if f == nil {
		f = NewFormatter()
	}

	var sb strings.Builder
	sb.WriteString(info.Path + "\n")
	rows := make([]ParameterRow, 0, len(info.Parameters))
	for _, p := range info.Parameters {
		rows = append(rows, ParameterRow{
			Name:         p.Name,
			Path:         p.Path,
			Value:        f.FormatValue(p.Value, p.Unit),
			Type:         p.Value.Type.String(),
			Access:       FormatAccess(p.Access),
			Notification: FormatNotification(p.Notification, p.ActiveNotify),
		})
	}
	if len(rows) > 0 {
		sb.WriteString(f.FormatParameterTable(rows))
	}
	for _, o := range info.Objects {
		sb.WriteString(f.Indent(1, Base(o)+".") + "\n")
	}
	for _, tb := range info.Tables {
		sb.WriteString(f.Indent(1, formatTableHeader(tb.Path, tb.Writable, len(tb.Instances))) + "\n")
	}
	return sb.String()
}

// FormatTree formats the subtree at path. The subtree is taken from one
// snapshot, so it is consistent even while the tree changes.
func (i *Inspector) FormatTree(path string, f *Formatter) (string, error) {
	if f == nil {
		f = NewFormatter()
	}
	path = model.ObjectPath(path)
	if path == "" {
		path = i.tree.Def().Name + "."
	}
	if _, err := i.tree.Lookup(path); err != nil {
		return "", err
	}

	snap := i.tree.Snapshot()
	var found *model.ObjectSnapshot
	snap.Walk(func(s *model.ObjectSnapshot) {
		if found == nil && s.Path == path {
			found = s
		}
	})
	if found == nil {
		return "", fmt.Errorf("%w: %s", ErrNotObject, path)
	}

	var sb strings.Builder
	i.formatSnapshot(&sb, found, f, 0)
	return sb.String(), nil
}

func (i *Inspector) formatSnapshot(sb *strings.Builder, s *model.ObjectSnapshot, f *Formatter, depth int) {
	header := s.Path
	if !f.ShowPaths && depth > 0 {
		header = Base(s.Path) + "."
	}
	sb.WriteString(f.Indent(depth, header) + "\n")

	for _, pv := range s.Values {
		var unit string
		if pd, ok := ParameterDef(i.tree.Def(), pv.Path); ok {
			unit = pd.Unit
		}
		name := Base(pv.Path)
		if f.ShowPaths {
			name = pv.Path
		}
		line := fmt.Sprintf("%s = %s", name, f.FormatValue(pv, unit))
		if level, ok := s.Notifications[Base(pv.Path)]; ok && f.ShowMetadata {
			line += fmt.Sprintf(" [notify %s]", level)
		}
		sb.WriteString(f.Indent(depth+1, line) + "\n")
	}
	for j := range s.Objects {
		i.formatSnapshot(sb, &s.Objects[j], f, depth+1)
	}
	for _, tb := range s.Tables {
		writable := false
		if td, ok := i.tree.Def().Find(model.SchemaPathOf(tb.Path)); ok {
			writable = td.Access.CanWrite()
		}
		name := tb.Path
		if !f.ShowPaths {
			name = Base(tb.Path) + "."
		}
		header := formatTableHeader(name, writable, len(tb.Rows))
		if f.ShowMetadata {
			header += fmt.Sprintf(" next=%d", tb.NextInstance)
		}
		sb.WriteString(f.Indent(depth+1, header) + "\n")
		for j := range tb.Rows {
			i.formatSnapshot(sb, &tb.Rows[j], f, depth+2)
		}
	}
}

func formatTableHeader(path string, writable bool, rows int) string {
	s := fmt.Sprintf("%s{i} (%d entries)", path, rows)
	if !writable {
		s += " read-only"
	}
	return s
}
