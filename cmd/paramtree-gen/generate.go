package main

import (
	"fmt"
	"math"
	"strings"
	"text/template"

	"github.com/paramtree/paramtree-go/pkg/model"
)

// fileData is the input of the file template.
type fileData struct {
	Package string
	Func    string
	Source  string
	Root    string
	Body    string
}

var fileTmpl = template.Must(template.New("file").Parse(`// Code generated by paramtree-gen from {{.Source}}. DO NOT EDIT.

package {{.Package}}

import (
	"github.com/paramtree/paramtree-go/pkg/model"
	"github.com/paramtree/paramtree-go/pkg/schema"
)

// {{.Func}} returns the compiled {{.Root}} data model.
func {{.Func}}() (*model.ObjectDef, error) {
	return {{.Body}}.
		Build()
}
`))

// dataTypeConsts maps data types to their Go constant names.
var dataTypeConsts = map[model.DataType]string{
	model.DataTypeString:         "DataTypeString",
	model.DataTypeInt:            "DataTypeInt",
	model.DataTypeUnsignedInt:    "DataTypeUnsignedInt",
	model.DataTypeLong:           "DataTypeLong",
	model.DataTypeUnsignedLong:   "DataTypeUnsignedLong",
	model.DataTypeBoolean:        "DataTypeBoolean",
	model.DataTypeDateTime:       "DataTypeDateTime",
	model.DataTypeBase64:         "DataTypeBase64",
	model.DataTypeHexBinary:      "DataTypeHexBinary",
	model.DataTypeIPAddress:      "DataTypeIPAddress",
	model.DataTypeMACAddress:     "DataTypeMACAddress",
	model.DataTypeStatsCounter32: "DataTypeStatsCounter32",
	model.DataTypeStatsCounter64: "DataTypeStatsCounter64",
}

// shortConstructors are the schema helpers for common types.
var shortConstructors = map[model.DataType]string{
	model.DataTypeString:      "String",
	model.DataTypeBoolean:     "Bool",
	model.DataTypeUnsignedInt: "Uint",
	model.DataTypeInt:         "Int",
	model.DataTypeLong:        "Long",
}

var notificationConsts = map[model.Notification]string{
	model.NotificationOff:     "NotificationOff",
	model.NotificationPassive: "NotificationPassive",
	model.NotificationActive:  "NotificationActive",
}

var activeNotifyConsts = map[model.ActiveNotify]string{
	model.ActiveNotifyNormal:              "ActiveNotifyNormal",
	model.ActiveNotifyForceEnabled:        "ActiveNotifyForceEnabled",
	model.ActiveNotifyForceDefaultEnabled: "ActiveNotifyForceDefaultEnabled",
	model.ActiveNotifyCanDeny:             "ActiveNotifyCanDeny",
}

// Generate returns Go source for a function that rebuilds def with the
// schema builder.
func Generate(def *model.ObjectDef, pkg, funcName, source string) (string, error) {
	if def == nil {
		return "", fmt.Errorf("no definition")
	}
	var body strings.Builder
	if err := writeObject(&body, def, 1, true); err != nil {
		return "", err
	}

	var b strings.Builder
	err := fileTmpl.Execute(&b, fileData{
		Package: pkg,
		Func:    funcName,
		Source:  source,
		Root:    def.Name,
		Body:    body.String(),
	})
	if err != nil {
		return "", fmt.Errorf("template: %w", err)
	}
	return b.String(), nil
}

func writeObject(b *strings.Builder, obj *model.ObjectDef, depth int, root bool) error {
	ind := strings.Repeat("\t", depth+1)

	if obj.MultiInstance {
		fmt.Fprintf(b, "schema.Table(%q)", obj.Name)
		if obj.Access.CanWrite() {
			fmt.Fprintf(b, ".\n%sWritable()", ind)
		}
		if obj.MaxEntries > 0 {
			fmt.Fprintf(b, ".\n%sMaxEntries(%d)", ind, obj.MaxEntries)
		}
		if obj.CountParameter != "" {
			fmt.Fprintf(b, ".\n%sCount(%q)", ind, obj.CountParameter)
		}
		for _, key := range obj.UniqueKeys {
			fmt.Fprintf(b, ".\n%sUnique(%s)", ind, quoteList(key))
		}
	} else {
		fmt.Fprintf(b, "schema.Object(%q)", obj.Name)
	}
	if rw := obj.ResetOnWrite; rw != nil {
		v, err := literal(rw.Value)
		if err != nil {
			return fmt.Errorf("%s reset rule: %w", obj.Name, err)
		}
		fmt.Fprintf(b, ".\n%sResetOnWrite(%q, %s)", ind, rw.Parameter, v)
	}
	if obj.Description != "" && !root {
		fmt.Fprintf(b, ".\n%sDescribe(%q)", ind, obj.Description)
	}

	if len(obj.Parameters) > 0 {
		fmt.Fprintf(b, ".\n%sParam(\n", ind)
		for _, p := range obj.Parameters {
			b.WriteString(ind + "\t")
			if err := writeParam(b, p, depth+2); err != nil {
				return fmt.Errorf("%s.%w", obj.Name, err)
			}
			b.WriteString(",\n")
		}
		b.WriteString(ind + ")")
	}

	if len(obj.Objects) > 0 {
		fmt.Fprintf(b, ".\n%sChild(\n", ind)
		for _, child := range obj.Objects {
			b.WriteString(ind + "\t")
			if err := writeObject(b, child, depth+2, false); err != nil {
				return err
			}
			b.WriteString(",\n")
		}
		b.WriteString(ind + ")")
	}
	return nil
}

func writeParam(b *strings.Builder, p *model.ParameterDef, depth int) error {
	ind := strings.Repeat("\t", depth+1)

	if short, ok := shortConstructors[p.Type]; ok {
		fmt.Fprintf(b, "schema.%s(%q)", short, p.Name)
	} else {
		c, ok := dataTypeConsts[p.Type]
		if !ok {
			return fmt.Errorf("%s: unsupported type %s", p.Name, p.Type)
		}
		fmt.Fprintf(b, "schema.Param(%q, model.%s)", p.Name, c)
	}

	if p.Access.CanWrite() {
		b.WriteString(".Writable()")
	}
	if p.Default != nil {
		fmt.Fprintf(b, ".\n%sDefault(%q)", ind, p.Type.Format(p.DefaultValue()))
	}
	for _, r := range p.Ranges {
		lo, err := literal(r.Min)
		if err != nil {
			return fmt.Errorf("%s range: %w", p.Name, err)
		}
		hi, err := literal(r.Max)
		if err != nil {
			return fmt.Errorf("%s range: %w", p.Name, err)
		}
		fmt.Fprintf(b, ".\n%sRange(%s, %s)", ind, lo, hi)
	}
	if p.MinLength != 0 || p.MaxLength != 0 {
		fmt.Fprintf(b, ".\n%sLength(%d, %d)", ind, p.MinLength, p.MaxLength)
	}
	if len(p.Enum) > 0 {
		fmt.Fprintf(b, ".\n%sEnum(%s)", ind, quoteList(p.Enum))
	}
	if p.Pattern != "" {
		fmt.Fprintf(b, ".\n%sPattern(%q)", ind, p.Pattern)
	}
	if p.List {
		b.WriteString(".List()")
	}
	if p.Unit != "" {
		fmt.Fprintf(b, ".Unit(%q)", p.Unit)
	}
	if p.Notification != model.NotificationOff || p.ActiveNotify != model.ActiveNotifyNormal {
		fmt.Fprintf(b, ".\n%sNotify(model.%s, model.%s)", ind,
			notificationConsts[p.Notification], activeNotifyConsts[p.ActiveNotify])
	}
	if ref := p.Reference; ref != nil {
		policy := "RefClear"
		if ref.OnDelete == model.RefDeleteReferrer {
			policy = "RefDeleteReferrer"
		}
		args := "model." + policy
		if len(ref.TargetTypes) > 0 {
			args += ", " + quoteList(ref.TargetTypes)
		}
		fmt.Fprintf(b, ".\n%sRef(%s)", ind, args)
	}
	if p.Description != "" {
		fmt.Fprintf(b, ".\n%sDescribe(%q)", ind, p.Description)
	}
	return nil
}

// literal renders a schema value as a Go expression assignable to any.
func literal(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "nil", nil
	case string:
		return fmt.Sprintf("%q", x), nil
	case bool:
		return fmt.Sprintf("%t", x), nil
	case int:
		return fmt.Sprintf("%d", x), nil
	case int32:
		return fmt.Sprintf("%d", x), nil
	case int64:
		return fmt.Sprintf("int64(%d)", x), nil
	case uint32:
		return fmt.Sprintf("uint32(%d)", x), nil
	case uint64:
		if x > math.MaxInt64 {
			return fmt.Sprintf("uint64(%d)", x), nil
		}
		return fmt.Sprintf("%d", x), nil
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return fmt.Sprintf("%d", int64(x)), nil
		}
		return fmt.Sprintf("%v", x), nil
	}
	return "", fmt.Errorf("unsupported value %v (%T)", v, v)
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, ", ")
}

// funcName derives an exported function name from a model name, e.g.
// "tr181-device" becomes "TR181DeviceModel".
func funcName(modelName string) string {
	var b strings.Builder
	for _, part := range strings.FieldsFunc(modelName, func(r rune) bool {
		return r == '-' || r == '_' || r == '.' || r == ' '
	}) {
		if strings.HasPrefix(part, "tr") && len(part) > 2 && part[2] >= '0' && part[2] <= '9' {
			b.WriteString("TR" + part[2:])
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]) + part[1:])
	}
	b.WriteString("Model")
	return b.String()
}
