package inspect

import (
	"strings"

	"github.com/paramtree/paramtree-go/pkg/model"
)

// Canonical rewrites the object and parameter names of path to the case
// the schema uses (case-insensitive). Instance numbers are kept as is.
// It returns false if a name is not in the schema.
func Canonical(def *model.ObjectDef, path string) (string, bool) {
	trailing := strings.HasSuffix(path, ".")
	segs := strings.Split(strings.TrimSuffix(path, "."), ".")
	if len(segs) == 0 || !strings.EqualFold(segs[0], def.Name) {
		return "", false
	}
	segs[0] = def.Name

	d := def
	for i := 1; i < len(segs); i++ {
		seg := segs[i]
		if d.MultiInstance && isInstance(seg) {
			continue
		}
		if c := findObject(d, seg); c != nil {
			segs[i] = c.Name
			d = c
			continue
		}
		if p := findParameter(d, seg); p != nil && i == len(segs)-1 && !trailing {
			segs[i] = p.Name
			continue
		}
		return "", false
	}

	out := strings.Join(segs, ".")
	if trailing {
		out += "."
	}
	return out, true
}

func isInstance(seg string) bool {
	if seg == "" || seg[0] == '0' {
		return false
	}
	for _, c := range seg {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func findObject(d *model.ObjectDef, name string) *model.ObjectDef {
	for _, c := range d.Objects {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

func findParameter(d *model.ObjectDef, name string) *model.ParameterDef {
	for _, p := range d.Parameters {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}

// ParameterDef returns the definition of the parameter at an instance or
// schema path.
func ParameterDef(def *model.ObjectDef, path string) (*model.ParameterDef, bool) {
	if IsPartial(path) {
		return nil, false
	}
	obj, ok := def.Find(model.SchemaPathOf(Parent(path)))
	if !ok {
		return nil, false
	}
	return obj.Parameter(Base(path))
}

// Complete returns the paths below the object part of prefix whose last
// segment starts with the rest of prefix (case-insensitive). Objects and
// tables are returned with their trailing dot.
func Complete(tree *model.Tree, prefix string) []string {
	dir := prefix[:strings.LastIndex(prefix, ".")+1]
	partial := strings.ToLower(prefix[len(dir):])
	if dir == "" {
		root := tree.Def().Name + "."
		if strings.HasPrefix(strings.ToLower(root), partial) {
			return []string{root}
		}
		return nil
	}

	names, err := tree.Names(dir, true)
	if err != nil {
		return nil
	}
	var out []string
	for _, n := range names {
		if strings.HasPrefix(strings.ToLower(Base(n.Path)), partial) {
			out = append(out, n.Path)
		}
	}
	return out
}
