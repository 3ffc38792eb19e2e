package model

import (
	"fmt"
	"strconv"
	"strings"
)

// splitPath splits a dotted path into segments. A trailing dot marks a
// partial path (an object or table rather than a parameter).
func splitPath(path string) (segs []string, partial bool, err error) {
	if path == "" {
		return nil, true, nil
	}
	if strings.HasSuffix(path, ".") {
		partial = true
		path = path[:len(path)-1]
	}
	segs = strings.Split(path, ".")
	for _, s := range segs {
		if s == "" || strings.ContainsAny(s, " \t") {
			return nil, false, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return segs, partial, nil
}

// parseInstance returns the instance number of a path segment.
func parseInstance(seg string) (uint32, bool) {
	if seg == "" || seg[0] < '1' || seg[0] > '9' {
		return 0, false
	}
	n, err := strconv.ParseUint(seg, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}

// SchemaPathOf replaces the instance numbers of an instance path with
// "{i}", e.g. "Device.WiFi.Radio.1.Channel" -> "Device.WiFi.Radio.{i}.Channel".
func SchemaPathOf(path string) string {
	trailing := strings.HasSuffix(path, ".")
	segs := strings.Split(strings.TrimSuffix(path, "."), ".")
	for i, s := range segs {
		if _, ok := parseInstance(s); ok {
			segs[i] = InstanceSegment
		}
	}
	out := strings.Join(segs, ".")
	if trailing {
		out += "."
	}
	return out
}

// ObjectPath normalizes an object path to its trailing-dot form.
func ObjectPath(path string) string {
	if path == "" || strings.HasSuffix(path, ".") {
		return path
	}
	return path + "."
}

// referenceForm is the form path references are stored in: no trailing dot.
func referenceForm(path string) string {
	return strings.TrimSuffix(path, ".")
}

// target is what a path resolves to. Exactly one of param, table or node
// is the addressed element; node is always the closest object.
type target struct {
	node  *Node
	table *Table
	param *Parameter
}

// resolve walks the tree from the root. The caller holds the tree lock.
func (t *Tree) resolve(path string) (target, error) {
	segs, partial, err := splitPath(path)
	if err != nil {
		return target{}, err
	}
	if len(segs) == 0 {
		return target{node: t.root}, nil
	}
	if segs[0] != t.root.def.Name {
		return target{}, fmt.Errorf("%w: %s", ErrUnknownParameter, path)
	}

	cur := target{node: t.root}
	for i, seg := range segs[1:] {
		last := i == len(segs)-2

		if cur.table != nil {
			id, ok := parseInstance(seg)
			if !ok {
				return target{}, fmt.Errorf("%w: %s: %q is not an instance number", ErrUnknownParameter, path, seg)
			}
			row, ok := cur.table.row(id)
			if !ok {
				return target{}, fmt.Errorf("%w: %s", ErrNotFound, path)
			}
			cur = target{node: row}
			continue
		}

		n := cur.node
		if p, ok := n.params[seg]; ok {
			if !last || partial {
				return target{}, fmt.Errorf("%w: %s", ErrUnknownParameter, path)
			}
			return target{node: n, param: p}, nil
		}
		if c, ok := n.objects[seg]; ok {
			cur = target{node: c}
			continue
		}
		if tb, ok := n.tables[seg]; ok {
			cur = target{node: n, table: tb}
			continue
		}
		return target{}, fmt.Errorf("%w: %s", ErrUnknownParameter, path)
	}

	// Object paths without the trailing dot are accepted; references are
	// written that way.
	return cur, nil
}

// resolveParameter resolves a full parameter path.
func (t *Tree) resolveParameter(path string) (*Parameter, error) {
	tg, err := t.resolve(path)
	if err != nil {
		return nil, err
	}
	if tg.param == nil {
		return nil, fmt.Errorf("%w: %s is not a parameter", ErrUnknownParameter, path)
	}
	return tg.param, nil
}

// resolveObject resolves a path to an object node (a row or singleton).
func (t *Tree) resolveObject(path string) (*Node, error) {
	tg, err := t.resolve(path)
	if err != nil {
		return nil, err
	}
	if tg.param != nil || tg.table != nil {
		return nil, fmt.Errorf("%w: %s is not an object", ErrUnknownParameter, path)
	}
	return tg.node, nil
}

// resolveTable resolves a path that names a table.
func (t *Tree) resolveTable(path string) (*Table, error) {
	tg, err := t.resolve(path)
	if err != nil {
		return nil, err
	}
	if tg.table != nil {
		return tg.table, nil
	}
	if tg.param == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotATable, path)
	}
	return nil, fmt.Errorf("%w: %s is a parameter", ErrNotATable, path)
}
