package model

import (
	"fmt"
	"slices"
	"strings"
)

// checkReferenceLocked validates a path reference value and returns it in
// stored form: each item the path of an existing object of an allowed type,
// without the trailing dot. An empty value is always valid.
func (t *Tree) checkReferenceLocked(def *ParameterDef, value string) (string, error) {
	var items []string
	if def.List {
		items = SplitList(value)
	} else if strings.TrimSpace(value) != "" {
		items = []string{strings.TrimSpace(value)}
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		n, err := t.resolveObject(item)
		if err != nil {
			return "", fmt.Errorf("%w: reference to %s: no such object", ErrConstraintViolation, item)
		}
		if types := def.Reference.TargetTypes; len(types) > 0 && !slices.Contains(types, n.def.SchemaPath()) {
			return "", fmt.Errorf("%w: reference to %s: object type %s not allowed",
				ErrConstraintViolation, item, n.def.SchemaPath())
		}
		out = append(out, referenceForm(n.path))
	}
	return strings.Join(out, ","), nil
}

// deleteRowLocked removes a row and its descendants, then fixes up every
// reference to a removed object. Referrers with the delete policy are
// removed in turn until no dangling reference is left.
func (t *Tree) deleteRowLocked(row *Node, origin Origin) []Change {
	var changes []Change
	queue := []*Node{row}

	for len(queue) > 0 {
		r := queue[0]
		queue = queue[1:]
		if r.detached {
			continue
		}

		removed := make(map[string]bool)
		r.detachLocked(removed)
		r.owner.remove(r.instance)

		changes = append(changes, Change{Kind: ChangeObjectDeleted, Path: r.path, Origin: origin})
		changes = append(changes, t.updateCountLocked(r.owner)...)

		refChanges, referrers := t.dropReferencesLocked(removed)
		changes = append(changes, refChanges...)
		queue = append(queue, referrers...)
	}
	return changes
}

// dropReferencesLocked clears references to removed objects. It returns
// the value changes made and the rows to delete under RefDeleteReferrer.
func (t *Tree) dropReferencesLocked(removed map[string]bool) ([]Change, []*Node) {
	var changes []Change
	var referrers []*Node

	t.root.walkLocked(func(n *Node) bool {
		for _, pd := range n.def.Parameters {
			if pd.Reference == nil {
				continue
			}
			p := n.params[pd.Name]
			s, _ := p.value.(string)
			if s == "" {
				continue
			}

			if pd.List {
				items := SplitList(s)
				kept := slices.DeleteFunc(slices.Clone(items), func(item string) bool { return removed[item] })
				if len(kept) == len(items) {
					continue
				}
				if pd.Reference.OnDelete == RefDeleteReferrer && len(kept) == 0 && n.owner != nil {
					referrers = append(referrers, n)
					continue
				}
				if c, ok := p.assign(strings.Join(kept, ","), OriginDevice); ok {
					changes = append(changes, c)
				}
				continue
			}

			if !removed[s] {
				continue
			}
			if pd.Reference.OnDelete == RefDeleteReferrer && n.owner != nil {
				referrers = append(referrers, n)
				continue
			}
			if c, ok := p.assign("", OriginDevice); ok {
				changes = append(changes, c)
			}
		}
		return true
	})
	return changes, referrers
}
