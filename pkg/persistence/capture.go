package persistence

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/paramtree/paramtree-go/pkg/model"
)

// Capture records the configuration of tree: every row, every table's
// instance counter, the writable parameter values, the non-default values
// of rows in read-only tables and the non-default notification
// attributes. It reads one consistent snapshot.
func Capture(tree *model.Tree) *TreeState {
	def := tree.Def()
	snap := tree.Snapshot()
	state := &TreeState{Version: StateVersion, Root: def.Name}

	snap.Walk(func(o *model.ObjectSnapshot) {
		if o.Instance != 0 {
			state.Rows = append(state.Rows, o.Path)
		}
		for _, ts := range o.Tables {
			state.Tables = append(state.Tables, TableState{Path: ts.Path, NextInstance: ts.NextInstance})
		}

		od, ok := def.Find(model.SchemaPathOf(o.Path))
		if !ok {
			return
		}
		deviceRow := o.Instance != 0 && !od.Access.CanWrite()
		for _, v := range o.Values {
			name := v.Path[len(o.Path):]
			pd, ok := od.Parameter(name)
			if !ok {
				continue
			}
			if !pd.Writable() && (!deviceRow || v.String() == v.Type.Format(pd.DefaultValue())) {
				continue
			}
			state.Values = append(state.Values, ValueState{Path: v.Path, Type: v.Type.String(), Value: v.String()})
		}
		for name, n := range o.Notifications {
			state.Notifications = append(state.Notifications, NotificationState{Path: o.Path + name, Notification: uint8(n)})
		}
	})
	slices.SortFunc(state.Notifications, func(a, b NotificationState) int {
		return strings.Compare(a.Path, b.Path)
	})
	return state
}

// Restore applies saved state to tree. Rows are recreated at their saved
// instance numbers, then values are written on the device path in one
// batch, so read-only values of device rows are restored as well, and
// notification attributes are set.
//
// Entries that no longer fit the schema are skipped; the returned error
// joins every skipped entry and the rest of the state is still applied.
func Restore(tree *model.Tree, state *TreeState) error {
	if state == nil {
		return nil
	}
	if state.Version != StateVersion {
		return fmt.Errorf("%w: %d", ErrVersion, state.Version)
	}
	if root := tree.Def().Name; state.Root != "" && state.Root != root {
		return fmt.Errorf("state for %s cannot be restored into %s", state.Root, root)
	}

	var errs []error
	for _, path := range state.Rows {
		if _, err := tree.RestoreObject(path); err != nil {
			errs = append(errs, err)
		}
	}
	for _, ts := range state.Tables {
		if err := tree.ReserveInstances(ts.Path, ts.NextInstance); err != nil {
			errs = append(errs, err)
		}
	}

	values := make([]model.ParameterValue, len(state.Values))
	for i, v := range state.Values {
		values[i] = model.ParameterValue{Path: v.Path, Value: v.Value}
	}
	if err := tree.SetValuesInternal(values); err != nil {
		// Fall back to one write per value so that a single stale entry
		// does not discard the whole configuration.
		var batch *model.BatchError
		if !errors.As(err, &batch) {
			return err
		}
		for _, v := range values {
			if err := tree.SetInternal(v.Path, v.Value); err != nil {
				errs = append(errs, err)
			}
		}
	}

	for _, n := range state.Notifications {
		if err := tree.SetNotification(n.Path, model.Notification(n.Notification)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Load reads state from store and restores it into tree. It returns false
// if the store held no state.
func Load(store Store, tree *model.Tree) (bool, error) {
	state, err := store.Load()
	if err != nil {
		return false, err
	}
	if state == nil {
		return false, nil
	}
	return true, Restore(tree, state)
}

// Save captures tree and writes it to store.
func Save(store Store, tree *model.Tree) error {
	return store.Save(Capture(tree))
}
