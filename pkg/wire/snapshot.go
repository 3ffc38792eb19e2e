package wire

import (
	"fmt"

	"github.com/paramtree/paramtree-go/pkg/model"
)

// SnapshotVersion is the version of the snapshot encoding.
const SnapshotVersion = 1

// Snapshot is the CBOR form of a tree snapshot.
type Snapshot struct {
	Version uint8  `cbor:"1,keyasint"`
	Root    Object `cbor:"2,keyasint"`
}

// Object is the CBOR form of model.ObjectSnapshot.
type Object struct {
	Path          string           `cbor:"1,keyasint"`
	Instance      uint32           `cbor:"2,keyasint,omitempty"`
	Values        []Value          `cbor:"3,keyasint,omitempty"`
	Notifications map[string]uint8 `cbor:"4,keyasint,omitempty"`
	Objects       []Object         `cbor:"5,keyasint,omitempty"`
	Tables        []TableObject    `cbor:"6,keyasint,omitempty"`
}

// TableObject is the CBOR form of model.TableSnapshot.
type TableObject struct {
	Path         string   `cbor:"1,keyasint"`
	NextInstance uint32   `cbor:"2,keyasint"`
	Rows         []Object `cbor:"3,keyasint,omitempty"`
}

// EncodeSnapshot encodes a tree snapshot to CBOR bytes.
func EncodeSnapshot(s model.ObjectSnapshot) ([]byte, error) {
	return Marshal(Snapshot{Version: SnapshotVersion, Root: objectFromModel(s)})
}

// DecodeSnapshot decodes CBOR bytes into a tree snapshot. Values are
// coerced back to their canonical types.
func DecodeSnapshot(data []byte) (model.ObjectSnapshot, error) {
	var s Snapshot
	if err := Unmarshal(data, &s); err != nil {
		return model.ObjectSnapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if s.Version != SnapshotVersion {
		return model.ObjectSnapshot{}, fmt.Errorf("unsupported snapshot version %d", s.Version)
	}
	return objectToModel(s.Root)
}

func objectFromModel(s model.ObjectSnapshot) Object {
	o := Object{
		Path:     s.Path,
		Instance: s.Instance,
		Values:   FromModelValues(s.Values),
	}
	if len(s.Notifications) > 0 {
		o.Notifications = make(map[string]uint8, len(s.Notifications))
		for name, n := range s.Notifications {
			o.Notifications[name] = uint8(n)
		}
	}
	for _, c := range s.Objects {
		o.Objects = append(o.Objects, objectFromModel(c))
	}
	for _, t := range s.Tables {
		to := TableObject{Path: t.Path, NextInstance: t.NextInstance}
		for _, r := range t.Rows {
			to.Rows = append(to.Rows, objectFromModel(r))
		}
		o.Tables = append(o.Tables, to)
	}
	return o
}

func objectToModel(o Object) (model.ObjectSnapshot, error) {
	values, err := ToModelValues(o.Values)
	if err != nil {
		return model.ObjectSnapshot{}, err
	}
	s := model.ObjectSnapshot{Path: o.Path, Instance: o.Instance, Values: values}
	if len(o.Notifications) > 0 {
		s.Notifications = make(map[string]model.Notification, len(o.Notifications))
		for name, n := range o.Notifications {
			s.Notifications[name] = model.Notification(n)
		}
	}
	for _, c := range o.Objects {
		cs, err := objectToModel(c)
		if err != nil {
			return model.ObjectSnapshot{}, err
		}
		s.Objects = append(s.Objects, cs)
	}
	for _, t := range o.Tables {
		ts := model.TableSnapshot{Path: t.Path, NextInstance: t.NextInstance, Rows: []model.ObjectSnapshot{}}
		for _, r := range t.Rows {
			rs, err := objectToModel(r)
			if err != nil {
				return model.ObjectSnapshot{}, err
			}
			ts.Rows = append(ts.Rows, rs)
		}
		s.Tables = append(s.Tables, ts)
	}
	return s, nil
}
