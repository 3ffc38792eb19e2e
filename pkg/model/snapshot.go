package model

// ParameterValue is a parameter path with its typed value.
type ParameterValue struct {
	Path  string
	Type  DataType
	Value any
}

// String returns the value in its TR-069 string form.
func (pv ParameterValue) String() string {
	return pv.Type.Format(pv.Value)
}

// ObjectSnapshot is a point-in-time copy of an object and its subtree.
type ObjectSnapshot struct {
	Path          string
	Instance      uint32
	Values        []ParameterValue
	Notifications map[string]Notification // by parameter name, non-default only
	Objects       []ObjectSnapshot
	Tables        []TableSnapshot
}

// TableSnapshot is a point-in-time copy of a table.
type TableSnapshot struct {
	Path         string
	NextInstance uint32
	Rows         []ObjectSnapshot
}

// Snapshot copies the whole tree under a single read lock, so the result
// reflects one consistent state.
func (t *Tree) Snapshot() ObjectSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return snapshotNode(t.root)
}

func snapshotNode(n *Node) ObjectSnapshot {
	s := ObjectSnapshot{
		Path:     n.path,
		Instance: n.instance,
		Values:   n.valuesLocked(),
	}
	for _, pd := range n.def.Parameters {
		p := n.params[pd.Name]
		if p.notification != pd.InitialNotification() {
			if s.Notifications == nil {
				s.Notifications = make(map[string]Notification)
			}
			s.Notifications[pd.Name] = p.notification
		}
	}
	for _, cd := range n.def.Objects {
		if c, ok := n.objects[cd.Name]; ok {
			s.Objects = append(s.Objects, snapshotNode(c))
			continue
		}
		tb := n.tables[cd.Name]
		ts := TableSnapshot{Path: tb.path, NextInstance: tb.next, Rows: []ObjectSnapshot{}}
		for _, row := range tb.rows {
			ts.Rows = append(ts.Rows, snapshotNode(row))
		}
		s.Tables = append(s.Tables, ts)
	}
	return s
}

// Walk calls fn for the snapshot and every object beneath it, rows
// included, in schema and instance order.
func (s *ObjectSnapshot) Walk(fn func(*ObjectSnapshot)) {
	fn(s)
	for i := range s.Objects {
		s.Objects[i].Walk(fn)
	}
	for i := range s.Tables {
		for j := range s.Tables[i].Rows {
			s.Tables[i].Rows[j].Walk(fn)
		}
	}
}
