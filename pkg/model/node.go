package model

import (
	"fmt"
	"strconv"
)

// Node is an object instance of the tree: a singleton object or a table row.
// All accessors are safe for concurrent use; they take the tree lock.
type Node struct {
	tree     *Tree
	def      *ObjectDef
	parent   *Node
	owner    *Table // non-nil for table rows
	instance uint32
	path     string

	params  map[string]*Parameter
	objects map[string]*Node
	tables  map[string]*Table

	detached bool
}

// newNode builds a node with every parameter at its default and every
// singleton child constructed. Tables start empty.
func newNode(tree *Tree, def *ObjectDef, parent *Node, owner *Table, instance uint32) *Node {
	n := &Node{
		tree:     tree,
		def:      def,
		parent:   parent,
		owner:    owner,
		instance: instance,
		params:   make(map[string]*Parameter, len(def.Parameters)),
		objects:  make(map[string]*Node),
		tables:   make(map[string]*Table),
	}

	if parent != nil {
		n.path = parent.path + def.Name + "."
	} else {
		n.path = def.Name + "."
	}
	if instance != 0 {
		n.path += strconv.FormatUint(uint64(instance), 10) + "."
	}

	for _, pd := range def.Parameters {
		n.params[pd.Name] = newParameter(pd, n)
	}
	for _, cd := range def.Objects {
		if cd.MultiInstance {
			n.tables[cd.Name] = newTable(cd, n)
		} else {
			n.objects[cd.Name] = newNode(tree, cd, n, nil, 0)
		}
	}
	return n
}

// Name returns the object name (the table name for rows).
func (n *Node) Name() string {
	return n.def.Name
}

// Def returns the object definition.
func (n *Node) Def() *ObjectDef {
	return n.def
}

// Parent returns the parent object, or nil for the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Instance returns the instance number, or 0 for singleton objects.
func (n *Node) Instance() uint32 {
	return n.instance
}

// IsRow returns true if the node is a table row.
func (n *Node) IsRow() bool {
	return n.owner != nil
}

// Path returns the fully qualified object path including instance numbers,
// with a trailing dot, e.g. "Device.WiFi.Radio.1.".
func (n *Node) Path() string {
	return n.path
}

// SchemaPath returns the object path with "{i}" for instance numbers.
func (n *Node) SchemaPath() string {
	return n.def.SchemaPath()
}

// Get returns the current value of a parameter of this object.
func (n *Node) Get(name string) (any, error) {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()

	if n.detached {
		return nil, newFault(n.path+name, fmt.Errorf("%w: %s", ErrNotFound, n.path))
	}
	p, ok := n.params[name]
	if !ok {
		return nil, newFault(n.path+name, ErrUnknownParameter)
	}
	return cloneValue(p.value), nil
}

// Set writes a parameter through the management write path.
func (n *Node) Set(name string, value any) error {
	return n.tree.Set(n.path+name, value)
}

// SetInternal writes a parameter on behalf of the device. Read-only
// parameters may be written; constraints still apply.
func (n *Node) SetInternal(name string, value any) error {
	return n.tree.SetInternal(n.path+name, value)
}

// AddInstance adds a row to the named child table through the management
// path and returns it.
func (n *Node) AddInstance(table string) (*Node, error) {
	return n.tree.addObject(n.path+table+".", OriginManagement, nil)
}

// AddInstanceInternal adds a row on behalf of the device.
func (n *Node) AddInstanceInternal(table string) (*Node, error) {
	return n.tree.addObject(n.path+table+".", OriginDevice, nil)
}

// RemoveInstance deletes a row of the named child table through the
// management path.
func (n *Node) RemoveInstance(table string, id uint32) error {
	return n.tree.removeInstance(n, table, id, OriginManagement)
}

// RemoveInstanceInternal deletes a row on behalf of the device.
func (n *Node) RemoveInstanceInternal(table string, id uint32) error {
	return n.tree.removeInstance(n, table, id, OriginDevice)
}

// Child returns the singleton child object with the given name.
func (n *Node) Child(name string) (*Node, error) {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()

	c, ok := n.objects[name]
	if !ok {
		if _, isTable := n.tables[name]; isTable {
			return nil, fmt.Errorf("%w: %s%s is a table", ErrUnknownParameter, n.path, name)
		}
		return nil, fmt.Errorf("%w: %s%s", ErrUnknownParameter, n.path, name)
	}
	return c, nil
}

// Table returns the child table with the given name.
func (n *Node) Table(name string) (*Table, error) {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()

	tb, ok := n.tables[name]
	if !ok {
		if _, single := n.objects[name]; single {
			return nil, fmt.Errorf("%w: %s%s", ErrNotATable, n.path, name)
		}
		return nil, fmt.Errorf("%w: %s%s", ErrUnknownParameter, n.path, name)
	}
	return tb, nil
}

// Children returns the singleton child objects in schema order.
func (n *Node) Children() []*Node {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()

	result := make([]*Node, 0, len(n.objects))
	for _, cd := range n.def.Objects {
		if c, ok := n.objects[cd.Name]; ok {
			result = append(result, c)
		}
	}
	return result
}

// Tables returns the child tables in schema order.
func (n *Node) Tables() []*Table {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()

	result := make([]*Table, 0, len(n.tables))
	for _, cd := range n.def.Objects {
		if tb, ok := n.tables[cd.Name]; ok {
			result = append(result, tb)
		}
	}
	return result
}

// Values returns the object's own parameters in schema order.
func (n *Node) Values() []ParameterValue {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()
	return n.valuesLocked()
}

func (n *Node) valuesLocked() []ParameterValue {
	result := make([]ParameterValue, 0, len(n.def.Parameters))
	for _, pd := range n.def.Parameters {
		result = append(result, n.params[pd.Name].valueLocked())
	}
	return result
}

// walkLocked visits n and every attached descendant in schema order.
// Returning false from fn skips the node's descendants.
func (n *Node) walkLocked(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, cd := range n.def.Objects {
		if c, ok := n.objects[cd.Name]; ok {
			c.walkLocked(fn)
			continue
		}
		for _, row := range n.tables[cd.Name].rows {
			row.walkLocked(fn)
		}
	}
}

// detachLocked marks n and its descendants as removed and records their
// reference-form paths.
func (n *Node) detachLocked(removed map[string]bool) {
	n.walkLocked(func(d *Node) bool {
		d.detached = true
		removed[referenceForm(d.path)] = true
		return true
	})
}
