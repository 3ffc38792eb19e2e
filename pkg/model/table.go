package model

import "sort"

// Table is a multi-instance object: an ordered collection of rows created
// and deleted only through explicit add and delete operations.
type Table struct {
	def    *ObjectDef
	parent *Node
	path   string
	rows   []*Node // ordered by instance number
	next   uint32
}

func newTable(def *ObjectDef, parent *Node) *Table {
	return &Table{
		def:    def,
		parent: parent,
		path:   parent.path + def.Name + ".",
		rows:   []*Node{},
		next:   1,
	}
}

// Name returns the table name.
func (tb *Table) Name() string {
	return tb.def.Name
}

// Def returns the row definition.
func (tb *Table) Def() *ObjectDef {
	return tb.def
}

// Parent returns the object holding the table.
func (tb *Table) Parent() *Node {
	return tb.parent
}

// Path returns the table path with a trailing dot, e.g. "Device.WiFi.Radio.".
func (tb *Table) Path() string {
	return tb.path
}

// Writable returns true if the management protocol may add and delete rows.
func (tb *Table) Writable() bool {
	return tb.def.Access.CanWrite()
}

// Len returns the number of rows.
func (tb *Table) Len() int {
	tb.parent.tree.mu.RLock()
	defer tb.parent.tree.mu.RUnlock()
	return len(tb.rows)
}

// Instances returns the instance numbers of the rows in ascending order.
func (tb *Table) Instances() []uint32 {
	tb.parent.tree.mu.RLock()
	defer tb.parent.tree.mu.RUnlock()

	ids := make([]uint32, len(tb.rows))
	for i, r := range tb.rows {
		ids[i] = r.instance
	}
	return ids
}

// Row returns the row with the given instance number.
func (tb *Table) Row(id uint32) (*Node, bool) {
	tb.parent.tree.mu.RLock()
	defer tb.parent.tree.mu.RUnlock()
	return tb.row(id)
}

// Rows returns the rows in instance order.
func (tb *Table) Rows() []*Node {
	tb.parent.tree.mu.RLock()
	defer tb.parent.tree.mu.RUnlock()

	rows := make([]*Node, len(tb.rows))
	copy(rows, tb.rows)
	return rows
}

func (tb *Table) row(id uint32) (*Node, bool) {
	i := sort.Search(len(tb.rows), func(i int) bool { return tb.rows[i].instance >= id })
	if i < len(tb.rows) && tb.rows[i].instance == id {
		return tb.rows[i], true
	}
	return nil, false
}

func (tb *Table) insert(row *Node) {
	i := sort.Search(len(tb.rows), func(i int) bool { return tb.rows[i].instance >= row.instance })
	tb.rows = append(tb.rows, nil)
	copy(tb.rows[i+1:], tb.rows[i:])
	tb.rows[i] = row
	if row.instance >= tb.next {
		tb.next = row.instance + 1
	}
}

func (tb *Table) remove(id uint32) {
	i := sort.Search(len(tb.rows), func(i int) bool { return tb.rows[i].instance >= id })
	if i < len(tb.rows) && tb.rows[i].instance == id {
		tb.rows = append(tb.rows[:i], tb.rows[i+1:]...)
	}
}
