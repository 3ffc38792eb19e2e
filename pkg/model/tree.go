package model

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// LevelTrace is below Debug and logs every individual parameter write.
const LevelTrace = slog.Level(-8)

// Tree is a live instance of a data model: the root object plus every
// object, table row and parameter value beneath it.
//
// All operations are safe for concurrent use. A single lock guards the
// whole tree; writes, including cascading deletes, are applied under the
// write lock so readers never observe a partially applied batch.
type Tree struct {
	mu       sync.RWMutex
	notifyMu sync.Mutex

	def    *ObjectDef
	root   *Node
	logger *slog.Logger

	listenerMu   sync.Mutex
	listeners    map[uint64]ChangeListener
	nextListener uint64
}

// TreeOption configures a Tree.
type TreeOption func(*treeConfig)

type treeConfig struct {
	logger    *slog.Logger
	listeners []ChangeListener
}

// WithLogger sets the logger. The default discards all output.
func WithLogger(logger *slog.Logger) TreeOption {
	return func(c *treeConfig) {
		c.logger = logger
	}
}

// WithChangeListener registers a listener at construction time.
func WithChangeListener(l ChangeListener) TreeOption {
	return func(c *treeConfig) {
		c.listeners = append(c.listeners, l)
	}
}

// NewTree creates a tree from a definition. The definition is compiled if
// it has not been already. Every parameter starts at its default and every
// table starts empty.
func NewTree(def *ObjectDef, opts ...TreeOption) (*Tree, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: nil definition", ErrInvalidSchema)
	}
	if !def.compiled {
		if err := def.Compile(); err != nil {
			return nil, err
		}
	}

	cfg := treeConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	t := &Tree{
		def:       def,
		logger:    cfg.logger,
		listeners: make(map[uint64]ChangeListener),
	}
	for _, l := range cfg.listeners {
		t.addListener(l)
	}
	t.root = newNode(t, def, nil, nil, 0)
	return t, nil
}

// Def returns the root definition.
func (t *Tree) Def() *ObjectDef {
	return t.def
}

// Root returns the root object.
func (t *Tree) Root() *Node {
	return t.root
}

// Subscribe registers a listener for committed changes. The returned
// function removes it.
func (t *Tree) Subscribe(l ChangeListener) (cancel func()) {
	id := t.addListener(l)
	return func() {
		t.listenerMu.Lock()
		delete(t.listeners, id)
		t.listenerMu.Unlock()
	}
}

func (t *Tree) addListener(l ChangeListener) uint64 {
	t.listenerMu.Lock()
	defer t.listenerMu.Unlock()
	t.nextListener++
	t.listeners[t.nextListener] = l
	return t.nextListener
}

// unlockAndNotify releases the write lock and delivers changes. The notify
// lock is taken before the write lock is released so listeners see
// operations in commit order.
func (t *Tree) unlockAndNotify(changes []Change) {
	if len(changes) == 0 {
		t.mu.Unlock()
		return
	}
	t.notifyMu.Lock()
	t.mu.Unlock()
	defer t.notifyMu.Unlock()

	t.listenerMu.Lock()
	ids := make([]uint64, 0, len(t.listeners))
	for id := range t.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	listeners := make([]ChangeListener, len(ids))
	for i, id := range ids {
		listeners[i] = t.listeners[id]
	}
	t.listenerMu.Unlock()

	for _, l := range listeners {
		l.OnChange(changes)
	}
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

// Get returns the current value of a parameter.
func (t *Tree) Get(path string) (any, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, err := t.resolveParameter(path)
	if err != nil {
		return nil, newFault(path, err)
	}
	return cloneValue(p.value), nil
}

// Lookup returns the object at path. Both "Device.WiFi." and "Device.WiFi"
// are accepted.
func (t *Tree) Lookup(path string) (*Node, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, err := t.resolveObject(path)
	if err != nil {
		return nil, newFault(path, err)
	}
	return n, nil
}

// LookupTable returns the table at path.
func (t *Tree) LookupTable(path string) (*Table, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	tb, err := t.resolveTable(path)
	if err != nil {
		return nil, newFault(path, err)
	}
	return tb, nil
}

// GetValues returns the values of the given paths. A partial path (ending
// in a dot, or empty for the whole tree) expands to every parameter beneath
// it in schema and instance order. The first failing path aborts the call.
func (t *Tree) GetValues(paths ...string) ([]ParameterValue, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var result []ParameterValue
	for _, path := range paths {
		tg, err := t.resolve(path)
		if err != nil {
			return nil, newFault(path, err)
		}
		switch {
		case tg.param != nil:
			result = append(result, tg.param.valueLocked())
		case tg.table != nil:
			for _, row := range tg.table.rows {
				result = appendSubtreeValues(result, row)
			}
		default:
			result = appendSubtreeValues(result, tg.node)
		}
	}
	return result, nil
}

func appendSubtreeValues(dst []ParameterValue, n *Node) []ParameterValue {
	n.walkLocked(func(d *Node) bool {
		dst = append(dst, d.valuesLocked()...)
		return true
	})
	return dst
}

// NameInfo is one entry of a Names listing.
type NameInfo struct {
	// Path is the parameter path, or the object path with a trailing dot.
	Path string

	// Writable is true for writable parameters, for tables that allow
	// adding rows and for rows that may be deleted.
	Writable bool

	// Object is true for objects, tables and rows.
	Object bool
}

// Names lists the parameter and object names at path. With nextLevel set
// only the immediate children are listed; otherwise the addressed element
// and everything beneath it.
func (t *Tree) Names(path string, nextLevel bool) ([]NameInfo, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	tg, err := t.resolve(path)
	if err != nil {
		return nil, newFault(path, err)
	}

	var result []NameInfo
	switch {
	case tg.param != nil:
		if nextLevel {
			return nil, newFault(path, fmt.Errorf("%w: next level of a parameter", ErrInvalidArguments))
		}
		result = append(result, paramInfo(tg.param))

	case tg.table != nil:
		tb := tg.table
		if nextLevel {
			for _, row := range tb.rows {
				result = append(result, NameInfo{Path: row.path, Writable: tb.Writable(), Object: true})
			}
			break
		}
		result = append(result, NameInfo{Path: tb.path, Writable: tb.Writable(), Object: true})
		for _, row := range tb.rows {
			result = appendSubtreeNames(result, row)
		}

	default:
		if nextLevel {
			result = appendChildNames(result, tg.node)
			break
		}
		result = appendSubtreeNames(result, tg.node)
	}
	return result, nil
}

func paramInfo(p *Parameter) NameInfo {
	return NameInfo{Path: p.Path(), Writable: p.def.Writable()}
}

func objectInfo(n *Node) NameInfo {
	return NameInfo{Path: n.path, Writable: n.owner != nil && n.owner.Writable(), Object: true}
}

func appendChildNames(dst []NameInfo, n *Node) []NameInfo {
	for _, pd := range n.def.Parameters {
		dst = append(dst, paramInfo(n.params[pd.Name]))
	}
	for _, cd := range n.def.Objects {
		if c, ok := n.objects[cd.Name]; ok {
			dst = append(dst, objectInfo(c))
			continue
		}
		tb := n.tables[cd.Name]
		dst = append(dst, NameInfo{Path: tb.path, Writable: tb.Writable(), Object: true})
	}
	return dst
}

func appendSubtreeNames(dst []NameInfo, n *Node) []NameInfo {
	dst = append(dst, objectInfo(n))
	for _, pd := range n.def.Parameters {
		dst = append(dst, paramInfo(n.params[pd.Name]))
	}
	for _, cd := range n.def.Objects {
		if c, ok := n.objects[cd.Name]; ok {
			dst = appendSubtreeNames(dst, c)
			continue
		}
		tb := n.tables[cd.Name]
		dst = append(dst, NameInfo{Path: tb.path, Writable: tb.Writable(), Object: true})
		for _, row := range tb.rows {
			dst = appendSubtreeNames(dst, row)
		}
	}
	return dst
}

// ---------------------------------------------------------------------------
// Writes
// ---------------------------------------------------------------------------

// Set writes one parameter through the management write path. The
// parameter must be writable and the value must satisfy its constraints.
func (t *Tree) Set(path string, value any) error {
	return t.setOne(path, value, OriginManagement)
}

// SetInternal writes one parameter on behalf of the device. Read-only
// parameters may be written; constraints still apply.
func (t *Tree) SetInternal(path string, value any) error {
	return t.setOne(path, value, OriginDevice)
}

// SetValues writes a batch through the management write path. Either all
// writes are applied or none is; on failure the returned *BatchError lists
// every failing entry.
func (t *Tree) SetValues(values []ParameterValue) error {
	return t.setBatch(values, OriginManagement, nil)
}

// SetValuesInternal writes a batch on behalf of the device.
func (t *Tree) SetValuesInternal(values []ParameterValue) error {
	return t.setBatch(values, OriginDevice, nil)
}

func (t *Tree) setOne(path string, value any, origin Origin) error {
	err := t.setBatch([]ParameterValue{{Path: path, Value: value}}, origin, nil)
	if be, ok := err.(*BatchError); ok && len(be.Faults) == 1 {
		return be.Faults[0]
	}
	return err
}

func (t *Tree) setBatch(values []ParameterValue, origin Origin, key *ParameterValue) error {
	t.mu.Lock()
	kw, err := t.prepareKeyLocked(key)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	changes, err := t.applyLocked(values, origin)
	if err != nil {
		t.mu.Unlock()
		t.logger.Debug("write rejected", "origin", origin, "entries", len(values), "error", err)
		return err
	}
	for _, c := range changes {
		t.logger.Log(context.Background(), LevelTrace, "parameter set",
			"path", c.Path, "value", c.Type.Format(c.Value), "origin", origin)
	}
	t.unlockAndNotify(kw.apply(changes))
	return nil
}

type write struct {
	path  string
	param *Parameter
	value any
}

// applyLocked validates a batch and applies it. Nothing is modified unless
// every entry is valid.
func (t *Tree) applyLocked(values []ParameterValue, origin Origin) ([]Change, error) {
	var faults []*Fault
	writes := make([]write, 0, len(values))
	pending := make(map[*Parameter]any, len(values))

	for _, pv := range values {
		p, err := t.resolveParameter(pv.Path)
		if err != nil {
			faults = append(faults, newFault(pv.Path, err))
			continue
		}
		if origin == OriginManagement && !p.def.Writable() {
			faults = append(faults, newFault(pv.Path, ErrReadOnlyParameter))
			continue
		}
		v, err := p.def.Validate(pv.Value)
		if err == nil && p.def.Reference != nil {
			v, err = t.checkReferenceLocked(p.def, v.(string))
		}
		if err != nil {
			faults = append(faults, newFault(pv.Path, err))
			continue
		}
		if _, dup := pending[p]; dup {
			faults = append(faults, newFault(pv.Path, fmt.Errorf("%w: parameter set twice", ErrInvalidArguments)))
			continue
		}
		pending[p] = v
		writes = append(writes, write{path: pv.Path, param: p, value: v})
	}

	if len(faults) == 0 {
		faults = t.checkUniqueLocked(writes, pending)
	}
	if len(faults) > 0 {
		return nil, &BatchError{Faults: faults}
	}

	if origin == OriginManagement {
		n := len(writes)
		for i := 0; i < n; i++ {
			node := writes[i].param.node
			rule := node.def.ResetOnWrite
			if rule == nil || writes[i].param.def.Name == rule.Parameter {
				continue
			}
			rp := node.params[rule.Parameter]
			if _, set := pending[rp]; set {
				continue
			}
			v, _ := rp.def.Type.Coerce(rule.Value)
			pending[rp] = v
			writes = append(writes, write{path: rp.Path(), param: rp, value: v})
		}
	}

	changes := make([]Change, 0, len(writes))
	for _, w := range writes {
		if c, ok := w.param.assign(w.value, origin); ok {
			changes = append(changes, c)
		}
	}
	return changes, nil
}

// checkUniqueLocked verifies that no write makes a unique key collide with
// another row. Rows whose key parameters all hold their defaults are exempt.
func (t *Tree) checkUniqueLocked(writes []write, pending map[*Parameter]any) []*Fault {
	var faults []*Fault
	for _, w := range writes {
		row := w.param.node
		tb := row.owner
		if tb == nil || len(tb.def.UniqueKeys) == 0 {
			continue
		}
		for _, key := range tb.def.UniqueKeys {
			if !slices.Contains(key, w.param.def.Name) {
				continue
			}
			mine, ok := keyTuple(row, key, pending)
			if !ok {
				continue
			}
			collides := false
			for _, other := range tb.rows {
				if other == row {
					continue
				}
				if theirs, ok := keyTuple(other, key, pending); ok && tuplesEqual(mine, theirs) {
					collides = true
					break
				}
			}
			if collides {
				faults = append(faults, newFault(w.path, fmt.Errorf("%w: %s not unique in %s",
					ErrConstraintViolation, strings.Join(key, "+"), tb.path)))
				break
			}
		}
	}
	return faults
}

func keyTuple(row *Node, key []string, pending map[*Parameter]any) ([]any, bool) {
	vals := make([]any, len(key))
	allDefault := true
	for i, name := range key {
		p := row.params[name]
		v := p.value
		if pv, ok := pending[p]; ok {
			v = pv
		}
		vals[i] = v
		if !valuesEqual(v, p.def.DefaultValue()) {
			allDefault = false
		}
	}
	return vals, !allDefault
}

func tuplesEqual(a, b []any) bool {
	for i := range a {
		if !valuesEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// IncrementCounter adds delta to a statistics counter on behalf of the
// device. Counters wrap around at their width.
func (t *Tree) IncrementCounter(path string, delta uint64) error {
	t.mu.Lock()
	p, err := t.resolveParameter(path)
	if err != nil {
		t.mu.Unlock()
		return newFault(path, err)
	}

	var next any
	switch p.def.Type {
	case DataTypeStatsCounter32:
		next = p.value.(uint32) + uint32(delta)
	case DataTypeStatsCounter64:
		next = p.value.(uint64) + delta
	default:
		t.mu.Unlock()
		return newFault(path, fmt.Errorf("%w: %s is not a counter", ErrInvalidType, p.def.Type))
	}

	var changes []Change
	if c, ok := p.assign(next, OriginDevice); ok {
		changes = append(changes, c)
	}
	t.unlockAndNotify(changes)
	return nil
}

// ---------------------------------------------------------------------------
// Structure
// ---------------------------------------------------------------------------

// AddObject adds a row to the table at path (e.g. "Device.NAT.PortMapping.")
// through the management path and returns its instance number.
func (t *Tree) AddObject(path string) (uint32, error) {
	row, err := t.addObject(path, OriginManagement, nil)
	if err != nil {
		return 0, err
	}
	return row.instance, nil
}

// AddObjectInternal adds a row on behalf of the device. Tables that do not
// allow the management protocol to add rows may still be extended.
func (t *Tree) AddObjectInternal(path string) (*Node, error) {
	return t.addObject(path, OriginDevice, nil)
}

func (t *Tree) addObject(path string, origin Origin, key *ParameterValue) (*Node, error) {
	t.mu.Lock()
	kw, err := t.prepareKeyLocked(key)
	if err != nil {
		t.mu.Unlock()
		return nil, err
	}
	tb, err := t.resolveTable(path)
	if err != nil {
		t.mu.Unlock()
		return nil, newFault(path, err)
	}
	row, changes, err := t.addRowLocked(tb, 0, origin)
	if err != nil {
		t.mu.Unlock()
		return nil, newFault(path, err)
	}
	t.logger.Debug("object added", "path", row.path, "origin", origin)
	t.unlockAndNotify(kw.apply(changes))
	return row, nil
}

// RestoreObject recreates a row with a specific instance number, e.g.
// "Device.NAT.PortMapping.7.", as when reloading persisted state. The
// parent row must already exist. Restoring an existing row is a no-op.
func (t *Tree) RestoreObject(path string) (*Node, error) {
	segs, _, err := splitPath(path)
	if err != nil {
		return nil, newFault(path, err)
	}
	if len(segs) < 2 {
		return nil, newFault(path, fmt.Errorf("%w: %s is not a row path", ErrInvalidPath, path))
	}
	id, ok := parseInstance(segs[len(segs)-1])
	if !ok {
		return nil, newFault(path, fmt.Errorf("%w: %s is not a row path", ErrInvalidPath, path))
	}

	t.mu.Lock()
	tb, err := t.resolveTable(strings.Join(segs[:len(segs)-1], ".") + ".")
	if err != nil {
		t.mu.Unlock()
		return nil, newFault(path, err)
	}
	if row, exists := tb.row(id); exists {
		t.mu.Unlock()
		return row, nil
	}
	row, changes, err := t.addRowLocked(tb, id, OriginDevice)
	if err != nil {
		t.mu.Unlock()
		return nil, newFault(path, err)
	}
	t.unlockAndNotify(changes)
	return row, nil
}

// ReserveInstances raises the next instance number of the table at path to
// at least next, so that numbers handed out before a restart are not
// reused. It never lowers the counter.
func (t *Tree) ReserveInstances(path string, next uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	tb, err := t.resolveTable(path)
	if err != nil {
		return newFault(path, err)
	}
	if tb.next != 0 && (next == 0 || next > tb.next) {
		tb.next = next
	}
	return nil
}

// addRowLocked creates a row. An id of 0 allocates the next instance number.
func (t *Tree) addRowLocked(tb *Table, id uint32, origin Origin) (*Node, []Change, error) {
	if origin == OriginManagement && !tb.Writable() {
		return nil, nil, fmt.Errorf("%w: rows of %s cannot be added", ErrReadOnlyParameter, tb.path)
	}
	if tb.def.MaxEntries > 0 && len(tb.rows) >= tb.def.MaxEntries {
		return nil, nil, fmt.Errorf("%w: %s is limited to %d entries", ErrResourcesExceeded, tb.path, tb.def.MaxEntries)
	}
	if id == 0 {
		if tb.next == 0 {
			return nil, nil, fmt.Errorf("%w: %s instance numbers exhausted", ErrResourcesExceeded, tb.path)
		}
		id = tb.next
	}

	row := newNode(t, tb.def, tb.parent, tb, id)
	tb.insert(row)

	changes := []Change{{Kind: ChangeObjectAdded, Path: row.path, Origin: origin}}
	changes = append(changes, t.updateCountLocked(tb)...)
	return row, changes, nil
}

// updateCountLocked refreshes the table's NumberOfEntries parameter.
func (t *Tree) updateCountLocked(tb *Table) []Change {
	if tb.def.CountParameter == "" {
		return nil
	}
	p, ok := tb.parent.params[tb.def.CountParameter]
	if !ok {
		return nil
	}
	if c, ok := p.assign(uint32(len(tb.rows)), OriginDevice); ok {
		return []Change{c}
	}
	return nil
}

// DeleteObject deletes the row at path (e.g. "Device.NAT.PortMapping.3.")
// and its descendants through the management path. References to the
// deleted objects are cleared or, by policy, their referrers are deleted.
func (t *Tree) DeleteObject(path string) error {
	return t.deleteObject(path, OriginManagement, nil)
}

// DeleteObjectInternal deletes a row on behalf of the device.
func (t *Tree) DeleteObjectInternal(path string) error {
	return t.deleteObject(path, OriginDevice, nil)
}

func (t *Tree) deleteObject(path string, origin Origin, key *ParameterValue) error {
	t.mu.Lock()
	kw, err := t.prepareKeyLocked(key)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	tg, err := t.resolve(path)
	if err != nil {
		t.mu.Unlock()
		return newFault(path, err)
	}
	if tg.param != nil || tg.table != nil || tg.node.owner == nil {
		t.mu.Unlock()
		return newFault(path, fmt.Errorf("%w: %s is not a table row", ErrNotATable, path))
	}
	return t.deleteRow(tg.node, origin, kw)
}

func (t *Tree) removeInstance(n *Node, table string, id uint32, origin Origin) error {
	path := fmt.Sprintf("%s%s.%d.", n.path, table, id)

	t.mu.Lock()
	if n.detached {
		t.mu.Unlock()
		return newFault(path, fmt.Errorf("%w: %s", ErrNotFound, n.path))
	}
	tb, ok := n.tables[table]
	if !ok {
		t.mu.Unlock()
		if _, single := n.objects[table]; single {
			return newFault(path, fmt.Errorf("%w: %s%s", ErrNotATable, n.path, table))
		}
		return newFault(path, ErrUnknownParameter)
	}
	row, ok := tb.row(id)
	if !ok {
		t.mu.Unlock()
		return newFault(path, ErrNotFound)
	}
	return t.deleteRow(row, origin, nil)
}

// deleteRow is called with the write lock held and releases it.
func (t *Tree) deleteRow(row *Node, origin Origin, kw *keyWrite) error {
	if origin == OriginManagement && !row.owner.Writable() {
		t.mu.Unlock()
		return newFault(row.path, fmt.Errorf("%w: rows of %s cannot be deleted", ErrReadOnlyParameter, row.owner.path))
	}
	changes := t.deleteRowLocked(row, origin)
	t.logger.Debug("object deleted", "path", row.path, "origin", origin, "changes", len(changes))
	t.unlockAndNotify(kw.apply(changes))
	return nil
}

// ---------------------------------------------------------------------------
// Attributes
// ---------------------------------------------------------------------------

// ParameterAttribute is the notification attribute of a parameter.
type ParameterAttribute struct {
	Path         string
	Notification Notification
}

// SetNotification sets the notification attribute of the parameter at path,
// or of every parameter beneath a partial path. The request is rejected
// without changes if any affected parameter's active notification policy
// forbids the level.
func (t *Tree) SetNotification(path string, level Notification) error {
	if level > NotificationActive {
		return newFault(path, fmt.Errorf("%w: notification %d", ErrInvalidArguments, level))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	params, err := t.collectParamsLocked(path)
	if err != nil {
		return newFault(path, err)
	}
	for _, p := range params {
		if err := checkNotification(p, level); err != nil {
			return newFault(p.Path(), err)
		}
	}
	for _, p := range params {
		p.notification = level
	}
	t.logger.Debug("notification set", "path", path, "level", level, "parameters", len(params))
	return nil
}

// SetNotifications applies several notification attribute changes as one
// batch. Either all are applied or none is. A single failing entry is
// returned as its *Fault; otherwise the *BatchError lists every one.
func (t *Tree) SetNotifications(attrs []ParameterAttribute) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var faults []*Fault
	type pending struct {
		params []*Parameter
		level  Notification
	}
	apply := make([]pending, 0, len(attrs))
	for _, a := range attrs {
		if a.Notification > NotificationActive {
			faults = append(faults, newFault(a.Path, fmt.Errorf("%w: notification %d", ErrInvalidArguments, a.Notification)))
			continue
		}
		params, err := t.collectParamsLocked(a.Path)
		if err != nil {
			faults = append(faults, newFault(a.Path, err))
			continue
		}
		for _, p := range params {
			if err := checkNotification(p, a.Notification); err != nil {
				faults = append(faults, newFault(p.Path(), err))
			}
		}
		apply = append(apply, pending{params: params, level: a.Notification})
	}
	switch len(faults) {
	case 0:
	case 1:
		return faults[0]
	default:
		return &BatchError{Faults: faults}
	}
	for _, pa := range apply {
		for _, p := range pa.params {
			p.notification = pa.level
		}
	}
	t.logger.Debug("notifications set", "entries", len(attrs))
	return nil
}

func checkNotification(p *Parameter, level Notification) error {
	switch {
	case p.def.ActiveNotify == ActiveNotifyForceEnabled && level != NotificationActive:
		return fmt.Errorf("%w: active notification is forced", ErrNotificationRejected)
	case p.def.ActiveNotify == ActiveNotifyCanDeny && level == NotificationActive:
		return fmt.Errorf("%w: active notification is denied", ErrNotificationRejected)
	}
	return nil
}

// Notification returns the notification attribute of a parameter.
func (t *Tree) Notification(path string) (Notification, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, err := t.resolveParameter(path)
	if err != nil {
		return NotificationOff, newFault(path, err)
	}
	return p.notification, nil
}

// Attributes returns the notification attributes of the given paths,
// expanding partial paths like GetValues.
func (t *Tree) Attributes(paths ...string) ([]ParameterAttribute, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var result []ParameterAttribute
	for _, path := range paths {
		params, err := t.collectParamsLocked(path)
		if err != nil {
			return nil, newFault(path, err)
		}
		for _, p := range params {
			result = append(result, ParameterAttribute{Path: p.Path(), Notification: p.notification})
		}
	}
	return result, nil
}

func (t *Tree) collectParamsLocked(path string) ([]*Parameter, error) {
	tg, err := t.resolve(path)
	if err != nil {
		return nil, err
	}
	if tg.param != nil {
		return []*Parameter{tg.param}, nil
	}

	var params []*Parameter
	collect := func(n *Node) bool {
		for _, pd := range n.def.Parameters {
			params = append(params, n.params[pd.Name])
		}
		return true
	}
	if tg.table != nil {
		for _, row := range tg.table.rows {
			row.walkLocked(collect)
		}
	} else {
		tg.node.walkLocked(collect)
	}
	return params, nil
}

// ---------------------------------------------------------------------------
// Traversal
// ---------------------------------------------------------------------------

// Walk calls fn for every object in the tree in schema and instance order,
// starting at the root. The set of objects is fixed when Walk starts; fn
// runs without the lock held and may call back into the tree. Returning
// false stops the walk.
func (t *Tree) Walk(fn func(*Node) bool) {
	t.mu.RLock()
	var nodes []*Node
	t.root.walkLocked(func(n *Node) bool {
		nodes = append(nodes, n)
		return true
	})
	t.mu.RUnlock()

	for _, n := range nodes {
		if !fn(n) {
			return
		}
	}
}
