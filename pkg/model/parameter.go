package model

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

// Access flags for parameters and tables.
type Access uint8

const (
	// AccessRead allows reading the parameter.
	AccessRead Access = 1 << iota

	// AccessWrite allows the management protocol to write the parameter.
	// For a table it allows adding and deleting rows.
	AccessWrite

	// AccessReadOnly is read only. The device may still update the value.
	AccessReadOnly = AccessRead

	// AccessReadWrite is read and write.
	AccessReadWrite = AccessRead | AccessWrite
)

// CanRead returns true if reading is allowed.
func (a Access) CanRead() bool { return a&AccessRead != 0 }

// CanWrite returns true if writing is allowed.
func (a Access) CanWrite() bool { return a&AccessWrite != 0 }

// String returns the access flags as a string.
func (a Access) String() string {
	var s string
	if a.CanRead() {
		s += "R"
	}
	if a.CanWrite() {
		s += "W"
	}
	if s == "" {
		return "-"
	}
	return s
}

// ParseAccess parses the data model access names "readOnly" and "readWrite".
func ParseAccess(s string) (Access, error) {
	switch strings.ToLower(s) {
	case "", "readonly", "r":
		return AccessReadOnly, nil
	case "readwrite", "rw":
		return AccessReadWrite, nil
	}
	return 0, fmt.Errorf("%w: unknown access %q", ErrInvalidSchema, s)
}

// Notification is the notification attribute of a parameter.
type Notification uint8

const (
	// NotificationOff means changes are not reported.
	NotificationOff Notification = 0

	// NotificationPassive means changes are reported with the next session.
	NotificationPassive Notification = 1

	// NotificationActive means changes are reported as soon as possible.
	NotificationActive Notification = 2
)

// String returns the notification level name.
func (n Notification) String() string {
	switch n {
	case NotificationOff:
		return "off"
	case NotificationPassive:
		return "passive"
	case NotificationActive:
		return "active"
	default:
		return "unknown"
	}
}

// ParseNotification parses "off", "passive", "active" or the numeric form.
func ParseNotification(s string) (Notification, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off", "0":
		return NotificationOff, nil
	case "passive", "1":
		return NotificationPassive, nil
	case "active", "2":
		return NotificationActive, nil
	}
	return 0, fmt.Errorf("%w: unknown notification %q", ErrConstraintViolation, s)
}

// ActiveNotify is the policy a parameter declares for active notification.
type ActiveNotify uint8

const (
	// ActiveNotifyNormal allows any notification level.
	ActiveNotifyNormal ActiveNotify = iota

	// ActiveNotifyForceEnabled pins the parameter to active notification.
	ActiveNotifyForceEnabled

	// ActiveNotifyForceDefaultEnabled starts at active notification but may
	// be changed.
	ActiveNotifyForceDefaultEnabled

	// ActiveNotifyCanDeny allows the device to reject active notification.
	// This implementation always rejects it.
	ActiveNotifyCanDeny
)

// String returns the policy name.
func (a ActiveNotify) String() string {
	switch a {
	case ActiveNotifyNormal:
		return "normal"
	case ActiveNotifyForceEnabled:
		return "forceEnabled"
	case ActiveNotifyForceDefaultEnabled:
		return "forceDefaultEnabled"
	case ActiveNotifyCanDeny:
		return "canDeny"
	default:
		return "unknown"
	}
}

// ParseActiveNotify parses a policy name.
func ParseActiveNotify(s string) (ActiveNotify, error) {
	switch strings.ToLower(s) {
	case "", "normal":
		return ActiveNotifyNormal, nil
	case "forceenabled":
		return ActiveNotifyForceEnabled, nil
	case "forcedefaultenabled":
		return ActiveNotifyForceDefaultEnabled, nil
	case "candeny":
		return ActiveNotifyCanDeny, nil
	}
	return 0, fmt.Errorf("%w: unknown activeNotify %q", ErrInvalidSchema, s)
}

// RefPolicy says what happens to a reference when its target is deleted.
type RefPolicy uint8

const (
	// RefClear empties the reference, or drops the item from a list.
	RefClear RefPolicy = iota

	// RefDeleteReferrer deletes the table row holding the reference.
	RefDeleteReferrer
)

// String returns the policy name.
func (p RefPolicy) String() string {
	if p == RefDeleteReferrer {
		return "delete"
	}
	return "clear"
}

// ReferenceDef marks a string parameter as a path reference to an object.
type ReferenceDef struct {
	// TargetTypes lists the schema paths the reference may point to,
	// e.g. "Device.Ethernet.Interface.{i}.". Empty means any object.
	TargetTypes []string

	// OnDelete is applied when the referenced object is deleted.
	OnDelete RefPolicy
}

// Range is an inclusive numeric range. A nil bound is unbounded.
type Range struct {
	Min any
	Max any
}

func (r Range) contains(v any) bool {
	if r.Min != nil {
		if c, ok := compareNumbers(v, r.Min); ok && c < 0 {
			return false
		}
	}
	if r.Max != nil {
		if c, ok := compareNumbers(v, r.Max); ok && c > 0 {
			return false
		}
	}
	return true
}

func (r Range) String() string {
	lo, hi := "", ""
	if r.Min != nil {
		lo = fmt.Sprint(r.Min)
	}
	if r.Max != nil {
		hi = fmt.Sprint(r.Max)
	}
	return "[" + lo + ":" + hi + "]"
}

// ParameterDef describes a parameter's properties.
type ParameterDef struct {
	// Name is the local parameter name.
	Name string

	// Type is the data type of the parameter value.
	Type DataType

	// Access defines whether the management protocol may write it.
	Access Access

	// Default is applied when the owning object is created.
	// Nil means the type's zero value.
	Default any

	// Ranges are the allowed numeric ranges. The value must fall in one.
	Ranges []Range

	// MinLength and MaxLength bound string and byte lengths. A MaxLength
	// of 0 is unbounded. For lists the bound applies to the whole value.
	MinLength int
	MaxLength int

	// Enum lists the allowed string values.
	Enum []string

	// Pattern is a regular expression the whole value must match.
	Pattern string

	// List marks a comma-separated list value. Enum, Pattern and
	// Reference apply to each item.
	List bool

	// Unit is the unit of measurement (e.g., "milliseconds", "Mbps").
	Unit string

	// Notification is the initial notification attribute.
	Notification Notification

	// ActiveNotify is the active notification policy.
	ActiveNotify ActiveNotify

	// Reference marks the parameter as a path reference.
	Reference *ReferenceDef

	// Description is a human-readable description.
	Description string

	pattern      *regexp.Regexp
	defaultValue any
}

// Writable returns true if the management protocol may write the parameter.
func (p *ParameterDef) Writable() bool {
	return p.Access.CanWrite()
}

// DefaultValue returns the canonical default value.
func (p *ParameterDef) DefaultValue() any {
	if p.defaultValue != nil {
		return cloneValue(p.defaultValue)
	}
	return p.Type.ZeroValue()
}

// InitialNotification returns the notification attribute a new parameter
// instance starts with.
func (p *ParameterDef) InitialNotification() Notification {
	switch p.ActiveNotify {
	case ActiveNotifyForceEnabled, ActiveNotifyForceDefaultEnabled:
		return NotificationActive
	case ActiveNotifyCanDeny:
		if p.Notification == NotificationActive {
			return NotificationPassive
		}
	}
	return p.Notification
}

// compile prepares the definition for use and checks it for consistency.
func (p *ParameterDef) compile() error {
	if p.Name == "" || strings.ContainsAny(p.Name, ". ") {
		return fmt.Errorf("%w: invalid parameter name %q", ErrInvalidSchema, p.Name)
	}
	if p.Type == DataTypeUnknown {
		return fmt.Errorf("%w: parameter %s has no type", ErrInvalidSchema, p.Name)
	}
	if p.Access == 0 {
		p.Access = AccessReadOnly
	}
	if p.Reference != nil && p.Type != DataTypeString {
		return fmt.Errorf("%w: reference parameter %s must be a string", ErrInvalidSchema, p.Name)
	}
	if p.Pattern != "" {
		re, err := regexp.Compile("^(?:" + p.Pattern + ")$")
		if err != nil {
			return fmt.Errorf("%w: parameter %s pattern: %v", ErrInvalidSchema, p.Name, err)
		}
		p.pattern = re
	}
	for i, r := range p.Ranges {
		if r.Min != nil {
			if _, _, ok := magnitude(r.Min); !ok {
				return fmt.Errorf("%w: parameter %s range %d min is not an integer", ErrInvalidSchema, p.Name, i)
			}
		}
		if r.Max != nil {
			if _, _, ok := magnitude(r.Max); !ok {
				return fmt.Errorf("%w: parameter %s range %d max is not an integer", ErrInvalidSchema, p.Name, i)
			}
		}
	}
	p.defaultValue = nil
	if p.Default != nil {
		v, err := p.Validate(p.Default)
		if err != nil {
			return fmt.Errorf("%w: parameter %s default: %v", ErrInvalidSchema, p.Name, err)
		}
		p.defaultValue = v
	}
	return nil
}

// Validate coerces v to the parameter's type and checks every declared
// constraint. It returns the canonical value. Path reference targets are
// checked by the tree, not here.
func (p *ParameterDef) Validate(v any) (any, error) {
	cv, err := p.Type.Coerce(v)
	if err != nil {
		return nil, err
	}

	if p.Type.IsNumeric() && len(p.Ranges) > 0 {
		ok := false
		for _, r := range p.Ranges {
			if r.contains(cv) {
				ok = true
				break
			}
		}
		if !ok {
			return nil, fmt.Errorf("%w: %v not in range %s", ErrConstraintViolation, cv, p.rangesString())
		}
	}

	if p.Type.hasLength() {
		n := valueLength(cv)
		if n < p.MinLength {
			return nil, fmt.Errorf("%w: length %d < %d", ErrConstraintViolation, n, p.MinLength)
		}
		if p.MaxLength > 0 && n > p.MaxLength {
			return nil, fmt.Errorf("%w: length %d > %d", ErrConstraintViolation, n, p.MaxLength)
		}
	}

	if s, ok := cv.(string); ok && (len(p.Enum) > 0 || p.pattern != nil) {
		for _, item := range p.items(s) {
			if len(p.Enum) > 0 && !slices.Contains(p.Enum, item) {
				return nil, fmt.Errorf("%w: %q not one of %v", ErrConstraintViolation, item, p.Enum)
			}
			if p.pattern != nil && !p.pattern.MatchString(item) {
				return nil, fmt.Errorf("%w: %q does not match pattern", ErrConstraintViolation, item)
			}
		}
	}

	return cv, nil
}

// items splits a value into the units Enum and Pattern apply to.
func (p *ParameterDef) items(s string) []string {
	if !p.List {
		return []string{s}
	}
	return SplitList(s)
}

func (p *ParameterDef) rangesString() string {
	parts := make([]string, len(p.Ranges))
	for i, r := range p.Ranges {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}

func valueLength(v any) int {
	switch x := v.(type) {
	case string:
		return utf8.RuneCountInString(x)
	case []byte:
		return len(x)
	}
	return 0
}

// SplitList splits a comma-separated list value, trimming whitespace and
// dropping empty items.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

// Parameter is a parameter instance with its current value.
type Parameter struct {
	def          *ParameterDef
	node         *Node
	value        any
	notification Notification
}

func newParameter(def *ParameterDef, node *Node) *Parameter {
	return &Parameter{
		def:          def,
		node:         node,
		value:        def.DefaultValue(),
		notification: def.InitialNotification(),
	}
}

// Def returns the parameter definition.
func (p *Parameter) Def() *ParameterDef {
	return p.def
}

// Path returns the full parameter path.
func (p *Parameter) Path() string {
	return p.node.Path() + p.def.Name
}

func (p *Parameter) valueLocked() ParameterValue {
	return ParameterValue{Path: p.Path(), Type: p.def.Type, Value: cloneValue(p.value)}
}

// assign stores a validated value. It reports the change, or false if the
// value is unchanged.
func (p *Parameter) assign(v any, origin Origin) (Change, bool) {
	if valuesEqual(p.value, v) {
		return Change{}, false
	}
	old := p.value
	p.value = v
	return Change{
		Kind:         ChangeValue,
		Path:         p.Path(),
		Type:         p.def.Type,
		OldValue:     old,
		Value:        cloneValue(v),
		Notification: p.notification,
		Origin:       origin,
	}, true
}
