package model

// Origin identifies who made a change.
type Origin uint8

const (
	// OriginManagement is the management protocol write path.
	OriginManagement Origin = iota

	// OriginDevice is the device or agent updating its own state.
	OriginDevice
)

// String returns the origin name.
func (o Origin) String() string {
	if o == OriginDevice {
		return "device"
	}
	return "management"
}

// ChangeKind classifies a change.
type ChangeKind uint8

const (
	ChangeValue ChangeKind = iota
	ChangeObjectAdded
	ChangeObjectDeleted
)

// String returns the change kind name.
func (k ChangeKind) String() string {
	switch k {
	case ChangeValue:
		return "value"
	case ChangeObjectAdded:
		return "added"
	case ChangeObjectDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Change describes one committed modification of the tree.
type Change struct {
	Kind ChangeKind

	// Path is the parameter path for value changes and the object path
	// (trailing dot) for added and deleted objects.
	Path string

	// Type, OldValue and Value are set for value changes.
	Type     DataType
	OldValue any
	Value    any

	// Notification is the parameter's notification attribute at the time
	// of the change.
	Notification Notification

	Origin Origin
}

// ChangeListener receives the changes of each committed operation.
// OnChange is called after the tree lock is released, in commit order.
// It may read from the tree but must not modify it, and must not retain
// the slice.
type ChangeListener interface {
	OnChange(changes []Change)
}
