package wire

// Operation is a parameter tree RPC.
type Operation uint8

const (
	OpGetParameterValues     Operation = 1
	OpSetParameterValues     Operation = 2
	OpGetParameterNames      Operation = 3
	OpGetParameterAttributes Operation = 4
	OpSetParameterAttributes Operation = 5
	OpAddObject              Operation = 6
	OpDeleteObject           Operation = 7
)

// String returns the RPC method name.
func (o Operation) String() string {
	switch o {
	case OpGetParameterValues:
		return "GetParameterValues"
	case OpSetParameterValues:
		return "SetParameterValues"
	case OpGetParameterNames:
		return "GetParameterNames"
	case OpGetParameterAttributes:
		return "GetParameterAttributes"
	case OpSetParameterAttributes:
		return "SetParameterAttributes"
	case OpAddObject:
		return "AddObject"
	case OpDeleteObject:
		return "DeleteObject"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the operation is a known RPC.
func (o Operation) IsValid() bool {
	return o >= OpGetParameterValues && o <= OpDeleteObject
}

// ParseOperation returns the operation with the given method name.
func ParseOperation(name string) (Operation, bool) {
	for o := OpGetParameterValues; o <= OpDeleteObject; o++ {
		if o.String() == name {
			return o, true
		}
	}
	return 0, false
}
