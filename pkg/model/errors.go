package model

import (
	"errors"
	"fmt"
	"strings"
)

// Model errors.
var (
	ErrUnknownParameter     = errors.New("unknown parameter")
	ErrReadOnlyParameter    = errors.New("parameter is not writable")
	ErrConstraintViolation  = errors.New("constraint violation")
	ErrNotATable            = errors.New("object is not a table")
	ErrNotFound             = errors.New("instance not found")
	ErrResourcesExceeded    = errors.New("resources exceeded")
	ErrNotificationRejected = errors.New("notification request rejected")
	ErrInvalidPath          = errors.New("invalid path")
	ErrInvalidArguments     = errors.New("invalid arguments")
	ErrInvalidSchema        = errors.New("invalid schema")

	// ErrInvalidType is a constraint violation caused by a value of the
	// wrong type. errors.Is(err, ErrConstraintViolation) holds for it.
	ErrInvalidType = fmt.Errorf("%w: invalid type", ErrConstraintViolation)
)

// FaultCode is a TR-069 CPE fault code.
type FaultCode uint16

const (
	FaultNone                  FaultCode = 0
	FaultMethodNotSupported    FaultCode = 9000
	FaultRequestDenied         FaultCode = 9001
	FaultInternalError         FaultCode = 9002
	FaultInvalidArguments      FaultCode = 9003
	FaultResourcesExceeded     FaultCode = 9004
	FaultInvalidParameterName  FaultCode = 9005
	FaultInvalidParameterType  FaultCode = 9006
	FaultInvalidParameterValue FaultCode = 9007
	FaultNonWritableParameter  FaultCode = 9008
	FaultNotificationRejected  FaultCode = 9009
)

// String returns the fault string defined for the code.
func (c FaultCode) String() string {
	switch c {
	case FaultNone:
		return "No fault"
	case FaultMethodNotSupported:
		return "Method not supported"
	case FaultRequestDenied:
		return "Request denied"
	case FaultInternalError:
		return "Internal error"
	case FaultInvalidArguments:
		return "Invalid arguments"
	case FaultResourcesExceeded:
		return "Resources exceeded"
	case FaultInvalidParameterName:
		return "Invalid parameter name"
	case FaultInvalidParameterType:
		return "Invalid parameter type"
	case FaultInvalidParameterValue:
		return "Invalid parameter value"
	case FaultNonWritableParameter:
		return "Attempt to set a non-writable parameter"
	case FaultNotificationRejected:
		return "Notification request rejected"
	default:
		return "Unknown fault"
	}
}

// FaultCodeOf maps an error returned by this package to its fault code.
func FaultCodeOf(err error) FaultCode {
	var batch *BatchError
	switch {
	case err == nil:
		return FaultNone
	case errors.As(err, &batch):
		return batch.Code()
	case errors.Is(err, ErrInvalidType):
		return FaultInvalidParameterType
	case errors.Is(err, ErrConstraintViolation):
		return FaultInvalidParameterValue
	case errors.Is(err, ErrReadOnlyParameter):
		return FaultNonWritableParameter
	case errors.Is(err, ErrUnknownParameter),
		errors.Is(err, ErrNotATable),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidPath):
		return FaultInvalidParameterName
	case errors.Is(err, ErrInvalidArguments):
		return FaultInvalidArguments
	case errors.Is(err, ErrResourcesExceeded):
		return FaultResourcesExceeded
	case errors.Is(err, ErrNotificationRejected):
		return FaultNotificationRejected
	default:
		return FaultInternalError
	}
}

// Fault is a failure of an operation on a single path.
type Fault struct {
	// Path is the parameter or object path the operation targeted.
	Path string

	// Code is the TR-069 fault code.
	Code FaultCode

	// Err is the underlying error. It wraps one of the package sentinels.
	Err error
}

func newFault(path string, err error) *Fault {
	return &Fault{Path: path, Code: FaultCodeOf(err), Err: err}
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %v", f.Path, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// BatchError reports every failing entry of a rejected batch write.
// None of the batch was applied.
type BatchError struct {
	Faults []*Fault
}

func (e *BatchError) Error() string {
	parts := make([]string, len(e.Faults))
	for i, f := range e.Faults {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("batch rejected (%d faults): %s", len(e.Faults), strings.Join(parts, "; "))
}

func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Faults))
	for i, f := range e.Faults {
		errs[i] = f
	}
	return errs
}

// Code returns the fault code for the batch as a whole. A batch of rejected
// notification requests reports 9009; any other batch reports 9003.
func (e *BatchError) Code() FaultCode {
	if len(e.Faults) == 0 {
		return FaultInvalidArguments
	}
	for _, f := range e.Faults {
		if f.Code != FaultNotificationRejected {
			return FaultInvalidArguments
		}
	}
	return FaultNotificationRejected
}
