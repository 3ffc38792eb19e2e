package wire

import "github.com/paramtree/paramtree-go/pkg/model"

// Status is a response status: 0 for success or a TR-069 CPE fault code.
type Status uint16

const (
	StatusSuccess               Status = 0
	StatusMethodNotSupported    Status = 9000
	StatusRequestDenied         Status = 9001
	StatusInternalError         Status = 9002
	StatusInvalidArguments      Status = 9003
	StatusResourcesExceeded     Status = 9004
	StatusInvalidParameterName  Status = 9005
	StatusInvalidParameterType  Status = 9006
	StatusInvalidParameterValue Status = 9007
	StatusNonWritableParameter  Status = 9008
	StatusNotificationRejected  Status = 9009
)

// StatusOf returns the status for an error returned by the model.
func StatusOf(err error) Status {
	return Status(model.FaultCodeOf(err))
}

// String returns the fault string for the status.
func (s Status) String() string {
	if s == StatusSuccess {
		return "Success"
	}
	return model.FaultCode(s).String()
}

// IsSuccess returns true if the status indicates success.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess
}

// IsError returns true if the status indicates an error.
func (s Status) IsError() bool {
	return s != StatusSuccess
}
