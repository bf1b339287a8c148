package sai

import (
	"errors"
	"fmt"
)

// Status is an operation result code. Codes that exist in the switch
// abstraction interface keep their numeric value there. Status implements
// error so a bare code can be returned and matched with errors.Is.
type Status int32

const (
	StatusSuccess                   Status = 0
	StatusFailure                   Status = -1
	StatusInvalidParameter          Status = -5
	StatusAlreadyExists             Status = -6
	StatusItemNotFound              Status = -7
	StatusMissingMandatoryAttribute Status = -14
	StatusNotImplemented            Status = -15
	StatusObjectInUse               Status = -17
	StatusInvalidObjectReference    Status = -19
	StatusNotExecuted               Status = -23
	StatusDuplicateAttribute        Status = -0x10000
	StatusInvalidEnumValue          Status = -0x20000
	StatusUnknownAttribute          Status = -0x40000
	StatusAttributeNotSupported     Status = -0x50000
	StatusChannelIndeterminate      Status = -0x60000
)

var statusNames = map[Status]string{
	StatusSuccess:                   "SAI_STATUS_SUCCESS",
	StatusFailure:                   "SAI_STATUS_FAILURE",
	StatusInvalidParameter:          "SAI_STATUS_INVALID_PARAMETER",
	StatusAlreadyExists:             "SAI_STATUS_ITEM_ALREADY_EXISTS",
	StatusItemNotFound:              "SAI_STATUS_ITEM_NOT_FOUND",
	StatusMissingMandatoryAttribute: "SAI_STATUS_MANDATORY_ATTRIBUTE_MISSING",
	StatusNotImplemented:            "SAI_STATUS_NOT_IMPLEMENTED",
	StatusObjectInUse:               "SAI_STATUS_OBJECT_IN_USE",
	StatusInvalidObjectReference:    "SAI_STATUS_INVALID_OBJECT_ID",
	StatusNotExecuted:               "SAI_STATUS_NOT_EXECUTED",
	StatusDuplicateAttribute:        "SAI_STATUS_DUPLICATE_ATTRIBUTE",
	StatusInvalidEnumValue:          "SAI_STATUS_INVALID_ATTR_VALUE",
	StatusUnknownAttribute:          "SAI_STATUS_UNKNOWN_ATTRIBUTE",
	StatusAttributeNotSupported:     "SAI_STATUS_ATTR_NOT_SUPPORTED",
	StatusChannelIndeterminate:      "SAI_STATUS_CHANNEL_INDETERMINATE",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("SAI_STATUS_%d", int32(s))
}

func (s Status) Error() string { return s.String() }

// ParseStatus resolves a "SAI_STATUS_*" name.
func ParseStatus(name string) (Status, error) {
	for s, n := range statusNames {
		if n == name {
			return s, nil
		}
	}
	return StatusFailure, fmt.Errorf("unknown status %q", name)
}

// StatusError is a status with context.
type StatusError struct {
	Status Status
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return e.Status.String()
	}
	return e.Status.String() + ": " + e.Detail
}

func (e *StatusError) Unwrap() error { return e.Status }

// Errorf returns a StatusError with a formatted detail message.
func Errorf(s Status, format string, args ...interface{}) error {
	return &StatusError{Status: s, Detail: fmt.Sprintf(format, args...)}
}

// StatusOf extracts the status carried by err. A nil error is success and
// an error without a status is a generic failure.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	var s Status
	if errors.As(err, &s) {
		return s
	}
	return StatusFailure
}

// Err converts a status into an error, mapping success to nil.
func (s Status) Err() error {
	if s == StatusSuccess {
		return nil
	}
	return s
}
