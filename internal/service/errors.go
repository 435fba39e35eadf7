package service

import "fmt"

// Validation codes.
const (
	CodeInvalidRequest   = "invalid_request"
	CodeInvalidDatetime  = "invalid_datetime"
	CodeEndBeforeStart   = "end_before_start"
	CodeFacilityNotFound = "facility_not_found"
	CodeMaintenance      = "facility_in_maintenance"
	CodeInvalidEquipment = "invalid_equipment"
	CodeInvalidQuantity  = "invalid_quantity"
)

// ValidationError is malformed caller input. It is never retried and always
// maps to a 400-class response.
type ValidationError struct {
	Code    string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(code, msg string, err error) *ValidationError {
	return &ValidationError{Code: code, Message: msg, Err: err}
}
