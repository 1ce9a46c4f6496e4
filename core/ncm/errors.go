package ncm

import "fmt"

// UnknownOperationError reports an invoke of an operation the upstream
// collaborator does not provide.
type UnknownOperationError struct {
	Op string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("upstream operation not found: %s", e.Op)
}

// InvalidResponseError reports an upstream call that produced something
// other than a JSON object body.
type InvalidResponseError struct {
	Op string
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("invalid response from operation: %s", e.Op)
}

// RejectedError reports an upstream status code outside the allowed set, or
// an envelope too empty to judge. Message carries the upstream msg when one
// was present.
type RejectedError struct {
	Op      string
	Code    int
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s failed: code=%d", e.Op, e.Code)
}
