package reportdto

import "fmt"

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Message string `json:"message"`
}

// APIError is returned by clients when the server answers with an error
// status.
type APIError struct {
	Status    int
	Message   string
	Retryable bool
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("report api %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("report api %d", e.Status)
}
