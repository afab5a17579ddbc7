package responses

// SuccessEnvelope wraps every 2xx body.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps every error body. Data is only set for failures that
// still report a result, such as an INVALID_SIGNATURE webhook outcome.
type ErrorEnvelope struct {
	Data  any      `json:"data,omitempty"`
	Error APIError `json:"error"`
}
