package types

// ErrorBody is the wire shape of every failed request.
type ErrorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// SuccessBody is returned by mutations that have nothing else to report.
type SuccessBody struct {
	Success bool `json:"success"`
}

// Ack builds a successful SuccessBody.
func Ack() SuccessBody {
	return SuccessBody{Success: true}
}
