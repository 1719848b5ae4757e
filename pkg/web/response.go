// Package web defines common components for a web application.
package web

// ErrorInfo carries a stable machine-readable reason code for a failure.
type ErrorInfo struct {
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// Response holds the common response envelope for all APIs. Failures carry
// a reason code and a human-readable message, never a raw stack trace.
type Response struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// OK wraps data into a success envelope.
func OK(data any, msg string) Response {
	return Response{Success: true, Message: msg, Data: data}
}

// Fail wraps a reason code and message into a failure envelope.
func Fail(msg, code string) Response {
	return Response{Success: false, Message: msg, Error: &ErrorInfo{Code: code}}
}
