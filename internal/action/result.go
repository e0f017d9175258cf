// Package action defines the closed catalog of household actions and the
// uniform result every action produces.
package action

import "encoding/json"

// Result is the outcome of one dispatched action. Construct it with
// [Succeed] or [Fail]; a Result is never modified after construction.
type Result struct {
	success bool
	message string
	data    any
	detail  string
}

// Succeed returns a successful result carrying an optional payload.
func Succeed(message string, data any) Result {
	return Result{success: true, message: message, data: data}
}

// Fail returns a failed result. detail is a technical string kept apart
// from the user-facing message and may be empty.
func Fail(message, detail string) Result {
	return Result{message: message, detail: detail}
}

// OK reports whether the action succeeded.
func (r Result) OK() bool { return r.success }

// Message is the natural-language summary shown to the user.
func (r Result) Message() string { return r.message }

// Data is the payload of a successful result, or nil.
func (r Result) Data() any { return r.data }

// Detail is the technical error string of a failed result, or "".
func (r Result) Detail() string { return r.detail }

type wireResult struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Data    any     `json:"data,omitempty"`
	Error   *string `json:"error,omitempty"`
}

// MarshalJSON renders {success, message, data} or {success, message, error}.
func (r Result) MarshalJSON() ([]byte, error) {
	w := wireResult{Success: r.success, Message: r.message}
	if r.success {
		w.Data = r.data
	} else {
		detail := r.detail
		w.Error = &detail
		if detail == "" {
			w.Error = nil
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts the form produced by MarshalJSON.
func (r *Result) UnmarshalJSON(b []byte) error {
	var w wireResult
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	r.success = w.Success
	r.message = w.Message
	r.data = w.Data
	r.detail = ""
	if w.Error != nil {
		r.detail = *w.Error
	}
	return nil
}
