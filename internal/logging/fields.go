package logging

// Standardized structured-log field keys.
const (
	FieldComponent = "component"
	FieldErrorHint = "error_hint"
	FieldBookID    = "book_id"
	FieldQuery     = "query"
	FieldUsername  = "username"
	FieldRequestID = "request_id"
)
