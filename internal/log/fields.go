package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldPlatform  = "platform"
	FieldMonth     = "month"
	FieldTitle     = "title"
	FieldCurrency  = "currency"
	FieldAmount    = "amount"
	FieldPath      = "path"
	FieldError     = "error"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentConfig    = "config"
	ComponentPlatform  = "platform"
	ComponentReconcile = "reconcile"
	ComponentReport    = "report"
	ComponentOutput    = "output"
	ComponentFetch     = "fetch"
	ComponentRunner    = "runner"
)
