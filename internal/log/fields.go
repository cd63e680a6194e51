package log

// Common field names for structured logging.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldBillID     = "bill_id"
	FieldBillDate   = "bill_date"
	FieldBillStatus = "bill_status"
	FieldEmail      = "email"
	FieldFileName   = "file_name"
	FieldSheetsRef  = "sheets_ref"
)

// Components defines standard component names.
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentBills    = "bills"
	ComponentNewBill  = "newbill"
	ComponentSession  = "session"
	ComponentStore    = "store"
	ComponentAMQP     = "amqp"
	ComponentExporter = "exporter"
	ComponentSheets   = "sheets"
	ComponentTemplate = "template"
)

// Operations defines standard operation names.
const (
	OpList     = "list"
	OpCreate   = "create"
	OpUpdate   = "update"
	OpLogin    = "login"
	OpLogout   = "logout"
	OpValidate = "validate"
	OpSubmit   = "submit"
	OpExport   = "export"
	OpRender   = "render"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)
