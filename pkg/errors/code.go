package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 13000-13999: Submission & Judge errors
// 14000-14999: Sandbox errors
const (
	// ========== System & Common Errors (10000-10999) ==========

	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Database errors (10100-10199)
	DatabaseError       ErrorCode = 10100
	RecordNotFound      ErrorCode = 10101
	RecordAlreadyExists ErrorCode = 10102

	// Broker errors (10200-10299)
	BrokerError      ErrorCode = 10200
	BrokerEmpty      ErrorCode = 10201
	StorageError     ErrorCode = 10210
	ConfigLoadFailed ErrorCode = 10250

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	InvalidValue       ErrorCode = 10302
	RequiredFieldEmpty ErrorCode = 10303

	// ========== Submission & Judge Errors (13000-13999) ==========

	// Submission (13000-13099)
	SubmissionNotFound     ErrorCode = 13000
	SubmissionCreateFailed ErrorCode = 13001
	LanguageNotSupported   ErrorCode = 13003
	TypeNotSupported       ErrorCode = 13006
	TestCaseInvalid        ErrorCode = 13007

	// Judge (13100-13199)
	JudgeSystemError    ErrorCode = 13101
	CompilationError    ErrorCode = 13102
	RuntimeError        ErrorCode = 13103
	TimeLimitExceeded   ErrorCode = 13104
	MemoryLimitExceeded ErrorCode = 13105
	InvalidOutputFormat ErrorCode = 13107
	ReferenceFailed     ErrorCode = 13108

	// ========== Sandbox Errors (14000-14999) ==========

	SandboxInitFailed ErrorCode = 14000
	SandboxRunFailed  ErrorCode = 14001
	SandboxReportBad  ErrorCode = 14002
)

var errorMessages = map[ErrorCode]string{
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	DatabaseError:       "Database error",
	RecordNotFound:      "Record not found",
	RecordAlreadyExists: "Record already exists",

	BrokerError:      "Broker error",
	BrokerEmpty:      "Broker queue is empty",
	StorageError:     "Object storage error",
	ConfigLoadFailed: "Failed to load configuration",

	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	InvalidValue:       "Invalid value",
	RequiredFieldEmpty: "Required field is empty",

	SubmissionNotFound:     "Submission not found",
	SubmissionCreateFailed: "Failed to create submission",
	LanguageNotSupported:   "Programming language not supported",
	TypeNotSupported:       "Type tag not supported",
	TestCaseInvalid:        "Invalid test case",

	JudgeSystemError:    "Judge system error",
	CompilationError:    "Compilation error",
	RuntimeError:        "Runtime error",
	TimeLimitExceeded:   "Time limit exceeded",
	MemoryLimitExceeded: "Memory limit exceeded",
	InvalidOutputFormat: "Invalid output format",
	ReferenceFailed:     "Reference solution failed",

	SandboxInitFailed: "Sandbox initialization failed",
	SandboxRunFailed:  "Sandbox invocation failed",
	SandboxReportBad:  "Sandbox report is malformed",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the HTTP status the ops server answers with for the code.
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == NotFound, c == RecordNotFound, c == SubmissionNotFound:
		return 404
	case c >= 10300 && c < 10400, c == InvalidParams:
		return 400
	case c == ServiceUnavailable, c == BrokerError:
		return 503
	case c == Timeout:
		return 504
	default:
		return 500
	}
}
