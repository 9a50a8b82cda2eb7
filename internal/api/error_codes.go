// internal/api/error_codes.go
package api

// API错误码定义
const (
	ErrorBadRequest            = "BAD_REQUEST"
	ErrorNotFound              = "NOT_FOUND"
	ErrorInternalError         = "INTERNAL_ERROR"
	ErrorValidationFailed      = "VALIDATION_FAILED"
	ErrorGenerationExhausted   = "GENERATION_EXHAUSTED"
	ErrorPaperFetchFailed      = "PAPER_FETCH_FAILED"
	ErrorLLMServiceUnavailable = "LLM_SERVICE_UNAVAILABLE"
	ErrorTaskNotFound          = "TASK_NOT_FOUND"
	ErrorScriptNotFound        = "SCRIPT_NOT_FOUND"
	ErrorStorageFailed         = "STORAGE_FAILED"
)
