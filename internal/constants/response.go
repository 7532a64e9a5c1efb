package constants

// Standard Response Field Keys
const (
	ResponseFieldStatus  = "status"
	ResponseFieldMessage = "message"
	ResponseFieldDetails = "details"
	ResponseFieldError   = "error"
	ResponseFieldNext    = "next"
	ResponseFieldUser    = "user"
)

// Response Format Functions
func BuildErrorResponse(message string, details any) map[string]any {
	response := map[string]any{
		ResponseFieldError: message,
	}

	if details != nil {
		response[ResponseFieldDetails] = details
	}

	return response
}

func BuildSuccessResponse(message string) map[string]any {
	response := map[string]any{
		ResponseFieldStatus: "ok",
	}
	if message != "" {
		response[ResponseFieldMessage] = message
	}
	return response
}
