package tools

// Statuses reported in structured tool outputs. Expected-unavailable
// outcomes are results, not errors, so the model can react to them.
const (
	StatusOK                       = "ok"
	StatusStored                   = "stored"
	StatusUpdated                  = "updated"
	StatusDeleted                  = "deleted"
	StatusDisabled                 = "disabled"
	StatusError                    = "error"
	StatusWalletCredentialRequired = "wallet-credential-required"
	StatusConfirmationRequired     = "confirmation-required"
	StatusPermissionDenied         = "permission-denied"
	StatusUnavailable              = "unavailable"
	StatusSent                     = "sent"
)

// statusResult is the shape of outcomes that carry only a status and a
// human-readable message.
type statusResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func statusOnly(status, message string) (ToolResult, error) {
	return JSONResult(statusResult{Status: status, Message: message})
}
