package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
)

// ToolSendEmail is the name of the email tool.
const ToolSendEmail = "send_email"

// Email is a message the agent wants to send on the user's behalf.
type Email struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

// EmailSender delivers email.
type EmailSender interface {
	Send(ctx context.Context, email Email) error
}

// EmailTool sends email after the user confirmed the draft.
type EmailTool struct {
	BaseTool
	sender EmailSender
}

// NewEmailTool creates the email tool.
func NewEmailTool(deps Dependencies) *EmailTool {
	return &EmailTool{sender: deps.Email}
}

// Metadata returns the tool metadata.
func (t *EmailTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        ToolSendEmail,
		Title:       "Send email",
		Description: "Send an email. Call without confirmed first to show the user a preview, then again with confirmed=true",
		Parameters: []ToolParameter{
			{Name: "to", ParamType: "array", Description: "Recipient addresses", Required: true},
			{Name: "subject", ParamType: "string", Description: "Subject line", Required: true},
			{Name: "body", ParamType: "string", Description: "Plain text body", Required: true},
			{Name: "confirmed", ParamType: "boolean", Description: "True once the user approved the preview", Required: false},
		},
	}
}

// Execute previews or sends the email.
func (t *EmailTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a struct {
		Email
		Confirmed bool `json:"confirmed"`
	}
	if _, err := decodeArgs(args, &a); err != nil {
		return ToolResult{}, err
	}
	if len(a.To) == 0 || strings.TrimSpace(a.Subject) == "" || strings.TrimSpace(a.Body) == "" {
		return ToolResult{}, fmt.Errorf("%s: to, subject and body are required", ToolSendEmail)
	}
	for _, addr := range a.To {
		if _, err := mail.ParseAddress(addr); err != nil {
			return ToolResult{}, fmt.Errorf("%s: invalid recipient %q: %w", ToolSendEmail, addr, err)
		}
	}
	if t.sender == nil {
		return statusOnly(StatusUnavailable, "email sending is not configured")
	}
	if !a.Confirmed {
		return JSONResult(map[string]any{
			"status":  StatusConfirmationRequired,
			"message": "Show the preview to the user and call again with confirmed=true after they approve",
			"preview": a.Email,
		})
	}

	if err := t.sender.Send(ctx, a.Email); err != nil {
		return FailureResult(fmt.Errorf("failed to send email: %w", err)), nil
	}
	return JSONResult(map[string]any{"status": StatusSent, "to": a.To, "subject": a.Subject})
}
