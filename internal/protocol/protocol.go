// Package protocol handles JSON stdin/stdout communication with Claude Code hooks.
// Hooks read one event from stdin and write one response to stdout.
package protocol

import (
	"encoding/json"
	"fmt"
	"io"
)

// MaxInputSize limits stdin to 10MB to prevent DoS attacks
const MaxInputSize = 10 * 1024 * 1024

// EventPreToolUse is the hook event the gate answers.
const EventPreToolUse = "PreToolUse"

// HookInput represents the JSON input from Claude Code to hooks
type HookInput struct {
	SessionID     string                 `json:"session_id"`
	HookEventName string                 `json:"hook_event_name,omitempty"`
	Cwd           string                 `json:"cwd,omitempty"`
	ToolName      string                 `json:"tool_name"`
	ToolInput     map[string]interface{} `json:"tool_input"`
}

// HookOutput represents the JSON output from hooks to Claude Code
type HookOutput struct {
	SystemMessage      string              `json:"systemMessage,omitempty"`
	HookSpecificOutput *HookSpecificOutput `json:"hookSpecificOutput,omitempty"`
}

// HookSpecificOutput contains hook-specific decisions
type HookSpecificOutput struct {
	HookEventName            string `json:"hookEventName"`
	PermissionDecision       string `json:"permissionDecision,omitempty"`
	PermissionDecisionReason string `json:"permissionDecisionReason,omitempty"`
}

// PermissionDeny is the decision that stops the tool call.
const PermissionDeny = "deny"

// ReadInput reads and parses one JSON event from r with size limiting
func ReadInput(r io.Reader) (*HookInput, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxInputSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}

	// Handle empty input gracefully
	if len(data) == 0 {
		return &HookInput{}, nil
	}

	var input HookInput
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return &input, nil
}

// WriteOutput writes a JSON response to w
func WriteOutput(w io.Writer, output *HookOutput) error {
	data, err := json.Marshal(output)
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}

	_, err = w.Write(data)
	return err
}

// WriteEmpty writes an empty JSON object {}, letting the tool call proceed
func WriteEmpty(w io.Writer) error {
	_, err := io.WriteString(w, "{}")
	return err
}

// WriteError writes a hook failure as a systemMessage without blocking
func WriteError(w io.Writer, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	return WriteOutput(w, &HookOutput{
		SystemMessage: fmt.Sprintf("[pre-commit] Hook error: %s", msg),
	})
}

// WriteDeny writes a PreToolUse permission denial carrying reason
func WriteDeny(w io.Writer, reason string) error {
	return WriteOutput(w, &HookOutput{
		SystemMessage: reason,
		HookSpecificOutput: &HookSpecificOutput{
			HookEventName:            EventPreToolUse,
			PermissionDecision:       PermissionDeny,
			PermissionDecisionReason: reason,
		},
	})
}

// GetCommand extracts command from tool input (for Bash), returns empty string if not present
func (h *HookInput) GetCommand() string {
	if h.ToolInput == nil {
		return ""
	}
	if cmd, ok := h.ToolInput["command"].(string); ok {
		return cmd
	}
	return ""
}
