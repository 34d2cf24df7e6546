package protocol

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestGetCommand(t *testing.T) {
	tests := []struct {
		name  string
		input HookInput
		want  string
	}{
		{
			name:  "nil tool input",
			input: HookInput{ToolInput: nil},
			want:  "",
		},
		{
			name:  "no command key",
			input: HookInput{ToolInput: map[string]interface{}{"other": "value"}},
			want:  "",
		},
		{
			name:  "command not string",
			input: HookInput{ToolInput: map[string]interface{}{"command": 42}},
			want:  "",
		},
		{
			name:  "valid command",
			input: HookInput{ToolInput: map[string]interface{}{"command": "git commit -m x"}},
			want:  "git commit -m x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.input.GetCommand(); got != tt.want {
				t.Errorf("GetCommand() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReadInput(t *testing.T) {
	t.Run("parse full PreToolUse event", func(t *testing.T) {
		jsonData := `{
			"session_id": "test-session-123",
			"hook_event_name": "PreToolUse",
			"cwd": "/work/project",
			"tool_name": "Bash",
			"tool_input": {
				"command": "git commit -m 'add feature'",
				"description": "Commit changes"
			}
		}`

		input, err := ReadInput(strings.NewReader(jsonData))
		if err != nil {
			t.Fatalf("ReadInput() error = %v", err)
		}
		if input.SessionID != "test-session-123" {
			t.Errorf("SessionID = %v, want 'test-session-123'", input.SessionID)
		}
		if input.HookEventName != EventPreToolUse {
			t.Errorf("HookEventName = %v, want %v", input.HookEventName, EventPreToolUse)
		}
		if input.Cwd != "/work/project" {
			t.Errorf("Cwd = %v, want '/work/project'", input.Cwd)
		}
		if input.ToolName != "Bash" {
			t.Errorf("ToolName = %v, want 'Bash'", input.ToolName)
		}
		if input.GetCommand() != "git commit -m 'add feature'" {
			t.Errorf("GetCommand() = %v", input.GetCommand())
		}
	})

	t.Run("empty input", func(t *testing.T) {
		input, err := ReadInput(strings.NewReader(""))
		if err != nil {
			t.Fatalf("ReadInput() error = %v", err)
		}
		if input.ToolName != "" || input.GetCommand() != "" {
			t.Errorf("ReadInput(\"\") = %+v, want zero input", input)
		}
	})

	t.Run("malformed JSON", func(t *testing.T) {
		if _, err := ReadInput(strings.NewReader("{not json")); err == nil {
			t.Error("ReadInput() should fail on malformed JSON")
		}
	})

	t.Run("oversized input is truncated", func(t *testing.T) {
		big := `{"tool_name":"Bash","tool_input":{"command":"` + strings.Repeat("a", MaxInputSize) + `"}}`
		if _, err := ReadInput(strings.NewReader(big)); err == nil {
			t.Error("ReadInput() should fail once the limit cuts the document short")
		}
	})
}

func TestWriteDeny(t *testing.T) {
	var buf bytes.Buffer
	reason := "[pre-commit] Tests failed. Please fix failing tests before committing.\n1 failed"
	if err := WriteDeny(&buf, reason); err != nil {
		t.Fatalf("WriteDeny() error = %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if parsed["systemMessage"] != reason {
		t.Errorf("systemMessage = %v, want %q", parsed["systemMessage"], reason)
	}

	hookOutput, ok := parsed["hookSpecificOutput"].(map[string]interface{})
	if !ok {
		t.Fatal("hookSpecificOutput not found or wrong type")
	}
	if hookOutput["hookEventName"] != EventPreToolUse {
		t.Errorf("hookEventName = %v, want %v", hookOutput["hookEventName"], EventPreToolUse)
	}
	if hookOutput["permissionDecision"] != PermissionDeny {
		t.Errorf("permissionDecision = %v, want %v", hookOutput["permissionDecision"], PermissionDeny)
	}
	if hookOutput["permissionDecisionReason"] != reason {
		t.Errorf("permissionDecisionReason = %v, want %q", hookOutput["permissionDecisionReason"], reason)
	}
}

func TestWriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEmpty(&buf); err != nil {
		t.Fatalf("WriteEmpty() error = %v", err)
	}
	if buf.String() != "{}" {
		t.Errorf("WriteEmpty() = %s, want {}", buf.String())
	}
}

func TestWriteError(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteError(&buf, "loading config: %v", "boom"); err != nil {
		t.Fatalf("WriteError() error = %v", err)
	}

	var out HookOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if out.SystemMessage != "[pre-commit] Hook error: loading config: boom" {
		t.Errorf("SystemMessage = %q", out.SystemMessage)
	}
	if out.HookSpecificOutput != nil {
		t.Error("WriteError() must never carry a permission decision")
	}
}

func TestEmptyOutputOmitsFields(t *testing.T) {
	data, err := json.Marshal(&HookOutput{})
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	if string(data) != "{}" {
		t.Errorf("Empty output = %s, want {}", string(data))
	}
}
