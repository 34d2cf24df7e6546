// Package intercept recognizes commit attempts in shell command text.
package intercept

import "strings"

// Kind classifies a command.
type Kind int

const (
	// KindOther is any command the gate lets through untouched.
	KindOther Kind = iota
	// KindCommit is a version-control commit attempt.
	KindCommit
)

func (k Kind) String() string {
	if k == KindCommit {
		return "commit"
	}
	return "other"
}

// Command is an intercepted shell command and its classification. Text is
// carried unmodified for the whole evaluation.
type Command struct {
	Text string
	Kind Kind
}

// IsCommit reports whether c was classified as a commit attempt.
func (c Command) IsCommit() bool {
	return c.Kind == KindCommit
}

// Classify tags text as a commit attempt when it contains the words "git"
// and "commit". Flags or other words between them do not matter, so
// "git -C repo commit" and "cd x && /usr/bin/git commit -m y" both match.
func Classify(text string) Command {
	cmd := Command{Text: text, Kind: KindOther}
	if strings.TrimSpace(text) == "" {
		return cmd
	}

	var sawGit, sawCommit bool
	for _, w := range words(text) {
		switch w {
		case "git":
			sawGit = true
		case "commit":
			sawCommit = true
		}
	}
	if sawGit && sawCommit {
		cmd.Kind = KindCommit
	}
	return cmd
}

// IsCommit reports whether text is a commit attempt.
func IsCommit(text string) bool {
	return Classify(text).IsCommit()
}

// words splits text on every character that cannot be part of a command
// name. Path separators split too, which lets "/usr/bin/git" yield "git".
func words(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !isWordRune(r)
	})
}

func isWordRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_', r == '-', r == '.':
		return true
	}
	return false
}
