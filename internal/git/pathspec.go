package git

import (
	"regexp"
	"strings"
)

// MatchPathspec reports whether a repository-relative path matches a plain
// git pathspec, the way "git diff -- <pattern>" run from the top level
// would. A pattern without wildcards matches that exact path or anything
// beneath it as a directory. A pattern with wildcards is matched against
// the whole path, and "*", "?" and bracket classes also match "/", so
// "*.py" selects Python files at any depth and "src/*.py" includes
// "src/pkg/a.py".
func MatchPathspec(pattern, p string) bool {
	pattern = strings.TrimPrefix(pattern, "./")
	if pattern == "" || pattern == "." {
		return true
	}

	if !strings.ContainsAny(pattern, `*?[\`) {
		return p == pattern || strings.HasPrefix(p, strings.TrimSuffix(pattern, "/")+"/")
	}

	re, err := compileGlob(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(p)
}

// MatchAny reports whether p matches any of patterns. No patterns matches
// everything.
func MatchAny(patterns []string, p string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pattern := range patterns {
		if MatchPathspec(pattern, p) {
			return true
		}
	}
	return false
}

// compileGlob translates a wildmatch pattern without path-name semantics
// into an anchored regexp.
func compileGlob(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString(`(?s)^`)
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '\\':
			if i+1 < len(pattern) {
				i++
			}
			b.WriteString(regexp.QuoteMeta(pattern[i : i+1]))
		case '[':
			end := classEnd(pattern, i)
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			class := pattern[i+1 : end]
			if class[0] == '!' {
				class = "^" + class[1:]
			}
			b.WriteString("[" + strings.ReplaceAll(class, `\`, `\\`) + "]")
			i = end
		default:
			b.WriteString(regexp.QuoteMeta(pattern[i : i+1]))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

// classEnd returns the index of the "]" closing the class opened at
// pattern[open], or -1. A "]" right after the opening (or after a
// negation) is a member, not the end.
func classEnd(pattern string, open int) int {
	i := open + 1
	if i < len(pattern) && (pattern[i] == '!' || pattern[i] == '^') {
		i++
	}
	if i < len(pattern) && pattern[i] == ']' {
		i++
	}
	if j := strings.IndexByte(pattern[i:], ']'); j >= 0 {
		return i + j
	}
	return -1
}
