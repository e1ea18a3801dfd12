// Package util provides small string helpers for command arguments.
package util

import "strings"

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// ParseArgArray splits a stringified argument array such as
// [3,4,"road"] or ["say ""hi""", 2] into its elements. Commas inside quoted
// strings do not split, and quoting is removed from each element. Input
// without surrounding brackets is treated as a single argument.
func ParseArgArray(s string) []string {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return []string{FixEscapeQuotes(TrimQuotes(s))}
	}

	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return nil
	}

	var (
		args    []string
		current strings.Builder
		quoted  bool
	)
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		switch {
		case c == '"':
			// a doubled quote inside a string is a literal quote
			if quoted && i+1 < len(inner) && inner[i+1] == '"' {
				current.WriteString(`""`)
				i++
				continue
			}
			quoted = !quoted
			current.WriteByte(c)
		case c == ',' && !quoted:
			args = append(args, current.String())
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	args = append(args, current.String())

	for i, a := range args {
		args[i] = unquote(strings.TrimSpace(a))
	}
	return args
}

// unquote strips one pair of surrounding quotes and un-doubles inner ones.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return FixEscapeQuotes(s)
}

// Truncate returns at most n bytes of s.
func Truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
