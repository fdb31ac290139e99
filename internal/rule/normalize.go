package rule

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeCommand returns the canonical form of a submitted command:
// Unicode NFC, leading/trailing whitespace trimmed, and runs of inner
// whitespace collapsed to single spaces. All command matching operates
// on this form so copy-pasted commands with odd spacing still match.
func NormalizeCommand(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// NormalizeOutput returns the canonical form of captured output:
// Unicode NFC with CRLF line endings folded to LF. Inner whitespace is
// preserved - output patterns may be whitespace-sensitive.
func NormalizeOutput(s string) string {
	s = norm.NFC.String(s)
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// Tokens splits a normalized command into whitespace-separated tokens.
// The first token is the base command; the rest are arguments and flags.
func Tokens(command string) []string {
	return strings.Fields(NormalizeCommand(command))
}
