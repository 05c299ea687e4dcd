// Package protocol implements the delimited line protocol spoken by
// POS terminals. A message is a single newline-terminated line whose
// fields are separated by the literal token "[:_:]"; payload values
// must never contain that token, the codec performs no escaping.
package protocol

import (
	"errors"
	"strings"
)

// Delimiter separates every field on the wire.
const Delimiter = "[:_:]"

// Message prefixes selecting the command family.
const (
	PrefixCmd   = "CMD"
	PrefixRec   = "REC"
	PrefixTra   = "TRA"
	PrefixDat   = "DAT"
	PrefixError = "ERROR"
)

// Reply status tokens.
const (
	StatusOK      = "OK"
	StatusSuccess = "SUCCESS"
	StatusFail    = "FAIL"
)

// ErrInvalidPrefix reports a line whose first token does not start with
// one of the accepted prefixes.
var ErrInvalidPrefix = errors.New("protocol: invalid message prefix")

// InvalidPrefixReply is the exact reply line sent for ErrInvalidPrefix.
const InvalidPrefixReply = "ERROR" + Delimiter + "FAIL" + Delimiter +
	"Invalid message prefix. Must start with CMD, REC, TRA, or DAT."

var allowedPrefixes = []string{PrefixCmd, PrefixRec, PrefixTra, PrefixDat}

// Message is one decoded protocol line. A zero-valued Message (empty
// Prefix, no Args) is the decoded form of a blank line and must be
// treated as a no-op by callers.
type Message struct {
	Prefix string
	Args   []string
}

// Empty reports whether the message carries nothing to dispatch.
func (m Message) Empty() bool {
	return m.Prefix == "" && len(m.Args) == 0
}

// Subcommand returns the first argument, or "" when absent.
func (m Message) Subcommand() string {
	if len(m.Args) == 0 {
		return ""
	}
	return m.Args[0]
}

// Rest returns the arguments after the subcommand token.
func (m Message) Rest() []string {
	if len(m.Args) <= 1 {
		return nil
	}
	return m.Args[1:]
}

// Parse decodes a raw line. The first token is uppercased and trimmed
// and must begin with CMD, REC, TRA, or DAT (prefix match, not exact
// equality) or ErrInvalidPrefix is returned. Remaining tokens become
// the args, each individually trimmed; a trailing delimiter yields an
// empty-string arg, never an omission.
func Parse(raw string) (Message, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Message{}, nil
	}

	parts := strings.Split(trimmed, Delimiter)
	prefix := strings.TrimSpace(strings.ToUpper(parts[0]))

	valid := false
	for _, allowed := range allowedPrefixes {
		if strings.HasPrefix(prefix, allowed) {
			valid = true
			break
		}
	}
	if !valid {
		return Message{}, ErrInvalidPrefix
	}

	args := make([]string, len(parts)-1)
	for i := 1; i < len(parts); i++ {
		args[i-1] = strings.TrimSpace(parts[i])
	}
	return Message{Prefix: prefix, Args: args}, nil
}

// Build joins prefix, subcommand, and each part with the delimiter,
// producing the exact reply line.
func Build(prefix, subcommand string, parts ...string) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(Delimiter)
	b.WriteString(subcommand)
	for _, part := range parts {
		b.WriteString(Delimiter)
		b.WriteString(part)
	}
	return b.String()
}
