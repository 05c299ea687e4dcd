package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseValidLine(t *testing.T) {
	msg, err := Parse("CMD[:_:]LOGIN[:_:]alice[:_:]secret")
	require.NoError(t, err)
	require.Equal(t, "CMD", msg.Prefix)
	require.Equal(t, []string{"LOGIN", "alice", "secret"}, msg.Args)
	require.Equal(t, "LOGIN", msg.Subcommand())
	require.Equal(t, []string{"alice", "secret"}, msg.Rest())
}

func TestParseLowercasesAndTrims(t *testing.T) {
	msg, err := Parse("  cmd[:_:] test  ")
	require.NoError(t, err)
	require.Equal(t, "CMD", msg.Prefix)
	require.Equal(t, []string{"test"}, msg.Args)
}

func TestParsePrefixMatchNotExact(t *testing.T) {
	// "DATX" begins with DAT and passes prefix validation.
	msg, err := Parse("DATX[:_:]PROD_LIST")
	require.NoError(t, err)
	require.Equal(t, "DATX", msg.Prefix)
}

func TestParseInvalidPrefix(t *testing.T) {
	_, err := Parse("NOPE[:_:]TEST")
	require.ErrorIs(t, err, ErrInvalidPrefix)
}

func TestParseEmptyLineIsNoop(t *testing.T) {
	for _, raw := range []string{"", "   ", "\t"} {
		msg, err := Parse(raw)
		require.NoError(t, err)
		require.True(t, msg.Empty())
		require.Empty(t, msg.Args)
	}
}

func TestParseTrailingDelimiterYieldsEmptyArg(t *testing.T) {
	msg, err := Parse("CMD[:_:]LOGIN[:_:]")
	require.NoError(t, err)
	require.Equal(t, []string{"LOGIN", ""}, msg.Args)
}

func TestBuild(t *testing.T) {
	require.Equal(t, "CMD[:_:]TEST[:_:]OK", Build("CMD", "TEST", "OK"))
	require.Equal(t, "CMD[:_:]LOGINREQUEST", Build("CMD", "LOGINREQUEST"))
}

func TestBuildParseRoundTrip(t *testing.T) {
	line := Build("DAT", "U_PERMS", "alice", "SALES_PROCESS|INVENTORY_VIEW")
	msg, err := Parse(line)
	require.NoError(t, err)
	require.Equal(t, "DAT", msg.Prefix)
	require.Equal(t, []string{"U_PERMS", "alice", "SALES_PROCESS|INVENTORY_VIEW"}, msg.Args)
	require.Equal(t, line, Build(msg.Prefix, msg.Args[0], msg.Args[1:]...))
}
