package slogx_test

import (
	"testing"

	"github.com/datakwip/mcp-gateway/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	t.Run("strips control characters", func(t *testing.T) {
		require.Equal(t, "helloworld", slogx.Sanitize("hello\x00\x1fworld\n", 0))
	})

	t.Run("caps length", func(t *testing.T) {
		require.Equal(t, "abcde", slogx.Sanitize("abcdefgh", 5))
	})

	t.Run("trims whitespace", func(t *testing.T) {
		require.Equal(t, "x", slogx.Sanitize("  x  ", 0))
	})
}

func TestTokenPreview(t *testing.T) {
	token := "eyJhbGciOiJSUzI1NiIsImtpZCI6ImFiYyJ9.payload.sig"

	t.Run("redacts by default", func(t *testing.T) {
		require.Equal(t, "[redacted]", slogx.TokenPreview(token, false))
	})

	t.Run("previews first bytes when sensitive logging is on", func(t *testing.T) {
		got := slogx.TokenPreview(token, true)
		require.Equal(t, token[:20]+"...", got)
	})

	t.Run("short values pass through when sensitive logging is on", func(t *testing.T) {
		require.Equal(t, "abc", slogx.TokenPreview("abc", true))
	})
}
