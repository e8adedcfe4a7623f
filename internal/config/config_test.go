package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeBaseURL(t *testing.T) {
	cases := map[string]string{
		"example.com":         "https://example.com",
		"http://example.com":  "https://example.com",
		"https://example.com": "https://example.com",
		"https://example.com/": "https://example.com",
		"http://example.com/api/": "https://example.com/api",
		"": "",
	}
	for in, want := range cases {
		require.Equal(t, want, normalizeBaseURL(in), "input %q", in)
	}
}

func TestNormalize_RequiresBaseURLAndToken(t *testing.T) {
	c := &Config{}
	require.Error(t, c.Normalize())

	c = &Config{BaseURL: "example.com"}
	require.Error(t, c.Normalize())

	c = &Config{BaseURL: "example.com", Token: "secret"}
	require.NoError(t, c.Normalize())
	require.Equal(t, "https://example.com", c.BaseURL)
	require.Equal(t, DefaultMaxLinesPerChunk, c.MaxLinesPerChunk)
}

func TestNormalize_KeepsExplicitMaxLines(t *testing.T) {
	c := &Config{BaseURL: "example.com", Token: "t", MaxLinesPerChunk: 500}
	require.NoError(t, c.Normalize())
	require.Equal(t, 500, c.MaxLinesPerChunk)
}
