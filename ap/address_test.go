package ap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeServerAddress(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"host and port", "archipelago.gg:38281", "archipelago.gg:38281"},
		{"bare port uses default host", "38281", "archipelago.gg:38281"},
		{"whitespace trimmed", "  myhost:5000  ", "myhost:5000"},
		{"bracketed ipv6", "[::1]:38281", "[::1]:38281"},
		{"ipv4", "192.168.1.10:12345", "192.168.1.10:12345"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeServerAddress(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeServerAddress_Invalid(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"trailing colon", "archipelago.gg:"},
		{"missing host", ":38281"},
		{"port zero", "host:0"},
		{"port too large", "host:70000"},
		{"non-numeric port", "host:abc"},
		{"bad ipv6 bracket", "[::1:38281"},
		{"ipv6 missing port", "[::1]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NormalizeServerAddress(tc.input)
			assert.Error(t, err)
		})
	}
}
