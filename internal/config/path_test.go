package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	t.Setenv("DONORLENS_TEST_DATA", "/var/data")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "absolute untouched", in: "/tmp/donorlens.db", want: "/tmp/donorlens.db"},
		{name: "bare tilde", in: "~", want: home},
		{name: "tilde prefix", in: "~/share/donorlens.db", want: filepath.Join(home, "share", "donorlens.db")},
		{name: "env var", in: "$DONORLENS_TEST_DATA/donorlens.db", want: "/var/data/donorlens.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}
