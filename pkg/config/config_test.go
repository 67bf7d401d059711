package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string   `json:"name" yaml:"name" toml:"name"`
	Port  int      `json:"port" yaml:"port" toml:"port"`
	Tags  []string `json:"tags" yaml:"tags" toml:"tags"`
	valid bool
}

func (s *sample) Validate() error {
	if s.Port < 0 {
		return errors.New("port must not be negative")
	}
	s.valid = true
	return nil
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadByExtension(t *testing.T) {
	cases := map[string]string{
		"c.yaml": "name: svc\ntags: [a, b]\n",
		"c.json": `{"name": "svc", "tags": ["a", "b"]}`,
		"c.toml": "name = \"svc\"\ntags = [\"a\", \"b\"]\n",
	}
	for file, content := range cases {
		t.Run(file, func(t *testing.T) {
			target := sample{Port: 8080}
			require.NoError(t, Load(writeConfig(t, file, content), &target))
			assert.Equal(t, "svc", target.Name)
			assert.Equal(t, []string{"a", "b"}, target.Tags)
			assert.Equal(t, 8080, target.Port, "missing field keeps default")
			assert.True(t, target.valid, "Validate should run")
		})
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("MYFVIEW_TEST_NAME", "from-env")
	var target sample
	require.NoError(t, Load(writeConfig(t, "c.yaml", "name: ${MYFVIEW_TEST_NAME}\n"), &target))
	assert.Equal(t, "from-env", target.Name)
}

func TestLoadValidationFailure(t *testing.T) {
	var target sample
	err := Load(writeConfig(t, "c.yaml", "port: -1\n"), &target)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestLoadSyntaxError(t *testing.T) {
	var target sample
	err := Load(writeConfig(t, "c.json", `{"name": `), &target)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadMissingFile(t *testing.T) {
	var target sample
	err := Load(filepath.Join(t.TempDir(), "absent.yaml"), &target)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
