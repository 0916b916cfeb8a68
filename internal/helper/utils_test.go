package helper

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUUID(t *testing.T) {
	a, err := GenerateUUID()
	require.NoError(t, err)
	b, err := GenerateUUID()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	_, err = uuid.Parse(a)
	assert.NoError(t, err)
}

func TestCreateFolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chromemdb", "catalog")
	require.NoError(t, CreateFolder(path))
	require.NoError(t, CreateFolder(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.NoError(t, CreateFolder(""))
}

func TestFprint(t *testing.T) {
	var buf bytes.Buffer
	Fprint(&buf, map[string]int{"page": 4})
	assert.Equal(t, "{\n  \"page\": 4\n}\n", buf.String())
}
