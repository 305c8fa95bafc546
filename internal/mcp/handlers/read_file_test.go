package handlers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheWizardOz3/gogogadget/internal/repo"
)

func TestSafePath_AllowsPathsInsideRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "pkg"), 0755))

	tests := []struct {
		name string
		path string
	}{
		{"simple file", "main.go"},
		{"nested file", "src/pkg/handler.go"},
		{"with dot prefix", "./main.go"},
		{"redundant segments", "src/./pkg/handler.go"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result, err := SafePath(root, tt.path)
			require.NoError(t, err)
			assert.True(t, filepath.IsAbs(result))
		})
	}
}

func TestSafePath_RejectsEscapes(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	tests := []struct {
		name string
		path string
	}{
		{"parent directory", "../etc/passwd"},
		{"deep traversal", "../../../etc/shadow"},
		{"absolute path", "/etc/passwd"},
		{"hidden traversal", "src/../../etc/passwd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := SafePath(root, tt.path)
			assert.Error(t, err, "path %q should be rejected", tt.path)
		})
	}
}

func TestSafePath_RootItselfIsInside(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	// Resolves to the root; allowed here, the handler rejects directories.
	_, err := SafePath(root, "subdir/..")
	assert.NoError(t, err)
}

func TestReadFile_ReadsProjectFile(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "notes"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "notes", "README.md"), []byte("hello\n"), 0644))

	rm := repo.NewManager(base, nil)
	handler := ReadFile(rm)

	res, err := handler(context.Background(), callRequest(map[string]any{
		"project": "notes",
		"path":    "README.md",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	text := resultText(t, res)
	assert.Contains(t, text, "README.md")
	assert.Contains(t, text, "hello")
}

func TestReadFile_Rejections(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "notes", "docs"), 0755))

	rm := repo.NewManager(base, nil)
	handler := ReadFile(rm)

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing project", map[string]any{"path": "README.md"}},
		{"missing path", map[string]any{"project": "notes"}},
		{"unknown project", map[string]any{"project": "ghost", "path": "README.md"}},
		{"traversal", map[string]any{"project": "notes", "path": "../secrets"}},
		{"missing file", map[string]any{"project": "notes", "path": "nope.txt"}},
		{"directory", map[string]any{"project": "notes", "path": "docs"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := handler(context.Background(), callRequest(tt.args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
		})
	}
}
