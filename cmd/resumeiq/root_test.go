package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/resumeiq/internal/services"
)

func TestReadInput(t *testing.T) {
	extractor := services.NewTextExtractor()
	dir := t.TempDir()

	text, err := readInput(extractor, "Senior Go engineer")
	require.NoError(t, err)
	assert.Equal(t, "Senior Go engineer", text)

	path := filepath.Join(dir, "job.txt")
	require.NoError(t, os.WriteFile(path, []byte("Backend Developer"), 0644))
	text, err = readInput(extractor, path)
	require.NoError(t, err)
	assert.Equal(t, "Backend Developer", text)

	broken := filepath.Join(dir, "cv.pdf")
	require.NoError(t, os.WriteFile(broken, []byte("not a pdf"), 0644))
	_, err = readInput(extractor, broken)
	assert.Error(t, err)

	text, err = readInput(extractor, "")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "alice", baseName("/tmp/cvs/alice.pdf"))
	assert.Equal(t, "bob.smith", baseName("bob.smith.docx"))
}
