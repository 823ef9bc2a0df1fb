package logging_test

import (
	"os"
	"path/filepath"
	"testing"

	"floodrescue/backend/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger_WritesJSONFile(t *testing.T) {
	dir := t.TempDir()

	logger, err := logging.InitLogger("test", dir)
	require.NoError(t, err)
	logger.Debug("debug line reaches the file")
	_ = logger.Sync()

	files, err := filepath.Glob(filepath.Join(dir, "test_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"debug line reaches the file"`)
}

func TestInitLogger_ConsoleOnly(t *testing.T) {
	logger, err := logging.InitLogger("test", "")

	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, logging.OrNop(nil))
}
