package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirStore_Fetch(t *testing.T) {
	dir := t.TempDir()
	raw := []byte(`{"name":"amm","version":"0.1.0","instructions":[]}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "amm.json"), raw, 0o644))

	s := NewDirStore(dir)
	got, err := s.Fetch(context.Background(), "amm.json")
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestDirStore_NotFound(t *testing.T) {
	s := NewDirStore(t.TempDir())
	_, err := s.Fetch(context.Background(), "missing.json")
	assert.Error(t, err)
}

// 路径穿越必须被拒绝，不允许读出根目录之外的文件
func TestDirStore_RejectsTraversal(t *testing.T) {
	s := NewDirStore(t.TempDir())
	_, err := s.Fetch(context.Background(), "../../etc/passwd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid idl path")
}
