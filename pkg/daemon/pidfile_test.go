package daemon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIDFile_WriteReadRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warden.pid")
	f := NewPIDFile(path)

	require.NoError(t, f.Write(4242))

	pid, err := f.Read()
	require.NoError(t, err)
	assert.Equal(t, 4242, pid)

	require.NoError(t, f.Remove())
	_, err = f.Read()
	assert.Error(t, err)
}

func TestPIDFile_WriteCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "run", "warden.pid")
	f := NewPIDFile(path)

	require.NoError(t, f.Write(1))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestPIDFile_RemoveMissingIsNotAnError(t *testing.T) {
	f := NewPIDFile(filepath.Join(t.TempDir(), "never-written.pid"))
	assert.NoError(t, f.Remove())
}

func TestPIDFile_AliveForOwnProcess(t *testing.T) {
	f := NewPIDFile(filepath.Join(t.TempDir(), "warden.pid"))
	require.NoError(t, f.Write(os.Getpid()))

	pid, alive := f.Alive()
	assert.True(t, alive)
	assert.Equal(t, os.Getpid(), pid)
}

func TestPIDFile_StaleRecordIsNotAlive(t *testing.T) {
	// Beyond any real pid on this host, so the null signal fails.
	f := NewPIDFile(filepath.Join(t.TempDir(), "warden.pid"))
	require.NoError(t, f.Write(99999999))

	_, alive := f.Alive()
	assert.False(t, alive)
}

func TestPIDFile_MissingRecordIsNotAlive(t *testing.T) {
	f := NewPIDFile(filepath.Join(t.TempDir(), "warden.pid"))

	_, alive := f.Alive()
	assert.False(t, alive)
}

func TestPIDFile_GarbageRecordIsNotAlive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warden.pid")
	require.NoError(t, os.WriteFile(path, []byte("not a pid\n"), 0644))

	_, alive := NewPIDFile(path).Alive()
	assert.False(t, alive)
}

func TestProcessAlive_RejectsNonPositivePids(t *testing.T) {
	assert.False(t, processAlive(0))
	assert.False(t, processAlive(-1))
}
