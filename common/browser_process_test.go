package common

import (
	"os"
	"os/exec"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuxd6825/cdpdriver/log"
	"github.com/liuxd6825/cdpdriver/storage"
)

func startProcess(t *testing.T, name string, args ...string) *exec.Cmd {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX userland")
	}
	path, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("%s not found: %v", name, err)
	}
	cmd := exec.Command(path, args...)
	require.NoError(t, cmd.Start())

	return cmd
}

func TestBrowserProcessKill(t *testing.T) {
	t.Parallel()

	cmd := startProcess(t, "sleep", "30")
	p := NewBrowserProcess(cmd, nil, "ws://127.0.0.1:1/devtools/browser/x", nil, log.NewNullLogger())

	assert.Equal(t, cmd.Process.Pid, p.Pid())
	assert.Equal(t, "ws://127.0.0.1:1/devtools/browser/x", p.WsURL())
	assert.Nil(t, p.Channel())

	require.NoError(t, p.Kill())

	state, err := p.Wait()
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.False(t, state.Success())

	assert.ErrorIs(t, p.Kill(), ErrProcessReaped, "a reaped process is never signalled")
}

func TestBrowserProcessExitsOnItsOwn(t *testing.T) {
	t.Parallel()

	cmd := startProcess(t, "true")
	p := NewBrowserProcess(cmd, nil, "", nil, log.NewNullLogger())

	select {
	case <-p.Exited():
	case <-time.After(5 * time.Second):
		t.Fatal("process not reaped")
	}

	state, err := p.Wait()
	require.NoError(t, err)
	assert.True(t, state.Success())
	assert.ErrorIs(t, p.Kill(), ErrProcessReaped)
}

func TestBrowserProcessConcurrentWait(t *testing.T) {
	t.Parallel()

	cmd := startProcess(t, "sleep", "30")
	p := NewBrowserProcess(cmd, nil, "", nil, log.NewNullLogger())

	var wg sync.WaitGroup
	states := make([]*os.ProcessState, 5)
	for i := range states {
		wg.Add(1)
		go func() {
			defer wg.Done()
			states[i], _ = p.Wait()
		}()
	}
	require.NoError(t, p.Kill())
	wg.Wait()

	for _, s := range states {
		assert.Same(t, states[0], s)
	}
}

func TestBrowserProcessClose(t *testing.T) {
	t.Parallel()

	var dir storage.Dir
	require.NoError(t, dir.Make(t.TempDir(), ""))
	require.DirExists(t, dir.Dir)

	cmd := startProcess(t, "sleep", "30")
	r, w, err := os.Pipe()
	require.NoError(t, err)
	p := NewBrowserProcess(cmd, NewPipeChannel(r, w), "", &dir, log.NewNullLogger())
	assert.Equal(t, dir.Dir, p.UserDataDir())

	p.Close()
	p.Close()

	assert.NoDirExists(t, dir.Dir)
	_, err = w.Write([]byte("x"))
	assert.ErrorIs(t, err, os.ErrClosed, "the channel is closed with the process")
	select {
	case <-p.Exited():
	default:
		t.Fatal("process still running after Close")
	}
}

func TestBrowserProcessCloseKeepsUserDir(t *testing.T) {
	t.Parallel()

	userDir := t.TempDir()
	var dir storage.Dir
	require.NoError(t, dir.Make("", userDir))

	p := NewBrowserProcess(startProcess(t, "sleep", "30"), nil, "", &dir, log.NewNullLogger())
	p.Close()

	assert.DirExists(t, userDir)
}
