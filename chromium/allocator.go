package chromium

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/liuxd6825/cdpdriver/common"
	"github.com/liuxd6825/cdpdriver/log"
	"github.com/liuxd6825/cdpdriver/storage"
)

// Allocator starts browser processes.
type Allocator struct {
	logger *log.Logger
	ports  *portPool
}

// NewAllocator returns an Allocator picking auto ports from 8000-8999.
func NewAllocator(logger *log.Logger) *Allocator {
	return &Allocator{
		logger: logger,
		ports:  newPortPool(),
	}
}

// Allocate starts the browser at path and returns it once it can be
// talked to.
func (a *Allocator) Allocate(
	ctx context.Context, path string, opts *common.LaunchOptions,
) (_ *common.BrowserProcess, rerr error) {
	dataDir := &storage.Dir{}
	if err := dataDir.Make("", opts.UserDataDir); err != nil {
		return nil, &common.LaunchError{Reason: common.LaunchReasonSpawnFailed, Err: err}
	}
	defer func() {
		if rerr == nil {
			return
		}
		if err := dataDir.Cleanup(); err != nil {
			a.logger.Errorf("Allocator:Allocate", "cleaning up the user data directory: %v", err)
		}
	}()

	flags := prepareFlags(opts)
	flags["user-data-dir"] = dataDir.Dir

	if opts.Mode == common.LaunchModePipe {
		return a.allocatePipe(path, flags, opts, dataDir)
	}
	return a.allocatePort(ctx, path, flags, opts, dataDir)
}

func (a *Allocator) allocatePipe(
	path string, flags map[string]any, opts *common.LaunchOptions, dataDir *storage.Dir,
) (*common.BrowserProcess, error) {
	flags["remote-debugging-pipe"] = true

	args, err := parseArgs(flags)
	if err != nil {
		return nil, err
	}
	cmd := a.command(path, args, opts.Env)

	ch, closeChild, err := attachPipes(cmd)
	if err != nil {
		return nil, &common.LaunchError{Reason: common.LaunchReasonSpawnFailed, Err: err}
	}
	output, err := a.start(cmd)
	closeChild()
	if err != nil {
		_ = ch.Close()
		return nil, err
	}
	go drain(output, "browser:output", a.logger)

	a.logger.Infof("Allocator:allocatePipe", "pid:%d path:%q", cmd.Process.Pid, path)

	return common.NewBrowserProcess(cmd, ch, "", dataDir, a.logger), nil
}

func (a *Allocator) allocatePort(
	ctx context.Context, path string, flags map[string]any, opts *common.LaunchOptions, dataDir *storage.Dir,
) (*common.BrowserProcess, error) {
	var lastErr error
	for attempt := 1; attempt <= maxPortAttempts; attempt++ {
		port, auto := opts.Port, opts.Port == 0
		if auto {
			var err error
			if port, err = a.ports.acquire(); err != nil {
				return nil, &common.LaunchError{Reason: common.LaunchReasonNoAvailablePort, Err: err}
			}
		}

		p, err := a.startOnPort(ctx, path, flags, port, opts, dataDir)
		if auto {
			a.ports.release(port)
		}
		if err == nil {
			return p, nil
		}
		if !auto || !relaunchable(err) || ctx.Err() != nil {
			return nil, err
		}

		a.logger.Debugf("Allocator:allocatePort", "attempt %d on port %d failed: %v", attempt, port, err)
		lastErr = err
	}

	return nil, &common.LaunchError{
		Reason: common.LaunchReasonNoAvailablePort,
		Err:    fmt.Errorf("giving up after %d attempts: %w", maxPortAttempts, lastErr),
	}
}

// relaunchable reports whether a port mode launch failed while discovering
// the endpoint, which a fresh process on another port may get past.
func relaunchable(err error) bool {
	var lerr *common.LaunchError
	if !errors.As(err, &lerr) {
		return false
	}
	switch lerr.Reason {
	case common.LaunchReasonPortInUse, common.LaunchReasonDiscoveryTimeout, common.LaunchReasonProcessExited:
		return true
	default:
		return false
	}
}

func (a *Allocator) startOnPort(
	ctx context.Context, path string, flags map[string]any, port int,
	opts *common.LaunchOptions, dataDir *storage.Dir,
) (*common.BrowserProcess, error) {
	flags["remote-debugging-port"] = strconv.Itoa(port)

	args, err := parseArgs(flags)
	if err != nil {
		return nil, err
	}
	cmd := a.command(path, args, opts.Env)
	output, err := a.start(cmd)
	if err != nil {
		return nil, err
	}
	a.logger.Infof("Allocator:startOnPort", "pid:%d port:%d path:%q", cmd.Process.Pid, port, path)

	wsURL, err := parseDevToolsURL(ctx, output, opts.Timeout, a.logger)
	if err != nil {
		// the profile directory is reused by the next attempt
		p := common.NewBrowserProcess(cmd, nil, "", &storage.Dir{}, a.logger)
		p.Close()
		return nil, err
	}

	return common.NewBrowserProcess(cmd, nil, wsURL, dataDir, a.logger), nil
}

func (a *Allocator) command(path string, args []string, env map[string]string) *exec.Cmd {
	cmd := exec.Command(path, args...) //nolint:gosec
	killAfterParent(cmd)

	if len(env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}

	return cmd
}

// start starts cmd with its stdout and stderr merged into the returned
// pipe. The pipe is an *os.File rather than cmd.StderrPipe so reading it
// doesn't race with the reaper's cmd.Wait.
func (a *Allocator) start(cmd *exec.Cmd) (*os.File, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, &common.LaunchError{Reason: common.LaunchReasonSpawnFailed, Err: err}
	}
	cmd.Stdout = w
	cmd.Stderr = w

	err = cmd.Start()
	_ = w.Close()
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, exec.ErrNotFound) {
		_ = r.Close()
		return nil, &common.LaunchError{
			Reason: common.LaunchReasonExecutableNotFound,
			Err:    fmt.Errorf("file does not exist: %s", cmd.Path),
		}
	}
	if err != nil {
		_ = r.Close()
		return nil, &common.LaunchError{Reason: common.LaunchReasonSpawnFailed, Err: err}
	}

	return r, nil
}
