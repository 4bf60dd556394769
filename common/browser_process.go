/*
 *
 * xk6-browser - a browser automation extension for k6
 * Copyright (C) 2021 Load Impact
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as
 * published by the Free Software Foundation, either version 3 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package common

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/liuxd6825/cdpdriver/log"
	"github.com/liuxd6825/cdpdriver/storage"
)

// BrowserProcess is a started browser executable together with its
// profile directory and, in pipe mode, the channel to its debugging pipes.
type BrowserProcess struct {
	cmd     *exec.Cmd
	ch      Channel
	wsURL   string
	dataDir *storage.Dir
	logger  *log.Logger

	// reaping
	done    chan struct{}
	state   *os.ProcessState
	waitErr error

	killMu    sync.Mutex
	closeOnce sync.Once
}

// NewBrowserProcess takes ownership of an already started cmd. ch is the
// pipe channel in pipe mode, wsURL the debugging endpoint in port mode.
// The process is reaped in the background from now on.
func NewBrowserProcess(
	cmd *exec.Cmd, ch Channel, wsURL string, dataDir *storage.Dir, logger *log.Logger,
) *BrowserProcess {
	if dataDir == nil {
		dataDir = &storage.Dir{}
	}
	p := &BrowserProcess{
		cmd:     cmd,
		ch:      ch,
		wsURL:   wsURL,
		dataDir: dataDir,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go p.reap()

	return p
}

func (p *BrowserProcess) reap() {
	defer close(p.done)

	err := p.cmd.Wait()
	p.state = p.cmd.ProcessState

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// the exit status is in the state
		err = nil
	}
	p.waitErr = err
	p.logger.Debugf("BrowserProcess:reap", "pid:%d state:%v", p.Pid(), p.state)
}

// Pid returns the process id of the browser.
func (p *BrowserProcess) Pid() int {
	if p.cmd.Process == nil {
		return -1
	}
	return p.cmd.Process.Pid
}

// Channel returns the pipe channel, or nil in port mode.
func (p *BrowserProcess) Channel() Channel {
	return p.ch
}

// WsURL returns the websocket URL the browser is listening on, or an empty
// string in pipe mode.
func (p *BrowserProcess) WsURL() string {
	return p.wsURL
}

// UserDataDir returns the profile directory of the browser.
func (p *BrowserProcess) UserDataDir() string {
	return p.dataDir.Dir
}

// Exited is closed once the process was reaped.
func (p *BrowserProcess) Exited() <-chan struct{} {
	return p.done
}

// Kill sends SIGKILL to the browser. Once the process was reaped it
// returns ErrProcessReaped and doesn't signal anything, since the pid may
// have been reused.
func (p *BrowserProcess) Kill() error {
	p.killMu.Lock()
	defer p.killMu.Unlock()

	select {
	case <-p.done:
		return ErrProcessReaped
	default:
	}

	err := p.cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return ErrProcessReaped
	}
	if err != nil {
		return fmt.Errorf("killing browser process %d: %w", p.Pid(), err)
	}

	return nil
}

// Wait blocks until the process exited and returns its state. It can be
// called any number of times, from any goroutine.
func (p *BrowserProcess) Wait() (*os.ProcessState, error) {
	<-p.done
	return p.state, p.waitErr
}

// Close tears the process down: closes the channel, kills and reaps the
// process, then removes the profile directory unless the user provided
// it. Every step is attempted even when a previous one failed.
func (p *BrowserProcess) Close() {
	p.closeOnce.Do(func() {
		if p.ch != nil {
			if err := p.ch.Close(); err != nil {
				p.logger.Warnf("BrowserProcess:Close", "closing channel: %v", err)
			}
		}
		if err := p.Kill(); err != nil && !errors.Is(err, ErrProcessReaped) {
			p.logger.Warnf("BrowserProcess:Close", "%v", err)
		}
		if _, err := p.Wait(); err != nil {
			p.logger.Warnf("BrowserProcess:Close", "waiting for pid %d: %v", p.Pid(), err)
		}
		if err := p.dataDir.Cleanup(); err != nil {
			p.logger.Errorf("BrowserProcess:Close", "cleaning up the user data directory: %v", err)
		}
	})
}
