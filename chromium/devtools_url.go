package chromium

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/liuxd6825/cdpdriver/common"
	"github.com/liuxd6825/cdpdriver/log"
)

var (
	devToolsURLRe = regexp.MustCompile(`listening on (.*/devtools/browser/.*)$`)
	portTakenRe   = regexp.MustCompile(`ERROR.*bind`)
)

type discovery struct {
	wsURL string
	err   error
}

// parseDevToolsURL scans the browser's stderr for the websocket endpoint it
// listens on. Output keeps being drained to the logger once the endpoint
// was found, so the browser never blocks writing to a full pipe.
func parseDevToolsURL(ctx context.Context, r io.ReadCloser, timeout time.Duration, logger *log.Logger) (string, error) {
	c := make(chan discovery, 1)
	go func() {
		defer r.Close() //nolint:errcheck

		sc := bufio.NewScanner(r)
		reported := false
		report := func(d discovery) {
			if !reported {
				reported = true
				c <- d
			}
		}
		for sc.Scan() {
			line := sc.Text()
			logger.Debugf("browser:stderr", "%s", line)
			if reported {
				continue
			}
			if portTakenRe.MatchString(line) {
				report(discovery{err: &common.LaunchError{
					Reason: common.LaunchReasonPortInUse,
					Err:    fmt.Errorf("%s", line),
				}})
				continue
			}
			if m := devToolsURLRe.FindStringSubmatch(line); m != nil {
				report(discovery{wsURL: m[1]})
			}
		}
		report(discovery{err: &common.LaunchError{
			Reason: common.LaunchReasonProcessExited,
			Err:    sc.Err(),
		}})
	}()

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case d := <-c:
		return d.wsURL, d.err
	case <-t.C:
		return "", &common.LaunchError{
			Reason: common.LaunchReasonDiscoveryTimeout,
			Err:    fmt.Errorf("no endpoint after %s", timeout),
		}
	case <-ctx.Done():
		return "", &common.LaunchError{
			Reason: common.LaunchReasonDiscoveryTimeout,
			Err:    ctx.Err(),
		}
	}
}

// drain logs the lines of r until it ends.
func drain(r io.ReadCloser, category string, logger *log.Logger) {
	defer r.Close() //nolint:errcheck

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		logger.Debugf(category, "%s", sc.Text())
	}
}
