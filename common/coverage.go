package common

import (
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/debugger"
	cdplog "github.com/chromedp/cdproto/log"
	"github.com/chromedp/cdproto/profiler"
	cdpruntime "github.com/chromedp/cdproto/runtime"
)

// EnableProfiler enables the Profiler domain, which the JS coverage
// methods need.
func (s *Session) EnableProfiler() error {
	return profiler.Enable().Do(cdp.WithExecutor(s.ctx, s))
}

// DisableProfiler disables the Profiler domain.
func (s *Session) DisableProfiler() error {
	return profiler.Disable().Do(cdp.WithExecutor(s.ctx, s))
}

// StartJSCoverage starts recording which JS blocks run and how often.
func (s *Session) StartJSCoverage() error {
	_, err := profiler.StartPreciseCoverage().
		WithCallCount(true).
		WithDetailed(true).
		Do(cdp.WithExecutor(s.ctx, s))
	if err != nil {
		return fmt.Errorf("starting JS coverage: %w", err)
	}
	return nil
}

// StopJSCoverage stops recording JS coverage.
func (s *Session) StopJSCoverage() error {
	if err := profiler.StopPreciseCoverage().Do(cdp.WithExecutor(s.ctx, s)); err != nil {
		return fmt.Errorf("stopping JS coverage: %w", err)
	}
	return nil
}

// TakeJSCoverage returns the coverage collected since the previous call,
// or since StartJSCoverage, and resets the execution counters.
func (s *Session) TakeJSCoverage() ([]*profiler.ScriptCoverage, error) {
	res, _, err := profiler.TakePreciseCoverage().Do(cdp.WithExecutor(s.ctx, s))
	if err != nil {
		return nil, fmt.Errorf("taking JS coverage: %w", err)
	}
	return res, nil
}

// EnableDebugger enables the Debugger domain.
func (s *Session) EnableDebugger() error {
	if _, err := debugger.Enable().Do(cdp.WithExecutor(s.ctx, s)); err != nil {
		return fmt.Errorf("enabling debugger: %w", err)
	}
	return nil
}

// DisableDebugger disables the Debugger domain.
func (s *Session) DisableDebugger() error {
	return debugger.Disable().Do(cdp.WithExecutor(s.ctx, s))
}

// ScriptSource returns the source of a parsed script. The debugger must
// be enabled.
func (s *Session) ScriptSource(id cdpruntime.ScriptID) (string, error) {
	src, _, err := debugger.GetScriptSource(id).Do(cdp.WithExecutor(s.ctx, s))
	if err != nil {
		return "", fmt.Errorf("getting source of script %s: %w", id, err)
	}
	return src, nil
}

// StartViolationsReport makes the browser log an entry whenever one of the
// configured violations crosses its threshold. Entries arrive as
// Log.entryAdded events once the Log domain is enabled.
func (s *Session) StartViolationsReport(config []*cdplog.ViolationSetting) error {
	if err := cdplog.StartViolationsReport(config).Do(cdp.WithExecutor(s.ctx, s)); err != nil {
		return fmt.Errorf("starting violations report: %w", err)
	}
	return nil
}

// StopViolationsReport stops the violations report.
func (s *Session) StopViolationsReport() error {
	return cdplog.StopViolationsReport().Do(cdp.WithExecutor(s.ctx, s))
}
