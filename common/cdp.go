package common

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/cdp"

	"github.com/liuxd6825/cdpdriver/log"
)

// Action is a protocol command without a result worth reading.
type Action interface {
	Do(context.Context) error
}

// inputSession is what the keyboard and mouse need from a tab.
type inputSession interface {
	cdp.Executor
	slowMotion(ctx context.Context, base time.Duration) error
	logger() *log.Logger
}
