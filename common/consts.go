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

import "time"

const (
	// DefaultTimeout bounds browser launch and endpoint discovery.
	DefaultTimeout time.Duration = 30 * time.Second

	// DefaultElementTimeout bounds element lookups on a tab.
	DefaultElementTimeout time.Duration = 3 * time.Second

	// DefaultNavigationTimeout bounds waiting for a navigation to settle.
	DefaultNavigationTimeout time.Duration = 60 * time.Second

	// DefaultIdleTimeout closes a connection that received nothing for that long.
	DefaultIdleTimeout time.Duration = 300 * time.Second

	DefaultScreenWidth  int64 = 800
	DefaultScreenHeight int64 = 600
)

// Slow motion delays at a multiplier of 1.
const (
	slowMoMouseMove = 100 * time.Millisecond
	slowMoClick     = 250 * time.Millisecond
	slowMoKeyPress  = 25 * time.Millisecond
	slowMoReload    = 100 * time.Millisecond
	slowMoClose     = 50 * time.Millisecond
)
