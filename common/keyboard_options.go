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

// KeyboardOptions tunes Keyboard.Press and Keyboard.Type.
type KeyboardOptions struct {
	// Delay between key down and key up, in milliseconds.
	Delay int64 `json:"delay" yaml:"delay"`
}

// NewKeyboardOptions returns the options used when none are given.
func NewKeyboardOptions() *KeyboardOptions {
	return &KeyboardOptions{}
}

func (o *KeyboardOptions) delay() int64 {
	if o == nil {
		return 0
	}
	return o.Delay
}
