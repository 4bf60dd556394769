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

// Package keyboardlayout holds the key definitions the keyboard helper
// dispatches input events from.
package keyboardlayout

import (
	"fmt"
	"sort"
	"sync"
)

// KeyInput names a key the way callers pass it: a code such as "KeyA" or
// "Enter", or the character the key types.
type KeyInput string

// KeyDefinition describes the key event fields of one physical key.
type KeyDefinition struct {
	Code                   string
	Key                    string
	KeyCode                int64
	KeyCodeWithoutLocation int64
	ShiftKey               string
	ShiftKeyCode           int64
	Text                   string
	Location               int64
}

// KeyboardLayout maps key inputs to their definitions.
type KeyboardLayout struct {
	ValidKeys map[KeyInput]bool
	Keys      map[KeyInput]KeyDefinition

	// codes producing a key value, or a shifted one, indexed once so
	// lookups don't depend on map iteration order
	byKey      map[string]KeyInput
	byShiftKey map[string]KeyInput
}

func newKeyboardLayout(keys map[KeyInput]KeyDefinition) KeyboardLayout {
	codes := make([]KeyInput, 0, len(keys))
	for code := range keys {
		codes = append(codes, code)
	}
	// Keys without a location win over the numpad and left/right variants
	// that type the same value.
	sort.Slice(codes, func(i, j int) bool {
		li, lj := keys[codes[i]].Location, keys[codes[j]].Location
		if li != lj {
			return li < lj
		}
		return codes[i] < codes[j]
	})

	kl := KeyboardLayout{
		ValidKeys:  make(map[KeyInput]bool, len(keys)*3),
		Keys:       keys,
		byKey:      make(map[string]KeyInput, len(keys)),
		byShiftKey: make(map[string]KeyInput),
	}
	for _, code := range codes {
		def := keys[code]
		kl.ValidKeys[code] = true
		kl.ValidKeys[KeyInput(def.Key)] = true
		if _, ok := kl.byKey[def.Key]; !ok {
			kl.byKey[def.Key] = code
		}
		if def.ShiftKey == "" {
			continue
		}
		kl.ValidKeys[KeyInput(def.ShiftKey)] = true
		if _, ok := kl.byShiftKey[def.ShiftKey]; !ok {
			kl.byShiftKey[def.ShiftKey] = code
		}
	}

	return kl
}

// IsValid reports whether key can be pressed on this layout.
func (kl KeyboardLayout) IsValid(key KeyInput) bool {
	return kl.ValidKeys[key]
}

// KeyDefinition returns true with the definition of the key that types
// the given value. It returns false and an empty key definition if no key
// does.
func (kl KeyboardLayout) KeyDefinition(key KeyInput) (KeyDefinition, bool) {
	code, ok := kl.byKey[string(key)]
	if !ok {
		return KeyDefinition{}, false
	}
	return kl.Keys[code], true
}

// ShiftKeyDefinition returns the code and definition of the key that types
// the given value with shift held, such as Digit2 for "@". It returns key
// and an empty key definition if no key does.
func (kl KeyboardLayout) ShiftKeyDefinition(key KeyInput) (KeyInput, KeyDefinition) {
	code, ok := kl.byShiftKey[string(key)]
	if !ok {
		return key, KeyDefinition{}
	}
	return code, kl.Keys[code]
}

//nolint:gochecknoglobals
var (
	kbdLayouts = make(map[string]KeyboardLayout)
	mx         sync.RWMutex
)

// GetKeyboardLayout returns the keyboard layout registered with name.
func GetKeyboardLayout(name string) KeyboardLayout {
	mx.RLock()
	defer mx.RUnlock()
	return kbdLayouts[name]
}

// Names returns the names of the registered layouts, sorted.
func Names() []string {
	mx.RLock()
	defer mx.RUnlock()

	names := make([]string, 0, len(kbdLayouts))
	for name := range kbdLayouts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	initUS()
}

// Register the given keyboard layout.
// This function panics if a keyboard layout with the same name is already registered.
func register(lang string, keys map[KeyInput]KeyDefinition) {
	mx.Lock()
	defer mx.Unlock()

	if _, ok := kbdLayouts[lang]; ok {
		panic(fmt.Sprintf("keyboard layout already registered: %s", lang))
	}
	kbdLayouts[lang] = newKeyboardLayout(keys)
}
