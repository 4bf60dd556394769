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

package keyboardlayout

func initUS() {
	keys := map[KeyInput]KeyDefinition{
		"Power": {Code: "Power", Key: "Power", KeyCode: 0},
		"Eject": {Code: "Eject", Key: "Eject", KeyCode: 0},
		"Abort": {Code: "Abort", Key: "Cancel", KeyCode: 3},
		"Help": {Code: "Help", Key: "Help", KeyCode: 6},
		"Backspace": {Code: "Backspace", Key: "Backspace", KeyCode: 8},
		"Tab": {Code: "Tab", Key: "Tab", KeyCode: 9},
		"Numpad5": {Code: "Numpad5", Key: "Clear", KeyCode: 12, ShiftKey: "5", ShiftKeyCode: 101, Location: 3},
		"NumpadEnter": {Code: "NumpadEnter", Key: "Enter", KeyCode: 13, Text: "\r", Location: 3},
		"Enter": {Code: "Enter", Key: "Enter", KeyCode: 13, Text: "\r"},
		"\r": {Code: "Enter", Key: "Enter", KeyCode: 13, Text: "\r"},
		"\n": {Code: "Enter", Key: "Enter", KeyCode: 13, Text: "\r"},
		"ShiftLeft": {Code: "ShiftLeft", Key: "Shift", KeyCode: 16, KeyCodeWithoutLocation: 16, Location: 1},
		"ShiftRight": {Code: "ShiftRight", Key: "Shift", KeyCode: 16, KeyCodeWithoutLocation: 16, Location: 2},
		"ControlLeft": {Code: "ControlLeft", Key: "Control", KeyCode: 17, KeyCodeWithoutLocation: 17, Location: 1},
		"ControlRight": {Code: "ControlRight", Key: "Control", KeyCode: 17, KeyCodeWithoutLocation: 17, Location: 2},
		"AltLeft": {Code: "AltLeft", Key: "Alt", KeyCode: 18, KeyCodeWithoutLocation: 18, Location: 1},
		"AltRight": {Code: "AltRight", Key: "Alt", KeyCode: 18, KeyCodeWithoutLocation: 18, Location: 2},
		"Pause": {Code: "Pause", Key: "Pause", KeyCode: 19},
		"CapsLock": {Code: "CapsLock", Key: "CapsLock", KeyCode: 20},
		"Escape": {Code: "Escape", Key: "Escape", KeyCode: 27},
		"Convert": {Code: "Convert", Key: "Convert", KeyCode: 28},
		"NonConvert": {Code: "NonConvert", Key: "NonConvert", KeyCode: 29},
		"Space": {Code: "Space", Key: " ", KeyCode: 32},
		"Numpad9": {Code: "Numpad9", Key: "PageUp", KeyCode: 33, ShiftKey: "9", ShiftKeyCode: 105, Location: 3},
		"PageUp": {Code: "PageUp", Key: "PageUp", KeyCode: 33},
		"Numpad3": {Code: "Numpad3", Key: "PageDown", KeyCode: 34, ShiftKey: "3", ShiftKeyCode: 99, Location: 3},
		"PageDown": {Code: "PageDown", Key: "PageDown", KeyCode: 34},
		"End": {Code: "End", Key: "End", KeyCode: 35},
		"Numpad1": {Code: "Numpad1", Key: "End", KeyCode: 35, ShiftKey: "1", ShiftKeyCode: 97, Location: 3},
		"Home": {Code: "Home", Key: "Home", KeyCode: 36},
		"Numpad7": {Code: "Numpad7", Key: "Home", KeyCode: 36, ShiftKey: "7", ShiftKeyCode: 103, Location: 3},
		"ArrowLeft": {Code: "ArrowLeft", Key: "ArrowLeft", KeyCode: 37},
		"Numpad4": {Code: "Numpad4", Key: "ArrowLeft", KeyCode: 37, ShiftKey: "4", ShiftKeyCode: 100, Location: 3},
		"Numpad8": {Code: "Numpad8", Key: "ArrowUp", KeyCode: 38, ShiftKey: "8", ShiftKeyCode: 104, Location: 3},
		"ArrowUp": {Code: "ArrowUp", Key: "ArrowUp", KeyCode: 38},
		"ArrowRight": {Code: "ArrowRight", Key: "ArrowRight", KeyCode: 39},
		"Numpad6": {Code: "Numpad6", Key: "ArrowRight", KeyCode: 39, ShiftKey: "6", ShiftKeyCode: 102, Location: 3},
		"Numpad2": {Code: "Numpad2", Key: "ArrowDown", KeyCode: 40, ShiftKey: "2", ShiftKeyCode: 98, Location: 3},
		"ArrowDown": {Code: "ArrowDown", Key: "ArrowDown", KeyCode: 40},
		"Select": {Code: "Select", Key: "Select", KeyCode: 41},
		"Open": {Code: "Open", Key: "Execute", KeyCode: 43},
		"PrintScreen": {Code: "PrintScreen", Key: "PrintScreen", KeyCode: 44},
		"Insert": {Code: "Insert", Key: "Insert", KeyCode: 45},
		"Numpad0": {Code: "Numpad0", Key: "Insert", KeyCode: 45, ShiftKey: "0", ShiftKeyCode: 96, Location: 3},
		"Delete": {Code: "Delete", Key: "Delete", KeyCode: 46},
		"NumpadDecimal": {Code: "NumpadDecimal", Key: "\u0000", KeyCode: 46, ShiftKey: ".", ShiftKeyCode: 110, Location: 3},
		"Digit0": {Code: "Digit0", Key: "0", KeyCode: 48, ShiftKey: ")"},
		"Digit1": {Code: "Digit1", Key: "1", KeyCode: 49, ShiftKey: "!"},
		"Digit2": {Code: "Digit2", Key: "2", KeyCode: 50, ShiftKey: "@"},
		"Digit3": {Code: "Digit3", Key: "3", KeyCode: 51, ShiftKey: "#"},
		"Digit4": {Code: "Digit4", Key: "4", KeyCode: 52, ShiftKey: "$"},
		"Digit5": {Code: "Digit5", Key: "5", KeyCode: 53, ShiftKey: "%"},
		"Digit6": {Code: "Digit6", Key: "6", KeyCode: 54, ShiftKey: "^"},
		"Digit7": {Code: "Digit7", Key: "7", KeyCode: 55, ShiftKey: "&"},
		"Digit8": {Code: "Digit8", Key: "8", KeyCode: 56, ShiftKey: "*"},
		"Digit9": {Code: "Digit9", Key: "9", KeyCode: 57, ShiftKey: "("},
		"KeyA": {Code: "KeyA", Key: "a", KeyCode: 65, ShiftKey: "A"},
		"KeyB": {Code: "KeyB", Key: "b", KeyCode: 66, ShiftKey: "B"},
		"KeyC": {Code: "KeyC", Key: "c", KeyCode: 67, ShiftKey: "C"},
		"KeyD": {Code: "KeyD", Key: "d", KeyCode: 68, ShiftKey: "D"},
		"KeyE": {Code: "KeyE", Key: "e", KeyCode: 69, ShiftKey: "E"},
		"KeyF": {Code: "KeyF", Key: "f", KeyCode: 70, ShiftKey: "F"},
		"KeyG": {Code: "KeyG", Key: "g", KeyCode: 71, ShiftKey: "G"},
		"KeyH": {Code: "KeyH", Key: "h", KeyCode: 72, ShiftKey: "H"},
		"KeyI": {Code: "KeyI", Key: "i", KeyCode: 73, ShiftKey: "I"},
		"KeyJ": {Code: "KeyJ", Key: "j", KeyCode: 74, ShiftKey: "J"},
		"KeyK": {Code: "KeyK", Key: "k", KeyCode: 75, ShiftKey: "K"},
		"KeyL": {Code: "KeyL", Key: "l", KeyCode: 76, ShiftKey: "L"},
		"KeyM": {Code: "KeyM", Key: "m", KeyCode: 77, ShiftKey: "M"},
		"KeyN": {Code: "KeyN", Key: "n", KeyCode: 78, ShiftKey: "N"},
		"KeyO": {Code: "KeyO", Key: "o", KeyCode: 79, ShiftKey: "O"},
		"KeyP": {Code: "KeyP", Key: "p", KeyCode: 80, ShiftKey: "P"},
		"KeyQ": {Code: "KeyQ", Key: "q", KeyCode: 81, ShiftKey: "Q"},
		"KeyR": {Code: "KeyR", Key: "r", KeyCode: 82, ShiftKey: "R"},
		"KeyS": {Code: "KeyS", Key: "s", KeyCode: 83, ShiftKey: "S"},
		"KeyT": {Code: "KeyT", Key: "t", KeyCode: 84, ShiftKey: "T"},
		"KeyU": {Code: "KeyU", Key: "u", KeyCode: 85, ShiftKey: "U"},
		"KeyV": {Code: "KeyV", Key: "v", KeyCode: 86, ShiftKey: "V"},
		"KeyW": {Code: "KeyW", Key: "w", KeyCode: 87, ShiftKey: "W"},
		"KeyX": {Code: "KeyX", Key: "x", KeyCode: 88, ShiftKey: "X"},
		"KeyY": {Code: "KeyY", Key: "y", KeyCode: 89, ShiftKey: "Y"},
		"KeyZ": {Code: "KeyZ", Key: "z", KeyCode: 90, ShiftKey: "Z"},
		"MetaLeft": {Code: "MetaLeft", Key: "Meta", KeyCode: 91, KeyCodeWithoutLocation: 91, Location: 1},
		"MetaRight": {Code: "MetaRight", Key: "Meta", KeyCode: 92, KeyCodeWithoutLocation: 92, Location: 2},
		"ContextMenu": {Code: "ContextMenu", Key: "ContextMenu", KeyCode: 93},
		"NumpadMultiply": {Code: "NumpadMultiply", Key: "*", KeyCode: 106, Location: 3},
		"NumpadAdd": {Code: "NumpadAdd", Key: "+", KeyCode: 107, Location: 3},
		"F1": {Code: "F1", Key: "F1", KeyCode: 112},
		"F2": {Code: "F2", Key: "F2", KeyCode: 113},
		"F3": {Code: "F3", Key: "F3", KeyCode: 114},
		"F4": {Code: "F4", Key: "F4", KeyCode: 115},
		"F5": {Code: "F5", Key: "F5", KeyCode: 116},
		"F6": {Code: "F6", Key: "F6", KeyCode: 117},
		"F7": {Code: "F7", Key: "F7", KeyCode: 118},
		"F8": {Code: "F8", Key: "F8", KeyCode: 119},
		"F9": {Code: "F9", Key: "F9", KeyCode: 120},
		"F10": {Code: "F10", Key: "F10", KeyCode: 121},
		"F11": {Code: "F11", Key: "F11", KeyCode: 122},
		"F12": {Code: "F12", Key: "F12", KeyCode: 123},
		"F13": {Code: "F13", Key: "F13", KeyCode: 124},
		"F14": {Code: "F14", Key: "F14", KeyCode: 125},
		"F15": {Code: "F15", Key: "F15", KeyCode: 126},
		"F16": {Code: "F16", Key: "F16", KeyCode: 127},
		"F17": {Code: "F17", Key: "F17", KeyCode: 128},
		"F18": {Code: "F18", Key: "F18", KeyCode: 129},
		"F19": {Code: "F19", Key: "F19", KeyCode: 130},
		"F20": {Code: "F20", Key: "F20", KeyCode: 131},
		"F21": {Code: "F21", Key: "F21", KeyCode: 132},
		"F22": {Code: "F22", Key: "F22", KeyCode: 133},
		"F23": {Code: "F23", Key: "F23", KeyCode: 134},
		"F24": {Code: "F24", Key: "F24", KeyCode: 135},
		"NumLock": {Code: "NumLock", Key: "NumLock", KeyCode: 144},
		"ScrollLock": {Code: "ScrollLock", Key: "ScrollLock", KeyCode: 145},
		"AudioVolumeMute": {Code: "AudioVolumeMute", Key: "AudioVolumeMute", KeyCode: 173},
		"AudioVolumeDown": {Code: "AudioVolumeDown", Key: "AudioVolumeDown", KeyCode: 174},
		"AudioVolumeUp": {Code: "AudioVolumeUp", Key: "AudioVolumeUp", KeyCode: 175},
		"MediaTrackNext": {Code: "MediaTrackNext", Key: "MediaTrackNext", KeyCode: 176},
		"MediaTrackPrevious": {Code: "MediaTrackPrevious", Key: "MediaTrackPrevious", KeyCode: 177},
		"MediaStop": {Code: "MediaStop", Key: "MediaStop", KeyCode: 178},
		"MediaPlayPause": {Code: "MediaPlayPause", Key: "MediaPlayPause", KeyCode: 179},
		"Semicolon": {Code: "Semicolon", Key: ";", KeyCode: 186, ShiftKey: ":"},
		"Equal": {Code: "Equal", Key: "=", KeyCode: 187, ShiftKey: "+"},
		"Comma": {Code: "Comma", Key: ",", KeyCode: 188, ShiftKey: "<"},
		"Minus": {Code: "Minus", Key: "-", KeyCode: 189, ShiftKey: "_"},
		"Period": {Code: "Period", Key: ".", KeyCode: 190, ShiftKey: ">"},
		"Slash": {Code: "Slash", Key: "/", KeyCode: 191, ShiftKey: "?"},
		"Backquote": {Code: "Backquote", Key: "`", KeyCode: 192, ShiftKey: "~"},
		"BracketLeft": {Code: "BracketLeft", Key: "[", KeyCode: 219, ShiftKey: "{"},
		"Backslash": {Code: "Backslash", Key: "\\", KeyCode: 220, ShiftKey: "|"},
		"BracketRight": {Code: "BracketRight", Key: "]", KeyCode: 221, ShiftKey: "}"},
		"Quote": {Code: "Quote", Key: "'", KeyCode: 222, ShiftKey: "\""},
		"AltGraph": {Code: "AltGraph", Key: "AltGraph", KeyCode: 225},
		"Props": {Code: "Props", Key: "CrSel", KeyCode: 247},
		"Cancel": {Code: "Cancel", Key: "Cancel", KeyCode: 3},
		"Clear": {Code: "Clear", Key: "Clear", KeyCode: 12},
		"Shift": {Code: "Shift", Key: "Shift", KeyCode: 16, Location: 1},
		"Control": {Code: "Control", Key: "Control", KeyCode: 17, Location: 1},
		"Alt": {Code: "Alt", Key: "Alt", KeyCode: 18, Location: 1},
		"Accept": {Code: "Accept", Key: "Accept", KeyCode: 30},
		"ModeChange": {Code: "ModeChange", Key: "ModeChange", KeyCode: 31},
		"Print": {Code: "Print", Key: "Print", KeyCode: 42},
		"Execute": {Code: "Execute", Key: "Execute", KeyCode: 43},
		"Meta": {Code: "Meta", Key: "Meta", KeyCode: 91, Location: 1},
		"Attn": {Code: "Attn", Key: "Attn", KeyCode: 246},
		"CrSel": {Code: "CrSel", Key: "CrSel", KeyCode: 247},
		"ExSel": {Code: "ExSel", Key: "ExSel", KeyCode: 248},
		"EraseEof": {Code: "EraseEof", Key: "EraseEof", KeyCode: 249},
		"Play": {Code: "Play", Key: "Play", KeyCode: 250},
		"ZoomOut": {Code: "ZoomOut", Key: "ZoomOut", KeyCode: 251},
	}

	register("us", keys)
}
