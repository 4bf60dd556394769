package keyboardlayout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUSLayoutLookups(t *testing.T) {
	t.Parallel()

	us := GetKeyboardLayout("us")
	require.NotEmpty(t, us.Keys)

	t.Run("key_definition_prefers_keys_without_location", func(t *testing.T) {
		t.Parallel()

		tests := map[KeyInput]string{
			"Enter":  "Enter",
			"PageUp": "PageUp",
			"5":      "Digit5",
			"a":      "KeyA",
			"Shift":  "Shift",
		}
		for key, code := range tests {
			def, ok := us.KeyDefinition(key)
			require.Truef(t, ok, "no definition for %q", key)
			assert.Equalf(t, code, def.Code, "code of %q", key)
		}

		_, ok := us.KeyDefinition("@")
		assert.False(t, ok)
	})
	t.Run("shift_key_definition", func(t *testing.T) {
		t.Parallel()

		code, def := us.ShiftKeyDefinition("@")
		assert.Equal(t, KeyInput("Digit2"), code)
		assert.Equal(t, "2", def.Key)

		code, def = us.ShiftKeyDefinition("A")
		assert.Equal(t, KeyInput("KeyA"), code)
		assert.Equal(t, int64(65), def.KeyCode)

		code, def = us.ShiftKeyDefinition("€")
		assert.Equal(t, KeyInput("€"), code)
		assert.Empty(t, def)
	})
	t.Run("valid_keys", func(t *testing.T) {
		t.Parallel()

		for _, k := range []KeyInput{"KeyA", "a", "A", "@", "NumpadEnter", "\n"} {
			assert.Truef(t, us.IsValid(k), "%q should be valid", k)
		}
		assert.False(t, us.IsValid("€"))
	})
}

func TestRegisterTwicePanics(t *testing.T) {
	t.Parallel()

	assert.Contains(t, Names(), "us")
	assert.PanicsWithValue(t, "keyboard layout already registered: us", func() {
		register("us", map[KeyInput]KeyDefinition{})
	})
}
