package common

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/mailru/easyjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuxd6825/cdpdriver/log"
)

// fakeInput records the input commands sent to a tab.
type fakeInput struct {
	mu       sync.Mutex
	methods  []string
	params   []easyjson.Marshaler
	slowMoed []time.Duration
}

var _ inputSession = &fakeInput{}

func (f *fakeInput) Execute(_ context.Context, method string, params easyjson.Marshaler, _ easyjson.Unmarshaler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.methods = append(f.methods, method)
	f.params = append(f.params, params)
	return nil
}

func (f *fakeInput) slowMotion(_ context.Context, base time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slowMoed = append(f.slowMoed, base)
	return nil
}

func (f *fakeInput) logger() *log.Logger { return log.NewNullLogger() }

func (f *fakeInput) keyEvents() []*input.DispatchKeyEventParams {
	f.mu.Lock()
	defer f.mu.Unlock()

	var evs []*input.DispatchKeyEventParams
	for _, p := range f.params {
		if ev, ok := p.(*input.DispatchKeyEventParams); ok {
			evs = append(evs, ev)
		}
	}
	return evs
}

func (f *fakeInput) mouseEvents() []*input.DispatchMouseEventParams {
	f.mu.Lock()
	defer f.mu.Unlock()

	var evs []*input.DispatchMouseEventParams
	for _, p := range f.params {
		if ev, ok := p.(*input.DispatchMouseEventParams); ok {
			evs = append(evs, ev)
		}
	}
	return evs
}

func TestSplit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		keys string
		want []string
	}{
		{name: "empty", keys: "", want: []string{""}},
		{name: "no_separator", keys: "HelloWorld!", want: []string{"HelloWorld!"}},
		{name: "separator", keys: "Hello+World+!", want: []string{"Hello", "World", "!"}},
		{name: "single_plus", keys: "+", want: []string{"+"}},
		{name: "double_plus", keys: "++", want: []string{"+", ""}},
		{name: "triple_plus", keys: "+++", want: []string{"+", "+"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, split(tt.keys))
		})
	}
}

func TestKeyboardPress(t *testing.T) {
	t.Parallel()

	type want struct {
		typ       input.KeyType
		key       string
		text      string
		modifiers input.Modifier
	}
	tests := []struct {
		name string
		do   func(*Keyboard) error
		want []want
	}{
		{
			name: "enter",
			do:   func(k *Keyboard) error { return k.Press("Enter", nil) },
			want: []want{
				{typ: input.KeyDown, key: "Enter", text: "\r"},
				{typ: input.KeyUp, key: "Enter"},
			},
		},
		{
			name: "shift_layer",
			do: func(k *Keyboard) error {
				if err := k.Down("Shift"); err != nil {
					return err
				}
				if err := k.Press("KeyA", nil); err != nil {
					return err
				}
				return k.Up("Shift")
			},
			want: []want{
				{typ: input.KeyRawDown, key: "Shift", modifiers: input.Modifier(ModifierKeyShift)},
				{typ: input.KeyDown, key: "A", text: "A", modifiers: input.Modifier(ModifierKeyShift)},
				{typ: input.KeyUp, key: "A", modifiers: input.Modifier(ModifierKeyShift)},
				{typ: input.KeyUp, key: "Shift"},
			},
		},
		{
			name: "combo_without_text",
			do:   func(k *Keyboard) error { return k.Press("Control+KeyA", nil) },
			want: []want{
				{typ: input.KeyRawDown, key: "Control", modifiers: input.Modifier(ModifierKeyControl)},
				{typ: input.KeyRawDown, key: "a", modifiers: input.Modifier(ModifierKeyControl)},
				{typ: input.KeyUp, key: "a", modifiers: input.Modifier(ModifierKeyControl)},
				{typ: input.KeyUp, key: "Control"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fi := &fakeInput{}
			k := NewKeyboard(t.Context(), fi)
			require.NoError(t, tt.do(k))

			evs := fi.keyEvents()
			require.Len(t, evs, len(tt.want))
			for i, w := range tt.want {
				assert.Equal(t, w.typ, evs[i].Type, "event %d", i)
				assert.Equal(t, w.key, evs[i].Key, "event %d", i)
				assert.Equal(t, w.text, evs[i].Text, "event %d", i)
				assert.Equal(t, w.modifiers, evs[i].Modifiers, "event %d", i)
			}
			assert.Zero(t, k.Modifiers())
		})
	}
}

func TestKeyboardPressInvalidKey(t *testing.T) {
	t.Parallel()

	fi := &fakeInput{}
	k := NewKeyboard(t.Context(), fi)

	assert.ErrorContains(t, k.Press("", nil), `"" is not a valid key`)
	assert.ErrorContains(t, k.Down("NoSuchKey"), `"NoSuchKey" is not a valid key for layout "us"`)
	assert.Empty(t, fi.keyEvents())
}

func TestKeyboardAutoRepeat(t *testing.T) {
	t.Parallel()

	fi := &fakeInput{}
	k := NewKeyboard(t.Context(), fi)
	require.NoError(t, k.Down("KeyB"))
	require.NoError(t, k.Down("KeyB"))
	require.NoError(t, k.Up("KeyB"))

	evs := fi.keyEvents()
	require.Len(t, evs, 3)
	assert.False(t, evs[0].AutoRepeat)
	assert.True(t, evs[1].AutoRepeat)
}

func TestKeyboardType(t *testing.T) {
	t.Parallel()

	fi := &fakeInput{}
	k := NewKeyboard(t.Context(), fi)
	require.NoError(t, k.Type("a€", &KeyboardOptions{}))

	fi.mu.Lock()
	defer fi.mu.Unlock()
	assert.Equal(t, []string{
		input.CommandDispatchKeyEvent,
		input.CommandDispatchKeyEvent,
		input.CommandInsertText,
	}, fi.methods)
	assert.Equal(t, "€", fi.params[2].(*input.InsertTextParams).Text) //nolint:forcetypeassert
}

func TestKeyboardPressSlowMotion(t *testing.T) {
	t.Parallel()

	fi := &fakeInput{}
	k := NewKeyboard(t.Context(), fi)
	require.NoError(t, k.Press("Tab", nil))

	fi.mu.Lock()
	defer fi.mu.Unlock()
	assert.Equal(t, []time.Duration{slowMoKeyPress}, fi.slowMoed)
}
