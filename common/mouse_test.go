package common

import (
	"testing"

	"github.com/chromedp/cdproto/input"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMouseClick(t *testing.T) {
	t.Parallel()

	fi := &fakeInput{}
	k := NewKeyboard(t.Context(), fi)
	m := NewMouse(t.Context(), fi, k)

	require.NoError(t, k.Down("Shift"))
	require.NoError(t, m.Click(10, 20, &MouseClickOptions{Button: "right", ClickCount: 2}))

	evs := fi.mouseEvents()
	require.Len(t, evs, 3)

	assert.Equal(t, input.MouseMoved, evs[0].Type)
	assert.Equal(t, input.MousePressed, evs[1].Type)
	assert.Equal(t, input.MouseReleased, evs[2].Type)
	for _, ev := range evs[1:] {
		assert.Equal(t, input.Right, ev.Button)
		assert.Equal(t, int64(2), ev.ClickCount)
		assert.InDelta(t, 10, ev.X, 0)
		assert.InDelta(t, 20, ev.Y, 0)
	}
	for _, ev := range evs {
		assert.Equal(t, input.Modifier(ModifierKeyShift), ev.Modifiers)
	}

	x, y := m.Position()
	assert.InDelta(t, 10, x, 0)
	assert.InDelta(t, 20, y, 0)
}

func TestMouseMoveSteps(t *testing.T) {
	t.Parallel()

	fi := &fakeInput{}
	m := NewMouse(t.Context(), fi, NewKeyboard(t.Context(), fi))
	require.NoError(t, m.Move(100, 50, &MouseMoveOptions{Steps: 4}))

	evs := fi.mouseEvents()
	require.Len(t, evs, 4)
	wantX := []float64{25, 50, 75, 100}
	for i, ev := range evs {
		assert.InDelta(t, wantX[i], ev.X, 1e-9)
		assert.Equal(t, input.None, ev.Button, "no button held")
	}
}

func TestMouseDownHoldsButtonWhileMoving(t *testing.T) {
	t.Parallel()

	fi := &fakeInput{}
	m := NewMouse(t.Context(), fi, NewKeyboard(t.Context(), fi))
	require.NoError(t, m.Down(nil))
	require.NoError(t, m.Move(5, 5, nil))
	require.NoError(t, m.Up(nil))

	evs := fi.mouseEvents()
	require.Len(t, evs, 3)
	assert.Equal(t, input.Left, evs[1].Button)
}

func TestMouseUnknownButton(t *testing.T) {
	t.Parallel()

	fi := &fakeInput{}
	m := NewMouse(t.Context(), fi, NewKeyboard(t.Context(), fi))
	err := m.Down(&MouseDownUpOptions{Button: "fourth"})
	assert.ErrorContains(t, err, `unknown mouse button "fourth"`)
	assert.Empty(t, fi.mouseEvents())
}

func TestMouseOptionsValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    *MouseClickOptions
		wantErr string
	}{
		{name: "defaults", opts: NewMouseClickOptions()},
		{name: "empty_button", opts: &MouseClickOptions{}},
		{name: "negative_delay", opts: &MouseClickOptions{Delay: -1}, wantErr: "negative click delay -1"},
		{name: "negative_count", opts: &MouseClickOptions{ClickCount: -2}, wantErr: "negative click count -2"},
		{name: "button", opts: &MouseClickOptions{Button: "thumb"}, wantErr: `unknown mouse button "thumb"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.opts.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}

	fi := &fakeInput{}
	m := NewMouse(t.Context(), fi, NewKeyboard(t.Context(), fi))
	require.Error(t, m.Click(1, 1, &MouseClickOptions{Delay: -5}))
	assert.Empty(t, fi.mouseEvents(), "invalid options dispatch nothing")
}
