package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// ImageFormat represents an image file format.
type ImageFormat string

// Valid image format options.
const (
	ImageFormatJPEG ImageFormat = "jpeg"
	ImageFormatPNG  ImageFormat = "png"
)

func (f ImageFormat) String() string {
	return imageFormatToString[f]
}

var imageFormatToString = map[ImageFormat]string{
	ImageFormatJPEG: "jpeg",
	ImageFormatPNG:  "png",
}

var imageFormatToID = map[string]ImageFormat{
	"jpeg": ImageFormatJPEG,
	"jpg":  ImageFormatJPEG,
	"png":  ImageFormatPNG,
}

// MarshalJSON marshals the enum as a quoted JSON string.
func (f ImageFormat) MarshalJSON() ([]byte, error) {
	buffer := bytes.NewBufferString(`"`)
	buffer.WriteString(imageFormatToString[f])
	buffer.WriteString(`"`)
	return buffer.Bytes(), nil
}

// UnmarshalJSON unmarshals a quoted JSON string to the enum value.
func (f *ImageFormat) UnmarshalJSON(b []byte) error {
	var j string
	err := json.Unmarshal(b, &j)
	if err != nil {
		return err
	}
	// Note that if the string cannot be found then it will be set to the zero value.
	*f = imageFormatToID[j]
	return nil
}

// ParseImageFormat returns the format named s.
func ParseImageFormat(s string) (ImageFormat, error) {
	f, ok := imageFormatToID[s]
	if !ok {
		return "", fmt.Errorf("invalid image format: %q", s)
	}
	return f, nil
}

// LaunchMode is how the launcher talks to a spawned browser.
type LaunchMode int

const (
	// LaunchModePipe exchanges NUL delimited frames over two inherited
	// pipes.
	LaunchModePipe LaunchMode = iota
	// LaunchModePort makes the browser listen on a local port and
	// connects to the websocket endpoint it prints.
	LaunchModePort
)

func (m LaunchMode) String() string {
	return launchModeToString[m]
}

var launchModeToString = map[LaunchMode]string{
	LaunchModePipe: "pipe",
	LaunchModePort: "port",
}

var launchModeToID = map[string]LaunchMode{
	"pipe": LaunchModePipe,
	"port": LaunchModePort,
}

// MarshalText returns the string representation of the enum value.
// It returns an error if the enum value is invalid.
func (m LaunchMode) MarshalText() ([]byte, error) {
	s, ok := launchModeToString[m]
	if !ok {
		return nil, fmt.Errorf("invalid launch mode: %v", int(m))
	}
	return []byte(s), nil
}

// UnmarshalText unmarshals a text representation to the enum value.
// It returns an error if the text representation is invalid.
func (m *LaunchMode) UnmarshalText(text []byte) error {
	val, ok := launchModeToID[string(text)]
	if !ok {
		return fmt.Errorf("invalid launch mode: %q", text)
	}
	*m = val
	return nil
}

// Point is a position in CSS pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Quad is four points, clockwise from the top left one, as laid out by
// the browser: x1, y1, x2, y2, x3, y3, x4, y4.
type Quad []float64

// Midpoint returns the center of the quad.
func (q Quad) Midpoint() Point {
	if len(q) < 8 {
		return Point{}
	}
	return Point{
		X: (q[0] + q[2] + q[4] + q[6]) / 4,
		Y: (q[1] + q[3] + q[5] + q[7]) / 4,
	}
}

// Viewport is the emulated size of a tab.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Scale  float64 `json:"scale"`
}

func (v Viewport) enclosingIntSize() (width, height int64) {
	return int64(math.Ceil(v.Width)), int64(math.Ceil(v.Height))
}
