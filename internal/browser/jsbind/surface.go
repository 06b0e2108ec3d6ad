package jsbind

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"strconv"
	"strings"
)

// Glyph cell geometry of the built-in bitmap font.
const (
	glyphWidth   = 6
	glyphHeight  = 10
	glyphAdvance = 7
)

// surface is the pixel store behind one canvas element.
type surface struct {
	img *image.NRGBA
}

func newSurface(w, h int) *surface {
	s := &surface{}
	s.reset(w, h)
	return s
}

func (s *surface) reset(w, h int) {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	s.img = image.NewNRGBA(image.Rect(0, 0, w, h))
}

func (s *surface) set(x, y int, c color.NRGBA) {
	if image.Pt(x, y).In(s.img.Rect) {
		s.img.SetNRGBA(x, y, c)
	}
}

func (s *surface) fillRect(x, y, w, h int, c color.NRGBA) {
	for py := y; py < y+h; py++ {
		for px := x; px < x+w; px++ {
			s.set(px, py, c)
		}
	}
}

// drawText rasterizes text with its baseline at y. Each rune maps to a fixed
// bit pattern, so the same call always yields the same pixels.
func (s *surface) drawText(text string, x, y int, fill color.NRGBA, blur float64, shadow color.NRGBA, stroke bool) {
	cx := x
	for _, r := range text {
		if shadow.A > 0 && blur > 0 {
			s.shadow(cx, y, blur, shadow)
		}
		s.glyph(cx, y, r, fill, stroke)
		cx += glyphAdvance
	}
}

func (s *surface) glyph(x, y int, r rune, c color.NRGBA, stroke bool) {
	top := y - glyphHeight
	for row := 0; row < glyphHeight; row++ {
		bits := uint32(r)*uint32(row+3) ^ uint32(r)>>uint(row%4)
		for col := 0; col < glyphWidth; col++ {
			on := bits>>uint(col)&1 == 1
			if stroke {
				on = row == 0 || row == glyphHeight-1 || col == 0 || col == glyphWidth-1
			}
			if on {
				s.set(x+col, top+row, c)
			}
		}
	}
}

// shadow stamps the exact bits of the blur radius used at draw time into the
// pixels beside the glyph, so the read-back records which blur was applied.
func (s *surface) shadow(x, y int, blur float64, c color.NRGBA) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(blur))
	for i := 0; i < 2; i++ {
		s.set(x+glyphWidth+i, y, color.NRGBA{
			R: b[4*i] ^ c.R,
			G: b[4*i+1] ^ c.G,
			B: b[4*i+2] ^ c.B,
			A: b[4*i+3] | c.A | 1,
		})
	}
}

func (s *surface) dataURL() (string, error) {
	if s.img.Rect.Empty() {
		return "data:,", nil
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, s.img); err != nil {
		return "", fmt.Errorf("failed to encode canvas: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

var namedColors = map[string]color.NRGBA{
	"black":       {0, 0, 0, 255},
	"white":       {255, 255, 255, 255},
	"red":         {255, 0, 0, 255},
	"green":       {0, 128, 0, 255},
	"blue":        {0, 0, 255, 255},
	"transparent": {0, 0, 0, 0},
}

// parseColor understands the forms canvas code commonly assigns: names,
// #rgb, #rrggbb, rgb() and rgba().
func parseColor(s string) (color.NRGBA, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, true
	}
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) != 6 {
			return color.NRGBA{}, false
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.NRGBA{}, false
		}
		return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, true
	}

	var args string
	switch {
	case strings.HasPrefix(s, "rgba(") && strings.HasSuffix(s, ")"):
		args = s[5 : len(s)-1]
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		args = s[4 : len(s)-1]
	default:
		return color.NRGBA{}, false
	}
	parts := strings.Split(args, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return color.NRGBA{}, false
	}
	var ch [3]uint8
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return color.NRGBA{}, false
		}
		ch[i] = uint8(math.Max(0, math.Min(255, math.Round(v))))
	}
	alpha := 1.0
	if len(parts) == 4 {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil {
			return color.NRGBA{}, false
		}
		alpha = math.Max(0, math.Min(1, v))
	}
	return color.NRGBA{R: ch[0], G: ch[1], B: ch[2], A: uint8(math.Round(alpha * 255))}, true
}

// formatColor serializes like Chrome: opaque colours as #rrggbb, the rest as rgba().
func formatColor(c color.NRGBA) string {
	if c.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	alpha := strconv.FormatFloat(math.Round(float64(c.A)/255*1000)/1000, 'f', -1, 64)
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", c.R, c.G, c.B, alpha)
}
