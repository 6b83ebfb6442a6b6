// Package render draws the debug overlay of the reference engine: one marker
// per pointer down, a dot following gravity and the FPS counter. It is an
// engine.Renderer for gomobile GL contexts and an engine.Handler fed by the
// event queue, so both sides run on the render goroutine.
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sync/atomic"
	"time"

	"golang.org/x/mobile/event/size"
	"golang.org/x/mobile/exp/app/debug"
	"golang.org/x/mobile/exp/f32"
	"golang.org/x/mobile/exp/gl/glutil"
	"golang.org/x/mobile/exp/sprite"
	"golang.org/x/mobile/exp/sprite/clock"
	"golang.org/x/mobile/exp/sprite/glsprite"
	"golang.org/x/mobile/geom"
	"golang.org/x/mobile/gl"

	"github.com/viru/berrybridge/device"
	"github.com/viru/berrybridge/event"
)

// MaxMarkers is the number of pointers drawn at once.
const MaxMarkers = 10

// Marker and gravity dot sizes in points.
const (
	markerSize  = 48
	gravitySize = 16
	gravityGain = 8
)

type marker struct {
	id   int32
	x, y float32 // pixels
	used bool
}

// Overlay provides its exported methods to init, draw and release the
// overlay scene.
type Overlay struct {
	startTime time.Time
	ppp       atomic.Uint32

	glctx   gl.Context
	images  *glutil.Images
	engine  sprite.Engine
	scene   *sprite.Node
	fps     *debug.FPS
	texs    []sprite.SubTex
	loaded  bool
	sz      size.Event
	markers [MaxMarkers]marker
	gravity event.Event
}

// NewOverlay initializes a new overlay.
func NewOverlay(start time.Time) *Overlay {
	o := &Overlay{startTime: start}
	o.SetPixelsPerPt(1)
	return o
}

// SetPixelsPerPt sets the density used to turn pixels into points. Safe
// from any goroutine.
func (o *Overlay) SetPixelsPerPt(ppp float32) {
	if ppp <= 0 {
		ppp = 1
	}
	o.ppp.Store(math.Float32bits(ppp))
}

func (o *Overlay) pixelsPerPt() float32 {
	return math.Float32frombits(o.ppp.Load())
}

// Init creates the sprite engine and the scene on s, which must be a
// gl.Context.
func (o *Overlay) Init(s device.Surface) error {
	glctx, ok := s.(gl.Context)
	if !ok {
		return fmt.Errorf("can't render on %T", s)
	}
	// Enable blending for alpha channel in marker textures.
	o.glctx = glctx
	o.glctx.Enable(gl.BLEND)
	o.glctx.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	o.images = glutil.NewImages(o.glctx)
	o.engine = glsprite.Engine(o.images)
	o.fps = debug.NewFPS(o.images)
	if err := o.loadTextures(); err != nil {
		o.engine.Release()
		o.fps.Release()
		o.images.Release()
		return err
	}
	o.loadScene()
	o.loaded = true
	return nil
}

// Release releases the engine and forgets the GL context.
func (o *Overlay) Release() {
	if !o.loaded {
		return
	}
	o.loaded = false
	o.engine.Release()
	o.fps.Release()
	o.images.Release()
	o.glctx = nil
}

// Draw clears the screen and renders the scene.
func (o *Overlay) Draw(width, height int) {
	if !o.loaded {
		return
	}
	ppp := o.pixelsPerPt()
	o.sz = size.Event{
		WidthPx:     width,
		HeightPx:    height,
		WidthPt:     geom.Pt(float32(width) / ppp),
		HeightPt:    geom.Pt(float32(height) / ppp),
		PixelsPerPt: ppp,
	}
	o.glctx.ClearColor(0, 0, 0, 1)
	o.glctx.Clear(gl.COLOR_BUFFER_BIT)
	now := clock.Time(time.Since(o.startTime) * 60 / time.Second)
	o.engine.Render(o.scene, now, o.sz)
	o.fps.Draw(o.sz)
}

// HandleEvent updates the markers from touch events and the gravity dot
// from accelerometer events.
func (o *Overlay) HandleEvent(e event.Event) {
	switch e.Kind {
	case event.TouchDown:
		if i := o.find(e.PointerID); i >= 0 {
			o.markers[i].x, o.markers[i].y = float32(e.A), float32(e.B)
			return
		}
		for i := range o.markers {
			if !o.markers[i].used {
				o.markers[i] = marker{id: e.PointerID, x: float32(e.A), y: float32(e.B), used: true}
				return
			}
		}
	case event.TouchMove:
		if i := o.find(e.PointerID); i >= 0 {
			o.markers[i].x, o.markers[i].y = float32(e.A), float32(e.B)
		}
	case event.TouchUp:
		if i := o.find(e.PointerID); i >= 0 {
			o.markers[i].used = false
		}
	case event.Accelerometer:
		o.gravity = e
	}
}

// Markers returns the number of pointers currently drawn.
func (o *Overlay) Markers() int {
	n := 0
	for _, m := range o.markers {
		if m.used {
			n++
		}
	}
	return n
}

func (o *Overlay) find(id int32) int {
	for i, m := range o.markers {
		if m.used && m.id == id {
			return i
		}
	}
	return -1
}

const (
	texMarker = iota
	texGravity
)

func (o *Overlay) loadTextures() error {
	const n = 64
	m := image.NewRGBA(image.Rect(0, 0, 2*n, n))
	disc(m, image.Rect(0, 0, n, n), color.RGBA{0x33, 0x99, 0xff, 0xc0})
	disc(m, image.Rect(n, 0, 2*n, n), color.RGBA{0xff, 0x66, 0x00, 0xff})
	t, err := o.engine.LoadTexture(m)
	if err != nil {
		return fmt.Errorf("can't load overlay texture: %v", err)
	}
	// The +1's and -1's keep colors of the neighbouring texture out.
	o.texs = []sprite.SubTex{
		texMarker:  {T: t, R: image.Rect(1, 1, n-1, n-1)},
		texGravity: {T: t, R: image.Rect(n+1, 1, 2*n-1, n-1)},
	}
	return nil
}

// disc paints a filled circle inscribed in r.
func disc(m *image.RGBA, r image.Rectangle, c color.RGBA) {
	cx := float64(r.Min.X+r.Max.X) / 2
	cy := float64(r.Min.Y+r.Max.Y) / 2
	rad := float64(r.Dx()) / 2
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			dx, dy := float64(x)+0.5-cx, float64(y)+0.5-cy
			if dx*dx+dy*dy <= rad*rad {
				m.SetRGBA(x, y, c)
			}
		}
	}
}

func (o *Overlay) newNode(fn arrangerFunc) {
	n := &sprite.Node{Arranger: fn}
	o.engine.Register(n)
	o.scene.AppendChild(n)
}

func (o *Overlay) loadScene() {
	o.scene = new(sprite.Node)
	o.engine.Register(o.scene)
	o.engine.SetTransform(o.scene, f32.Affine{
		{1, 0, 0},
		{0, 1, 0},
	})

	for i := range o.markers {
		m := &o.markers[i]
		o.newNode(func(eng sprite.Engine, n *sprite.Node, t clock.Time) {
			if !m.used {
				eng.SetSubTex(n, sprite.SubTex{})
				return
			}
			ppp := o.sz.PixelsPerPt
			eng.SetSubTex(n, o.texs[texMarker])
			eng.SetTransform(n, f32.Affine{
				{markerSize, 0, m.x/ppp - markerSize/2},
				{0, markerSize, m.y/ppp - markerSize/2},
			})
		})
	}

	// Gravity dot, screen x/y follow the device axes.
	o.newNode(func(eng sprite.Engine, n *sprite.Node, t clock.Time) {
		if o.gravity.Kind != event.Accelerometer {
			eng.SetSubTex(n, sprite.SubTex{})
			return
		}
		cx := float32(o.sz.WidthPt)/2 - float32(o.gravity.A)*gravityGain
		cy := float32(o.sz.HeightPt)/2 + float32(o.gravity.B)*gravityGain
		eng.SetSubTex(n, o.texs[texGravity])
		eng.SetTransform(n, f32.Affine{
			{gravitySize, 0, cx - gravitySize/2},
			{0, gravitySize, cy - gravitySize/2},
		})
	})
}

type arrangerFunc func(e sprite.Engine, n *sprite.Node, t clock.Time)

func (a arrangerFunc) Arrange(e sprite.Engine, n *sprite.Node, t clock.Time) { a(e, n, t) }
