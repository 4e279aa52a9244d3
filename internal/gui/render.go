package gui

import (
	"fmt"
	"image/color"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/san-kum/fieldsim/internal/animate"
	"github.com/san-kum/fieldsim/internal/field"
	"github.com/san-kum/fieldsim/internal/storage"
)

type rgba = color.RGBA

// drawTexture uploads the software screen and stretches it over the window.
func (a *App) drawTexture() {
	f := a.cpu.Screen()
	if f == nil {
		return
	}
	a.pixels = screenPixels(f, a.pixels)
	rl.UpdateTexture(a.screen, a.pixels)

	src := rl.NewRectangle(0, 0, float32(a.screen.Width), float32(a.screen.Height))
	dst := rl.NewRectangle(0, 0, float32(rl.GetScreenWidth()), float32(rl.GetScreenHeight()))
	rl.DrawTexturePro(a.screen, src, dst, rl.NewVector2(0, 0), 0, rl.White)
}

// drawDirect lets the GL device draw into raylib's framebuffer. raylib's
// pending batch is flushed first so the passes do not interleave with it.
func (a *App) drawDirect() {
	rl.DrawRenderBatchActive()
	if n := a.sched.Advance(time.Now()); n == 0 {
		if err := a.sim.Present(); err != nil && a.err == nil {
			a.err = err
		}
	}
}

// screenPixels converts a display field to raylib's top-down RGBA order,
// reusing dst when it is large enough.
func screenPixels(f *field.Field, dst []rgba) []rgba {
	img := storage.Image(f)
	n := f.W * f.H
	if cap(dst) < n {
		dst = make([]rgba, n)
	}
	dst = dst[:n]
	for i := range dst {
		p := img.Pix[4*i : 4*i+4]
		dst[i] = rgba{R: p[0], G: p[1], B: p[2], A: 255}
	}
	return dst
}

func (a *App) drawText(text string, x, y int, size int, color rl.Color) {
	if !a.hasFont {
		rl.DrawText(text, int32(x), int32(y), int32(size), color)
		return
	}
	rl.DrawTextEx(a.font, text, rl.NewVector2(float32(x), float32(y)), float32(size), 1, color)
}

func (a *App) drawHUD() {
	w, h := rl.GetScreenWidth(), rl.GetScreenHeight()
	gw, gh := a.sim.Size()
	p := a.sim.Params()

	a.drawText("fieldsim", 30, 30, 24, ColSelect)
	a.drawText(fmt.Sprintf(":: %s %dx%d  %s", a.sim.Variant(), gw, gh, a.dev.Name()), 150, 34, 16, ColText)

	status, col := "RUNNING", ColSelect
	switch {
	case a.err != nil:
		status, col = "ERROR", ColError
		a.drawText(a.err.Error(), 30, 70, 14, ColError)
	case a.driver.State() == animate.Stopped:
		status, col = "STOPPED", ColTextDim
	}
	a.drawText(status, w-130, 30, 16, col)

	a.drawText(fmt.Sprintf("frame %d   iter %d   c %.4g   gain %.3g", a.sim.Frame(), p.Iterations, p.Force, p.Gain),
		30, h-70, 14, ColAccent)
	a.drawText(fmt.Sprintf("%.0f FPS", a.meter.FPS()), 30, h-40, 14, ColTextDim)
	a.drawText("[SPACE] RUN/STOP  [R] RESET  [+/-] ITER  [/] FORCE  [Q] QUIT", w-620, h-40, 14, ColTextDim)
}
