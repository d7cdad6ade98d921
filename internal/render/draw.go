package render

import (
	"image"
	"image/color"
	"math"

	nchess "github.com/corentings/chess/v2"
)

type pointF struct {
	X float64
	Y float64
}

func drawArrow(img *image.RGBA, l layout, from, to nchess.Square, clr color.Color) {
	if img == nil || from == to {
		return
	}
	start := l.center(from)
	end := l.center(to)

	dx := end.X - start.X
	dy := end.Y - start.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}

	size := float64(l.squareSize)
	dirX, dirY := dx/length, dy/length
	perpX, perpY := -dirY, dirX

	baseLength := length - size*0.45
	if baseLength < size*0.35 {
		baseLength = length * 0.6
	}
	halfWidth := size * 0.12
	headWidth := size * 0.42

	baseX := start.X + dirX*baseLength
	baseY := start.Y + dirY*baseLength

	fillQuad(img,
		pointF{X: start.X - perpX*halfWidth, Y: start.Y - perpY*halfWidth},
		pointF{X: start.X + perpX*halfWidth, Y: start.Y + perpY*halfWidth},
		pointF{X: baseX + perpX*halfWidth, Y: baseY + perpY*halfWidth},
		pointF{X: baseX - perpX*halfWidth, Y: baseY - perpY*halfWidth},
		clr,
	)
	fillTriangleF(img,
		end,
		pointF{X: baseX - perpX*headWidth/2, Y: baseY - perpY*headWidth/2},
		pointF{X: baseX + perpX*headWidth/2, Y: baseY + perpY*headWidth/2},
		clr,
	)
}

func fillQuad(img *image.RGBA, p0, p1, p2, p3 pointF, clr color.Color) {
	fillTriangleF(img, p0, p1, p2, clr)
	fillTriangleF(img, p0, p2, p3, clr)
}

func fillTriangleF(img *image.RGBA, a, b, c pointF, clr color.Color) {
	minX := int(math.Floor(math.Min(a.X, math.Min(b.X, c.X))))
	maxX := int(math.Ceil(math.Max(a.X, math.Max(b.X, c.X))))
	minY := int(math.Floor(math.Min(a.Y, math.Min(b.Y, c.Y))))
	maxY := int(math.Ceil(math.Max(a.Y, math.Max(b.Y, c.Y))))

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if pointInTriangle(float64(x)+0.5, float64(y)+0.5, a, b, c) {
				blendPixel(img, x, y, clr)
			}
		}
	}
}

func pointInTriangle(x, y float64, a, b, c pointF) bool {
	denom := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if denom == 0 {
		return false
	}
	alpha := ((b.Y-c.Y)*(x-c.X) + (c.X-b.X)*(y-c.Y)) / denom
	beta := ((c.Y-a.Y)*(x-c.X) + (a.X-c.X)*(y-c.Y)) / denom
	gamma := 1 - alpha - beta
	return alpha >= 0 && beta >= 0 && gamma >= 0
}

// blendPixel composites clr over the pixel at (x, y) using straight alpha.
func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}

	sr, sg, sb, sa := clr.RGBA()
	srcA := float64(sa) / 65535.0
	if srcA <= 0 {
		return
	}
	// RGBA() is premultiplied; undo it so the blend below works on straight color
	srcR := float64(sr) / 65535.0 / srcA
	srcG := float64(sg) / 65535.0 / srcA
	srcB := float64(sb) / 65535.0 / srcA

	dst := img.RGBAAt(x, y)
	dstA := float64(dst.A) / 255.0
	var dstR, dstG, dstB float64
	if dstA > 0 {
		dstR = float64(dst.R) / 255.0 / dstA
		dstG = float64(dst.G) / 255.0 / dstA
		dstB = float64(dst.B) / 255.0 / dstA
	}

	outA := srcA + dstA*(1-srcA)
	if outA <= 0 {
		img.SetRGBA(x, y, color.RGBA{})
		return
	}
	outR := (srcR*srcA + dstR*dstA*(1-srcA)) / outA
	outG := (srcG*srcA + dstG*dstA*(1-srcA)) / outA
	outB := (srcB*srcA + dstB*dstA*(1-srcA)) / outA

	img.SetRGBA(x, y, color.RGBA{
		R: toUint8(outR * outA * 255.0),
		G: toUint8(outG * outA * 255.0),
		B: toUint8(outB * outA * 255.0),
		A: toUint8(outA * 255.0),
	})
}

func toUint8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
