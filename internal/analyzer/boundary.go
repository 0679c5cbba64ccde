package analyzer

import (
	"image"
	"math"

	xdraw "golang.org/x/image/draw"

	"go-capture-inspector/pkg/validation"
)

const (
	boundaryMaxSide     = 640
	edgeLowThreshold    = 75.0
	edgeHighThreshold   = 150.0
	minContourAreaRatio = 0.10
	approxEpsilonRatio  = 0.02
	minBoundarySidePx   = 10
)

// Margins are the gaps between the boundary and each image edge, as a
// fraction of the matching image dimension.
type Margins struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Min is the tightest margin.
func (m Margins) Min() float64 {
	return math.Min(math.Min(m.Left, m.Right), math.Min(m.Top, m.Bottom))
}

// Boundary is the detected document quadrilateral in full-resolution pixels.
type Boundary struct {
	Corners     [4]image.Point  `json:"corners"`
	Rect        image.Rectangle `json:"rect"`
	AspectRatio float64         `json:"aspect_ratio"`
	AreaRatio   float64         `json:"area_ratio"`
	Margins     Margins         `json:"margins"`
	// Fallback is set when no quadrilateral qualified and the whole image,
	// whose own aspect ratio is in range, stands in for the document.
	Fallback bool `json:"fallback"`
}

// detectBoundary finds the largest 4-cornered contour whose bounding
// rectangle has an aspect ratio (width/height) inside aspect. It returns nil
// when nothing qualifies and the image itself is out of range.
func detectBoundary(gray *image.Gray, aspect validation.Range) *Boundary {
	b := gray.Bounds()
	width, height := b.Dx(), b.Dy()

	small, scale := downscale(gray, boundaryMaxSide)
	sw, sh := small.Bounds().Dx(), small.Bounds().Dy()

	edges := detectEdges(small)
	imageArea := float64(sw * sh)

	var best *quad
	for _, comp := range edgeComponents(edges, sw, sh, imageArea*minContourAreaRatio) {
		hull := convexHull(comp)
		if len(hull) < 4 || polygonArea(hull) < imageArea*minContourAreaRatio {
			continue
		}
		approx := approxPolygon(hull, approxEpsilonRatio*polygonPerimeter(hull))
		if len(approx) != 4 {
			continue
		}
		q := newQuad(approx)
		bw, bh := q.rect.Dx(), q.rect.Dy()
		if bw < minBoundarySidePx || bh < minBoundarySidePx {
			continue
		}
		if !aspect.Contains(float64(bw) / float64(bh)) {
			continue
		}
		if best == nil || q.area() > best.area() {
			best = q
		}
	}

	if best == nil {
		if !aspect.Contains(float64(width) / float64(height)) {
			return nil
		}
		return newBoundary(b, [4]image.Point{
			{0, 0}, {width - 1, 0}, {width - 1, height - 1}, {0, height - 1},
		}, width, height, true)
	}

	var corners [4]image.Point
	for i, p := range best.corners {
		corners[i] = image.Pt(
			clampInt(int(math.Round(p.x/scale)), 0, width-1),
			clampInt(int(math.Round(p.y/scale)), 0, height-1),
		)
	}
	rect := image.Rect(
		clampInt(int(math.Floor(float64(best.rect.Min.X)/scale)), 0, width),
		clampInt(int(math.Floor(float64(best.rect.Min.Y)/scale)), 0, height),
		clampInt(int(math.Ceil(float64(best.rect.Max.X)/scale)), 0, width),
		clampInt(int(math.Ceil(float64(best.rect.Max.Y)/scale)), 0, height),
	)
	return newBoundary(rect, corners, width, height, false)
}

func newBoundary(rect image.Rectangle, corners [4]image.Point, width, height int, fallback bool) *Boundary {
	w, h := float64(width), float64(height)
	return &Boundary{
		Corners:     corners,
		Rect:        rect,
		AspectRatio: float64(rect.Dx()) / float64(rect.Dy()),
		AreaRatio:   float64(rect.Dx()*rect.Dy()) / (w * h),
		Margins: Margins{
			Left:   float64(rect.Min.X) / w,
			Top:    float64(rect.Min.Y) / h,
			Right:  float64(width-rect.Max.X) / w,
			Bottom: float64(height-rect.Max.Y) / h,
		},
		Fallback: fallback,
	}
}

type quad struct {
	corners []point
	rect    image.Rectangle
}

func newQuad(corners []point) *quad {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range corners {
		minX, maxX = math.Min(minX, p.x), math.Max(maxX, p.x)
		minY, maxY = math.Min(minY, p.y), math.Max(maxY, p.y)
	}
	// Pixel coordinates are inclusive; the rectangle is half-open.
	return &quad{
		corners: corners,
		rect:    image.Rect(int(minX), int(minY), int(maxX)+1, int(maxY)+1),
	}
}

func (q *quad) area() int {
	return q.rect.Dx() * q.rect.Dy()
}

// downscale shrinks gray so its long side is at most maxSide and returns the
// applied scale factor.
func downscale(gray *image.Gray, maxSide int) (*image.Gray, float64) {
	b := gray.Bounds()
	long := b.Dx()
	if b.Dy() > long {
		long = b.Dy()
	}
	if long <= maxSide {
		return gray, 1
	}
	scale := float64(maxSide) / float64(long)
	w := int(math.Max(1, math.Round(float64(b.Dx())*scale)))
	h := int(math.Max(1, math.Round(float64(b.Dy())*scale)))
	dst := image.NewGray(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), gray, b, xdraw.Src, nil)
	return dst, float64(w) / float64(b.Dx())
}

// detectEdges blurs with a 5x5 binomial kernel, takes the Sobel gradient
// magnitude and keeps strong edges plus weak edges connected to them.
func detectEdges(gray *image.Gray) []bool {
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	blurred := gaussianBlur5(gray)

	mag := make([]float64, w*h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			at := func(dx, dy int) float64 { return blurred[(y+dy)*w+x+dx] }
			gx := -at(-1, -1) + at(1, -1) - 2*at(-1, 0) + 2*at(1, 0) - at(-1, 1) + at(1, 1)
			gy := -at(-1, -1) - 2*at(0, -1) - at(1, -1) + at(-1, 1) + 2*at(0, 1) + at(1, 1)
			mag[y*w+x] = math.Hypot(gx, gy)
		}
	}

	edges := make([]bool, w*h)
	stack := make([]int, 0, 1024)
	for i, m := range mag {
		if m >= edgeHighThreshold && !edges[i] {
			edges[i] = true
			stack = append(stack, i)
		}
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if !edges[j] && mag[j] >= edgeLowThreshold {
					edges[j] = true
					stack = append(stack, j)
				}
			}
		}
	}
	return edges
}

var binomial5 = [5]float64{1, 4, 6, 4, 1}

func gaussianBlur5(gray *image.Gray) []float64 {
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	tmp := make([]float64, w*h)
	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var s float64
			for k := -2; k <= 2; k++ {
				s += binomial5[k+2] * float64(gray.Pix[y*gray.Stride+clampInt(x+k, 0, w-1)])
			}
			tmp[y*w+x] = s / 16
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var s float64
			for k := -2; k <= 2; k++ {
				s += binomial5[k+2] * tmp[clampInt(y+k, 0, h-1)*w+x]
			}
			out[y*w+x] = s / 16
		}
	}
	return out
}

// edgeComponents groups edge pixels into 8-connected components and returns
// the outer points of each component whose bounding box covers at least
// minBoxArea. Only the left- and right-most pixel of every row can lie on
// the hull, so only those are kept.
func edgeComponents(edges []bool, w, h int, minBoxArea float64) [][]point {
	labels := make([]int32, w*h)
	var out [][]point
	var next int32
	stack := make([]int, 0, 1024)

	for start, isEdge := range edges {
		if !isEdge || labels[start] != 0 {
			continue
		}
		next++
		labels[start] = next
		stack = append(stack[:0], start)

		rowMin := map[int]int{}
		rowMax := map[int]int{}
		minX, minY, maxX, maxY := w, h, -1, -1

		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := i%w, i/w

			if v, ok := rowMin[y]; !ok || x < v {
				rowMin[y] = x
			}
			if v, ok := rowMax[y]; !ok || x > v {
				rowMax[y] = x
			}
			minX, maxX = minInt(minX, x), maxInt(maxX, x)
			minY, maxY = minInt(minY, y), maxInt(maxY, y)

			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					j := ny*w + nx
					if edges[j] && labels[j] == 0 {
						labels[j] = next
						stack = append(stack, j)
					}
				}
			}
		}

		if float64((maxX-minX+1)*(maxY-minY+1)) < minBoxArea {
			continue
		}
		pts := make([]point, 0, 2*len(rowMin))
		for y := minY; y <= maxY; y++ {
			lo, ok := rowMin[y]
			if !ok {
				continue
			}
			pts = append(pts, point{float64(lo), float64(y)})
			if hi := rowMax[y]; hi != lo {
				pts = append(pts, point{float64(hi), float64(y)})
			}
		}
		out = append(out, pts)
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
