package analyzer

import (
	"math"
	"sort"
)

type point struct {
	x, y float64
}

func cross(o, a, b point) float64 {
	return (a.x-o.x)*(b.y-o.y) - (a.y-o.y)*(b.x-o.x)
}

// convexHull returns the hull in counter-clockwise order without collinear
// points (Andrew's monotone chain).
func convexHull(pts []point) []point {
	if len(pts) < 3 {
		return append([]point(nil), pts...)
	}
	sorted := append([]point(nil), pts...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].x != sorted[j].x {
			return sorted[i].x < sorted[j].x
		}
		return sorted[i].y < sorted[j].y
	})

	hull := make([]point, 0, 2*len(sorted))
	for _, p := range sorted {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(sorted) - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

func polygonArea(poly []point) float64 {
	var a float64
	for i := range poly {
		j := (i + 1) % len(poly)
		a += poly[i].x*poly[j].y - poly[j].x*poly[i].y
	}
	return math.Abs(a) / 2
}

func polygonPerimeter(poly []point) float64 {
	var p float64
	for i := range poly {
		j := (i + 1) % len(poly)
		p += math.Hypot(poly[j].x-poly[i].x, poly[j].y-poly[i].y)
	}
	return p
}

// approxPolygon simplifies a closed polygon with Douglas-Peucker. The ring
// is split at two mutually distant vertices, A farthest from the first
// vertex and B farthest from A, so the split points land on corners rather
// than wherever the ring happens to start. Each half is simplified
// independently and vertices left within epsilon of their neighbours'
// chord are dropped.
func approxPolygon(poly []point, epsilon float64) []point {
	n := len(poly)
	if n < 4 {
		return append([]point(nil), poly...)
	}
	a := farthestFrom(poly, poly[0])
	b := farthestFrom(poly, poly[a])
	if a == b {
		return append([]point(nil), poly...)
	}

	first := simplifyChain(ringChain(poly, a, b), epsilon)
	second := simplifyChain(ringChain(poly, b, a), epsilon)

	out := append([]point(nil), first[:len(first)-1]...)
	out = append(out, second[:len(second)-1]...)
	return dropFlatVertices(out, epsilon)
}

func farthestFrom(poly []point, from point) int {
	idx, best := 0, -1.0
	for i, p := range poly {
		if d := math.Hypot(p.x-from.x, p.y-from.y); d > best {
			idx, best = i, d
		}
	}
	return idx
}

// ringChain returns the vertices from index i to index j inclusive, walking
// forward around the ring.
func ringChain(poly []point, i, j int) []point {
	n := len(poly)
	chain := make([]point, 0, (j-i+n)%n+1)
	for k := i; ; k = (k + 1) % n {
		chain = append(chain, poly[k])
		if k == j {
			return chain
		}
	}
}

func dropFlatVertices(poly []point, epsilon float64) []point {
	for len(poly) > 3 {
		removed := false
		for i := range poly {
			prev := poly[(i+len(poly)-1)%len(poly)]
			next := poly[(i+1)%len(poly)]
			if segmentDistance(poly[i], prev, next) <= epsilon {
				poly = append(poly[:i], poly[i+1:]...)
				removed = true
				break
			}
		}
		if !removed {
			break
		}
	}
	return poly
}

func simplifyChain(chain []point, epsilon float64) []point {
	if len(chain) < 3 {
		return append([]point(nil), chain...)
	}
	a, b := chain[0], chain[len(chain)-1]
	idx, maxDist := 0, -1.0
	for i := 1; i < len(chain)-1; i++ {
		if d := segmentDistance(chain[i], a, b); d > maxDist {
			idx, maxDist = i, d
		}
	}
	if maxDist <= epsilon {
		return []point{a, b}
	}
	left := simplifyChain(chain[:idx+1], epsilon)
	right := simplifyChain(chain[idx:], epsilon)
	return append(left[:len(left)-1], right...)
}

func segmentDistance(p, a, b point) float64 {
	dx, dy := b.x-a.x, b.y-a.y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(p.x-a.x, p.y-a.y)
	}
	t := ((p.x-a.x)*dx + (p.y-a.y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p.x-(a.x+t*dx), p.y-(a.y+t*dy))
}
