package quality

import (
	"image"
	"image/color"
	"math"
	"sort"
)

// gray is a flat 8-bit grayscale copy of the input image. All sub-scores
// work on it so the conversion happens once per Score call.
type gray struct {
	w, h int
	pix  []uint8
}

func toGray(img image.Image) *gray {
	b := img.Bounds()
	g := &gray{w: b.Dx(), h: b.Dy(), pix: make([]uint8, b.Dx()*b.Dy())}
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g.pix[i] = color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
			i++
		}
	}
	return g
}

func (g *gray) at(x, y int) uint8 {
	return g.pix[y*g.w+x]
}

// binThreshold picks the midpoint between the darkest and lightest pixel.
// Rendered codes are near-binary, so the midpoint separates modules cleanly.
func (g *gray) binThreshold() (uint8, bool) {
	if len(g.pix) == 0 {
		return 0, false
	}
	lo, hi := g.pix[0], g.pix[0]
	for _, p := range g.pix {
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	if hi == lo {
		// Flat image: no modules to find.
		return 0, false
	}
	return uint8((int(lo) + int(hi)) / 2), true
}

// finder is one detected finder pattern: center position and estimated
// module size in pixels.
type finder struct {
	x, y   float64
	module float64
}

// checkRatios tests five alternating runs against the 1:1:3:1:1 finder
// signature and returns the implied module size.
func checkRatios(runs [5]int) (float64, bool) {
	total := 0
	for _, r := range runs {
		if r == 0 {
			return 0, false
		}
		total += r
	}
	if total < 7 {
		return 0, false
	}
	m := float64(total) / 7.0
	tol := math.Max(1, m*0.6)
	expected := [5]float64{m, m, 3 * m, m, m}
	for i, r := range runs {
		t := tol
		if i == 2 {
			t = 3 * tol
		}
		if math.Abs(float64(r)-expected[i]) > t {
			return 0, false
		}
	}
	return m, true
}

// crossCheckVertical confirms a horizontal finder candidate by walking the
// same 1:1:3:1:1 signature vertically through its center column.
func crossCheckVertical(g *gray, thr uint8, cx, cy int) (float64, float64, bool) {
	dark := func(y int) bool { return g.at(cx, y) <= thr }
	if cy < 0 || cy >= g.h || !dark(cy) {
		return 0, 0, false
	}

	var runs [5]int
	y := cy
	// Center dark block, upward half.
	for y >= 0 && dark(y) {
		runs[2]++
		y--
	}
	for i := 1; i >= 0; i-- {
		isDark := i == 0
		for y >= 0 && dark(y) == isDark {
			runs[i]++
			y--
		}
		if runs[i] == 0 {
			return 0, 0, false
		}
	}
	// Downward half.
	y = cy + 1
	for y < g.h && dark(y) {
		runs[2]++
		y++
	}
	for i := 3; i <= 4; i++ {
		isDark := i == 4
		for y < g.h && dark(y) == isDark {
			runs[i]++
			y++
		}
		if runs[i] == 0 {
			return 0, 0, false
		}
	}

	m, ok := checkRatios(runs)
	if !ok {
		return 0, 0, false
	}
	end := float64(y)
	centerY := end - float64(runs[4]) - float64(runs[3]) - float64(runs[2])/2
	return centerY, m, true
}

// detectFinders scans every row for the finder signature and clusters the
// vertically confirmed candidates. A clean code yields exactly three.
func detectFinders(g *gray) []finder {
	thr, ok := g.binThreshold()
	if !ok {
		return nil
	}

	type clusterAcc struct {
		sumX, sumY, sumM float64
		n                int
	}
	var clusters []*clusterAcc

	for y := 0; y < g.h; y++ {
		// Run-length encode the row.
		var runs []int
		var starts []int
		x := 0
		for x < g.w {
			start := x
			isDark := g.at(x, y) <= thr
			for x < g.w && (g.at(x, y) <= thr) == isDark {
				x++
			}
			runs = append(runs, x-start)
			starts = append(starts, start)
		}

		for i := 0; i+5 <= len(runs); i++ {
			if g.at(starts[i], y) > thr {
				continue // window must start dark
			}
			var window [5]int
			copy(window[:], runs[i:i+5])
			m, ok := checkRatios(window)
			if !ok {
				continue
			}
			total := window[0] + window[1] + window[2] + window[3] + window[4]
			cx := starts[i] + total/2
			cyf, vm, ok := crossCheckVertical(g, thr, cx, y)
			if !ok {
				continue
			}
			module := (m + vm) / 2

			placed := false
			for _, c := range clusters {
				if math.Abs(c.sumX/float64(c.n)-float64(cx)) < 2*module &&
					math.Abs(c.sumY/float64(c.n)-cyf) < 2*module {
					c.sumX += float64(cx)
					c.sumY += cyf
					c.sumM += module
					c.n++
					placed = true
					break
				}
			}
			if !placed {
				clusters = append(clusters, &clusterAcc{
					sumX: float64(cx), sumY: cyf, sumM: module, n: 1,
				})
			}
		}
	}

	// Strongest clusters first; a finder is confirmed by many rows, an
	// accidental data-region match by very few.
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].n > clusters[j].n })

	var out []finder
	for _, c := range clusters {
		if c.n < 2 {
			continue
		}
		out = append(out, finder{
			x:      c.sumX / float64(c.n),
			y:      c.sumY / float64(c.n),
			module: c.sumM / float64(c.n),
		})
		if len(out) == 3 {
			break
		}
	}
	return out
}

// finderSkewDeg measures how far the three finder centers deviate from the
// right angle they form on an undistorted code.
func finderSkewDeg(f []finder) float64 {
	best := math.MaxFloat64
	for i := 0; i < 3; i++ {
		a, b, c := f[i], f[(i+1)%3], f[(i+2)%3]
		v1x, v1y := b.x-a.x, b.y-a.y
		v2x, v2y := c.x-a.x, c.y-a.y
		n1 := math.Hypot(v1x, v1y)
		n2 := math.Hypot(v2x, v2y)
		if n1 == 0 || n2 == 0 {
			continue
		}
		cos := (v1x*v2x + v1y*v2y) / (n1 * n2)
		angle := math.Acos(math.Max(-1, math.Min(1, cos))) * 180 / math.Pi
		if d := math.Abs(angle - 90); d < best {
			best = d
		}
	}
	if best == math.MaxFloat64 {
		return 0
	}
	return best
}

// alignmentScore grades finder presence and geometry: full credit needs all
// three patterns forming a right angle within tolerance, with partial credit
// for small skew and missing patterns.
func alignmentScore(finders []finder, cfg Config) float64 {
	switch len(finders) {
	case 0:
		return 0
	case 1:
		return 20
	case 2:
		return 45
	}
	skew := finderSkewDeg(finders)
	if skew <= cfg.SkewToleranceDeg {
		return 100
	}
	penalty := math.Min(60, (skew-cfg.SkewToleranceDeg)*10)
	return 100 - penalty
}

// sizeScore compares the estimated pixels per module against the minimum
// required for the declared physical size. Below the requirement the score
// drops linearly, reaching 0 at half of it.
func sizeScore(modulePx, declaredSizeMm float64, cfg Config) float64 {
	if modulePx <= 0 {
		return 0
	}
	scale := 1.0
	if declaredSizeMm > 0 && declaredSizeMm < refMarkingSizeMm {
		scale = refMarkingSizeMm / declaredSizeMm
	}
	required := float64(cfg.MinModulePx) * scale
	half := required / 2
	switch {
	case modulePx >= required:
		return 100
	case modulePx <= half:
		return 0
	default:
		return (modulePx - half) / half * 100
	}
}

// contrastScore samples module centers across the estimated grid and
// measures the separation between the darkest and lightest deciles.
func contrastScore(g *gray, modulePx float64, cfg Config) float64 {
	if modulePx <= 0 || g.w == 0 || g.h == 0 {
		return 0
	}
	var samples []float64
	for y := modulePx / 2; y < float64(g.h); y += modulePx {
		for x := modulePx / 2; x < float64(g.w); x += modulePx {
			samples = append(samples, float64(g.at(int(x), int(y))))
		}
	}
	if len(samples) < 4 {
		return 0
	}
	sort.Float64s(samples)
	k := len(samples) / 10
	if k == 0 {
		k = 1
	}
	var darkSum, lightSum float64
	for i := 0; i < k; i++ {
		darkSum += samples[i]
		lightSum += samples[len(samples)-1-i]
	}
	sep := (lightSum - darkSum) / float64(k) / 255

	if sep >= cfg.ContrastThreshold {
		return 100
	}
	if sep < 0 {
		return 0
	}
	return sep / cfg.ContrastThreshold * 100
}

// sharpnessScore is a Laplacian-variance blur measure: crisp module edges
// produce a high-variance response, blur flattens it.
func sharpnessScore(g *gray, cfg Config) float64 {
	if g.w < 3 || g.h < 3 {
		return 0
	}
	var sum, sumSq float64
	n := 0
	for y := 1; y < g.h-1; y++ {
		for x := 1; x < g.w-1; x++ {
			l := 4*float64(g.at(x, y)) -
				float64(g.at(x-1, y)) - float64(g.at(x+1, y)) -
				float64(g.at(x, y-1)) - float64(g.at(x, y+1))
			sum += l
			sumSq += l * l
			n++
		}
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	return math.Min(100, variance/cfg.SharpnessThreshold*100)
}
