package vision

// Region detection defaults.
const (
	// DefaultStride samples every 5th pixel on both axes.
	DefaultStride = 5
	// DefaultTolerance is the max |Δr|+|Δg|+|Δb| from the seed pixel.
	DefaultTolerance = 30
	// DefaultMinArea is the minimum hand size in sampled points (not pixels).
	DefaultMinArea = 1000
)

// IsSkin applies the RGB skin rule: r>95, g>40, b>20, |r-g|>15 and r/g>1.185.
func IsSkin(r, g, b uint8) bool {
	if r <= 95 || g <= 40 || b <= 20 {
		return false
	}
	diff := int(r) - int(g)
	if diff < 0 {
		diff = -diff
	}
	if diff <= 15 {
		return false
	}
	return float64(r)/float64(g) > 1.185
}

// Region is a connected set of sampled points sharing the seed's colour.
// Coordinates are full-resolution pixels; Area counts sampled points.
type Region struct {
	MinX int
	MaxX int
	MinY int
	MaxY int
	Area int
}

// Center returns the midpoint of the bounding box.
func (r Region) Center() (x, y float64) {
	return float64(r.MinX+r.MaxX) / 2, float64(r.MinY+r.MaxY) / 2
}

// Width returns the bounding box width in pixels (at least 1).
func (r Region) Width() int {
	return r.MaxX - r.MinX + 1
}

// Height returns the bounding box height in pixels (at least 1).
func (r Region) Height() int {
	return r.MaxY - r.MinY + 1
}

// AspectRatio returns width/height of the bounding box.
func (r Region) AspectRatio() float64 {
	return float64(r.Width()) / float64(r.Height())
}

// RegionDetectorConfig tunes the region scan.
type RegionDetectorConfig struct {
	Stride    int
	Tolerance int
	MinArea   int
}

// DefaultRegionDetectorConfig returns the stock detector settings.
func DefaultRegionDetectorConfig() RegionDetectorConfig {
	return RegionDetectorConfig{
		Stride:    DefaultStride,
		Tolerance: DefaultTolerance,
		MinArea:   DefaultMinArea,
	}
}

// RegionDetector finds skin-coloured blobs with a strided flood fill.
type RegionDetector struct {
	config RegionDetectorConfig
}

// NewRegionDetector creates a detector. Non-positive fields fall back to defaults,
// except Tolerance which may be zero.
func NewRegionDetector(config RegionDetectorConfig) *RegionDetector {
	if config.Stride <= 0 {
		config.Stride = DefaultStride
	}
	if config.Tolerance < 0 {
		config.Tolerance = DefaultTolerance
	}
	if config.MinArea <= 0 {
		config.MinArea = DefaultMinArea
	}
	return &RegionDetector{config: config}
}

// Config returns the detector settings.
func (d *RegionDetector) Config() RegionDetectorConfig {
	return d.config
}

type point struct {
	x, y int
}

// Detect scans the frame on the stride grid and returns regions in discovery
// (raster) order. Only regions whose area exceeds MinArea are kept.
func (d *RegionDetector) Detect(f *Frame) []Region {
	if !f.Ready() {
		return nil
	}

	stride := d.config.Stride
	cols := (f.Width + stride - 1) / stride
	rows := (f.Height + stride - 1) / stride
	visited := make([]bool, cols*rows)

	var regions []Region
	var stack []point

	for gy := 0; gy < rows; gy++ {
		for gx := 0; gx < cols; gx++ {
			if visited[gy*cols+gx] {
				continue
			}
			x, y := gx*stride, gy*stride
			r, g, b := f.RGB(x, y)
			if !IsSkin(r, g, b) {
				continue
			}

			region := d.fill(f, visited, cols, rows, gx, gy, stack[:0])
			if region.Area > d.config.MinArea {
				regions = append(regions, region)
			}
		}
	}

	return regions
}

// fill grows a region from the seed grid cell using an explicit stack and
// 4-connectivity on the sampling grid.
func (d *RegionDetector) fill(f *Frame, visited []bool, cols, rows, gx, gy int, stack []point) Region {
	stride := d.config.Stride
	sr, sg, sb := f.RGB(gx*stride, gy*stride)

	region := Region{
		MinX: gx * stride,
		MaxX: gx * stride,
		MinY: gy * stride,
		MaxY: gy * stride,
	}

	visited[gy*cols+gx] = true
	stack = append(stack, point{gx, gy})

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		px, py := p.x*stride, p.y*stride
		region.Area++
		if px < region.MinX {
			region.MinX = px
		}
		if px > region.MaxX {
			region.MaxX = px
		}
		if py < region.MinY {
			region.MinY = py
		}
		if py > region.MaxY {
			region.MaxY = py
		}

		for _, n := range [4]point{{p.x + 1, p.y}, {p.x - 1, p.y}, {p.x, p.y + 1}, {p.x, p.y - 1}} {
			if n.x < 0 || n.y < 0 || n.x >= cols || n.y >= rows {
				continue
			}
			idx := n.y*cols + n.x
			if visited[idx] {
				continue
			}
			r, g, b := f.RGB(n.x*stride, n.y*stride)
			if colourDistance(r, g, b, sr, sg, sb) > d.config.Tolerance {
				continue
			}
			visited[idx] = true
			stack = append(stack, n)
		}
	}

	return region
}

func colourDistance(r1, g1, b1, r2, g2, b2 uint8) int {
	return absDiff(r1, r2) + absDiff(g1, g2) + absDiff(b1, b2)
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
