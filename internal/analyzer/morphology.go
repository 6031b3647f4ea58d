package analyzer

const kernelSize = 3

// Mask is a binary image: every Pix entry is 0 or 1.
type Mask struct {
	Width, Height int
	Pix           []uint8
}

func newMask(w, h int) *Mask {
	return &Mask{Width: w, Height: h, Pix: make([]uint8, w*h)}
}

// CountNonZero returns the number of set pixels.
func (m *Mask) CountNonZero() int {
	n := 0
	for _, p := range m.Pix {
		if p != 0 {
			n++
		}
	}
	return n
}

// Erode applies a 3x3 rectangular erosion. Pixels outside the image count as
// set, so borders do not erode on their own.
func (m *Mask) Erode() *Mask {
	return m.filter(1, func(acc, v uint8) uint8 { return acc & v })
}

// Dilate applies a 3x3 rectangular dilation. Pixels outside the image count
// as unset.
func (m *Mask) Dilate() *Mask {
	return m.filter(0, func(acc, v uint8) uint8 { return acc | v })
}

// Open removes speckles smaller than the kernel.
func (m *Mask) Open() *Mask {
	return m.Erode().Dilate()
}

// Close fills gaps smaller than the kernel.
func (m *Mask) Close() *Mask {
	return m.Dilate().Erode()
}

// filter runs a separable 3x3 pass: horizontally into a scratch mask, then
// vertically into the result. border is the value assumed outside the image.
func (m *Mask) filter(border uint8, op func(acc, v uint8) uint8) *Mask {
	w, h := m.Width, m.Height
	tmp := newMask(w, h)
	for y := 0; y < h; y++ {
		row := y * w
		for x := 0; x < w; x++ {
			acc := m.Pix[row+x]
			left, right := border, border
			if x > 0 {
				left = m.Pix[row+x-1]
			}
			if x < w-1 {
				right = m.Pix[row+x+1]
			}
			tmp.Pix[row+x] = op(op(acc, left), right)
		}
	}

	out := newMask(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			acc := tmp.Pix[y*w+x]
			up, down := border, border
			if y > 0 {
				up = tmp.Pix[(y-1)*w+x]
			}
			if y < h-1 {
				down = tmp.Pix[(y+1)*w+x]
			}
			out.Pix[y*w+x] = op(op(acc, up), down)
		}
	}
	return out
}
