package analyzer

import "testing"

func maskFrom(rows ...string) *Mask {
	m := newMask(len(rows[0]), len(rows))
	for y, row := range rows {
		for x, c := range row {
			if c == '#' {
				m.Pix[y*m.Width+x] = 1
			}
		}
	}
	return m
}

func TestMask_OpenRemovesSpeckle(t *testing.T) {
	m := maskFrom(
		".....",
		".....",
		"..#..",
		".....",
		".....",
	)
	if got := m.Open().CountNonZero(); got != 0 {
		t.Errorf("Expected speckle to be removed, got %d pixels", got)
	}
}

func TestMask_OpenKeepsKernelSizedBlock(t *testing.T) {
	m := maskFrom(
		".....",
		".###.",
		".###.",
		".###.",
		".....",
	)
	if got := m.Open().CountNonZero(); got != 9 {
		t.Errorf("Expected 9 pixels after opening, got %d", got)
	}
}

func TestMask_CloseFillsHole(t *testing.T) {
	m := maskFrom(
		"#####",
		"#####",
		"##.##",
		"#####",
		"#####",
	)
	if got := m.Close().CountNonZero(); got != 25 {
		t.Errorf("Expected hole to be filled, got %d pixels", got)
	}
}

func TestMask_ErodeKeepsFullMaskAtBorder(t *testing.T) {
	m := maskFrom(
		"###",
		"###",
		"###",
	)
	if got := m.Erode().CountNonZero(); got != 9 {
		t.Errorf("Expected border pixels to survive erosion, got %d", got)
	}
}

func TestMask_DilateCorner(t *testing.T) {
	m := maskFrom(
		"#...",
		"....",
		"....",
	)
	if got := m.Dilate().CountNonZero(); got != 4 {
		t.Errorf("Expected 4 pixels after dilating a corner, got %d", got)
	}
}

func TestMask_OperationsDoNotMutateInput(t *testing.T) {
	m := maskFrom(
		"..#..",
		".....",
	)
	_ = m.Open()
	_ = m.Close()
	if m.CountNonZero() != 1 {
		t.Error("Expected source mask to be unchanged")
	}
}
