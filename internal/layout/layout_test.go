package layout_test

import (
	"testing"

	"storyloom/internal/layout"
)

func TestParsePositionRejectsUnknownCells(t *testing.T) {
	cases := []string{"", "center", "top", "upper-left", "top-middle", "bottom_center", "top-left-right"}
	for _, value := range cases {
		if _, err := layout.ParsePosition(value); err == nil {
			t.Errorf("expected error for %q", value)
		}
	}
	pos, err := layout.ParsePosition("bottom-center")
	if err != nil {
		t.Fatalf("ParsePosition: %v", err)
	}
	if pos.String() != "bottom-center" {
		t.Fatalf("unexpected canonical form %q", pos.String())
	}
}

func TestResolveBoxBottomCenterGeometry(t *testing.T) {
	// 24pt at 300dpi rounds to 100px of margin; interior is 800px square.
	box, err := layout.ResolveBox("bottom-center", 0.8, 0, 0, 1000, 24, 300)
	if err != nil {
		t.Fatalf("ResolveBox: %v", err)
	}
	if box.Width != 640 {
		t.Errorf("width: got %d, want 640", box.Width)
	}
	if box.Top != 500 {
		t.Errorf("top: got %d, want 500", box.Top)
	}
	if box.Height != 400 {
		t.Errorf("height: got %d, want 400", box.Height)
	}
	if box.Left != 100+(800-640)/2 {
		t.Errorf("left: got %d, want %d", box.Left, 100+(800-640)/2)
	}
	if box.VAlign != layout.VAlignEnd {
		t.Errorf("valign: got %q, want end", box.VAlign)
	}
}

func TestResolveBoxVerticalBands(t *testing.T) {
	cases := []struct {
		position string
		top      int
		height   int
		valign   layout.VAlign
	}{
		{"top-left", 100, 800, layout.VAlignStart},
		{"middle-left", 300, 400, layout.VAlignCenter},
		{"bottom-left", 500, 400, layout.VAlignEnd},
	}
	for _, tc := range cases {
		box, err := layout.ResolveBox(tc.position, 0.5, 0, 0, 1000, 24, 300)
		if err != nil {
			t.Fatalf("%s: %v", tc.position, err)
		}
		if box.Top != tc.top || box.Height != tc.height {
			t.Errorf("%s: got top=%d height=%d, want top=%d height=%d", tc.position, box.Top, box.Height, tc.top, tc.height)
		}
		if box.VAlign != tc.valign {
			t.Errorf("%s: got valign %q, want %q", tc.position, box.VAlign, tc.valign)
		}
		if box.Left != 100 {
			t.Errorf("%s: got left=%d, want 100", tc.position, box.Left)
		}
	}
}

func TestResolveBoxHorizontalAnchors(t *testing.T) {
	left, err := layout.ResolveBox("top-left", 0.25, 0, 0, 1000, 24, 300)
	if err != nil {
		t.Fatalf("ResolveBox: %v", err)
	}
	right, err := layout.ResolveBox("top-right", 0.25, 0, 0, 1000, 24, 300)
	if err != nil {
		t.Fatalf("ResolveBox: %v", err)
	}
	if left.Left != 100 {
		t.Errorf("left anchor: got %d, want 100", left.Left)
	}
	if right.Left+right.Width != 900 {
		t.Errorf("right anchor: box should end at interior right edge, got %d", right.Left+right.Width)
	}
}

func TestResolveBoxOffsetsAreNotClamped(t *testing.T) {
	// A large positive offset pushes the box past the safe zone and even past
	// the page edge. That is intentional.
	box, err := layout.ResolveBox("bottom-right", 0.5, 300, 300, 1000, 24, 300)
	if err != nil {
		t.Fatalf("ResolveBox: %v", err)
	}
	if box.Left+box.Width <= 1000 {
		t.Errorf("expected box pushed past the page edge, got left=%d width=%d", box.Left, box.Width)
	}
	if box.Top <= 500 {
		t.Errorf("expected top pushed below the bottom band, got %d", box.Top)
	}
}

func TestResolveBoxDeterministic(t *testing.T) {
	first, err := layout.ResolveBox("middle-center", 0.61803, -3.5, 7.25, 2551, 24, 300)
	if err != nil {
		t.Fatalf("ResolveBox: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := layout.ResolveBox("middle-center", 0.61803, -3.5, 7.25, 2551, 24, 300)
		if err != nil {
			t.Fatalf("ResolveBox: %v", err)
		}
		if again != first {
			t.Fatalf("resolve not deterministic: %+v vs %+v", again, first)
		}
	}
	if first.Width > 2551-2*100 {
		t.Errorf("box width %d exceeds interior width", first.Width)
	}
}

func TestResolveBoxRejectsBadInputs(t *testing.T) {
	if _, err := layout.ResolveBox("top-left", 0, 0, 0, 1000, 24, 300); err == nil {
		t.Error("expected error for zero box width")
	}
	if _, err := layout.ResolveBox("top-left", 1.2, 0, 0, 1000, 24, 300); err == nil {
		t.Error("expected error for box width above 1")
	}
	if _, err := layout.ResolveBox("top-left", 0.5, 0, 0, 0, 24, 300); err == nil {
		t.Error("expected error for zero page size")
	}
	if _, err := layout.ResolveBox("diagonal-left", 0.5, 0, 0, 1000, 24, 300); err == nil {
		t.Error("expected error for invalid position")
	}
}
