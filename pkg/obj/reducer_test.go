package obj

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
)

const quad = "v 0 0 0\nv 1 0 0\nv 2 0 0\nv 3 0 0\nf 1 2 3\nf 2 3 4"

func TestOptimizeHalfOfFourVertices(t *testing.T) {
	result, err := Optimize([]byte(quad), 50)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	if result.OriginalVertexCount != 4 {
		t.Errorf("OriginalVertexCount: expected 4, got %d", result.OriginalVertexCount)
	}
	if result.OptimizedVertexCount != 2 {
		t.Errorf("OptimizedVertexCount: expected 2, got %d", result.OptimizedVertexCount)
	}

	expected := "v 0 0 0\nv 1 0 0\nf 1 2 2\nf 2 2 2"
	if string(result.Optimized) != expected {
		t.Errorf("Optimized output mismatch:\nexpected %q\ngot      %q", expected, result.Optimized)
	}
}

func TestOptimizeZeroPercentIsIdentityRemap(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\nf 3 2 1"
	result, err := Optimize([]byte(src), 0)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	if result.OptimizedVertexCount != 3 || result.OriginalVertexCount != 3 {
		t.Errorf("Counts: expected 3/3, got %d/%d", result.OriginalVertexCount, result.OptimizedVertexCount)
	}
	if string(result.Optimized) != src {
		t.Errorf("Expected unchanged output, got %q", result.Optimized)
	}
}

func TestOptimizeOutputOrder(t *testing.T) {
	src := "# cube\no Cube\nv 0 0 0\nvn 0 0 1\nf 1 1 1\nv 1 1 1\ng side\nf 2 2 2"
	result, err := Optimize([]byte(src), 0)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	expected := "v 0 0 0\nv 1 1 1\nf 1 1 1\nf 2 2 2\n# cube\no Cube\nvn 0 0 1\ng side"
	if string(result.Optimized) != expected {
		t.Errorf("Output order mismatch:\nexpected %q\ngot      %q", expected, result.Optimized)
	}
}

func TestOptimizeKeepsNormalsAsOtherLines(t *testing.T) {
	src := "v 0 0 0\nvn 0 0 1\nvt 0.5 0.5\nv 1 0 0"
	for _, percent := range []int{0, 50, 99} {
		result, err := Optimize([]byte(src), percent)
		if err != nil {
			t.Fatalf("Optimize(%d) failed: %v", percent, err)
		}
		if result.OriginalVertexCount != 2 {
			t.Errorf("Optimize(%d): expected 2 vertices, got %d", percent, result.OriginalVertexCount)
		}
		if !strings.Contains(string(result.Optimized), "vn 0 0 1\nvt 0.5 0.5") {
			t.Errorf("Optimize(%d): normal and texture lines not passed through: %q", percent, result.Optimized)
		}
	}
}

func TestOptimizeDropsSubIndices(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 2 0 0\nf 1/4/6 2/5/7 3//9"
	result, err := Optimize([]byte(src), 0)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	if !strings.HasSuffix(string(result.Optimized), "\nf 1 2 3") {
		t.Errorf("Expected bare indices, got %q", result.Optimized)
	}
}

func TestOptimizeSubIndexTokenIsRemapped(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 2 0 0\nv 3 0 0\nf 2/5/7 4/1/1 1"
	result, err := Optimize([]byte(src), 75)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	if result.OptimizedVertexCount != 1 {
		t.Fatalf("Expected 1 vertex, got %d", result.OptimizedVertexCount)
	}
	if !strings.HasSuffix(string(result.Optimized), "\nf 1 1 1") {
		t.Errorf("Expected all references on vertex 1, got %q", result.Optimized)
	}
}

func TestOptimizeEmptyInput(t *testing.T) {
	result, err := Optimize([]byte(""), 50)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	if result.OriginalVertexCount != 0 || result.OptimizedVertexCount != 0 {
		t.Errorf("Expected zero counts, got %d/%d", result.OriginalVertexCount, result.OptimizedVertexCount)
	}
	if len(result.Optimized) != 0 {
		t.Errorf("Expected empty output, got %q", result.Optimized)
	}
}

func TestOptimizeInvalidUTF8(t *testing.T) {
	src := []byte("v 0 0 0\n\xff\xfe")
	_, err := Optimize(src, 50)
	if err == nil {
		t.Fatal("Expected decode error")
	}

	if !errors.Is(err, ErrDecode) {
		t.Errorf("Expected ErrDecode, got %v", err)
	}

	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Expected *DecodeError, got %T", err)
	}
	if decodeErr.Offset != 8 {
		t.Errorf("Expected offset 8, got %d", decodeErr.Offset)
	}
}

func TestOptimizeMalformedReferencePassesThrough(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nf 1 abc/2 2"

	var warnings []MalformedReference
	result, err := Optimize([]byte(src), 50, WithMalformedHandler(func(m MalformedReference) {
		warnings = append(warnings, m)
	}))
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	if !strings.HasSuffix(string(result.Optimized), "\nf 1 abc/2 1") {
		t.Errorf("Malformed token not passed through: %q", result.Optimized)
	}
	if len(warnings) != 1 {
		t.Fatalf("Expected 1 warning, got %d", len(warnings))
	}
	if warnings[0].Line != 3 || warnings[0].Token != "abc/2" {
		t.Errorf("Unexpected warning: %+v", warnings[0])
	}
}

func TestOptimizeOutOfRangeReferencePassesThrough(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 2 0 0\nv 3 0 0\nf 0 9 -1 4"
	result, err := Optimize([]byte(src), 50)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	if !strings.HasSuffix(string(result.Optimized), "\nf 0 9 -1 2") {
		t.Errorf("Unexpected face output: %q", result.Optimized)
	}
}

func TestOptimizeFullReductionKeepsOriginalReferences(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nf 1 2 2"
	result, err := Optimize([]byte(src), 100)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	if result.OptimizedVertexCount != 0 {
		t.Errorf("Expected 0 vertices, got %d", result.OptimizedVertexCount)
	}
	if string(result.Optimized) != "f 1 2 2" {
		t.Errorf("Unexpected output: %q", result.Optimized)
	}
}

func TestOptimizeOutOfRangePercent(t *testing.T) {
	src := []byte(quad)

	over, err := Optimize(src, 150)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if over.OptimizedVertexCount != 0 {
		t.Errorf("Expected 0 vertices for 150%%, got %d", over.OptimizedVertexCount)
	}

	negative, err := Optimize(src, -50)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if negative.OptimizedVertexCount != 4 {
		t.Errorf("Expected 4 vertices for -50%%, got %d", negative.OptimizedVertexCount)
	}
	if string(negative.Optimized) != quad {
		t.Errorf("Expected unchanged output for -50%%, got %q", negative.Optimized)
	}
}

func TestOptimizeWithPercentClamp(t *testing.T) {
	result, err := Optimize([]byte(quad), 150, WithPercentClamp())
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	// 150 clamps to 99: floor(4 * 0.01) = 0
	if result.OptimizedVertexCount != 0 {
		t.Errorf("Expected 0 vertices, got %d", result.OptimizedVertexCount)
	}

	src := strings.Repeat("v 0 0 0\n", 200)
	result, err = Optimize([]byte(src), 300, WithPercentClamp())
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if result.OptimizedVertexCount != 2 {
		t.Errorf("Expected 2 vertices, got %d", result.OptimizedVertexCount)
	}
}

func TestOptimizeCarriageReturns(t *testing.T) {
	src := "v 0 0 0\r\nv 1 0 0\r\nf 1 2 2\r\n"
	result, err := Optimize([]byte(src), 50)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	if result.OriginalVertexCount != 2 || result.OptimizedVertexCount != 1 {
		t.Fatalf("Unexpected counts %d/%d", result.OriginalVertexCount, result.OptimizedVertexCount)
	}
	expected := "v 0 0 0\r\nf 1 1 1\n"
	if string(result.Optimized) != expected {
		t.Errorf("Expected %q, got %q", expected, result.Optimized)
	}
}

func TestOptimizeSecondPassIsFixedPoint(t *testing.T) {
	src := "# model\nv 0 0 0\nvt 0 0\nv 1 0 0\nv 1 1 0\nf 1/1 2/1 3/1\nv 0 1 0\nf 1 3 4\nf  4  x 07 \n"
	for _, percent := range []int{0, 25, 50, 90, 100} {
		first, err := Optimize([]byte(src), percent)
		if err != nil {
			t.Fatalf("first pass (%d) failed: %v", percent, err)
		}

		second, err := Optimize(first.Optimized, 0)
		if err != nil {
			t.Fatalf("second pass (%d) failed: %v", percent, err)
		}

		if second.OriginalVertexCount != first.OptimizedVertexCount {
			t.Errorf("percent %d: second pass original %d, expected %d", percent, second.OriginalVertexCount, first.OptimizedVertexCount)
		}
		if second.OptimizedVertexCount != second.OriginalVertexCount {
			t.Errorf("percent %d: second pass changed vertex count", percent)
		}
		if !bytes.Equal(first.Optimized, second.Optimized) {
			t.Errorf("percent %d: second pass not a fixed point:\nfirst  %q\nsecond %q", percent, first.Optimized, second.Optimized)
		}
	}
}

func TestOptimizeFaceReferencesStayInRange(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 37; i++ {
		b.WriteString("v 0 0 " + strconv.Itoa(i) + "\n")
	}
	for i := 1; i+2 <= 37; i++ {
		b.WriteString("f " + strconv.Itoa(i) + "/1 " + strconv.Itoa(i+1) + " " + strconv.Itoa(i+2) + "//3\n")
	}
	src := []byte(b.String())

	for percent := 0; percent < 100; percent += 7 {
		result, err := Optimize(src, percent)
		if err != nil {
			t.Fatalf("Optimize(%d) failed: %v", percent, err)
		}
		if result.OptimizedVertexCount < 0 || result.OptimizedVertexCount > result.OriginalVertexCount {
			t.Fatalf("Optimize(%d): count %d out of bounds", percent, result.OptimizedVertexCount)
		}
		if result.OptimizedVertexCount == 0 {
			continue
		}

		for _, line := range strings.Split(string(result.Optimized), "\n") {
			if !strings.HasPrefix(line, "f ") {
				continue
			}
			for _, token := range strings.Fields(line)[1:] {
				index, err := strconv.Atoi(token)
				if err != nil {
					t.Fatalf("Optimize(%d): non-numeric reference %q", percent, token)
				}
				if index < 1 || index > result.OptimizedVertexCount {
					t.Errorf("Optimize(%d): reference %d outside [1, %d]", percent, index, result.OptimizedVertexCount)
				}
			}
		}
	}
}

func TestCountVertices(t *testing.T) {
	src := "v 0 0 0\nvn 0 0 1\nvt 0 0\nv 1 0 0\n  v 2 0 0\nv\tx\nV 1 1 1\nf 1 2 2"
	count, err := CountVertices([]byte(src))
	if err != nil {
		t.Fatalf("CountVertices failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 vertices, got %d", count)
	}

	count, err = CountVertices(nil)
	if err != nil {
		t.Fatalf("CountVertices(nil) failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 vertices for empty input, got %d", count)
	}

	if _, err := CountVertices([]byte{0xc3}); !errors.Is(err, ErrDecode) {
		t.Errorf("Expected ErrDecode, got %v", err)
	}
}

func TestCountVerticesMatchesOptimize(t *testing.T) {
	src := []byte("v 0 0 0\nvn 0 0 1\nv 1 0 0\nf 1 2 2\nv 1 1 1")
	count, err := CountVertices(src)
	if err != nil {
		t.Fatalf("CountVertices failed: %v", err)
	}

	for _, percent := range []int{0, 33, 66, 99} {
		result, err := Optimize(src, percent)
		if err != nil {
			t.Fatalf("Optimize failed: %v", err)
		}
		if result.OriginalVertexCount != count {
			t.Errorf("percent %d: original count %d, CountVertices %d", percent, result.OriginalVertexCount, count)
		}
	}
}

func TestTargetCount(t *testing.T) {
	cases := []struct {
		original, percent, expected int
	}{
		{4, 50, 2},
		{10, 30, 7},
		{3, 50, 1},
		{7, 10, 6},
		{100, 99, 1},
		{5, 0, 5},
		{0, 50, 0},
		{4, 200, 0},
		{4, -100, 4},
	}

	for _, c := range cases {
		if got := TargetCount(c.original, c.percent); got != c.expected {
			t.Errorf("TargetCount(%d, %d): expected %d, got %d", c.original, c.percent, c.expected, got)
		}
	}
}

func TestOptimizeReader(t *testing.T) {
	result, err := OptimizeReader(context.Background(), strings.NewReader(quad), 50)
	if err != nil {
		t.Fatalf("OptimizeReader failed: %v", err)
	}
	if result.OptimizedVertexCount != 2 {
		t.Errorf("Expected 2 vertices, got %d", result.OptimizedVertexCount)
	}
	if result.Removed() != 2 {
		t.Errorf("Expected 2 removed, got %d", result.Removed())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := OptimizeReader(ctx, strings.NewReader(quad), 50); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestOptimizedFileName(t *testing.T) {
	cases := map[string]string{
		"chair.obj":         "chair_optimized.obj",
		"my.chair.v2.obj":   "my.chair.v2_optimized.obj",
		"README":            "README_optimized",
		".obj":              "_optimized.obj",
		"models/teapot.OBJ": "models/teapot_optimized.OBJ",
	}

	for in, expected := range cases {
		if got := OptimizedFileName(in); got != expected {
			t.Errorf("OptimizedFileName(%q): expected %q, got %q", in, expected, got)
		}
	}
}
