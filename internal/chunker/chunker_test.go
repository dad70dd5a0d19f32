package chunker

import (
	"errors"
	"strings"
	"testing"

	"docchat/internal/util"
)

func TestSplitEmptyInput(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\n\t"} {
		pieces, err := Split(text, 100, 10)
		if err != nil {
			t.Fatalf("split %q: %v", text, err)
		}
		if len(pieces) != 0 {
			t.Fatalf("expected no pieces for %q, got %d", text, len(pieces))
		}
	}
}

func TestSplitInvalidArguments(t *testing.T) {
	cases := []struct{ size, overlap int }{
		{0, 0},
		{-1, 0},
		{10, -1},
		{10, 10},
		{10, 15},
	}
	for _, c := range cases {
		if _, err := Split("some text", c.size, c.overlap); !errors.Is(err, util.ErrInvalidArgument) {
			t.Fatalf("size=%d overlap=%d: expected invalid argument, got %v", c.size, c.overlap, err)
		}
	}
}

func TestSplitHardCutWindows(t *testing.T) {
	// No separators anywhere, so every cut is a hard cut at chunk size.
	text := strings.Repeat("a", 2000)
	pieces, err := Split(text, 800, 150)
	if err != nil {
		t.Fatal(err)
	}
	if len(pieces) != 3 {
		t.Fatalf("expected 3 pieces, got %d", len(pieces))
	}
	want := []struct{ start, end int }{{0, 800}, {650, 1450}, {1300, 2000}}
	for i, w := range want {
		if pieces[i].Start != w.start || pieces[i].End != w.end {
			t.Fatalf("piece %d: got [%d,%d), want [%d,%d)", i, pieces[i].Start, pieces[i].End, w.start, w.end)
		}
	}
}

func TestSplitPrefersParagraphBoundary(t *testing.T) {
	para1 := strings.Repeat("x", 60)
	para2 := strings.Repeat("y", 60)
	text := para1 + "\n\n" + para2
	pieces, err := Split(text, 100, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pieces) != 2 {
		t.Fatalf("expected 2 pieces, got %d", len(pieces))
	}
	if pieces[0].End != 62 {
		t.Fatalf("expected cut after the paragraph separator at 62, got %d", pieces[0].End)
	}
	if !strings.HasSuffix(pieces[0].Text, "\n\n") {
		t.Fatalf("separator should stay with the left piece: %q", pieces[0].Text)
	}
}

func TestSplitPrefersSentenceOverWord(t *testing.T) {
	text := "First sentence here. Second part has more words in it to overflow"
	pieces, err := Split(text, 40, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(pieces) < 2 {
		t.Fatalf("expected at least 2 pieces, got %d", len(pieces))
	}
	if pieces[0].Text != "First sentence here. " {
		t.Fatalf("expected sentence-boundary cut, got %q", pieces[0].Text)
	}
}

func TestSplitOffsetsReconstructSource(t *testing.T) {
	text := "Alpha beta gamma delta.\n\nEpsilon zeta eta theta iota kappa lambda. " +
		strings.Repeat("mu nu xi omicron pi rho sigma tau ", 20)
	pieces, err := Split(text, 64, 16)
	if err != nil {
		t.Fatal(err)
	}
	runes := []rune(text)
	var rebuilt []rune
	for i, p := range pieces {
		if string(runes[p.Start:p.End]) != p.Text {
			t.Fatalf("piece %d text does not match its offsets", i)
		}
		from := p.Start
		if i > 0 {
			prev := pieces[i-1]
			if p.Start >= prev.End {
				t.Fatalf("piece %d does not overlap its predecessor", i)
			}
			from = prev.End
		}
		rebuilt = append(rebuilt, runes[from:p.End]...)
	}
	if string(rebuilt) != text {
		t.Fatal("removing overlap did not reconstruct the source text")
	}
}

func TestSplitDeterministic(t *testing.T) {
	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 40)
	a, err := Split(text, 120, 30)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Split(text, 120, 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != len(b) {
		t.Fatalf("non-deterministic piece count: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("piece %d differs between runs", i)
		}
	}
}
