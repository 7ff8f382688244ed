package model

import (
	"reflect"
	"strings"
	"testing"
)

func TestFrameStats(t *testing.T) {
	var f Frame
	for i := range f {
		f[i] = float64(i)
	}
	if f.Min() != 0 || f.Max() != 767 || f.Mean() != 383.5 {
		t.Fatalf("min/mean/max = %v/%v/%v", f.Min(), f.Mean(), f.Max())
	}
}

func TestIndexingOffset(t *testing.T) {
	tests := []struct {
		idx  Indexing
		x, y int
		want int
	}{
		{IndexRowMajor, 0, 0, 0},
		{IndexRowMajor, 31, 0, 31},
		{IndexRowMajor, 0, 1, 32},
		{IndexRowMajor, 31, 23, 767},
		{IndexLegacy, 0, 1, 24},
		{IndexLegacy, 31, 23, 583},
	}
	for _, tt := range tests {
		if got := tt.idx.Offset(tt.x, tt.y); got != tt.want {
			t.Errorf("%s.Offset(%d, %d) = %d, want %d", tt.idx, tt.x, tt.y, got, tt.want)
		}
	}
}

func TestParseIndexing(t *testing.T) {
	for _, s := range []string{"row-major", "legacy"} {
		i, err := ParseIndexing(s)
		if err != nil || i.String() != s {
			t.Errorf("ParseIndexing(%q) = %v, %v", s, i, err)
		}
	}
	if _, err := ParseIndexing("column-major"); err == nil {
		t.Error("expected error for unknown indexing")
	}
}

func TestGrid(t *testing.T) {
	var g Grid
	g.Fill(3)
	g.Set(0, 0, 0)
	g.Set(31, 23, 1)
	if g.At(0, 0) != 0 || g.At(31, 23) != 1 || g.At(5, 5) != 3 {
		t.Fatal("At/Set mismatch")
	}
	if h := g.Histogram(); h != [Levels]int{1, 1, 0, FrameLen - 2} {
		t.Fatalf("histogram = %v", h)
	}
	lines := strings.Split(strings.TrimSuffix(g.String(), "\n"), "\n")
	if len(lines) != GridHeight {
		t.Fatalf("%d lines, want %d", len(lines), GridHeight)
	}
	if !strings.HasPrefix(lines[0], "03") || !strings.HasSuffix(lines[23], "31") || len(lines[0]) != GridWidth {
		t.Fatalf("first/last line = %q / %q", lines[0], lines[23])
	}
}

func TestSummary(t *testing.T) {
	var f Frame
	for i := range f {
		f[i] = 20
	}
	f[0] = 10
	f[1] = 40
	s := Summarize(&f)
	if s.MinC != 10 || s.MaxC != 40 {
		t.Fatalf("summary = %+v", s)
	}
	if ToFahrenheit(100) != 212 || ToFahrenheit(-40) != -40 {
		t.Fatal("ToFahrenheit")
	}
	s = TextSummary{MinC: 0, MeanC: 25, MaxC: 37}
	if want := []string{"0.0 C", "25.0 C", "37.0 C"}; !reflect.DeepEqual(s.CelsiusLines(), want) {
		t.Errorf("CelsiusLines() = %q", s.CelsiusLines())
	}
	if want := []string{"32.0 F", "77.0 F", "98.6 F"}; !reflect.DeepEqual(s.FahrenheitLines(), want) {
		t.Errorf("FahrenheitLines() = %q", s.FahrenheitLines())
	}
	if got := s.Banner(); got != "min 0.0C  avg 25.0C  max 37.0C" {
		t.Errorf("Banner() = %q", got)
	}
}

func TestBandSetString(t *testing.T) {
	if got := (BandSet{1, 2.5, 3.126}).String(); got != "[1.00 2.50 3.13]" {
		t.Errorf("String() = %q", got)
	}
}
