package bands

import (
	"testing"

	"thermepd/internal/model"
)

func ramp() *model.Frame {
	var f model.Frame
	for i := range f {
		f[i] = float64(i)
	}
	return &f
}

func uniform(v float64) *model.Frame {
	var f model.Frame
	for i := range f {
		f[i] = v
	}
	return &f
}

func TestLinearRamp(t *testing.T) {
	got := Linear{}.Bands(ramp())
	want := model.BandSet{191.75, 383.5, 575.25}
	if got != want {
		t.Fatalf("Bands() = %v, want %v", got, want)
	}
}

func TestQuantileRamp(t *testing.T) {
	got := Quantile{}.Bands(ramp())
	want := model.BandSet{191.25, 383.5, 575.75}
	if got != want {
		t.Fatalf("Bands() = %v, want %v", got, want)
	}
}

func TestUniformFrame(t *testing.T) {
	for _, c := range []Calculator{Linear{}, Quantile{}} {
		t.Run(c.Name(), func(t *testing.T) {
			got := c.Bands(uniform(20))
			want := model.BandSet{20, 20, 20}
			if got != want {
				t.Fatalf("Bands() = %v, want %v", got, want)
			}
		})
	}
}

func TestQuantileDoesNotReorderFrame(t *testing.T) {
	var f model.Frame
	for i := range f {
		f[i] = float64(len(f) - i)
	}
	orig := f
	Quantile{}.Bands(&f)
	if f != orig {
		t.Fatal("frame was modified")
	}
}

func TestQuantileSkewed(t *testing.T) {
	// Three quarters of the frame is cold: the first two cut points stay
	// in the cold cluster instead of spreading over the range.
	var f model.Frame
	for i := range f {
		if i < 576 {
			f[i] = 10
		} else {
			f[i] = 100
		}
	}
	got := Quantile{}.Bands(&f)
	if got[0] != 10 || got[1] != 10 {
		t.Fatalf("Bands() = %v, want first two at 10", got)
	}
	// Position 576.75 interpolates between the last 10 and the first 100.
	if want := (10*1 + 100*3) / 4.0; got[2] != want {
		t.Fatalf("Bands()[2] = %v, want %v", got[2], want)
	}
}

func TestQuartilesSmall(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want model.BandSet
	}{
		{"empty", nil, model.BandSet{}},
		{"single", []float64{5}, model.BandSet{5, 5, 5}},
		{"pair", []float64{1, 3}, model.BandSet{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Quartiles(tt.in); got != tt.want {
				t.Errorf("Quartiles(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	for _, name := range []string{"quantile", "linear"} {
		c, err := Parse(name)
		if err != nil {
			t.Fatal(err)
		}
		if c.Name() != name {
			t.Errorf("Parse(%q).Name() = %q", name, c.Name())
		}
	}
	if _, err := Parse("otsu"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}
