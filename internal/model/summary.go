package model

import "fmt"

// TextSummary is the min/mean/max readout derived from one Frame.
type TextSummary struct {
	MinC  float64
	MeanC float64
	MaxC  float64
}

// Summarize computes the readout for f.
func Summarize(f *Frame) TextSummary {
	return TextSummary{
		MinC:  f.Min(),
		MeanC: f.Mean(),
		MaxC:  f.Max(),
	}
}

// ToFahrenheit converts °C to °F.
func ToFahrenheit(c float64) float64 {
	return 9.0/5.0*c + 32
}

// CelsiusLines returns min, mean and max, one per line, in °C.
func (s TextSummary) CelsiusLines() []string {
	return []string{
		fmt.Sprintf("%0.1f C", s.MinC),
		fmt.Sprintf("%0.1f C", s.MeanC),
		fmt.Sprintf("%0.1f C", s.MaxC),
	}
}

// FahrenheitLines is CelsiusLines converted to °F.
func (s TextSummary) FahrenheitLines() []string {
	return []string{
		fmt.Sprintf("%0.1f F", ToFahrenheit(s.MinC)),
		fmt.Sprintf("%0.1f F", ToFahrenheit(s.MeanC)),
		fmt.Sprintf("%0.1f F", ToFahrenheit(s.MaxC)),
	}
}

// Banner is the single-line form used above a full-width grid.
func (s TextSummary) Banner() string {
	return fmt.Sprintf("min %0.1fC  avg %0.1fC  max %0.1fC", s.MinC, s.MeanC, s.MaxC)
}
