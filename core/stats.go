package core

import "math"

const (
	// DonutCircumference is the stroke length of the r=40 performance donut.
	DonutCircumference = 2 * math.Pi * 40
	// RingLength is the stroke length of the attendance ring.
	RingLength = 251.0
)

// Percent returns round(part/total*100), or 0 when total is 0.
func Percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

// PercentF is Percent for amounts.
func PercentF(part, total float64) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(part / total * 100))
}

type GenderRatio struct {
	Male          int
	Female        int
	Total         int
	MalePercent   int
	FemalePercent int
}

// NewGenderRatio computes the rounded percents. Female percent is the complement of the male one.
func NewGenderRatio(male, female int) GenderRatio {
	gr := GenderRatio{Male: male, Female: female, Total: male + female}
	if gr.Total > 0 {
		gr.MalePercent = Percent(male, gr.Total)
		gr.FemalePercent = 100 - gr.MalePercent
	}
	return gr
}

// DonutSegment is one arc of a stroke-dasharray donut chart.
type DonutSegment struct {
	Label   string
	Count   int
	Percent int
	Dash    float64
	Gap     float64
	Offset  float64
}

// Donut lays out the at risk, average and high arcs, in that order, around the circle.
func Donut(risk, average, high int) []DonutSegment {
	total := risk + average + high
	segs := []DonutSegment{
		{Label: "At Risk", Count: risk, Percent: Percent(risk, total)},
		{Label: "Average", Count: average, Percent: Percent(average, total)},
		{Label: "High", Count: high, Percent: Percent(high, total)},
	}
	var offset float64
	for i := range segs {
		segs[i].Dash = float64(segs[i].Percent) / 100 * DonutCircumference
		segs[i].Gap = DonutCircumference - segs[i].Dash
		segs[i].Offset = -offset
		offset += segs[i].Dash
	}
	return segs
}

// RingDash is the filled stroke length of the attendance ring for pct.
func RingDash(pct int) float64 {
	return float64(pct) * 2.51
}
