// Package fuzzy implements the suitability inference engine: membership
// functions for service and price, a fixed Mamdani rule table and weighted
// centroid defuzzification.
package fuzzy

import "math"

// ServiceLevel is a linguistic category over the service score domain
type ServiceLevel string

const (
	ServiceLow    ServiceLevel = "low"
	ServiceMedium ServiceLevel = "medium"
	ServiceHigh   ServiceLevel = "high"
)

// PriceLevel is a linguistic category over the price domain
type PriceLevel string

const (
	PriceCheap     PriceLevel = "cheap"
	PriceMedium    PriceLevel = "medium"
	PriceExpensive PriceLevel = "expensive"
)

// ServiceLevels returns the service categories in rule table order
func ServiceLevels() []ServiceLevel {
	return []ServiceLevel{ServiceLow, ServiceMedium, ServiceHigh}
}

// PriceLevels returns the price categories in rule table order
func PriceLevels() []PriceLevel {
	return []PriceLevel{PriceCheap, PriceMedium, PriceExpensive}
}

// Degrees maps each category of one input dimension to its membership degree.
type Degrees[C ~string] map[C]float64

// Active returns the number of categories with a non-zero degree
func (d Degrees[C]) Active() int {
	n := 0
	for _, v := range d {
		if v > 0 {
			n++
		}
	}
	return n
}

// Trapezoid is a piecewise-linear membership function. The degree is 1 on
// [B, C], rises linearly on (A, B), falls linearly on (C, D) and is 0 at or
// beyond A and D. A left shoulder uses A = B = -Inf, a right shoulder
// C = D = +Inf.
type Trapezoid struct {
	A float64
	B float64
	C float64
	D float64
}

// LeftShoulder is full membership up to full, falling to zero at zero.
func LeftShoulder(full, zero float64) Trapezoid {
	return Trapezoid{A: math.Inf(-1), B: math.Inf(-1), C: full, D: zero}
}

// RightShoulder is zero membership up to zero, rising to full at full.
func RightShoulder(zero, full float64) Trapezoid {
	return Trapezoid{A: zero, B: full, C: math.Inf(1), D: math.Inf(1)}
}

// Degree returns the membership of x, always within [0, 1].
func (t Trapezoid) Degree(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return 0
	case x >= t.B && x <= t.C:
		return 1
	case x <= t.A || x >= t.D:
		return 0
	case x < t.B:
		return clamp((x - t.A) / (t.B - t.A))
	default:
		return clamp((t.D - x) / (t.D - t.C))
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ServiceShapes holds the membership function of each service category
type ServiceShapes struct {
	Low    Trapezoid
	Medium Trapezoid
	High   Trapezoid
}

// Fuzzify maps a raw service score to its membership vector. Scores outside
// every shape are not an error; all degrees are simply zero.
func (s ServiceShapes) Fuzzify(x float64) Degrees[ServiceLevel] {
	return Degrees[ServiceLevel]{
		ServiceLow:    s.Low.Degree(x),
		ServiceMedium: s.Medium.Degree(x),
		ServiceHigh:   s.High.Degree(x),
	}
}

// PriceShapes holds the membership function of each price category
type PriceShapes struct {
	Cheap     Trapezoid
	Medium    Trapezoid
	Expensive Trapezoid
}

// Fuzzify maps a raw price to its membership vector.
func (p PriceShapes) Fuzzify(x float64) Degrees[PriceLevel] {
	return Degrees[PriceLevel]{
		PriceCheap:     p.Cheap.Degree(x),
		PriceMedium:    p.Medium.Degree(x),
		PriceExpensive: p.Expensive.Degree(x),
	}
}
