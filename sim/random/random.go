// Package random provides the random variables used by mobility models and
// traffic generators. Every variable draws from a caller-supplied stream so
// that runs stay reproducible under sim.PartitionedRNG.
package random

import (
	"math"
	"math/rand/v2"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/distuv"
)

// Variable produces a stream of samples.
type Variable interface {
	Value() float64
}

// Constant always returns V.
type Constant struct {
	V float64
}

func (c Constant) Value() float64 { return c.V }

// Uniform samples from [Min, Max).
type Uniform struct {
	dist distuv.Uniform
}

// NewUniform returns a uniform variable on [min, max).
func NewUniform(min, max float64, rng *rand.Rand) *Uniform {
	return &Uniform{dist: distuv.Uniform{Min: min, Max: max, Src: rng}}
}

func (u *Uniform) Value() float64 {
	if u.dist.Min == u.dist.Max {
		return u.dist.Min
	}
	return u.dist.Rand()
}

// Exponential samples with the given mean. A positive bound rejects samples
// above it and draws again.
type Exponential struct {
	dist  distuv.Exponential
	bound float64
}

// NewExponential returns an exponential variable. mean must be > 0.
func NewExponential(mean, bound float64, rng *rand.Rand) *Exponential {
	return &Exponential{dist: distuv.Exponential{Rate: 1 / mean, Src: rng}, bound: bound}
}

func (e *Exponential) Value() float64 {
	for {
		v := e.dist.Rand()
		if e.bound <= 0 || v <= e.bound {
			return v
		}
	}
}

// Mean returns the configured mean.
func (e *Exponential) Mean() float64 {
	return 1 / e.dist.Rate
}

// Normal samples a Gaussian, clamped at zero from below since every
// consumer treats the value as a duration, speed or size.
type Normal struct {
	dist distuv.Normal
}

// NewNormal returns a normal variable with the given mean and standard deviation.
func NewNormal(mean, stdDev float64, rng *rand.Rand) *Normal {
	return &Normal{dist: distuv.Normal{Mu: mean, Sigma: stdDev, Src: rng}}
}

func (n *Normal) Value() float64 {
	return math.Max(0, n.dist.Rand())
}

// Gamma samples a Gamma distribution parameterized by mean and coefficient of
// variation. CV > 1 produces bursty off-times.
type Gamma struct {
	dist distuv.Gamma
}

// NewGamma returns a Gamma variable with shape 1/CV² and rate shape/mean.
func NewGamma(mean, cv float64, rng *rand.Rand) *Gamma {
	shape := 1.0 / (cv * cv)
	return &Gamma{dist: distuv.Gamma{Alpha: shape, Beta: shape / mean, Src: rng}}
}

func (g *Gamma) Value() float64 { return g.dist.Rand() }

// Weibull samples a Weibull distribution matched to a mean and CV.
type Weibull struct {
	dist distuv.Weibull
}

// NewWeibull derives the Weibull shape k from cv and the scale from mean:
// scale = mean / Γ(1 + 1/k).
func NewWeibull(mean, cv float64, rng *rand.Rand) *Weibull {
	k := weibullShapeFromCV(cv)
	scale := mean / math.Gamma(1.0+1.0/k)
	return &Weibull{dist: distuv.Weibull{K: k, Lambda: scale, Src: rng}}
}

func (w *Weibull) Value() float64 { return w.dist.Rand() }

// weibullShapeFromCV finds Weibull shape parameter k such that
// CV² = Γ(1+2/k)/Γ(1+1/k)² - 1, using bisection.
// Range: k ∈ [0.1, 100], tolerance: |CV_computed - CV_target| < 0.001.
func weibullShapeFromCV(targetCV float64) float64 {
	lo, hi := 0.1, 100.0
	for i := 0; i < 100; i++ {
		mid := (lo + hi) / 2.0
		cv := weibullCV(mid)
		if math.Abs(cv-targetCV) < 0.001 {
			return mid
		}
		// CV is monotonically decreasing in k
		if cv > targetCV {
			lo = mid
		} else {
			hi = mid
		}
	}
	logrus.Warnf("weibullShapeFromCV: bisection did not converge for CV=%.3f after 100 iterations; using k=%.3f", targetCV, (lo+hi)/2.0)
	return (lo + hi) / 2.0
}

// weibullCV computes the coefficient of variation for Weibull(k).
func weibullCV(k float64) float64 {
	g1 := math.Gamma(1.0 + 1.0/k)
	g2 := math.Gamma(1.0 + 2.0/k)
	return math.Sqrt(g2/(g1*g1) - 1.0)
}
