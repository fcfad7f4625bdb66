// Package calibration maps raw model probabilities onto a conservative,
// market-aware range.
package calibration

import (
	"fmt"
	"math"
)

// Band maps raw probabilities in [Lower, Upper] linearly onto [OutLow, OutHigh]
type Band struct {
	Lower   float64 `json:"lower" mapstructure:"lower"`
	Upper   float64 `json:"upper" mapstructure:"upper"`
	OutLow  float64 `json:"out_low" mapstructure:"out_low"`
	OutHigh float64 `json:"out_high" mapstructure:"out_high"`
}

func (b Band) contains(p float64) bool {
	return p >= b.Lower && p <= b.Upper
}

func (b Band) apply(p float64) float64 {
	return b.OutLow + (p-b.Lower)/(b.Upper-b.Lower)*(b.OutHigh-b.OutLow)
}

// Config holds the calibration policy. The breakpoints are tunable policy.
type Config struct {
	// Bands are checked in order and the first match wins; probabilities
	// matching none pass through unchanged.
	Bands []Band `json:"bands"`
	// ImpliedFloor and ImpliedCeiling clamp the market probability before blending.
	ImpliedFloor   float64 `json:"implied_floor"`
	ImpliedCeiling float64 `json:"implied_ceiling"`
	// Disagreement above StrongThreshold blends with weight min(MaxBlend, d*BlendScale).
	StrongThreshold float64 `json:"strong_threshold"`
	MaxBlend        float64 `json:"max_blend"`
	BlendScale      float64 `json:"blend_scale"`
	// Disagreement in (MildThreshold, StrongThreshold] blends with MildBlend.
	MildThreshold float64 `json:"mild_threshold"`
	MildBlend     float64 `json:"mild_blend"`
	// Floor and Ceiling bound the calibrated probability.
	Floor   float64 `json:"floor"`
	Ceiling float64 `json:"ceiling"`
}

// DefaultConfig returns the default calibration policy
func DefaultConfig() Config {
	return Config{
		Bands: []Band{
			{Lower: 0.90, Upper: 1.00, OutLow: 0.65, OutHigh: 0.75},
			{Lower: 0.75, Upper: 0.90, OutLow: 0.60, OutHigh: 0.65},
			{Lower: 0.10, Upper: 0.75, OutLow: 0.20, OutHigh: 0.60},
		},
		ImpliedFloor:    0.05,
		ImpliedCeiling:  0.95,
		StrongThreshold: 0.25,
		MaxBlend:        0.40,
		BlendScale:      1.5,
		MildThreshold:   0.15,
		MildBlend:       0.15,
		Floor:           0.10,
		Ceiling:         0.75,
	}
}

// Validate checks the calibration policy
func (c Config) Validate() error {
	for i, b := range c.Bands {
		if b.Upper <= b.Lower {
			return fmt.Errorf("band %d: upper must exceed lower", i)
		}
		if b.OutHigh < b.OutLow {
			return fmt.Errorf("band %d: out_high must not be below out_low", i)
		}
	}
	if c.Floor < 0 || c.Ceiling > 1 || c.Floor >= c.Ceiling {
		return fmt.Errorf("floor/ceiling must satisfy 0 <= floor < ceiling <= 1")
	}
	if c.ImpliedFloor < 0 || c.ImpliedCeiling > 1 || c.ImpliedFloor >= c.ImpliedCeiling {
		return fmt.Errorf("implied floor/ceiling must satisfy 0 <= floor < ceiling <= 1")
	}
	if c.MildThreshold > c.StrongThreshold {
		return fmt.Errorf("mild_threshold must not exceed strong_threshold")
	}
	if c.MaxBlend < 0 || c.MaxBlend > 1 || c.MildBlend < 0 || c.MildBlend > 1 {
		return fmt.Errorf("blend weights must be in [0, 1]")
	}
	return nil
}

// Calibrator applies compress, blend and clamp in order
type Calibrator struct {
	cfg Config
}

// New creates a calibrator
func New(cfg Config) *Calibrator {
	return &Calibrator{cfg: cfg}
}

// Config returns the calibration policy
func (c *Calibrator) Config() Config {
	return c.cfg
}

// Calibrate returns the calibrated probability, always within [Floor, Ceiling]
func (c *Calibrator) Calibrate(raw, implied float64) float64 {
	compressed := c.Compress(raw)
	return c.Clamp(Blend(compressed, c.clampImplied(implied), c.BlendWeight(compressed, implied)))
}

// CalibrateInterval maps a raw interval through compression and the point
// estimate's blend weight, then orders and clamps it around the calibrated point.
func (c *Calibrator) CalibrateInterval(raw float64, ci [2]float64, implied float64) (float64, [2]float64) {
	compressed := c.Compress(raw)
	m := c.clampImplied(implied)
	w := c.BlendWeight(compressed, implied)
	p := c.Clamp(Blend(compressed, m, w))

	lo := Blend(c.Compress(ci[0]), m, w)
	hi := Blend(c.Compress(ci[1]), m, w)
	if lo > hi {
		lo, hi = hi, lo
	}
	lo = math.Max(0, math.Min(lo, p))
	hi = math.Min(1, math.Max(hi, p))
	return p, [2]float64{lo, hi}
}

// Compress maps raw through the configured bands. NaN is treated as 0.5.
func (c *Calibrator) Compress(raw float64) float64 {
	if math.IsNaN(raw) {
		raw = 0.5
	}
	p := math.Max(0, math.Min(1, raw))
	for _, b := range c.cfg.Bands {
		if b.contains(p) {
			return b.apply(p)
		}
	}
	return p
}

// BlendWeight returns the market weight for a compressed probability
func (c *Calibrator) BlendWeight(compressed, implied float64) float64 {
	if math.IsNaN(implied) {
		return 0
	}
	d := math.Abs(compressed - c.clampImplied(implied))
	switch {
	case d > c.cfg.StrongThreshold:
		return math.Min(c.cfg.MaxBlend, d*c.cfg.BlendScale)
	case d > c.cfg.MildThreshold:
		return c.cfg.MildBlend
	default:
		return 0
	}
}

// Blend returns (1-w)*p + w*m
func Blend(p, m, w float64) float64 {
	if w == 0 {
		return p
	}
	return (1-w)*p + w*m
}

// Clamp bounds p to [Floor, Ceiling]
func (c *Calibrator) Clamp(p float64) float64 {
	return math.Max(c.cfg.Floor, math.Min(c.cfg.Ceiling, p))
}

func (c *Calibrator) clampImplied(m float64) float64 {
	if math.IsNaN(m) {
		return m
	}
	return math.Max(c.cfg.ImpliedFloor, math.Min(c.cfg.ImpliedCeiling, m))
}
