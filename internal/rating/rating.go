package rating

import (
	"fmt"
	"math"
	"strings"

	"ammQuote/internal/opt"
)

// Color is a three-level risk rating.
type Color int

const (
	Green Color = iota
	Yellow
	Red
)

// Price impact thresholds, in percent.
const (
	PriceImpactPctRed    = 0.5
	PriceImpactPctYellow = 0.2
)

// Default reference deviation thresholds, in percent.
const (
	DeviationPctRed    = 2.0
	DeviationPctYellow = 1.0
)

func (c Color) String() string {
	switch c {
	case Green:
		return "GREEN"
	case Yellow:
		return "YELLOW"
	case Red:
		return "RED"
	default:
		return fmt.Sprintf("Color(%d)", int(c))
	}
}

// ParseColor parses the String form, case-insensitively.
func ParseColor(s string) (Color, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GREEN":
		return Green, nil
	case "YELLOW":
		return Yellow, nil
	case "RED":
		return Red, nil
	default:
		return 0, fmt.Errorf("invalid rating color: %q", s)
	}
}

func (c Color) MarshalText() ([]byte, error) {
	if c < Green || c > Red {
		return nil, fmt.Errorf("invalid rating color: %d", int(c))
	}
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// classify returns Red above red, Yellow above yellow, Green otherwise.
// Values equal to a threshold fall to the lower bucket.
func classify(value, red, yellow float64) Color {
	switch {
	case value > red:
		return Red
	case value > yellow:
		return Yellow
	default:
		return Green
	}
}

// PriceImpact rates a price impact percentage.
func PriceImpact(pct float64) Color {
	return classify(pct, PriceImpactPctRed, PriceImpactPctYellow)
}

// Thresholds configures the reference deviation rating, in percent.
type Thresholds struct {
	RedPct    float64
	YellowPct float64
}

// DefaultThresholds returns the 2% / 1% deviation thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{RedPct: DeviationPctRed, YellowPct: DeviationPctYellow}
}

// Validate checks that thresholds are finite, non-negative and ordered.
func (t Thresholds) Validate() error {
	if !finite(t.RedPct) || !finite(t.YellowPct) || t.RedPct < 0 || t.YellowPct < 0 {
		return fmt.Errorf("deviation thresholds must be finite and non-negative")
	}
	if t.YellowPct > t.RedPct {
		return fmt.Errorf("yellow threshold %.4f exceeds red threshold %.4f", t.YellowPct, t.RedPct)
	}
	return nil
}

// Params is the input of a reference deviation rating.
type Params struct {
	// Ratio is the fractional deviation from the reference price.
	Ratio float64
	// Price is the realized price the ratio was derived from.
	Price     float64
	RedPct    float64
	YellowPct float64
}

// Deviation rates how far a realized price strays from its reference.
// The result is absent when the ratio or price is unusable.
func Deviation(p Params) opt.Value[Color] {
	if !finite(p.Ratio) || !finite(p.Price) || p.Price <= 0 {
		return opt.None[Color]()
	}
	return opt.Some(classify(math.Abs(p.Ratio)*100, p.RedPct, p.YellowPct))
}

// DeviationRatio compares realized prices against reference prices.
// refIn is the reference price of the input coin, priceIn the realized
// output-per-input price; refOut and priceOut are the mirrored pair.
// The input side wins when both references are known.
func DeviationRatio(refIn opt.Value[float64], priceIn float64, refOut opt.Value[float64], priceOut float64) opt.Value[float64] {
	if ref, ok := refIn.Get(); ok {
		return opt.Some((ref - priceIn) / ref)
	}
	if ref, ok := refOut.Get(); ok {
		return opt.Some((priceOut - ref) / ref)
	}
	return opt.None[float64]()
}

// FeeInReference converts a fee amount using the input coin's reference price.
func FeeInReference(fee float64, refIn opt.Value[float64]) opt.Value[float64] {
	return opt.Map(refIn, func(ref float64) float64 { return fee * ref })
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
