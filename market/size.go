package market

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Size is an exact signed quantity. Positive sizes buy, negative sizes sell.
type Size struct {
	d decimal.Decimal
}

var ZeroSize = Size{}

func NewSize(v int64) Size { return Size{d: decimal.NewFromInt(v)} }

// SizeFromFloat converts a float using its shortest decimal representation.
func SizeFromFloat(v float64) Size { return Size{d: decimal.NewFromFloat(v)} }

func SizeFromString(s string) (Size, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Size{}, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return Size{d: d}, nil
}

func (s Size) Decimal() decimal.Decimal { return s.d }

func (s Size) IsZero() bool { return s.d.IsZero() }
func (s Size) IsPositive() bool { return s.d.IsPositive() }
func (s Size) IsNegative() bool { return s.d.IsNegative() }

// Sign returns -1, 0 or +1.
func (s Size) Sign() int { return s.d.Sign() }

func (s Size) Abs() Size { return Size{d: s.d.Abs()} }
func (s Size) Neg() Size { return Size{d: s.d.Neg()} }
func (s Size) Add(o Size) Size { return Size{d: s.d.Add(o.d)} }
func (s Size) Sub(o Size) Size { return Size{d: s.d.Sub(o.d)} }
func (s Size) Cmp(o Size) int { return s.d.Cmp(o.d) }
func (s Size) Equal(o Size) bool { return s.d.Equal(o.d) }
func (s Size) Float64() float64 {
	f, _ := s.d.Float64()
	return f
}
func (s Size) String() string { return s.d.String() }
func (s Size) Mul(f float64) Size { return Size{d: s.d.Mul(decimal.NewFromFloat(f))} }

// MinAbs returns whichever of s and o has the smaller magnitude, carrying
// the sign of s.
func (s Size) MinAbs(o Size) Size {
	if o.d.Abs().LessThan(s.d.Abs()) {
		return Size{d: o.d.Abs().Mul(decimal.NewFromInt(int64(s.Sign())))}
	}
	return s
}

// SameDirection reports whether both sizes are non-zero and share a sign.
func (s Size) SameDirection(o Size) bool {
	return s.Sign() != 0 && s.Sign() == o.Sign()
}

func (s Size) MarshalText() ([]byte, error) { return []byte(s.d.String()), nil }

func (s *Size) UnmarshalText(b []byte) error {
	v, err := SizeFromString(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
