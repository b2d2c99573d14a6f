package geometry

import (
	"fmt"
	"math/big"
)

// RatioDigits is the number of fractional digits carried by a FixedRatio.
const RatioDigits = 6

const ratioScale = 1000000

var bigRatioScale = big.NewInt(ratioScale)

// FixedRatio is a decimal value with RatioDigits fractional digits, stored
// as an integer count of millionths. The zero value is 0.000000.
type FixedRatio struct {
	units int64
}

// Divide returns n/d rounded to RatioDigits digits. When the discarded
// part is exactly one half the result is rounded toward zero, otherwise
// to the nearest value.
func Divide(n, d int) (FixedRatio, error) {
	if d == 0 {
		return FixedRatio{}, fmt.Errorf("%w: division by zero", ErrInvalidBound)
	}
	num := new(big.Int).Mul(big.NewInt(int64(n)), bigRatioScale)
	q := quoHalfDown(num, big.NewInt(int64(d)))
	if !q.IsInt64() {
		return FixedRatio{}, fmt.Errorf("%w: %d/%d out of range", ErrInvalidBound, n, d)
	}
	return FixedRatio{units: q.Int64()}, nil
}

// Int truncates r toward zero.
func (r FixedRatio) Int() int {
	return int(r.units / ratioScale)
}

// mulQuo returns n*lo/hi. The product is exact and the quotient is
// rounded half-down to RatioDigits digits. lo must not exceed hi and hi
// must be positive, so the result is never larger than n.
func mulQuo(n int, lo, hi FixedRatio) FixedRatio {
	num := new(big.Int).Mul(big.NewInt(int64(n)), big.NewInt(lo.units))
	num.Mul(num, bigRatioScale)
	return FixedRatio{units: quoHalfDown(num, big.NewInt(hi.units)).Int64()}
}

// DivideInt returns n/r rounded half-down to a whole number.
// r must not be zero.
func (r FixedRatio) DivideInt(n int) int {
	num := new(big.Int).Mul(big.NewInt(int64(n)), bigRatioScale)
	return int(quoHalfDown(num, big.NewInt(r.units)).Int64())
}

func (r FixedRatio) Cmp(q FixedRatio) int {
	switch {
	case r.units < q.units:
		return -1
	case r.units > q.units:
		return 1
	}
	return 0
}

func (r FixedRatio) Equal(q FixedRatio) bool {
	return r.units == q.units
}

func (r FixedRatio) IsZero() bool {
	return r.units == 0
}

func MinRatio(a, b FixedRatio) FixedRatio {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

func MaxRatio(a, b FixedRatio) FixedRatio {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

func (r FixedRatio) String() string {
	u := r.units
	sign := ""
	if u < 0 {
		sign = "-"
		u = -u
	}
	return fmt.Sprintf("%s%d.%06d", sign, u/ratioScale, u%ratioScale)
}

// quoHalfDown divides num by den rounding to the nearest integer, ties
// toward zero.
func quoHalfDown(num, den *big.Int) *big.Int {
	q, m := new(big.Int).QuoRem(num, den, new(big.Int))
	if m.Sign() == 0 {
		return q
	}

	twice := new(big.Int).Abs(m)
	twice.Lsh(twice, 1)
	if twice.CmpAbs(den) <= 0 {
		return q
	}
	if num.Sign() == den.Sign() {
		return q.Add(q, big.NewInt(1))
	}
	return q.Sub(q, big.NewInt(1))
}
