package lpstaking

import "math/big"

// Fixed-point helpers over wad-scaled big integers. All operations floor,
// matching the settlement convention that rounding never favours the user.

func wadMul(a, b *big.Int) *big.Int {
	product := new(big.Int).Mul(a, b)
	return product.Quo(product, wad)
}

func wadDiv(a, b *big.Int) *big.Int {
	scaled := new(big.Int).Mul(a, wad)
	return scaled.Quo(scaled, b)
}

// scaleToWad rescales an amount from the token's native decimals to 18.
func scaleToWad(amount *big.Int, decimals uint8) *big.Int {
	if amount == nil {
		return big.NewInt(0)
	}
	if decimals == 18 {
		return new(big.Int).Set(amount)
	}
	if decimals < 18 {
		factor := pow10(18 - uint(decimals))
		return new(big.Int).Mul(amount, factor)
	}
	factor := pow10(uint(decimals) - 18)
	return new(big.Int).Quo(amount, factor)
}

func pow10(n uint) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func clampWad(v, lo, hi *big.Int) *big.Int {
	if v.Cmp(lo) < 0 {
		return new(big.Int).Set(lo)
	}
	if v.Cmp(hi) > 0 {
		return new(big.Int).Set(hi)
	}
	return new(big.Int).Set(v)
}

func minWad(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}

func ensureAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
