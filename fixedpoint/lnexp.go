// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fixedpoint

import "math/big"

// Rational-polynomial natural log and exponential over 1e18-scaled signed
// integers. The algorithm converts the argument into a 2^96 fixed basis for
// intermediate precision, range-reduces by powers of two, and evaluates a
// fixed rational approximation. The coefficient tables and the domain bounds
// are part of the protocol specification and must be reproduced exactly;
// changing them breaks parity with the on-chain implementation.
//
// Evaluation uses math/big because the 2^192-basis intermediates need signed
// arithmetic wider than 256 bits. Right shifts on big.Int round toward
// negative infinity and Quo truncates toward zero, matching the SAR and SDIV
// semantics the coefficient tables were derived against.

func bigFromDec(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("fixedpoint: bad constant " + s)
	}
	return v
}

var (
	// exp(x) underflows to zero below this input and overflows 256 bits at or
	// above expMaxInput.
	expMinInput = bigFromDec("-42139678854452767551")
	expMaxInput = bigFromDec("135305999368893231589")

	// 5^18; multiplying by 2^78/5^18 converts 1e18 basis to 2^96 basis.
	fiveTo18 = bigFromDec("3814697265625")

	// ln(2) in the 2^96 basis, and 2^95 for round-to-nearest.
	ln2Basis96 = bigFromDec("54916777467707473351141471128")
	two95      = new(big.Int).Lsh(big.NewInt(1), 95)

	expP0 = bigFromDec("1346386616545796478920950773328")
	expP1 = bigFromDec("57155421227552351082224309758442")
	expP2 = bigFromDec("94201549194550492254356042504812")
	expP3 = bigFromDec("28719021644029726153956944680412240")
	expP4 = new(big.Int).Lsh(bigFromDec("4385272521454847904659076985693276"), 96)

	expQ0 = bigFromDec("2855989394907223263936484059900")
	expQ1 = bigFromDec("50020603652535783019961831881945")
	expQ2 = bigFromDec("533845033583426703283633433725380")
	expQ3 = bigFromDec("3604857256930695427073651918091429")
	expQ4 = bigFromDec("14423608567350463180887372962807573")
	expQ5 = bigFromDec("26449188498355588339934803723976023")

	// Scale factor folding s ~= 6.031367120, the 2^k range-reduction factor,
	// and the conversion back to the 1e18 basis into one multiply.
	expScale = bigFromDec("3822833074963236453042738258902158003155416615667")

	lnP0 = bigFromDec("3273285459638523848632254066296")
	lnP1 = bigFromDec("24828157081833163892658089445524")
	lnP2 = bigFromDec("43456485725739037958740375743393")
	lnP3 = bigFromDec("11111509109440967052023855526967")
	lnP4 = bigFromDec("45023709667254063763336534515857")
	lnP5 = bigFromDec("14706773417378608786704636184526")
	lnP6 = new(big.Int).Lsh(bigFromDec("795164235651350426258249787498"), 96)

	lnQ0 = bigFromDec("5573035233440673466300451813936")
	lnQ1 = bigFromDec("71694874799317883764090561454958")
	lnQ2 = bigFromDec("283447036172924575727196451306956")
	lnQ3 = bigFromDec("401686690394027663651624208769553")
	lnQ4 = bigFromDec("204048457590392012362485061816622")
	lnQ5 = bigFromDec("31853899698501571402653359427138")
	lnQ6 = bigFromDec("909429971244387300277376558375")

	// Finalization constants: the scale factor s ~= 5.549, k*ln(2), and
	// ln(2^96/1e18), all premultiplied into the 5^18 * 2^192 basis.
	lnScale = bigFromDec("1677202110996718588342820967067443963516166")
	lnK     = bigFromDec("16597577552685614221487285958193947469193820559219878177908093499208371")
	lnC     = bigFromDec("600920179829731861736702779321621459595472258049074101567377883020018308")
)

// wadExp computes e^(x/1e18) * 1e18 for a signed 1e18-scaled x. Inputs at or
// below expMinInput return zero; inputs at or above expMaxInput are fatal.
func wadExp(x *big.Int) *big.Int {
	if x.Cmp(expMinInput) <= 0 {
		return new(big.Int)
	}
	if x.Cmp(expMaxInput) >= 0 {
		fatal(ErrExpOverflow, "exp input %s", x)
	}

	// Convert to the 2^96 basis: x * 2^78 / 5^18 == x * 2^96 / 1e18.
	z := new(big.Int).Lsh(x, 78)
	z.Quo(z, fiveTo18)

	// Factor out powers of two: exp(z) = exp(z') * 2^k with
	// k = round(z / ln 2), leaving z' in (-ln(2)/2, ln(2)/2) * 2^96.
	k := new(big.Int).Lsh(z, 96)
	k.Quo(k, ln2Basis96)
	k.Add(k, two95)
	k.Rsh(k, 96)
	z.Sub(z, new(big.Int).Mul(k, ln2Basis96))

	// (6,7)-term rational approximation; p is monic and left in the 2^192
	// basis so the final division folds the scale-back in.
	y := new(big.Int).Add(z, expP0)
	y.Mul(y, z)
	y.Rsh(y, 96)
	y.Add(y, expP1)
	p := new(big.Int).Add(y, z)
	p.Sub(p, expP2)
	p.Mul(p, y)
	p.Rsh(p, 96)
	p.Add(p, expP3)
	p.Mul(p, z)
	p.Add(p, expP4)

	q := new(big.Int).Sub(z, expQ0)
	q.Mul(q, z)
	q.Rsh(q, 96)
	q.Add(q, expQ1)
	q.Mul(q, z)
	q.Rsh(q, 96)
	q.Sub(q, expQ2)
	q.Mul(q, z)
	q.Rsh(q, 96)
	q.Add(q, expQ3)
	q.Mul(q, z)
	q.Rsh(q, 96)
	q.Sub(q, expQ4)
	q.Mul(q, z)
	q.Rsh(q, 96)
	q.Add(q, expQ5)

	r := new(big.Int).Quo(p, q)

	// Apply the scale factor, the 2^k range-reduction factor, and the base
	// conversion in one multiply and shift. k is in [-61, 195] so the shift
	// amount is always non-negative.
	r.Mul(r, expScale)
	r.Rsh(r, uint(195-k.Int64()))
	return r
}

// wadLn computes ln(x/1e18) * 1e18 for a 1e18-scaled x > 0. Fatal for
// non-positive input.
func wadLn(x *big.Int) *big.Int {
	if x.Sign() <= 0 {
		fatal(ErrLnDomain, "ln input %s", x)
	}

	// Range-reduce into [2^96, 2^97): ln(2^k * z) = k*ln(2) + ln(z). The base
	// conversion from 1e18 to 2^96 is deferred to the finalization constants.
	k := int64(x.BitLen()) - 1 - 96
	z := new(big.Int).Lsh(x, uint(159-k))
	z.Rsh(z, 159)

	// (8,8)-term rational approximation; p is monic and left in the 2^192
	// basis.
	p := new(big.Int).Add(z, lnP0)
	p.Mul(p, z)
	p.Rsh(p, 96)
	p.Add(p, lnP1)
	p.Mul(p, z)
	p.Rsh(p, 96)
	p.Add(p, lnP2)
	p.Mul(p, z)
	p.Rsh(p, 96)
	p.Sub(p, lnP3)
	p.Mul(p, z)
	p.Rsh(p, 96)
	p.Sub(p, lnP4)
	p.Mul(p, z)
	p.Rsh(p, 96)
	p.Sub(p, lnP5)
	p.Mul(p, z)
	p.Sub(p, lnP6)

	q := new(big.Int).Add(z, lnQ0)
	q.Mul(q, z)
	q.Rsh(q, 96)
	q.Add(q, lnQ1)
	q.Mul(q, z)
	q.Rsh(q, 96)
	q.Add(q, lnQ2)
	q.Mul(q, z)
	q.Rsh(q, 96)
	q.Add(q, lnQ3)
	q.Mul(q, z)
	q.Rsh(q, 96)
	q.Add(q, lnQ4)
	q.Mul(q, z)
	q.Rsh(q, 96)
	q.Add(q, lnQ5)
	q.Mul(q, z)
	q.Rsh(q, 96)
	q.Add(q, lnQ6)

	r := new(big.Int).Quo(p, q)

	// Finalization: apply the scale factor, add k*ln(2) and ln(2^96/1e18),
	// then convert back out of the 5^18 * 2^192 basis.
	r.Mul(r, lnScale)
	r.Add(r, new(big.Int).Mul(lnK, big.NewInt(k)))
	r.Add(r, lnC)
	r.Rsh(r, 174)
	return r
}
