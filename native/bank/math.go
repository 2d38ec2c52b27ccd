package bank

import "math/big"

// blocksPerYear converts elapsed heights into year fractions for interest
// accrual, assuming 10-second heights against a 31,536,000-second year.
const blocksPerYear = 3_153_600

var (
	oneHundred  = big.NewInt(100)
	basisPoints = big.NewInt(10_000)
)

// simpleInterest computes the non-compounding deposit payout in settlement
// token units: amount * ratePercent * elapsed / (100 * blocksPerYear),
// truncating.
func simpleInterest(amount *big.Int, ratePercent, elapsed uint64) *big.Int {
	if amount == nil || amount.Sign() <= 0 || ratePercent == 0 || elapsed == 0 {
		return big.NewInt(0)
	}
	interest := new(big.Int).Mul(amount, new(big.Int).SetUint64(ratePercent))
	interest.Mul(interest, new(big.Int).SetUint64(elapsed))
	interest.Quo(interest, new(big.Int).Mul(oneHundred, big.NewInt(blocksPerYear)))
	return interest
}

// requiredCollateral sizes the settlement-token collateral for a loan:
// amount * ratioPercent * rate / 100, truncating.
func requiredCollateral(amount *big.Int, ratioPercent uint64, rate *big.Int) *big.Int {
	if amount == nil || amount.Sign() <= 0 || rate == nil || rate.Sign() <= 0 {
		return big.NewInt(0)
	}
	collateral := new(big.Int).Mul(amount, new(big.Int).SetUint64(ratioPercent))
	collateral.Mul(collateral, rate)
	collateral.Quo(collateral, oneHundred)
	return collateral
}

// loanFee computes the repayment service charge as basis points of the
// collateral, floored at one base unit so a configured fee is always
// strictly positive.
func loanFee(collateral *big.Int, feeBps uint64) *big.Int {
	if collateral == nil || collateral.Sign() <= 0 || feeBps == 0 {
		return big.NewInt(0)
	}
	fee := new(big.Int).Mul(collateral, new(big.Int).SetUint64(feeBps))
	fee.Quo(fee, basisPoints)
	if fee.Sign() == 0 {
		fee = big.NewInt(1)
	}
	return fee
}
