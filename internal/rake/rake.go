// Package rake implements the stakes-tiered rake engine of spec §4.3:
// a percentage of each pot, capped by player count, computed in an 8-decimal
// canonical unit and scaled back to the table's native currency.
package rake

import "fmt"

// BettingFamily selects which of the two fixed tier tables applies.
type BettingFamily int

const (
	// NoLimitFamily covers NoLimit and PotLimit games.
	NoLimitFamily BettingFamily = iota
	// FixedLimitFamily covers FixedLimit and SpreadLimit games.
	FixedLimitFamily
)

const canonicalDecimals = 8
const minCanonicalSmallBlind = 1_000_000 // 0.01 in canonical units

// Rake is the resolved, ready-to-apply rake configuration for a table.
type Rake struct {
	PercentageMillipercent uint64
	Cap2To3Players         uint64
	Cap4PlusPlayers        uint64
}

// tier is one row of a fixed rake table, expressed in canonical (8-decimal) units.
type tier struct {
	minSB, maxSB                   uint64
	percentageMillipercent          uint64
	cap23Min, cap23Max              uint64
	cap4PlusMin, cap4PlusMax        uint64
}

// noLimitTiers mirrors the original implementation's NoLimit/PotLimit table.
var noLimitTiers = []tier{
	{10_000, 999_999, 4500, 500_000, 2_000_000, 1_000_000, 5_000_000},
	{1_000_000, 24_999_999, 4500, 5_000_000, 20_000_000, 10_000_000, 50_000_000},
	{25_000_000, 99_999_999, 4000, 30_000_000, 50_000_000, 75_000_000, 100_000_000},
	{100_000_000, 299_999_999, 3500, 75_000_000, 100_000_000, 150_000_000, 200_000_000},
	{300_000_000, 499_999_999, 3000, 150_000_000, 200_000_000, 250_000_000, 300_000_000},
	{500_000_000, maxUint64, 2500, 250_000_000, 15_000_000_000, 400_000_000, 30_000_000_000},
}

// fixedLimitTiers mirrors the original implementation's FixedLimit/SpreadLimit table.
var fixedLimitTiers = []tier{
	{10_000, 2_999_999, 4500, 50_000, 15_000_000, 100_000, 30_000_000},
	{3_000_000, 24_999_999, 4500, 15_000_000, 125_000_000, 30_000_000, 250_000_000},
	{25_000_000, 99_999_999, 4000, 125_000_000, 500_000_000, 250_000_000, 1_000_000_000},
	{100_000_000, 299_999_999, 3500, 500_000_000, 1_500_000_000, 1_000_000_000, 3_000_000_000},
	{300_000_000, 499_999_999, 3000, 1_500_000_000, 2_500_000_000, 3_000_000_000, 5_000_000_000},
	{500_000_000, maxUint64, 2500, 2_500_000_000, 5_000_000_000, 5_000_000_000, 10_000_000_000},
}

const maxUint64 = ^uint64(0)

// New resolves the Rake configuration for a table given its small blind (in
// the table's native currency units), betting family, and the currency's
// decimal precision.
func New(smallBlind uint64, family BettingFamily, currencyDecimals uint8) (Rake, error) {
	canonicalSB := ScaleAmount(smallBlind, currencyDecimals, canonicalDecimals)
	if canonicalSB < minCanonicalSmallBlind {
		canonicalSB = minCanonicalSmallBlind
	}

	tiers := noLimitTiers
	if family == FixedLimitFamily {
		tiers = fixedLimitTiers
	}

	for _, t := range tiers {
		if canonicalSB >= t.minSB && canonicalSB <= t.maxSB {
			return Rake{
				PercentageMillipercent: t.percentageMillipercent,
				Cap2To3Players:         ScaleAmount(interpolate(canonicalSB, t.minSB, t.maxSB, t.cap23Min, t.cap23Max), canonicalDecimals, currencyDecimals),
				Cap4PlusPlayers:        ScaleAmount(interpolate(canonicalSB, t.minSB, t.maxSB, t.cap4PlusMin, t.cap4PlusMax), canonicalDecimals, currencyDecimals),
			}, nil
		}
	}
	return Rake{}, fmt.Errorf("rake: no tier covers small blind %d", canonicalSB)
}

// interpolate performs linear interpolation of y within [yMin, yMax] based
// on x's position within [xMin, xMax].
func interpolate(x, xMin, xMax, yMin, yMax uint64) uint64 {
	if xMax == xMin {
		return yMin
	}
	return yMin + ((x-xMin)*(yMax-yMin))/(xMax-xMin)
}

// ScaleAmount rescales an amount between two decimal precisions, saturating
// to the max uint64 on up-scale overflow.
func ScaleAmount(amount uint64, fromDecimals, toDecimals uint8) uint64 {
	switch {
	case fromDecimals > toDecimals:
		scale := pow10(fromDecimals - toDecimals)
		return amount / scale
	case fromDecimals < toDecimals:
		scale := pow10(toDecimals - fromDecimals)
		if scale != 0 && amount > maxUint64/scale {
			return maxUint64
		}
		return amount * scale
	default:
		return amount
	}
}

func pow10(n uint8) uint64 {
	v := uint64(1)
	for i := uint8(0); i < n; i++ {
		v *= 10
	}
	return v
}

// Calculate returns the rake owed on a pot award given the number of
// contributors to that pot. The cap is selected by contributor count: 2-3
// players use Cap2To3Players, 4+ use Cap4PlusPlayers.
func (r Rake) Calculate(pot uint64, numContributors int) uint64 {
	raw := (pot * r.PercentageMillipercent) / 100_000
	cap := r.Cap4PlusPlayers
	if numContributors <= 3 {
		cap = r.Cap2To3Players
	}
	if raw > cap {
		return cap
	}
	return raw
}
