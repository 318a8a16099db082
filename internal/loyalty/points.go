package loyalty

import "math"

// Tier is the loyalty level derived from a card's points balance.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// Tier thresholds in points.
const (
	silverThreshold   = 2000
	goldThreshold     = 5000
	platinumThreshold = 10000
)

// TierForBalance maps a points balance to its tier. Tiers follow the
// balance strictly in both directions; a refund can demote a card.
func TierForBalance(points int64) Tier {
	switch {
	case points >= platinumThreshold:
		return TierPlatinum
	case points >= goldThreshold:
		return TierGold
	case points >= silverThreshold:
		return TierSilver
	default:
		return TierBronze
	}
}

// Multiplier returns the accrual multiplier for the tier. Base rate is
// one point per unit of currency.
func (t Tier) Multiplier() float64 {
	switch t {
	case TierPlatinum:
		return 2.0
	case TierGold:
		return 1.5
	case TierSilver:
		return 1.2
	default:
		return 1.0
	}
}

// PointsForAmount converts a settled final amount into points.
func PointsForAmount(finalAmount, multiplier float64) int64 {
	if finalAmount <= 0 {
		return 0
	}
	return int64(math.Floor(finalAmount * multiplier))
}
