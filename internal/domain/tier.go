package domain

import (
	"fmt"
	"strings"
)

// Tier is a membership level. Higher tiers unlock everything lower tiers can see.
type Tier string

const (
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
	TierDiamond  Tier = "diamond"
)

var tierRank = map[Tier]int{
	TierSilver:   1,
	TierGold:     2,
	TierPlatinum: 3,
	TierDiamond:  4,
}

// Tiers lists all tiers in ascending order.
func Tiers() []Tier {
	return []Tier{TierSilver, TierGold, TierPlatinum, TierDiamond}
}

// ParseTier accepts any case and surrounding whitespace.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := tierRank[t]; !ok {
		return "", fmt.Errorf("%w: unknown tier %q", ErrInvalidInput, s)
	}
	return t, nil
}

// Rank returns 1..4, or 0 for an unknown tier.
func (t Tier) Rank() int {
	return tierRank[t]
}

func (t Tier) Valid() bool {
	return t.Rank() > 0
}

// Allows reports whether a member on tier t may access something gated at required.
// An empty requirement is open to everyone.
func (t Tier) Allows(required Tier) bool {
	if required == "" {
		return true
	}
	return t.Rank() >= required.Rank() && t.Valid()
}

// TierInfo describes a tier on the marketing pages.
type TierInfo struct {
	Tier     Tier     `json:"tier"`
	Rank     int      `json:"rank"`
	Name     string   `json:"name"`
	Features []string `json:"features"`
}

// TierCatalog is the public description of every tier, ascending.
func TierCatalog() []TierInfo {
	return []TierInfo{
		{Tier: TierSilver, Rank: 1, Name: "Silver", Features: []string{
			"Member directory", "Open spaces", "Direct messages", "Community events",
		}},
		{Tier: TierGold, Rank: 2, Name: "Gold", Features: []string{
			"Everything in Silver", "Gold spaces", "Partner perks",
		}},
		{Tier: TierPlatinum, Rank: 3, Name: "Platinum", Features: []string{
			"Everything in Gold", "Platinum roundtables", "Priority event seating",
		}},
		{Tier: TierDiamond, Rank: 4, Name: "Diamond", Features: []string{
			"Everything in Platinum", "Diamond council", "Private partner introductions",
		}},
	}
}
