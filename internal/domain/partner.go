package domain

import "time"

// Partner is a company offering a perk to members of a minimum tier.
type Partner struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Website     string    `json:"website,omitempty"`
	Perk        string    `json:"perk,omitempty"`
	MinTier     Tier      `json:"min_tier"`
	LogoURL     string    `json:"logo_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// PartnerView hides the perk from members below the partner's tier.
type PartnerView struct {
	Partner
	Locked bool `json:"locked"`
}

type PartnerInput struct {
	Name        string
	Category    string
	Description string
	Website     string
	Perk        string
	MinTier     Tier
	LogoURL     string
}
