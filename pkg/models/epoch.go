package models

import "time"

// Epoch is a fixed window during which the listed campaigns earn rewards.
type Epoch struct {
	Number    int        `json:"number" yaml:"number"`
	StartDate time.Time  `json:"startDate" yaml:"startDate"`
	EndDate   time.Time  `json:"endDate" yaml:"endDate"`
	Campaigns []Campaign `json:"campaigns" yaml:"campaigns"`
}

// Campaign pairs a pool with its reward rates for one epoch.
type Campaign struct {
	Pool    Pool     `json:"pool" yaml:"pool"`
	Rewards []Reward `json:"rewards" yaml:"rewards"`
}

type Pool struct {
	ID      string `json:"id" yaml:"id"`
	LPToken string `json:"lpToken" yaml:"lpToken"`
}

type Reward struct {
	AssetID     string  `json:"assetId" yaml:"assetId"`
	DailyAmount float64 `json:"dailyAmount" yaml:"dailyAmount"`
	// Amount is the total for the epoch; informational only.
	Amount float64 `json:"amount,omitempty" yaml:"amount,omitempty"`
}

// RewardsAsset reports whether any campaign in the epoch rewards assetID.
func (e Epoch) RewardsAsset(assetID string) bool {
	for _, c := range e.Campaigns {
		for _, r := range c.Rewards {
			if r.AssetID == assetID {
				return true
			}
		}
	}
	return false
}
