package points

import (
	"slices"
	"strings"

	"github.com/mira-amm/pointsx/pkg/models"
	"github.com/shopspring/decimal"
)

type total struct {
	address string
	sum     decimal.Decimal
}

// ComputeTotal merges entry lists into one leaderboard. Points are summed per
// address, the result is sorted by points descending with ties ordered by
// address, and ranks run 1..N. The inputs are not modified.
func ComputeTotal(perEpoch [][]models.Entry) []models.Entry {
	index := make(map[string]int)
	var totals []total
	for _, list := range perEpoch {
		for _, e := range list {
			p := decimal.NewFromFloat(e.Points)
			if i, ok := index[e.Address]; ok {
				totals[i].sum = totals[i].sum.Add(p)
				continue
			}
			index[e.Address] = len(totals)
			totals = append(totals, total{address: e.Address, sum: p})
		}
	}

	slices.SortFunc(totals, func(a, b total) int {
		if c := b.sum.Cmp(a.sum); c != 0 {
			return c
		}
		return strings.Compare(a.address, b.address)
	})

	out := make([]models.Entry, len(totals))
	for i, t := range totals {
		out[i] = models.Entry{
			Address: t.address,
			Points:  t.sum.InexactFloat64(),
			Rank:    i + 1,
		}
	}
	return out
}
