package scheduler

import (
	"sort"

	"github.com/krazyTry/raydium-go/amm/math"
	"github.com/krazyTry/raydium-go/amm/shared"
	"github.com/krazyTry/raydium-go/venue"
)

// Plan is the reconciliation of a target ladder against resting orders.
type Plan struct {
	Cancel []venue.Order
	Place  []Level
	Keep   []venue.Order
}

func (p Plan) Empty() bool {
	return len(p.Cancel) == 0 && len(p.Place) == 0
}

// Matches reports whether a resting order already represents a level: same
// side, same remaining size, price within toleranceBps of the target.
func Matches(o venue.Order, lv Level, toleranceBps uint64) bool {
	if o.Side != lv.Side || o.RemainingSize != lv.Size {
		return false
	}
	diff := o.Price - lv.Price
	if o.Price < lv.Price {
		diff = lv.Price - o.Price
	}
	lhs, err := math.CheckedMul(diff, shared.BasisPointMax)
	if err != nil {
		return false
	}
	rhs, err := math.CheckedMul(toleranceBps, lv.Price)
	if err != nil {
		return true
	}
	return lhs <= rhs
}

// Diff pairs every level with at most one resting order. Unpaired resting
// orders are cancelled, unpaired levels placed innermost first.
func Diff(ladder *Ladder, resting []venue.Order, toleranceBps uint64) Plan {
	orders := append([]venue.Order(nil), resting...)
	sort.SliceStable(orders, func(i, j int) bool {
		if orders[i].Side != orders[j].Side {
			return orders[i].Side < orders[j].Side
		}
		if orders[i].Price != orders[j].Price {
			return orders[i].Price < orders[j].Price
		}
		return orders[i].ID < orders[j].ID
	})

	used := make([]bool, len(orders))
	var plan Plan
	for _, lv := range ladder.Interleaved() {
		matched := false
		for i, o := range orders {
			if used[i] || !Matches(o, lv, toleranceBps) {
				continue
			}
			used[i] = true
			matched = true
			plan.Keep = append(plan.Keep, o)
			break
		}
		if !matched {
			plan.Place = append(plan.Place, lv)
		}
	}
	for i, o := range orders {
		if !used[i] {
			plan.Cancel = append(plan.Cancel, o)
		}
	}
	return plan
}
