package grocery

import (
	"fmt"

	"github.com/kumbulanit/stockvelOS-sub001/internal/models"
)

// Allocation is one member's share of one product.
type Allocation struct {
	MemberID  uint
	ProductID uint
	Quantity  float64
}

// Allocate splits the requested product quantities across members under an
// allocation rule.
//
//   - EQUAL_SHARE: every member gets quantity/len(members).
//   - CONTRIBUTION_WEIGHTED: shares are proportional to each member's weight
//     (approved contribution totals); members with zero weight get nothing.
//   - CUSTOM: the caller supplies explicit allocations; they are validated
//     against the member list and returned as-is.
func Allocate(rule models.AllocationRule, memberIDs []uint, weights map[uint]float64,
	quantities map[uint]float64, custom []Allocation) ([]Allocation, error) {

	if len(memberIDs) == 0 {
		return nil, fmt.Errorf("no members to allocate to")
	}

	switch rule {
	case models.AllocationEqualShare:
		out := make([]Allocation, 0, len(memberIDs)*len(quantities))
		n := float64(len(memberIDs))
		for productID, qty := range quantities {
			if qty <= 0 {
				return nil, fmt.Errorf("product %d: quantity must be positive", productID)
			}
			share := qty / n
			for _, mid := range memberIDs {
				out = append(out, Allocation{MemberID: mid, ProductID: productID, Quantity: share})
			}
		}
		return out, nil

	case models.AllocationContributionWeighted:
		var totalWeight float64
		for _, mid := range memberIDs {
			totalWeight += weights[mid]
		}
		if totalWeight <= 0 {
			return nil, fmt.Errorf("no member has a positive contribution weight")
		}
		out := make([]Allocation, 0, len(memberIDs)*len(quantities))
		for productID, qty := range quantities {
			if qty <= 0 {
				return nil, fmt.Errorf("product %d: quantity must be positive", productID)
			}
			for _, mid := range memberIDs {
				w := weights[mid]
				if w <= 0 {
					continue
				}
				out = append(out, Allocation{
					MemberID:  mid,
					ProductID: productID,
					Quantity:  qty * w / totalWeight,
				})
			}
		}
		return out, nil

	case models.AllocationCustom:
		if len(custom) == 0 {
			return nil, fmt.Errorf("custom rule requires explicit allocations")
		}
		valid := make(map[uint]bool, len(memberIDs))
		for _, mid := range memberIDs {
			valid[mid] = true
		}
		for _, a := range custom {
			if !valid[a.MemberID] {
				return nil, fmt.Errorf("member %d is not an active member of the group", a.MemberID)
			}
			if a.Quantity <= 0 {
				return nil, fmt.Errorf("member %d, product %d: quantity must be positive", a.MemberID, a.ProductID)
			}
		}
		return custom, nil

	default:
		return nil, fmt.Errorf("unknown allocation rule %q", rule)
	}
}

// totalsByProduct sums allocations per product, used to validate against stock.
func totalsByProduct(allocs []Allocation) map[uint]float64 {
	totals := make(map[uint]float64)
	for _, a := range allocs {
		totals[a.ProductID] += a.Quantity
	}
	return totals
}
