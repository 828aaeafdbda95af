package grocery

import (
	"math"
	"testing"

	"github.com/kumbulanit/stockvelOS-sub001/internal/models"
)

func sumFor(allocs []Allocation, productID uint) float64 {
	var total float64
	for _, a := range allocs {
		if a.ProductID == productID {
			total += a.Quantity
		}
	}
	return total
}

func quantityFor(allocs []Allocation, memberID, productID uint) float64 {
	for _, a := range allocs {
		if a.MemberID == memberID && a.ProductID == productID {
			return a.Quantity
		}
	}
	return 0
}

func TestAllocate(t *testing.T) {
	members := []uint{1, 2, 3}

	tests := []struct {
		name       string
		rule       models.AllocationRule
		weights    map[uint]float64
		quantities map[uint]float64
		custom     []Allocation
		wantErr    bool
		check      func(t *testing.T, allocs []Allocation)
	}{
		{
			name:       "equal share splits evenly",
			rule:       models.AllocationEqualShare,
			quantities: map[uint]float64{10: 9, 20: 1.5},
			check: func(t *testing.T, allocs []Allocation) {
				if len(allocs) != 6 {
					t.Fatalf("got %d allocations, want 6", len(allocs))
				}
				if q := quantityFor(allocs, 1, 10); math.Abs(q-3) > 1e-9 {
					t.Errorf("member 1 product 10 = %v, want 3", q)
				}
				if q := quantityFor(allocs, 2, 20); math.Abs(q-0.5) > 1e-9 {
					t.Errorf("member 2 product 20 = %v, want 0.5", q)
				}
				if s := sumFor(allocs, 10); math.Abs(s-9) > 1e-9 {
					t.Errorf("product 10 total = %v, want 9", s)
				}
			},
		},
		{
			name:       "contribution weighted is proportional",
			rule:       models.AllocationContributionWeighted,
			weights:    map[uint]float64{1: 600, 2: 300, 3: 100},
			quantities: map[uint]float64{10: 50},
			check: func(t *testing.T, allocs []Allocation) {
				if q := quantityFor(allocs, 1, 10); math.Abs(q-30) > 1e-9 {
					t.Errorf("member 1 = %v, want 30", q)
				}
				if q := quantityFor(allocs, 2, 10); math.Abs(q-15) > 1e-9 {
					t.Errorf("member 2 = %v, want 15", q)
				}
				if q := quantityFor(allocs, 3, 10); math.Abs(q-5) > 1e-9 {
					t.Errorf("member 3 = %v, want 5", q)
				}
			},
		},
		{
			name:       "weighted skips zero-weight members",
			rule:       models.AllocationContributionWeighted,
			weights:    map[uint]float64{1: 100, 2: 100},
			quantities: map[uint]float64{10: 10},
			check: func(t *testing.T, allocs []Allocation) {
				if q := quantityFor(allocs, 3, 10); q != 0 {
					t.Errorf("member 3 should get nothing, got %v", q)
				}
				if s := sumFor(allocs, 10); math.Abs(s-10) > 1e-9 {
					t.Errorf("product 10 total = %v, want 10", s)
				}
			},
		},
		{
			name:       "weighted with no positive weights fails",
			rule:       models.AllocationContributionWeighted,
			weights:    map[uint]float64{},
			quantities: map[uint]float64{10: 10},
			wantErr:    true,
		},
		{
			name: "custom passes through valid allocations",
			rule: models.AllocationCustom,
			custom: []Allocation{
				{MemberID: 1, ProductID: 10, Quantity: 2},
				{MemberID: 2, ProductID: 10, Quantity: 4},
			},
			check: func(t *testing.T, allocs []Allocation) {
				if len(allocs) != 2 {
					t.Fatalf("got %d allocations, want 2", len(allocs))
				}
			},
		},
		{
			name: "custom rejects unknown member",
			rule: models.AllocationCustom,
			custom: []Allocation{
				{MemberID: 99, ProductID: 10, Quantity: 2},
			},
			wantErr: true,
		},
		{
			name: "custom rejects non-positive quantity",
			rule: models.AllocationCustom,
			custom: []Allocation{
				{MemberID: 1, ProductID: 10, Quantity: 0},
			},
			wantErr: true,
		},
		{
			name:       "equal share rejects non-positive quantity",
			rule:       models.AllocationEqualShare,
			quantities: map[uint]float64{10: -1},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allocs, err := Allocate(tt.rule, members, tt.weights, tt.quantities, tt.custom)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, allocs)
		})
	}
}

func TestAllocateNoMembers(t *testing.T) {
	_, err := Allocate(models.AllocationEqualShare, nil, nil, map[uint]float64{1: 5}, nil)
	if err == nil {
		t.Fatal("expected an error with no members")
	}
}
