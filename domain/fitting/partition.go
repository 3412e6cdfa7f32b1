package fitting

import (
	"fmt"
	"math/rand"
	"sort"
)

// KfoldSeed fixes the k-fold shuffle so that the same data and the same
// number of folds always give the same partition.
const KfoldSeed int64 = 1234

// Fold is one train/test split over positions 0..n-1. Both lists are
// sorted ascending.
type Fold struct {
	Index int
	Train []int
	Test  []int
}

// Partition shuffles 0..n-1 with seed and cuts the permutation into k
// contiguous test blocks. The first n%k blocks hold one extra position.
func Partition(n, k int, seed int64) ([]Fold, error) {
	if k < 1 {
		return nil, fmt.Errorf("number of folds must be positive, got %d", k)
	}
	if k > n {
		return nil, fmt.Errorf("cannot split %d observations into %d folds", n, k)
	}
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(n)

	folds := make([]Fold, k)
	start := 0
	for f := 0; f < k; f++ {
		size := n / k
		if f < n%k {
			size++
		}
		test := append([]int(nil), perm[start:start+size]...)
		sort.Ints(test)
		inTest := make(map[int]bool, len(test))
		for _, p := range test {
			inTest[p] = true
		}
		train := make([]int, 0, n-size)
		for p := 0; p < n; p++ {
			if !inTest[p] {
				train = append(train, p)
			}
		}
		folds[f] = Fold{Index: f, Train: train, Test: test}
		start += size
	}
	return folds, nil
}
