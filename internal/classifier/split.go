package classifier

import (
	"math"
	"math/rand/v2"
	"sort"
)

// DefaultSeed and DefaultTestFraction fix the train/test split so repeated
// runs over the same files are comparable.
const (
	DefaultSeed         = 42
	DefaultTestFraction = 0.2
)

// Split holds sample indices for the two partitions.
type Split struct {
	Train []int
	Test  []int
}

// StratifiedSplit partitions indices per label so each class keeps its
// proportion in both halves. Classes with a single sample stay in Train.
func StratifiedSplit(labels []int, testFraction float64, seed uint64) Split {
	if testFraction <= 0 || testFraction >= 1 {
		testFraction = DefaultTestFraction
	}
	byLabel := make(map[int][]int)
	for i, l := range labels {
		byLabel[l] = append(byLabel[l], i)
	}
	keys := make([]int, 0, len(byLabel))
	for l := range byLabel {
		keys = append(keys, l)
	}
	sort.Ints(keys)

	rng := rand.New(rand.NewPCG(seed, seed))
	var split Split
	for _, l := range keys {
		idx := byLabel[l]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		nTest := int(math.Round(testFraction * float64(len(idx))))
		if nTest == 0 && len(idx) > 1 {
			nTest = 1
		}
		if nTest >= len(idx) {
			nTest = len(idx) - 1
		}
		split.Test = append(split.Test, idx[:nTest]...)
		split.Train = append(split.Train, idx[nTest:]...)
	}
	sort.Ints(split.Train)
	sort.Ints(split.Test)
	return split
}
