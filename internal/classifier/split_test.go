package classifier

import (
	"slices"
	"testing"
)

func TestStratifiedSplit(t *testing.T) {
	labels := make([]int, 0, 50)
	for i := 0; i < 40; i++ {
		labels = append(labels, LabelReal)
	}
	for i := 0; i < 10; i++ {
		labels = append(labels, LabelFake)
	}
	split := StratifiedSplit(labels, 0.2, DefaultSeed)
	if len(split.Test) != 10 || len(split.Train) != 40 {
		t.Fatalf("split sizes train=%d test=%d", len(split.Train), len(split.Test))
	}
	fakeInTest := 0
	for _, i := range split.Test {
		if labels[i] == LabelFake {
			fakeInTest++
		}
	}
	if fakeInTest != 2 {
		t.Fatalf("fake samples in test = %d, want 2", fakeInTest)
	}
	seen := make(map[int]bool)
	for _, i := range append(append([]int(nil), split.Train...), split.Test...) {
		if seen[i] {
			t.Fatalf("index %d in both partitions", i)
		}
		seen[i] = true
	}
	if len(seen) != len(labels) {
		t.Fatalf("split covers %d of %d indices", len(seen), len(labels))
	}

	again := StratifiedSplit(labels, 0.2, DefaultSeed)
	if !slices.Equal(split.Test, again.Test) {
		t.Fatal("split is not deterministic for a fixed seed")
	}
}

func TestStratifiedSplitSmallClasses(t *testing.T) {
	split := StratifiedSplit([]int{LabelReal, LabelFake, LabelFake}, 0.2, 1)
	// One real stays in train; two fakes give one test sample.
	if len(split.Test) != 1 || len(split.Train) != 2 {
		t.Fatalf("split = %+v", split)
	}
}

func TestEvaluate(t *testing.T) {
	truth := []int{0, 0, 0, 1, 1, 1}
	pred := []int{0, 0, 1, 1, 1, 0}
	rep := Evaluate(truth, pred)
	if rep.Accuracy != 4.0/6.0 {
		t.Fatalf("accuracy = %v", rep.Accuracy)
	}
	realMetrics := rep.Classes[0]
	if realMetrics.Label != "real" || realMetrics.Support != 3 || realMetrics.Precision != 2.0/3.0 || realMetrics.Recall != 2.0/3.0 {
		t.Fatalf("real metrics = %+v", realMetrics)
	}
	if len(rep.Rows()) != 4 {
		t.Fatalf("rows = %d", len(rep.Rows()))
	}
	if rep.Rows()[2][0] != "macro avg" {
		t.Fatalf("row label = %q", rep.Rows()[2][0])
	}
}
