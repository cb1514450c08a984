package classifier

import "strconv"

// ClassMetrics are per-class precision, recall and F1 with the class's
// support in the evaluated set.
type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report summarizes held-out evaluation.
type Report struct {
	Accuracy    float64        `json:"accuracy"`
	Classes     []ClassMetrics `json:"classes"`
	MacroAvg    ClassMetrics   `json:"macro_avg"`
	WeightedAvg ClassMetrics   `json:"weighted_avg"`
	Samples     int            `json:"samples"`
}

// LabelName maps a class label to its display name.
func LabelName(label int) string {
	if label == LabelFake {
		return "fake"
	}
	return "real"
}

// Evaluate compares predictions with truth over the two classes.
func Evaluate(truth, predicted []int) Report {
	rep := Report{Samples: len(truth)}
	if len(truth) == 0 {
		return rep
	}
	correct := 0
	for i := range truth {
		if truth[i] == predicted[i] {
			correct++
		}
	}
	rep.Accuracy = float64(correct) / float64(len(truth))

	var macro, weighted ClassMetrics
	for _, label := range []int{LabelReal, LabelFake} {
		var tp, fp, fn, support int
		for i := range truth {
			switch {
			case truth[i] == label && predicted[i] == label:
				tp++
			case truth[i] != label && predicted[i] == label:
				fp++
			case truth[i] == label && predicted[i] != label:
				fn++
			}
			if truth[i] == label {
				support++
			}
		}
		m := ClassMetrics{
			Label:     LabelName(label),
			Precision: ratio(tp, tp+fp),
			Recall:    ratio(tp, tp+fn),
			Support:   support,
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		rep.Classes = append(rep.Classes, m)

		macro.Precision += m.Precision / 2
		macro.Recall += m.Recall / 2
		macro.F1 += m.F1 / 2
		w := float64(support) / float64(len(truth))
		weighted.Precision += m.Precision * w
		weighted.Recall += m.Recall * w
		weighted.F1 += m.F1 * w
	}
	macro.Label, macro.Support = "macro avg", len(truth)
	weighted.Label, weighted.Support = "weighted avg", len(truth)
	rep.MacroAvg, rep.WeightedAvg = macro, weighted
	return rep
}

// Rows returns the report as table rows: one per class then the averages.
func (r Report) Rows() [][]string {
	rows := make([][]string, 0, len(r.Classes)+2)
	for _, m := range append(append([]ClassMetrics(nil), r.Classes...), r.MacroAvg, r.WeightedAvg) {
		rows = append(rows, []string{
			m.Label,
			formatMetric(m.Precision),
			formatMetric(m.Recall),
			formatMetric(m.F1),
			itoa(m.Support),
		})
	}
	return rows
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func formatMetric(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func itoa(v int) string { return strconv.Itoa(v) }
