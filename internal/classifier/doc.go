// Package classifier trains and applies the offline models behind the
// frequency and anomaly evidence.
//
// Two models are produced by batch training jobs and persisted as JSON
// artifacts that the pipeline loads read-only:
//
//   - FrequencyModel: an RBF-kernel C-SVC over radial spectrum profiles,
//     with Platt-scaled probabilities for the fake class.
//   - AnomalyModel: PCA (thin SVD, 95% retained variance) followed by a
//     one-class SVM fit on real exemplars; reconstruction error is reported
//     alongside the inlier/outlier decision.
//
// The SVM solver is a sequential minimal optimization with second-order
// working set selection. The kernel matrix is held in memory, which bounds
// practical training sets to a few thousand samples.
package classifier
