// Package forensics groups the deterministic evidence extractors that run
// before the reasoning oracle is consulted.
//
// Each subpackage measures one signal and reports it as a self-contained
// result carrying its own validity flag, so a failure in one extractor never
// invalidates another:
//   - ela: recompression noise of a representative frame
//   - flux: motion variance between evenly sampled video frames
//   - spectrum: rotation-invariant radial power spectrum profile
//   - metadata: container/EXIF/PNG tags and generator signatures
package forensics
