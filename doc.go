// Package hybridhll implements a hybrid HyperLogLog++ cardinality sketch with
// set algebra over pairs and groups of sketches.
//
// A sketch starts as a sorted list of composite hashes that counts small
// cardinalities exactly. The list narrows its words one byte at a time as it
// fills and finally converts to a dense array of 2^P registers whose memory
// it never exceeds. Dense estimates use the bias-corrected HyperLogLog++
// estimator or, optionally, Ertl's histogram estimator.
//
// # Basic Usage
//
// Counting distinct elements:
//
//	s, err := hybridhll.New(hybridhll.WithPrecision(12))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, line := range lines {
//	    s.InsertString(line)
//	}
//	fmt.Printf("~%.0f distinct\n", s.EstimateCardinality())
//
// Comparing two streams:
//
//	union, err := a.EstimateUnionCardinality(b)
//	shared, err := a.EstimateIntersectionCardinality(b)
//	jaccard, err := a.EstimateJaccardIndex(b)
//
// Sketches combined in any way must share precision, register bits, hasher
// and estimator; otherwise the call returns ErrIncompatibleSketches.
//
// # Package Structure
//
// The implementation is organized as follows:
//
//   - Public API: sketch.go (New, Insert*, MayContain*, transitions), estimate.go
//     (cardinality and pairwise set algebra), merge.go (Merge), joint.go
//     (EstimateJoint)
//   - Configuration: options.go (Option, With* functions), hasher.go (Hasher)
//   - Bulk building: parallel.go (BuildParallel)
//   - Composite hashes: internal/codec/, internal/hashlist/, internal/bits/
//   - Dense registers: internal/registers/ (packed and plain strategies)
//   - Estimators: internal/estimator/ (HLL++, Ertl, set clamps, joint fit)
//   - Gap statistics: internal/gapcodec/ (Rice and Elias gamma bitstreams)
//   - N-way overlap matrices: nway/, exact ground-truth sets: exact/
package hybridhll
