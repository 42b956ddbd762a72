// Package clustering partitions a normalized feature matrix.
//
// Two techniques are provided and both operate on the same immutable
// normalize.Matrix, so they can run concurrently:
//
//   - kmeans.go: k-means with k-means++ seeding and Lloyd iterations
//   - elbow.go: cluster count selection from the inertia curve
//   - ward.go: Ward minimum-variance agglomeration and tree cutting
//
// # Determinism
//
// KMeans draws every random number from a source seeded by
// KMeansOptions.Seed, so identical (matrix, k, seed) give identical labels.
// SelectK fits each candidate with the same options, so the chosen k does not
// depend on how many fits run in parallel.
//
// # Hierarchy format
//
// Hierarchy.Merges follows the common linkage-matrix layout: merge i joins
// clusters Left and Right (ids below N are rows, id N+j is the cluster made
// by merge j) at Distance, producing a cluster of Size rows.
//
// # Usage Example
//
//	elbow, err := clustering.SelectK(ctx, matrix, clustering.KRange{Min: 2, Max: 10}, opts)
//	if err != nil {
//	    return err
//	}
//	km, err := clustering.KMeans(ctx, matrix, elbow.K, opts)
//
//	tree, err := clustering.Ward(ctx, matrix)
//	cut, err := clustering.SelectCut(tree.Distances())
//	labels, err := tree.Cut(cut.Clusters)
package clustering
