// Package render draws the diagnostic charts of a segmentation run as
// standalone HTML pages using go-echarts.
//
// elbow.html plots inertia against k with a marker at the selected k.
// dendrogram.html shows the last DendrogramTail merges of the Ward tree and
// the merge distance curve with the cut height.
package render
