// Package graphs drives the batched decoding-graph compiler and assembles
// its output into an indexed, self-contained table under the model
// directory. Assembly is staged: everything lands in a temporary sibling
// directory first and becomes visible only through a final rename, so a
// crash mid-build never leaves a half-written table where readers look.
package graphs
