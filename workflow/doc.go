// Package workflow runs static graphs of named steps over a typed state.
//
// A step is a function of the current State that returns a Patch: either an
// update of its own output slots or an error. Edges are data
// (Always, IfNoError, FanOut, Join), so a graph can be inspected and
// validated before it runs.
//
// The engine walks the graph in waves. Fan-out members run concurrently and
// a joined successor starts only after all of them completed. The first
// error by completion order wins: later errors are dropped, patches of
// siblings already in flight are still applied, and no further step
// starts. A run ends either with every reachable step completed or with a
// *RunError; a partially populated state is never returned.
package workflow
