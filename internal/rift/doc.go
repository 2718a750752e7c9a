// Package rift models the rift event schedule: an ordered set of future
// UTC instants at minute resolution.
//
// The Schedule is the single authority for the event list. Mutations go
// through Merge/Replace/PruneBefore; readers always receive copies, never
// the internal slice.
package rift
