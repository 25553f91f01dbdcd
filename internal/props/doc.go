// Package props is the attached-property side-table animations write into.
//
// Values never live on the objects themselves: a Store maps object identity
// (a weak pointer) to property to value. Holding a value in a Store never
// keeps its object alive; entries of collected objects are pruned lazily.
package props
