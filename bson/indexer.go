package bson

import "strconv"

// smallIndexKeys covers the common short-array case without allocating.
var smallIndexKeys = [...]string{
	"0", "1", "2", "3", "4", "5", "6", "7",
	"8", "9", "10", "11", "12", "13", "14", "15",
}

// arrayIndexer produces the stringified element keys "0", "1", "2", ...
// required because BSON stores arrays as documents keyed by index. One
// indexer belongs to exactly one array scope; sibling arrays never share one.
type arrayIndexer struct {
	next int
}

// Key returns the key for the element about to be appended.
func (i *arrayIndexer) Key() string {
	if i.next < len(smallIndexKeys) {
		return smallIndexKeys[i.next]
	}
	return strconv.Itoa(i.next)
}

// Advance moves to the next index. Callers advance only after actually
// appending an element, so elided elements leave no gap.
func (i *arrayIndexer) Advance() {
	i.next++
}
