// Package card models the chapter/track tree of a card document and reads
// it from JSON without enforcing a schema.
package card
