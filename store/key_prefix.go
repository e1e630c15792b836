package store

// Declare database key prefix for objects
const (
	PrefixBlock   = "blk:"
	PrefixMeta    = "meta:"
	MetaKeyState  = "state"
	MetaKeyHeight = "height"
)
