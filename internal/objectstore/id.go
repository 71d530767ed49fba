package objectstore

import "encoding/hex"

// ObjectId is the 32-byte opaque name of a backend blob. A fresh one is
// drawn for every object a Writer starts.
type ObjectId [32]byte

func (id ObjectId) String() string { return hex.EncodeToString(id[:]) }

// IsZero reports whether id is the zero value (all 32 bytes zero).
func (id ObjectId) IsZero() bool {
	for _, b := range id {
		if b != 0 {
			return false
		}
	}
	return true
}

func newObjectId(rng Random) (ObjectId, error) {
	var id ObjectId
	if err := rng.Fill(id[:]); err != nil {
		return ObjectId{}, errFatal("generating object id", err)
	}
	return id, nil
}
