package objectstore

import "lukechampine.com/blake3"

// Context strings for BLAKE3-KDF sub-key derivation. Distinct per role so
// that compromise of one derived key never helps an attacker compute
// another, resolving spec.md §9's open question about chunk/index/storage
// key derivation. The hardware header key's context string is fixed
// independently by spec.md §4.3 and lives in hardwarecr.go.
const (
	ctxChunkKey   = "zerostash.com 2024 chunk key"
	ctxIndexKey   = "zerostash.com 2024 index key"
	ctxStorageKey = "zerostash.com 2024 storage key"
)

// deriveSubKey runs BLAKE3's key-derivation mode: DeriveKey(context, key_material).
func deriveSubKey(context string, masterKey []byte) *RawKey {
	var derived [32]byte
	blake3.DeriveKey(derived[:], context, masterKey)
	out := NewRawKey(derived[:])
	for i := range derived {
		derived[i] = 0
	}
	return out
}

func deriveChunkKey(masterKey []byte) *RawKey   { return deriveSubKey(ctxChunkKey, masterKey) }
func deriveIndexKey(masterKey []byte) *RawKey   { return deriveSubKey(ctxIndexKey, masterKey) }
func deriveStorageKey(masterKey []byte) *RawKey { return deriveSubKey(ctxStorageKey, masterKey) }
