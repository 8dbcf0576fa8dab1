package index

import "fmt"

// Keys derives every storage key of one index from the configured prefix.
// Layout: {prefix}index:{name} metadata hash, {prefix}{name}:idx FT index,
// {prefix}{name}:doc:{id} parent JSON docs, {prefix}{name}:chunk:{id}:{n}
// chunk hashes.
type Keys struct {
	prefix string
}

// NewKeys creates a key scheme with the given storage prefix.
func NewKeys(prefix string) Keys {
	if prefix == "" {
		prefix = "tensordex:"
	}
	return Keys{prefix: prefix}
}

// Meta returns the metadata hash key of an index.
func (k Keys) Meta(name string) string {
	return fmt.Sprintf("%sindex:%s", k.prefix, name)
}

// MetaPattern returns the SCAN pattern matching all index metadata keys.
func (k Keys) MetaPattern() string {
	return k.Meta("*")
}

// Search returns the FT index name of an index.
func (k Keys) Search(name string) string {
	return fmt.Sprintf("%s%s:idx", k.prefix, name)
}

// ChunkPrefix returns the key prefix of all chunk hashes of an index.
func (k Keys) ChunkPrefix(name string) string {
	return fmt.Sprintf("%s%s:chunk:", k.prefix, name)
}

// Chunk returns the key of one chunk hash.
func (k Keys) Chunk(name, docID string, ordinal int) string {
	return fmt.Sprintf("%s%s:%d", k.ChunkPrefix(name), docID, ordinal)
}

// Doc returns the parent JSON document key.
func (k Keys) Doc(name, docID string) string {
	return fmt.Sprintf("%s%s:doc:%s", k.prefix, name, docID)
}

// DocPattern returns the SCAN pattern matching all parent documents of an index.
func (k Keys) DocPattern(name string) string {
	return k.Doc(name, "*")
}
