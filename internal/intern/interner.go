// Package intern provides a dense string interner used as the backing
// store for every other arena in this module (schema, operation and
// execution entities all address strings by a small 32-bit id instead of
// holding their own copies).
package intern

// ID is a dense, 32-bit identifier assigned to an interned string.
// Order carries no meaning; only equality of ids matters.
type ID uint32

// Interner deduplicates strings and assigns each distinct value a dense ID.
// It is not safe for concurrent writes; schema and operation builders own
// their own Interner during construction and the result is immutable
// afterwards, consistent with the arena ownership rules in spec §3.
type Interner struct {
	values []string
	lookup map[string]ID
}

// New creates an empty Interner with room for n distinct strings.
func New(n int) *Interner {
	return &Interner{
		values: make([]string, 0, n),
		lookup: make(map[string]ID, n),
	}
}

// Intern returns the ID for s, assigning a new one if s has not been seen.
func (in *Interner) Intern(s string) ID {
	if id, ok := in.lookup[s]; ok {
		return id
	}
	id := ID(len(in.values))
	in.values = append(in.values, s)
	in.lookup[s] = id
	return id
}

// Lookup returns the ID for s without interning it.
func (in *Interner) Lookup(s string) (ID, bool) {
	id, ok := in.lookup[s]
	return id, ok
}

// String resolves an ID back to its string. Panics on an out-of-range id,
// which can only happen if the id came from a different Interner.
func (in *Interner) String(id ID) string {
	return in.values[id]
}

// Len returns the number of distinct interned strings.
func (in *Interner) Len() int {
	return len(in.values)
}
