package store

import (
	"hash/fnv"
)

// Record is a single listing harvested from a search results page.
// Records are values: two Records are equal iff all three fields match.
type Record struct {
	Publisher string `json:"publisher"`
	Link      string `json:"link"`
	Title     string `json:"title"`
}

// KeyFunc maps a Record to the identity key used for deduplication and as
// the primary key in persistent storage.
type KeyFunc func(r Record) int64

// IdentityKey hashes publisher and title only. The link is left out, so two
// Records which differ only by link share a key even though they are not
// equal. Whichever is stored first wins.
func IdentityKey(r Record) int64 {
	return hashFields(r.Publisher, r.Title)
}

// KeyWithLink hashes all three fields, so every distinct Record gets its
// own key.
func KeyWithLink(r Record) int64 {
	return hashFields(r.Publisher, r.Title, r.Link)
}

// 64bit FNV-1a, with a unit separator between fields so ("ab","c") and
// ("a","bc") don't collide.
func hashFields(fields ...string) int64 {
	h := fnv.New64a()
	for i, f := range fields {
		if i > 0 {
			h.Write([]byte{0x1f})
		}
		h.Write([]byte(f))
	}
	return int64(h.Sum64())
}

// RecordSet is a set of Records keyed by a KeyFunc.
type RecordSet struct {
	key  KeyFunc
	recs map[int64]Record
}

// NewRecordSet creates a set using the given key function (IdentityKey if nil)
// and adds recs to it in order.
func NewRecordSet(key KeyFunc, recs ...Record) *RecordSet {
	if key == nil {
		key = IdentityKey
	}
	set := &RecordSet{key: key, recs: make(map[int64]Record, len(recs))}
	for _, r := range recs {
		set.Add(r)
	}
	return set
}

// Add inserts r unless a record with the same key is already present.
// Returns true if r was added.
func (set *RecordSet) Add(r Record) bool {
	k := set.key(r)
	if _, got := set.recs[k]; got {
		return false
	}
	set.recs[k] = r
	return true
}

// Has reports whether a record with r's key is in the set.
func (set *RecordSet) Has(r Record) bool {
	_, got := set.recs[set.key(r)]
	return got
}

// Get returns the record stored under r's key.
func (set *RecordSet) Get(r Record) (Record, bool) {
	got, ok := set.recs[set.key(r)]
	return got, ok
}

func (set *RecordSet) Len() int {
	return len(set.recs)
}
