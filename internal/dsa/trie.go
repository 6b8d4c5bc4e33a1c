// Package dsa provides the keyword index used for commitment dispatch.
// Uses go-radix for a compressed prefix tree (radix tree).
package dsa

import (
	"github.com/armon/go-radix"
)

// Trie wraps go-radix for a compressed prefix tree.
//
// Commitment keywords share long prefixes (USE, USE BROWSER, USE SEARCH
// ENGINE, META, META IMAGE), which the radix tree stores as one path.
type Trie[V any] struct {
	tree *radix.Tree
	size int
}

// NewTrie creates a new empty radix tree.
func NewTrie[V any]() *Trie[V] {
	return &Trie[V]{
		tree: radix.New(),
	}
}

// Insert adds a key-value pair to the tree.
// Returns false if the key was already present; its value is replaced.
func (t *Trie[V]) Insert(key string, value V) bool {
	_, updated := t.tree.Insert(key, value)
	if !updated {
		t.size++
	}
	return !updated
}

// Search looks up a key in the tree.
func (t *Trie[V]) Search(key string) (V, bool) {
	val, found := t.tree.Get(key)
	if !found {
		var zero V
		return zero, false
	}
	v, ok := val.(V)
	if !ok {
		var zero V
		return zero, false
	}
	return v, true
}

// Entry is a key-value pair returned by prefix walks.
type Entry[V any] struct {
	Key   string
	Value V
}

// PrefixesOf returns every stored key that is a prefix of query,
// longest first.
// Time Complexity: O(k) where k is query length.
func (t *Trie[V]) PrefixesOf(query string) []Entry[V] {
	var entries []Entry[V]
	t.tree.WalkPath(query, func(k string, v interface{}) bool {
		if val, ok := v.(V); ok {
			entries = append(entries, Entry[V]{Key: k, Value: val})
		}
		return false // continue walking
	})
	// WalkPath visits from the root down, so shorter keys come first.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries
}

// Keys returns all keys in the tree in lexical order.
func (t *Trie[V]) Keys() []string {
	keys := make([]string, 0, t.size)
	t.tree.Walk(func(k string, v interface{}) bool {
		keys = append(keys, k)
		return false
	})
	return keys
}
