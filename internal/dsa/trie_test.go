package dsa

import "testing"

func TestTrieInsertAndSearch(t *testing.T) {
	trie := NewTrie[int]()
	if !trie.Insert("RULE", 1) {
		t.Fatal("expected first insert to report a new key")
	}
	if trie.Insert("RULE", 2) {
		t.Error("expected second insert to report an existing key")
	}

	v, ok := trie.Search("RULE")
	if !ok || v != 2 {
		t.Errorf("expected 2, got %d (found=%v)", v, ok)
	}
	if _, ok := trie.Search("RULES"); ok {
		t.Error("did not expect RULES to be stored")
	}
}

func TestTriePrefixesOfLongestFirst(t *testing.T) {
	trie := NewTrie[string]()
	trie.Insert("USE", "use")
	trie.Insert("USE BROWSER", "browser")
	trie.Insert("USE SEARCH ENGINE", "search")
	trie.Insert("LANGUAGE", "language")

	entries := trie.PrefixesOf("USE BROWSER please")
	if len(entries) != 2 {
		t.Fatalf("expected 2 prefixes, got %d", len(entries))
	}
	if entries[0].Key != "USE BROWSER" || entries[1].Key != "USE" {
		t.Errorf("expected longest first, got %q then %q", entries[0].Key, entries[1].Key)
	}

	if got := trie.PrefixesOf("PERSONA"); len(got) != 0 {
		t.Errorf("expected no prefixes, got %v", got)
	}
}

func TestTrieKeys(t *testing.T) {
	trie := NewTrie[int]()
	trie.Insert("B", 1)
	trie.Insert("A", 2)

	keys := trie.Keys()
	if len(keys) != 2 || keys[0] != "A" || keys[1] != "B" {
		t.Errorf("expected [A B], got %v", keys)
	}
}
