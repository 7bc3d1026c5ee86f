package bptree_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/ssargent/utgallery/pkg/bptree"
)

func TestBPlusTree_InsertAndSearch(t *testing.T) {
	tests := map[string]struct {
		tree     *bptree.BPlusTree[int, string]
		actions  []func(tree *bptree.BPlusTree[int, string])
		searches []struct {
			key      int
			expected string
			found    bool
		}
	}{
		"Insert and search integers": {
			tree: bptree.NewBPlusTree[int, string](4),
			actions: []func(tree *bptree.BPlusTree[int, string]){
				func(tree *bptree.BPlusTree[int, string]) { tree.Insert(1, "one") },
				func(tree *bptree.BPlusTree[int, string]) { tree.Insert(2, "two") },
				func(tree *bptree.BPlusTree[int, string]) { tree.Insert(3, "three") },
				func(tree *bptree.BPlusTree[int, string]) { tree.Insert(4, "four") },
				func(tree *bptree.BPlusTree[int, string]) { tree.Insert(5, "five") },
			},
			searches: []struct {
				key      int
				expected string
				found    bool
			}{
				{1, "one", true},
				{2, "two", true},
				{3, "three", true},
				{4, "four", true},
				{5, "five", true},
				{6, "", false},
			},
		},
		"Insert duplicate keys": {
			tree: bptree.NewBPlusTree[int, string](4),
			actions: []func(tree *bptree.BPlusTree[int, string]){
				func(tree *bptree.BPlusTree[int, string]) { tree.Insert(1, "one") },
				func(tree *bptree.BPlusTree[int, string]) { tree.Insert(1, "uno") },
			},
			searches: []struct {
				key      int
				expected string
				found    bool
			}{
				{1, "uno", true},
				{0, "", false},
			},
		},
		"Search empty tree": {
			tree:    bptree.NewBPlusTree[int, string](4),
			actions: []func(tree *bptree.BPlusTree[int, string]){},
			searches: []struct {
				key      int
				expected string
				found    bool
			}{
				{1, "", false},
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			for _, action := range tt.actions {
				action(tt.tree)
			}
			for _, search := range tt.searches {
				value, found := tt.tree.Search(search.key)
				if found != search.found || value != search.expected {
					t.Errorf("Search(%d) = %v, %v; want %v, %v", search.key, value, found, search.expected, search.found)
				}
			}
		})
	}
}

func TestBPlusTree_Concurrency(t *testing.T) {
	tree := bptree.NewBPlusTree[int, string](4)

	// Insert keys concurrently
	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tree.Insert(i, string(rune('a'+i-1)))
		}(i)
	}
	wg.Wait()

	// Search for keys concurrently
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, found := tree.Search(i); !found {
				t.Errorf("Expected to find key %d", i)
			}
		}(i)
	}
	wg.Wait()
}

func TestBPlusTree_LenAndHeight(t *testing.T) {
	tree := bptree.NewBPlusTree[uint32, int](3)
	if tree.Len() != 0 || tree.Height() != 1 {
		t.Fatalf("empty tree: Len=%d Height=%d", tree.Len(), tree.Height())
	}

	for i := uint32(0); i < 200; i++ {
		tree.Insert(i%50, int(i))
	}
	if tree.Len() != 50 {
		t.Errorf("Len = %d, want 50", tree.Len())
	}
	if tree.Height() < 3 {
		t.Errorf("Height = %d, expected the tree to have split", tree.Height())
	}
}

func TestBPlusTree_Range(t *testing.T) {
	tree := bptree.NewBPlusTree[int, string](4)
	// Insert in a scrambled order so splits happen on both sides.
	for _, k := range []int{50, 10, 90, 30, 70, 20, 80, 40, 60, 0, 100} {
		tree.Insert(k, fmt.Sprintf("v%d", k))
	}

	tests := map[string]struct {
		from, to int
		limit    int
		want     []int
	}{
		"full range":          {from: 0, to: 100, want: []int{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100}},
		"bounds between keys": {from: 15, to: 65, want: []int{20, 30, 40, 50, 60}},
		"single key":          {from: 70, to: 70, want: []int{70}},
		"no keys":             {from: 41, to: 49, want: nil},
		"inverted":            {from: 60, to: 20, want: nil},
		"past the end":        {from: 101, to: 500, want: nil},
		"early stop":          {from: 0, to: 100, limit: 3, want: []int{0, 10, 20}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var got []int
			tree.Range(tt.from, tt.to, func(k int, v string) bool {
				if v != fmt.Sprintf("v%d", k) {
					t.Errorf("key %d carries value %q", k, v)
				}
				got = append(got, k)
				return tt.limit == 0 || len(got) < tt.limit
			})
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("Range(%d, %d) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestBPlusTree_AscendStrings(t *testing.T) {
	tree := bptree.NewBPlusTree[string, int](4)
	words := []string{"pear", "apple", "fig", "kiwi", "banana", "cherry", "date"}
	for i, w := range words {
		tree.Insert(w, i)
	}

	var got []string
	tree.Ascend(func(k string, _ int) bool {
		got = append(got, k)
		return true
	})
	want := "[apple banana cherry date fig kiwi pear]"
	if fmt.Sprint(got) != want {
		t.Errorf("Ascend = %v, want %s", got, want)
	}
}

func TestBPlusTree_Update(t *testing.T) {
	tree := bptree.NewBPlusTree[int, []int64](4)
	for i := 0; i < 20; i++ {
		tree.Update(i%3, func(old []int64, _ bool) []int64 {
			return append(old, int64(i))
		})
	}

	v, ok := tree.Search(1)
	if !ok {
		t.Fatalf("key 1 missing")
	}
	if fmt.Sprint(v) != "[1 4 7 10 13 16 19]" {
		t.Errorf("Update accumulated %v", v)
	}
	if tree.Len() != 3 {
		t.Errorf("Len = %d, want 3", tree.Len())
	}
}
