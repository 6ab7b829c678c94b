// Package textsort orders display names the way readers expect rather than by
// byte value.
package textsort

import (
	"bytes"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Stable sorts items by the collation order of key(item), keeping the
// original order of equal keys. A Collator is not safe for concurrent use,
// so each call builds its own.
func Stable[T any](items []T, key func(T) string, desc bool) {
	c := collate.New(language.English, collate.IgnoreCase, collate.IgnoreDiacritics)
	var buf collate.Buffer
	keys := make([][]byte, len(items))
	for i, item := range items {
		k := c.KeyFromString(&buf, key(item))
		keys[i] = append([]byte(nil), k...)
	}

	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		cmp := bytes.Compare(keys[idx[a]], keys[idx[b]])
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})

	sorted := make([]T, len(items))
	for i, j := range idx {
		sorted[i] = items[j]
	}
	copy(items, sorted)
}

// Strings sorts names in place in ascending collation order.
func Strings(names []string) {
	Stable(names, func(s string) string { return s }, false)
}
