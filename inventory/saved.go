package inventory

import "strings"

const (
	maxSavedSearches   = 16
	savedSearchNameLen = 23
)

// SavedSearch is a persisted query expression plus sort keys.
type SavedSearch struct {
	Name     string
	Query    string
	SortKeys string
}

func (q *Query) savedFind(name string) int {
	for i := range q.saved {
		if strings.EqualFold(q.saved[i].Name, name) {
			return i
		}
	}
	return -1
}

// StoreSavedSearch adds or replaces a saved search by name.
func (q *Query) StoreSavedSearch(name, queryExpr, sortKeys string) bool {
	if name == "" || len(name) > savedSearchNameLen || queryExpr == "" {
		return false
	}
	idx := q.savedFind(name)
	if idx < 0 {
		if len(q.saved) >= maxSavedSearches {
			return false
		}
		q.saved = append(q.saved, SavedSearch{})
		idx = len(q.saved) - 1
	}
	q.saved[idx] = SavedSearch{Name: name, Query: queryExpr, SortKeys: sortKeys}
	if q.OnSavedChange != nil {
		q.OnSavedChange()
	}
	return true
}

// SavedSearch returns the stored search by name.
func (q *Query) SavedSearch(name string) (SavedSearch, bool) {
	idx := q.savedFind(name)
	if idx < 0 {
		return SavedSearch{}, false
	}
	return q.saved[idx], true
}

// SavedSearchCount returns the number of stored searches.
func (q *Query) SavedSearchCount() int { return len(q.saved) }

// SavedSearchAt returns the stored search at index.
func (q *Query) SavedSearchAt(index int) (SavedSearch, bool) {
	if index < 0 || index >= len(q.saved) {
		return SavedSearch{}, false
	}
	return q.saved[index], true
}

// ReplaceSavedSearches swaps in a loaded set (save restore path).
func (q *Query) ReplaceSavedSearches(s []SavedSearch) {
	if len(s) > maxSavedSearches {
		s = s[:maxSavedSearches]
	}
	q.saved = s
}

// ApplySavedSearch runs a stored search through the cache and sorts the
// result with its stored keys.
func (q *Query) ApplySavedSearch(name string, cap int) []int {
	s, ok := q.SavedSearch(name)
	if !ok {
		return nil
	}
	res := q.ExecuteCached(s.Query, cap)
	if len(res) > 0 && s.SortKeys != "" {
		q.Sort(res, s.SortKeys)
	}
	return res
}

// Quick-action wrappers expose index-based application for the action bar.

// QuickActionCount mirrors SavedSearchCount.
func (q *Query) QuickActionCount() int { return len(q.saved) }

// QuickActionName returns the saved search name at index.
func (q *Query) QuickActionName(index int) (string, bool) {
	s, ok := q.SavedSearchAt(index)
	return s.Name, ok
}

// QuickActionApply applies the saved search at index.
func (q *Query) QuickActionApply(index int, cap int) []int {
	s, ok := q.SavedSearchAt(index)
	if !ok {
		return nil
	}
	return q.ApplySavedSearch(s.Name, cap)
}
