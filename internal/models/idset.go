package models

// IDSetMap maps a user ID to an ordered set of IDs. It is the persisted
// shape of both the follow graph and the saved-content index.
type IDSetMap map[string][]string

// ContainsID reports whether id is present in ids.
func ContainsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// ToggleID removes id from ids when present and appends it otherwise. The
// returned bool is the resulting membership.
func ToggleID(ids []string, id string) ([]string, bool) {
	for i, v := range ids {
		if v == id {
			next := make([]string, 0, len(ids)-1)
			next = append(next, ids[:i]...)
			next = append(next, ids[i+1:]...)
			return next, false
		}
	}
	next := make([]string, 0, len(ids)+1)
	next = append(next, ids...)
	return append(next, id), true
}
