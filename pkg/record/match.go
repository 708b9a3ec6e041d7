package record

import "strings"

// MatchCollection finds name among candidates the way hosts resolve list,
// context and notebook names: case-insensitively, ignoring surrounding
// blanks. When several candidates match, the first one wins. A false result
// tells the caller to create the collection.
func MatchCollection(name string, candidates []string) (int, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return -1, false
	}
	for i, c := range candidates {
		if strings.EqualFold(strings.TrimSpace(c), name) {
			return i, true
		}
	}
	return -1, false
}
