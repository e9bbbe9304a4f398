package dbx

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern returns a LIKE/ILIKE pattern matching any value that
// contains s literally. Wildcards in s are escaped with a backslash, which
// is the default LIKE escape character in PostgreSQL.
func ContainsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
