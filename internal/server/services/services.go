// Package services contains server-side business logic. Services own
// permission checks and audit logging; repositories only persist.
package services

import (
	"strings"

	"github.com/google/uuid"
)

// validID reports whether id can be a primary key. Anything else is treated
// as a reference to a missing row.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// SplitTags splits a comma-separated tag list, trimming each element and
// dropping empty ones.
func SplitTags(s string) []string {
	tags := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
