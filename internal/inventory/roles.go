package inventory

import (
	"sort"
	"strings"
)

// ResolveRoles flattens every role group into one sorted, duplicate-free list.
func ResolveRoles(groups map[string][]string) []string {
	seen := map[string]bool{}
	var roles []string
	for _, labels := range groups {
		for _, label := range labels {
			role := strings.TrimSpace(label)
			if role == "" || seen[role] {
				continue
			}
			seen[role] = true
			roles = append(roles, role)
		}
	}
	sort.Strings(roles)
	return roles
}
