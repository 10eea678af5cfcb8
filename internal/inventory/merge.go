package inventory

import "sort"

// Merge flattens per-role results, keeps the first occurrence of each instance id
// and orders the survivors by display name.
func Merge(perRole [][]Instance, nameKey string) []Instance {
	seen := map[string]bool{}
	var merged []Instance
	for _, instances := range perRole {
		for _, inst := range instances {
			if seen[inst.ID] {
				continue
			}
			seen[inst.ID] = true
			merged = append(merged, inst)
		}
	}
	SortByName(merged, nameKey)
	return merged
}

func SortByName(instances []Instance, nameKey string) {
	sort.SliceStable(instances, func(a, b int) bool {
		return instances[a].DisplayName(nameKey) < instances[b].DisplayName(nameKey)
	})
}

func Names(instances []Instance, nameKey string) []string {
	names := make([]string, 0, len(instances))
	for _, inst := range instances {
		names = append(names, inst.DisplayName(nameKey))
	}
	return names
}

func IDs(instances []Instance) []string {
	ids := make([]string, 0, len(instances))
	for _, inst := range instances {
		ids = append(ids, inst.ID)
	}
	return ids
}
