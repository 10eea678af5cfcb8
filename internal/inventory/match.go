package inventory

import "strings"

const DefaultDelimiter = ","

// TagKeys names the tags carrying role, stage, project and display-name semantics.
type TagKeys struct {
	Roles     string
	Stages    string
	Project   string
	Name      string
	Delimiter string
}

func DefaultTagKeys() TagKeys {
	return TagKeys{
		Roles:     "Roles",
		Stages:    "Stages",
		Project:   "Project",
		Name:      "Name",
		Delimiter: DefaultDelimiter,
	}
}

type MatchContext struct {
	Role            string
	Stage           string
	Application     string
	RequireHealthOK bool
}

type TagFilter struct {
	Key   string
	Value string
}

// Filter is the coarse server-side query. It must admit a superset of what Matches accepts.
type Filter struct {
	AnyTagKeys  []string
	TagContains TagFilter
	States      []string
}

// Tokens splits a tag value on the delimiter and trims every segment.
func Tokens(value, delimiter string) []string {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	parts := strings.Split(value, delimiter)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, strings.TrimSpace(part))
	}
	return out
}

// HasTag reports whether the first tag named key holds expected as one of its comma-delimited tokens.
func HasTag(inst Instance, key, expected string) bool {
	return hasTag(inst, key, expected, DefaultDelimiter)
}

func (k TagKeys) HasTag(inst Instance, key, expected string) bool {
	return hasTag(inst, key, expected, k.Delimiter)
}

func (k TagKeys) Matches(inst Instance, mc MatchContext) bool {
	return k.HasTag(inst, k.Roles, mc.Role) &&
		k.HasTag(inst, k.Stages, mc.Stage) &&
		k.HasTag(inst, k.Project, mc.Application)
}

func (k TagKeys) CoarseFilter(application string) Filter {
	return Filter{
		AnyTagKeys:  []string{k.Stages, k.Project},
		TagContains: TagFilter{Key: k.Project, Value: strings.TrimSpace(application)},
		States:      []string{StateRunning},
	}
}

func hasTag(inst Instance, key, expected, delimiter string) bool {
	value, ok := inst.TagValue(key)
	if !ok {
		return false
	}
	want := strings.TrimSpace(expected)
	for _, token := range Tokens(value, delimiter) {
		if token == want {
			return true
		}
	}
	return false
}
