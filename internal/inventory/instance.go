// Package inventory finds the instances serving each deployment role by querying
// every configured region and matching instance tags.
package inventory

import "strings"

const StateRunning = "running"

type Tag struct {
	Key   string
	Value string
}

// Instance is a snapshot of one compute instance taken during a single query pass.
type Instance struct {
	ID               string
	State            string
	Type             string
	AvailabilityZone string
	PublicDNS        string
	PublicIP         string
	PrivateDNS       string
	PrivateIP        string
	Tags             []Tag

	lookup map[string]string
}

// NewInstance indexes tags once. When a key repeats, the first entry wins.
func NewInstance(id string, tags []Tag) Instance {
	lookup := make(map[string]string, len(tags))
	for _, tag := range tags {
		if _, ok := lookup[tag.Key]; ok {
			continue
		}
		lookup[tag.Key] = tag.Value
	}
	return Instance{ID: id, Tags: tags, lookup: lookup}
}

func (i Instance) TagValue(key string) (string, bool) {
	if i.lookup != nil {
		value, ok := i.lookup[key]
		return value, ok
	}
	for _, tag := range i.Tags {
		if tag.Key == key {
			return tag.Value, true
		}
	}
	return "", false
}

// DisplayName returns the value of the name tag, or "" when absent.
func (i Instance) DisplayName(nameKey string) string {
	value, _ := i.TagValue(nameKey)
	return value
}

func (i Instance) ContactPoint(preference string) string {
	candidates := []string{i.PublicDNS, i.PublicIP, i.PrivateIP, i.PrivateDNS}
	switch preference {
	case "public_ip":
		candidates = []string{i.PublicIP, i.PublicDNS, i.PrivateIP, i.PrivateDNS}
	case "private_ip":
		candidates = []string{i.PrivateIP, i.PrivateDNS, i.PublicIP, i.PublicDNS}
	case "private_dns":
		candidates = []string{i.PrivateDNS, i.PrivateIP, i.PublicDNS, i.PublicIP}
	}
	for _, candidate := range candidates {
		if candidate = strings.TrimSpace(candidate); candidate != "" {
			return candidate
		}
	}
	return ""
}
