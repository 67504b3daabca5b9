package domain

import (
	"sort"
	"strings"
	"time"
)

const AvailabilityAvailable = "available"

type Resource struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	Location     string    `json:"location"`
	Capacity     int       `json:"capacity"`
	Equipment    []string  `json:"equipment"`
	Availability string    `json:"availability"`
	ImageURL     string    `json:"image_url,omitempty"`
	Tags         []string  `json:"tags"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasAllTags reports whether the resource carries every tag in want.
// An empty want matches every resource.
func (r *Resource) HasAllTags(want []string) bool {
	if len(want) == 0 {
		return true
	}
	have := make(map[string]struct{}, len(r.Tags))
	for _, t := range r.Tags {
		have[strings.ToLower(t)] = struct{}{}
	}
	for _, t := range want {
		if _, ok := have[strings.ToLower(t)]; !ok {
			return false
		}
	}
	return true
}

// SplitList turns "a, b,,c" into [a b c].
func SplitList(s string) []string {
	out := make([]string, 0)
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CleanList trims every entry and drops empties and duplicates, keeping order.
func CleanList(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// CollectTags returns the sorted union of tags across resources.
func CollectTags(resources []Resource) []string {
	set := make(map[string]struct{})
	for _, r := range resources {
		for _, t := range r.Tags {
			set[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
