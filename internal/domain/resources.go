package domain

import "strings"

// ResourceValues is the immutable resource type -> weight table used for scoring.
// Lookups are case-insensitive; unknown resource types weigh 0.
type ResourceValues struct {
	weights map[string]int64
}

// NewResourceValues copies weights into a new table with lowercased keys
func NewResourceValues(weights map[string]int64) ResourceValues {
	table := make(map[string]int64, len(weights))
	for resource, weight := range weights {
		table[strings.ToLower(resource)] = weight
	}
	return ResourceValues{weights: table}
}

// Weight returns the value of one unit of resourceType
func (v ResourceValues) Weight(resourceType string) int64 {
	return v.weights[strings.ToLower(resourceType)]
}

// Len returns the number of known resource types
func (v ResourceValues) Len() int {
	return len(v.weights)
}
