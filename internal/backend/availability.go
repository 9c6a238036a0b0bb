package backend

import "strings"

// Available returns a comma-separated list of tiers this machine runs
// natively, narrowest first.
func Available() string {
	detected := Detect().Tier
	entries := make([]string, 0, len(Tiers()))
	for _, t := range Tiers() {
		if t <= detected {
			entries = append(entries, t.String())
		}
	}
	return strings.Join(entries, ",")
}
