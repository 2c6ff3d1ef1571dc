package sv

import (
	"strconv"
	"strings"
)

// DebugFilter selects the variants and clusters for which the analyses emit
// verbose logs. The zero value matches nothing.
type DebugFilter struct {
	SVs      map[string]bool
	Clusters map[int]bool
}

// ParseDebugFilter parses comma-separated lists of variant names and cluster
// ids. Cluster ids that are not integers are reported as an error.
func ParseDebugFilter(svs, clusters string) (DebugFilter, error) {
	f := DebugFilter{}
	for _, name := range strings.Split(svs, ",") {
		if name = strings.TrimSpace(name); name != "" {
			if f.SVs == nil {
				f.SVs = map[string]bool{}
			}
			f.SVs[name] = true
		}
	}
	for _, s := range strings.Split(clusters, ",") {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		id, err := strconv.Atoi(s)
		if err != nil {
			return DebugFilter{}, err
		}
		if f.Clusters == nil {
			f.Clusters = map[int]bool{}
		}
		f.Clusters[id] = true
	}
	return f, nil
}

// MatchSV reports whether v (or the variant it was replicated from) is
// selected. tab may be nil if v is known to be an original.
func (f DebugFilter) MatchSV(tab *Table, v *Variant) bool {
	if len(f.SVs) == 0 {
		return false
	}
	if f.SVs[v.Name] {
		return true
	}
	return tab != nil && v.IsReplicated() && f.SVs[tab.Get(v.Original).Name]
}

// MatchCluster reports whether the cluster is selected.
func (f DebugFilter) MatchCluster(id int) bool { return f.Clusters[id] }
