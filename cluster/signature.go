package cluster

import (
	"sort"
	"strings"

	farm "github.com/dgryski/go-farm"
)

// ChainSignature fingerprints the current chains by variant name and side.
// It does not depend on IDs, chain order or link direction, so two runs
// over the same input yield the same value. A cluster without chains has
// signature 0.
func (c *Cluster) ChainSignature() uint64 {
	if len(c.chains) == 0 {
		return 0
	}
	keys := make([]string, 0, len(c.chains))
	for _, ch := range c.chains {
		links := make([]string, 0, ch.NumPairs())
		for _, p := range ch.Pairs() {
			a := c.tab.Get(p.First.ID).Name + ":" + p.First.Side.String()
			b := c.tab.Get(p.Second.ID).Name + ":" + p.Second.Side.String()
			if b < a {
				a, b = b, a
			}
			links = append(links, a+"-"+b)
		}
		sort.Strings(links)
		prefix := "open "
		if ch.Closed() {
			prefix = "closed "
		}
		keys = append(keys, prefix+strings.Join(links, ","))
	}
	sort.Strings(keys)
	return farm.Fingerprint64([]byte(strings.Join(keys, ";")))
}
