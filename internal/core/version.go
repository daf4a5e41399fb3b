package core

import (
	"sort"
	"strings"

	debversion "github.com/knqyf263/go-deb-version"

	"obsctl/internal/types"
)

// versionCache memoizes parsed version-release strings. A nil entry marks a
// value that failed to parse.
type versionCache struct {
	parsed map[string]*debversion.Version
}

func newVersionCache() *versionCache {
	return &versionCache{parsed: map[string]*debversion.Version{}}
}

func (c *versionCache) version(value string) (debversion.Version, bool) {
	if parsed, ok := c.parsed[value]; ok {
		if parsed == nil {
			return debversion.Version{}, false
		}
		return *parsed, true
	}
	parsed, err := debversion.NewVersion(strings.TrimSpace(value))
	if err != nil {
		c.parsed[value] = nil
		return debversion.Version{}, false
	}
	c.parsed[value] = &parsed
	return parsed, true
}

// compareVersRel orders two version-release strings. Unparseable values
// sort before parseable ones and fall back to a string comparison among
// themselves.
func (c *versionCache) compareVersRel(a string, b string) int {
	va, okA := c.version(a)
	vb, okB := c.version(b)
	switch {
	case okA && okB:
		return va.Compare(vb)
	case okA:
		return 1
	case okB:
		return -1
	default:
		return strings.Compare(a, b)
	}
}

// SortBuildHistory orders entries from oldest to newest by version-release,
// then build count, then build time.
func SortBuildHistory(entries []types.BuildHistoryEntry) []types.BuildHistoryEntry {
	cache := newVersionCache()
	sorted := append([]types.BuildHistoryEntry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if cmp := cache.compareVersRel(sorted[i].VersRel, sorted[j].VersRel); cmp != 0 {
			return cmp < 0
		}
		if sorted[i].BCnt != sorted[j].BCnt {
			return sorted[i].BCnt < sorted[j].BCnt
		}
		return sorted[i].Time < sorted[j].Time
	})
	return sorted
}

// LatestBuild returns the newest entry of a build history.
func LatestBuild(entries []types.BuildHistoryEntry) (types.BuildHistoryEntry, bool) {
	if len(entries) == 0 {
		return types.BuildHistoryEntry{}, false
	}
	sorted := SortBuildHistory(entries)
	return sorted[len(sorted)-1], true
}
