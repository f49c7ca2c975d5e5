package regex

import "github.com/yaklabco/tmscope/pkg/region"

// Match holds capture offsets as begin/end pairs, group 0 first, in the
// same layout as regexp.FindSubmatchIndex. Groups that did not participate
// have both offsets set to -1.
type Match []int

// NumGroups returns the number of groups including group 0.
func (m Match) NumGroups() int { return len(m) / 2 }

// Begin returns the start of the whole match.
func (m Match) Begin() int { return m[0] }

// End returns the end of the whole match.
func (m Match) End() int { return m[1] }

// Region returns the span of the whole match.
func (m Match) Region() region.Region { return region.New(m[0], m[1]) }

// Group returns the span of group i. The second result is false when the
// group does not exist or did not participate in the match.
func (m Match) Group(i int) (region.Region, bool) {
	if i < 0 || 2*i+1 >= len(m) || m[2*i] < 0 {
		return region.Region{}, false
	}
	return region.New(m[2*i], m[2*i+1]), true
}
