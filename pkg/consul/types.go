package consul

import (
	"regexp"
	"strconv"
	"strings"
)

// Markers Apollo embeds in the check note on every TTL push. The node
// listing parses them back out of the check Output.
const (
	markerByApollo   = "by:apollo"
	markerLastChange = "Last change was on "

	// SinceUnknown is reported when the TTL expired, or when the output
	// carries no transition marker (a push Apollo did not author).
	SinceUnknown = float64(-1)
)

var lastChangeRe = regexp.MustCompile(regexp.QuoteMeta(markerLastChange) + `(-?[0-9]+(?:\.[0-9]+)?)`)

// NodeCheck is the read model of one check on this node.
type NodeCheck struct {
	ServiceID string
	CheckID   string
	Status    string
	Output    string

	// Since is the transition timestamp parsed from the output note,
	// SinceUnknown when the TTL expired or no marker is present.
	Since float64

	// ByApollo reports whether Apollo authored the last transition.
	ByApollo bool
}

// ServiceHealth aggregates the per-status member counts of one service.
type ServiceHealth struct {
	Passing  int
	Warning  int
	Critical int

	// CriticalHosts holds the sorted hostnames of critical members, when
	// requested.
	CriticalHosts []string
}

// Any returns the total member count.
func (h ServiceHealth) Any() int {
	return h.Passing + h.Warning + h.Critical
}

// AgentCheck is one entry of the /v1/agent/checks dump.
type AgentCheck struct {
	CheckID     string `json:"CheckID"`
	Name        string `json:"Name"`
	Status      string `json:"Status"`
	ServiceID   string `json:"ServiceID"`
	ServiceName string `json:"ServiceName"`
}

// rawCheck mirrors consul's health check JSON.
type rawCheck struct {
	Node        string `json:"Node"`
	CheckID     string `json:"CheckID"`
	Name        string `json:"Name"`
	Status      string `json:"Status"`
	Output      string `json:"Output"`
	ServiceID   string `json:"ServiceID"`
	ServiceName string `json:"ServiceName"`
}

type rawNode struct {
	Node string `json:"Node"`
}

// rawServiceEntry mirrors one element of /v1/health/service/<name>.
type rawServiceEntry struct {
	Node   rawNode    `json:"Node"`
	Checks []rawCheck `json:"Checks"`
}

// Note renders the check note pushed with every TTL update. byApollo marks
// Apollo's authorship; since is the transition timestamp to encode — the
// fresh one when the status changed, the preserved prior one otherwise.
func Note(byApollo bool, since float64) string {
	var b strings.Builder
	if byApollo {
		b.WriteString(markerByApollo)
		b.WriteString(" ")
	}
	b.WriteString(markerLastChange)
	b.WriteString(strconv.FormatFloat(since, 'f', -1, 64))
	return b.String()
}

func parseSince(output string) float64 {
	if strings.Contains(output, "TTL expired") {
		return SinceUnknown
	}
	m := lastChangeRe.FindStringSubmatch(output)
	if m == nil {
		return SinceUnknown
	}
	since, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return SinceUnknown
	}
	return since
}

func parseByApollo(output string) bool {
	return strings.Contains(output, markerByApollo)
}
