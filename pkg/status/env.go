package status

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Environment variable names exported to every child process.
const (
	EnvRecord      = "APOLLO_RECORD"
	EnvDatacenter  = "APOLLO_DATACENTER"
	EnvServiceName = "APOLLO_SERVICE_NAME"
	EnvFastHealing = "APOLLO_FAST_HEALING"

	envStatusPrefix   = "APOLLO_SERVICE_STATUS_"
	envPrefix         = "APOLLO_"
	envSnapshotPrefix = "APOLLO_SNAPSHOT_"
)

// ServiceSummary is the cluster view of one registered service, as exported
// to child processes.
type ServiceSummary struct {
	// ID is the on-the-wire service id (main name, or "<sub>-<main>").
	ID string

	// Status is the consul status word of the local host's check.
	Status string

	// Since is the transition timestamp in unix seconds, -1 when the TTL
	// expired without a known transition.
	Since int64

	// Cluster-wide member counts per consul status.
	Passing  int
	Warning  int
	Critical int
}

// Any returns the total member count.
func (s ServiceSummary) Any() int {
	return s.Passing + s.Warning + s.Critical
}

// Environment describes the APOLLO_* bindings for one child invocation.
type Environment struct {
	ServiceName string
	Datacenter  string
	Services    []ServiceSummary
}

// Vars renders the environment as a key/value map.
//
// Each service yields APOLLO_SERVICE_STATUS_<UPPER(ID)> with value
// status=<st>,since=<ts>,passing=<n>,passing_pct=<p>,...,any=<total>,any_pct=<100|0>.
func (e Environment) Vars() map[string]string {
	vars := map[string]string{
		EnvRecord:      fmt.Sprintf("%s.service.%s.consul", e.ServiceName, e.Datacenter),
		EnvDatacenter:  e.Datacenter,
		EnvServiceName: e.ServiceName,
	}
	for _, svc := range e.Services {
		vars[envStatusPrefix+strings.ToUpper(svc.ID)] = svc.encode()
	}
	return vars
}

func (s ServiceSummary) encode() string {
	total := s.Any()
	anyPct := 0
	if total > 0 {
		anyPct = 100
	}
	var b strings.Builder
	fmt.Fprintf(&b, "status=%s,since=%d", s.Status, s.Since)
	fmt.Fprintf(&b, ",passing=%d,passing_pct=%d", s.Passing, pct(s.Passing, total))
	fmt.Fprintf(&b, ",warning=%d,warning_pct=%d", s.Warning, pct(s.Warning, total))
	fmt.Fprintf(&b, ",critical=%d,critical_pct=%d", s.Critical, pct(s.Critical, total))
	fmt.Fprintf(&b, ",any=%d,any_pct=%d", total, anyPct)
	return b.String()
}

func pct(count, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(count) * 100 / float64(total)))
}

// SnapshotVars rewrites a set of APOLLO_* bindings to their
// APOLLO_SNAPSHOT_* form. Keys without the APOLLO_ prefix are dropped.
func SnapshotVars(vars map[string]string) map[string]string {
	snap := make(map[string]string, len(vars))
	for k, v := range vars {
		if strings.HasPrefix(k, envPrefix) {
			snap[envSnapshotPrefix+strings.TrimPrefix(k, envPrefix)] = v
		}
	}
	return snap
}

// MergeEnv flattens maps into the KEY=VALUE slice handed to exec, later
// maps overriding earlier ones. Keys are sorted for stable child
// environments.
func MergeEnv(maps ...map[string]string) []string {
	merged := map[string]string{}
	for _, m := range maps {
		for k, v := range m {
			merged[k] = v
		}
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+merged[k])
	}
	return env
}
