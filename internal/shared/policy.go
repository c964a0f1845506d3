package shared

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Outcome classifies one shared dependency negotiation.
type Outcome string

const (
	// OutcomeHost: the host copy satisfies the remote's range.
	OutcomeHost Outcome = "host"
	// OutcomeMismatch: the range is not satisfied but stays within the host's
	// major version. The host copy is used and the mismatch is logged.
	OutcomeMismatch Outcome = "mismatch"
	// OutcomeIncompatible: a hard violation; the load fails.
	OutcomeIncompatible Outcome = "incompatible"
	// OutcomeSkipped: the host does not share this dependency.
	OutcomeSkipped Outcome = "skipped"
)

// Decision is a policy verdict for one requirement.
type Decision struct {
	Outcome Outcome
	Reason  string
}

// Policy decides whether a host version can serve a remote's requirement.
type Policy interface {
	Check(hostVersion string, req Requirement) Decision
}

// SemverPolicy is the default policy. Ranges use semver constraint syntax
// (^1.2.0, ~1.4, >=1.0.0 <2.0.0).
type SemverPolicy struct{}

var versionToken = regexp.MustCompile(`v?\d+(\.\d+){0,2}`)

func (SemverPolicy) Check(hostVersion string, req Requirement) Decision {
	rng := strings.TrimSpace(req.RequiredVersion)
	if rng == "" || rng == "*" {
		return Decision{Outcome: OutcomeHost}
	}

	host, err := semver.NewVersion(hostVersion)
	if err != nil {
		return Decision{Outcome: OutcomeIncompatible, Reason: fmt.Sprintf("host version %q is not semver", hostVersion)}
	}
	constraint, err := semver.NewConstraint(rng)
	if err != nil {
		return Decision{Outcome: OutcomeIncompatible, Reason: fmt.Sprintf("unparseable version range %q", rng)}
	}
	if constraint.Check(host) {
		return Decision{Outcome: OutcomeHost}
	}
	if req.StrictVersion {
		return Decision{Outcome: OutcomeIncompatible, Reason: "strict version required"}
	}
	if allowsMajor(constraint, rng, host.Major()) {
		return Decision{Outcome: OutcomeMismatch, Reason: fmt.Sprintf("%s does not satisfy %s", host, rng)}
	}
	return Decision{Outcome: OutcomeIncompatible, Reason: "major version differs"}
}

// allowsMajor reports whether the constraint admits some version with the
// given major. Candidates are major.0.0 plus each version named in the range
// with that major, and its next patch and minor, so exclusive bounds such as
// <2.0.0 do not count as admitting 2.x.
func allowsMajor(c *semver.Constraints, rng string, major uint64) bool {
	if c.Check(semver.New(major, 0, 0, "", "")) {
		return true
	}
	for _, tok := range versionToken.FindAllString(rng, -1) {
		v, err := semver.NewVersion(tok)
		if err != nil || v.Major() != major {
			continue
		}
		patch, minor := v.IncPatch(), v.IncMinor()
		if c.Check(v) || c.Check(&patch) || c.Check(&minor) {
			return true
		}
	}
	return false
}
