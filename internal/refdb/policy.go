package refdb

import (
	"fmt"
	"strings"
)

// SingleReferencePolicy decides how Predict treats a database holding one
// reference, where no runner-up exists to measure confidence against.
type SingleReferencePolicy int

const (
	// PolicyScore reports the reference's score as the confidence.
	PolicyScore SingleReferencePolicy = iota
	// PolicyReject fails the prediction with ErrInsufficientReferences.
	PolicyReject
)

func (p SingleReferencePolicy) String() string {
	switch p {
	case PolicyScore:
		return "score"
	case PolicyReject:
		return "reject"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy converts a configuration value into a SingleReferencePolicy.
func ParsePolicy(value string) (SingleReferencePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "score":
		return PolicyScore, nil
	case "reject":
		return PolicyReject, nil
	default:
		return PolicyScore, fmt.Errorf("single reference policy: unsupported value %q", value)
	}
}
