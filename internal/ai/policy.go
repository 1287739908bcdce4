package ai

import (
	"fmt"
	"strings"
)

// FailurePolicy decides what a component returns when the provider call,
// parsing or validation fails.
type FailurePolicy int

const (
	// DegradeOnError replaces the failure with a safe default result.
	DegradeOnError FailurePolicy = iota
	// SurfaceOnError reports the failure to the caller as an error record.
	SurfaceOnError
)

func (p FailurePolicy) String() string {
	switch p {
	case DegradeOnError:
		return "degrade"
	case SurfaceOnError:
		return "surface"
	default:
		return fmt.Sprintf("FailurePolicy(%d)", int(p))
	}
}

// ParseFailurePolicy accepts the names produced by String.
func ParseFailurePolicy(name string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "degrade":
		return DegradeOnError, nil
	case "surface":
		return SurfaceOnError, nil
	default:
		return 0, fmt.Errorf("unknown failure policy %q (want degrade or surface)", name)
	}
}
