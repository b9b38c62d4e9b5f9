package stock

import (
	"strings"

	"github.com/marmoleria/backend/internal/domain/shared"
)

// ContainerStatus is the shipping status of a container
type ContainerStatus string

const (
	ContainerStatusInProduction ContainerStatus = "IN_PRODUCTION"
	ContainerStatusInTransit    ContainerStatus = "IN_TRANSIT"
	ContainerStatusInPort       ContainerStatus = "IN_PORT"
	ContainerStatusDelayed      ContainerStatus = "DELAYED"
	ContainerStatusArrived      ContainerStatus = "ARRIVED"
)

// IsValid checks if the status is valid
func (s ContainerStatus) IsValid() bool {
	switch s {
	case ContainerStatusInProduction, ContainerStatusInTransit, ContainerStatusInPort,
		ContainerStatusDelayed, ContainerStatusArrived:
		return true
	}
	return false
}

// String returns the string representation
func (s ContainerStatus) String() string {
	return string(s)
}

// ParseContainerStatus parses a status case-insensitively
func ParseContainerStatus(s string) (ContainerStatus, error) {
	status := ContainerStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", shared.NewDomainErrorf(shared.CodeInvalidInput, "Unknown container status %q", s)
	}
	return status, nil
}

// CanTransitionTo checks if the status can transition to the target status
func (s ContainerStatus) CanTransitionTo(target ContainerStatus) bool {
	switch s {
	case ContainerStatusInProduction:
		return target == ContainerStatusInTransit
	case ContainerStatusInTransit:
		return target == ContainerStatusInPort || target == ContainerStatusDelayed
	case ContainerStatusInPort:
		return target == ContainerStatusArrived || target == ContainerStatusDelayed
	case ContainerStatusDelayed:
		return target == ContainerStatusInTransit || target == ContainerStatusInPort || target == ContainerStatusArrived
	case ContainerStatusArrived:
		return false
	}
	return false
}

// EligibilityPolicy is the set of container statuses whose stock may be allocated
type EligibilityPolicy map[ContainerStatus]struct{}

// DefaultEligibilityPolicy allows containers that arrived or are in port
func DefaultEligibilityPolicy() EligibilityPolicy {
	return NewEligibilityPolicy(ContainerStatusArrived, ContainerStatusInPort)
}

// NewEligibilityPolicy builds a policy from a list of statuses
func NewEligibilityPolicy(statuses ...ContainerStatus) EligibilityPolicy {
	p := make(EligibilityPolicy, len(statuses))
	for _, s := range statuses {
		p[s] = struct{}{}
	}
	return p
}

// ParseEligibilityPolicy parses configured status names
func ParseEligibilityPolicy(names []string) (EligibilityPolicy, error) {
	if len(names) == 0 {
		return DefaultEligibilityPolicy(), nil
	}
	statuses := make([]ContainerStatus, 0, len(names))
	for _, n := range names {
		s, err := ParseContainerStatus(n)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, s)
	}
	return NewEligibilityPolicy(statuses...), nil
}

// Allows reports whether containers in status s are eligible
func (p EligibilityPolicy) Allows(s ContainerStatus) bool {
	_, ok := p[s]
	return ok
}
