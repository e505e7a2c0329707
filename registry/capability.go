// Package registry implements the boundary collaborators of the sale and
// governance engines: the contract/event directory, the protocol policy
// (fee, treasury, global pause latch) and the capability authorizer.
//
// These are single-instance objects constructed once at bootstrap and passed
// explicitly into every engine constructor. They are never reached through
// ambient global state, and their reconfiguration operations are themselves
// capability-gated, audited events.
package registry

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-pool-core/inter"
)

// Capability names a permission an actor may hold. Operations check exactly
// one capability at their top via Authorizer.Authorize instead of layering
// role-gated guard methods.
type Capability uint8

const (
	// CapOwner may create sale events directly and reconfigure the pool.
	CapOwner Capability = iota
	// CapSecretary may pause the service and cancel proposals.
	CapSecretary
	// CapManager may open vesting claim gates.
	CapManager
	// CapProposer grants standing proposal rights regardless of held vote
	// weight.
	CapProposer
)

func (c Capability) String() string {
	switch c {
	case CapOwner:
		return "owner"
	case CapSecretary:
		return "secretary"
	case CapManager:
		return "manager"
	case CapProposer:
		return "proposer"
	default:
		return fmt.Sprintf("capability-%d", uint8(c))
	}
}

// Authorizer maps actors to capability grants.
type Authorizer struct {
	grants map[common.Address]map[Capability]bool
}

// NewAuthorizer returns an empty authorizer.
func NewAuthorizer() *Authorizer {
	return &Authorizer{grants: make(map[common.Address]map[Capability]bool)}
}

// Grant gives the actor a capability.
func (a *Authorizer) Grant(actor common.Address, cap Capability) {
	set, ok := a.grants[actor]
	if !ok {
		set = make(map[Capability]bool)
		a.grants[actor] = set
	}
	set[cap] = true
}

// Revoke removes a capability from the actor.
func (a *Authorizer) Revoke(actor common.Address, cap Capability) {
	if set, ok := a.grants[actor]; ok {
		delete(set, cap)
	}
}

// Has reports whether the actor holds the capability.
func (a *Authorizer) Has(actor common.Address, cap Capability) bool {
	return a.grants[actor][cap]
}

// Authorize fails with ErrUnauthorized unless the actor holds the
// capability.
func (a *Authorizer) Authorize(actor common.Address, cap Capability) error {
	if !a.Has(actor, cap) {
		return fmt.Errorf("%w: %s requires %s", inter.ErrUnauthorized, actor.Hex(), cap)
	}
	return nil
}
