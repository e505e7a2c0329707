package registry

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-pool-core/inter"
)

// Policy is the protocol-level configuration service: the current protocol
// fee percentage, the fee treasury address, and the global pause latch.
// While paused, every mutating operation in the core fails fast with
// ErrServicePaused without altering state.
type Policy struct {
	log  logrus.FieldLogger
	auth *Authorizer

	feePct      inter.Pct
	feeTreasury common.Address
	paused      bool
}

// NewPolicy creates the policy service with an initial fee configuration.
func NewPolicy(log logrus.FieldLogger, auth *Authorizer, feePct inter.Pct, feeTreasury common.Address) (*Policy, error) {
	if !feePct.Valid() {
		return nil, fmt.Errorf("%w: protocol fee out of range", inter.ErrInvalidParameters)
	}
	return &Policy{
		log:         log.WithField("module", "policy"),
		auth:        auth,
		feePct:      feePct,
		feeTreasury: feeTreasury,
	}, nil
}

// FeePct returns the current protocol fee percentage.
func (p *Policy) FeePct() inter.Pct {
	return p.feePct
}

// FeeTreasury returns the protocol fee treasury address.
func (p *Policy) FeeTreasury() common.Address {
	return p.feeTreasury
}

// Paused reports the global pause latch.
func (p *Policy) Paused() bool {
	return p.paused
}

// Guard is placed at the top of every mutating operation: it fails with
// ErrServicePaused while the latch is set.
func (p *Policy) Guard() error {
	if p.paused {
		return inter.ErrServicePaused
	}
	return nil
}

// SetPaused flips the pause latch. Secretary capability required.
func (p *Policy) SetPaused(actor common.Address, paused bool) error {
	if err := p.auth.Authorize(actor, CapSecretary); err != nil {
		return err
	}
	p.paused = paused
	p.log.WithFields(logrus.Fields{"actor": actor.Hex(), "paused": paused}).Warn("pause latch changed")
	return nil
}

// SetFee reconfigures the protocol fee. Owner capability required; the new
// percentage must be within range.
func (p *Policy) SetFee(actor common.Address, feePct inter.Pct, feeTreasury common.Address) error {
	if err := p.auth.Authorize(actor, CapOwner); err != nil {
		return err
	}
	if !feePct.Valid() {
		return fmt.Errorf("%w: protocol fee out of range", inter.ErrInvalidParameters)
	}
	p.feePct = feePct
	p.feeTreasury = feeTreasury
	p.log.WithFields(logrus.Fields{"actor": actor.Hex(), "fee": feePct.String()}).Info("protocol fee changed")
	return nil
}
