package governance

import (
	"fmt"
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-pool-core/inter"
	"github.com/rony4d/go-pool-core/registry"
)

// Engine runs the proposal lifecycle for one governed pool.
type Engine struct {
	log   logrus.FieldLogger
	clock inter.Clock

	addr   common.Address // directory address of the governor
	policy *registry.Policy
	dir    *registry.Directory
	auth   *registry.Authorizer

	weights WeightSource
	exec    Executor

	// ready gates proposal creation on pool eligibility (a pool only
	// becomes self-governing once its primary sale succeeds). Nil means
	// always ready.
	ready func() error

	cfg Config

	nextID       uint64
	proposals    map[uint64]*Proposal
	ballots      map[uint64]map[common.Address]Ballot
	guards       map[uint64]*inter.Guard
	lastExecuted uint64
}

// EngineConfig wires a new engine to its collaborators.
type EngineConfig struct {
	Addr      common.Address
	Config    Config
	Weights   WeightSource
	Executor  Executor
	Policy    *registry.Policy
	Directory *registry.Directory
	Auth      *registry.Authorizer
	Clock     inter.Clock
	Log       logrus.FieldLogger

	// Ready gates Propose; nil means no gate.
	Ready func() error
}

// NewEngine validates the configuration and registers the governor with the
// directory.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := cfg.Config.Validate(); err != nil {
		return nil, err
	}
	if _, err := cfg.Directory.AddContractRecord(cfg.Addr, registry.KindGovernor); err != nil {
		return nil, err
	}
	return &Engine{
		log:       cfg.Log.WithField("module", "governance"),
		clock:     cfg.Clock,
		addr:      cfg.Addr,
		policy:    cfg.Policy,
		dir:       cfg.Directory,
		auth:      cfg.Auth,
		weights:   cfg.Weights,
		exec:      cfg.Executor,
		ready:     cfg.Ready,
		cfg:       cfg.Config.clone(),
		nextID:    1,
		proposals: make(map[uint64]*Proposal),
		ballots:   make(map[uint64]map[common.Address]Ballot),
		guards:    make(map[uint64]*inter.Guard),
	}, nil
}

// Config returns a copy of the current governance configuration.
func (g *Engine) Config() Config { return g.cfg.clone() }

// SetConfig replaces the governance configuration. Reached through an
// executed ActionSetConfig; proposals already created keep the thresholds
// they copied.
func (g *Engine) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	g.cfg = cfg.clone()
	g.log.Info("governance config changed")
	return nil
}

// LastExecuted returns the id of the most recently executed proposal, used
// to correlate a just-created sale event with the proposal that authorized
// it. Zero means none.
func (g *Engine) LastExecuted() uint64 { return g.lastExecuted }

// Proposal returns the proposal with the given id, or nil.
func (g *Engine) Proposal(id uint64) *Proposal { return g.proposals[id] }

// BallotOf returns the voter's ballot on the proposal; Support is VoteNone
// if no ballot was cast.
func (g *Engine) BallotOf(id uint64, voter common.Address) Ballot {
	if b, ok := g.ballots[id][voter]; ok {
		return Ballot{Support: b.Support, Weight: new(big.Int).Set(b.Weight)}
	}
	return Ballot{Support: VoteNone, Weight: new(big.Int)}
}

// proposalRecord is the RLP audit payload for proposal lifecycle events.
type proposalRecord struct {
	ID       uint64
	Proposer common.Address
	Meta     common.Hash
}

// Propose creates a proposal from an ordered action list. The proposer must
// hold at least ProposalThreshold vote weight at the previous block or carry
// the standing proposer capability. The thresholds and execution delay in
// force now are copied onto the proposal and never updated retroactively.
func (g *Engine) Propose(proposer common.Address, cat Category, actions []Action, description string) (uint64, error) {
	if err := g.policy.Guard(); err != nil {
		return 0, err
	}
	if g.ready != nil {
		if err := g.ready(); err != nil {
			return 0, err
		}
	}
	if len(actions) == 0 {
		return 0, fmt.Errorf("%w: proposal needs at least one action", inter.ErrInvalidParameters)
	}
	for _, a := range actions {
		if err := a.Validate(); err != nil {
			return 0, err
		}
	}
	if !g.auth.Has(proposer, registry.CapProposer) {
		now := g.clock.Current()
		weight := g.weights.VotesAt(proposer, prevBlock(now))
		if weight.Cmp(g.cfg.ProposalThreshold) < 0 {
			return 0, fmt.Errorf("%w: vote weight below proposal threshold", inter.ErrUnauthorized)
		}
	}

	now := g.clock.Current()
	id := g.nextID
	p := &Proposal{
		ID:                id,
		Proposer:          proposer,
		Category:          cat,
		Actions:           actions,
		Description:       description,
		MetadataHash:      HashActions(actions),
		QuorumThreshold:   g.cfg.QuorumThreshold,
		DecisionThreshold: g.cfg.DecisionThreshold,
		ExecutionDelay:    g.cfg.DelayFor(cat),
		StartBlock:        now + g.cfg.VotingStartDelay,
		EndBlock:          now + g.cfg.VotingStartDelay + g.cfg.VotingDuration,
		ForVotes:          new(big.Int),
		AgainstVotes:      new(big.Int),
	}

	if _, _, err := g.dir.AddEventRecord("proposal.created", g.addr, proposalRecord{
		ID:       id,
		Proposer: proposer,
		Meta:     p.MetadataHash,
	}); err != nil {
		return 0, err
	}
	g.nextID++
	g.proposals[id] = p
	g.ballots[id] = make(map[common.Address]Ballot)
	g.guards[id] = &inter.Guard{}
	g.resolveAvailable(p)

	g.log.WithFields(logrus.Fields{
		"proposal": id,
		"proposer": proposer.Hex(),
		"category": cat.String(),
		"start":    uint64(p.StartBlock),
		"end":      uint64(p.EndBlock),
	}).Info("proposal created")
	return id, nil
}

// CastVote records an immutable ballot inside the voting window. The weight
// counted is the voter's snapshot at startBlock-1, unaffected by any balance
// change after that block. After tallying, the vote may lock the outcome
// early (see evaluateEarlyExit).
func (g *Engine) CastVote(voter common.Address, id uint64, support Support) error {
	p, ok := g.proposals[id]
	if !ok {
		return fmt.Errorf("%w: no such proposal", inter.ErrWrongState)
	}
	release, err := g.guards[id].Enter()
	if err != nil {
		return err
	}
	defer release()
	if err := g.policy.Guard(); err != nil {
		return err
	}
	if support != VoteFor && support != VoteAgainst {
		return fmt.Errorf("%w: invalid support value", inter.ErrInvalidParameters)
	}
	now := g.clock.Current()
	if now < p.StartBlock || now >= p.EndBlock {
		return fmt.Errorf("%w: outside voting window", inter.ErrWrongState)
	}
	if p.cancelled {
		return fmt.Errorf("%w: proposal cancelled", inter.ErrWrongState)
	}
	if p.lockedResult != VoteNone {
		return fmt.Errorf("%w: outcome already locked in", inter.ErrWrongState)
	}
	if g.ballots[id][voter].Support != VoteNone {
		return inter.ErrAlreadyVoted
	}
	weight := g.weights.VotesAt(voter, prevBlock(p.StartBlock))
	if weight.Sign() == 0 {
		return inter.ErrZeroVotes
	}

	g.ballots[id][voter] = Ballot{Support: support, Weight: weight}
	if support == VoteFor {
		p.ForVotes.Add(p.ForVotes, weight)
	} else {
		p.AgainstVotes.Add(p.AgainstVotes, weight)
	}
	g.resolveAvailable(p)
	g.evaluateEarlyExit(p)

	g.log.WithFields(logrus.Fields{
		"proposal": id,
		"voter":    voter.Hex(),
		"support":  support == VoteFor,
		"weight":   weight.String(),
	}).Info("vote cast")
	return nil
}

// ProposalState resolves a proposal's state purely from its record and the
// clock. Early-exit only locks the result: the execution-delay clock still
// runs from endBlock, never earlier.
func (g *Engine) ProposalState(id uint64) ProposalState {
	p, ok := g.proposals[id]
	if !ok {
		return StateNone
	}
	switch {
	case p.cancelled:
		return StateCancelled
	case p.executed:
		return StateExecuted
	}
	now := g.clock.Current()
	if p.lockedResult == VoteAgainst {
		return StateFailed
	}
	if p.lockedResult == VoteFor {
		return g.decidedForState(p, now)
	}
	if now < p.EndBlock {
		return StateActive
	}
	avail := g.resolveAvailable(p)
	participation := new(big.Int).Add(p.ForVotes, p.AgainstVotes)
	if !reached(participation, avail, p.QuorumThreshold) {
		return StateFailed
	}
	if !reached(p.ForVotes, participation, p.DecisionThreshold) {
		return StateFailed
	}
	return g.decidedForState(p, now)
}

func (g *Engine) decidedForState(p *Proposal, now idx.Block) ProposalState {
	if now < p.EndBlock+p.ExecutionDelay {
		return StateDelayed
	}
	return StateAwaitingExecution
}

// Execute applies the proposal's action list all-or-nothing: the full list
// is checked for joint feasibility before any action is applied, and a
// failure leaves the proposal in AwaitingExecution, retryable. On success
// the proposal is marked Executed and recorded as the pool's last executed
// proposal.
func (g *Engine) Execute(caller common.Address, id uint64) error {
	p, ok := g.proposals[id]
	if !ok {
		return fmt.Errorf("%w: no such proposal", inter.ErrWrongState)
	}
	release, err := g.guards[id].Enter()
	if err != nil {
		return err
	}
	defer release()
	if err := g.policy.Guard(); err != nil {
		return err
	}
	if st := g.ProposalState(id); st != StateAwaitingExecution {
		return fmt.Errorf("%w: proposal is %s, not awaiting execution", inter.ErrWrongState, st)
	}
	if err := g.exec.CheckActions(p.Actions); err != nil {
		return fmt.Errorf("action list rejected: %w", err)
	}
	for _, a := range p.Actions {
		if err := g.exec.ApplyAction(a); err != nil {
			// checks passed, so an apply failure is a collaborator bug;
			// the proposal stays retryable
			g.log.WithError(err).WithField("proposal", id).Error("action apply failed after checks")
			return err
		}
	}
	p.executed = true
	g.lastExecuted = id

	if _, _, err := g.dir.AddEventRecord("proposal.executed", g.addr, proposalRecord{
		ID:       id,
		Proposer: p.Proposer,
		Meta:     p.MetadataHash,
	}); err != nil {
		return err
	}
	g.log.WithFields(logrus.Fields{"proposal": id, "caller": caller.Hex()}).Info("proposal executed")
	return nil
}

// Cancel is the privileged emergency brake: it marks a non-terminal proposal
// Cancelled. It is recorded distinctly from normal execution.
func (g *Engine) Cancel(actor common.Address, id uint64) error {
	p, ok := g.proposals[id]
	if !ok {
		return fmt.Errorf("%w: no such proposal", inter.ErrWrongState)
	}
	if err := g.policy.Guard(); err != nil {
		return err
	}
	if err := g.auth.Authorize(actor, registry.CapSecretary); err != nil {
		return err
	}
	if st := g.ProposalState(id); st.Terminal() {
		return fmt.Errorf("%w: proposal is already %s", inter.ErrWrongState, st)
	}
	p.cancelled = true

	if _, _, err := g.dir.AddEventRecord("proposal.cancelled", g.addr, proposalRecord{
		ID:       id,
		Proposer: p.Proposer,
		Meta:     p.MetadataHash,
	}); err != nil {
		return err
	}
	g.log.WithFields(logrus.Fields{"proposal": id, "actor": actor.Hex()}).Warn("proposal cancelled")
	return nil
}

// resolveAvailable lazily pins the proposal's available-votes snapshot once
// the snapshot block has been reached.
func (g *Engine) resolveAvailable(p *Proposal) *big.Int {
	if p.availableVotes == nil && g.clock.Current() >= p.StartBlock {
		p.availableVotes = g.weights.TotalVotesAt(prevBlock(p.StartBlock))
	}
	if p.availableVotes == nil {
		return new(big.Int)
	}
	return p.availableVotes
}

// evaluateEarlyExit locks the proposal's result once the undecided remainder
// cannot flip the outcome:
//
//   - inevitable For: quorum is already satisfied (participation only ever
//     grows) and the decision threshold holds even if the entire remainder
//     votes against;
//   - inevitable Against: the decision threshold fails even if the entire
//     remainder votes for.
//
// Locking only accelerates the result: the voting end and the execution
// delay clocks are unchanged.
func (g *Engine) evaluateEarlyExit(p *Proposal) {
	avail := p.availableVotes
	if avail == nil || avail.Sign() == 0 {
		return
	}
	participation := new(big.Int).Add(p.ForVotes, p.AgainstVotes)
	undecided := new(big.Int).Sub(avail, participation)
	if undecided.Sign() < 0 {
		undecided.SetUint64(0)
	}

	if reached(participation, avail, p.QuorumThreshold) &&
		reached(p.ForVotes, avail, p.DecisionThreshold) {
		p.lockedResult = VoteFor
		g.log.WithField("proposal", p.ID).Info("outcome locked in: for")
		return
	}
	bestFor := new(big.Int).Add(p.ForVotes, undecided)
	if !reached(bestFor, avail, p.DecisionThreshold) {
		p.lockedResult = VoteAgainst
		g.log.WithField("proposal", p.ID).Info("outcome locked in: against")
	}
}

// reached evaluates part * DENOM >= whole * threshold, the shared
// quorum/decision comparison.
func reached(part, whole *big.Int, threshold inter.Pct) bool {
	lhs := new(big.Int).Mul(part, new(big.Int).SetUint64(inter.PctDenom))
	rhs := new(big.Int).Mul(whole, new(big.Int).SetUint64(uint64(threshold)))
	return lhs.Cmp(rhs) >= 0
}

func prevBlock(b idx.Block) idx.Block {
	if b == 0 {
		return 0
	}
	return b - 1
}
