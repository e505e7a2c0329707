package governance

import (
	"math/big"
	"testing"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-pool-core/chaincore"
	"github.com/rony4d/go-pool-core/inter"
	"github.com/rony4d/go-pool-core/ledger"
	"github.com/rony4d/go-pool-core/registry"
	"github.com/rony4d/go-pool-core/sale"
)

var (
	alice     = common.HexToAddress("0x0a") // 500 vote weight
	bob       = common.HexToAddress("0x0b") // 400
	carol     = common.HexToAddress("0x0c") // 100
	dave      = common.HexToAddress("0x0d") // none
	secretary = common.HexToAddress("0x05")
)

// stubExecutor records applied actions and can be set to reject checks.
type stubExecutor struct {
	checkErr error
	applied  []Action
}

func (s *stubExecutor) CheckActions(actions []Action) error { return s.checkErr }
func (s *stubExecutor) ApplyAction(a Action) error {
	s.applied = append(s.applied, a)
	return nil
}

type fixture struct {
	clock  *chaincore.Clock
	token  *ledger.Token
	auth   *registry.Authorizer
	policy *registry.Policy
	exec   *stubExecutor
	engine *Engine
}

func defaultConfig() Config {
	return Config{
		ProposalThreshold: big.NewInt(100),
		QuorumThreshold:   inter.PctFromPercent(40),
		DecisionThreshold: inter.PctFromPercent(50),
		VotingStartDelay:  5,
		VotingDuration:    10,
		ExecutionDelays: map[Category]idx.Block{
			CategoryGeneral: 10,
			CategoryFunding: 20,
		},
	}
}

// newFixture builds an engine over a token ledger holding 1000 total vote
// weight: alice 500, bob 400, carol 100, minted before block 101.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	clock := chaincore.NewClock(100)
	tok, err := ledger.NewToken(clock, log, "Test Equity", "TEQ", big.NewInt(1_000_000))
	require.NoError(t, err)
	require.NoError(t, tok.Mint(alice, big.NewInt(500)))
	require.NoError(t, tok.Mint(bob, big.NewInt(400)))
	require.NoError(t, tok.Mint(carol, big.NewInt(100)))
	clock.Advance(1) // proposals snapshot the block before their start

	auth := registry.NewAuthorizer()
	auth.Grant(secretary, registry.CapSecretary)
	policy, err := registry.NewPolicy(log, auth, inter.PctZero, common.Address{})
	require.NoError(t, err)
	exec := &stubExecutor{}

	engine, err := NewEngine(EngineConfig{
		Addr:      common.HexToAddress("0x60"),
		Config:    defaultConfig(),
		Weights:   NewLedgerWeights(tok),
		Executor:  exec,
		Policy:    policy,
		Directory: registry.NewDirectory(clock, log),
		Auth:      auth,
		Clock:     clock,
		Log:       log,
	})
	require.NoError(t, err)
	return &fixture{clock: clock, token: tok, auth: auth, policy: policy, exec: exec, engine: engine}
}

func payAction() []Action {
	return []Action{{Kind: ActionTransferValue, To: dave, Amount: big.NewInt(1)}}
}

func (f *fixture) propose(t *testing.T) uint64 {
	t.Helper()
	id, err := f.engine.Propose(alice, CategoryGeneral, payAction(), "test")
	require.NoError(t, err)
	return id
}

func (f *fixture) openVoting(t *testing.T) uint64 {
	t.Helper()
	id := f.propose(t)
	f.clock.AdvanceTo(f.engine.Proposal(id).StartBlock)
	return id
}

// TestProposeEligibility verifies the proposal gate: enough snapshot weight
// or the standing proposer capability, plus a non-empty valid action list.
func TestProposeEligibility(t *testing.T) {
	f := newFixture(t)

	// carol holds exactly the threshold
	_, err := f.engine.Propose(carol, CategoryGeneral, payAction(), "")
	require.NoError(t, err)

	// dave holds nothing
	_, err = f.engine.Propose(dave, CategoryGeneral, payAction(), "")
	require.ErrorIs(t, err, inter.ErrUnauthorized)

	// the standing capability bypasses the weight check
	f.auth.Grant(dave, registry.CapProposer)
	_, err = f.engine.Propose(dave, CategoryGeneral, payAction(), "")
	require.NoError(t, err)

	// empty and malformed action lists are rejected
	_, err = f.engine.Propose(alice, CategoryGeneral, nil, "")
	require.ErrorIs(t, err, inter.ErrInvalidParameters)
	_, err = f.engine.Propose(alice, CategoryGeneral,
		[]Action{{Kind: ActionTransferValue, Amount: big.NewInt(0)}}, "")
	require.ErrorIs(t, err, inter.ErrInvalidParameters)
}

// TestVotingWindow verifies that ballots are only accepted inside
// [startBlock, endBlock).
func TestVotingWindow(t *testing.T) {
	f := newFixture(t)
	id := f.propose(t)
	p := f.engine.Proposal(id)

	// before the window opens
	require.ErrorIs(t, f.engine.CastVote(alice, id, VoteFor), inter.ErrWrongState)

	f.clock.AdvanceTo(p.StartBlock)
	require.NoError(t, f.engine.CastVote(alice, id, VoteFor))

	// at endBlock the window is closed
	f.clock.AdvanceTo(p.EndBlock)
	require.ErrorIs(t, f.engine.CastVote(bob, id, VoteFor), inter.ErrWrongState)
}

// TestCastVoteRejections verifies ballot immutability and support validation.
func TestCastVoteRejections(t *testing.T) {
	f := newFixture(t)
	id := f.openVoting(t)

	require.ErrorIs(t, f.engine.CastVote(alice, id, VoteNone), inter.ErrInvalidParameters)
	require.ErrorIs(t, f.engine.CastVote(dave, id, VoteFor), inter.ErrZeroVotes)

	require.NoError(t, f.engine.CastVote(carol, id, VoteAgainst))
	require.ErrorIs(t, f.engine.CastVote(carol, id, VoteFor), inter.ErrAlreadyVoted)
	require.ErrorIs(t, f.engine.CastVote(carol, id, VoteAgainst), inter.ErrAlreadyVoted)

	b := f.engine.BallotOf(id, carol)
	require.Equal(t, VoteAgainst, b.Support)
	require.EqualValues(t, 100, b.Weight.Int64())

	require.ErrorIs(t, f.engine.CastVote(alice, 999, VoteFor), inter.ErrWrongState)
}

// TestSnapshotWeight verifies that vote weight is pinned at the block before
// the voting start: balance moves after the snapshot change nothing, and
// weight acquired after the snapshot cannot vote.
func TestSnapshotWeight(t *testing.T) {
	f := newFixture(t)
	id := f.openVoting(t)

	// alice dumps her entire balance after the snapshot
	require.NoError(t, f.token.Transfer(alice, dave, big.NewInt(500)))

	require.NoError(t, f.engine.CastVote(alice, id, VoteFor))
	require.EqualValues(t, 500, f.engine.BallotOf(id, alice).Weight.Int64())

	// dave received the tokens too late to vote with them
	require.ErrorIs(t, f.engine.CastVote(dave, id, VoteFor), inter.ErrZeroVotes)
}

// TestLazySnapshot verifies that weight minted between proposal creation and
// the voting start still counts: the snapshot block is startBlock-1, which
// may lie in the future at creation time.
func TestLazySnapshot(t *testing.T) {
	f := newFixture(t)
	id := f.propose(t)
	p := f.engine.Proposal(id)

	// dave is funded after creation but before the snapshot block
	f.clock.AdvanceTo(p.StartBlock - 1)
	require.NoError(t, f.token.Mint(dave, big.NewInt(300)))

	f.clock.AdvanceTo(p.StartBlock)
	require.NoError(t, f.engine.CastVote(dave, id, VoteFor))
	require.EqualValues(t, 300, f.engine.BallotOf(id, dave).Weight.Int64())
}

// TestEarlyExitLockFor locks the outcome once the undecided remainder cannot
// flip it: for=500 and against=400 of 1000 available weight at 40% quorum and
// 50% decision make the result inevitable while the window is still open.
// The lock rejects further ballots but never shortens the delay clock.
func TestEarlyExitLockFor(t *testing.T) {
	f := newFixture(t)
	id := f.openVoting(t)
	p := f.engine.Proposal(id)

	require.NoError(t, f.engine.CastVote(bob, id, VoteAgainst)) // 400 against
	require.Equal(t, StateActive, f.engine.ProposalState(id))

	require.NoError(t, f.engine.CastVote(alice, id, VoteFor)) // 500 for
	// even if carol's 100 votes against, 500/1000 still meets the decision
	require.Equal(t, StateDelayed, f.engine.ProposalState(id))
	require.ErrorIs(t, f.engine.CastVote(carol, id, VoteFor), inter.ErrWrongState)

	// the delay still runs from endBlock, not from the lock
	require.ErrorIs(t, f.engine.Execute(alice, id), inter.ErrWrongState)
	f.clock.AdvanceTo(p.EndBlock + p.ExecutionDelay - 1)
	require.Equal(t, StateDelayed, f.engine.ProposalState(id))
	f.clock.Advance(1)
	require.Equal(t, StateAwaitingExecution, f.engine.ProposalState(id))
}

// TestEarlyExitLockAgainst verifies the inevitable-defeat lock: with 900 of
// 1000 against at 50% decision, the 100 undecided cannot save the proposal.
func TestEarlyExitLockAgainst(t *testing.T) {
	f := newFixture(t)
	id := f.openVoting(t)

	require.NoError(t, f.engine.CastVote(bob, id, VoteAgainst))
	require.Equal(t, StateActive, f.engine.ProposalState(id))

	require.NoError(t, f.engine.CastVote(alice, id, VoteAgainst))
	require.Equal(t, StateFailed, f.engine.ProposalState(id))
	require.ErrorIs(t, f.engine.CastVote(carol, id, VoteFor), inter.ErrWrongState)
}

// TestQuorumFailure verifies that participation below the quorum threshold
// fails the proposal after the window closes, however unanimous.
func TestQuorumFailure(t *testing.T) {
	f := newFixture(t)
	id := f.openVoting(t)
	p := f.engine.Proposal(id)

	require.NoError(t, f.engine.CastVote(carol, id, VoteFor)) // 100 of 1000, quorum needs 400

	f.clock.AdvanceTo(p.EndBlock)
	require.Equal(t, StateFailed, f.engine.ProposalState(id))
}

// TestDecisionFailure verifies the decision threshold over participating
// weight: 400 for vs 500 against meets quorum but not the 50% decision.
func TestDecisionFailure(t *testing.T) {
	f := newFixture(t)
	id := f.openVoting(t)
	p := f.engine.Proposal(id)

	require.NoError(t, f.engine.CastVote(bob, id, VoteFor))       // 400
	require.NoError(t, f.engine.CastVote(alice, id, VoteAgainst)) // 500

	f.clock.AdvanceTo(p.EndBlock)
	require.Equal(t, StateFailed, f.engine.ProposalState(id))
}

// TestExecuteAllOrNothing verifies execution semantics: every action is
// checked before any is applied, a check failure leaves the proposal
// retryable, and success marks it executed exactly once.
func TestExecuteAllOrNothing(t *testing.T) {
	f := newFixture(t)
	id := f.openVoting(t)
	p := f.engine.Proposal(id)

	require.NoError(t, f.engine.CastVote(alice, id, VoteFor))
	require.NoError(t, f.engine.CastVote(bob, id, VoteFor))
	f.clock.AdvanceTo(p.EndBlock + p.ExecutionDelay)
	require.Equal(t, StateAwaitingExecution, f.engine.ProposalState(id))

	// a failing check aborts without applying anything
	f.exec.checkErr = inter.ErrInvalidParameters
	require.ErrorIs(t, f.engine.Execute(alice, id), inter.ErrInvalidParameters)
	require.Empty(t, f.exec.applied)
	require.Equal(t, StateAwaitingExecution, f.engine.ProposalState(id))

	// retry after the collaborator recovers
	f.exec.checkErr = nil
	require.NoError(t, f.engine.Execute(alice, id))
	require.Len(t, f.exec.applied, 1)
	require.Equal(t, StateExecuted, f.engine.ProposalState(id))
	require.Equal(t, id, f.engine.LastExecuted())

	// executed is terminal
	require.ErrorIs(t, f.engine.Execute(alice, id), inter.ErrWrongState)
}

// TestExecuteBeforeDecision verifies that execution is foreclosed while the
// proposal is active, delayed, or failed.
func TestExecuteBeforeDecision(t *testing.T) {
	f := newFixture(t)
	id := f.openVoting(t)
	p := f.engine.Proposal(id)

	require.ErrorIs(t, f.engine.Execute(alice, id), inter.ErrWrongState) // active

	f.clock.AdvanceTo(p.EndBlock)
	require.Equal(t, StateFailed, f.engine.ProposalState(id)) // nobody voted
	require.ErrorIs(t, f.engine.Execute(alice, id), inter.ErrWrongState)
}

// TestCancel verifies the emergency brake: secretary-only, non-terminal, and
// foreclosing both voting and execution.
func TestCancel(t *testing.T) {
	f := newFixture(t)
	id := f.openVoting(t)

	require.ErrorIs(t, f.engine.Cancel(alice, id), inter.ErrUnauthorized)

	require.NoError(t, f.engine.Cancel(secretary, id))
	require.Equal(t, StateCancelled, f.engine.ProposalState(id))
	require.ErrorIs(t, f.engine.CastVote(alice, id, VoteFor), inter.ErrWrongState)
	require.ErrorIs(t, f.engine.Execute(alice, id), inter.ErrWrongState)

	// cancelled is terminal
	require.ErrorIs(t, f.engine.Cancel(secretary, id), inter.ErrWrongState)
}

// TestConfigCopiedAtCreation verifies that live config changes never apply to
// proposals already created.
func TestConfigCopiedAtCreation(t *testing.T) {
	f := newFixture(t)
	id := f.propose(t)

	harder := defaultConfig()
	harder.QuorumThreshold = inter.PctFromPercent(90)
	harder.DecisionThreshold = inter.PctFromPercent(90)
	require.NoError(t, f.engine.SetConfig(harder))

	p := f.engine.Proposal(id)
	require.Equal(t, inter.PctFromPercent(40), p.QuorumThreshold)
	require.Equal(t, inter.PctFromPercent(50), p.DecisionThreshold)

	// new proposals copy the new thresholds
	id2, err := f.engine.Propose(alice, CategoryGeneral, payAction(), "")
	require.NoError(t, err)
	require.Equal(t, inter.PctFromPercent(90), f.engine.Proposal(id2).QuorumThreshold)
}

// TestExecutionDelayPerCategory verifies category delays with the general
// fallback.
func TestExecutionDelayPerCategory(t *testing.T) {
	f := newFixture(t)

	id1, err := f.engine.Propose(alice, CategoryFunding, payAction(), "")
	require.NoError(t, err)
	require.EqualValues(t, 20, f.engine.Proposal(id1).ExecutionDelay)

	// CategorySale has no entry and falls back to general
	id2, err := f.engine.Propose(alice, CategorySale, payAction(), "")
	require.NoError(t, err)
	require.EqualValues(t, 10, f.engine.Proposal(id2).ExecutionDelay)
}

// TestPauseLatch verifies that the global pause gates propose/vote/execute.
func TestPauseLatch(t *testing.T) {
	f := newFixture(t)
	id := f.openVoting(t)

	require.NoError(t, f.policy.SetPaused(secretary, true))
	_, err := f.engine.Propose(alice, CategoryGeneral, payAction(), "")
	require.ErrorIs(t, err, inter.ErrServicePaused)
	require.ErrorIs(t, f.engine.CastVote(alice, id, VoteFor), inter.ErrServicePaused)
	require.ErrorIs(t, f.engine.Execute(alice, id), inter.ErrServicePaused)

	require.NoError(t, f.policy.SetPaused(secretary, false))
	require.NoError(t, f.engine.CastVote(alice, id, VoteFor))
}

// TestHashActions verifies that the metadata hash is stable per action list
// and sensitive to its content.
func TestHashActions(t *testing.T) {
	a := payAction()
	require.Equal(t, HashActions(a), HashActions(payAction()))

	b := []Action{{Kind: ActionTransferValue, To: dave, Amount: big.NewInt(2)}}
	require.NotEqual(t, HashActions(a), HashActions(b))

	// payload-bearing variants hash over their payloads too
	cfg1 := defaultConfig()
	cfg2 := defaultConfig()
	cfg2.VotingDuration++
	require.NotEqual(t,
		HashActions([]Action{{Kind: ActionSetConfig, Config: &cfg1}}),
		HashActions([]Action{{Kind: ActionSetConfig, Config: &cfg2}}))

	// the per-category delay map hashes canonically regardless of iteration order
	cfg3 := defaultConfig()
	require.Equal(t,
		HashActions([]Action{{Kind: ActionSetConfig, Config: &cfg1}}),
		HashActions([]Action{{Kind: ActionSetConfig, Config: &cfg3}}))

	s1 := sale.Params{Price: big.NewInt(1), Hardcap: big.NewInt(100), Duration: 10}
	s2 := s1
	s2.Hardcap = big.NewInt(200)
	require.NotEqual(t,
		HashActions([]Action{{Kind: ActionCreateSale, SaleParams: &s1}}),
		HashActions([]Action{{Kind: ActionCreateSale, SaleParams: &s2}}))
}
