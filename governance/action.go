package governance

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/rony4d/go-pool-core/inter"
	"github.com/rony4d/go-pool-core/sale"
)

// ActionKind tags one of the closed set of executable action variants.
// Free-form target/calldata dispatch is deliberately not supported: a closed
// enum keeps proposals auditable and closes the arbitrary-call-injection
// hole.
type ActionKind uint8

const (
	// ActionTransferValue pays native value from the pool treasury.
	ActionTransferValue ActionKind = iota
	// ActionTransferAsset transfers pool-treasury token holdings.
	ActionTransferAsset
	// ActionSetConfig replaces the governance configuration.
	ActionSetConfig
	// ActionCreateSale launches a new sale event with the given parameters.
	ActionCreateSale
)

func (k ActionKind) String() string {
	switch k {
	case ActionTransferValue:
		return "transfer-value"
	case ActionTransferAsset:
		return "transfer-asset"
	case ActionSetConfig:
		return "set-config"
	case ActionCreateSale:
		return "create-sale"
	default:
		return "invalid"
	}
}

// Action is one tagged-variant step of a proposal's action list. Exactly the
// fields of the tagged variant are meaningful.
type Action struct {
	Kind ActionKind

	// ActionTransferValue / ActionTransferAsset
	To     common.Address
	Amount *big.Int

	// ActionSetConfig
	Config *Config

	// ActionCreateSale
	SaleParams *sale.Params
}

// Validate checks the action's shape without touching any ledger state.
func (a Action) Validate() error {
	switch a.Kind {
	case ActionTransferValue, ActionTransferAsset:
		if a.Amount == nil || a.Amount.Sign() <= 0 {
			return fmt.Errorf("%w: transfer action needs a positive amount", inter.ErrInvalidParameters)
		}
	case ActionSetConfig:
		if a.Config == nil {
			return fmt.Errorf("%w: set-config action needs a config", inter.ErrInvalidParameters)
		}
		return a.Config.Validate()
	case ActionCreateSale:
		if a.SaleParams == nil {
			return fmt.Errorf("%w: create-sale action needs sale parameters", inter.ErrInvalidParameters)
		}
	default:
		return fmt.Errorf("%w: unknown action kind", inter.ErrInvalidParameters)
	}
	return nil
}

// actionDigest is the RLP shape hashed into a proposal's metadata hash.
// Payload carries the RLP encoding of the variant's payload (config or sale
// parameters); it is empty for plain transfers.
type actionDigest struct {
	Kind    uint8
	To      common.Address
	Amount  *big.Int
	Payload []byte
}

// configDigest flattens Config for hashing. The per-category delay map is
// expanded to category-sorted pairs so the encoding is canonical.
type configDigest struct {
	Threshold  *big.Int
	Quorum     uint64
	Decision   uint64
	StartDelay uint64
	Duration   uint64
	Delays     []delayDigest
}

type delayDigest struct {
	Category uint8
	Blocks   uint64
}

func digestPayload(a Action) []byte {
	switch a.Kind {
	case ActionSetConfig:
		if a.Config == nil {
			return nil
		}
		delays := make([]delayDigest, 0, len(a.Config.ExecutionDelays))
		for c, d := range a.Config.ExecutionDelays {
			delays = append(delays, delayDigest{Category: uint8(c), Blocks: uint64(d)})
		}
		sort.Slice(delays, func(i, j int) bool { return delays[i].Category < delays[j].Category })
		enc, err := rlp.EncodeToBytes(configDigest{
			Threshold:  a.Config.ProposalThreshold,
			Quorum:     uint64(a.Config.QuorumThreshold),
			Decision:   uint64(a.Config.DecisionThreshold),
			StartDelay: uint64(a.Config.VotingStartDelay),
			Duration:   uint64(a.Config.VotingDuration),
			Delays:     delays,
		})
		if err != nil {
			panic(err) // configDigest contains only RLP-encodable fields
		}
		return enc
	case ActionCreateSale:
		if a.SaleParams == nil {
			return nil
		}
		enc, err := rlp.EncodeToBytes(a.SaleParams)
		if err != nil {
			panic(err) // sale.Params contains only RLP-encodable fields
		}
		return enc
	default:
		return nil
	}
}

// HashActions returns the keccak hash of the canonical encoding of the
// action list, recorded on the proposal as its external metadata hash. The
// encoding covers every meaningful field of each variant, including the
// set-config and create-sale payloads.
func HashActions(actions []Action) common.Hash {
	digests := make([]actionDigest, len(actions))
	for i, a := range actions {
		amount := a.Amount
		if amount == nil {
			amount = new(big.Int)
		}
		digests[i] = actionDigest{
			Kind:    uint8(a.Kind),
			To:      a.To,
			Amount:  amount,
			Payload: digestPayload(a),
		}
	}
	enc, err := rlp.EncodeToBytes(digests)
	if err != nil {
		panic(err) // actionDigest contains only RLP-encodable fields
	}
	return crypto.Keccak256Hash(enc)
}

// Executor applies decided actions. Execution is all-or-nothing per
// proposal: the engine passes the whole action list to CheckActions before
// applying anything, so the executor can account for the cumulative effect
// of earlier actions on later ones. A check failure aborts without marking
// the proposal executed, leaving it retryable.
type Executor interface {
	CheckActions(actions []Action) error
	ApplyAction(a Action) error
}
