package registry

import (
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-pool-core/inter"
)

// ContractKind classifies a registered on-chain entity.
type ContractKind uint8

const (
	KindUnknown ContractKind = iota
	// KindEquityToken is a fee-bearing token kind: successful primary sales
	// of it accrue the protocol fee.
	KindEquityToken
	// KindUtilityToken is a non-fee-bearing token kind.
	KindUtilityToken
	KindSaleEvent
	KindGovernor
	KindPool
)

// FeeBearing reports whether successful sales of this token kind mint the
// protocol fee.
func (k ContractKind) FeeBearing() bool {
	return k == KindEquityToken
}

func (k ContractKind) String() string {
	switch k {
	case KindEquityToken:
		return "equity-token"
	case KindUtilityToken:
		return "utility-token"
	case KindSaleEvent:
		return "sale-event"
	case KindGovernor:
		return "governor"
	case KindPool:
		return "pool"
	default:
		return "unknown"
	}
}

// ContractRecord is one directory entry for a registered entity.
type ContractRecord struct {
	Addr  common.Address
	Kind  ContractKind
	Block idx.Block
}

// EventRecord is one audit-log entry: an RLP-encoded payload plus the block
// it was recorded at. Records are append-only.
type EventRecord struct {
	Topic   string
	Emitter common.Address
	Block   uint64
	Payload []byte
}

// Hash returns the keccak hash of the RLP encoding of the record, used as
// its external reference.
func (r EventRecord) Hash() common.Hash {
	enc, err := rlp.EncodeToBytes(r)
	if err != nil {
		// EventRecord contains only RLP-encodable fields
		panic(err)
	}
	return crypto.Keccak256Hash(enc)
}

// Directory is the in-memory contract/event registry. Creating operations
// must register what they create; a registration failure is fatal to the
// creating operation, so no "created but unregistered" state can exist.
type Directory struct {
	log   logrus.FieldLogger
	clock inter.Clock

	records []ContractRecord
	byAddr  map[common.Address]int
	events  []EventRecord
}

// NewDirectory returns an empty directory.
func NewDirectory(clock inter.Clock, log logrus.FieldLogger) *Directory {
	return &Directory{
		log:    log.WithField("module", "directory"),
		clock:  clock,
		byAddr: make(map[common.Address]int),
	}
}

// TypeOf returns the registered kind of the address, or KindUnknown.
func (d *Directory) TypeOf(addr common.Address) ContractKind {
	if i, ok := d.byAddr[addr]; ok {
		return d.records[i].Kind
	}
	return KindUnknown
}

// AddContractRecord registers an entity and returns its record index.
// Registering the same address twice is an error.
func (d *Directory) AddContractRecord(addr common.Address, kind ContractKind) (int, error) {
	if _, ok := d.byAddr[addr]; ok {
		return 0, fmt.Errorf("%w: address already registered", inter.ErrInvalidParameters)
	}
	if kind == KindUnknown {
		return 0, fmt.Errorf("%w: cannot register unknown kind", inter.ErrInvalidParameters)
	}
	idx := len(d.records)
	d.records = append(d.records, ContractRecord{
		Addr:  addr,
		Kind:  kind,
		Block: d.clock.Current(),
	})
	d.byAddr[addr] = idx
	return idx, nil
}

// AddEventRecord appends an audit record with the given topic and
// RLP-encodable payload, returning its index and hash.
func (d *Directory) AddEventRecord(topic string, emitter common.Address, payload interface{}) (int, common.Hash, error) {
	enc, err := rlp.EncodeToBytes(payload)
	if err != nil {
		return 0, common.Hash{}, fmt.Errorf("%w: unencodable event payload: %v", inter.ErrInvalidParameters, err)
	}
	rec := EventRecord{
		Topic:   topic,
		Emitter: emitter,
		Block:   uint64(d.clock.Current()),
		Payload: enc,
	}
	idx := len(d.events)
	d.events = append(d.events, rec)
	d.log.WithFields(logrus.Fields{
		"topic":   topic,
		"emitter": emitter.Hex(),
		"index":   idx,
		"hash":    rec.Hash().Hex(),
	}).Debug("event record added")
	return idx, rec.Hash(), nil
}

// EventCount returns the number of recorded audit events.
func (d *Directory) EventCount() int {
	return len(d.events)
}

// EventAt returns the audit record at the given index.
func (d *Directory) EventAt(i int) (EventRecord, bool) {
	if i < 0 || i >= len(d.events) {
		return EventRecord{}, false
	}
	return d.events[i], true
}
