// Package txbuilder constructs ordinal-aware Bitcoin transactions: spends
// that deliver a specific identifier to a recipient while preserving every
// other identifier's rarity and never handing a rare identifier to the
// recipient or the fee by accident.
//
// Ordinal-aware transaction construction has additional invariants,
// constraints, and concerns beyond those of an ordinary Bitcoin spend. Build
// proceeds through a fixed seven-stage pipeline; each stage documents the
// precondition the previous stage establishes. The whole pipeline is a pure
// function of its inputs: identical arguments produce a byte-identical
// transaction or the same typed error, every time.
package txbuilder

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/rawblock/ordinal-engine/pkg/ordinal"
	"github.com/rawblock/ordinal-engine/pkg/rangemanifest"
)

// MaxPostage is the ceiling on the recipient output's value; above this the
// excess is stripped into a change output.
const MaxPostage = 2 * 10_000

// TargetFeeRate is the fixed fee rate, in satoshis per virtual byte, the
// builder pays.
const TargetFeeRate = 1

// TargetPostage is how much value the recipient output is trimmed to when
// stripping excess postage.
const TargetPostage = 10_000

const targetFeeRate = TargetFeeRate

type output struct {
	address btcutil.Address
	amount  btcutil.Amount
}

// Builder accumulates the inputs, outputs, and bookkeeping needed to
// construct one ordinal-aware transaction. BuildTransaction constructs one
// with New and runs it through every stage; the stage methods are separate
// so the package's tests can drive the pipeline one step at a time and
// assert on intermediate state.
type Builder struct {
	changeAddresses map[string]btcutil.Address
	unusedChange    []btcutil.Address
	inputs          []wire.OutPoint
	ordinal         uint64
	outputs         []output
	ranges          map[wire.OutPoint][]rangemanifest.Range
	allOutpoints    []wire.OutPoint
	recipient       btcutil.Address
	utxos           []wire.OutPoint
}

// New prepares a Builder from a wallet's current range manifest. manifest
// and change are copied; callers may reuse their originals afterward.
func New(manifest rangemanifest.Manifest, id uint64, recipient btcutil.Address, change []btcutil.Address) *Builder {
	sorted := manifest.Sorted()

	ranges := make(map[wire.OutPoint][]rangemanifest.Range, len(sorted))
	allOutpoints := make([]wire.OutPoint, len(sorted))
	utxos := make([]wire.OutPoint, len(sorted))
	for i, e := range sorted {
		ranges[e.OutPoint] = e.Ranges
		allOutpoints[i] = e.OutPoint
		utxos[i] = e.OutPoint
	}

	changeAddresses := make(map[string]btcutil.Address, len(change))
	for _, a := range change {
		changeAddresses[a.EncodeAddress()] = a
	}

	unusedChange := make([]btcutil.Address, len(change))
	copy(unusedChange, change)

	return &Builder{
		changeAddresses: changeAddresses,
		unusedChange:    unusedChange,
		ordinal:         id,
		ranges:          ranges,
		allOutpoints:    allOutpoints,
		recipient:       recipient,
		utxos:           utxos,
	}
}

// BuildTransaction runs the full seven-stage pipeline.
func BuildTransaction(manifest rangemanifest.Manifest, id uint64, recipient btcutil.Address, change []btcutil.Address) (*wire.MsgTx, error) {
	b := New(manifest, id, recipient, change)

	if err := b.selectOrdinal(); err != nil {
		return nil, err
	}
	b.alignOrdinal()
	if err := b.padAlignmentOutput(); err != nil {
		return nil, err
	}
	if err := b.addPostage(); err != nil {
		return nil, err
	}
	b.stripExcessPostage()
	if err := b.deductFee(); err != nil {
		return nil, err
	}
	return b.build()
}

func sameAddress(a, b btcutil.Address) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.EncodeAddress() == b.EncodeAddress()
}

func (b *Builder) popChange() (btcutil.Address, bool) {
	n := len(b.unusedChange)
	if n == 0 {
		return nil, false
	}
	addr := b.unusedChange[n-1]
	b.unusedChange = b.unusedChange[:n-1]
	return addr, true
}

func (b *Builder) removeUtxo(target wire.OutPoint) {
	for i, op := range b.utxos {
		if op == target {
			b.utxos = append(b.utxos[:i], b.utxos[i+1:]...)
			return
		}
	}
}

// selectOrdinal scans the manifest in outpoint order for the unique output
// containing the requested identifier, spends it, and opens a single
// recipient output for its full value.
func (b *Builder) selectOrdinal() error {
	for _, op := range b.allOutpoints {
		for _, r := range b.ranges[op] {
			if !r.Contains(b.ordinal) {
				continue
			}
			var total uint64
			for _, rr := range b.ranges[op] {
				total += rr.Size()
			}
			b.removeUtxo(op)
			b.inputs = append(b.inputs, op)
			b.outputs = append(b.outputs, output{address: b.recipient, amount: btcutil.Amount(total)})
			return nil
		}
	}
	return &NotInWalletError{Ordinal: b.ordinal}
}

// calculateOrdinalOffset returns the requested identifier's position within
// the concatenated ranges of the inputs selected so far. The identifier is
// always present by this point; failing to find it is a programmer error.
func (b *Builder) calculateOrdinalOffset() uint64 {
	var offset uint64
	for _, in := range b.inputs {
		for _, r := range b.ranges[in] {
			if r.Contains(b.ordinal) {
				return offset + (b.ordinal - r.Start)
			}
			offset += r.Size()
		}
	}
	panic("txbuilder: could not find ordinal in inputs")
}

// alignOrdinal splits off a change output covering whatever value precedes
// the requested identifier in the selected input, so the recipient output
// starts exactly at the identifier.
func (b *Builder) alignOrdinal() {
	if len(b.outputs) != 1 {
		panic("txbuilder: invariant: only one output before alignment")
	}
	if !sameAddress(b.outputs[0].address, b.recipient) {
		panic("txbuilder: invariant: first output is recipient before alignment")
	}

	offset := b.calculateOrdinalOffset()
	if offset == 0 {
		return
	}

	changeAddr, ok := b.popChange()
	if !ok {
		panic("txbuilder: not enough change addresses")
	}

	b.outputs = append([]output{{address: changeAddr, amount: btcutil.Amount(offset)}}, b.outputs...)
	last := len(b.outputs) - 1
	b.outputs[last].amount -= btcutil.Amount(offset)
}

// padAlignmentOutput lifts the alignment output above dust if stage 2
// created one below it, funding the difference from a cardinal UTXO.
func (b *Builder) padAlignmentOutput() error {
	if sameAddress(b.outputs[0].address, b.recipient) {
		return nil
	}

	dustLimit, err := addressDustLimit(b.recipient)
	if err != nil {
		return err
	}

	if b.outputs[0].amount >= dustLimit {
		return nil
	}

	utxo, size, err := b.selectCardinalUtxo(dustLimit - b.outputs[0].amount)
	if err != nil {
		return err
	}
	b.inputs = append([]wire.OutPoint{utxo}, b.inputs...)
	b.outputs[0].amount += size
	return nil
}

// addPostage tops up the recipient output so it covers both its own dust
// limit and the transaction's estimated fee.
func (b *Builder) addPostage() error {
	estimatedFee, err := b.estimateFee()
	if err != nil {
		return err
	}

	last := len(b.outputs) - 1
	dustLimit, err := addressDustLimit(b.outputs[last].address)
	if err != nil {
		return err
	}

	shortfall := dustLimit + estimatedFee
	if b.outputs[last].amount >= shortfall {
		return nil
	}

	utxo, size, err := b.selectCardinalUtxo(shortfall - b.outputs[last].amount)
	if err != nil {
		return err
	}
	b.inputs = append(b.inputs, utxo)
	b.outputs[last].amount += size
	return nil
}

// stripExcessPostage caps the recipient output at TargetPostage and pushes
// whatever's left into a fresh change output when postage exceeds
// MaxPostage.
func (b *Builder) stripExcessPostage() {
	ordinalOffset := b.calculateOrdinalOffset()

	var total btcutil.Amount
	for _, out := range b.outputs {
		total += out.amount
	}

	postage := total - btcutil.Amount(ordinalOffset)
	if postage <= MaxPostage {
		return
	}

	last := len(b.outputs) - 1
	b.outputs[last].amount = TargetPostage

	changeAddr, ok := b.popChange()
	if !ok {
		panic("txbuilder: not enough change addresses")
	}
	b.outputs = append(b.outputs, output{address: changeAddr, amount: postage - TargetPostage})
}

// deductFee subtracts the estimated fee from the last output.
func (b *Builder) deductFee() error {
	ordinalOffset := b.calculateOrdinalOffset()

	fee, err := b.estimateFee()
	if err != nil {
		return err
	}

	var total btcutil.Amount
	for _, out := range b.outputs {
		total += out.amount
	}

	last := len(b.outputs) - 1
	if !(total-fee > btcutil.Amount(ordinalOffset) && b.outputs[last].amount >= fee) {
		panic("txbuilder: invariant: deducting fee does not consume ordinal")
	}
	b.outputs[last].amount -= fee
	return nil
}

// selectCardinalUtxo scans the remaining candidate UTXOs in ascending
// outpoint order for the first one containing only Common identifiers whose
// total value meets minimum, removing it from the candidate set.
func (b *Builder) selectCardinalUtxo(minimum btcutil.Amount) (wire.OutPoint, btcutil.Amount, error) {
	for _, op := range b.utxos {
		ranges := b.ranges[op]
		rare := false
		var amount uint64
		for _, r := range ranges {
			if ordinal.Identifier(r.Start).Rarity() > ordinal.Common {
				rare = true
				break
			}
			amount += r.Size()
		}
		if rare {
			continue
		}
		if btcutil.Amount(amount) >= minimum {
			b.removeUtxo(op)
			return op, btcutil.Amount(amount), nil
		}
	}
	return wire.OutPoint{}, 0, &NotEnoughCardinalUtxosError{}
}

// build emits the final transaction and runs the post-build invariant
// checker before returning it.
func (b *Builder) build() (*wire.MsgTx, error) {
	tx := wire.NewMsgTx(1)
	tx.LockTime = 0

	for _, op := range b.inputs {
		outpoint := op
		tx.AddTxIn(&wire.TxIn{
			PreviousOutPoint: outpoint,
			SignatureScript:  nil,
			Sequence:         wire.MaxTxInSequenceNum,
		})
	}

	recipientScript, err := addrScript(b.recipient)
	if err != nil {
		return nil, err
	}

	for _, out := range b.outputs {
		script, err := addrScript(out.address)
		if err != nil {
			return nil, err
		}
		tx.AddTxOut(&wire.TxOut{Value: int64(out.amount), PkScript: script})
	}

	owningOutpoint, ok := b.findOwningOutpoint()
	if !ok {
		panic("txbuilder: invariant: ordinal is contained in utxo ranges")
	}

	spendCount := 0
	for _, in := range tx.TxIn {
		if in.PreviousOutPoint == owningOutpoint {
			spendCount++
		}
	}
	if spendCount != 1 {
		panic("txbuilder: invariant: inputs spend ordinal exactly once")
	}

	ordinalOffset, found := b.offsetInInputs(tx)
	if !found {
		panic("txbuilder: invariant: ordinal is found in inputs")
	}

	var outputEnd uint64
	foundInOutputs := false
	for _, out := range tx.TxOut {
		outputEnd += uint64(out.Value)
		if outputEnd > ordinalOffset {
			if !scriptsEqual(out.PkScript, recipientScript) {
				panic("txbuilder: invariant: ordinal is sent to recipient")
			}
			foundInOutputs = true
			break
		}
	}
	if !foundInOutputs {
		panic("txbuilder: invariant: ordinal is found in outputs")
	}

	recipientCount := 0
	for _, out := range tx.TxOut {
		if scriptsEqual(out.PkScript, recipientScript) {
			recipientCount++
		}
	}
	if recipientCount != 1 {
		panic("txbuilder: invariant: recipient address appears exactly once in outputs")
	}

	for _, changeAddr := range b.changeAddresses {
		changeScript, err := addrScript(changeAddr)
		if err != nil {
			return nil, err
		}
		count := 0
		for _, out := range tx.TxOut {
			if scriptsEqual(out.PkScript, changeScript) {
				count++
			}
		}
		if count > 1 {
			panic("txbuilder: invariant: change addresses appear at most once in outputs")
		}
	}

	var offset uint64
	for _, out := range tx.TxOut {
		if scriptsEqual(out.PkScript, recipientScript) {
			if out.Value >= MaxPostage {
				panic("txbuilder: invariant: excess postage is stripped")
			}
			if offset != ordinalOffset {
				panic("txbuilder: invariant: ordinal is at first position in recipient output")
			}
		} else if !b.isChangeScript(out.PkScript) {
			panic(fmt.Sprintf("txbuilder: invariant: unrecognized output script %x", out.PkScript))
		}
		offset += uint64(out.Value)
	}

	var fee int64
	for _, in := range tx.TxIn {
		for _, r := range b.ranges[in.PreviousOutPoint] {
			fee += int64(r.Size())
		}
	}
	for _, out := range tx.TxOut {
		fee -= out.Value
	}

	vsize, err := b.estimateVsize()
	if err != nil {
		return nil, err
	}
	feeRate := float64(fee) / float64(vsize)
	if feeRate != float64(TargetFeeRate) {
		panic(fmt.Sprintf("txbuilder: invariant: fee rate is equal to target fee rate: actual %v target %v", feeRate, TargetFeeRate))
	}

	for _, out := range tx.TxOut {
		if out.Value < int64(DustLimit(out.PkScript)) {
			panic("txbuilder: invariant: all outputs are above dust limit")
		}
	}

	type rareOrdinal struct {
		id     uint64
		offset uint64
	}
	var rareOrdinals []rareOrdinal
	var totalInputAmount uint64
	for _, in := range tx.TxIn {
		for _, r := range b.ranges[in.PreviousOutPoint] {
			if ordinal.Identifier(r.Start).Rarity() > ordinal.Common {
				rareOrdinals = append(rareOrdinals, rareOrdinal{id: r.Start, offset: totalInputAmount})
			}
			totalInputAmount += r.Size()
		}
	}

	var recipientStart, recipientEnd uint64
	offset = 0
	for _, out := range tx.TxOut {
		if scriptsEqual(out.PkScript, recipientScript) {
			recipientStart = offset
			recipientEnd = offset + uint64(out.Value)
			break
		}
		offset += uint64(out.Value)
	}

	for _, r := range rareOrdinals {
		if r.id == b.ordinal {
			continue
		}
		if r.offset >= recipientStart && r.offset < recipientEnd {
			return nil, &RareOrdinalLostToRecipientError{Ordinal: r.id}
		}
		if r.offset >= totalInputAmount-uint64(fee) {
			return nil, &RareOrdinalLostToFeeError{Ordinal: r.id}
		}
	}

	return tx, nil
}

func (b *Builder) isChangeScript(script []byte) bool {
	for _, addr := range b.changeAddresses {
		changeScript, err := addrScript(addr)
		if err == nil && scriptsEqual(script, changeScript) {
			return true
		}
	}
	return false
}

func (b *Builder) findOwningOutpoint() (wire.OutPoint, bool) {
	for _, op := range b.allOutpoints {
		for _, r := range b.ranges[op] {
			if r.Contains(b.ordinal) {
				return op, true
			}
		}
	}
	return wire.OutPoint{}, false
}

func (b *Builder) offsetInInputs(tx *wire.MsgTx) (uint64, bool) {
	var offset uint64
	for _, in := range tx.TxIn {
		for _, r := range b.ranges[in.PreviousOutPoint] {
			if b.ordinal >= r.Start && b.ordinal < r.End {
				return offset + (b.ordinal - r.Start), true
			}
			offset += r.Size()
		}
	}
	return 0, false
}

func addrScript(addr btcutil.Address) ([]byte, error) {
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, fmt.Errorf("txbuilder: building script for %s: %w", addr.EncodeAddress(), err)
	}
	return script, nil
}

func scriptsEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
