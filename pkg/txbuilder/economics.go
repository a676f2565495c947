package txbuilder

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// Dust thresholds per output script class, in satoshis. Bitcoin Core relay
// policy rejects any output worth less than three times its own cost to
// spend at the minimum relay fee; these are the resulting floors for the
// common script types.
const (
	dustThresholdP2PKH   = 546
	dustThresholdP2SH    = 540
	dustThresholdP2WPKH  = 294
	dustThresholdP2WSH   = 330
	dustThresholdP2TR    = 330
	dustThresholdGeneric = 546
)

// DustLimit returns the minimum economically relayable value for an output
// carrying pkScript.
func DustLimit(pkScript []byte) btcutil.Amount {
	switch txscript.GetScriptClass(pkScript) {
	case txscript.PubKeyHashTy:
		return dustThresholdP2PKH
	case txscript.ScriptHashTy:
		return dustThresholdP2SH
	case txscript.WitnessV0PubKeyHashTy:
		return dustThresholdP2WPKH
	case txscript.WitnessV0ScriptHashTy:
		return dustThresholdP2WSH
	case txscript.WitnessV1TaprootTy:
		return dustThresholdP2TR
	default:
		return dustThresholdGeneric
	}
}

func addressDustLimit(addr btcutil.Address) (btcutil.Amount, error) {
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return 0, fmt.Errorf("txbuilder: building script for %s: %w", addr.EncodeAddress(), err)
	}
	return DustLimit(script), nil
}

// placeholderSigScript stands in for a worst-case P2PKH script_sig: a
// 71-byte signature push and a 65-byte uncompressed pubkey push. Used only
// to size the transaction before it is signed.
func placeholderSigScript() ([]byte, error) {
	return txscript.NewScriptBuilder().
		AddData(make([]byte, 71)).
		AddData(make([]byte, 65)).
		Script()
}

// estimateVsize measures the virtual size of the transaction the builder
// currently describes, assuming every input will be spent with a P2PKH
// script_sig. Overestimating is safer than underestimating: a transaction
// that pays too much fee still confirms, one that pays too little may never
// be relayed.
func (b *Builder) estimateVsize() (int, error) {
	sigScript, err := placeholderSigScript()
	if err != nil {
		return 0, err
	}

	tx := wire.NewMsgTx(1)
	for range b.inputs {
		tx.AddTxIn(&wire.TxIn{
			PreviousOutPoint: wire.OutPoint{},
			SignatureScript:  sigScript,
			Sequence:         wire.MaxTxInSequenceNum,
		})
	}
	for _, out := range b.outputs {
		script, err := txscript.PayToAddrScript(out.address)
		if err != nil {
			return 0, fmt.Errorf("txbuilder: building script for %s: %w", out.address.EncodeAddress(), err)
		}
		tx.AddTxOut(&wire.TxOut{Value: int64(out.amount), PkScript: script})
	}

	// No witness data is present on the placeholder transaction, so its
	// serialized size equals its virtual size.
	return tx.SerializeSize(), nil
}

func (b *Builder) estimateFee() (btcutil.Amount, error) {
	vsize, err := b.estimateVsize()
	if err != nil {
		return 0, err
	}
	return btcutil.Amount(targetFeeRate) * btcutil.Amount(vsize), nil
}
