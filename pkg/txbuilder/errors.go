package txbuilder

import "fmt"

// NotInWalletError is returned when the requested identifier does not live
// in any wallet-owned UTXO.
type NotInWalletError struct {
	Ordinal uint64
}

func (e *NotInWalletError) Error() string {
	return fmt.Sprintf("ordinal %d not in wallet", e.Ordinal)
}

// NotEnoughCardinalUtxosError is returned when padding the alignment output
// or adding postage needs a cardinal UTXO of some minimum value and none is
// available.
type NotEnoughCardinalUtxosError struct{}

func (e *NotEnoughCardinalUtxosError) Error() string {
	return "wallet does not contain enough cardinal utxos, please add additional funds to wallet"
}

// RareOrdinalLostToRecipientError is returned when building the transaction
// would deliver a non-target rare identifier to the recipient output.
type RareOrdinalLostToRecipientError struct {
	Ordinal uint64
}

func (e *RareOrdinalLostToRecipientError) Error() string {
	return fmt.Sprintf("transaction would lose rare ordinal %d to recipient", e.Ordinal)
}

// RareOrdinalLostToFeeError is returned when building the transaction would
// burn a non-target rare identifier into the fee.
type RareOrdinalLostToFeeError struct {
	Ordinal uint64
}

func (e *RareOrdinalLostToFeeError) Error() string {
	return fmt.Sprintf("transaction would lose rare ordinal %d to fee", e.Ordinal)
}
