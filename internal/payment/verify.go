package payment

import (
	"encoding/binary"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
)

// System program Transfer instruction layout:
//
//	[0..3]  instruction index  U32 LE (2 = Transfer)
//	[4..11] lamports           U64 LE
const (
	transferInstructionIndex = 2
	transferDataLen          = 12
	transferAmountOffset     = 4
)

// DecodeTransaction deserializes raw transaction bytes into a Solana
// transaction. Parsing failures are the client's fault: the bytes came
// out of their proof.
func DecodeTransaction(raw []byte) (*solana.Transaction, error) {
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, NewGateError(ErrInvalidTransaction, "serialized transaction could not be decoded")
	}
	return tx, nil
}

// VerifyTransfer checks that the transaction pays the required recipient
// at least the required number of lamports via a native System program
// transfer, and returns the paid amount.
//
// The amount is read from the instruction's binary payload only. The
// JSON proof wrapper is attacker-controlled transport and is never
// consulted here. The first instruction that targets the System program
// and references the recipient decides the outcome; later instructions
// are not aggregated.
//
// The check is deliberately shallow: signature validity, fee-payer
// balance and replay are left to the ledger at submission time and to
// the settlement cache.
func VerifyTransfer(tx *solana.Transaction, req Requirement) (uint64, error) {
	msg := tx.Message
	if len(msg.Instructions) == 0 {
		return 0, NewGateError(ErrEmptyTransaction, "transaction contains no instructions")
	}

	for _, inst := range msg.Instructions {
		if int(inst.ProgramIDIndex) >= len(msg.AccountKeys) {
			continue
		}
		if !msg.AccountKeys[inst.ProgramIDIndex].Equals(solana.SystemProgramID) {
			continue
		}
		if !referencesAccount(msg, inst, req.Recipient) {
			continue
		}

		if len(inst.Data) != transferDataLen {
			return 0, NewGateError(ErrMalformedInstruction, "transfer instruction data has unexpected length")
		}
		if binary.LittleEndian.Uint32(inst.Data[:transferAmountOffset]) != transferInstructionIndex {
			return 0, NewGateError(ErrMalformedInstruction, "instruction is not a native transfer")
		}

		lamports := binary.LittleEndian.Uint64(inst.Data[transferAmountOffset:transferDataLen])
		if lamports < req.Lamports {
			return 0, NewGateError(ErrInsufficientAmount, "transfer amount is below the quoted price").
				WithDetail("required", req.Lamports).
				WithDetail("paid", lamports)
		}
		return lamports, nil
	}

	return 0, NewGateError(ErrNoTransferInstruction, "no transfer instruction pays the required recipient")
}

func referencesAccount(msg solana.Message, inst solana.CompiledInstruction, key solana.PublicKey) bool {
	for _, idx := range inst.Accounts {
		if int(idx) < len(msg.AccountKeys) && msg.AccountKeys[idx].Equals(key) {
			return true
		}
	}
	return false
}
