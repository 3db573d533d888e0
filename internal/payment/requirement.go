package payment

import (
	"strconv"
	"strings"

	solana "github.com/gagliardetto/solana-go"
)

const lamportsPerSol = 1_000_000_000

// Requirement describes what payment satisfies a create request: a fixed
// number of lamports to the merchant recipient on the configured cluster.
// It is derived purely from startup configuration, so repeated quotes are
// byte-identical.
type Requirement struct {
	Recipient     solana.PublicKey
	Lamports      uint64
	DisplayAmount string
	Network       string
}

// BuildRequirement constructs the payment requirement for a quote response.
func BuildRequirement(recipient solana.PublicKey, lamports uint64, network string) Requirement {
	return Requirement{
		Recipient:     recipient,
		Lamports:      lamports,
		DisplayAmount: FormatSol(lamports),
		Network:       network,
	}
}

// FormatSol renders a lamport amount as a decimal SOL string without
// floating-point rounding, e.g. 1500000 -> "0.0015".
func FormatSol(lamports uint64) string {
	whole := lamports / lamportsPerSol
	frac := lamports % lamportsPerSol
	if frac == 0 {
		return strconv.FormatUint(whole, 10)
	}
	fracStr := strings.TrimRight(padLeftZeros(strconv.FormatUint(frac, 10), 9), "0")
	return strconv.FormatUint(whole, 10) + "." + fracStr
}

func padLeftZeros(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
