// Package ledger wraps the Solana RPC surface the service depends on
// behind a narrow interface so tests can substitute fakes.
package ledger

import (
	"context"
	"fmt"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Client is the subset of the Solana RPC API the settlement path needs.
// *rpc.Client satisfies it directly.
type Client interface {
	SendRawTransactionWithOpts(ctx context.Context, rawTx []byte, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

// New creates an RPC client for the given endpoint.
func New(endpoint string) Client {
	return rpc.New(endpoint)
}

// ParseCommitment maps a configured commitment name onto the RPC type.
func ParseCommitment(name string) (rpc.CommitmentType, error) {
	switch name {
	case "processed":
		return rpc.CommitmentProcessed, nil
	case "confirmed", "":
		return rpc.CommitmentConfirmed, nil
	case "finalized":
		return rpc.CommitmentFinalized, nil
	default:
		return "", fmt.Errorf("unknown commitment level %q", name)
	}
}

// ExplorerTxURL returns the Solana explorer link for a transaction on the
// given cluster.
func ExplorerTxURL(signature string, cluster string) string {
	url := "https://explorer.solana.com/tx/" + signature
	switch cluster {
	case "", "mainnet", "mainnet-beta":
		return url
	default:
		return url + "?cluster=" + cluster
	}
}
