package payment_test

import (
	"testing"

	solana "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"

	"github.com/saakshiraut28/roastarena/internal/payment"
)

func TestFormatSol(t *testing.T) {
	cases := []struct {
		lamports uint64
		want     string
	}{
		{0, "0"},
		{1, "0.000000001"},
		{1_500_000, "0.0015"},
		{1_000_000_000, "1"},
		{2_000_000_000, "2"},
		{1_234_567_891, "1.234567891"},
		{10_500_000_000, "10.5"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, payment.FormatSol(tc.lamports), "lamports=%d", tc.lamports)
	}
}

func TestBuildRequirementIsDeterministic(t *testing.T) {
	recipient := solana.MustPublicKeyFromBase58("BPFLoaderUpgradeab1e11111111111111111111111")

	a := payment.BuildRequirement(recipient, 1_500_000, "devnet")
	b := payment.BuildRequirement(recipient, 1_500_000, "devnet")

	assert.Equal(t, a, b)
	assert.Equal(t, "0.0015", a.DisplayAmount)
	assert.Equal(t, uint64(1_500_000), a.Lamports)
	assert.Equal(t, "devnet", a.Network)
}
