package payment

import (
	"encoding/base64"
	"encoding/json"

	"github.com/xeipuuv/gojsonschema"
)

// SupportedVersion is the single x402 protocol version this gate accepts.
const SupportedVersion = 1

// SchemeExact is the only supported payment scheme: the transaction must
// transfer at least the quoted amount in a single native transfer.
const SchemeExact = "exact"

// Proof is a decoded payment credential. Every field except
// RawTransaction is an untrusted hint from the client; RawTransaction is
// the only input the verifier reads amounts from.
type Proof struct {
	Version        int
	Scheme         string
	Network        string
	RawTransaction []byte
}

// proofEnvelope is the wire shape of the X-Payment header after base64
// decoding.
type proofEnvelope struct {
	X402Version int    `json:"x402Version"`
	Scheme      string `json:"scheme"`
	Network     string `json:"network"`
	Payload     struct {
		SerializedTransaction string `json:"serializedTransaction"`
	} `json:"payload"`
}

// proofSchema rejects structurally invalid envelopes before any field is
// interpreted. Shape-only: version and scheme values are checked
// separately so they map to their own error codes.
const proofSchema = `{
	"type": "object",
	"required": ["x402Version", "scheme", "network", "payload"],
	"properties": {
		"x402Version": {"type": "integer"},
		"scheme": {"type": "string"},
		"network": {"type": "string"},
		"payload": {
			"type": "object",
			"required": ["serializedTransaction"],
			"properties": {
				"serializedTransaction": {"type": "string"}
			}
		}
	}
}`

var proofSchemaLoader = gojsonschema.NewStringLoader(proofSchema)

// DecodeProof parses a base64-encoded JSON payment credential.
//
// Order matters: the envelope shape, version and scheme are all checked
// before the embedded transaction is base64-decoded, so an unsupported
// credential never gets as far as transaction parsing.
func DecodeProof(credential string) (*Proof, error) {
	raw, err := base64.StdEncoding.DecodeString(credential)
	if err != nil {
		return nil, NewGateError(ErrMalformedProof, "payment credential is not valid base64")
	}

	result, err := gojsonschema.Validate(proofSchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil || !result.Valid() {
		return nil, NewGateError(ErrMalformedProof, "payment credential is not a valid payment proof document")
	}

	var envelope proofEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, NewGateError(ErrMalformedProof, "payment credential is not a valid payment proof document")
	}

	if envelope.X402Version != SupportedVersion {
		return nil, NewGateError(ErrUnsupportedVersion, "unsupported x402 version").
			WithDetail("supported", SupportedVersion)
	}
	if envelope.Scheme != SchemeExact {
		return nil, NewGateError(ErrUnsupportedScheme, "unsupported payment scheme").
			WithDetail("supported", SchemeExact)
	}

	txBytes, err := base64.StdEncoding.DecodeString(envelope.Payload.SerializedTransaction)
	if err != nil {
		return nil, NewGateError(ErrMalformedProof, "serialized transaction is not valid base64")
	}

	return &Proof{
		Version:        envelope.X402Version,
		Scheme:         envelope.Scheme,
		Network:        envelope.Network,
		RawTransaction: txBytes,
	}, nil
}
