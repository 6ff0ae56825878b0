package wallet

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/zkpersona/zkpersona/core"
	"github.com/zkpersona/zkpersona/ports"
)

// EthereumScheme verifies EIP-191 personal-sign signatures from secp256k1
// wallets. Public keys are 65-byte uncompressed points in hex; signatures
// are 65-byte r||s||v in hex, with v accepted as 0/1 or 27/28.
type EthereumScheme struct{}

func NewEthereumScheme() ports.WalletScheme {
	return EthereumScheme{}
}

// DeriveAddress computes the checksummed address controlled by the key:
// the last 20 bytes of Keccak-256 over the uncompressed point.
func (EthereumScheme) DeriveAddress(publicKey string) (string, error) {
	pub, err := parsePublicKey(publicKey)
	if err != nil {
		return "", err
	}
	key, err := crypto.UnmarshalPubkey(pub)
	if err != nil {
		return "", fmt.Errorf("unmarshal public key: %w", core.ErrInvalidPublicKey)
	}
	return crypto.PubkeyToAddress(*key).Hex(), nil
}

// Verify checks the signature over the personal-sign digest of message.
func (EthereumScheme) Verify(message, signature, publicKey string) error {
	pub, err := parsePublicKey(publicKey)
	if err != nil {
		return err
	}

	sig, err := hexutil.Decode(with0x(signature))
	if err != nil {
		return fmt.Errorf("decode signature: %w", core.ErrInvalidSignature)
	}
	if len(sig) != crypto.SignatureLength {
		return fmt.Errorf("signature must be %d bytes: %w", crypto.SignatureLength, core.ErrInvalidSignature)
	}

	// VerifySignature takes the 64-byte r||s form without the recovery id.
	digest := accounts.TextHash([]byte(message))
	if !crypto.VerifySignature(pub, digest, sig[:crypto.RecoveryIDOffset]) {
		return core.ErrInvalidSignature
	}
	return nil
}

func parsePublicKey(publicKey string) ([]byte, error) {
	pub, err := hexutil.Decode(with0x(publicKey))
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", core.ErrInvalidPublicKey)
	}
	if len(pub) != 65 || pub[0] != 4 {
		return nil, fmt.Errorf("public key must be a 65-byte uncompressed point: %w", core.ErrInvalidPublicKey)
	}
	return pub, nil
}

func with0x(s string) string {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s
	}
	return "0x" + s
}
