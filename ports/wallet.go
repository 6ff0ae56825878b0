package ports

// WalletScheme abstracts one wallet family's signature scheme so additional
// chains can be added without touching the authenticator's control flow.
type WalletScheme interface {
	// DeriveAddress computes the wallet address controlled by the public key.
	DeriveAddress(publicKey string) (string, error)

	// Verify checks the signature over the message under the public key.
	// Returns core.ErrInvalidSignature on any cryptographic failure.
	Verify(message, signature, publicKey string) error
}
