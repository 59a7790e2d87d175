package consensus

import "crypto/ed25519"

// VerifyTransactionSignature checks a transaction's signature against
// the flattened set of public keys its inputs' validators returned.
// Ed25519 has no signature aggregation, so the aggregate is a
// concatenation of one signature per contributing public key, in the
// same order the inputs contributed them: an n-of-n multisig, and
// exactly one signature when a transaction has a single input.
func VerifyTransactionSignature(pubKeys []ed25519.PublicKey, digest []byte, signature []byte) bool {
	if len(signature) != ed25519.SignatureSize*len(pubKeys) {
		return false
	}
	for i, pub := range pubKeys {
		seg := signature[i*ed25519.SignatureSize : (i+1)*ed25519.SignatureSize]
		if !ed25519.Verify(pub, digest, seg) {
			return false
		}
	}
	return true
}
