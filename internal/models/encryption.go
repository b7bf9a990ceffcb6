package models

// Encryption parameters for at-rest field encryption.
const (
	NonceSize  = 12
	KeySize    = 32
	Iterations = 100000
)
