package objectstore

import "crypto/rand"

// Random is the CSPRNG the core depends on. The default implementation
// wraps crypto/rand; tests may substitute a deterministic source.
type Random interface {
	Fill(buf []byte) error
}

type cryptoRandom struct{}

// SystemRandom is the default Random backed by crypto/rand.Reader.
var SystemRandom Random = cryptoRandom{}

func (cryptoRandom) Fill(buf []byte) error {
	_, err := rand.Read(buf)
	if err != nil {
		return errFatal("reading system randomness", err)
	}
	return nil
}
