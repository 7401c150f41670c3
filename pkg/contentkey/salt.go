package contentkey

import "crypto/rand"

// saltSize matches the reference implementation's fixed adversarial-
// collision-prevention string length class, but the value itself is
// drawn fresh per run instead of hardcoded, so a precomputed collision
// against one run's hash is useless against the next.
const saltSize = 16

// NewSalt returns a fresh random salt for one run's Content Keys. Every
// Key sharing this salt produces comparable digests; Keys from two
// different runs never do, by construction.
func NewSalt() ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}
