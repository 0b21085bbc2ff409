package password

import "fmt"

// Hasher turns a plaintext password into a one-way digest and checks a
// plaintext against a digest. Verify returns (false, nil) on mismatch; an
// error means the digest itself could not be used.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, hashedPassword string) (bool, error)
}

const (
	HasherBcrypt = "bcrypt"
	HasherArgon2 = "argon2"
)

// NewHasher returns the hasher registered under name. cost only applies to bcrypt.
func NewHasher(name string, cost int) (Hasher, error) {
	switch name {
	case "", HasherBcrypt:
		return NewBcryptHasher(cost), nil
	case HasherArgon2:
		return NewArgon2Hasher(), nil
	default:
		return nil, fmt.Errorf("unsupported password hasher: %s (supported: bcrypt, argon2)", name)
	}
}
