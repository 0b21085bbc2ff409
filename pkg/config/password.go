package config

import (
	"github.com/tendant/simple-auth/pkg/password"
)

// PasswordConfig selects the hasher and the rules new passwords must meet
type PasswordConfig struct {
	Hasher           string `env:"PASSWORD_HASHER" env-default:"bcrypt"`
	BcryptCost       int    `env:"BCRYPT_COST" env-default:"10"`
	MinLength        int    `env:"PASSWORD_MIN_LENGTH" env-default:"6"`
	RequireUppercase bool   `env:"PASSWORD_REQUIRE_UPPERCASE" env-default:"false"`
	RequireLowercase bool   `env:"PASSWORD_REQUIRE_LOWERCASE" env-default:"false"`
	RequireDigit     bool   `env:"PASSWORD_REQUIRE_DIGIT" env-default:"false"`
	RequireSpecial   bool   `env:"PASSWORD_REQUIRE_SPECIAL" env-default:"false"`
}

func (p PasswordConfig) Validate() ValidationErrors {
	return CollectErrors(
		RequireOneOf("PASSWORD_HASHER", p.Hasher, []string{password.HasherBcrypt, password.HasherArgon2}),
		RequireInRange("BCRYPT_COST", p.BcryptCost, 4, 31),
		RequireInRange("PASSWORD_MIN_LENGTH", p.MinLength, 1, 72),
	)
}

// ToPolicy converts the config to a password.Policy
func (p PasswordConfig) ToPolicy() password.Policy {
	return password.Policy{
		MinLength:          p.MinLength,
		RequireUppercase:   p.RequireUppercase,
		RequireLowercase:   p.RequireLowercase,
		RequireDigit:       p.RequireDigit,
		RequireSpecialChar: p.RequireSpecial,
	}
}

// NewHasher builds the configured hasher
func (p PasswordConfig) NewHasher() (password.Hasher, error) {
	return password.NewHasher(p.Hasher, p.BcryptCost)
}
