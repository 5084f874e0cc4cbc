package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const (
	seedPasswordBytes   = 16
	defaultSeedUsername = "owner"
)

// SeedOwner creates the first owner account when the user table is empty.
// Registration only ever yields operators, so this is the one way in.
// The generated password is logged once and returned; it is empty when
// seeding was skipped.
func (s *Service) SeedOwner(ctx context.Context, username string) (string, error) {
	if username == "" {
		username = defaultSeedUsername
	}

	count, err := s.users.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("checking user count: %w", err)
	}
	if count > 0 {
		s.logger.Info("users exist, skipping owner seed")
		return "", nil
	}

	passwordBytes := make([]byte, seedPasswordBytes)
	if _, err := rand.Read(passwordBytes); err != nil { //nolint:govet // shadow
		return "", fmt.Errorf("generating seed password: %w", err)
	}
	password := hex.EncodeToString(passwordBytes)

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("hashing seed password: %w", err)
	}

	owner := &User{Username: username, PasswordHash: hash, Role: RoleOwner}
	if err := s.users.Create(ctx, owner); err != nil {
		return "", fmt.Errorf("creating seed owner: %w", err)
	}

	s.logger.Warn("seed owner account created",
		"username", username,
		"initial_password", password,
		"action_required", "change this password immediately",
	)

	return password, nil
}
