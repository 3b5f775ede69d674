package services

import (
	"context"
	"fmt"
	"io"

	"github.com/shoutzor/backend/internal/core/ports"
	"github.com/shoutzor/backend/internal/domain"
	"github.com/shoutzor/backend/internal/infrastructure/logger"
	"github.com/shoutzor/backend/pkg/utils/keygen"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminUsername = "admin"
	adminEmail    = "admin@shoutzor.local"
)

// SeedService inserts the data a fresh installation needs to be usable.
type SeedService struct {
	users  ports.UserRepository
	roles  ports.RoleRepository
	logger *logger.Logger
}

func NewSeedService(users ports.UserRepository, roles ports.RoleRepository, log *logger.Logger) *SeedService {
	return &SeedService{users: users, roles: roles, logger: log}
}

// Seed creates the default roles and the admin account. Running it again
// leaves existing rows untouched; the admin password is only printed when the
// account is created.
func (s *SeedService) Seed(ctx context.Context, out io.Writer) error {
	adminRole, created, err := s.roles.FirstOrCreate(ctx, domain.RoleAdmin, "Full access to every part of shoutzor")
	if err != nil {
		return fmt.Errorf("failed to seed role %s: %w", domain.RoleAdmin, err)
	}
	s.report(out, "role", domain.RoleAdmin, created)

	userRole, created, err := s.roles.FirstOrCreate(ctx, domain.RoleUser, "Can upload and request media")
	if err != nil {
		return fmt.Errorf("failed to seed role %s: %w", domain.RoleUser, err)
	}
	s.report(out, "role", domain.RoleUser, created)

	existing, err := s.users.GetByUsername(ctx, adminUsername)
	if err != nil {
		return fmt.Errorf("failed to look up admin account: %w", err)
	}
	if existing != nil {
		s.report(out, "user", adminUsername, false)
		fmt.Fprintln(out, "Database seeding completed successfully.")
		return nil
	}

	password := keygen.GenerateRandomPassword(16)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &domain.User{
		Username:     adminUsername,
		Email:        adminEmail,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin account: %w", err)
	}
	for _, role := range []*domain.Role{adminRole, userRole} {
		if err := s.users.AttachRole(ctx, admin, role); err != nil {
			return fmt.Errorf("failed to assign role %s: %w", role.Name, err)
		}
	}
	s.report(out, "user", adminUsername, true)
	fmt.Fprintf(out, "Admin password: %s\n", password)
	fmt.Fprintln(out, "Database seeding completed successfully.")

	s.logger.Infow("seed_admin_created", "id", admin.ID)
	return nil
}

func (s *SeedService) report(out io.Writer, kind, name string, created bool) {
	if created {
		fmt.Fprintf(out, "Seeded %s: %s\n", kind, name)
		return
	}
	fmt.Fprintf(out, "Skipped %s: %s (already exists)\n", kind, name)
}
