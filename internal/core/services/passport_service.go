package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shoutzor/backend/internal/core/ports"
	"github.com/shoutzor/backend/internal/domain"
	"github.com/shoutzor/backend/internal/infrastructure/logger"
	"github.com/shoutzor/backend/pkg/utils/keygen"
)

const (
	PrivateKeyFile = "oauth-private.key"
	PublicKeyFile  = "oauth-public.key"

	defaultKeyBits = 4096
)

// PassportService creates the token signing keys and the first-party OAuth clients.
type PassportService struct {
	clients  ports.OAuthClientRepository
	keyDir   string
	keyBits  int
	appName  string
	redirect string
	logger   *logger.Logger
}

type PassportConfig struct {
	KeyDir   string
	KeyBits  int
	AppName  string
	Redirect string
}

func NewPassportService(clients ports.OAuthClientRepository, cfg PassportConfig, log *logger.Logger) *PassportService {
	if cfg.KeyBits <= 0 {
		cfg.KeyBits = defaultKeyBits
	}
	if cfg.AppName == "" {
		cfg.AppName = "Shoutzor"
	}
	if cfg.Redirect == "" {
		cfg.Redirect = "http://localhost"
	}
	return &PassportService{
		clients:  clients,
		keyDir:   cfg.KeyDir,
		keyBits:  cfg.KeyBits,
		appName:  cfg.AppName,
		redirect: cfg.Redirect,
		logger:   log,
	}
}

// Install writes a fresh key pair and registers a personal access client and
// a password grant client. Existing keys are only replaced when force is set.
func (s *PassportService) Install(ctx context.Context, force bool, out io.Writer) error {
	if err := s.writeKeys(force); err != nil {
		return err
	}
	fmt.Fprintln(out, "Encryption keys generated successfully.")

	personal := &domain.OAuthClient{
		Name:                 s.appName + " Personal Access Client",
		Secret:               keygen.GenerateClientSecret(),
		Redirect:             s.redirect,
		PersonalAccessClient: true,
	}
	if err := s.clients.Create(ctx, personal); err != nil {
		return fmt.Errorf("failed to create personal access client: %w", err)
	}
	fmt.Fprintln(out, "Personal access client created successfully.")
	fmt.Fprintf(out, "Client ID: %d\n", personal.ID)
	fmt.Fprintf(out, "Client secret: %s\n", personal.Secret)

	password := &domain.OAuthClient{
		Name:           s.appName + " Password Grant Client",
		Secret:         keygen.GenerateClientSecret(),
		Redirect:       s.redirect,
		PasswordClient: true,
	}
	if err := s.clients.Create(ctx, password); err != nil {
		return fmt.Errorf("failed to create password grant client: %w", err)
	}
	fmt.Fprintln(out, "Password grant client created successfully.")
	fmt.Fprintf(out, "Client ID: %d\n", password.ID)
	fmt.Fprintf(out, "Client secret: %s\n", password.Secret)

	s.logger.Infow("passport_install_ok", "personal_client", personal.ID, "password_client", password.ID)
	return nil
}

func (s *PassportService) writeKeys(force bool) error {
	privPath := filepath.Join(s.keyDir, PrivateKeyFile)
	pubPath := filepath.Join(s.keyDir, PublicKeyFile)

	if !force {
		for _, p := range []string{privPath, pubPath} {
			if _, err := os.Stat(p); err == nil {
				return fmt.Errorf("%w: %s (use --force to overwrite)", ErrKeysExist, p)
			}
		}
	}

	if err := os.MkdirAll(s.keyDir, 0o755); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}

	privPEM, pubPEM, err := keygen.GenerateRSAKeyPair(s.keyBits)
	if err != nil {
		return err
	}
	if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
		return fmt.Errorf("failed to write public key: %w", err)
	}
	s.logger.Infow("passport_keys_written", "dir", s.keyDir, "bits", s.keyBits)
	return nil
}
