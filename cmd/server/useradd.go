package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/iudanet/livedesk/internal/client/iocli"
	"github.com/iudanet/livedesk/internal/crypto"
	"github.com/iudanet/livedesk/internal/models"
	"github.com/iudanet/livedesk/internal/server/storage"
	"github.com/iudanet/livedesk/internal/validation"
)

// userAdd создает учетную запись оператора. Регистрации через API нет.
func userAdd(ctx context.Context, users storage.UserStorage, console iocli.IO, args []string) error {
	fs := pflag.NewFlagSet("useradd", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	tenant := fs.String("tenant", "", "tenant (company) the operator belongs to")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("invalid useradd arguments: %w", err)
	}
	if fs.NArg() != 1 || strings.TrimSpace(*tenant) == "" {
		return errors.New("usage: livedesk-server useradd --tenant TENANT USERNAME")
	}

	tenantID := strings.TrimSpace(*tenant)
	username := fs.Arg(0)
	// До ввода пароля, чтобы не спрашивать его напрасно
	if err := validation.ValidateTenant(tenantID); err != nil {
		return err
	}
	if err := validation.ValidateUsername(username); err != nil {
		return err
	}

	password, err := console.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if err := validation.ValidateOperator(tenantID, username, password); err != nil {
		return err
	}
	confirm, err := console.ReadPassword("Repeat password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if confirm != password {
		return errors.New("passwords do not match")
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			return fmt.Errorf("user %q already exists", username)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	console.Printf("User %s created in tenant %s (id %s)\n", user.Username, user.TenantID, user.ID)
	return nil
}
