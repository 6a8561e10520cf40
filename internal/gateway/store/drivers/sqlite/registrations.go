package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/datakwip/mcp-gateway/internal/gateway/domain"
	"github.com/datakwip/mcp-gateway/internal/gateway/store"
)

type registrationsRepo struct {
	db *sql.DB
}

func (r *registrationsRepo) CreateRegistration(ctx context.Context, c domain.RegisteredClient) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO registrations (id, client_id, client_name, profile, redirect_uris, grant_types, scope, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.ClientID,
		c.ClientName,
		c.Profile,
		strings.Join(c.RedirectURIs, " "),
		strings.Join(c.GrantTypes, " "),
		c.Scope,
		c.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *registrationsRepo) GetRegistrationByClientID(ctx context.Context, clientID string) (domain.RegisteredClient, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, client_id, client_name, profile, redirect_uris, grant_types, scope, created_at
		FROM registrations WHERE client_id = ?`, clientID)

	c, err := scanRegistration(row)
	if err != nil {
		return domain.RegisteredClient{}, mapNotFound(err)
	}
	return c, nil
}

func (r *registrationsRepo) ListRegistrations(ctx context.Context) ([]domain.RegisteredClient, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, client_id, client_name, profile, redirect_uris, grant_types, scope, created_at
		FROM registrations ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RegisteredClient
	for rows.Next() {
		c, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *registrationsRepo) CountRegistrations(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations`).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRegistration(s scanner) (domain.RegisteredClient, error) {
	var c domain.RegisteredClient
	var redirectURIs, grantTypes, createdAt string

	if err := s.Scan(&c.ID, &c.ClientID, &c.ClientName, &c.Profile, &redirectURIs, &grantTypes, &c.Scope, &createdAt); err != nil {
		return domain.RegisteredClient{}, err
	}

	c.RedirectURIs = splitFields(redirectURIs)
	c.GrantTypes = splitFields(grantTypes)
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		c.CreatedAt = t
	}
	return c, nil
}

func splitFields(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}
