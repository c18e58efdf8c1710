package session

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/taskdesk/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/taskdesk/internal/common"
	"github.com/dmitrijs2005/taskdesk/internal/dbx"
)

// SQLCredentialStore keeps the credential in the metadata table.
type SQLCredentialStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLCredentialStore(db *sql.DB) *SQLCredentialStore {
	return &SQLCredentialStore{db: db, now: time.Now}
}

func (c *SQLCredentialStore) Load(ctx context.Context) (string, error) {
	v, err := metadata.NewSQLiteRepository(c.db).Get(ctx, common.CredentialKey)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// Save writes the credential and its timestamp in one transaction.
func (c *SQLCredentialStore) Save(ctx context.Context, token string) error {
	savedAt := c.now().UTC().Format(time.RFC3339)

	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, common.CredentialKey, []byte(token)); err != nil {
			return err
		}
		return repo.Set(ctx, common.CredentialSavedAtKey, []byte(savedAt))
	})
}

func (c *SQLCredentialStore) Evict(ctx context.Context) error {
	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Delete(ctx, common.CredentialKey); err != nil {
			return err
		}
		return repo.Delete(ctx, common.CredentialSavedAtKey)
	})
}

// SavedAt reports when the stored credential was written.
func (c *SQLCredentialStore) SavedAt(ctx context.Context) (time.Time, error) {
	v, err := metadata.NewSQLiteRepository(c.db).Get(ctx, common.CredentialSavedAtKey)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, string(v))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s: %w", common.CredentialSavedAtKey, err)
	}
	return t, nil
}
