package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-cerm/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type TokenStore struct {
	db   *bun.DB
	repo repository.Repository[*tokenRecord]
}

func (s *TokenStore) SaveNewVersion(ctx context.Context, in core.SaveTokenInput) (core.TokenRecord, error) {
	if s == nil || s.repo == nil || s.db == nil {
		return core.TokenRecord{}, fmt.Errorf("sqlstore: token store is not configured")
	}
	environment := strings.TrimSpace(strings.ToLower(in.Environment))
	if environment == "" {
		return core.TokenRecord{}, fmt.Errorf("sqlstore: environment is required")
	}
	if len(in.EncryptedPayload) == 0 {
		return core.TokenRecord{}, fmt.Errorf("sqlstore: encrypted payload is required")
	}

	status := in.Status
	if strings.TrimSpace(string(status)) == "" {
		status = core.TokenStatusActive
	}
	in.Environment = environment
	in.Status = status
	now := time.Now().UTC()

	var created core.TokenRecord
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		nextVersion, versionErr := s.nextVersion(ctx, tx, environment)
		if versionErr != nil {
			return versionErr
		}

		if status == core.TokenStatusActive {
			_, updateErr := tx.NewUpdate().
				Model((*tokenRecord)(nil)).
				Set("status = ?", string(core.TokenStatusRevoked)).
				Set("revocation_reason = ?", "rotated").
				Set("updated_at = ?", now).
				Where("environment = ?", environment).
				Where("status = ?", string(core.TokenStatusActive)).
				Exec(ctx)
			if updateErr != nil {
				return updateErr
			}
		}

		record := newTokenRecord(in, nextVersion, now)
		inserted, createErr := s.repo.CreateTx(ctx, tx, record)
		if createErr != nil {
			return createErr
		}
		created = inserted.toDomain()
		return nil
	})
	if err != nil {
		return core.TokenRecord{}, err
	}

	return created, nil
}

func (s *TokenStore) GetActiveByEnvironment(ctx context.Context, environment string) (core.TokenRecord, error) {
	if s == nil || s.repo == nil {
		return core.TokenRecord{}, fmt.Errorf("sqlstore: token store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("environment", "=", strings.TrimSpace(strings.ToLower(environment))),
		repository.SelectBy("status", "=", string(core.TokenStatusActive)),
		repository.OrderBy("version DESC"),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.TokenRecord{}, err
	}
	if len(records) == 0 {
		return core.TokenRecord{}, core.ErrTokenNotFound
	}
	return records[0].toDomain(), nil
}

func (s *TokenStore) RevokeActive(ctx context.Context, environment string, reason string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: token store is not configured")
	}
	environment = strings.TrimSpace(strings.ToLower(environment))
	if environment == "" {
		return fmt.Errorf("sqlstore: environment is required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "revoked"
	}

	_, err := s.db.NewUpdate().
		Model((*tokenRecord)(nil)).
		Set("status = ?", string(core.TokenStatusRevoked)).
		Set("revocation_reason = ?", reason).
		Set("updated_at = ?", time.Now().UTC()).
		Where("environment = ?", environment).
		Where("status = ?", string(core.TokenStatusActive)).
		Exec(ctx)
	return err
}

func (s *TokenStore) nextVersion(ctx context.Context, tx bun.Tx, environment string) (int, error) {
	var maxVersion int
	if err := tx.NewSelect().
		Model((*tokenRecord)(nil)).
		ColumnExpr("COALESCE(MAX(version), 0)").
		Where("?TableAlias.environment = ?", environment).
		Scan(ctx, &maxVersion); err != nil {
		return 0, err
	}
	return maxVersion + 1, nil
}

func newTokenRecord(in core.SaveTokenInput, version int, now time.Time) *tokenRecord {
	record := &tokenRecord{
		ID:                uuid.NewString(),
		Environment:       strings.TrimSpace(strings.ToLower(in.Environment)),
		Version:           version,
		EncryptedPayload:  append([]byte(nil), in.EncryptedPayload...),
		TokenType:         strings.TrimSpace(in.TokenType),
		Status:            string(in.Status),
		EncryptionKeyID:   strings.TrimSpace(in.EncryptionKeyID),
		EncryptionVersion: in.EncryptionVersion,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if record.TokenType == "" {
		record.TokenType = "bearer"
	}
	if in.ExpiresAt != nil {
		value := in.ExpiresAt.UTC()
		record.ExpiresAt = &value
	}
	return record
}

func (r *tokenRecord) toDomain() core.TokenRecord {
	if r == nil {
		return core.TokenRecord{}
	}
	record := core.TokenRecord{
		ID:                r.ID,
		Environment:       r.Environment,
		Version:           r.Version,
		EncryptedPayload:  append([]byte(nil), r.EncryptedPayload...),
		TokenType:         r.TokenType,
		Status:            core.TokenStatus(r.Status),
		RevocationReason:  r.RevocationReason,
		EncryptionKeyID:   r.EncryptionKeyID,
		EncryptionVersion: r.EncryptionVersion,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	if r.ExpiresAt != nil {
		value := r.ExpiresAt.UTC()
		record.ExpiresAt = &value
	}
	return record
}
