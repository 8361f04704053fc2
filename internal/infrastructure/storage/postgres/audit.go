package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	appctx "stockforge/internal/core/context"
	"stockforge/internal/core/id"
	"stockforge/internal/domain/audit"
)

// Compile-time check that AuditService implements audit.Recorder.
var _ audit.Recorder = (*AuditService)(nil)

// compressionAlgo specifies the compression used for the changes column.
type compressionAlgo string

const (
	compressionNone compressionAlgo = "none"
	compressionZstd compressionAlgo = "zstd"
)

// parseCompression maps the nullable compression_algo column onto the enum.
// Rows written before compression existed carry NULL.
func parseCompression(col *string) compressionAlgo {
	if col == nil || *col == "" {
		return compressionNone
	}
	return compressionAlgo(*col)
}

// AuditService stores audit entries in sys_audit. Change payloads above the
// threshold are zstd-compressed; physical count sheets can carry hundreds of
// lines.
type AuditService struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int // bytes
}

// NewAuditService creates a new audit service.
func NewAuditService(txManager *TxManager) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditService{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024,
	}, nil
}

// Record writes one audit entry, filling in the user from context when the
// entry leaves it blank.
func (s *AuditService) Record(ctx context.Context, entry audit.Entry) error {
	if user := appctx.GetUser(ctx); user != nil {
		if entry.UserID == "" {
			entry.UserID = user.UserID
		}
		if entry.UserEmail == "" {
			entry.UserEmail = user.Email
		}
	}

	if id.IsNil(entry.ID) {
		entry.ID = id.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	algo := compressionNone
	changes := entry.Changes
	var compressed []byte
	if len(changes) > s.compressThreshold {
		compressed = s.encoder.EncodeAll(changes, nil)
		changes = nil
		algo = compressionZstd
	}

	sql := `
		INSERT INTO sys_audit (
			id, entity_type, entity_id, action, user_id, user_email,
			changes, changes_compressed, compression_algo, metadata,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	querier := s.txManager.GetQuerier(ctx)
	_, err := querier.Exec(ctx, sql,
		entry.ID, entry.EntityType, entry.EntityID, entry.Action,
		entry.UserID, entry.UserEmail,
		changes, compressed, algo,
		entry.Metadata, entry.CreatedAt,
	)
	return TranslateError(err)
}

// RecordChange marshals the change map and records it.
func (s *AuditService) RecordChange(
	ctx context.Context,
	entityType string,
	entityID id.ID,
	action audit.Action,
	changes map[string]any,
) error {
	var changesJSON json.RawMessage
	if changes != nil {
		data, err := json.Marshal(changes)
		if err != nil {
			return fmt.Errorf("marshal changes: %w", err)
		}
		changesJSON = data
	}

	return s.Record(ctx, audit.Entry{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Changes:    changesJSON,
	})
}

// EntityHistory retrieves audit history for an entity, newest first.
func (s *AuditService) EntityHistory(
	ctx context.Context,
	entityType string,
	entityID id.ID,
	limit int,
) ([]audit.Entry, error) {
	sql := `
		SELECT id, entity_type, entity_id, action, user_id, user_email,
			   changes, changes_compressed, compression_algo, metadata,
			   created_at
		FROM sys_audit
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := s.txManager.GetQuerier(ctx).Query(ctx, sql, entityType, entityID, limit)
	if err != nil {
		return nil, TranslateError(err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var e audit.Entry
		var compressed []byte
		var algoCol *string
		err := rows.Scan(
			&e.ID, &e.EntityType, &e.EntityID, &e.Action, &e.UserID, &e.UserEmail,
			&e.Changes, &compressed, &algoCol, &e.Metadata,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}

		if parseCompression(algoCol) == compressionZstd && len(compressed) > 0 {
			decompressed, err := s.decoder.DecodeAll(compressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress changes: %w", err)
			}
			e.Changes = decompressed
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}
