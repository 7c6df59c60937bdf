package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"consigna/internal/core/id"
	"consigna/internal/domain/audit"
)

// compressionAlgo marks how the stored payload is encoded.
type compressionAlgo string

const (
	compressionNone compressionAlgo = "none"
	compressionZstd compressionAlgo = "zstd"
)

// AuditRow is the sys_audit table shape.
type AuditRow struct {
	ID                id.ID           `db:"id"`
	EntityType        string          `db:"entity_type"`
	EntityID          id.ID           `db:"entity_id"`
	Action            string          `db:"action"`
	UserID            string          `db:"user_id"`
	Payload           json.RawMessage `db:"payload"`
	PayloadCompressed []byte          `db:"payload_compressed"`
	CompressionAlgo   compressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// AuditRecorder persists audit entries to sys_audit, compressing payloads
// past the threshold with zstd. Implements audit.Recorder; entries written
// inside a transaction roll back with it.
type AuditRecorder struct {
	tm                *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

var _ audit.Recorder = (*AuditRecorder)(nil)

// NewAuditRecorder creates a new audit recorder.
func NewAuditRecorder(tm *TxManager) (*AuditRecorder, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditRecorder{
		tm:                tm,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024,
	}, nil
}

// Record implements audit.Recorder.
func (r *AuditRecorder) Record(ctx context.Context, e audit.Entry) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	row := AuditRow{
		ID:              id.New(),
		EntityType:      e.EntityType,
		EntityID:        e.EntityID,
		Action:          string(e.Action),
		UserID:          e.UserID,
		Payload:         payload,
		CompressionAlgo: compressionNone,
		CreatedAt:       time.Now().UTC(),
	}

	if len(payload) > r.compressThreshold {
		row.PayloadCompressed = r.encoder.EncodeAll(payload, nil)
		row.Payload = nil
		row.CompressionAlgo = compressionZstd
	}

	sql := `
		INSERT INTO sys_audit (
			id, entity_type, entity_id, action, user_id,
			payload, payload_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.tm.GetQuerier(ctx).Exec(ctx, sql,
		row.ID, row.EntityType, row.EntityID, row.Action, row.UserID,
		row.Payload, row.PayloadCompressed, row.CompressionAlgo, row.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// History retrieves the audit trail of one entity, newest first.
func (r *AuditRecorder) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]AuditRow, error) {
	sql := `
		SELECT id, entity_type, entity_id, action, user_id,
		       payload, payload_compressed, compression_algo, created_at
		FROM sys_audit
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`
	rows, err := r.tm.GetQuerier(ctx).Query(ctx, sql, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []AuditRow
	for rows.Next() {
		var e AuditRow
		err := rows.Scan(
			&e.ID, &e.EntityType, &e.EntityID, &e.Action, &e.UserID,
			&e.Payload, &e.PayloadCompressed, &e.CompressionAlgo, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}

		if e.CompressionAlgo == compressionZstd && len(e.PayloadCompressed) > 0 {
			decompressed, err := r.decoder.DecodeAll(e.PayloadCompressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress payload: %w", err)
			}
			e.Payload = decompressed
			e.PayloadCompressed = nil
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
