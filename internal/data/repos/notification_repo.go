package repos

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dxbintel/propsignal/internal/contracts"
)

// NotificationRepo persists notification rows deduplicated by
// (org_id, notification_key).
type NotificationRepo struct {
	pool *pgxpool.Pool
}

// NewNotificationRepo creates a notification repository.
func NewNotificationRepo(pool *pgxpool.Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

// InsertNotifications is insert-if-absent; re-publishing unchanged targets
// creates zero new rows. Returns how many rows were actually created.
func (r *NotificationRepo) InsertNotifications(ctx context.Context, notifications []contracts.Notification) (int, error) {
	if len(notifications) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO notifications (
			org_id, notification_key, recipient_id, signal_id, investor_id, title, body
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (org_id, notification_key) DO NOTHING`

	batch := &pgx.Batch{}
	for _, n := range notifications {
		batch.Queue(query,
			n.OrgID, n.NotificationKey, n.RecipientID, n.SignalID,
			n.InvestorID, n.Title, n.Body,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	created := 0
	for i := 0; i < batch.Len(); i++ {
		tag, err := br.Exec()
		if err != nil {
			return created, fmt.Errorf("insert notification %d: %w", i, err)
		}
		created += int(tag.RowsAffected())
	}
	return created, nil
}

// ListRecent returns the most recent notifications of a recipient.
func (r *NotificationRepo) ListRecent(ctx context.Context, orgID, recipientID string, limit int) ([]contracts.Notification, error) {
	query := `
		SELECT id, org_id, notification_key, recipient_id, signal_id,
		       investor_id, title, body, created_at
		FROM notifications
		WHERE org_id = $1 AND recipient_id = $2
		ORDER BY created_at DESC
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, orgID, recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []contracts.Notification
	for rows.Next() {
		var n contracts.Notification
		if err := rows.Scan(
			&n.ID, &n.OrgID, &n.NotificationKey, &n.RecipientID, &n.SignalID,
			&n.InvestorID, &n.Title, &n.Body, &n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan notification row: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
