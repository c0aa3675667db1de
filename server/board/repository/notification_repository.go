package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bragboard/server/board/domain"
)

type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

const notificationSelect = `
	SELECT n.id, n.user_id, n.type, n.message, n.reference_id, n.is_read, n.created_at,
	       a.id, a.name, a.department, a.avatar_url
	FROM notifications n
	LEFT JOIN users a ON a.id = n.actor_id`

func scanNotification(row pgx.Row) (domain.Notification, error) {
	var (
		n          domain.Notification
		actorID    *int64
		actorName  *string
		actorDept  *string
		actorImage *string
	)
	if err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &n.ReferenceID, &n.IsRead, &n.CreatedAt,
		&actorID, &actorName, &actorDept, &actorImage); err != nil {
		return domain.Notification{}, err
	}
	if actorID != nil {
		n.Actor = &domain.UserSummary{ID: *actorID, Name: deref(actorName), Department: deref(actorDept), AvatarURL: deref(actorImage)}
	}
	return n, nil
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func (r *NotificationRepository) CreateNotification(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	var actorID *int64
	if n.Actor != nil {
		actorID = &n.Actor.ID
	}
	var id int64
	if err := r.pool.QueryRow(ctx, `
		INSERT INTO notifications(user_id, actor_id, type, message, reference_id)
		VALUES($1, $2, $3, $4, $5)
		RETURNING id
	`, n.UserID, actorID, n.Type, n.Message, n.ReferenceID).Scan(&id); err != nil {
		return domain.Notification{}, mapErr("create notification", err)
	}
	created, err := scanNotification(r.pool.QueryRow(ctx, notificationSelect+"\n\tWHERE n.id = $1", id))
	return created, mapErr("get notification", err)
}

func (r *NotificationRepository) ListNotifications(ctx context.Context, userID int64, filter domain.NotificationFilter) ([]domain.Notification, error) {
	query := notificationSelect + "\n\tWHERE n.user_id = $1"
	if filter.UnreadOnly {
		query += " AND NOT n.is_read"
	}
	query += "\n\tORDER BY n.created_at DESC, n.id DESC OFFSET $2 LIMIT $3"

	rows, err := r.pool.Query(ctx, query, userID, filter.Skip, filter.Limit)
	if err != nil {
		return nil, mapErr("list notifications", err)
	}
	defer rows.Close()
	items := make([]domain.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, mapErr("scan notification", err)
		}
		items = append(items, n)
	}
	return items, mapErr("list notifications", rows.Err())
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id=$1 AND NOT is_read`, userID).Scan(&count)
	return count, mapErr("count unread", err)
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id int64) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE notifications SET is_read=TRUE WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return mapErr("mark read", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("mark read: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `UPDATE notifications SET is_read=TRUE WHERE user_id=$1 AND NOT is_read`, userID)
	if err != nil {
		return 0, mapErr("mark all read", err)
	}
	return cmd.RowsAffected(), nil
}
