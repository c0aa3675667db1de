package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bragboard/server/board/domain"
)

type ShoutoutRepository struct {
	pool *pgxpool.Pool
}

func NewShoutoutRepository(pool *pgxpool.Pool) *ShoutoutRepository {
	return &ShoutoutRepository{pool: pool}
}

const shoutoutSelect = `
	SELECT s.id, s.title, s.message, s.image_url, s.thumbnail_url, s.tags, s.created_at, s.updated_at,
	       u.id, u.name, u.department, u.avatar_url
	FROM shoutouts s
	JOIN users u ON u.id = s.sender_id`

func scanShoutout(row pgx.Row) (domain.Shoutout, error) {
	var s domain.Shoutout
	err := row.Scan(&s.ID, &s.Title, &s.Message, &s.ImageURL, &s.ThumbnailURL, &s.Tags, &s.CreatedAt, &s.UpdatedAt,
		&s.Sender.ID, &s.Sender.Name, &s.Sender.Department, &s.Sender.AvatarURL)
	return s, err
}

// ListShoutouts returns one feed page in (created_at DESC, id DESC) order.
// A zero Limit returns every matching row.
func (r *ShoutoutRepository) ListShoutouts(ctx context.Context, filter domain.FeedFilter) ([]domain.Shoutout, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if d := strings.TrimSpace(filter.Department); d != "" {
		p := arg(d)
		where = append(where, `(u.department = `+p+` OR EXISTS (
			SELECT 1 FROM shoutout_recipients sr JOIN users ru ON ru.id = sr.user_id
			WHERE sr.shoutout_id = s.id AND ru.department = `+p+`))`)
	}
	if filter.UserID > 0 {
		p := arg(filter.UserID)
		where = append(where, `(s.sender_id = `+p+` OR EXISTS (
			SELECT 1 FROM shoutout_recipients sr WHERE sr.shoutout_id = s.id AND sr.user_id = `+p+`))`)
	}
	if filter.DateFrom != nil {
		where = append(where, "s.created_at >= "+arg(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		where = append(where, "s.created_at < "+arg(*filter.DateTo))
	}
	if filter.Cursor != nil {
		where = append(where, fmt.Sprintf("(s.created_at, s.id) < (%s, %s)", arg(filter.Cursor.CreatedAt), arg(filter.Cursor.ID)))
	}

	query := shoutoutSelect
	if len(where) > 0 {
		query += "\n\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\tORDER BY s.created_at DESC, s.id DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr("list shoutouts", err)
	}
	defer rows.Close()
	items := make([]domain.Shoutout, 0)
	for rows.Next() {
		s, err := scanShoutout(rows)
		if err != nil {
			return nil, mapErr("scan shoutout", err)
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("list shoutouts", err)
	}
	if err := r.loadRelations(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *ShoutoutRepository) GetShoutout(ctx context.Context, id int64) (domain.Shoutout, error) {
	s, err := scanShoutout(r.pool.QueryRow(ctx, shoutoutSelect+"\n\tWHERE s.id = $1", id))
	if err != nil {
		return domain.Shoutout{}, mapErr("get shoutout", err)
	}
	items := []domain.Shoutout{s}
	if err := r.loadRelations(ctx, items); err != nil {
		return domain.Shoutout{}, err
	}
	return items[0], nil
}

func (r *ShoutoutRepository) loadRelations(ctx context.Context, items []domain.Shoutout) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]int64, len(items))
	index := make(map[int64]int, len(items))
	for i := range items {
		ids[i] = items[i].ID
		index[items[i].ID] = i
		items[i].Recipients = []domain.UserSummary{}
		items[i].Reactions = []domain.Reaction{}
		items[i].Comments = []domain.Comment{}
	}

	rows, err := r.pool.Query(ctx, `
		SELECT sr.shoutout_id, u.id, u.name, u.department, u.avatar_url
		FROM shoutout_recipients sr
		JOIN users u ON u.id = sr.user_id
		WHERE sr.shoutout_id = ANY($1)
		ORDER BY u.name, u.id
	`, ids)
	if err != nil {
		return mapErr("load recipients", err)
	}
	for rows.Next() {
		var shoutoutID int64
		var u domain.UserSummary
		if err := rows.Scan(&shoutoutID, &u.ID, &u.Name, &u.Department, &u.AvatarURL); err != nil {
			rows.Close()
			return mapErr("scan recipient", err)
		}
		items[index[shoutoutID]].Recipients = append(items[index[shoutoutID]].Recipients, u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return mapErr("load recipients", err)
	}

	rows, err = r.pool.Query(ctx, `
		SELECT id, shoutout_id, user_id, type, created_at
		FROM reactions
		WHERE shoutout_id = ANY($1)
		ORDER BY created_at, id
	`, ids)
	if err != nil {
		return mapErr("load reactions", err)
	}
	for rows.Next() {
		var re domain.Reaction
		if err := rows.Scan(&re.ID, &re.ShoutoutID, &re.UserID, &re.Type, &re.CreatedAt); err != nil {
			rows.Close()
			return mapErr("scan reaction", err)
		}
		items[index[re.ShoutoutID]].Reactions = append(items[index[re.ShoutoutID]].Reactions, re)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return mapErr("load reactions", err)
	}

	rows, err = r.pool.Query(ctx, `
		SELECT c.id, c.shoutout_id, c.parent_id, c.content, c.created_at,
		       u.id, u.name, u.department, u.avatar_url
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.shoutout_id = ANY($1)
		ORDER BY c.created_at, c.id
	`, ids)
	if err != nil {
		return mapErr("load comments", err)
	}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			rows.Close()
			return mapErr("scan comment", err)
		}
		items[index[c.ShoutoutID]].Comments = append(items[index[c.ShoutoutID]].Comments, c)
	}
	rows.Close()
	return mapErr("load comments", rows.Err())
}

func scanComment(row pgx.Row) (domain.Comment, error) {
	var c domain.Comment
	err := row.Scan(&c.ID, &c.ShoutoutID, &c.ParentID, &c.Content, &c.CreatedAt,
		&c.User.ID, &c.User.Name, &c.User.Department, &c.User.AvatarURL)
	return c, err
}

func (r *ShoutoutRepository) CreateShoutout(ctx context.Context, s domain.Shoutout, recipientIDs []int64) (int64, error) {
	var id int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
			INSERT INTO shoutouts(sender_id, title, message, image_url, thumbnail_url, tags)
			VALUES($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, s.Sender.ID, s.Title, s.Message, s.ImageURL, s.ThumbnailURL, s.Tags).Scan(&id); err != nil {
			return err
		}
		for _, recipientID := range recipientIDs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO shoutout_recipients(shoutout_id, user_id) VALUES($1, $2)
				ON CONFLICT DO NOTHING
			`, id, recipientID); err != nil {
				return err
			}
		}
		return nil
	})
	return id, mapErr("create shoutout", err)
}

func (r *ShoutoutRepository) UpdateShoutout(ctx context.Context, id int64, title, message string, tags []string) error {
	cmd, err := r.pool.Exec(ctx, `
		UPDATE shoutouts SET title=$2, message=$3, tags=$4, updated_at=$5
		WHERE id=$1
	`, id, title, message, tags, time.Now().UTC())
	if err != nil {
		return mapErr("update shoutout", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("update shoutout: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *ShoutoutRepository) DeleteShoutout(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM shoutouts WHERE id=$1`, id)
	if err != nil {
		return mapErr("delete shoutout", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("delete shoutout: %w", domain.ErrNotFound)
	}
	return nil
}

// ToggleReaction removes the reaction when present and adds it otherwise.
// added reports which of the two happened.
func (r *ShoutoutRepository) ToggleReaction(ctx context.Context, shoutoutID, userID int64, reactionType domain.ReactionType) (bool, error) {
	var added bool
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, `DELETE FROM reactions WHERE shoutout_id=$1 AND user_id=$2 AND type=$3`, shoutoutID, userID, reactionType)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() > 0 {
			return nil
		}
		cmd, err = tx.Exec(ctx, `
			INSERT INTO reactions(shoutout_id, user_id, type) VALUES($1, $2, $3)
			ON CONFLICT (shoutout_id, user_id, type) DO NOTHING
		`, shoutoutID, userID, reactionType)
		if err != nil {
			return err
		}
		added = cmd.RowsAffected() > 0
		return nil
	})
	return added, mapErr("toggle reaction", err)
}

func (r *ShoutoutRepository) AddComment(ctx context.Context, shoutoutID, userID int64, parentID *int64, content string) (domain.Comment, error) {
	var id int64
	if err := r.pool.QueryRow(ctx, `
		INSERT INTO comments(shoutout_id, user_id, parent_id, content)
		VALUES($1, $2, $3, $4)
		RETURNING id
	`, shoutoutID, userID, parentID, content).Scan(&id); err != nil {
		return domain.Comment{}, mapErr("add comment", err)
	}
	return r.GetComment(ctx, id)
}

func (r *ShoutoutRepository) GetComment(ctx context.Context, id int64) (domain.Comment, error) {
	c, err := scanComment(r.pool.QueryRow(ctx, `
		SELECT c.id, c.shoutout_id, c.parent_id, c.content, c.created_at,
		       u.id, u.name, u.department, u.avatar_url
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.id = $1
	`, id))
	return c, mapErr("get comment", err)
}

func (r *ShoutoutRepository) DeleteComment(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM comments WHERE id=$1`, id)
	if err != nil {
		return mapErr("delete comment", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("delete comment: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *ShoutoutRepository) CreateReport(ctx context.Context, shoutoutID, reporterID int64, reason string) (domain.Report, error) {
	var id int64
	if err := r.pool.QueryRow(ctx, `
		INSERT INTO reports(shoutout_id, reporter_id, reason, status)
		VALUES($1, $2, $3, $4)
		RETURNING id
	`, shoutoutID, reporterID, reason, domain.ReportPending).Scan(&id); err != nil {
		return domain.Report{}, mapErr("create report", err)
	}
	return getReport(ctx, r.pool, id)
}
