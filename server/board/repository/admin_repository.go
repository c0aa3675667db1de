package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bragboard/server/board/domain"
)

type AdminRepository struct {
	pool *pgxpool.Pool
}

func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

func (r *AdminRepository) Overview(ctx context.Context) (domain.StatsOverview, error) {
	var o domain.StatsOverview
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users WHERE NOT is_deleted),
			(SELECT COUNT(*) FROM shoutouts),
			(SELECT COUNT(*) FROM reactions),
			(SELECT COUNT(*) FROM comments),
			(SELECT COUNT(*) FROM reports WHERE status = $1)
	`, domain.ReportPending).Scan(&o.TotalUsers, &o.TotalShoutouts, &o.TotalReactions, &o.TotalComments, &o.PendingReports)
	return o, mapErr("stats overview", err)
}

func (r *AdminRepository) userCounts(ctx context.Context, op, query string, limit int) ([]domain.UserCount, error) {
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, mapErr(op, err)
	}
	defer rows.Close()
	items := make([]domain.UserCount, 0)
	for rows.Next() {
		var item domain.UserCount
		if err := rows.Scan(&item.User.ID, &item.User.Name, &item.User.Department, &item.User.AvatarURL, &item.Count); err != nil {
			return nil, mapErr(op, err)
		}
		items = append(items, item)
	}
	return items, mapErr(op, rows.Err())
}

func (r *AdminRepository) TopContributors(ctx context.Context, limit int) ([]domain.UserCount, error) {
	return r.userCounts(ctx, "top contributors", `
		SELECT u.id, u.name, u.department, u.avatar_url, COUNT(s.id) AS total
		FROM users u
		JOIN shoutouts s ON s.sender_id = u.id
		GROUP BY u.id
		ORDER BY total DESC, u.id
		LIMIT $1
	`, limit)
}

func (r *AdminRepository) MostAppreciated(ctx context.Context, limit int) ([]domain.UserCount, error) {
	return r.userCounts(ctx, "most appreciated", `
		SELECT u.id, u.name, u.department, u.avatar_url, COUNT(sr.shoutout_id) AS total
		FROM users u
		JOIN shoutout_recipients sr ON sr.user_id = u.id
		GROUP BY u.id
		ORDER BY total DESC, u.id
		LIMIT $1
	`, limit)
}

func (r *AdminRepository) ShoutoutsByDepartment(ctx context.Context) ([]domain.DepartmentCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.department, COUNT(s.id) AS total
		FROM shoutouts s
		JOIN users u ON u.id = s.sender_id
		GROUP BY u.department
		ORDER BY total DESC, u.department
	`)
	if err != nil {
		return nil, mapErr("shoutouts by department", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.DepartmentCount, error) {
		var item domain.DepartmentCount
		err := row.Scan(&item.Department, &item.Count)
		return item, err
	})
	return items, mapErr("shoutouts by department", err)
}

func (r *AdminRepository) ShoutoutsPerDay(ctx context.Context, since time.Time) ([]domain.DayCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT to_char(date_trunc('day', created_at), 'YYYY-MM-DD') AS day, COUNT(*)
		FROM shoutouts
		WHERE created_at >= $1
		GROUP BY day
		ORDER BY day
	`, since)
	if err != nil {
		return nil, mapErr("shoutouts per day", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.DayCount, error) {
		var item domain.DayCount
		err := row.Scan(&item.Day, &item.Count)
		return item, err
	})
	return items, mapErr("shoutouts per day", err)
}

func (r *AdminRepository) LeaderboardActivity(ctx context.Context) ([]domain.LeaderboardActivity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.name, u.department, u.avatar_url,
			(SELECT COUNT(*) FROM shoutouts s WHERE s.sender_id = u.id),
			(SELECT COUNT(*) FROM shoutout_recipients sr WHERE sr.user_id = u.id),
			(SELECT COUNT(*) FROM reactions re JOIN shoutouts s ON s.id = re.shoutout_id
				WHERE s.sender_id = u.id AND re.type = 'star'),
			(SELECT COUNT(*) FROM reactions re JOIN shoutouts s ON s.id = re.shoutout_id
				WHERE s.sender_id = u.id AND re.type = 'clap'),
			(SELECT COUNT(*) FROM reactions re JOIN shoutouts s ON s.id = re.shoutout_id
				WHERE s.sender_id = u.id AND re.type = 'like')
		FROM users u
		WHERE NOT u.is_deleted AND u.role = 'employee'
	`)
	if err != nil {
		return nil, mapErr("leaderboard", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.LeaderboardActivity, error) {
		var a domain.LeaderboardActivity
		err := row.Scan(&a.User.ID, &a.User.Name, &a.User.Department, &a.User.AvatarURL, &a.Sent, &a.Received, &a.Stars, &a.Claps, &a.Likes)
		return a, err
	})
	return items, mapErr("leaderboard", err)
}

func (r *AdminRepository) GetSettings(ctx context.Context) (map[string]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, mapErr("get settings", err)
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, mapErr("get settings", err)
		}
		out[key] = value
	}
	return out, mapErr("get settings", rows.Err())
}

func (r *AdminRepository) PutSettings(ctx context.Context, values map[string]string) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for key, value := range values {
			if _, err := tx.Exec(ctx, `
				INSERT INTO settings(key, value, updated_at) VALUES($1, $2, NOW())
				ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
			`, key, value); err != nil {
				return err
			}
		}
		return nil
	})
	return mapErr("put settings", err)
}

const reportSelect = `
	SELECT r.id, r.shoutout_id, r.reason, r.status, r.resolved_by, r.created_at, r.resolved_at,
	       u.id, u.name, u.department, u.avatar_url
	FROM reports r
	JOIN users u ON u.id = r.reporter_id`

func scanReport(row pgx.Row) (domain.Report, error) {
	var rep domain.Report
	err := row.Scan(&rep.ID, &rep.ShoutoutID, &rep.Reason, &rep.Status, &rep.ResolvedBy, &rep.CreatedAt, &rep.ResolvedAt,
		&rep.Reporter.ID, &rep.Reporter.Name, &rep.Reporter.Department, &rep.Reporter.AvatarURL)
	return rep, err
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getReport(ctx context.Context, q querier, id int64) (domain.Report, error) {
	rep, err := scanReport(q.QueryRow(ctx, reportSelect+"\n\tWHERE r.id = $1", id))
	return rep, mapErr("get report", err)
}

func (r *AdminRepository) GetReport(ctx context.Context, id int64) (domain.Report, error) {
	return getReport(ctx, r.pool, id)
}

// ListReports filters by status when it is non-empty.
func (r *AdminRepository) ListReports(ctx context.Context, status domain.ReportStatus) ([]domain.Report, error) {
	query := reportSelect
	args := []any{}
	if status != "" {
		query += "\n\tWHERE r.status = $1"
		args = append(args, status)
	}
	query += "\n\tORDER BY r.created_at DESC, r.id DESC"
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr("list reports", err)
	}
	defer rows.Close()
	items := make([]domain.Report, 0)
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, mapErr("scan report", err)
		}
		items = append(items, rep)
	}
	return items, mapErr("list reports", rows.Err())
}

func (r *AdminRepository) ResolveReport(ctx context.Context, id, adminID int64) (domain.Report, error) {
	cmd, err := r.pool.Exec(ctx, `
		UPDATE reports SET status=$2, resolved_by=$3, resolved_at=NOW()
		WHERE id=$1
	`, id, domain.ReportResolved, adminID)
	if err != nil {
		return domain.Report{}, mapErr("resolve report", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.Report{}, fmt.Errorf("resolve report: %w", domain.ErrNotFound)
	}
	return getReport(ctx, r.pool, id)
}

func (r *AdminRepository) InsertAdminLog(ctx context.Context, entry domain.AdminLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO admin_logs(admin_id, action, target_type, target_id, detail)
		VALUES($1, $2, $3, $4, $5)
	`, entry.AdminID, entry.Action, entry.TargetType, entry.TargetID, entry.Detail)
	return mapErr("insert admin log", err)
}

func (r *AdminRepository) ListAdminLogs(ctx context.Context, limit int) ([]domain.AdminLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT l.id, l.admin_id, u.name, l.action, l.target_type, l.target_id, l.detail, l.created_at
		FROM admin_logs l
		JOIN users u ON u.id = l.admin_id
		ORDER BY l.created_at DESC, l.id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, mapErr("list admin logs", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.AdminLog, error) {
		var l domain.AdminLog
		err := row.Scan(&l.ID, &l.AdminID, &l.AdminName, &l.Action, &l.TargetType, &l.TargetID, &l.Detail, &l.CreatedAt)
		return l, err
	})
	return items, mapErr("list admin logs", err)
}
