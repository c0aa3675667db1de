package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bragboard/server/board/domain"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, name, email, password_hash, department, role, bio, avatar_url, is_deleted, joined_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Department, &u.Role, &u.Bio, &u.AvatarURL, &u.IsDeleted, &u.JoinedAt)
	return u, err
}

func collectUsers(rows pgx.Rows) ([]domain.User, error) {
	defer rows.Close()
	items := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, rows.Err()
}

func (r *UserRepository) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users(name, email, password_hash, department, role, bio)
		VALUES($1, $2, $3, $4, $5, $6)
		RETURNING `+userColumns, user.Name, user.Email, user.PasswordHash, user.Department, user.Role, user.Bio)
	created, err := scanUser(row)
	return created, mapErr("create user", err)
}

func (r *UserRepository) GetUser(ctx context.Context, id int64) (domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
	return u, mapErr("get user", err)
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email)=lower($1)`, email))
	return u, mapErr("get user by email", err)
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, name, department, bio string) (domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `
		UPDATE users SET name=$2, department=$3, bio=$4
		WHERE id=$1 AND NOT is_deleted
		RETURNING `+userColumns, id, name, department, bio))
	return u, mapErr("update profile", err)
}

func (r *UserRepository) UpdateAvatar(ctx context.Context, id int64, avatarURL string) (domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `
		UPDATE users SET avatar_url=$2
		WHERE id=$1 AND NOT is_deleted
		RETURNING `+userColumns, id, avatarURL))
	return u, mapErr("update avatar", err)
}

func (r *UserRepository) UpdateRole(ctx context.Context, id int64, role domain.UserRole) (domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `
		UPDATE users SET role=$2
		WHERE id=$1
		RETURNING `+userColumns, id, role))
	return u, mapErr("update role", err)
}

func (r *UserRepository) SoftDeleteUser(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE users SET is_deleted=TRUE WHERE id=$1 AND NOT is_deleted`, id)
	if err != nil {
		return mapErr("soft delete user", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("soft delete user: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *UserRepository) ListUsers(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	var (
		where []string
		args  []any
	)
	if !filter.IncludeDeleted {
		where = append(where, "NOT is_deleted")
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+q+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", len(args), len(args)))
	}
	if d := strings.TrimSpace(filter.Department); d != "" {
		args = append(args, d)
		where = append(where, fmt.Sprintf("department=$%d", len(args)))
	}
	query := `SELECT ` + userColumns + ` FROM users`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY name, id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr("list users", err)
	}
	users, err := collectUsers(rows)
	return users, mapErr("list users", err)
}

func (r *UserRepository) ActiveUsersByIDs(ctx context.Context, ids []int64) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1) AND NOT is_deleted ORDER BY id`, ids)
	if err != nil {
		return nil, mapErr("users by ids", err)
	}
	users, err := collectUsers(rows)
	return users, mapErr("users by ids", err)
}

func (r *UserRepository) ListDepartments(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT department FROM users
		WHERE NOT is_deleted AND department <> ''
		ORDER BY department
	`)
	if err != nil {
		return nil, mapErr("list departments", err)
	}
	departments, err := pgx.CollectRows(rows, pgx.RowTo[string])
	return departments, mapErr("list departments", err)
}
