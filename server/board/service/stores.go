package service

import (
	"context"
	"time"

	"bragboard/server/board/domain"
	"bragboard/server/common/infra/object"
)

type UserStore interface {
	CreateUser(ctx context.Context, user domain.User) (domain.User, error)
	GetUser(ctx context.Context, id int64) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	UpdateProfile(ctx context.Context, id int64, name, department, bio string) (domain.User, error)
	UpdateAvatar(ctx context.Context, id int64, avatarURL string) (domain.User, error)
	UpdateRole(ctx context.Context, id int64, role domain.UserRole) (domain.User, error)
	SoftDeleteUser(ctx context.Context, id int64) error
	ListUsers(ctx context.Context, filter domain.UserFilter) ([]domain.User, error)
	ActiveUsersByIDs(ctx context.Context, ids []int64) ([]domain.User, error)
	ListDepartments(ctx context.Context) ([]string, error)
}

type ShoutoutStore interface {
	ListShoutouts(ctx context.Context, filter domain.FeedFilter) ([]domain.Shoutout, error)
	GetShoutout(ctx context.Context, id int64) (domain.Shoutout, error)
	CreateShoutout(ctx context.Context, s domain.Shoutout, recipientIDs []int64) (int64, error)
	UpdateShoutout(ctx context.Context, id int64, title, message string, tags []string) error
	DeleteShoutout(ctx context.Context, id int64) error
	ToggleReaction(ctx context.Context, shoutoutID, userID int64, reactionType domain.ReactionType) (bool, error)
	AddComment(ctx context.Context, shoutoutID, userID int64, parentID *int64, content string) (domain.Comment, error)
	GetComment(ctx context.Context, id int64) (domain.Comment, error)
	DeleteComment(ctx context.Context, id int64) error
	CreateReport(ctx context.Context, shoutoutID, reporterID int64, reason string) (domain.Report, error)
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n domain.Notification) (domain.Notification, error)
	ListNotifications(ctx context.Context, userID int64, filter domain.NotificationFilter) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	MarkRead(ctx context.Context, userID, id int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
}

type AdminStore interface {
	Overview(ctx context.Context) (domain.StatsOverview, error)
	TopContributors(ctx context.Context, limit int) ([]domain.UserCount, error)
	MostAppreciated(ctx context.Context, limit int) ([]domain.UserCount, error)
	ShoutoutsByDepartment(ctx context.Context) ([]domain.DepartmentCount, error)
	ShoutoutsPerDay(ctx context.Context, since time.Time) ([]domain.DayCount, error)
	LeaderboardActivity(ctx context.Context) ([]domain.LeaderboardActivity, error)
	GetSettings(ctx context.Context) (map[string]string, error)
	PutSettings(ctx context.Context, values map[string]string) error
	GetReport(ctx context.Context, id int64) (domain.Report, error)
	ListReports(ctx context.Context, status domain.ReportStatus) ([]domain.Report, error)
	ResolveReport(ctx context.Context, id, adminID int64) (domain.Report, error)
	InsertAdminLog(ctx context.Context, entry domain.AdminLog) error
	ListAdminLogs(ctx context.Context, limit int) ([]domain.AdminLog, error)
}

type MediaUploader interface {
	Upload(ctx context.Context, prefix, filename, contentType string, data []byte) (object.StoredMedia, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, payload any) error
}

type Notifier interface {
	NotifyUser(userID int64, payload any)
	Broadcast(payload any)
}
