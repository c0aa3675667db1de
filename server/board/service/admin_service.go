package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"bragboard/server/board/domain"
	commonlog "bragboard/server/common/log"
)

const (
	statsTopLimit         = 5
	statsActivityDays     = 30
	defaultLeaderboardTop = 10
	maxLeaderboardTop     = 100
	defaultAdminLogLimit  = 100
	maxSettingKeyLength   = 64
	exportTimeLayout      = time.RFC3339
)

type AdminService struct {
	admin         AdminStore
	users         UserStore
	shoutouts     ShoutoutStore
	notifications *NotificationService
	events        eventSink
	now           func() time.Time
}

func NewAdminService(admin AdminStore, users UserStore, shoutouts ShoutoutStore, notifications *NotificationService, publisher EventPublisher, notifier Notifier) *AdminService {
	return &AdminService{
		admin:         admin,
		users:         users,
		shoutouts:     shoutouts,
		notifications: notifications,
		events:        eventSink{publisher: publisher, notifier: notifier},
		now:           time.Now,
	}
}

func (s *AdminService) Stats(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		overview, err := s.admin.Overview(gctx)
		stats.Overview = overview
		return err
	})
	g.Go(func() error {
		items, err := s.admin.TopContributors(gctx, statsTopLimit)
		stats.TopContributors = items
		return err
	})
	g.Go(func() error {
		items, err := s.admin.MostAppreciated(gctx, statsTopLimit)
		stats.MostAppreciated = items
		return err
	})
	g.Go(func() error {
		items, err := s.admin.ShoutoutsByDepartment(gctx)
		stats.ByDepartment = items
		return err
	})
	g.Go(func() error {
		since := s.now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -(statsActivityDays - 1))
		items, err := s.admin.ShoutoutsPerDay(gctx, since)
		stats.ShoutoutsPerDay = items
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Stats{}, fmt.Errorf("admin stats: %w", err)
	}
	return stats, nil
}

// Leaderboard ranks active users by points, highest first. Ties are ordered
// by name then id.
func (s *AdminService) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardTop
	}
	limit = min(limit, maxLeaderboardTop)
	activity, err := s.admin.LeaderboardActivity(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(activity, func(i, j int) bool {
		pi, pj := activity[i].Points(), activity[j].Points()
		if pi != pj {
			return pi > pj
		}
		if activity[i].User.Name != activity[j].User.Name {
			return activity[i].User.Name < activity[j].User.Name
		}
		return activity[i].User.ID < activity[j].User.ID
	})
	if len(activity) > limit {
		activity = activity[:limit]
	}
	entries := make([]domain.LeaderboardEntry, 0, len(activity))
	for i, a := range activity {
		entries = append(entries, domain.LeaderboardEntry{
			Rank:     i + 1,
			User:     a.User,
			Points:   a.Points(),
			Sent:     a.Sent,
			Received: a.Received,
			Stars:    a.Stars,
			Claps:    a.Claps,
			Likes:    a.Likes,
		})
	}
	return entries, nil
}

func (s *AdminService) Users(ctx context.Context, query, department string) ([]domain.User, error) {
	return s.users.ListUsers(ctx, domain.UserFilter{Query: query, Department: department, IncludeDeleted: true})
}

func (s *AdminService) ChangeRole(ctx context.Context, adminID, userID int64, role domain.UserRole) (domain.User, error) {
	if !role.Valid() {
		return domain.User{}, fmt.Errorf("%w: role must be employee or admin", ErrInvalidInput)
	}
	if adminID == userID {
		return domain.User{}, fmt.Errorf("%w: admins cannot change their own role", ErrInvalidInput)
	}
	user, err := s.users.UpdateRole(ctx, userID, role)
	if err != nil {
		return domain.User{}, err
	}
	s.audit(ctx, adminID, "change_role", "user", userID, "role="+string(role))
	s.events.publish(ctx, domain.Event{Type: EventUserRoleChanged, ActorID: adminID, Payload: map[string]any{"user_id": userID, "role": role}})
	return user, nil
}

func (s *AdminService) DeleteUser(ctx context.Context, adminID, userID int64) error {
	if adminID == userID {
		return fmt.Errorf("%w: admins cannot delete themselves", ErrInvalidInput)
	}
	if err := s.users.SoftDeleteUser(ctx, userID); err != nil {
		return err
	}
	s.audit(ctx, adminID, "delete_user", "user", userID, "soft delete")
	s.events.publish(ctx, domain.Event{Type: EventUserDeleted, ActorID: adminID, Payload: map[string]int64{"user_id": userID}})
	return nil
}

func (s *AdminService) Settings(ctx context.Context) (map[string]string, error) {
	return s.admin.GetSettings(ctx)
}

func (s *AdminService) PutSettings(ctx context.Context, adminID int64, values map[string]string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no settings given", ErrInvalidInput)
	}
	clean := make(map[string]string, len(values))
	keys := make([]string, 0, len(values))
	for key, value := range values {
		key = strings.TrimSpace(key)
		if key == "" || len(key) > maxSettingKeyLength {
			return nil, fmt.Errorf("%w: setting key %q is invalid", ErrInvalidInput, key)
		}
		clean[key] = value
		keys = append(keys, key)
	}
	if err := s.admin.PutSettings(ctx, clean); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	s.audit(ctx, adminID, "update_settings", "settings", 0, strings.Join(keys, ","))
	return s.admin.GetSettings(ctx)
}

func (s *AdminService) Reports(ctx context.Context, status string) ([]domain.Report, error) {
	st := domain.ReportStatus(strings.TrimSpace(status))
	if st != "" && st != domain.ReportPending && st != domain.ReportResolved {
		return nil, fmt.Errorf("%w: status must be Pending or Resolved", ErrInvalidInput)
	}
	return s.admin.ListReports(ctx, st)
}

func (s *AdminService) ResolveReport(ctx context.Context, adminID, reportID int64) (domain.Report, error) {
	report, err := s.admin.ResolveReport(ctx, reportID, adminID)
	if err != nil {
		return domain.Report{}, err
	}
	s.audit(ctx, adminID, "resolve_report", "report", reportID, "")
	if s.notifications != nil {
		refID := report.ShoutoutID
		s.notifications.Notify(ctx, domain.Notification{
			UserID:      report.Reporter.ID,
			Type:        domain.NotificationReport,
			Message:     "Your report has been reviewed and resolved",
			ReferenceID: &refID,
		})
	}
	s.events.publish(ctx, domain.Event{Type: EventReportResolved, ShoutoutID: report.ShoutoutID, ActorID: adminID})
	return report, nil
}

func (s *AdminService) DeleteShoutout(ctx context.Context, adminID, shoutoutID int64) error {
	if err := s.shoutouts.DeleteShoutout(ctx, shoutoutID); err != nil {
		return err
	}
	s.audit(ctx, adminID, "delete_shoutout", "shoutout", shoutoutID, "")
	s.events.emit(ctx, domain.Event{Type: EventShoutoutDeleted, ShoutoutID: shoutoutID, ActorID: adminID})
	return nil
}

func (s *AdminService) DeleteComment(ctx context.Context, adminID, commentID int64) error {
	comment, err := s.shoutouts.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if err := s.shoutouts.DeleteComment(ctx, commentID); err != nil {
		return err
	}
	s.audit(ctx, adminID, "delete_comment", "comment", commentID, "shoutout_id="+strconv.FormatInt(comment.ShoutoutID, 10))
	s.events.emit(ctx, domain.Event{Type: EventCommentDeleted, ShoutoutID: comment.ShoutoutID, ActorID: adminID, Payload: map[string]int64{"comment_id": commentID}})
	return nil
}

func (s *AdminService) Logs(ctx context.Context, limit int) ([]domain.AdminLog, error) {
	if limit <= 0 || limit > defaultAdminLogLimit {
		limit = defaultAdminLogLimit
	}
	return s.admin.ListAdminLogs(ctx, limit)
}

func (s *AdminService) ExportUsers(ctx context.Context, adminID int64, w io.Writer) error {
	users, err := s.users.ListUsers(ctx, domain.UserFilter{IncludeDeleted: true})
	if err != nil {
		return err
	}
	rows := [][]string{{"id", "name", "email", "department", "role", "is_deleted", "joined_at"}}
	for _, u := range users {
		rows = append(rows, []string{
			strconv.FormatInt(u.ID, 10), u.Name, u.Email, u.Department, string(u.Role),
			strconv.FormatBool(u.IsDeleted), u.JoinedAt.UTC().Format(exportTimeLayout),
		})
	}
	return s.writeExport(ctx, adminID, "users", w, rows)
}

func (s *AdminService) ExportShoutouts(ctx context.Context, adminID int64, w io.Writer) error {
	items, err := s.shoutouts.ListShoutouts(ctx, domain.FeedFilter{})
	if err != nil {
		return err
	}
	rows := [][]string{{"id", "created_at", "sender", "sender_department", "recipients", "title", "message", "tags", "likes", "claps", "stars", "comments"}}
	for _, item := range items {
		names := make([]string, 0, len(item.Recipients))
		for _, r := range item.Recipients {
			names = append(names, r.Name)
		}
		counts := domain.CountReactions(item.Reactions)
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10), item.CreatedAt.UTC().Format(exportTimeLayout),
			item.Sender.Name, item.Sender.Department, strings.Join(names, "; "),
			item.Title, item.Message, strings.Join(item.Tags, "; "),
			strconv.Itoa(counts.Like), strconv.Itoa(counts.Clap), strconv.Itoa(counts.Star),
			strconv.Itoa(len(item.Comments)),
		})
	}
	return s.writeExport(ctx, adminID, "shoutouts", w, rows)
}

func (s *AdminService) ExportReports(ctx context.Context, adminID int64, w io.Writer) error {
	reports, err := s.admin.ListReports(ctx, "")
	if err != nil {
		return err
	}
	rows := [][]string{{"id", "shoutout_id", "reporter", "reason", "status", "created_at", "resolved_at"}}
	for _, r := range reports {
		resolvedAt := ""
		if r.ResolvedAt != nil {
			resolvedAt = r.ResolvedAt.UTC().Format(exportTimeLayout)
		}
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10), strconv.FormatInt(r.ShoutoutID, 10), r.Reporter.Name,
			r.Reason, string(r.Status), r.CreatedAt.UTC().Format(exportTimeLayout), resolvedAt,
		})
	}
	return s.writeExport(ctx, adminID, "reports", w, rows)
}

func (s *AdminService) writeExport(ctx context.Context, adminID int64, kind string, w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s csv: %w", kind, err)
	}
	s.audit(ctx, adminID, "export_"+kind, kind, 0, "rows="+strconv.Itoa(len(rows)-1))
	return nil
}

func (s *AdminService) audit(ctx context.Context, adminID int64, action, targetType string, targetID int64, detail string) {
	entry := domain.AdminLog{AdminID: adminID, Action: action, TargetType: targetType, Detail: detail}
	if targetID > 0 {
		entry.TargetID = &targetID
	}
	if err := s.admin.InsertAdminLog(ctx, entry); err != nil {
		commonlog.Errorf("event=admin_log action=%s status=failed admin_id=%d target_type=%s target_id=%d error=%v", action, adminID, targetType, targetID, err)
		return
	}
	commonlog.Infof("event=admin_log action=%s status=ok admin_id=%d target_type=%s target_id=%d", action, adminID, targetType, targetID)
}
