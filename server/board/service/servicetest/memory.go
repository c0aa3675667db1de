// Package servicetest holds in-memory implementations of the board stores
// and collaborators for handler and service tests.
package servicetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"bragboard/server/board/domain"
	"bragboard/server/common/infra/object"
)

type Board struct {
	mu            sync.Mutex
	clock         time.Time
	nextID        int64
	users         map[int64]domain.User
	shoutouts     map[int64]domain.Shoutout
	recipients    map[int64][]int64
	reactions     []domain.Reaction
	comments      map[int64]domain.Comment
	notifications []domain.Notification
	reports       map[int64]domain.Report
	settings      map[string]string
	logs          []domain.AdminLog
}

func NewBoard() *Board {
	return &Board{
		clock:      time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		users:      map[int64]domain.User{},
		shoutouts:  map[int64]domain.Shoutout{},
		recipients: map[int64][]int64{},
		comments:   map[int64]domain.Comment{},
		reports:    map[int64]domain.Report{},
		settings:   map[string]string{},
	}
}

func (m *Board) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clock
}

func (m *Board) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *Board) tick() time.Time {
	m.clock = m.clock.Add(time.Minute)
	return m.clock
}

func (m *Board) AddUser(name, department string, role domain.UserRole) domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := domain.User{ID: m.id(), Name: name, Email: strings.ToLower(name) + "@example.com", Department: department, Role: role, JoinedAt: m.tick()}
	m.users[u.ID] = u
	return u
}

func (m *Board) CreateUser(_ context.Context, user domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return domain.User{}, fmt.Errorf("create user: %w", domain.ErrConflict)
		}
	}
	user.ID = m.id()
	user.JoinedAt = m.tick()
	m.users[user.ID] = user
	return user, nil
}

func (m *Board) GetUser(_ context.Context, id int64) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, fmt.Errorf("get user: %w", domain.ErrNotFound)
	}
	return u, nil
}

func (m *Board) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return domain.User{}, fmt.Errorf("get user by email: %w", domain.ErrNotFound)
}

func (m *Board) updateUser(id int64, fn func(*domain.User)) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, fmt.Errorf("update user: %w", domain.ErrNotFound)
	}
	fn(&u)
	m.users[id] = u
	return u, nil
}

func (m *Board) UpdateProfile(_ context.Context, id int64, name, department, bio string) (domain.User, error) {
	return m.updateUser(id, func(u *domain.User) { u.Name, u.Department, u.Bio = name, department, bio })
}

func (m *Board) UpdateAvatar(_ context.Context, id int64, avatarURL string) (domain.User, error) {
	return m.updateUser(id, func(u *domain.User) { u.AvatarURL = avatarURL })
}

func (m *Board) UpdateRole(_ context.Context, id int64, role domain.UserRole) (domain.User, error) {
	return m.updateUser(id, func(u *domain.User) { u.Role = role })
}

func (m *Board) SoftDeleteUser(_ context.Context, id int64) error {
	_, err := m.updateUser(id, func(u *domain.User) { u.IsDeleted = true })
	return err
}

func (m *Board) ListUsers(_ context.Context, filter domain.UserFilter) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.User{}
	for _, u := range m.users {
		if u.IsDeleted && !filter.IncludeDeleted {
			continue
		}
		if filter.Department != "" && u.Department != filter.Department {
			continue
		}
		if filter.Query != "" && !strings.Contains(strings.ToLower(u.Name), strings.ToLower(filter.Query)) {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Board) ActiveUsersByIDs(_ context.Context, ids []int64) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.User{}
	for _, id := range ids {
		if u, ok := m.users[id]; ok && !u.IsDeleted {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *Board) ListDepartments(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]struct{}{}
	out := []string{}
	for _, u := range m.users {
		if _, ok := seen[u.Department]; ok || u.IsDeleted || u.Department == "" {
			continue
		}
		seen[u.Department] = struct{}{}
		out = append(out, u.Department)
	}
	sort.Strings(out)
	return out, nil
}

// hydrate expects m.mu to be held.
func (m *Board) hydrate(s domain.Shoutout) domain.Shoutout {
	s.Recipients = []domain.UserSummary{}
	for _, id := range m.recipients[s.ID] {
		s.Recipients = append(s.Recipients, m.users[id].Summary())
	}
	s.Reactions = []domain.Reaction{}
	for _, r := range m.reactions {
		if r.ShoutoutID == s.ID {
			s.Reactions = append(s.Reactions, r)
		}
	}
	s.Comments = []domain.Comment{}
	ids := make([]int64, 0)
	for id, c := range m.comments {
		if c.ShoutoutID == s.ID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		s.Comments = append(s.Comments, m.comments[id])
	}
	return s
}

func (m *Board) ListShoutouts(_ context.Context, filter domain.FeedFilter) ([]domain.Shoutout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Shoutout{}
	for _, s := range m.shoutouts {
		if filter.Department != "" && s.Sender.Department != filter.Department {
			continue
		}
		if filter.Cursor != nil && (s.CreatedAt.After(filter.Cursor.CreatedAt) || (s.CreatedAt.Equal(filter.Cursor.CreatedAt) && s.ID >= filter.Cursor.ID)) {
			continue
		}
		out = append(out, m.hydrate(s))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *Board) GetShoutout(_ context.Context, id int64) (domain.Shoutout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shoutouts[id]
	if !ok {
		return domain.Shoutout{}, fmt.Errorf("get shoutout: %w", domain.ErrNotFound)
	}
	return m.hydrate(s), nil
}

func (m *Board) CreateShoutout(_ context.Context, s domain.Shoutout, recipientIDs []int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.id()
	s.CreatedAt = m.tick()
	s.UpdatedAt = s.CreatedAt
	m.shoutouts[s.ID] = s
	m.recipients[s.ID] = append([]int64(nil), recipientIDs...)
	return s.ID, nil
}

func (m *Board) UpdateShoutout(_ context.Context, id int64, title, message string, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shoutouts[id]
	if !ok {
		return fmt.Errorf("update shoutout: %w", domain.ErrNotFound)
	}
	s.Title, s.Message, s.Tags, s.UpdatedAt = title, message, tags, m.tick()
	m.shoutouts[id] = s
	return nil
}

func (m *Board) DeleteShoutout(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.shoutouts[id]; !ok {
		return fmt.Errorf("delete shoutout: %w", domain.ErrNotFound)
	}
	delete(m.shoutouts, id)
	delete(m.recipients, id)
	return nil
}

func (m *Board) ToggleReaction(_ context.Context, shoutoutID, userID int64, reactionType domain.ReactionType) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.reactions {
		if r.ShoutoutID == shoutoutID && r.UserID == userID && r.Type == reactionType {
			m.reactions = append(m.reactions[:i], m.reactions[i+1:]...)
			return false, nil
		}
	}
	m.reactions = append(m.reactions, domain.Reaction{ID: m.id(), ShoutoutID: shoutoutID, UserID: userID, Type: reactionType, CreatedAt: m.tick()})
	return true, nil
}

func (m *Board) AddComment(_ context.Context, shoutoutID, userID int64, parentID *int64, content string) (domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := domain.Comment{ID: m.id(), ShoutoutID: shoutoutID, User: m.users[userID].Summary(), ParentID: parentID, Content: content, CreatedAt: m.tick()}
	m.comments[c.ID] = c
	return c, nil
}

func (m *Board) GetComment(_ context.Context, id int64) (domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return domain.Comment{}, fmt.Errorf("get comment: %w", domain.ErrNotFound)
	}
	return c, nil
}

func (m *Board) DeleteComment(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.comments[id]; !ok {
		return fmt.Errorf("delete comment: %w", domain.ErrNotFound)
	}
	delete(m.comments, id)
	return nil
}

func (m *Board) CreateReport(_ context.Context, shoutoutID, reporterID int64, reason string) (domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := domain.Report{ID: m.id(), ShoutoutID: shoutoutID, Reporter: m.users[reporterID].Summary(), Reason: reason, Status: domain.ReportPending, CreatedAt: m.tick()}
	m.reports[r.ID] = r
	return r, nil
}

func (m *Board) CreateNotification(_ context.Context, n domain.Notification) (domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = m.id()
	n.CreatedAt = m.tick()
	m.notifications = append(m.notifications, n)
	return n, nil
}

func (m *Board) ListNotifications(_ context.Context, userID int64, filter domain.NotificationFilter) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Notification{}
	for i := len(m.notifications) - 1; i >= 0; i-- {
		n := m.notifications[i]
		if n.UserID != userID || (filter.UnreadOnly && n.IsRead) {
			continue
		}
		out = append(out, n)
	}
	if filter.Skip >= len(out) {
		return []domain.Notification{}, nil
	}
	out = out[filter.Skip:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *Board) CountUnread(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *Board) MarkRead(_ context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		if m.notifications[i].ID == id && m.notifications[i].UserID == userID {
			m.notifications[i].IsRead = true
			return nil
		}
	}
	return fmt.Errorf("mark read: %w", domain.ErrNotFound)
}

func (m *Board) MarkAllRead(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var updated int64
	for i := range m.notifications {
		if m.notifications[i].UserID == userID && !m.notifications[i].IsRead {
			m.notifications[i].IsRead = true
			updated++
		}
	}
	return updated, nil
}

func (m *Board) Overview(_ context.Context) (domain.StatsOverview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := domain.StatsOverview{TotalShoutouts: int64(len(m.shoutouts)), TotalReactions: int64(len(m.reactions)), TotalComments: int64(len(m.comments))}
	for _, u := range m.users {
		if !u.IsDeleted {
			o.TotalUsers++
		}
	}
	for _, r := range m.reports {
		if r.Status == domain.ReportPending {
			o.PendingReports++
		}
	}
	return o, nil
}

func (m *Board) TopContributors(_ context.Context, limit int) ([]domain.UserCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[int64]int64{}
	for _, s := range m.shoutouts {
		counts[s.Sender.ID]++
	}
	return m.rank(counts, limit), nil
}

func (m *Board) MostAppreciated(_ context.Context, limit int) ([]domain.UserCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[int64]int64{}
	for _, ids := range m.recipients {
		for _, id := range ids {
			counts[id]++
		}
	}
	return m.rank(counts, limit), nil
}

func (m *Board) rank(counts map[int64]int64, limit int) []domain.UserCount {
	out := []domain.UserCount{}
	for id, count := range counts {
		out = append(out, domain.UserCount{User: m.users[id].Summary(), Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].User.ID < out[j].User.ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *Board) ShoutoutsByDepartment(_ context.Context) ([]domain.DepartmentCount, error) {
	return []domain.DepartmentCount{}, nil
}

func (m *Board) ShoutoutsPerDay(_ context.Context, _ time.Time) ([]domain.DayCount, error) {
	return []domain.DayCount{}, nil
}

func (m *Board) LeaderboardActivity(_ context.Context) ([]domain.LeaderboardActivity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byUser := map[int64]*domain.LeaderboardActivity{}
	for _, u := range m.users {
		if !u.IsDeleted && u.Role == domain.UserRoleEmployee {
			byUser[u.ID] = &domain.LeaderboardActivity{User: u.Summary()}
		}
	}
	for _, ids := range m.recipients {
		for _, id := range ids {
			if a := byUser[id]; a != nil {
				a.Received++
			}
		}
	}
	for _, s := range m.shoutouts {
		a := byUser[s.Sender.ID]
		if a == nil {
			continue
		}
		a.Sent++
		for _, r := range m.reactions {
			if r.ShoutoutID != s.ID {
				continue
			}
			switch r.Type {
			case domain.ReactionStar:
				a.Stars++
			case domain.ReactionClap:
				a.Claps++
			case domain.ReactionLike:
				a.Likes++
			}
		}
	}
	out := []domain.LeaderboardActivity{}
	for _, a := range byUser {
		out = append(out, *a)
	}
	return out, nil
}

func (m *Board) GetSettings(_ context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]string{}
	for k, v := range m.settings {
		out[k] = v
	}
	return out, nil
}

func (m *Board) PutSettings(_ context.Context, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.settings[k] = v
	}
	return nil
}

func (m *Board) GetReport(_ context.Context, id int64) (domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return domain.Report{}, fmt.Errorf("get report: %w", domain.ErrNotFound)
	}
	return r, nil
}

func (m *Board) ListReports(_ context.Context, status domain.ReportStatus) ([]domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Report{}
	for _, r := range m.reports {
		if status == "" || r.Status == status {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *Board) ResolveReport(_ context.Context, id, adminID int64) (domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return domain.Report{}, fmt.Errorf("resolve report: %w", domain.ErrNotFound)
	}
	at := m.tick()
	r.Status, r.ResolvedBy, r.ResolvedAt = domain.ReportResolved, &adminID, &at
	m.reports[id] = r
	return r, nil
}

func (m *Board) InsertAdminLog(_ context.Context, entry domain.AdminLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = m.id()
	entry.CreatedAt = m.tick()
	m.logs = append(m.logs, entry)
	return nil
}

func (m *Board) ListAdminLogs(_ context.Context, limit int) ([]domain.AdminLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.AdminLog{}
	for i := len(m.logs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.logs[i])
	}
	return out, nil
}

type Notifier struct {
	mu        sync.Mutex
	direct    map[int64][]domain.Event
	broadcast []domain.Event
}

func NewNotifier() *Notifier {
	return &Notifier{direct: map[int64][]domain.Event{}}
}

func (n *Notifier) NotifyUser(userID int64, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.direct[userID] = append(n.direct[userID], payload.(domain.Event))
}

func (n *Notifier) Broadcast(payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.broadcast = append(n.broadcast, payload.(domain.Event))
}

func (n *Notifier) Broadcasts() []domain.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Event(nil), n.broadcast...)
}

func (n *Notifier) DirectTypes(userID int64) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := []string{}
	for _, ev := range n.direct[userID] {
		out = append(out, ev.Type)
	}
	return out
}

type Publisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *Publisher) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

func (p *Publisher) Publish(_ context.Context, key string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return nil
}

type Media struct {
	mu      sync.Mutex
	uploads []string
}

func (f *Media) Upload(_ context.Context, prefix, filename, contentType string, _ []byte) (object.StoredMedia, error) {
	key := prefix + "/" + filename
	f.mu.Lock()
	f.uploads = append(f.uploads, key)
	f.mu.Unlock()
	out := object.StoredMedia{ObjectKey: key, URL: "http://media/" + key}
	if strings.HasPrefix(contentType, "image/") {
		out.ThumbnailKey = key + "_thumb.jpg"
		out.ThumbnailURL = "http://media/" + out.ThumbnailKey
	}
	return out, nil
}

type Tokens struct{}

func (Tokens) GenerateToken(userID int64, role string) (string, error) {
	return fmt.Sprintf("token-%d-%s", userID, role), nil
}
