package domain

import "time"

type UserRole string
type ReactionType string
type NotificationType string
type ReportStatus string

const (
	UserRoleEmployee UserRole = "employee"
	UserRoleAdmin    UserRole = "admin"
)

const (
	ReactionLike ReactionType = "like"
	ReactionClap ReactionType = "clap"
	ReactionStar ReactionType = "star"
)

const (
	NotificationShoutout NotificationType = "shoutout"
	NotificationReaction NotificationType = "reaction"
	NotificationComment  NotificationType = "comment"
	NotificationReport   NotificationType = "report_resolved"
)

const (
	ReportPending  ReportStatus = "Pending"
	ReportResolved ReportStatus = "Resolved"
)

func (r UserRole) Valid() bool {
	return r == UserRoleEmployee || r == UserRoleAdmin
}

func (t ReactionType) Valid() bool {
	switch t {
	case ReactionLike, ReactionClap, ReactionStar:
		return true
	}
	return false
}

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Department   string    `json:"department"`
	Role         UserRole  `json:"role"`
	Bio          string    `json:"bio"`
	AvatarURL    string    `json:"avatar_url"`
	IsDeleted    bool      `json:"is_deleted"`
	PasswordHash string    `json:"-"`
	JoinedAt     time.Time `json:"joined_at"`
}

type UserSummary struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department"`
	AvatarURL  string `json:"avatar_url"`
}

func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Department: u.Department, AvatarURL: u.AvatarURL}
}

type Reaction struct {
	ID         int64        `json:"id"`
	ShoutoutID int64        `json:"shoutout_id"`
	UserID     int64        `json:"user_id"`
	Type       ReactionType `json:"type"`
	CreatedAt  time.Time    `json:"created_at"`
}

type ReactionCounts struct {
	Like int `json:"like"`
	Clap int `json:"clap"`
	Star int `json:"star"`
}

func CountReactions(reactions []Reaction) ReactionCounts {
	var counts ReactionCounts
	for _, r := range reactions {
		switch r.Type {
		case ReactionLike:
			counts.Like++
		case ReactionClap:
			counts.Clap++
		case ReactionStar:
			counts.Star++
		}
	}
	return counts
}

type Comment struct {
	ID         int64       `json:"id"`
	ShoutoutID int64       `json:"shoutout_id"`
	User       UserSummary `json:"user"`
	ParentID   *int64      `json:"parent_id,omitempty"`
	Content    string      `json:"content"`
	CreatedAt  time.Time   `json:"created_at"`
}

type Shoutout struct {
	ID                   int64          `json:"id"`
	Sender               UserSummary    `json:"sender"`
	Title                string         `json:"title"`
	Message              string         `json:"message"`
	ImageURL             string         `json:"image_url,omitempty"`
	ThumbnailURL         string         `json:"thumbnail_url,omitempty"`
	Tags                 []string       `json:"tags"`
	Recipients           []UserSummary  `json:"recipients"`
	Reactions            []Reaction     `json:"reactions"`
	ReactionCounts       ReactionCounts `json:"reaction_counts"`
	CurrentUserReactions []ReactionType `json:"current_user_reactions"`
	Comments             []Comment      `json:"comments"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// Decorate fills the fields derived from Reactions for the viewing user.
func (s *Shoutout) Decorate(viewerID int64) {
	if s.Tags == nil {
		s.Tags = []string{}
	}
	if s.Recipients == nil {
		s.Recipients = []UserSummary{}
	}
	if s.Reactions == nil {
		s.Reactions = []Reaction{}
	}
	if s.Comments == nil {
		s.Comments = []Comment{}
	}
	s.ReactionCounts = CountReactions(s.Reactions)
	s.CurrentUserReactions = []ReactionType{}
	for _, r := range s.Reactions {
		if r.UserID == viewerID {
			s.CurrentUserReactions = append(s.CurrentUserReactions, r.Type)
		}
	}
}

type Notification struct {
	ID          int64            `json:"id"`
	UserID      int64            `json:"user_id"`
	Actor       *UserSummary     `json:"actor,omitempty"`
	Type        NotificationType `json:"type"`
	Message     string           `json:"message"`
	ReferenceID *int64           `json:"reference_id,omitempty"`
	IsRead      bool             `json:"is_read"`
	CreatedAt   time.Time        `json:"created_at"`
}

type Report struct {
	ID         int64        `json:"id"`
	ShoutoutID int64        `json:"shoutout_id"`
	Reporter   UserSummary  `json:"reporter"`
	Reason     string       `json:"reason"`
	Status     ReportStatus `json:"status"`
	ResolvedBy *int64       `json:"resolved_by,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	ResolvedAt *time.Time   `json:"resolved_at,omitempty"`
}

type AdminLog struct {
	ID         int64     `json:"id"`
	AdminID    int64     `json:"admin_id"`
	AdminName  string    `json:"admin_name"`
	Action     string    `json:"action"`
	TargetType string    `json:"target_type"`
	TargetID   *int64    `json:"target_id,omitempty"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}

type UserCount struct {
	User  UserSummary `json:"user"`
	Count int64       `json:"count"`
}

type DepartmentCount struct {
	Department string `json:"department"`
	Count      int64  `json:"count"`
}

type DayCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

type StatsOverview struct {
	TotalUsers     int64 `json:"total_users"`
	TotalShoutouts int64 `json:"total_shoutouts"`
	TotalReactions int64 `json:"total_reactions"`
	TotalComments  int64 `json:"total_comments"`
	PendingReports int64 `json:"pending_reports"`
}

type Stats struct {
	Overview        StatsOverview     `json:"overview"`
	TopContributors []UserCount       `json:"top_contributors"`
	MostAppreciated []UserCount       `json:"most_appreciated"`
	ByDepartment    []DepartmentCount `json:"by_department"`
	ShoutoutsPerDay []DayCount        `json:"shoutouts_per_day"`
}

// LeaderboardActivity is the raw per-user activity the points formula scores.
type LeaderboardActivity struct {
	User     UserSummary
	Sent     int64
	Received int64
	Stars    int64
	Claps    int64
	Likes    int64
}

type LeaderboardEntry struct {
	Rank     int         `json:"rank"`
	User     UserSummary `json:"user"`
	Points   int64       `json:"points"`
	Sent     int64       `json:"sent"`
	Received int64       `json:"received"`
	Stars    int64       `json:"stars"`
	Claps    int64       `json:"claps"`
	Likes    int64       `json:"likes"`
}

const (
	PointsPerReceived = 50
	PointsPerSent     = 30
	PointsPerStar     = 20
	PointsPerClap     = 10
	PointsPerLike     = 5
)

func (a LeaderboardActivity) Points() int64 {
	return a.Received*PointsPerReceived + a.Sent*PointsPerSent + a.Stars*PointsPerStar + a.Claps*PointsPerClap + a.Likes*PointsPerLike
}

type FeedFilter struct {
	Department string
	UserID     int64
	DateFrom   *time.Time
	DateTo     *time.Time
	Limit      int
	Cursor     *FeedCursor
}

// FeedCursor marks the last item of a page in (created_at DESC, id DESC) order.
type FeedCursor struct {
	CreatedAt time.Time
	ID        int64
}

type UserFilter struct {
	Query          string
	Department     string
	IncludeDeleted bool
}

type NotificationFilter struct {
	Skip       int
	Limit      int
	UnreadOnly bool
}

type Event struct {
	Type       string `json:"type"`
	ShoutoutID int64  `json:"shoutout_id,omitempty"`
	ActorID    int64  `json:"actor_id,omitempty"`
	Payload    any    `json:"payload,omitempty"`
}
