package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bragboard/server/board/domain"
)

func TestParseFeedQuery(t *testing.T) {
	filter, err := ParseFeedQuery(FeedQuery{Department: " Sales ", UserID: "4", DateFrom: "2026-01-02", DateTo: "2026-01-05", Limit: "500"})
	require.NoError(t, err)
	assert.Equal(t, "Sales", filter.Department)
	assert.Equal(t, int64(4), filter.UserID)
	assert.Equal(t, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), *filter.DateFrom)
	assert.Equal(t, time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC), *filter.DateTo)
	assert.Equal(t, maxFeedLimit, filter.Limit)

	defaults, err := ParseFeedQuery(FeedQuery{})
	require.NoError(t, err)
	assert.Equal(t, defaultFeedLimit, defaults.Limit)
	assert.Nil(t, defaults.Cursor)

	for _, q := range []FeedQuery{
		{UserID: "abc"},
		{DateFrom: "01/02/2026"},
		{DateTo: "2026-13-01"},
		{DateFrom: "2026-02-01", DateTo: "2026-01-01"},
		{Limit: "0"},
		{Cursor: "%%%"},
	} {
		_, err := ParseFeedQuery(q)
		assert.ErrorIs(t, err, ErrInvalidInput, "%+v", q)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2026, 4, 1, 10, 30, 0, 123, time.UTC)
	c, err := DecodeCursor(EncodeCursor(domain.FeedCursor{CreatedAt: at, ID: 99}))
	require.NoError(t, err)
	assert.True(t, at.Equal(c.CreatedAt))
	assert.Equal(t, int64(99), c.ID)
}

func TestCreateShoutoutNotifiesRecipientsAndBroadcasts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sender := f.board.AddUser("Sam", "Sales", domain.UserRoleEmployee)
	alice := f.board.AddUser("Alice", "Engineering", domain.UserRoleEmployee)
	bob := f.board.AddUser("Bob", "Engineering", domain.UserRoleEmployee)

	created, err := f.shoutouts.Create(ctx, sender.ID, CreateShoutoutInput{
		Title:        "Launch",
		Message:      "  Great job on the launch ",
		Tags:         []string{"#Teamwork", "teamwork", " "},
		RecipientIDs: []int64{alice.ID, bob.ID, alice.ID, sender.ID},
		Media:        &MediaInput{Filename: "team.png", ContentType: "image/png", Data: []byte("png")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Great job on the launch", created.Message)
	assert.Equal(t, []string{"teamwork"}, created.Tags)
	assert.Len(t, created.Recipients, 2)
	assert.Equal(t, "http://media/shoutouts/team.png", created.ImageURL)
	assert.NotEmpty(t, created.ThumbnailURL)

	for _, id := range []int64{alice.ID, bob.ID} {
		items, err := f.notifications.List(ctx, id, domain.NotificationFilter{})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, domain.NotificationShoutout, items[0].Type)
		assert.Equal(t, created.ID, *items[0].ReferenceID)
		assert.Equal(t, []string{EventNotificationNew}, f.notifier.DirectTypes(id))
	}
	assert.Empty(t, f.notifier.DirectTypes(sender.ID))
	assert.Contains(t, f.publisher.Keys(), EventShoutoutCreated)
	require.NotEmpty(t, f.notifier.Broadcasts())
	assert.Equal(t, EventShoutoutCreated, f.notifier.Broadcasts()[len(f.notifier.Broadcasts())-1].Type)
}

func TestCreateShoutoutValidatesRecipients(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sender := f.board.AddUser("Sam", "Sales", domain.UserRoleEmployee)
	gone := f.board.AddUser("Gone", "Sales", domain.UserRoleEmployee)
	require.NoError(t, f.board.SoftDeleteUser(ctx, gone.ID))

	_, err := f.shoutouts.Create(ctx, sender.ID, CreateShoutoutInput{Message: "hi", RecipientIDs: []int64{sender.ID}})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.shoutouts.Create(ctx, sender.ID, CreateShoutoutInput{Message: "hi", RecipientIDs: []int64{gone.ID}})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.shoutouts.Create(ctx, sender.ID, CreateShoutoutInput{Message: "hi", RecipientIDs: []int64{404}})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.shoutouts.Create(ctx, sender.ID, CreateShoutoutInput{Message: "  ", RecipientIDs: []int64{gone.ID}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func seedShoutout(t *testing.T, f *fixture, sender, recipient domain.User, message string) domain.Shoutout {
	t.Helper()
	created, err := f.shoutouts.Create(context.Background(), sender.ID, CreateShoutoutInput{Message: message, RecipientIDs: []int64{recipient.ID}})
	require.NoError(t, err)
	return created
}

func TestFeedPaginatesWithCursor(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.board.AddUser("A", "Sales", domain.UserRoleEmployee)
	b := f.board.AddUser("B", "Sales", domain.UserRoleEmployee)
	for _, msg := range []string{"one", "two", "three"} {
		seedShoutout(t, f, a, b, msg)
	}

	page, next, err := f.shoutouts.Feed(ctx, a.ID, domain.FeedFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "three", page[0].Message)
	assert.Equal(t, "two", page[1].Message)
	require.NotEmpty(t, next)

	cursor, err := DecodeCursor(next)
	require.NoError(t, err)
	rest, next, err := f.shoutouts.Feed(ctx, a.ID, domain.FeedFilter{Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "one", rest[0].Message)
	assert.Empty(t, next)
}

func TestReactTogglesAndNotifiesSenderOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sender := f.board.AddUser("Sam", "Sales", domain.UserRoleEmployee)
	fan := f.board.AddUser("Fan", "Sales", domain.UserRoleEmployee)
	s := seedShoutout(t, f, sender, fan, "Great job")

	liked, err := f.shoutouts.React(ctx, fan.ID, s.ID, domain.ReactionLike)
	require.NoError(t, err)
	assert.Len(t, liked.Reactions, 1)
	assert.Equal(t, 1, liked.ReactionCounts.Like)
	assert.Equal(t, []domain.ReactionType{domain.ReactionLike}, liked.CurrentUserReactions)

	unliked, err := f.shoutouts.React(ctx, fan.ID, s.ID, domain.ReactionLike)
	require.NoError(t, err)
	assert.Empty(t, unliked.Reactions)
	assert.Empty(t, unliked.CurrentUserReactions)

	_, err = f.shoutouts.React(ctx, sender.ID, s.ID, domain.ReactionStar)
	require.NoError(t, err)

	items, err := f.notifications.List(ctx, sender.ID, domain.NotificationFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, domain.NotificationReaction, items[0].Type)
	assert.Equal(t, fan.ID, items[0].Actor.ID)

	_, err = f.shoutouts.React(ctx, fan.ID, s.ID, domain.ReactionType("boo"))
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.shoutouts.React(ctx, fan.ID, 9999, domain.ReactionLike)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEditAndDeletePermissions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sender := f.board.AddUser("Sam", "Sales", domain.UserRoleEmployee)
	other := f.board.AddUser("Oli", "Sales", domain.UserRoleEmployee)
	admin := f.board.AddUser("Root", "IT", domain.UserRoleAdmin)
	s := seedShoutout(t, f, sender, other, "first")

	msg := "edited"
	_, err := f.shoutouts.Update(ctx, other.ID, s.ID, UpdateShoutoutInput{Message: &msg})
	assert.ErrorIs(t, err, ErrForbidden)
	updated, err := f.shoutouts.Update(ctx, sender.ID, s.ID, UpdateShoutoutInput{Message: &msg})
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Message)

	assert.ErrorIs(t, f.shoutouts.Delete(ctx, other.ID, domain.UserRoleEmployee, s.ID), ErrForbidden)
	require.NoError(t, f.shoutouts.Delete(ctx, admin.ID, domain.UserRoleAdmin, s.ID))
	_, err = f.shoutouts.Get(ctx, sender.ID, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCommentsThreadAndDeletion(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sender := f.board.AddUser("Sam", "Sales", domain.UserRoleEmployee)
	commenter := f.board.AddUser("Cat", "Sales", domain.UserRoleEmployee)
	stranger := f.board.AddUser("Stu", "Ops", domain.UserRoleEmployee)
	s := seedShoutout(t, f, sender, commenter, "hello")
	other := seedShoutout(t, f, sender, commenter, "elsewhere")

	root, err := f.shoutouts.AddComment(ctx, commenter.ID, s.ID, CommentInput{Content: "congrats"})
	require.NoError(t, err)
	reply, err := f.shoutouts.AddComment(ctx, sender.ID, s.ID, CommentInput{Content: "thanks", ParentID: &root.ID})
	require.NoError(t, err)
	assert.Equal(t, root.ID, *reply.ParentID)

	_, err = f.shoutouts.AddComment(ctx, sender.ID, other.ID, CommentInput{Content: "x", ParentID: &root.ID})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.shoutouts.AddComment(ctx, sender.ID, s.ID, CommentInput{Content: " "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	items, err := f.notifications.List(ctx, sender.ID, domain.NotificationFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, domain.NotificationComment, items[0].Type)

	assert.ErrorIs(t, f.shoutouts.DeleteComment(ctx, stranger.ID, domain.UserRoleEmployee, s.ID, root.ID), ErrForbidden)
	assert.ErrorIs(t, f.shoutouts.DeleteComment(ctx, commenter.ID, domain.UserRoleEmployee, other.ID, root.ID), ErrNotFound)
	require.NoError(t, f.shoutouts.DeleteComment(ctx, sender.ID, domain.UserRoleEmployee, s.ID, root.ID))
	require.NoError(t, f.shoutouts.DeleteComment(ctx, sender.ID, domain.UserRoleEmployee, s.ID, reply.ID))
}

func TestReportIsPublishedButNotBroadcast(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sender := f.board.AddUser("Sam", "Sales", domain.UserRoleEmployee)
	reporter := f.board.AddUser("Rae", "Sales", domain.UserRoleEmployee)
	s := seedShoutout(t, f, sender, reporter, "hmm")
	broadcasts := len(f.notifier.Broadcasts())

	report, err := f.shoutouts.Report(ctx, reporter.ID, s.ID, "off topic")
	require.NoError(t, err)
	assert.Equal(t, domain.ReportPending, report.Status)
	assert.Contains(t, f.publisher.Keys(), EventReportCreated)
	assert.Len(t, f.notifier.Broadcasts(), broadcasts)

	_, err = f.shoutouts.Report(ctx, reporter.ID, s.ID, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
