package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bragboard/server/board/domain"
)

func TestNotificationsNewestFirstAndReadState(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	me := f.board.AddUser("Me", "Sales", domain.UserRoleEmployee)
	other := f.board.AddUser("Other", "Sales", domain.UserRoleEmployee)
	actor := other.Summary()
	for _, msg := range []string{"first", "second", "third"} {
		f.notifications.Notify(ctx, domain.Notification{UserID: me.ID, Actor: &actor, Type: domain.NotificationShoutout, Message: msg})
	}
	self := me.Summary()
	f.notifications.Notify(ctx, domain.Notification{UserID: me.ID, Actor: &self, Type: domain.NotificationReaction, Message: "ignored"})

	items, err := f.notifications.List(ctx, me.ID, domain.NotificationFilter{Skip: 1, Limit: 5})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "second", items[0].Message)

	count, err := f.notifications.UnreadCount(ctx, me.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	all, err := f.notifications.List(ctx, me.ID, domain.NotificationFilter{})
	require.NoError(t, err)
	require.NoError(t, f.notifications.MarkRead(ctx, me.ID, all[0].ID))
	assert.ErrorIs(t, f.notifications.MarkRead(ctx, other.ID, all[1].ID), ErrNotFound)

	unread, err := f.notifications.List(ctx, me.ID, domain.NotificationFilter{UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	updated, err := f.notifications.MarkAllRead(ctx, me.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)
	count, err = f.notifications.UnreadCount(ctx, me.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Contains(t, f.notifier.DirectTypes(me.ID), "notification.read_all")
}
