package service

import "bragboard/server/board/service/servicetest"

type fixture struct {
	board         *servicetest.Board
	notifier      *servicetest.Notifier
	publisher     *servicetest.Publisher
	media         *servicetest.Media
	auth          *AuthService
	users         *UserService
	notifications *NotificationService
	shoutouts     *ShoutoutService
	admin         *AdminService
}

func newFixture() *fixture {
	board := servicetest.NewBoard()
	notifier := servicetest.NewNotifier()
	publisher := &servicetest.Publisher{}
	media := &servicetest.Media{}
	notifications := NewNotificationService(board, notifier)
	f := &fixture{
		board:         board,
		notifier:      notifier,
		publisher:     publisher,
		media:         media,
		auth:          NewAuthService(board, servicetest.Tokens{}),
		users:         NewUserService(board, media),
		notifications: notifications,
		shoutouts:     NewShoutoutService(board, board, media, notifications, publisher, notifier),
		admin:         NewAdminService(board, board, board, notifications, publisher, notifier),
	}
	f.admin.now = board.Now
	return f
}
