package service

import (
	"context"
	"fmt"
	"strings"

	"bragboard/server/board/domain"
	commonlog "bragboard/server/common/log"
)

const maxBioLength = 500

type UserService struct {
	users UserStore
	media MediaUploader
}

func NewUserService(users UserStore, media MediaUploader) *UserService {
	return &UserService{users: users, media: media}
}

type UpdateProfileInput struct {
	Name       *string `json:"name"`
	Department *string `json:"department"`
	Bio        *string `json:"bio"`
}

type MediaInput struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (s *UserService) Me(ctx context.Context, userID int64) (domain.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if user.IsDeleted {
		return domain.User{}, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return user, nil
}

func (s *UserService) UpdateMe(ctx context.Context, userID int64, in UpdateProfileInput) (domain.User, error) {
	current, err := s.Me(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	name, department, bio := current.Name, current.Department, current.Bio
	if in.Name != nil {
		name = strings.TrimSpace(*in.Name)
		if name == "" {
			return domain.User{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
	}
	if in.Department != nil {
		department = strings.TrimSpace(*in.Department)
	}
	if in.Bio != nil {
		bio = strings.TrimSpace(*in.Bio)
		if len([]rune(bio)) > maxBioLength {
			return domain.User{}, fmt.Errorf("%w: bio is too long", ErrInvalidInput)
		}
	}
	return s.users.UpdateProfile(ctx, userID, name, department, bio)
}

func (s *UserService) UploadAvatar(ctx context.Context, userID int64, in MediaInput) (domain.User, error) {
	if s.media == nil {
		return domain.User{}, fmt.Errorf("%w: media storage is disabled", ErrInvalidInput)
	}
	if !strings.HasPrefix(in.ContentType, "image/") {
		return domain.User{}, fmt.Errorf("%w: avatar must be an image", ErrInvalidInput)
	}
	if _, err := s.Me(ctx, userID); err != nil {
		return domain.User{}, err
	}
	stored, err := s.media.Upload(ctx, "avatars", in.Filename, in.ContentType, in.Data)
	if err != nil {
		return domain.User{}, err
	}
	url := stored.ThumbnailURL
	if url == "" {
		url = stored.URL
	}
	user, err := s.users.UpdateAvatar(ctx, userID, url)
	if err != nil {
		return domain.User{}, err
	}
	commonlog.Infof("event=user action=avatar status=ok user_id=%d object_key=%s", userID, stored.ObjectKey)
	return user, nil
}

func (s *UserService) List(ctx context.Context, query, department string) ([]domain.User, error) {
	return s.users.ListUsers(ctx, domain.UserFilter{Query: query, Department: department})
}

func (s *UserService) Departments(ctx context.Context) ([]string, error) {
	return s.users.ListDepartments(ctx)
}
