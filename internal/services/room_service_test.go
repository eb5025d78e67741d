package services

import (
	"context"
	"errors"
	"testing"

	"collab-realtime/internal/database"
	"collab-realtime/internal/mocks"
	"collab-realtime/internal/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestRoomService_VerifyChatAccess(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		room    *models.ChatRoom
		roomErr error
		member  bool
		wantErr error
	}{
		{name: "room in project and member", room: &models.ChatRoom{ID: "r1", ProjectID: "p1"}, member: true},
		{name: "room belongs to another project", room: &models.ChatRoom{ID: "r1", ProjectID: "p2"}, member: true, wantErr: ErrRoomNotFound},
		{name: "room missing", roomErr: database.ErrNotFound, member: true, wantErr: ErrRoomNotFound},
		{name: "not a member", room: &models.ChatRoom{ID: "r1", ProjectID: "p1"}, member: false, wantErr: ErrNotProjectMember},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			db := mocks.NewMockDatabase(ctrl)
			svc := NewRoomService(db)

			db.EXPECT().GetChatRoom(gomock.Any(), "r1").Return(tt.room, tt.roomErr).MaxTimes(1)
			db.EXPECT().IsActiveMember(gomock.Any(), "u1", "p1").Return(tt.member, nil).MaxTimes(1)

			err := svc.VerifyChatAccess(ctx, "u1", "p1", "r1")
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRoomService_ProjectRoomsRequiresMembership(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	db := mocks.NewMockDatabase(ctrl)
	svc := NewRoomService(db)

	// Given a non-member, the room list is never read
	db.EXPECT().IsActiveMember(gomock.Any(), "u1", "p1").Return(false, nil)
	_, err := svc.ProjectRooms(context.Background(), "u1", "p1")
	req.ErrorIs(err, ErrNotProjectMember)

	// Given a member, rooms are listed
	db.EXPECT().IsActiveMember(gomock.Any(), "u2", "p1").Return(true, nil)
	db.EXPECT().ListProjectChatRooms(gomock.Any(), "p1").Return([]*models.ChatRoom{{ID: "r1"}, {ID: "r2"}}, nil)
	rooms, err := svc.ProjectRooms(context.Background(), "u2", "p1")
	req.NoError(err)
	req.Len(rooms, 2)

	// Store failure is surfaced wrapped, not as a membership error
	db.EXPECT().IsActiveMember(gomock.Any(), "u3", "p1").Return(false, errors.New("connection reset"))
	_, err = svc.ProjectRooms(context.Background(), "u3", "p1")
	req.Error(err)
	req.NotErrorIs(err, ErrNotProjectMember)
}

func TestFriendService_SendMessage(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	db := mocks.NewMockDatabase(ctrl)
	svc := NewFriendService(db)
	ctx := context.Background()

	// Given no accepted friendship, nothing is persisted
	db.EXPECT().AreFriends(gomock.Any(), "a", "b").Return(false, nil)
	_, err := svc.SendMessage(ctx, "a", "b", "hi")
	req.ErrorIs(err, ErrNotFriends)

	// Given an accepted friendship, the message is stored
	db.EXPECT().AreFriends(gomock.Any(), "a", "c").Return(true, nil)
	db.EXPECT().InsertFriendMessage(gomock.Any(), &models.FriendMessage{SenderID: "a", RecipientID: "c", Content: "hi"}).
		Return(&models.FriendMessage{ID: "m1", SenderID: "a", RecipientID: "c", Content: "hi"}, nil)
	msg, err := svc.SendMessage(ctx, "a", "c", "hi")
	req.NoError(err)
	req.Equal("m1", msg.ID)
}
