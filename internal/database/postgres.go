package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"collab-realtime/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

type PostgresDB struct {
	pool *pgxpool.Pool
}

func NewPostgresDB(ctx context.Context, databaseURL string, log *slog.Logger) (*PostgresDB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("Connected to database successfully")
	return &PostgresDB{pool: pool}, nil
}

func (db *PostgresDB) Close() error {
	db.pool.Close()
	return nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// User Repository Implementation
func (db *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT u.id::text, p.username, u.email, u.password_hash, u.created_at
		FROM users u
		JOIN profiles p ON p.id = u.id
		WHERE u.email = $1`

	user := &models.User{}
	err := db.pool.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}

	return user, nil
}

// CreateUser writes the credential row and its public profile in one transaction.
func (db *PostgresDB) CreateUser(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	user := &models.User{Username: req.Username, PasswordHash: string(hash)}
	err = tx.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id::text, email, created_at`,
		req.Email, string(hash),
	).Scan(&user.ID, &user.Email, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO profiles (id, username, full_name, avatar_url)
		VALUES ($1::uuid, $2, $3, '')`,
		user.ID, req.Username, req.FullName,
	); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return user, nil
}

// Profile Repository Implementation
func (db *PostgresDB) GetProfileByID(ctx context.Context, id string) (*models.Profile, error) {
	query := `
		SELECT id::text, username, COALESCE(full_name, ''), COALESCE(avatar_url, '')
		FROM profiles WHERE id::text = $1`

	profile := &models.Profile{}
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&profile.ID, &profile.Username, &profile.FullName, &profile.AvatarURL,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return profile, nil
}

// Friendship Repository Implementation
func (db *PostgresDB) AreFriends(ctx context.Context, userID, otherID string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM friendships
			WHERE status = $3
			  AND ((user_id::text = $1 AND friend_id::text = $2)
			    OR (user_id::text = $2 AND friend_id::text = $1)))`

	var exists bool
	err := db.pool.QueryRow(ctx, query, userID, otherID, models.FriendshipAccepted).Scan(&exists)
	return exists, err
}

func (db *PostgresDB) ListFriends(ctx context.Context, userID string) ([]*models.Profile, error) {
	query := `
		SELECT p.id::text, p.username, COALESCE(p.full_name, ''), COALESCE(p.avatar_url, '')
		FROM friendships f
		JOIN profiles p ON p.id = CASE WHEN f.user_id::text = $1 THEN f.friend_id ELSE f.user_id END
		WHERE f.status = $2 AND (f.user_id::text = $1 OR f.friend_id::text = $1)
		ORDER BY p.username`

	rows, err := db.pool.Query(ctx, query, userID, models.FriendshipAccepted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var friends []*models.Profile
	for rows.Next() {
		p := &models.Profile{}
		if err := rows.Scan(&p.ID, &p.Username, &p.FullName, &p.AvatarURL); err != nil {
			return nil, err
		}
		friends = append(friends, p)
	}
	return friends, rows.Err()
}

// Project Repository Implementation
func (db *PostgresDB) IsActiveMember(ctx context.Context, userID, projectID string) (bool, error) {
	query := `
		SELECT EXISTS(SELECT 1 FROM projects WHERE id::text = $2 AND owner_id::text = $1)
		    OR EXISTS(SELECT 1 FROM project_members
		              WHERE project_id::text = $2 AND user_id::text = $1 AND status = $3)`

	var ok bool
	err := db.pool.QueryRow(ctx, query, userID, projectID, models.MemberActive).Scan(&ok)
	return ok, err
}

// Chat Room Repository Implementation
func (db *PostgresDB) GetChatRoom(ctx context.Context, roomID string) (*models.ChatRoom, error) {
	query := `SELECT id::text, project_id::text, name, created_at FROM chat_rooms WHERE id::text = $1`

	room := &models.ChatRoom{}
	err := db.pool.QueryRow(ctx, query, roomID).Scan(&room.ID, &room.ProjectID, &room.Name, &room.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return room, nil
}

func (db *PostgresDB) ListProjectChatRooms(ctx context.Context, projectID string) ([]*models.ChatRoom, error) {
	query := `
		SELECT id::text, project_id::text, name, created_at
		FROM chat_rooms WHERE project_id::text = $1
		ORDER BY created_at`

	rows, err := db.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []*models.ChatRoom
	for rows.Next() {
		room := &models.ChatRoom{}
		if err := rows.Scan(&room.ID, &room.ProjectID, &room.Name, &room.CreatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// Message Repository Implementation

// InsertChatMessage stores the message and returns it joined with the
// sender's profile.
func (db *PostgresDB) InsertChatMessage(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error) {
	query := `
		WITH inserted AS (
			INSERT INTO chat_messages (room_id, sender_id, content, message_type, reply_to_message_id, created_at)
			VALUES ($1::uuid, $2::uuid, $3, $4, $5::uuid, NOW())
			RETURNING id, room_id, sender_id, content, message_type, reply_to_message_id, created_at
		)
		SELECT i.id::text, i.room_id::text, i.sender_id::text, i.content, i.message_type,
		       i.reply_to_message_id::text, i.created_at,
		       p.username, COALESCE(p.full_name, ''), COALESCE(p.avatar_url, '')
		FROM inserted i
		JOIN profiles p ON p.id = i.sender_id`

	out := &models.ChatMessage{Sender: &models.Profile{}}
	err := db.pool.QueryRow(ctx, query,
		msg.RoomID, msg.SenderID, msg.Content, msg.MessageType, msg.ReplyToMessageID,
	).Scan(
		&out.ID, &out.RoomID, &out.SenderID, &out.Content, &out.MessageType,
		&out.ReplyToMessageID, &out.CreatedAt,
		&out.Sender.Username, &out.Sender.FullName, &out.Sender.AvatarURL,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert chat message: %w", err)
	}
	out.Sender.ID = out.SenderID
	return out, nil
}

func (db *PostgresDB) GetChatMessage(ctx context.Context, id string) (*models.ChatMessage, error) {
	query := `
		SELECT m.id::text, m.room_id::text, m.sender_id::text, m.content, m.message_type,
		       m.reply_to_message_id::text, m.created_at,
		       p.username, COALESCE(p.full_name, ''), COALESCE(p.avatar_url, '')
		FROM chat_messages m
		JOIN profiles p ON p.id = m.sender_id
		WHERE m.id::text = $1`

	msg := &models.ChatMessage{Sender: &models.Profile{}}
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&msg.ID, &msg.RoomID, &msg.SenderID, &msg.Content, &msg.MessageType,
		&msg.ReplyToMessageID, &msg.CreatedAt,
		&msg.Sender.Username, &msg.Sender.FullName, &msg.Sender.AvatarURL,
	)
	if err != nil {
		return nil, notFound(err)
	}
	msg.Sender.ID = msg.SenderID
	return msg, nil
}

func (db *PostgresDB) InsertFriendMessage(ctx context.Context, msg *models.FriendMessage) (*models.FriendMessage, error) {
	query := `
		INSERT INTO friend_messages (sender_id, recipient_id, content, created_at)
		VALUES ($1::uuid, $2::uuid, $3, NOW())
		RETURNING id::text, sender_id::text, recipient_id::text, content, created_at`

	out := &models.FriendMessage{}
	err := db.pool.QueryRow(ctx, query, msg.SenderID, msg.RecipientID, msg.Content).Scan(
		&out.ID, &out.SenderID, &out.RecipientID, &out.Content, &out.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert friend message: %w", err)
	}
	return out, nil
}
