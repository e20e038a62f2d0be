package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, display_name, password_hash, sector, is_developer, avatar)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, user.ID, user.Username, user.DisplayName, user.PasswordHash, user.Sector, user.IsDeveloper, user.Avatar)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, display_name, password_hash, sector, is_developer, avatar, created_at
		FROM users
		WHERE username=$1
	`, username).Scan(&user.ID, &user.Username, &user.DisplayName, &user.PasswordHash, &user.Sector, &user.IsDeveloper, &user.Avatar, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, display_name, password_hash, sector, is_developer, avatar, created_at
		FROM users
		WHERE id=$1
	`, userID).Scan(&user.ID, &user.Username, &user.DisplayName, &user.PasswordHash, &user.Sector, &user.IsDeveloper, &user.Avatar, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, display_name, sector, is_developer, avatar, created_at
		FROM users
		ORDER BY display_name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	items := make([]User, 0)
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Username, &user.DisplayName, &user.Sector, &user.IsDeveloper, &user.Avatar, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		items = append(items, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateUserSector(ctx context.Context, userID, sector string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET sector=$2 WHERE id=$1`, userID, sector)
	if err != nil {
		return fmt.Errorf("update user sector: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash string, user User, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, user.ID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	const query = `
		SELECT u.id, u.username, u.display_name, u.sector, u.is_developer, u.avatar
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(&user.ID, &user.Username, &user.DisplayName, &user.Sector, &user.IsDeveloper, &user.Avatar)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

const eventColumns = `
	id, event_date, shift, line, category, title, description,
	solution, impact, downtime_minutes, release_time, equipment_subtype,
	COALESCE(photos::text, '[]'), author_id, author_name, sector,
	created_at, last_edited_by, last_edited_at
`

func scanEvent(scan func(dest ...any) error) (Event, error) {
	var item Event
	var photos string
	if err := scan(
		&item.ID,
		&item.Date,
		&item.Shift,
		&item.Line,
		&item.Category,
		&item.Title,
		&item.Description,
		&item.Solution,
		&item.Impact,
		&item.Downtime,
		&item.ReleaseTime,
		&item.EquipmentSubtype,
		&photos,
		&item.AuthorID,
		&item.AuthorName,
		&item.Sector,
		&item.CreatedAt,
		&item.LastEditedBy,
		&item.LastEditedAt,
	); err != nil {
		return Event{}, err
	}
	if err := json.Unmarshal([]byte(photos), &item.Photos); err != nil {
		return Event{}, fmt.Errorf("decode photos: %w", err)
	}
	return item, nil
}

// ListEvents returns events newest first, with their comments attached. When
// includeAll is false the result is scoped to the given sector.
func (s *PostgresStore) ListEvents(ctx context.Context, sector string, includeAll bool) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE ($2::boolean OR sector=$1)
		ORDER BY created_at DESC
	`, sector, includeAll)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	items := make([]Event, 0)
	index := make(map[string]int)
	for rows.Next() {
		item, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		item.Comments = make([]Comment, 0)
		index[item.ID] = len(items)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	if err := s.attachComments(ctx, items, index, sector, includeAll); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *PostgresStore) attachComments(ctx context.Context, items []Event, index map[string]int, sector string, includeAll bool) error {
	if len(items) == 0 {
		return nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.event_id, c.author_id, c.author_name, c.body, c.created_at
		FROM comments c
		JOIN events e ON e.id = c.event_id
		WHERE ($2::boolean OR e.sector=$1)
		ORDER BY c.created_at ASC
	`, sector, includeAll)
	if err != nil {
		return fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.EventID, &c.AuthorID, &c.AuthorName, &c.Text, &c.CreatedAt); err != nil {
			return fmt.Errorf("scan comment: %w", err)
		}
		if i, ok := index[c.EventID]; ok {
			items[i].Comments = append(items[i].Comments, c)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate comments: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetEvent(ctx context.Context, eventID string) (Event, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE id=$1
	`, eventID)
	item, err := scanEvent(row.Scan)
	if err != nil {
		return Event{}, err
	}

	item.Comments = make([]Comment, 0)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, author_id, author_name, body, created_at
		FROM comments
		WHERE event_id=$1
		ORDER BY created_at ASC
	`, eventID)
	if err != nil {
		return Event{}, fmt.Errorf("list event comments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.EventID, &c.AuthorID, &c.AuthorName, &c.Text, &c.CreatedAt); err != nil {
			return Event{}, fmt.Errorf("scan comment: %w", err)
		}
		item.Comments = append(item.Comments, c)
	}
	if err := rows.Err(); err != nil {
		return Event{}, fmt.Errorf("iterate comments: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) InsertEvent(ctx context.Context, item Event) error {
	photos, err := json.Marshal(item.Photos)
	if err != nil {
		return fmt.Errorf("encode photos: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (
			id, event_date, shift, line, category, title, description,
			solution, impact, downtime_minutes, release_time, equipment_subtype,
			photos, author_id, author_name, sector, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, item.ID, item.Date, item.Shift, item.Line, item.Category, item.Title, item.Description,
		item.Solution, item.Impact, item.Downtime, item.ReleaseTime, item.EquipmentSubtype,
		string(photos), item.AuthorID, item.AuthorName, item.Sector, item.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateEvent(ctx context.Context, item Event) error {
	photos, err := json.Marshal(item.Photos)
	if err != nil {
		return fmt.Errorf("encode photos: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE events
		SET shift=$2, line=$3, category=$4, title=$5, description=$6,
			solution=$7, impact=$8, downtime_minutes=$9, release_time=$10,
			equipment_subtype=$11, photos=$12, last_edited_by=$13, last_edited_at=$14
		WHERE id=$1
	`, item.ID, item.Shift, item.Line, item.Category, item.Title, item.Description,
		item.Solution, item.Impact, item.Downtime, item.ReleaseTime,
		item.EquipmentSubtype, string(photos), item.LastEditedBy, item.LastEditedAt)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteEventComments and DeleteEvent are separate calls on purpose: the
// caller deletes comments first, then verifies the event delete succeeded.
func (s *PostgresStore) DeleteEventComments(ctx context.Context, eventID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE event_id=$1`, eventID); err != nil {
		return fmt.Errorf("delete event comments: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteEvent(ctx context.Context, eventID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id=$1`, eventID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) InsertComment(ctx context.Context, c Comment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, event_id, author_id, author_name, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ID, c.EventID, c.AuthorID, c.AuthorName, c.Text, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

// SearchEvents is the Postgres fallback for full-text search: case-insensitive
// substring match over title, description, solution and line, scoped like
// ListEvents. Comments are not attached.
func (s *PostgresStore) SearchEvents(ctx context.Context, query, sector string, includeAll bool) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE ($2::boolean OR sector=$1)
		  AND (title ILIKE $3 OR description ILIKE $3 OR COALESCE(solution, '') ILIKE $3 OR line ILIKE $3)
		ORDER BY created_at DESC
		LIMIT 100
	`, sector, includeAll, "%"+query+"%")
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	defer rows.Close()

	items := make([]Event, 0)
	for rows.Next() {
		item, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		item.Comments = make([]Comment, 0)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertNotification(ctx context.Context, n Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, title, message, created_at, is_read, category, target_user_id, audience, event_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, n.ID, n.Title, n.Message, n.CreatedAt, n.IsRead, n.Category, n.TargetUserID, n.Audience, n.EventID)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns the newest notifications visible to the actor.
// Privileged actors see everything; regular actors see broadcasts and entries
// targeted at them, never dev-audience entries.
func (s *PostgresStore) ListNotifications(ctx context.Context, actorID string, privileged bool, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, message, created_at, is_read, category, target_user_id, audience, event_id
		FROM notifications
		WHERE ($2::boolean OR (audience <> 'dev' AND (target_user_id IS NULL OR target_user_id=$1)))
		ORDER BY created_at DESC
		LIMIT $3
	`, actorID, privileged, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	items := make([]Notification, 0)
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.Title, &n.Message, &n.CreatedAt, &n.IsRead, &n.Category, &n.TargetUserID, &n.Audience, &n.EventID); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return items, nil
}

// ListAuditLog returns dev-audience notifications newest first. Callers gate
// this behind the privileged check.
func (s *PostgresStore) ListAuditLog(ctx context.Context, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, message, created_at, is_read, category, target_user_id, audience, event_id
		FROM notifications
		WHERE audience = 'dev'
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit log: %w", err)
	}
	defer rows.Close()

	items := make([]Notification, 0)
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.Title, &n.Message, &n.CreatedAt, &n.IsRead, &n.Category, &n.TargetUserID, &n.Audience, &n.EventID); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return items, nil
}

// MarkAllNotificationsRead flips is_read on every unread notification inside
// the actor's visibility scope.
func (s *PostgresStore) MarkAllNotificationsRead(ctx context.Context, actorID string, privileged bool) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications
		SET is_read=TRUE
		WHERE is_read=FALSE
		  AND ($2::boolean OR (audience <> 'dev' AND (target_user_id IS NULL OR target_user_id=$1)))
	`, actorID, privileged)
	if err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}

// ClearAllNotifications removes every notification. Privileged actors only.
func (s *PostgresStore) ClearAllNotifications(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM notifications`); err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}
	return nil
}

// ClearUserNotifications removes entries targeted at the actor, never
// dev-audience entries. Broadcasts survive.
func (s *PostgresStore) ClearUserNotifications(ctx context.Context, actorID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM notifications
		WHERE target_user_id=$1 AND audience <> 'dev'
	`, actorID)
	if err != nil {
		return fmt.Errorf("clear user notifications: %w", err)
	}
	return nil
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
