package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"rentbot/internal/model"
	"rentbot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=OFF"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("disable foreign keys: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// InsertApartment persists an apartment listing, idempotent on URL.
func (s *SQLite) InsertApartment(ctx context.Context, a *model.Apartment) (bool, error) {
	now := time.Now().UTC()
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO apartments
		   (url, price, rooms, city, square, district, street, complex_name, photo_urls, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.URL, a.Price, a.Rooms, a.City, a.Square, a.District, a.Street, a.ComplexName,
		strings.Join(a.PhotoURLs, "\n"), createdAt.Format(timeLayout),
	)
	if err != nil {
		return false, fmt.Errorf("insert apartment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return false, fmt.Errorf("last insert id: %w", err)
		}
		a.ID = id
		a.CreatedAt = createdAt
		return true, nil
	}
	// Already present: return the existing row's ID.
	err = s.db.QueryRowContext(ctx, `SELECT id FROM apartments WHERE url = ?`, a.URL).Scan(&a.ID)
	if err != nil {
		return false, fmt.Errorf("select existing apartment: %w", err)
	}
	return false, nil
}

// InsertRoomShare persists a room-sharing listing, idempotent on
// (channel_id, message_id).
func (s *SQLite) InsertRoomShare(ctx context.Context, r *model.RoomShare) (bool, error) {
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO room_shares
		   (channel_id, message_id, monthly_price, preferred_gender, location, contact, body, city, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ChannelID, r.MessageID, r.MonthlyPrice, string(r.PreferredGender),
		r.Location, r.Contact, r.Text, r.City, createdAt.Format(timeLayout),
	)
	if err != nil {
		return false, fmt.Errorf("insert room share: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return false, fmt.Errorf("last insert id: %w", err)
		}
		r.ID = id
		r.CreatedAt = createdAt
		return true, nil
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM room_shares WHERE channel_id = ? AND message_id = ?`,
		r.ChannelID, r.MessageID,
	).Scan(&r.ID)
	if err != nil {
		return false, fmt.Errorf("select existing room share: %w", err)
	}
	return false, nil
}

// ListApartmentsByCity returns all stored apartments in a city.
func (s *SQLite) ListApartmentsByCity(ctx context.Context, city string) ([]model.Apartment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, price, rooms, city, square, district, street, complex_name, photo_urls, created_at
		 FROM apartments WHERE city = ? ORDER BY id`, city,
	)
	if err != nil {
		return nil, fmt.Errorf("query apartments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Apartment
	for rows.Next() {
		var a model.Apartment
		var photos, created string
		err := rows.Scan(&a.ID, &a.URL, &a.Price, &a.Rooms, &a.City, &a.Square,
			&a.District, &a.Street, &a.ComplexName, &photos, &created)
		if err != nil {
			return nil, fmt.Errorf("scan apartment: %w", err)
		}
		if photos != "" {
			a.PhotoURLs = strings.Split(photos, "\n")
		}
		a.CreatedAt, _ = time.Parse(timeLayout, created)
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListRoomShares returns room-sharing listings for a city, or all listings
// when city is empty.
func (s *SQLite) ListRoomShares(ctx context.Context, city string) ([]model.RoomShare, error) {
	query := `SELECT id, channel_id, message_id, monthly_price, preferred_gender, location, contact, body, city, created_at
	          FROM room_shares`
	var args []any
	if city != "" {
		query += ` WHERE city = ?`
		args = append(args, city)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query room shares: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.RoomShare
	for rows.Next() {
		var r model.RoomShare
		var gender, created string
		err := rows.Scan(&r.ID, &r.ChannelID, &r.MessageID, &r.MonthlyPrice, &gender,
			&r.Location, &r.Contact, &r.Text, &r.City, &created)
		if err != nil {
			return nil, fmt.Errorf("scan room share: %w", err)
		}
		r.PreferredGender = model.PreferredGender(gender)
		r.CreatedAt, _ = time.Parse(timeLayout, created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// LastMessageID returns the highest ingested message ID for a channel.
func (s *SQLite) LastMessageID(ctx context.Context, channelID int64) (int64, error) {
	var id sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(message_id) FROM room_shares WHERE channel_id = ?`, channelID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("query last message id: %w", err)
	}
	if !id.Valid {
		return 0, nil
	}
	return id.Int64, nil
}

// HasRecentRoomShare checks for a reposted ad with identical contact,
// location and price since the given time.
func (s *SQLite) HasRecentRoomShare(ctx context.Context, contact, location string, price int64, since time.Time) (bool, error) {
	if contact == "" || location == "" || price == 0 {
		return false, nil
	}
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM room_shares
		 WHERE contact = ? AND location = ? AND monthly_price = ? AND created_at >= ?`,
		contact, location, price, since.UTC().Format(timeLayout),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check duplicate room share: %w", err)
	}
	return count > 0, nil
}

// Purge removes expired listings with their seen marks, and stale seen
// marks past the rolling window.
func (s *SQLite) Purge(ctx context.Context, listingCutoff, seenCutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	listingTS := listingCutoff.UTC().Format(timeLayout)

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM seen_marks WHERE rental_type = ? AND listing_id IN
		   (SELECT id FROM apartments WHERE created_at < ?)`,
		string(model.FullApartment), listingTS,
	); err != nil {
		return 0, fmt.Errorf("delete apartment seen marks: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM seen_marks WHERE rental_type = ? AND listing_id IN
		   (SELECT id FROM room_shares WHERE created_at < ?)`,
		string(model.RoomSharing), listingTS,
	); err != nil {
		return 0, fmt.Errorf("delete room share seen marks: %w", err)
	}

	var deleted int64
	res, err := tx.ExecContext(ctx, `DELETE FROM apartments WHERE created_at < ?`, listingTS)
	if err != nil {
		return 0, fmt.Errorf("delete apartments: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		deleted += n
	}
	res, err = tx.ExecContext(ctx, `DELETE FROM room_shares WHERE created_at < ?`, listingTS)
	if err != nil {
		return 0, fmt.Errorf("delete room shares: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		deleted += n
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM seen_marks WHERE seen_at < ?`, seenCutoff.UTC().Format(timeLayout),
	); err != nil {
		return 0, fmt.Errorf("delete stale seen marks: %w", err)
	}

	return deleted, tx.Commit()
}

// SetFilter replaces the recipient's active filter in one transaction.
func (s *SQLite) SetFilter(ctx context.Context, f *model.Filter) error {
	if err := f.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteFilterTx(ctx, tx, f.Owner); err != nil {
		return err
	}

	now := time.Now().UTC()
	switch f.Type {
	case model.FullApartment:
		a := f.Apartment
		_, err = tx.ExecContext(ctx,
			`INSERT INTO apartment_filters
			   (recipient_kind, recipient_id, city, rooms, min_price, max_price, min_square, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			string(f.Owner.Kind), f.Owner.ID, a.City, joinRooms(a.Rooms),
			a.MinPrice, a.MaxPrice, a.MinSquare, now.Format(timeLayout),
		)
	case model.RoomSharing:
		r := f.Room
		_, err = tx.ExecContext(ctx,
			`INSERT INTO room_filters
			   (recipient_kind, recipient_id, city, min_price, max_price, gender, roommate_preference, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			string(f.Owner.Kind), f.Owner.ID, r.City, r.MinPrice, r.MaxPrice,
			string(r.Gender), string(r.Roommates), now.Format(timeLayout),
		)
	}
	if err != nil {
		return fmt.Errorf("insert filter: %w", err)
	}
	f.CreatedAt = now
	return tx.Commit()
}

// GetFilter returns the recipient's active filter or ErrNotFound.
func (s *SQLite) GetFilter(ctx context.Context, r model.Recipient) (*model.Filter, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT city, rooms, min_price, max_price, min_square, created_at
		 FROM apartment_filters WHERE recipient_kind = ? AND recipient_id = ?`,
		string(r.Kind), r.ID,
	)
	var a model.ApartmentFilter
	var rooms, created string
	err := row.Scan(&a.City, &rooms, &a.MinPrice, &a.MaxPrice, &a.MinSquare, &created)
	if err == nil {
		a.Rooms = splitRooms(rooms)
		f := &model.Filter{Owner: r, Type: model.FullApartment, Apartment: &a}
		f.CreatedAt, _ = time.Parse(timeLayout, created)
		return f, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("scan apartment filter: %w", err)
	}

	row = s.db.QueryRowContext(ctx,
		`SELECT city, min_price, max_price, gender, roommate_preference, created_at
		 FROM room_filters WHERE recipient_kind = ? AND recipient_id = ?`,
		string(r.Kind), r.ID,
	)
	var rf model.RoomShareFilter
	var gender, pref string
	err = row.Scan(&rf.City, &rf.MinPrice, &rf.MaxPrice, &gender, &pref, &created)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan room filter: %w", err)
	}
	rf.Gender = model.Gender(gender)
	rf.Roommates = model.RoommatePreference(pref)
	f := &model.Filter{Owner: r, Type: model.RoomSharing, Room: &rf}
	f.CreatedAt, _ = time.Parse(timeLayout, created)
	return f, nil
}

// DeleteFilter removes both filter variants for the recipient.
func (s *SQLite) DeleteFilter(ctx context.Context, r model.Recipient) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteFilterTx(ctx, tx, r); err != nil {
		return err
	}
	return tx.Commit()
}

// ListFilters returns all active filters across both variants.
func (s *SQLite) ListFilters(ctx context.Context) ([]model.Filter, error) {
	var filters []model.Filter

	rows, err := s.db.QueryContext(ctx,
		`SELECT recipient_kind, recipient_id, city, rooms, min_price, max_price, min_square, created_at
		 FROM apartment_filters ORDER BY recipient_kind, recipient_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query apartment filters: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var f model.Filter
		var a model.ApartmentFilter
		var kind, rooms, created string
		err := rows.Scan(&kind, &f.Owner.ID, &a.City, &rooms, &a.MinPrice, &a.MaxPrice, &a.MinSquare, &created)
		if err != nil {
			return nil, fmt.Errorf("scan apartment filter: %w", err)
		}
		a.Rooms = splitRooms(rooms)
		f.Owner.Kind = model.RecipientKind(kind)
		f.Type = model.FullApartment
		f.Apartment = &a
		f.CreatedAt, _ = time.Parse(timeLayout, created)
		filters = append(filters, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT recipient_kind, recipient_id, city, min_price, max_price, gender, roommate_preference, created_at
		 FROM room_filters ORDER BY recipient_kind, recipient_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query room filters: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var f model.Filter
		var r model.RoomShareFilter
		var kind, gender, pref, created string
		err := rows.Scan(&kind, &f.Owner.ID, &r.City, &r.MinPrice, &r.MaxPrice, &gender, &pref, &created)
		if err != nil {
			return nil, fmt.Errorf("scan room filter: %w", err)
		}
		r.Gender = model.Gender(gender)
		r.Roommates = model.RoommatePreference(pref)
		f.Owner.Kind = model.RecipientKind(kind)
		f.Type = model.RoomSharing
		f.Room = &r
		f.CreatedAt, _ = time.Parse(timeLayout, created)
		filters = append(filters, f)
	}
	return filters, rows.Err()
}

// UnseenIDs returns the ids with no seen mark, preserving input order.
func (s *SQLite) UnseenIDs(ctx context.Context, r model.Recipient, t model.RentalType, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(ids)+3)
	args = append(args, string(r.Kind), r.ID, string(t))
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT listing_id FROM seen_marks
		 WHERE recipient_kind = ? AND recipient_id = ? AND rental_type = ?
		   AND listing_id IN (`+placeholders+`)`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query seen marks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	seen := make(map[int64]bool, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan seen mark: %w", err)
		}
		seen[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var unseen []int64
	for _, id := range ids {
		if !seen[id] {
			unseen = append(unseen, id)
		}
	}
	return unseen, nil
}

// MarkSeenBulk records seen marks for all ids in a single transaction.
func (s *SQLite) MarkSeenBulk(ctx context.Context, r model.Recipient, t model.RentalType, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(timeLayout)
	for _, id := range ids {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO seen_marks (recipient_kind, recipient_id, rental_type, listing_id, seen_at)
			 VALUES (?, ?, ?, ?, ?)`,
			string(r.Kind), r.ID, string(t), id, now,
		)
		if err != nil {
			return fmt.Errorf("mark seen %d: %w", id, err)
		}
	}
	return tx.Commit()
}

// UpsertUser creates or updates a user record.
func (s *SQLite) UpsertUser(ctx context.Context, u *model.User) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, is_active, first_name, last_name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   is_active = excluded.is_active,
		   first_name = excluded.first_name,
		   last_name = excluded.last_name,
		   updated_at = excluded.updated_at`,
		u.ID, boolToInt(u.IsActive), u.FirstName, u.LastName, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// SetUserActive flips the user's activity flag.
func (s *SQLite) SetUserActive(ctx context.Context, id int64, active bool) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`,
		boolToInt(active), now, id,
	)
	if err != nil {
		return fmt.Errorf("set user active: %w", err)
	}
	return nil
}

// IsUserActive reports whether the user exists and is active.
func (s *SQLite) IsUserActive(ctx context.Context, id int64) (bool, error) {
	var active int
	err := s.db.QueryRowContext(ctx, `SELECT is_active FROM users WHERE id = ?`, id).Scan(&active)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check user active: %w", err)
	}
	return active == 1, nil
}

func deleteFilterTx(ctx context.Context, tx *sql.Tx, r model.Recipient) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM apartment_filters WHERE recipient_kind = ? AND recipient_id = ?`,
		string(r.Kind), r.ID,
	); err != nil {
		return fmt.Errorf("delete apartment filter: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM room_filters WHERE recipient_kind = ? AND recipient_id = ?`,
		string(r.Kind), r.ID,
	); err != nil {
		return fmt.Errorf("delete room filter: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func joinRooms(rooms []int) string {
	if len(rooms) == 0 {
		return ""
	}
	parts := make([]string, len(rooms))
	for i, r := range rooms {
		parts[i] = strconv.Itoa(r)
	}
	return strings.Join(parts, ",")
}

func splitRooms(s string) []int {
	if s == "" {
		return nil
	}
	var rooms []int
	for _, part := range strings.Split(s, ",") {
		r, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		rooms = append(rooms, r)
	}
	return rooms
}
