package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/siddharthsadhu/BookMyLook-sub003/internal/models"
	"github.com/siddharthsadhu/BookMyLook-sub003/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

const defaultWaitPerPerson = 15

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) ListActiveQueues(ctx context.Context, day time.Time) ([]models.Queue, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT q.queue_id, q.salon_id, s.name, q.queue_date, q.current_number, q.total_waiting, q.average_wait_time, q.is_active
		FROM queues q
		JOIN salons s ON s.salon_id = q.salon_id
		WHERE q.queue_date = $1 AND q.is_active = TRUE
		ORDER BY q.salon_id ASC
	`, dateOf(day))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var queues []models.Queue
	var queueIDs []string
	index := make(map[string]int)
	for rows.Next() {
		var queue models.Queue
		if err := rows.Scan(&queue.QueueID, &queue.SalonID, &queue.SalonName, &queue.QueueDate, &queue.CurrentNumber, &queue.TotalWaiting, &queue.AverageWaitTime, &queue.IsActive); err != nil {
			return nil, err
		}
		index[queue.QueueID] = len(queues)
		queueIDs = append(queueIDs, queue.QueueID)
		queues = append(queues, queue)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(queues) == 0 {
		return queues, nil
	}

	entryRows, err := s.pool.Query(ctx, `
		SELECT entry_id, queue_id, booking_id, token_number, status, estimated_time, joined_at, called_at, served_at, completed_at
		FROM queue_entries
		WHERE queue_id = ANY($1)
		ORDER BY token_number ASC
	`, queueIDs)
	if err != nil {
		return nil, err
	}
	defer entryRows.Close()

	for entryRows.Next() {
		entry, err := scanEntry(entryRows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[entry.QueueID]; ok {
			entry.SalonID = queues[i].SalonID
			queues[i].Entries = append(queues[i].Entries, entry)
		}
	}
	if err := entryRows.Err(); err != nil {
		return nil, err
	}
	return queues, nil
}

func (s *Store) GetEntryByBooking(ctx context.Context, bookingID string) (models.QueueEntry, bool, error) {
	var entry models.QueueEntry
	var calledAtNull, servedAtNull, completedAtNull sql.NullTime
	row := s.pool.QueryRow(ctx, `
		SELECT e.entry_id, e.queue_id, q.salon_id, e.booking_id, e.token_number, e.status, e.estimated_time, e.joined_at, e.called_at, e.served_at, e.completed_at
		FROM queue_entries e
		JOIN queues q ON q.queue_id = e.queue_id
		WHERE e.booking_id = $1
		ORDER BY e.joined_at DESC
		LIMIT 1
	`, bookingID)
	if err := row.Scan(&entry.EntryID, &entry.QueueID, &entry.SalonID, &entry.BookingID, &entry.TokenNumber, &entry.Status, &entry.EstimatedTime, &entry.JoinedAt, &calledAtNull, &servedAtNull, &completedAtNull); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.QueueEntry{}, false, nil
		}
		return models.QueueEntry{}, false, err
	}
	entry.CalledAt = nullTimePtr(calledAtNull)
	entry.ServedAt = nullTimePtr(servedAtNull)
	entry.CompletedAt = nullTimePtr(completedAtNull)

	if entry.Status == models.StatusWaiting {
		var ahead int
		row := s.pool.QueryRow(ctx, `
			SELECT COUNT(*)
			FROM queue_entries
			WHERE queue_id = $1 AND status = $2 AND joined_at <= $3
		`, entry.QueueID, models.StatusWaiting, entry.JoinedAt)
		if err := row.Scan(&ahead); err != nil {
			return models.QueueEntry{}, false, err
		}
		entry.Position = ahead
	}
	return entry, true, nil
}

func (s *Store) CheckIn(ctx context.Context, input store.CheckInInput) (models.QueueEntry, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.QueueEntry{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	existing, found, err := findEntryByRequestID(ctx, tx, input.RequestID)
	if err != nil {
		return models.QueueEntry{}, err
	}
	if found {
		if err = tx.Commit(ctx); err != nil {
			return models.QueueEntry{}, err
		}
		return existing, nil
	}

	var bookingSalon string
	row := tx.QueryRow(ctx, `SELECT salon_id FROM bookings WHERE booking_id = $1`, input.BookingID)
	if err = row.Scan(&bookingSalon); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrBookingNotFound
		}
		return models.QueueEntry{}, err
	}
	if bookingSalon != input.SalonID {
		err = store.ErrBookingNotFound
		return models.QueueEntry{}, err
	}

	checkedInAt := input.CheckedInAt
	if checkedInAt.IsZero() {
		checkedInAt = time.Now().UTC()
	}
	day := dateOf(checkedInAt)

	if _, err = tx.Exec(ctx, `
		INSERT INTO queues (queue_id, salon_id, queue_date, current_number, last_token, total_waiting, average_wait_time, is_active)
		VALUES ($1, $2, $3, 0, 0, 0, $4, TRUE)
		ON CONFLICT (salon_id, queue_date) DO NOTHING
	`, uuid.NewString(), input.SalonID, day, defaultWaitPerPerson); err != nil {
		return models.QueueEntry{}, err
	}

	var queueID string
	var lastToken, totalWaiting, avgWait int
	var isActive bool
	row = tx.QueryRow(ctx, `
		SELECT queue_id, last_token, total_waiting, average_wait_time, is_active
		FROM queues
		WHERE salon_id = $1 AND queue_date = $2
		FOR UPDATE
	`, input.SalonID, day)
	if err = row.Scan(&queueID, &lastToken, &totalWaiting, &avgWait, &isActive); err != nil {
		return models.QueueEntry{}, err
	}
	if !isActive {
		err = store.ErrQueueInactive
		return models.QueueEntry{}, err
	}

	token := lastToken + 1
	perPerson := avgWait
	if perPerson <= 0 {
		perPerson = defaultWaitPerPerson
	}

	entry := models.QueueEntry{
		EntryID:       uuid.NewString(),
		QueueID:       queueID,
		SalonID:       input.SalonID,
		BookingID:     input.BookingID,
		TokenNumber:   token,
		Status:        models.StatusWaiting,
		EstimatedTime: (totalWaiting + 1) * perPerson,
		JoinedAt:      checkedInAt,
	}

	if _, err = tx.Exec(ctx, `
		INSERT INTO queue_entries (entry_id, request_id, queue_id, booking_id, token_number, status, estimated_time, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.EntryID, input.RequestID, queueID, input.BookingID, token, entry.Status, entry.EstimatedTime, checkedInAt); err != nil {
		return models.QueueEntry{}, err
	}

	if _, err = tx.Exec(ctx, `
		UPDATE queues SET last_token = $1, total_waiting = total_waiting + 1 WHERE queue_id = $2
	`, token, queueID); err != nil {
		return models.QueueEntry{}, err
	}

	if err = insertOutboxEvent(ctx, tx, "queue.entry.checked_in", entry); err != nil {
		return models.QueueEntry{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.QueueEntry{}, err
	}
	return entry, nil
}

func (s *Store) CallNext(ctx context.Context, input store.CallNextInput) (models.QueueEntry, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.QueueEntry{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	calledAt := input.CalledAt
	if calledAt.IsZero() {
		calledAt = time.Now().UTC()
	}

	var queueID string
	row := tx.QueryRow(ctx, `
		SELECT queue_id FROM queues
		WHERE salon_id = $1 AND queue_date = $2 AND is_active = TRUE
		FOR UPDATE
	`, input.SalonID, dateOf(calledAt))
	if err = row.Scan(&queueID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrQueueNotFound
		}
		return models.QueueEntry{}, err
	}

	var entry models.QueueEntry
	row = tx.QueryRow(ctx, `
		SELECT entry_id, queue_id, booking_id, token_number, status, estimated_time, joined_at
		FROM queue_entries
		WHERE queue_id = $1 AND status = $2
		ORDER BY joined_at ASC
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	`, queueID, models.StatusWaiting)
	if err = row.Scan(&entry.EntryID, &entry.QueueID, &entry.BookingID, &entry.TokenNumber, &entry.Status, &entry.EstimatedTime, &entry.JoinedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrNoEntry
		}
		return models.QueueEntry{}, err
	}

	if _, err = tx.Exec(ctx, `
		UPDATE queue_entries SET status = $1, called_at = $2 WHERE entry_id = $3
	`, models.StatusCalled, calledAt, entry.EntryID); err != nil {
		return models.QueueEntry{}, err
	}

	if _, err = tx.Exec(ctx, `
		UPDATE queues SET current_number = $1, total_waiting = total_waiting - 1 WHERE queue_id = $2
	`, entry.TokenNumber, queueID); err != nil {
		return models.QueueEntry{}, err
	}

	entry.Status = models.StatusCalled
	entry.CalledAt = &calledAt
	entry.SalonID = input.SalonID

	if err = insertOutboxEvent(ctx, tx, "queue.entry.called", entry); err != nil {
		return models.QueueEntry{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.QueueEntry{}, err
	}
	return entry, nil
}

func (s *Store) UpdateEntryStatus(ctx context.Context, input store.EntryActionInput) (models.QueueEntry, error) {
	next, ok := store.StatusAfter(input.Action)
	if !ok {
		return models.QueueEntry{}, store.ErrInvalidState
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.QueueEntry{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var entry models.QueueEntry
	var calledAtNull, servedAtNull, completedAtNull sql.NullTime
	row := tx.QueryRow(ctx, `
		SELECT e.entry_id, e.queue_id, q.salon_id, e.booking_id, e.token_number, e.status, e.estimated_time, e.joined_at, e.called_at, e.served_at, e.completed_at
		FROM queue_entries e
		JOIN queues q ON q.queue_id = e.queue_id
		WHERE e.entry_id = $1
		FOR UPDATE OF e
	`, input.EntryID)
	if err = row.Scan(&entry.EntryID, &entry.QueueID, &entry.SalonID, &entry.BookingID, &entry.TokenNumber, &entry.Status, &entry.EstimatedTime, &entry.JoinedAt, &calledAtNull, &servedAtNull, &completedAtNull); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrEntryNotFound
		}
		return models.QueueEntry{}, err
	}
	entry.CalledAt = nullTimePtr(calledAtNull)
	entry.ServedAt = nullTimePtr(servedAtNull)
	entry.CompletedAt = nullTimePtr(completedAtNull)

	if !store.ValidTransition(input.Action, entry.Status) {
		err = store.ErrInvalidState
		return models.QueueEntry{}, err
	}

	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	switch input.Action {
	case "start":
		_, err = tx.Exec(ctx, `UPDATE queue_entries SET status = $1, served_at = $2 WHERE entry_id = $3`, next, occurredAt, entry.EntryID)
		entry.ServedAt = &occurredAt
	case "complete", "no_show":
		_, err = tx.Exec(ctx, `UPDATE queue_entries SET status = $1, completed_at = $2 WHERE entry_id = $3`, next, occurredAt, entry.EntryID)
		entry.CompletedAt = &occurredAt
	default:
		_, err = tx.Exec(ctx, `UPDATE queue_entries SET status = $1 WHERE entry_id = $2`, next, entry.EntryID)
	}
	if err != nil {
		return models.QueueEntry{}, err
	}
	entry.Status = next

	if err = insertOutboxEvent(ctx, tx, "queue.entry."+input.Action, entry); err != nil {
		return models.QueueEntry{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.QueueEntry{}, err
	}
	return entry, nil
}

func (s *Store) ListOutboxEvents(ctx context.Context, offset store.OutboxOffset, limit int) ([]store.OutboxEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT event_id, salon_id, type, payload, created_at
		FROM queue_outbox
		WHERE (created_at, event_id) > ($1, $2)
		ORDER BY created_at ASC, event_id ASC
		LIMIT $3
	`, offset.LastEventTime, offset.LastEventID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []store.OutboxEvent
	for rows.Next() {
		var event store.OutboxEvent
		if err := rows.Scan(&event.EventID, &event.SalonID, &event.Type, &event.Payload, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (s *Store) FindUserByPhone(ctx context.Context, phone string) (models.User, bool, error) {
	var user models.User
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, name, phone, email, role, created_at
		FROM users
		WHERE phone = $1 AND active = TRUE
	`, phone)
	if err := row.Scan(&user.UserID, &user.Name, &user.Phone, &user.Email, &user.Role, &user.Created); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, false, nil
		}
		return models.User{}, false, err
	}
	return user, true, nil
}

func (s *Store) Login(ctx context.Context, email, password string) (models.User, error) {
	var user models.User
	var passwordHash string
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, name, phone, email, role, password_hash, created_at
		FROM users
		WHERE lower(email) = lower($1) AND active = TRUE
	`, email)
	if err := row.Scan(&user.UserID, &user.Name, &user.Phone, &user.Email, &user.Role, &passwordHash, &user.Created); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, store.ErrInvalidCredentials
		}
		return models.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return models.User{}, store.ErrInvalidCredentials
	}
	return user, nil
}

func (s *Store) CreateSession(ctx context.Context, userID string, expiresAt time.Time) (models.Session, error) {
	session := models.Session{
		SessionID: uuid.NewString(),
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO sessions (session_id, user_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING (SELECT role FROM users WHERE user_id = $2)
	`, session.SessionID, userID, session.ExpiresAt)
	if err := row.Scan(&session.Role); err != nil {
		return models.Session{}, err
	}
	return session, nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (models.Session, error) {
	var session models.Session
	row := s.pool.QueryRow(ctx, `
		SELECT se.session_id, se.user_id, u.role, se.expires_at
		FROM sessions se
		JOIN users u ON u.user_id = se.user_id
		WHERE se.session_id = $1 AND se.expires_at > now()
	`, sessionID)
	if err := row.Scan(&session.SessionID, &session.UserID, &session.Role, &session.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, store.ErrSessionNotFound
		}
		return models.Session{}, err
	}
	return session, nil
}

func findEntryByRequestID(ctx context.Context, tx pgx.Tx, requestID string) (models.QueueEntry, bool, error) {
	var entry models.QueueEntry
	var calledAtNull, servedAtNull, completedAtNull sql.NullTime
	row := tx.QueryRow(ctx, `
		SELECT e.entry_id, e.queue_id, q.salon_id, e.booking_id, e.token_number, e.status, e.estimated_time, e.joined_at, e.called_at, e.served_at, e.completed_at
		FROM queue_entries e
		JOIN queues q ON q.queue_id = e.queue_id
		WHERE e.request_id = $1
	`, requestID)
	if err := row.Scan(&entry.EntryID, &entry.QueueID, &entry.SalonID, &entry.BookingID, &entry.TokenNumber, &entry.Status, &entry.EstimatedTime, &entry.JoinedAt, &calledAtNull, &servedAtNull, &completedAtNull); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.QueueEntry{}, false, nil
		}
		return models.QueueEntry{}, false, err
	}
	entry.CalledAt = nullTimePtr(calledAtNull)
	entry.ServedAt = nullTimePtr(servedAtNull)
	entry.CompletedAt = nullTimePtr(completedAtNull)
	return entry, true, nil
}

func insertOutboxEvent(ctx context.Context, tx pgx.Tx, eventType string, entry models.QueueEntry) error {
	payload, err := json.Marshal(map[string]interface{}{
		"entry_id":     entry.EntryID,
		"queue_id":     entry.QueueID,
		"salon_id":     entry.SalonID,
		"booking_id":   entry.BookingID,
		"token_number": entry.TokenNumber,
		"status":       entry.Status,
	})
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO queue_outbox (event_id, salon_id, type, payload, created_at)
		VALUES ($1, $2, $3, $4, now())
	`, uuid.NewString(), entry.SalonID, eventType, payload)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (models.QueueEntry, error) {
	var entry models.QueueEntry
	var calledAtNull, servedAtNull, completedAtNull sql.NullTime
	if err := row.Scan(&entry.EntryID, &entry.QueueID, &entry.BookingID, &entry.TokenNumber, &entry.Status, &entry.EstimatedTime, &entry.JoinedAt, &calledAtNull, &servedAtNull, &completedAtNull); err != nil {
		return models.QueueEntry{}, err
	}
	entry.CalledAt = nullTimePtr(calledAtNull)
	entry.ServedAt = nullTimePtr(servedAtNull)
	entry.CompletedAt = nullTimePtr(completedAtNull)
	return entry, nil
}

func nullTimePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}

func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
