package sqlite

import (
	"database/sql"
	"log"
	"time"

	"github.com/KayraNafi/TouchGrass/internal/domain"
)

// DefaultHistoryLimit caps the reminder log.
const DefaultHistoryLimit = 1000

// ─── Reminder Log ───────────────────────────────────────────────────────────

// InsertReminder records a fired reminder. Re-inserting an ID is a no-op.
func (d *DB) InsertReminder(r domain.ReminderRecord) error {
	_, err := d.db.Exec(
		`INSERT INTO reminders (id, kind, message, play_sound, fired_at, delivered, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		r.ID, string(r.Kind), r.Message, r.PlaySound, r.At.UnixMilli(), r.Delivered, nullStr(r.Error),
	)
	return err
}

// ListReminders returns the most recent reminders, newest first.
func (d *DB) ListReminders(limit int) ([]domain.ReminderRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.db.Query(
		`SELECT id, kind, message, play_sound, fired_at, delivered, error
		 FROM reminders ORDER BY fired_at DESC, seq DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []domain.ReminderRecord{}
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// SummarizeReminders counts reminders fired at or after since.
func (d *DB) SummarizeReminders(since time.Time) (domain.ReminderSummary, error) {
	s := domain.ReminderSummary{Since: since}
	err := d.db.QueryRow(
		`SELECT
			COALESCE(SUM(CASE WHEN kind = 'scheduled' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN kind = 'preview' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN delivered = 0 THEN 1 ELSE 0 END), 0)
		 FROM reminders WHERE fired_at >= ?`, since.UnixMilli(),
	).Scan(&s.Scheduled, &s.Previews, &s.Failed)
	return s, err
}

// PruneReminders keeps the newest keep rows and returns how many were removed.
func (d *DB) PruneReminders(keep int) (int64, error) {
	result, err := d.db.Exec(
		`DELETE FROM reminders WHERE seq NOT IN (
			SELECT seq FROM reminders ORDER BY fired_at DESC, seq DESC LIMIT ?
		)`, keep,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanReminder(s scanner) (domain.ReminderRecord, error) {
	var r domain.ReminderRecord
	var kind string
	var firedAt int64
	var errText sql.NullString
	if err := s.Scan(&r.ID, &kind, &r.Message, &r.PlaySound, &firedAt, &r.Delivered, &errText); err != nil {
		return domain.ReminderRecord{}, err
	}
	r.Kind = domain.ReminderKind(kind)
	r.At = fromMillis(firedAt)
	r.Error = errText.String
	return r, nil
}

// ─── History Publisher ──────────────────────────────────────────────────────

// History records every fired reminder. It implements
// domain.ReminderPublisher.
type History struct {
	db    *DB
	limit int
}

// NewHistory wraps db. limit <= 0 uses DefaultHistoryLimit.
func NewHistory(db *DB, limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{db: db, limit: limit}
}

// PublishReminder stores r and trims old rows. Storage errors are logged;
// history never blocks a reminder.
func (h *History) PublishReminder(r domain.ReminderRecord) {
	if err := h.db.InsertReminder(r); err != nil {
		log.Printf("[history] record reminder %s: %v", r.ID, err)
		return
	}
	if n, err := h.db.PruneReminders(h.limit); err != nil {
		log.Printf("[history] prune: %v", err)
	} else if n > 0 {
		log.Printf("[history] pruned %d old reminders", n)
	}
}

// Recent returns up to limit reminders, newest first.
func (h *History) Recent(limit int) ([]domain.ReminderRecord, error) {
	return h.db.ListReminders(limit)
}

// Today summarizes reminders since local midnight.
func (h *History) Today(now time.Time) (domain.ReminderSummary, error) {
	y, m, d := now.Date()
	return h.db.SummarizeReminders(time.Date(y, m, d, 0, 0, 0, 0, now.Location()))
}
