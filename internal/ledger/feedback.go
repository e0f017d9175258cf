package ledger

import (
	"context"
	"fmt"
	"time"
)

// Feedback is a thumbs-up/down style reaction to one reply.
type Feedback struct {
	MessageID string    `json:"messageId"`
	Kind      string    `json:"feedbackType"`
	Comment   string    `json:"comment"`
	Message   string    `json:"messageContent"`
	Timestamp time.Time `json:"timestamp"`
}

// FeedbackStats counts all submissions and submissions per kind.
type FeedbackStats struct {
	Total  int            `json:"totalFeedback"`
	ByKind map[string]int `json:"byKind"`
}

// RecordFeedback stores f under its message id, replacing any earlier
// feedback for the same message, and bumps the per-kind counter.
func (s *Store) RecordFeedback(ctx context.Context, f Feedback) error {
	if f.MessageID == "" {
		return fmt.Errorf("feedback requires a message id")
	}
	if f.Kind == "" {
		return fmt.Errorf("feedback requires a kind")
	}
	ts := s.now().UTC().Format(stampLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO action_feedback (message_id, feedback_kind, comment, message_content, timestamp)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(message_id) DO UPDATE SET
			feedback_kind = excluded.feedback_kind,
			comment = excluded.comment,
			message_content = excluded.message_content,
			timestamp = excluded.timestamp`,
		f.MessageID, f.Kind, truncate(f.Comment, MaxCommentLen), truncate(f.Message, MaxMessageLen), ts,
	); err != nil {
		return fmt.Errorf("upsert feedback: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO feedback_stats (feedback_kind, count) VALUES (?, 1)
		 ON CONFLICT(feedback_kind) DO UPDATE SET count = count + 1`,
		f.Kind,
	); err != nil {
		return fmt.Errorf("update feedback stats: %w", err)
	}
	return tx.Commit()
}

// GetFeedback returns the stored feedback for messageID.
func (s *Store) GetFeedback(ctx context.Context, messageID string) (*Feedback, error) {
	var (
		f  Feedback
		ts string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT message_id, feedback_kind, comment, message_content, timestamp
		 FROM action_feedback WHERE message_id = ?`, messageID,
	).Scan(&f.MessageID, &f.Kind, &f.Comment, &f.Message, &ts)
	if err != nil {
		return nil, fmt.Errorf("get feedback %s: %w", messageID, err)
	}
	f.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
	return &f, nil
}

// FeedbackStats returns the submission counters.
func (s *Store) FeedbackStats(ctx context.Context) (*FeedbackStats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT feedback_kind, count FROM feedback_stats`)
	if err != nil {
		return nil, fmt.Errorf("query feedback stats: %w", err)
	}
	defer rows.Close()

	st := &FeedbackStats{ByKind: make(map[string]int)}
	for rows.Next() {
		var (
			kind  string
			count int
		)
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		st.ByKind[kind] = count
		st.Total += count
	}
	return st, rows.Err()
}
