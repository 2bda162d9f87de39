package database

import "time"

// Message is one inbound chat message recorded by the pipeline, kept for
// operational history and pruned by the retention task.
type Message struct {
	ID        uint      `db:"id"`
	CreatedAt time.Time `db:"created_at"`

	UserID int64  `db:"user_id"`
	Text   string `db:"text"`
	Action string `db:"action"`
}
