package model

import (
	"encoding/json"
	"time"
)

type Assessment struct {
	ID        string          `db:"id" json:"assessmentId"`
	UserID    string          `db:"user_id" json:"userId"`
	Answers   json.RawMessage `db:"answers" json:"answers"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
}
