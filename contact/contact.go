package contact

import (
	"context"
	"time"
)

const (
	StorageDatabase = "database"
	StorageTmp      = "tmp"
)

// Submission is one message sent through the portfolio contact form.
type Submission struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"timestamp"`
}

type Repo interface {
	Save(ctx context.Context, s *Submission) error
}

// Result tells the caller where a submission ended up.
type Result struct {
	Persisted  bool
	Storage    string
	Submission *Submission
}
