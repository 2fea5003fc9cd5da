package sqlstore

import (
	"context"
	"fmt"

	"github.com/sjoshi/portfolio-api/contact"
	"github.com/sjoshi/portfolio-api/internal/dbx"
)

const insertContactQuery = `
		INSERT INTO contact_submissions (id, name, email, reason, created_at)
		VALUES ($1, $2, $3, $4, $5)`

var _ contact.Repo = (*ContactRepo)(nil)

type ContactRepo struct {
	conn dbx.Connector
}

func NewContactRepo(conn dbx.Connector) *ContactRepo {
	return &ContactRepo{conn: conn}
}

func (r *ContactRepo) Save(ctx context.Context, s *contact.Submission) error {
	db, err := r.conn.Conn(ctx)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, dbx.Rebind(r.conn.Dialect(), insertContactQuery),
		s.ID, s.Name, s.Email, s.Reason, s.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert contact submission: %w", err)
	}
	return nil
}
