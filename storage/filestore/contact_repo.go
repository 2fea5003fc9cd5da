package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sjoshi/portfolio-api/contact"
)

const ContactFileName = "contact_submissions.json"

var _ contact.Repo = (*ContactRepo)(nil)

var errCorruptFile = errors.New("corrupt contact submissions file")

// ContactRepo appends submissions to a JSON array file. It is ephemeral on
// serverless hosts.
type ContactRepo struct {
	path string
	mu   sync.Mutex
}

// NewContactRepo stores submissions in dir/contact_submissions.json.
func NewContactRepo(dir string) *ContactRepo {
	return &ContactRepo{path: filepath.Join(dir, ContactFileName)}
}

func (r *ContactRepo) Path() string {
	return r.path
}

func (r *ContactRepo) Save(_ context.Context, s *contact.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	submissions, err := r.readAll()
	if errors.Is(err, errCorruptFile) {
		// keep the unreadable file for inspection and start a new one
		aside := fmt.Sprintf("%s.%d.corrupt", r.path, time.Now().UnixNano())
		if renameErr := os.Rename(r.path, aside); renameErr != nil {
			return fmt.Errorf("move corrupt contact file aside: %w", renameErr)
		}
		log.Warn().Err(err).Str("moved_to", aside).Msg("Contact submissions file was corrupt, starting a new one")
		submissions, err = nil, nil
	}
	if err != nil {
		return err
	}
	submissions = append(submissions, *s)

	data, err := json.MarshalIndent(submissions, "", "  ")
	if err != nil {
		return fmt.Errorf("save contact submission: encode json: %w", err)
	}
	if err := writeFile(r.path, data); err != nil {
		return fmt.Errorf("save contact submission: %w", err)
	}
	return nil
}

// List returns every stored submission in insertion order.
func (r *ContactRepo) List(_ context.Context) ([]contact.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readAll()
}

func (r *ContactRepo) readAll() ([]contact.Submission, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read contact submissions: %w", err)
	}

	var submissions []contact.Submission
	if err := json.Unmarshal(data, &submissions); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorruptFile, err)
	}
	return submissions, nil
}
