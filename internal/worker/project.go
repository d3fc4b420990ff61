package worker

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Project is a finished piece of work a worker shows on their portfolio.
type Project struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	WorkerName   string    `json:"worker_name,omitempty"`
	Trade        string    `json:"trade,omitempty"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Location     string    `json:"location"`
	Skills       []string  `json:"skills"`
	BeforeImages []string  `json:"before_images"`
	AfterImages  []string  `json:"after_images"`
	CreatedAt    time.Time `json:"created_at"`
}

type ProjectInput struct {
	Title        string   `json:"title" validate:"required,max=120"`
	Description  string   `json:"description" validate:"required,max=2000"`
	Location     string   `json:"location" validate:"required,max=120"`
	Skills       []string `json:"skills" validate:"max=10,dive,required,max=60"`
	BeforeImages []string `json:"before_images" validate:"required,min=1,max=8,dive,url"`
	AfterImages  []string `json:"after_images" validate:"required,min=1,max=8,dive,url"`
}

const feedLimit = 50

// AddProject posts a portfolio project. The caller needs a worker profile,
// and at least one before and one after photo.
func (s *Service) AddProject(ctx context.Context, userID string, in ProjectInput) (*Project, error) {
	p := &Project{
		ID:           uuid.New().String(),
		UserID:       userID,
		Title:        strings.TrimSpace(in.Title),
		Description:  strings.TrimSpace(in.Description),
		Location:     strings.TrimSpace(in.Location),
		Skills:       trimAll(in.Skills),
		BeforeImages: trimAll(in.BeforeImages),
		AfterImages:  trimAll(in.AfterImages),
		CreatedAt:    s.now(),
	}
	if p.Title == "" || p.Description == "" || p.Location == "" {
		return nil, ErrIncompleteProject
	}
	if len(p.BeforeImages) == 0 || len(p.AfterImages) == 0 {
		return nil, ErrProjectImages
	}

	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.store.AddProject(ctx, p); err != nil {
		return nil, err
	}
	p.WorkerName, p.Trade = profile.Name, profile.Trade

	s.log.WithFields(logrus.Fields{"instance": "worker.AddProject", "user_id": userID, "project_id": p.ID}).Info("project posted")
	return p, nil
}

func (s *Service) ListProjects(ctx context.Context, userID string) ([]Project, error) {
	return s.store.ListProjects(ctx, userID)
}

// PublicProjects lists another worker's portfolio.
func (s *Service) PublicProjects(ctx context.Context, userID string) ([]Project, error) {
	if _, err := s.GetPublicProfile(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.ListProjects(ctx, userID)
}

func (s *Service) DeleteProject(ctx context.Context, userID, projectID string) error {
	return s.store.DeleteProject(ctx, userID, projectID)
}

// Feed returns the newest projects across all active workers.
func (s *Service) Feed(ctx context.Context, limit int) ([]Project, error) {
	if limit <= 0 || limit > feedLimit {
		limit = feedLimit
	}
	return s.store.RecentProjects(ctx, limit)
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
