package worker

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/tradelink/internal/db"
)

// PGStore implements Store on Postgres. A PGStore handed to an InTx
// callback is bound to that transaction and has no pool.
type PGStore struct {
	q    db.Querier
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{q: pool, pool: pool}
}

func (s *PGStore) InTx(ctx context.Context, fn func(Store) error) error {
	if s.pool == nil {
		return fn(s)
	}
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&PGStore{q: tx})
	})
}

const profileColumns = `
	p.user_id::text, u.name, p.trade, p.experience_years, p.work_area, p.id_number,
	p.availability, p.verified, p.verification_status, p.rejection_reason,
	p.rating, p.rating_count, p.submitted_at, p.reviewed_at, COALESCE(p.reviewed_by::text, ''),
	u.is_active, p.created_at, p.updated_at`

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(&p.UserID, &p.Name, &p.Trade, &p.ExperienceYears, &p.WorkArea, &p.IDNumber,
		&p.Availability, &p.Verified, &p.VerificationStatus, &p.RejectionReason,
		&p.Rating, &p.RatingCount, &p.SubmittedAt, &p.ReviewedAt, &p.ReviewedBy,
		&p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PGStore) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	return s.getProfile(ctx, userID, "")
}

func (s *PGStore) LockProfile(ctx context.Context, userID string) (*Profile, error) {
	return s.getProfile(ctx, userID, " FOR UPDATE OF p")
}

func (s *PGStore) getProfile(ctx context.Context, userID, lock string) (*Profile, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, ErrProfileNotFound
	}
	p, err := scanProfile(s.q.QueryRow(ctx, `
		SELECT `+profileColumns+`
		FROM worker_profiles p JOIN users u ON u.id = p.user_id
		WHERE p.user_id = $1`+lock, userID))
	if db.IsNoRows(err) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get worker profile: %w", err)
	}

	docs, err := s.listDocuments(ctx, userID)
	if err != nil {
		return nil, err
	}
	p.Documents = docs
	return p, nil
}

func (s *PGStore) listDocuments(ctx context.Context, userID string) ([]Document, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id::text, user_id::text, name, url, category, created_at
		FROM worker_documents WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &d.URL, &d.Category, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *PGStore) UpsertProfile(ctx context.Context, p *Profile) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO worker_profiles (user_id, trade, experience_years, work_area, id_number)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET trade = EXCLUDED.trade,
		    experience_years = EXCLUDED.experience_years,
		    work_area = EXCLUDED.work_area,
		    id_number = EXCLUDED.id_number,
		    updated_at = NOW()`,
		p.UserID, p.Trade, p.ExperienceYears, p.WorkArea, p.IDNumber)
	if err != nil {
		return fmt.Errorf("upsert worker profile: %w", err)
	}
	return nil
}

func (s *PGStore) SaveVerification(ctx context.Context, p *Profile) error {
	var reviewedBy *string
	if p.ReviewedBy != "" {
		reviewedBy = &p.ReviewedBy
	}
	return s.exec(ctx, ErrProfileNotFound, "save verification", `
		UPDATE worker_profiles
		SET verified = $2, verification_status = $3, rejection_reason = $4,
		    submitted_at = $5, reviewed_at = $6, reviewed_by = $7, updated_at = NOW()
		WHERE user_id = $1`,
		p.UserID, p.Verified, p.VerificationStatus, p.RejectionReason, p.SubmittedAt, p.ReviewedAt, reviewedBy)
}

func (s *PGStore) SetAvailability(ctx context.Context, userID string, a Availability) error {
	return s.exec(ctx, ErrProfileNotFound, "set availability",
		`UPDATE worker_profiles SET availability = $2, updated_at = NOW() WHERE user_id = $1`, userID, a)
}

func (s *PGStore) SetRating(ctx context.Context, userID string, avg float64, count int) error {
	return s.exec(ctx, ErrProfileNotFound, "set rating",
		`UPDATE worker_profiles SET rating = $2, rating_count = $3, updated_at = NOW() WHERE user_id = $1`, userID, avg, count)
}

func (s *PGStore) AddDocument(ctx context.Context, d *Document) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO worker_documents (id, user_id, name, url, category, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`, d.ID, d.UserID, d.Name, d.URL, d.Category, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PGStore) SetDocumentCategory(ctx context.Context, userID, docID, category string) error {
	if _, err := uuid.Parse(docID); err != nil {
		return ErrDocumentNotFound
	}
	return s.exec(ctx, ErrDocumentNotFound, "set document category",
		`UPDATE worker_documents SET category = $3 WHERE id = $1 AND user_id = $2`, docID, userID, category)
}

func (s *PGStore) DeleteDocument(ctx context.Context, userID, docID string) error {
	if _, err := uuid.Parse(docID); err != nil {
		return ErrDocumentNotFound
	}
	return s.exec(ctx, ErrDocumentNotFound, "delete document",
		`DELETE FROM worker_documents WHERE id = $1 AND user_id = $2`, docID, userID)
}

func (s *PGStore) List(ctx context.Context, f ListFilter) ([]Profile, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}
	return s.query(ctx, `
		SELECT `+profileColumns+`
		FROM worker_profiles p JOIN users u ON u.id = p.user_id
		WHERE u.is_active
		  AND ($1::text = '' OR p.trade = $1)
		  AND ($2 = FALSE OR p.verified)
		  AND ($3 = FALSE OR p.availability = 'available')
		ORDER BY p.verified DESC, p.rating DESC, p.rating_count DESC
		LIMIT $4 OFFSET $5`, f.Trade, f.VerifiedOnly, f.Available, f.Limit, f.Offset)
}

func (s *PGStore) ListByStatus(ctx context.Context, status VerificationStatus) ([]Profile, error) {
	profiles, err := s.query(ctx, `
		SELECT `+profileColumns+`
		FROM worker_profiles p JOIN users u ON u.id = p.user_id
		WHERE p.verification_status = $1
		ORDER BY p.submitted_at NULLS LAST`, status)
	if err != nil {
		return nil, err
	}
	// reviewers need the documents
	for i := range profiles {
		docs, err := s.listDocuments(ctx, profiles[i].UserID)
		if err != nil {
			return nil, err
		}
		profiles[i].Documents = docs
	}
	return profiles, nil
}

const projectColumns = `pr.id::text, pr.user_id::text, u.name, p.trade, pr.title, pr.description,
	pr.location, pr.skills, pr.before_images, pr.after_images, pr.created_at`

func (s *PGStore) AddProject(ctx context.Context, pr *Project) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO worker_projects (id, user_id, title, description, location, skills, before_images, after_images, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		pr.ID, pr.UserID, pr.Title, pr.Description, pr.Location, pr.Skills, pr.BeforeImages, pr.AfterImages, pr.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (s *PGStore) ListProjects(ctx context.Context, userID string) ([]Project, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return []Project{}, nil
	}
	return s.queryProjects(ctx, `
		SELECT `+projectColumns+`
		FROM worker_projects pr
		JOIN worker_profiles p ON p.user_id = pr.user_id
		JOIN users u ON u.id = pr.user_id
		WHERE pr.user_id = $1
		ORDER BY pr.created_at DESC`, userID)
}

func (s *PGStore) RecentProjects(ctx context.Context, limit int) ([]Project, error) {
	return s.queryProjects(ctx, `
		SELECT `+projectColumns+`
		FROM worker_projects pr
		JOIN worker_profiles p ON p.user_id = pr.user_id
		JOIN users u ON u.id = pr.user_id
		WHERE u.is_active
		ORDER BY pr.created_at DESC
		LIMIT $1`, limit)
}

func (s *PGStore) DeleteProject(ctx context.Context, userID, projectID string) error {
	if _, err := uuid.Parse(projectID); err != nil {
		return ErrProjectNotFound
	}
	return s.exec(ctx, ErrProjectNotFound, "delete project",
		`DELETE FROM worker_projects WHERE id = $1 AND user_id = $2`, projectID, userID)
}

func (s *PGStore) queryProjects(ctx context.Context, sql string, args ...any) ([]Project, error) {
	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	out := []Project{}
	for rows.Next() {
		var pr Project
		if err := rows.Scan(&pr.ID, &pr.UserID, &pr.WorkerName, &pr.Trade, &pr.Title, &pr.Description,
			&pr.Location, &pr.Skills, &pr.BeforeImages, &pr.AfterImages, &pr.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

func (s *PGStore) query(ctx context.Context, sql string, args ...any) ([]Profile, error) {
	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	defer rows.Close()

	out := []Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan worker: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *PGStore) exec(ctx context.Context, notFound error, op, sql string, args ...any) error {
	tag, err := s.q.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}
