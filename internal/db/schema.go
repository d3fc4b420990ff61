package db

import (
	"context"

	"github.com/sirupsen/logrus"
)

// EnsureSchema creates every table the service needs. Each statement is
// idempotent so it runs on every start.
func EnsureSchema(ctx context.Context, q Querier, log logrus.FieldLogger) error {
	steps := []struct {
		name string
		sql  string
	}{
		{"extensions", `CREATE EXTENSION IF NOT EXISTS pgcrypto`},
		{"users", usersTable},
		{"worker_profiles", workerTables},
		{"jobs", jobsTable},
		{"offers", offersTable},
		{"job_events", jobEventsTable},
		{"conversations", conversationsTable},
		{"reviews", reviewsTable},
		{"notifications", notificationsTable},
		{"wallets", walletTables},
	}

	for _, s := range steps {
		if _, err := q.Exec(ctx, s.sql); err != nil {
			log.WithError(err).WithField("table", s.name).Error("schema step failed")
			return err
		}
		log.WithField("table", s.name).Debug("schema ensured")
	}
	return nil
}

const usersTable = `
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    password TEXT NOT NULL,
    role TEXT NOT NULL CHECK (role IN ('customer','worker','admin')),
    verified BOOLEAN NOT NULL DEFAULT FALSE,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    bio TEXT NOT NULL DEFAULT '',
    avatar_url TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (LOWER(email));
`

const workerTables = `
CREATE TABLE IF NOT EXISTS worker_profiles (
    user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
    trade TEXT NOT NULL,
    experience_years INTEGER NOT NULL DEFAULT 0,
    work_area TEXT NOT NULL DEFAULT '',
    id_number TEXT NOT NULL DEFAULT '',
    availability TEXT NOT NULL DEFAULT 'available' CHECK (availability IN ('available','busy')),
    verified BOOLEAN NOT NULL DEFAULT FALSE,
    verification_status TEXT NOT NULL DEFAULT 'unsubmitted'
        CHECK (verification_status IN ('unsubmitted','pending_review','approved','rejected')),
    rejection_reason TEXT NOT NULL DEFAULT '',
    rating DOUBLE PRECISION NOT NULL DEFAULT 0,
    rating_count INTEGER NOT NULL DEFAULT 0,
    submitted_at TIMESTAMPTZ NULL,
    reviewed_at TIMESTAMPTZ NULL,
    reviewed_by UUID NULL REFERENCES users(id) ON DELETE SET NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_worker_profiles_trade ON worker_profiles (trade) WHERE verified;

CREATE TABLE IF NOT EXISTS worker_documents (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL REFERENCES worker_profiles(user_id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    url TEXT NOT NULL,
    category TEXT NOT NULL DEFAULT 'other' CHECK (category IN ('id','certificate','license','other')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_worker_documents_user ON worker_documents (user_id);

CREATE TABLE IF NOT EXISTS worker_projects (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES worker_profiles(user_id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    description TEXT NOT NULL,
    location TEXT NOT NULL,
    skills TEXT[] NOT NULL DEFAULT '{}',
    before_images TEXT[] NOT NULL,
    after_images TEXT[] NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_worker_projects_user ON worker_projects (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_worker_projects_recent ON worker_projects (created_at DESC);
`

const jobsTable = `
CREATE TABLE IF NOT EXISTS jobs (
    id UUID PRIMARY KEY,
    reference TEXT NOT NULL UNIQUE,
    customer_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    worker_id UUID NULL REFERENCES users(id) ON DELETE SET NULL,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    budget BIGINT NOT NULL DEFAULT 0,
    location TEXT NOT NULL DEFAULT '',
    job_type TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL CHECK (status IN ('draft','open','pending-offer','in-progress','completed','declined')),
    images TEXT[] NOT NULL DEFAULT '{}',
    customer_confirmed_at TIMESTAMPTZ NULL,
    worker_confirmed_at TIMESTAMPTZ NULL,
    published_at TIMESTAMPTZ NULL,
    completed_at TIMESTAMPTZ NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_jobs_customer ON jobs (customer_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_jobs_worker ON jobs (worker_id) WHERE worker_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_jobs_available ON jobs (job_type, created_at DESC)
    WHERE status IN ('open','pending-offer');
`

const offersTable = `
CREATE TABLE IF NOT EXISTS offers (
    id UUID PRIMARY KEY,
    job_id UUID NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
    worker_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    proposed_by TEXT NOT NULL CHECK (proposed_by IN ('worker','customer')),
    amount BIGINT NOT NULL DEFAULT 0,
    message TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL CHECK (status IN ('pending','accepted','declined')),
    responded_at TIMESTAMPTZ NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS offers_one_accepted_per_job ON offers (job_id) WHERE status = 'accepted';
CREATE UNIQUE INDEX IF NOT EXISTS offers_one_pending_per_worker ON offers (job_id, worker_id) WHERE status = 'pending';
CREATE INDEX IF NOT EXISTS idx_offers_worker ON offers (worker_id, created_at DESC);
`

const jobEventsTable = `
CREATE TABLE IF NOT EXISTS job_events (
    id BIGSERIAL PRIMARY KEY,
    job_id UUID NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
    type TEXT NOT NULL,
    actor_id UUID NULL REFERENCES users(id) ON DELETE SET NULL,
    detail TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_job_events_job ON job_events (job_id, id);
`

const conversationsTable = `
CREATE TABLE IF NOT EXISTS conversations (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    job_id UUID NOT NULL UNIQUE REFERENCES jobs(id) ON DELETE CASCADE,
    customer_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    worker_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    last_message_at TIMESTAMPTZ NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS messages (
    id UUID PRIMARY KEY,
    conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
    sender_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    recipient_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    kind TEXT NOT NULL DEFAULT 'text' CHECK (kind IN ('text','image','file')),
    content TEXT NOT NULL DEFAULT '',
    attachment_url TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    read_at TIMESTAMPTZ NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (conversation_id, created_at);
CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages (conversation_id, recipient_id) WHERE read_at IS NULL;
`

const reviewsTable = `
CREATE TABLE IF NOT EXISTS reviews (
    id UUID PRIMARY KEY,
    job_id UUID NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
    reviewer_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    reviewee_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
    comment TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT reviews_job_reviewer_key UNIQUE (job_id, reviewer_id)
);
CREATE INDEX IF NOT EXISTS idx_reviews_reviewee ON reviews (reviewee_id, created_at DESC);
`

const notificationsTable = `
CREATE TABLE IF NOT EXISTS notifications (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    type TEXT NOT NULL,
    title TEXT NOT NULL,
    body TEXT NOT NULL DEFAULT '',
    reference TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    read_at TIMESTAMPTZ NULL
);
CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications (user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_notifications_user_unread ON notifications (user_id) WHERE read_at IS NULL;
`

const walletTables = `
CREATE TABLE IF NOT EXISTS wallets (
    user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
    balance BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS transactions (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    amount BIGINT NOT NULL,
    type TEXT NOT NULL CHECK (type IN ('credit','debit')),
    status TEXT NOT NULL,
    reference UUID NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS transactions_job_earning_key ON transactions (user_id, reference) WHERE status = 'job_earning';
CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions (user_id, created_at DESC);
`
