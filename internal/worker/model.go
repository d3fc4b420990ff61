package worker

import "time"

type Availability string

const (
	Available Availability = "available"
	Busy      Availability = "busy"
)

func (a Availability) Valid() bool {
	return a == Available || a == Busy
}

type VerificationStatus string

const (
	StatusUnsubmitted   VerificationStatus = "unsubmitted"
	StatusPendingReview VerificationStatus = "pending_review"
	StatusApproved      VerificationStatus = "approved"
	StatusRejected      VerificationStatus = "rejected"
)

// Document categories.
const (
	CategoryID          = "id"
	CategoryCertificate = "certificate"
	CategoryLicense     = "license"
	CategoryOther       = "other"
)

func validCategory(c string) bool {
	switch c {
	case CategoryID, CategoryCertificate, CategoryLicense, CategoryOther:
		return true
	}
	return false
}

type Document struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile is a worker's trade profile. Verified is only ever set by
// Approve after the document check passes. Active mirrors the owning
// account and goes false when an admin suspends it.
type Profile struct {
	UserID             string             `json:"user_id"`
	Name               string             `json:"name"`
	Trade              string             `json:"trade"`
	ExperienceYears    int                `json:"experience_years"`
	WorkArea           string             `json:"work_area"`
	IDNumber           string             `json:"id_number,omitempty"`
	Availability       Availability       `json:"availability"`
	Verified           bool               `json:"verified"`
	Active             bool               `json:"-"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	RejectionReason    string             `json:"rejection_reason,omitempty"`
	Rating             float64            `json:"rating"`
	RatingCount        int                `json:"rating_count"`
	Documents          []Document         `json:"documents"`
	SubmittedAt        *time.Time         `json:"submitted_at,omitempty"`
	ReviewedAt         *time.Time         `json:"reviewed_at,omitempty"`
	ReviewedBy         string             `json:"reviewed_by,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// Public strips private fields for listings seen by other users.
func (p Profile) Public() Profile {
	p.IDNumber = ""
	p.RejectionReason = ""
	p.ReviewedBy = ""
	p.Documents = nil
	return p
}

// HasRequiredDocuments reports whether at least one id and one
// certificate document are on file.
func HasRequiredDocuments(docs []Document) bool {
	var id, cert bool
	for _, d := range docs {
		switch d.Category {
		case CategoryID:
			id = true
		case CategoryCertificate:
			cert = true
		}
	}
	return id && cert
}

// ProfileInput is the editable part of a profile.
type ProfileInput struct {
	Trade           string `json:"trade" validate:"required,max=60"`
	ExperienceYears int    `json:"experience_years" validate:"gte=0,lte=70"`
	WorkArea        string `json:"work_area" validate:"max=120"`
	IDNumber        string `json:"id_number" validate:"max=32"`
}

type ListFilter struct {
	Trade        string
	VerifiedOnly bool
	Available    bool
	Limit        int
	Offset       int
}
