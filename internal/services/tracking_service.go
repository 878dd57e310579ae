package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shelterfund/backend/internal/models"
	"github.com/skip2/go-qrcode"
)

// trackingTTL bounds how long a tracking code resolves. Codes for decided
// applications age out on their own.
const trackingTTL = 30 * 24 * time.Hour

// ErrTrackingUnavailable is returned when Redis is down; tracking codes
// cannot be minted or resolved without it.
var ErrTrackingUnavailable = errors.New("tracking service unavailable")

type TrackingService struct {
	db    *sql.DB
	redis *redis.Client
}

// TrackingSnapshot is the applicant-facing view behind a tracking code.
// It deliberately omits section data; the code may be shared with third
// parties such as landlords.
type TrackingSnapshot struct {
	ApplicationID string        `json:"applicationId"`
	LoanPurpose   string        `json:"loanPurpose"`
	Status        models.Status `json:"status"`
	SubmittedAt   time.Time     `json:"submittedAt"`
	DecidedAt     *time.Time    `json:"decidedAt,omitempty"`
}

func NewTrackingService(db *sql.DB, redis *redis.Client) *TrackingService {
	return &TrackingService{
		db:    db,
		redis: redis,
	}
}

// GenerateTrackingCode mints an opaque code for an owner's application and
// renders it as a QR image. The code maps to the application in Redis; the
// status is always read fresh from the database on resolution.
func (s *TrackingService) GenerateTrackingCode(ctx context.Context, ownerID, applicationID string) (string, string, error) {
	if s.redis == nil {
		return "", "", ErrTrackingUnavailable
	}

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM applications WHERE application_id = $1 AND owner_id = $2)`,
		applicationID, ownerID).Scan(&exists)
	if err != nil {
		return "", "", err
	}
	if !exists {
		return "", "", ErrNotFound
	}

	code := s.generateCode()

	key := fmt.Sprintf("tracking:%s", code)
	if err := s.redis.Set(ctx, key, applicationID, trackingTTL).Err(); err != nil {
		return "", "", err
	}

	qr, err := qrcode.New(code, qrcode.Medium)
	if err != nil {
		return "", "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		return "", "", err
	}

	qrImage := base64.StdEncoding.EncodeToString(buf.Bytes())

	return code, qrImage, nil
}

// ResolveTrackingCode turns a code back into a status snapshot. Codes stay
// valid for repeated lookups until their TTL lapses.
func (s *TrackingService) ResolveTrackingCode(ctx context.Context, code string) (*TrackingSnapshot, error) {
	if s.redis == nil {
		return nil, ErrTrackingUnavailable
	}

	key := fmt.Sprintf("tracking:%s", code)

	applicationID, err := s.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("invalid or expired tracking code")
	}
	if err != nil {
		return nil, err
	}

	snapshot := &TrackingSnapshot{}
	var decidedAt sql.NullTime
	err = s.db.QueryRowContext(ctx, `
		SELECT application_id, loan_purpose, status, submitted_at, decided_at
		FROM applications WHERE application_id = $1
	`, applicationID).Scan(&snapshot.ApplicationID, &snapshot.LoanPurpose, &snapshot.Status, &snapshot.SubmittedAt, &decidedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if decidedAt.Valid {
		t := decidedAt.Time
		snapshot.DecidedAt = &t
	}

	return snapshot, nil
}

func (s *TrackingService) generateCode() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
