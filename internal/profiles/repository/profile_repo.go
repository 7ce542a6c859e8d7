package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/creatorhub/platform-api/internal/profiles/domain"
)

const profileColumns = `id, email, full_name, avatar_url, role, referral_code,
		referrer_l1_id, referrer_l2_id, referrer_l3_id, referral_attached_at,
		created_at, updated_at`

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*domain.Profile, error) {
	var p domain.Profile
	var role string
	var fullName, avatarURL, code, l1, l2, l3 sql.NullString
	var attachedAt sql.NullTime

	err := row.Scan(
		&p.ID,
		&p.Email,
		&fullName,
		&avatarURL,
		&role,
		&code,
		&l1,
		&l2,
		&l3,
		&attachedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Role = domain.Role(role)
	p.FullName = nullableString(fullName)
	p.AvatarURL = nullableString(avatarURL)
	p.ReferralCode = nullableString(code)
	p.ReferrerL1ID = nullableString(l1)
	p.ReferrerL2ID = nullableString(l2)
	p.ReferrerL3ID = nullableString(l3)
	if attachedAt.Valid {
		t := attachedAt.Time
		p.ReferralAttachedAt = &t
	}

	return &p, nil
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// Get retrieves a profile by its identity-provider id.
func (r *ProfileRepository) Get(ctx context.Context, id string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	p, err := scanProfile(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// GetByCode retrieves the profile that owns a referral code.
func (r *ProfileRepository) GetByCode(ctx context.Context, code string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE referral_code = $1`

	p, err := scanProfile(r.db.QueryRowContext(ctx, query, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile by code: %w", err)
	}
	return p, nil
}

// Insert creates a profile. Unique violations on id, email or referral code
// are reported as *domain.ConflictError.
func (r *ProfileRepository) Insert(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	query := `
		INSERT INTO profiles (id, email, full_name, avatar_url, role, referral_code,
		                      referrer_l1_id, referrer_l2_id, referrer_l3_id, referral_attached_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + profileColumns

	role := p.Role
	if role == "" {
		role = domain.DefaultRole
	}

	created, err := scanProfile(r.db.QueryRowContext(ctx, query,
		p.ID,
		p.Email,
		p.FullName,
		p.AvatarURL,
		string(role),
		p.ReferralCode,
		p.ReferrerL1ID,
		p.ReferrerL2ID,
		p.ReferrerL3ID,
		p.ReferralAttachedAt,
	))
	if err != nil {
		return nil, mapWriteError("insert profile", err)
	}
	return created, nil
}

// Update changes the mutable fields of a profile. Nil fields are left as they are.
func (r *ProfileRepository) Update(ctx context.Context, id string, req *domain.UpdateProfileRequest) (*domain.Profile, error) {
	query := `
		UPDATE profiles
		SET email = COALESCE($2, email),
		    full_name = COALESCE($3, full_name),
		    avatar_url = COALESCE($4, avatar_url),
		    role = COALESCE($5, role),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + profileColumns

	var role *string
	if req.Role != nil {
		s := string(*req.Role)
		role = &s
	}

	p, err := scanProfile(r.db.QueryRowContext(ctx, query, id, req.Email, req.FullName, req.AvatarURL, role))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, mapWriteError("update profile", err)
	}
	return p, nil
}

// AttachReferrers writes the referral chain only if the profile was never
// linked. The WHERE guard serializes concurrent attaches for the same profile
// and keys on referral_attached_at, which survives deleted referrers.
func (r *ProfileRepository) AttachReferrers(ctx context.Context, id string, chain domain.ReferralChain) (*domain.Profile, error) {
	query := `
		UPDATE profiles
		SET referrer_l1_id = $2,
		    referrer_l2_id = $3,
		    referrer_l3_id = $4,
		    referral_attached_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1
		  AND referral_attached_at IS NULL
		  AND referrer_l1_id IS NULL
		  AND referrer_l2_id IS NULL
		  AND referrer_l3_id IS NULL
		RETURNING ` + profileColumns

	p, err := scanProfile(r.db.QueryRowContext(ctx, query, id, chain.L1, chain.L2, chain.L3))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("attach referrers: %w", err)
	}

	exists, err := r.exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrProfileNotFound
	}
	return nil, domain.ErrAlreadyLinked
}

// Delete removes a profile. Descendants' referrer ids pointing at it become
// NULL through ON DELETE SET NULL; their referral_attached_at is untouched.
func (r *ProfileRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

// CountDownline counts profiles referred by id at each of the three levels.
func (r *ProfileRepository) CountDownline(ctx context.Context, id string) (domain.Downline, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE referrer_l1_id = $1),
			COUNT(*) FILTER (WHERE referrer_l2_id = $1),
			COUNT(*) FILTER (WHERE referrer_l3_id = $1)
		FROM profiles
		WHERE referrer_l1_id = $1 OR referrer_l2_id = $1 OR referrer_l3_id = $1
	`

	var d domain.Downline
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&d.Level1, &d.Level2, &d.Level3); err != nil {
		return domain.Downline{}, fmt.Errorf("count downline: %w", err)
	}
	return d, nil
}

// ListMissingReferralCode returns up to limit profile ids that have no referral code.
func (r *ProfileRepository) ListMissingReferralCode(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM profiles WHERE referral_code IS NULL ORDER BY created_at LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list profiles without referral code: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AssignReferralCode sets the code only when the profile has none. It reports
// whether a row was changed.
func (r *ProfileRepository) AssignReferralCode(ctx context.Context, id, code string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE profiles
		SET referral_code = $2, updated_at = NOW()
		WHERE id = $1 AND referral_code IS NULL`, id, code)
	if err != nil {
		return false, mapWriteError("assign referral code", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected == 1, nil
}

func (r *ProfileRepository) exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM profiles WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check profile: %w", err)
	}
	return exists, nil
}

// mapWriteError turns unique violations from either driver into a ConflictError.
func mapWriteError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return &domain.ConflictError{Constraint: pqErr.Constraint}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &domain.ConflictError{Constraint: pgErr.ConstraintName}
	}
	return fmt.Errorf("%s: %w", op, err)
}
