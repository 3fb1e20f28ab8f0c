package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/approval-service/internal/domain"
)

// TeamMemberFilter defines query params for member listing.
type TeamMemberFilter struct {
	CategoryID  *string
	IsAvailable *bool
}

// TeamMemberRepository handles persistence for assignable team members.
// List returns stable creation order; the assignment policy's tie-break
// relies on it.
type TeamMemberRepository interface {
	Create(ctx context.Context, member *domain.TeamMember) error
	Update(ctx context.Context, member *domain.TeamMember) error
	GetByID(ctx context.Context, id string) (*domain.TeamMember, error)
	List(ctx context.Context, filter TeamMemberFilter) ([]domain.TeamMember, error)
}

type teamMemberRepository struct {
	pool *pgxpool.Pool
}

// NewTeamMemberRepository instantiates the repository.
func NewTeamMemberRepository(pool *pgxpool.Pool) TeamMemberRepository {
	return &teamMemberRepository{pool: pool}
}

func (r *teamMemberRepository) Create(ctx context.Context, member *domain.TeamMember) error {
	const query = `
        INSERT INTO team_members (name, email, category_id, is_available)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		member.Name,
		member.Email,
		member.CategoryID,
		member.IsAvailable,
	).Scan(&member.ID, &member.CreatedAt)
}

func (r *teamMemberRepository) Update(ctx context.Context, member *domain.TeamMember) error {
	const query = `
        UPDATE team_members SET name=$1, email=$2, category_id=$3, is_available=$4
        WHERE id=$5`
	cmd, err := r.pool.Exec(ctx, query,
		member.Name,
		member.Email,
		member.CategoryID,
		member.IsAvailable,
		member.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *teamMemberRepository) GetByID(ctx context.Context, id string) (*domain.TeamMember, error) {
	const query = `
        SELECT id, name, email, category_id, is_available, created_at
        FROM team_members WHERE id=$1`
	var member domain.TeamMember
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&member.ID,
		&member.Name,
		&member.Email,
		&member.CategoryID,
		&member.IsAvailable,
		&member.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *teamMemberRepository) List(ctx context.Context, filter TeamMemberFilter) ([]domain.TeamMember, error) {
	query := `
        SELECT id, name, email, category_id, is_available, created_at
        FROM team_members`
	args := []any{}
	clauses := []string{"1=1"}

	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("category_id=$%d", len(args)))
	}
	if filter.IsAvailable != nil {
		args = append(args, *filter.IsAvailable)
		clauses = append(clauses, fmt.Sprintf("is_available=$%d", len(args)))
	}

	query += " WHERE " + strings.Join(clauses, " AND ") + " ORDER BY created_at ASC, id ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TeamMember
	for rows.Next() {
		var member domain.TeamMember
		if err := rows.Scan(
			&member.ID,
			&member.Name,
			&member.Email,
			&member.CategoryID,
			&member.IsAvailable,
			&member.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, member)
	}
	return result, rows.Err()
}
