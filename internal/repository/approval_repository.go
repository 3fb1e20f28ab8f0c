package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/approval-service/internal/domain"
)

// ApprovalRepository encapsulates approval-step persistence.
// GetByTicketAndLevel backs the previous-level guard; DeleteByTicket backs
// the pre-approval chain rebuild on edit.
type ApprovalRepository interface {
	Create(ctx context.Context, approval *domain.Approval) error
	Update(ctx context.Context, approval *domain.Approval) error
	GetByID(ctx context.Context, id string) (*domain.Approval, error)
	GetByTicketAndLevel(ctx context.Context, ticketID string, level int) (*domain.Approval, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Approval, error)
	DeleteByTicket(ctx context.Context, ticketID string) error
}

type approvalRepository struct {
	pool *pgxpool.Pool
}

// NewApprovalRepository instantiates the repository.
func NewApprovalRepository(pool *pgxpool.Pool) ApprovalRepository {
	return &approvalRepository{pool: pool}
}

const approvalColumns = `id, ticket_id, approver_email, approver_role, approver_name, level, status, comment, approved_at, created_at`

func (r *approvalRepository) Create(ctx context.Context, approval *domain.Approval) error {
	const query = `
        INSERT INTO approvals (ticket_id, approver_email, approver_role, approver_name, level, status, comment, approved_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		approval.TicketID,
		approval.ApproverEmail,
		approval.ApproverRole,
		approval.ApproverName,
		approval.Level,
		approval.Status,
		approval.Comment,
		approval.ApprovedAt,
	).Scan(&approval.ID, &approval.CreatedAt)
}

func (r *approvalRepository) Update(ctx context.Context, approval *domain.Approval) error {
	const query = `
        UPDATE approvals SET status=$1, comment=$2, approved_at=$3
        WHERE id=$4`
	cmd, err := r.pool.Exec(ctx, query,
		approval.Status,
		approval.Comment,
		approval.ApprovedAt,
		approval.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *approvalRepository) GetByID(ctx context.Context, id string) (*domain.Approval, error) {
	query := `SELECT ` + approvalColumns + ` FROM approvals WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *approvalRepository) GetByTicketAndLevel(ctx context.Context, ticketID string, level int) (*domain.Approval, error) {
	query := `SELECT ` + approvalColumns + ` FROM approvals WHERE ticket_id=$1 AND level=$2`
	var approval domain.Approval
	if err := r.pool.QueryRow(ctx, query, ticketID, level).Scan(approvalFields(&approval)...); err != nil {
		return nil, err
	}
	return &approval, nil
}

func (r *approvalRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Approval, error) {
	var approval domain.Approval
	if err := r.pool.QueryRow(ctx, query, arg).Scan(approvalFields(&approval)...); err != nil {
		return nil, err
	}
	return &approval, nil
}

func (r *approvalRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Approval, error) {
	query := `SELECT ` + approvalColumns + ` FROM approvals WHERE ticket_id=$1 ORDER BY level ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Approval
	for rows.Next() {
		var approval domain.Approval
		if err := rows.Scan(approvalFields(&approval)...); err != nil {
			return nil, err
		}
		result = append(result, approval)
	}
	return result, rows.Err()
}

func (r *approvalRepository) DeleteByTicket(ctx context.Context, ticketID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM approvals WHERE ticket_id=$1`, ticketID)
	return err
}

func approvalFields(a *domain.Approval) []any {
	return []any{
		&a.ID,
		&a.TicketID,
		&a.ApproverEmail,
		&a.ApproverRole,
		&a.ApproverName,
		&a.Level,
		&a.Status,
		&a.Comment,
		&a.ApprovedAt,
		&a.CreatedAt,
	}
}
