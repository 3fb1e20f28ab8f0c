package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/approval-service/internal/domain"
	"github.com/spec-kit/approval-service/internal/events"
	"github.com/spec-kit/approval-service/internal/notification"
	"github.com/spec-kit/approval-service/internal/repository"
)

// In-memory repository fakes. They copy on read and write so tests observe
// persisted state, not shared pointers, and they preserve insertion order
// where the real queries guarantee ordering.

type fakeTicketRepo struct {
	mu      sync.Mutex
	seq     int
	tickets map[string]domain.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]domain.Ticket)}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	ticket.ID = fmt.Sprintf("ticket-%d", r.seq)
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.CreatedBy != nil && ticket.CreatedBy != *filter.CreatedBy {
			continue
		}
		if len(filter.Statuses) > 0 {
			matched := false
			for _, status := range filter.Statuses {
				if ticket.Status == status {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		result = append(result, ticket)
	}
	return result, nil
}

func (r *fakeTicketRepo) CountByAssigneeAndStatuses(_ context.Context, memberID string, statuses []domain.TicketStatus) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, ticket := range r.tickets {
		if ticket.AssignedTo == nil || *ticket.AssignedTo != memberID {
			continue
		}
		for _, status := range statuses {
			if ticket.Status == status {
				count++
				break
			}
		}
	}
	return count, nil
}

type fakeApprovalRepo struct {
	mu        sync.Mutex
	seq       int
	approvals []domain.Approval
}

func newFakeApprovalRepo() *fakeApprovalRepo {
	return &fakeApprovalRepo{}
}

func (r *fakeApprovalRepo) Create(_ context.Context, approval *domain.Approval) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	approval.ID = fmt.Sprintf("approval-%d", r.seq)
	approval.CreatedAt = time.Now()
	r.approvals = append(r.approvals, *approval)
	return nil
}

func (r *fakeApprovalRepo) Update(_ context.Context, approval *domain.Approval) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.approvals {
		if r.approvals[i].ID == approval.ID {
			r.approvals[i] = *approval
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeApprovalRepo) GetByID(_ context.Context, id string) (*domain.Approval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.approvals {
		if r.approvals[i].ID == id {
			approval := r.approvals[i]
			return &approval, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeApprovalRepo) GetByTicketAndLevel(_ context.Context, ticketID string, level int) (*domain.Approval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.approvals {
		if r.approvals[i].TicketID == ticketID && r.approvals[i].Level == level {
			approval := r.approvals[i]
			return &approval, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeApprovalRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Approval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Approval
	for _, approval := range r.approvals {
		if approval.TicketID == ticketID {
			result = append(result, approval)
		}
	}
	// Insertion order is level order: chains are built level 1 first.
	return result, nil
}

func (r *fakeApprovalRepo) DeleteByTicket(_ context.Context, ticketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.approvals[:0]
	for _, approval := range r.approvals {
		if approval.TicketID != ticketID {
			kept = append(kept, approval)
		}
	}
	r.approvals = kept
	return nil
}

type fakeCategoryRepo struct {
	mu         sync.Mutex
	seq        int
	categories []domain.Category
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{}
}

func (r *fakeCategoryRepo) Create(_ context.Context, category *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	category.ID = fmt.Sprintf("category-%d", r.seq)
	category.CreatedAt = time.Now()
	r.categories = append(r.categories, *category)
	return nil
}

func (r *fakeCategoryRepo) Update(_ context.Context, category *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.categories {
		if r.categories[i].ID == category.ID {
			r.categories[i] = *category
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeCategoryRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.categories {
		if r.categories[i].ID == id {
			category := r.categories[i]
			return &category, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeCategoryRepo) GetByName(_ context.Context, name string) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.categories {
		if r.categories[i].Name == name {
			category := r.categories[i]
			return &category, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeCategoryRepo) ListAll(_ context.Context) ([]domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]domain.Category, len(r.categories))
	copy(result, r.categories)
	return result, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	seq   int
	users []domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	user.ID = fmt.Sprintf("user-%d", r.seq)
	user.CreatedAt = time.Now()
	r.users = append(r.users, *user)
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.users {
		if r.users[i].ID == user.ID {
			r.users[i] = *user
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.users {
		if r.users[i].ID == id {
			user := r.users[i]
			return &user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.users {
		if r.users[i].Email == email {
			user := r.users[i]
			return &user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeTeamMemberRepo struct {
	mu      sync.Mutex
	seq     int
	members []domain.TeamMember
}

func newFakeTeamMemberRepo() *fakeTeamMemberRepo {
	return &fakeTeamMemberRepo{}
}

func (r *fakeTeamMemberRepo) Create(_ context.Context, member *domain.TeamMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	member.ID = fmt.Sprintf("member-%d", r.seq)
	member.CreatedAt = time.Now()
	r.members = append(r.members, *member)
	return nil
}

func (r *fakeTeamMemberRepo) Update(_ context.Context, member *domain.TeamMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.members {
		if r.members[i].ID == member.ID {
			r.members[i] = *member
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeTeamMemberRepo) GetByID(_ context.Context, id string) (*domain.TeamMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.members {
		if r.members[i].ID == id {
			member := r.members[i]
			return &member, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTeamMemberRepo) List(_ context.Context, filter repository.TeamMemberFilter) ([]domain.TeamMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.TeamMember
	for _, member := range r.members {
		if filter.CategoryID != nil && member.CategoryID != *filter.CategoryID {
			continue
		}
		if filter.IsAvailable != nil && member.IsAvailable != *filter.IsAvailable {
			continue
		}
		result = append(result, member)
	}
	return result, nil
}

type fakeHistoryRepo struct {
	mu      sync.Mutex
	seq     int
	entries []domain.TicketHistory
}

func newFakeHistoryRepo() *fakeHistoryRepo {
	return &fakeHistoryRepo{}
}

func (r *fakeHistoryRepo) Create(_ context.Context, entry *domain.TicketHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	entry.ID = fmt.Sprintf("history-%d", r.seq)
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeHistoryRepo) ListByTicket(_ context.Context, ticketID string, _, _ int) ([]domain.TicketHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.TicketHistory
	for _, entry := range r.entries {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (r *fakeHistoryRepo) actions(ticketID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []string
	for _, entry := range r.entries {
		if entry.TicketID == ticketID {
			result = append(result, entry.Action)
		}
	}
	return result
}

// fakeMailer records outbound messages instead of sending them.
type fakeMailer struct {
	mu       sync.Mutex
	messages []notification.Message
}

func (m *fakeMailer) Send(msg notification.Message) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return true
}

func (m *fakeMailer) byKind(kind string) []notification.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []notification.Message
	for _, msg := range m.messages {
		if msg.Kind == kind {
			result = append(result, msg)
		}
	}
	return result
}

// eventRecorder captures published events of one type, keeping payloads.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) handler(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) all() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]events.Event, len(r.events))
	copy(result, r.events)
	return result
}

func (r *eventRecorder) last() (events.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return events.Event{}, false
	}
	return r.events[len(r.events)-1], true
}
