package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/approval-service/internal/auth"
	"github.com/spec-kit/approval-service/internal/config"
	"github.com/spec-kit/approval-service/internal/domain"
	"github.com/spec-kit/approval-service/internal/events"
	"github.com/spec-kit/approval-service/internal/lock"
	apperrors "github.com/spec-kit/approval-service/pkg/util"
)

func approvalTestConfig() config.ApprovalConfig {
	return config.ApprovalConfig{
		TokenSecret:     "test-secret",
		TokenMaxAgeHrs:  168,
		ApprovalPurpose: "approval-token",
	}
}

type approvalFixture struct {
	tickets   *fakeTicketRepo
	approvals *fakeApprovalRepo
	members   *fakeTeamMemberRepo
	history   *fakeHistoryRepo
	requested *eventRecorder
	assigned  *eventRecorder
	rejected  *eventRecorder
	svc       *ApprovalService
	ticket    *domain.Ticket
	category  *domain.Category
}

// newApprovalFixture builds a ticket with a three-level chain already
// materialized: level 1 PENDING, levels 2-3 WAITING.
func newApprovalFixture(t *testing.T) *approvalFixture {
	t.Helper()
	ctx := context.Background()

	f := &approvalFixture{
		tickets:   newFakeTicketRepo(),
		approvals: newFakeApprovalRepo(),
		members:   newFakeTeamMemberRepo(),
		history:   newFakeHistoryRepo(),
		requested: &eventRecorder{},
		assigned:  &eventRecorder{},
		rejected:  &eventRecorder{},
	}
	categories := newFakeCategoryRepo()
	users := newFakeUserRepo()

	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.Subscribe(events.EventApprovalRequested, f.requested.handler)
	dispatcher.Subscribe(events.EventTicketAssigned, f.assigned.handler)
	dispatcher.Subscribe(events.EventTicketRejected, f.rejected.handler)

	user := &domain.User{Name: "John Employee", Email: "john@company.com"}
	require.NoError(t, users.Create(ctx, user))

	category := &domain.Category{
		Name:      "Software Installation",
		Keywords:  "install, software",
		Approvers: "lead@company.com:Team Lead:Robert | manager@company.com:IT Manager:Emily | director@company.com:IT Director:Michael",
	}
	require.NoError(t, categories.Create(ctx, category))
	f.category = category

	ticket := &domain.Ticket{
		Description: "I need Microsoft Office installed on my laptop",
		CategoryID:  &category.ID,
		CreatedBy:   user.ID,
		Status:      domain.TicketStatusPendingApproval,
	}
	require.NoError(t, f.tickets.Create(ctx, ticket))
	f.ticket = ticket

	f.svc = NewApprovalService(approvalTestConfig(), ApprovalDependencies{
		TicketRepo:   f.tickets,
		ApprovalRepo: f.approvals,
		CategoryRepo: categories,
		UserRepo:     users,
		HistoryRepo:  f.history,
		Assignment:   NewAssignmentService(f.tickets, f.members),
		Dispatcher:   dispatcher,
		Codec:        auth.NewApprovalTokenCodec("test-secret"),
		Locks:        lock.NewKeyedMutex(),
	})

	require.NoError(t, f.svc.BuildChain(ctx, ticket, category))
	return f
}

// pendingToken returns the token issued with the latest approval request.
func (f *approvalFixture) pendingToken(t *testing.T) string {
	t.Helper()
	event, ok := f.requested.last()
	require.True(t, ok, "no approval_requested event published")
	payload, ok := event.Payload.(events.ApprovalRequestedPayload)
	require.True(t, ok)
	require.NotEmpty(t, payload.Token)
	return payload.Token
}

func (f *approvalFixture) addMember(t *testing.T, name string) *domain.TeamMember {
	t.Helper()
	member := &domain.TeamMember{
		Name:        name,
		Email:       name + "@company.com",
		CategoryID:  f.category.ID,
		IsAvailable: true,
	}
	require.NoError(t, f.members.Create(context.Background(), member))
	return member
}

func TestBuildChainInitialState(t *testing.T) {
	f := newApprovalFixture(t)
	ctx := context.Background()

	steps, err := f.svc.ListSteps(ctx, f.ticket.ID)
	require.NoError(t, err)
	require.Len(t, steps, 3)

	assert.Equal(t, domain.ApprovalStatusPending, steps[0].Status)
	assert.Equal(t, domain.ApprovalStatusWaiting, steps[1].Status)
	assert.Equal(t, domain.ApprovalStatusWaiting, steps[2].Status)
	assert.Equal(t, "lead@company.com", steps[0].ApproverEmail)
	assert.Equal(t, 1, steps[0].Level)

	// Only the level-1 approver has been asked so far.
	require.Len(t, f.requested.all(), 1)
	payload := f.requested.all()[0].Payload.(events.ApprovalRequestedPayload)
	assert.Equal(t, "lead@company.com", payload.ApproverEmail)
	assert.Equal(t, 1, payload.Level)
}

func TestSequentialApprovalAdvancesLevels(t *testing.T) {
	f := newApprovalFixture(t)
	f.addMember(t, "alex")
	ctx := context.Background()

	msg, _, err := f.svc.SubmitAction(ctx, f.pendingToken(t), ActionApprove, "looks fine")
	require.NoError(t, err)
	assert.Equal(t, "Ticket approved successfully!", msg)

	steps, err := f.svc.ListSteps(ctx, f.ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusApproved, steps[0].Status)
	assert.Equal(t, domain.ApprovalStatusPending, steps[1].Status)
	assert.Equal(t, domain.ApprovalStatusWaiting, steps[2].Status)
	require.NotNil(t, steps[0].ApprovedAt)
	require.NotNil(t, steps[0].Comment)
	assert.Equal(t, "looks fine", *steps[0].Comment)

	// Level 2 has now been asked.
	require.Len(t, f.requested.all(), 2)
	assert.Equal(t, "manager@company.com", f.requested.all()[1].Payload.(events.ApprovalRequestedPayload).ApproverEmail)

	// Ticket is still pending until the whole chain approves.
	ticket, err := f.tickets.GetByID(ctx, f.ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPendingApproval, ticket.Status)
	assert.Empty(t, f.assigned.all())
}

func TestFullApprovalAssignsTicket(t *testing.T) {
	f := newApprovalFixture(t)
	member := f.addMember(t, "alex")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := f.svc.SubmitAction(ctx, f.pendingToken(t), ActionApprove, "")
		require.NoError(t, err)
	}

	ticket, err := f.tickets.GetByID(ctx, f.ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAssigned, ticket.Status)
	require.NotNil(t, ticket.AssignedTo)
	assert.Equal(t, member.ID, *ticket.AssignedTo)

	// Exactly one assignment event for the whole flow.
	require.Len(t, f.assigned.all(), 1)
	payload := f.assigned.all()[0].Payload.(events.TicketAssignedPayload)
	assert.Equal(t, member.Email, payload.AssigneeEmail)

	assert.Contains(t, f.history.actions(f.ticket.ID), domain.HistoryActionAssigned)
}

func TestFullApprovalWithoutCandidatesStaysApproved(t *testing.T) {
	f := newApprovalFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := f.svc.SubmitAction(ctx, f.pendingToken(t), ActionApprove, "")
		require.NoError(t, err)
	}

	ticket, err := f.tickets.GetByID(ctx, f.ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusApproved, ticket.Status)
	assert.Nil(t, ticket.AssignedTo)
	assert.Empty(t, f.assigned.all())
}

func TestWaitingStepRejectsEarlyAction(t *testing.T) {
	f := newApprovalFixture(t)
	ctx := context.Background()

	// Forge a token for the level-2 step, which is still WAITING.
	steps, err := f.svc.ListSteps(ctx, f.ticket.ID)
	require.NoError(t, err)
	codec := auth.NewApprovalTokenCodec("test-secret")
	token, err := codec.Issue(auth.ApprovalPayload{
		ApprovalID: steps[1].ID,
		TicketID:   f.ticket.ID,
	}, "approval-token")
	require.NoError(t, err)

	_, _, err = f.svc.SubmitAction(ctx, token, ActionApprove, "")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "STEP_NOT_READY"))
}

func TestStalePendingRequiresPreviousApproval(t *testing.T) {
	f := newApprovalFixture(t)
	ctx := context.Background()

	// Force level 2 to PENDING without level 1 having approved.
	steps, err := f.svc.ListSteps(ctx, f.ticket.ID)
	require.NoError(t, err)
	level2 := steps[1]
	level2.Status = domain.ApprovalStatusPending
	require.NoError(t, f.approvals.Update(ctx, &level2))

	codec := auth.NewApprovalTokenCodec("test-secret")
	token, err := codec.Issue(auth.ApprovalPayload{
		ApprovalID: level2.ID,
		TicketID:   f.ticket.ID,
	}, "approval-token")
	require.NoError(t, err)

	_, _, err = f.svc.SubmitAction(ctx, token, ActionApprove, "")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "PREVIOUS_LEVEL_NOT_APPROVED"))
}

func TestResubmittingDecidedStepIsBenign(t *testing.T) {
	f := newApprovalFixture(t)
	ctx := context.Background()

	token := f.pendingToken(t)
	_, _, err := f.svc.SubmitAction(ctx, token, ActionApprove, "")
	require.NoError(t, err)

	// The same link followed again changes nothing and reports the outcome.
	msg, ticket, err := f.svc.SubmitAction(ctx, token, ActionApprove, "")
	require.NoError(t, err)
	require.NotNil(t, ticket)
	assert.Equal(t, "This approval has already been approved.", msg)

	steps, err := f.svc.ListSteps(ctx, f.ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusApproved, steps[0].Status)
	assert.Equal(t, domain.ApprovalStatusPending, steps[1].Status)
	// No duplicate level-2 notification.
	require.Len(t, f.requested.all(), 2)
}

func TestRejectShortCircuitsChain(t *testing.T) {
	f := newApprovalFixture(t)
	f.addMember(t, "alex")
	ctx := context.Background()

	_, _, err := f.svc.SubmitAction(ctx, f.pendingToken(t), ActionApprove, "")
	require.NoError(t, err)

	msg, ticket, err := f.svc.SubmitAction(ctx, f.pendingToken(t), ActionReject, "not in budget")
	require.NoError(t, err)
	assert.Equal(t, "Ticket rejected.", msg)
	assert.Equal(t, domain.TicketStatusRejected, ticket.Status)

	steps, err := f.svc.ListSteps(ctx, f.ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusApproved, steps[0].Status)
	assert.Equal(t, domain.ApprovalStatusRejected, steps[1].Status)
	assert.Equal(t, domain.ApprovalStatusWaiting, steps[2].Status)

	require.Len(t, f.rejected.all(), 1)
	assert.Empty(t, f.assigned.all())
	// Level 3 was never asked.
	require.Len(t, f.requested.all(), 2)
}

func TestInvalidTokenRejected(t *testing.T) {
	f := newApprovalFixture(t)

	_, _, err := f.svc.SubmitAction(context.Background(), "not-a-token", ActionApprove, "")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "TOKEN_INVALID"))
}

func TestTokenFromDifferentPurposeRejected(t *testing.T) {
	f := newApprovalFixture(t)
	ctx := context.Background()

	steps, err := f.svc.ListSteps(ctx, f.ticket.ID)
	require.NoError(t, err)

	codec := auth.NewApprovalTokenCodec("test-secret")
	token, err := codec.Issue(auth.ApprovalPayload{
		ApprovalID: steps[0].ID,
		TicketID:   f.ticket.ID,
	}, "password-reset")
	require.NoError(t, err)

	_, _, err = f.svc.SubmitAction(ctx, token, ActionApprove, "")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "TOKEN_INVALID"))
}

func TestUnknownActionRejected(t *testing.T) {
	f := newApprovalFixture(t)

	_, _, err := f.svc.SubmitAction(context.Background(), f.pendingToken(t), "escalate", "")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "INVALID_ACTION"))
}

func TestCancelChainSkipsDecidedSteps(t *testing.T) {
	f := newApprovalFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.SubmitAction(ctx, f.pendingToken(t), ActionApprove, "")
	require.NoError(t, err)

	require.NoError(t, f.svc.CancelChain(ctx, f.ticket.ID))

	steps, err := f.svc.ListSteps(ctx, f.ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusApproved, steps[0].Status)
	assert.Equal(t, domain.ApprovalStatusCancelled, steps[1].Status)
	assert.Equal(t, domain.ApprovalStatusCancelled, steps[2].Status)
}
