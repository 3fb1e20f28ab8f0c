package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/approval-service/internal/auth"
	"github.com/spec-kit/approval-service/internal/classifier"
	"github.com/spec-kit/approval-service/internal/domain"
	"github.com/spec-kit/approval-service/internal/events"
	"github.com/spec-kit/approval-service/internal/lock"
	apperrors "github.com/spec-kit/approval-service/pkg/util"
)

type ticketFixture struct {
	tickets    *fakeTicketRepo
	approvals  *fakeApprovalRepo
	categories *fakeCategoryRepo
	history    *fakeHistoryRepo
	requested  *eventRecorder
	svc        *TicketService
	approval   *ApprovalService
	user       *domain.User
	admin      *domain.User
	software   *domain.Category
	hardware   *domain.Category
}

func newTicketFixture(t *testing.T, withCategories bool) *ticketFixture {
	t.Helper()
	ctx := context.Background()

	f := &ticketFixture{
		tickets:    newFakeTicketRepo(),
		approvals:  newFakeApprovalRepo(),
		categories: newFakeCategoryRepo(),
		history:    newFakeHistoryRepo(),
		requested:  &eventRecorder{},
	}
	users := newFakeUserRepo()
	members := newFakeTeamMemberRepo()

	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.Subscribe(events.EventApprovalRequested, f.requested.handler)

	f.user = &domain.User{Name: "John Employee", Email: "john@company.com"}
	require.NoError(t, users.Create(ctx, f.user))
	f.admin = &domain.User{Name: "Admin", Email: "admin@company.com", IsAdmin: true}
	require.NoError(t, users.Create(ctx, f.admin))

	if withCategories {
		f.software = &domain.Category{
			Name:        "Software Installation",
			Description: "Software installation and licensing requests",
			Keywords:    "install, software, license, office",
			Approvers:   "lead@company.com:Team Lead | manager@company.com:IT Manager",
		}
		require.NoError(t, f.categories.Create(ctx, f.software))
		f.hardware = &domain.Category{
			Name:        "Hardware Request",
			Description: "Hardware equipment requests",
			Keywords:    "laptop, monitor, keyboard, hardware",
			Approvers:   "lead@company.com:Team Lead | procurement@company.com:Procurement",
		}
		require.NoError(t, f.categories.Create(ctx, f.hardware))
	}

	locks := lock.NewKeyedMutex()
	f.approval = NewApprovalService(approvalTestConfig(), ApprovalDependencies{
		TicketRepo:   f.tickets,
		ApprovalRepo: f.approvals,
		CategoryRepo: f.categories,
		UserRepo:     users,
		HistoryRepo:  f.history,
		Assignment:   NewAssignmentService(f.tickets, members),
		Dispatcher:   dispatcher,
		Codec:        auth.NewApprovalTokenCodec("test-secret"),
		Locks:        locks,
	})
	f.svc = NewTicketService(TicketDependencies{
		TicketRepo:   f.tickets,
		CategoryRepo: f.categories,
		HistoryRepo:  f.history,
		Classifier:   classifier.New(classifier.Config{}),
		Approvals:    f.approval,
		Dispatcher:   dispatcher,
		Locks:        locks,
	})
	return f
}

func TestCreateClassifiesAndBuildsChain(t *testing.T) {
	f := newTicketFixture(t, true)
	ctx := context.Background()

	ticket, err := f.svc.Create(ctx, f.user, "Please install the new office software license")
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusPendingApproval, ticket.Status)
	require.NotNil(t, ticket.CategoryID)
	assert.Equal(t, f.software.ID, *ticket.CategoryID)

	steps, err := f.approval.ListSteps(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, domain.ApprovalStatusPending, steps[0].Status)
	assert.Equal(t, domain.ApprovalStatusWaiting, steps[1].Status)

	assert.Contains(t, f.history.actions(ticket.ID), domain.HistoryActionCreated)
	require.Len(t, f.requested.all(), 1)
}

func TestCreateRejectsShortDescription(t *testing.T) {
	f := newTicketFixture(t, true)

	_, err := f.svc.Create(context.Background(), f.user, "too short")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "VALIDATION_FAILED"))
}

func TestCreateWithoutCategoriesIsUncategorized(t *testing.T) {
	f := newTicketFixture(t, false)
	ctx := context.Background()

	ticket, err := f.svc.Create(ctx, f.user, "Please install the new office software license")
	require.NoError(t, err)

	assert.Nil(t, ticket.CategoryID)
	assert.Equal(t, domain.TicketStatusPendingApproval, ticket.Status)

	steps, err := f.approval.ListSteps(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, steps)
	assert.Empty(t, f.requested.all())
}

func TestEditReclassifiesAndRebuildsChain(t *testing.T) {
	f := newTicketFixture(t, true)
	ctx := context.Background()

	ticket, err := f.svc.Create(ctx, f.user, "Please install the new office software license")
	require.NoError(t, err)
	require.Equal(t, f.software.ID, *ticket.CategoryID)

	edited, err := f.svc.Edit(ctx, f.user, ticket.ID, "My laptop monitor and keyboard need replacing")
	require.NoError(t, err)
	require.NotNil(t, edited.CategoryID)
	assert.Equal(t, f.hardware.ID, *edited.CategoryID)

	steps, err := f.approval.ListSteps(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "procurement@company.com", steps[1].ApproverEmail)
	assert.Equal(t, domain.ApprovalStatusPending, steps[0].Status)

	// The rebuilt chain re-notified level 1.
	require.Len(t, f.requested.all(), 2)
	assert.Contains(t, f.history.actions(ticket.ID), domain.HistoryActionEdited)
}

func TestEditRefusedOnceApprovalBegan(t *testing.T) {
	f := newTicketFixture(t, true)
	ctx := context.Background()

	ticket, err := f.svc.Create(ctx, f.user, "Please install the new office software license")
	require.NoError(t, err)

	token := f.requested.all()[0].Payload.(events.ApprovalRequestedPayload).Token
	_, _, err = f.approval.SubmitAction(ctx, token, ActionApprove, "")
	require.NoError(t, err)

	_, err = f.svc.Edit(ctx, f.user, ticket.ID, "A totally different request description")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "CONFLICT"))
}

func TestEditForbiddenForOtherUsers(t *testing.T) {
	f := newTicketFixture(t, true)
	ctx := context.Background()

	ticket, err := f.svc.Create(ctx, f.user, "Please install the new office software license")
	require.NoError(t, err)

	other := &domain.User{ID: "user-99", Name: "Other"}
	_, err = f.svc.Edit(ctx, other, ticket.ID, "Trying to hijack someone else's ticket")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "FORBIDDEN"))
}

func TestCancelBeforeApproval(t *testing.T) {
	f := newTicketFixture(t, true)
	ctx := context.Background()

	ticket, err := f.svc.Create(ctx, f.user, "Please install the new office software license")
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, f.user, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusCancelled, cancelled.Status)

	steps, err := f.approval.ListSteps(ctx, ticket.ID)
	require.NoError(t, err)
	for _, step := range steps {
		assert.Equal(t, domain.ApprovalStatusCancelled, step.Status)
	}
	assert.Contains(t, f.history.actions(ticket.ID), domain.HistoryActionCancelled)
}

func TestCancelRefusedOnceApprovalBegan(t *testing.T) {
	f := newTicketFixture(t, true)
	ctx := context.Background()

	ticket, err := f.svc.Create(ctx, f.user, "Please install the new office software license")
	require.NoError(t, err)

	token := f.requested.all()[0].Payload.(events.ApprovalRequestedPayload).Token
	_, _, err = f.approval.SubmitAction(ctx, token, ActionApprove, "")
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, f.user, ticket.ID)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "CONFLICT"))
}

func TestUpdateStatusValidatesTransition(t *testing.T) {
	f := newTicketFixture(t, true)
	ctx := context.Background()

	ticket, err := f.svc.Create(ctx, f.user, "Please install the new office software license")
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, ticket.ID, domain.TicketStatusApproved, "")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "VALIDATION_FAILED"))

	updated, err := f.svc.UpdateStatus(ctx, ticket.ID, domain.TicketStatusCompleted, "installed version 2024")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusCompleted, updated.Status)
	require.NotNil(t, updated.ResolutionNote)
	assert.Equal(t, "installed version 2024", *updated.ResolutionNote)
	assert.Contains(t, f.history.actions(ticket.ID), domain.HistoryActionStatusChanged)
}

func TestGetEnforcesOwnership(t *testing.T) {
	f := newTicketFixture(t, true)
	ctx := context.Background()

	ticket, err := f.svc.Create(ctx, f.user, "Please install the new office software license")
	require.NoError(t, err)

	other := &domain.User{ID: "user-99", Name: "Other"}
	_, err = f.svc.Get(ctx, other, ticket.ID)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "FORBIDDEN"))

	// The admin sees everything, including chain and history.
	detail, err := f.svc.Get(ctx, f.admin, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Approvals, 2)
	assert.NotEmpty(t, detail.History)
}
