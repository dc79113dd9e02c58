package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/target/mmk-auth/internal/domain/auth"
	apperrors "github.com/target/mmk-auth/internal/errors"
	"github.com/target/mmk-auth/internal/mocks"
	memory "github.com/target/mmk-auth/internal/mocks/auth"
	"github.com/target/mmk-auth/internal/ports"
	"github.com/target/mmk-auth/internal/testutil"
)

func newTestConfirmationService(
	t *testing.T,
	repo ports.ConfirmationRepository,
	clock *testutil.TestTimeProvider,
) *ConfirmationService {
	t.Helper()
	svc, err := NewConfirmationService(ConfirmationServiceOptions{
		Repo: repo,
		Config: ConfirmationConfig{
			Kind:       domainauth.KindConfirm,
			CodeLength: 6,
			Lifetime:   15 * time.Minute,
			MaxTries:   5,
			Now:        clock.Now,
		},
	})
	require.NoError(t, err)
	return svc
}

func TestNewConfirmationService_Validation(t *testing.T) {
	_, err := NewConfirmationService(ConfirmationServiceOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ConfirmationRepository is required")

	repo := memory.NewMemoryConfirmationRepository()
	tests := []struct {
		name  string
		cfg   ConfirmationConfig
		field string
	}{
		{"code length", ConfirmationConfig{Lifetime: time.Minute, MaxTries: 1}, "code_length"},
		{"lifetime", ConfirmationConfig{CodeLength: 6, MaxTries: 1}, "code_alive_seconds"},
		{"tries", ConfirmationConfig{CodeLength: 6, Lifetime: time.Minute}, "token_generate_max_tries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfirmationService(ConfirmationServiceOptions{Repo: repo, Config: tt.cfg})
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeConfigurationInvalid))
			assert.Equal(t, tt.field, apperrors.GetField(err))
		})
	}

	svc := MustNewConfirmationService(ConfirmationServiceOptions{
		Repo:   repo,
		Config: ConfirmationConfig{CodeLength: 6, Lifetime: time.Minute, MaxTries: 1},
	})
	assert.Equal(t, domainauth.KindConfirm, svc.Kind(), "kind defaults to confirm")
}

func TestConfirmationService_IssueOrResend_ReturnsSameActiveCode(t *testing.T) {
	clock := testutil.NewTestTimeProvider(testutil.TestTime())
	repo := memory.NewMemoryConfirmationRepository()
	svc := newTestConfirmationService(t, repo, clock)
	ctx := context.Background()

	first, err := svc.IssueOrResend(ctx, "u1", "a@b.com", "")
	require.NoError(t, err)
	assert.Len(t, first.Code, 6)
	assert.Equal(t, domainauth.RecipientEmail, first.Type)
	assert.Equal(t, clock.Now().Add(15*time.Minute), first.EndTime)

	clock.AddTime(time.Minute)
	second, err := svc.IssueOrResend(ctx, "u1", "a@b.com", "")
	require.NoError(t, err)
	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, repo.Len())
}

func TestConfirmationService_IssueOrResend_ResetsOutdatedAndCompleted(t *testing.T) {
	clock := testutil.NewTestTimeProvider(testutil.TestTime())
	repo := memory.NewMemoryConfirmationRepository()
	svc := newTestConfirmationService(t, repo, clock)
	ctx := context.Background()

	first, err := svc.IssueOrResend(ctx, "u1", "+1 (555) 555-0100", domainauth.RecipientPhone)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RecipientPhone, first.Type)

	clock.AddTime(20 * time.Minute)
	reset, err := svc.IssueOrResend(ctx, "u1", "+1 (555) 555-0100", domainauth.RecipientPhone)
	require.NoError(t, err)
	assert.Equal(t, first.ID, reset.ID, "reset happens in place")
	assert.Equal(t, clock.Now().Add(15*time.Minute), reset.EndTime)
	assert.True(t, reset.IsActive(clock.Now()))

	_, err = svc.VerifyAndComplete(ctx, "u1", "", reset.Code)
	require.NoError(t, err)

	again, err := svc.IssueOrResend(ctx, "u1", "+1 (555) 555-0100", domainauth.RecipientPhone)
	require.NoError(t, err)
	assert.Nil(t, again.CompleteTime)
	assert.Equal(t, 1, repo.Len())
}

func TestConfirmationService_IssueOrResend_InvalidRecipient(t *testing.T) {
	clock := testutil.NewTestTimeProvider(testutil.TestTime())
	svc := newTestConfirmationService(t, memory.NewMemoryConfirmationRepository(), clock)

	_, err := svc.IssueOrResend(context.Background(), "u1", "not-an-address", "")
	assert.True(t, apperrors.IsValidation(err))
}

func TestConfirmationService_IssueOrResend_RetriesInsertConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	clock := testutil.NewTestTimeProvider(testutil.TestTime())
	repo := mocks.NewMockConfirmationRepository(ctrl)
	svc := newTestConfirmationService(t, repo, clock)
	winner := &domainauth.Confirmation{
		ID: "c1", UserID: "u1", To: "a@b.com", Code: "111111",
		EndTime: clock.Now().Add(time.Minute),
	}

	repo.EXPECT().CodeInUse(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil)
	gomock.InOrder(
		repo.EXPECT().FindByUserAndRecipient(gomock.Any(), "u1", "a@b.com").
			Return(nil, apperrors.NotFound("confirmation not found")),
		repo.EXPECT().Insert(gomock.Any(), gomock.Any()).
			Return(nil, apperrors.Conflict("confirmation already exists")),
		repo.EXPECT().FindByUserAndRecipient(gomock.Any(), "u1", "a@b.com").
			Return(winner, nil),
	)

	got, err := svc.IssueOrResend(context.Background(), "u1", "a@b.com", domainauth.RecipientEmail)
	require.NoError(t, err)
	assert.Equal(t, "111111", got.Code)
}

func TestConfirmationService_IssueOrResend_ExhaustedWritesNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	clock := testutil.NewTestTimeProvider(testutil.TestTime())
	repo := mocks.NewMockConfirmationRepository(ctrl)
	svc := newTestConfirmationService(t, repo, clock)

	repo.EXPECT().FindByUserAndRecipient(gomock.Any(), "u1", "a@b.com").
		Return(nil, apperrors.NotFound("confirmation not found"))
	repo.EXPECT().CodeInUse(gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil).Times(5)
	// No Insert expectation: writing a record would fail the test.

	_, err := svc.IssueOrResend(context.Background(), "u1", "a@b.com", domainauth.RecipientEmail)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeGenerationExhausted))
}

func TestConfirmationService_Verify(t *testing.T) {
	clock := testutil.NewTestTimeProvider(testutil.TestTime())
	repo := memory.NewMemoryConfirmationRepository()
	svc := newTestConfirmationService(t, repo, clock)
	ctx := context.Background()

	issued, err := svc.IssueOrResend(ctx, "u1", "a@b.com", "")
	require.NoError(t, err)

	_, err = svc.Verify(ctx, "u1", "a@b.com", wrongCode(issued.Code))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeCodeNotActive))

	_, err = svc.Verify(ctx, "u2", "a@b.com", issued.Code)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeCodeNotActive), "codes are bound to their user")

	_, err = svc.Verify(ctx, "u1", "c@d.com", issued.Code)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeCodeNotActive), "codes are bound to their recipient")

	got, err := svc.Verify(ctx, "u1", "a@b.com", issued.Code)
	require.NoError(t, err)
	assert.Equal(t, issued.ID, got.ID)

	completed, err := svc.VerifyAndComplete(ctx, "u1", "a@b.com", issued.Code)
	require.NoError(t, err)
	require.NotNil(t, completed.CompleteTime)

	_, err = svc.VerifyAndComplete(ctx, "u1", "a@b.com", issued.Code)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeCodeNotActive), "a completed code cannot be replayed")
}

func TestConfirmationService_Verify_Outdated(t *testing.T) {
	clock := testutil.NewTestTimeProvider(testutil.TestTime())
	repo := memory.NewMemoryConfirmationRepository()
	svc := newTestConfirmationService(t, repo, clock)
	ctx := context.Background()

	issued, err := svc.IssueOrResend(ctx, "u1", "a@b.com", "")
	require.NoError(t, err)

	clock.AddTime(15 * time.Minute)
	_, err = svc.Verify(ctx, "u1", "a@b.com", issued.Code)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeCodeOutdated))

	_, err = svc.VerifyAndComplete(ctx, "u1", "", issued.Code)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeCodeOutdated))
}

func TestConfirmationService_Complete_RechecksExpiry(t *testing.T) {
	clock := testutil.NewTestTimeProvider(testutil.TestTime())
	repo := memory.NewMemoryConfirmationRepository()
	svc := newTestConfirmationService(t, repo, clock)
	ctx := context.Background()

	issued, err := svc.IssueOrResend(ctx, "u1", "a@b.com", "")
	require.NoError(t, err)
	verified, err := svc.Verify(ctx, "u1", "a@b.com", issued.Code)
	require.NoError(t, err)

	// The record expires between verify and complete.
	clock.AddTime(16 * time.Minute)
	err = svc.Complete(ctx, verified)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeCodeOutdated))
	assert.Nil(t, verified.CompleteTime)
}

func TestConfirmationService_Complete_LosesRace(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	clock := testutil.NewTestTimeProvider(testutil.TestTime())
	repo := mocks.NewMockConfirmationRepository(ctrl)
	svc := newTestConfirmationService(t, repo, clock)
	c := &domainauth.Confirmation{ID: "c1", UserID: "u1", EndTime: clock.Now().Add(time.Minute)}

	repo.EXPECT().MarkCompleted(gomock.Any(), "c1", clock.Now()).Return(false, nil)
	err := svc.Complete(context.Background(), c)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeCodeNotActive))

	boom := errors.New("db down")
	repo.EXPECT().MarkCompleted(gomock.Any(), "c1", clock.Now()).Return(false, boom)
	assert.ErrorIs(t, svc.Complete(context.Background(), c), boom)
}

func wrongCode(code string) string {
	if code == "000000" {
		return "000001"
	}
	return "000000"
}
