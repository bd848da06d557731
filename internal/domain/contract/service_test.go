package contract

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

type MockContractRepository struct {
	mock.Mock
}

func (m *MockContractRepository) Create(ctx context.Context, c *Contract) error {
	args := m.Called(ctx, c)
	if c != nil {
		c.ID = 1
	}
	return args.Error(0)
}

func (m *MockContractRepository) GetByID(ctx context.Context, id int64) (*Contract, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Contract), args.Error(1)
}

func (m *MockContractRepository) List(ctx context.Context, clientID int64, limit, offset int) ([]*Contract, int64, error) {
	args := m.Called(ctx, clientID, limit, offset)
	return args.Get(0).([]*Contract), args.Get(1).(int64), args.Error(2)
}

func (m *MockContractRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockContractRepository) Update(ctx context.Context, c *Contract) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockContractRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockContractRepository) TransitionSignature(ctx context.Context, id int64, from, to SignatureStatus, updates map[string]any) (bool, error) {
	args := m.Called(ctx, id, from, to, updates)
	return args.Bool(0), args.Error(1)
}

func (m *MockContractRepository) ResetSignature(ctx context.Context, id int64, actor string) error {
	args := m.Called(ctx, id, actor)
	return args.Error(0)
}

func (m *MockContractRepository) Cancel(ctx context.Context, id int64, actor string) (bool, error) {
	args := m.Called(ctx, id, actor)
	return args.Bool(0), args.Error(1)
}

func (m *MockContractRepository) LinkSuccessor(ctx context.Context, predecessorID, successorID int64, requireStatus RenewalStatus) (bool, error) {
	args := m.Called(ctx, predecessorID, successorID, requireStatus)
	return args.Bool(0), args.Error(1)
}

func (m *MockContractRepository) ListBillable(ctx context.Context, now time.Time) ([]*Contract, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]*Contract), args.Error(1)
}

func (m *MockContractRepository) AdvancePaymentDate(ctx context.Context, id int64, from, to time.Time) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockContractRepository) ListRenewalCandidates(ctx context.Context) ([]*Contract, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*Contract), args.Error(1)
}

func (m *MockContractRepository) WithTx(tx *gorm.DB) Repository { return m }

func awaitingContract(id int64) *Contract {
	return &Contract{
		ID:               id,
		ClientID:         7,
		Title:            "Fiber 300Mbps",
		Type:             TypeSubscription,
		SignatureStatus:  SignatureAwaiting,
		RenewalStatus:    RenewalManual,
		Value:            decimal.RequireFromString("300.00"),
		Currency:         "BRL",
		PaymentDay:       10,
		PaymentFrequency: "monthly",
	}
}

func TestSign_FromAwaiting(t *testing.T) {
	repo := new(MockContractRepository)
	svc := NewService(repo)

	c := awaitingContract(1)
	signed := awaitingContract(1)
	signed.SignatureStatus = SignatureSigned
	signed.SignatureHash = sql.NullString{String: "abc123", Valid: true}

	repo.On("GetByID", mock.Anything, int64(1)).Return(c, nil).Once()
	repo.On("TransitionSignature", mock.Anything, int64(1), SignatureAwaiting, SignatureSigned, mock.Anything).Return(true, nil)
	repo.On("GetByID", mock.Anything, int64(1)).Return(signed, nil).Once()

	got, err := svc.Sign(context.Background(), 1, "abc123", "", "operator")
	assert.NoError(t, err)
	assert.Equal(t, SignatureSigned, got.SignatureStatus)
	repo.AssertExpectations(t)
}

func TestSign_RequiresHash(t *testing.T) {
	repo := new(MockContractRepository)
	svc := NewService(repo)

	_, err := svc.Sign(context.Background(), 1, "", "", "operator")
	assert.ErrorIs(t, err, ErrSignatureRequired)
	repo.AssertNotCalled(t, "TransitionSignature")
}

func TestSign_Twice_InvalidTransition(t *testing.T) {
	repo := new(MockContractRepository)
	svc := NewService(repo)

	signed := awaitingContract(1)
	signed.SignatureStatus = SignatureSigned

	repo.On("GetByID", mock.Anything, int64(1)).Return(signed, nil)
	repo.On("TransitionSignature", mock.Anything, int64(1), SignatureAwaiting, SignatureSigned, mock.Anything).Return(false, nil)

	_, err := svc.Sign(context.Background(), 1, "abc123", "", "operator")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRelease_BeforeSign_InvalidTransition(t *testing.T) {
	repo := new(MockContractRepository)
	svc := NewService(repo)

	repo.On("GetByID", mock.Anything, int64(1)).Return(awaitingContract(1), nil)
	repo.On("TransitionSignature", mock.Anything, int64(1), SignatureSigned, SignatureReleased, mock.Anything).Return(false, nil)

	_, err := svc.Release(context.Background(), 1, "operator")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRelease_SeedsPaymentSchedule(t *testing.T) {
	repo := new(MockContractRepository)
	svc := NewService(repo)

	first := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)
	signed := awaitingContract(1)
	signed.SignatureStatus = SignatureSigned
	signed.FirstPaymentDate = sql.NullTime{Time: first, Valid: true}

	released := awaitingContract(1)
	released.SignatureStatus = SignatureReleased
	released.NextPaymentDate = sql.NullTime{Time: first, Valid: true}

	repo.On("GetByID", mock.Anything, int64(1)).Return(signed, nil).Once()
	repo.On("TransitionSignature", mock.Anything, int64(1), SignatureSigned, SignatureReleased,
		mock.MatchedBy(func(updates map[string]any) bool {
			next, ok := updates["next_payment_date"].(time.Time)
			return ok && next.Equal(first)
		})).Return(true, nil)
	repo.On("GetByID", mock.Anything, int64(1)).Return(released, nil).Once()

	got, err := svc.Release(context.Background(), 1, "operator")
	assert.NoError(t, err)
	assert.True(t, got.IsBillable())
	repo.AssertExpectations(t)
}

func TestSignThenRelease_Succeeds(t *testing.T) {
	repo := new(MockContractRepository)
	svc := NewService(repo)

	c := awaitingContract(1)
	repo.On("GetByID", mock.Anything, int64(1)).Return(c, nil)
	repo.On("TransitionSignature", mock.Anything, int64(1), SignatureAwaiting, SignatureSigned, mock.Anything).Return(true, nil)
	repo.On("TransitionSignature", mock.Anything, int64(1), SignatureSigned, SignatureReleased, mock.Anything).Return(true, nil)

	_, err := svc.Sign(context.Background(), 1, "abc123", "", "operator")
	assert.NoError(t, err)
	_, err = svc.Release(context.Background(), 1, "operator")
	assert.NoError(t, err)
}

func TestResetToAwaiting(t *testing.T) {
	repo := new(MockContractRepository)
	svc := NewService(repo)

	reset := awaitingContract(1)
	repo.On("ResetSignature", mock.Anything, int64(1), "admin").Return(nil)
	repo.On("GetByID", mock.Anything, int64(1)).Return(reset, nil)

	got, err := svc.ResetToAwaiting(context.Background(), 1, "admin")
	assert.NoError(t, err)
	assert.Equal(t, SignatureAwaiting, got.SignatureStatus)
	assert.False(t, got.SignatureHash.Valid)
}

func TestLinkSuccessor_CycleDetected(t *testing.T) {
	repo := new(MockContractRepository)
	svc := NewService(repo)

	// chain: 1 -> 2 -> 3; linking 3 -> 1 must be rejected
	c1 := awaitingContract(1)
	c1.NextContractID = sql.NullInt64{Int64: 2, Valid: true}
	c2 := awaitingContract(2)
	c2.NextContractID = sql.NullInt64{Int64: 3, Valid: true}
	c3 := awaitingContract(3)

	repo.On("GetByID", mock.Anything, int64(1)).Return(c1, nil)
	repo.On("GetByID", mock.Anything, int64(2)).Return(c2, nil)
	repo.On("GetByID", mock.Anything, int64(3)).Return(c3, nil)
	repo.On("Count", mock.Anything).Return(int64(3), nil)

	err := svc.LinkSuccessor(context.Background(), 3, 1)
	assert.ErrorIs(t, err, ErrCycleDetected)
	repo.AssertNotCalled(t, "LinkSuccessor")
}

func TestLinkSuccessor_Forward(t *testing.T) {
	repo := new(MockContractRepository)
	svc := NewService(repo)

	c1 := awaitingContract(1)
	c2 := awaitingContract(2)

	repo.On("GetByID", mock.Anything, int64(1)).Return(c1, nil)
	repo.On("GetByID", mock.Anything, int64(2)).Return(c2, nil)
	repo.On("Count", mock.Anything).Return(int64(2), nil)
	repo.On("LinkSuccessor", mock.Anything, int64(1), int64(2), RenewalStatus("")).Return(true, nil)

	err := svc.LinkSuccessor(context.Background(), 1, 2)
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestChain_TerminatesWithinContractCount(t *testing.T) {
	repo := new(MockContractRepository)
	svc := NewService(repo)

	c1 := awaitingContract(1)
	c1.NextContractID = sql.NullInt64{Int64: 2, Valid: true}
	c2 := awaitingContract(2)
	c2.NextContractID = sql.NullInt64{Int64: 3, Valid: true}
	c3 := awaitingContract(3)

	repo.On("Count", mock.Anything).Return(int64(3), nil)
	repo.On("GetByID", mock.Anything, int64(1)).Return(c1, nil)
	repo.On("GetByID", mock.Anything, int64(2)).Return(c2, nil)
	repo.On("GetByID", mock.Anything, int64(3)).Return(c3, nil)

	chain, err := svc.Chain(context.Background(), 1)
	assert.NoError(t, err)
	assert.Len(t, chain, 3)
}

func TestChain_CorruptedCycleHalts(t *testing.T) {
	repo := new(MockContractRepository)
	svc := NewService(repo)

	// 1 -> 2 -> 1 written behind the engine's back
	c1 := awaitingContract(1)
	c1.NextContractID = sql.NullInt64{Int64: 2, Valid: true}
	c2 := awaitingContract(2)
	c2.NextContractID = sql.NullInt64{Int64: 1, Valid: true}

	repo.On("Count", mock.Anything).Return(int64(2), nil)
	repo.On("GetByID", mock.Anything, int64(1)).Return(c1, nil)
	repo.On("GetByID", mock.Anything, int64(2)).Return(c2, nil)

	_, err := svc.Chain(context.Background(), 1)
	assert.ErrorIs(t, err, ErrCycleDetected)
}

func TestCreate_ValidatesPaymentDay(t *testing.T) {
	repo := new(MockContractRepository)
	svc := NewService(repo)

	req := &CreateContractRequest{
		ClientID:         7,
		Title:            "Fiber",
		Type:             TypeSubscription,
		Value:            "300.00",
		Currency:         "BRL",
		PaymentDay:       32,
		PaymentFrequency: "monthly",
	}
	_, err := svc.Create(context.Background(), req, "operator")
	assert.ErrorIs(t, err, ErrValidation)
	repo.AssertNotCalled(t, "Create")
}

func TestCreate_NegativeDiscountRejected(t *testing.T) {
	repo := new(MockContractRepository)
	svc := NewService(repo)

	req := &CreateContractRequest{
		ClientID:         7,
		Title:            "Fiber",
		Type:             TypeSubscription,
		Value:            "300.00",
		TotalDiscount:    "-10.00",
		Currency:         "BRL",
		PaymentDay:       10,
		PaymentFrequency: "monthly",
	}
	_, err := svc.Create(context.Background(), req, "operator")
	assert.ErrorIs(t, err, ErrValidation)
}
