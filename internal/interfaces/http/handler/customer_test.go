package handler

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"strconv"
	"testing"

	customerapp "github.com/customersvc/backend/internal/application/customer"
	"github.com/customersvc/backend/internal/domain/customer"
	"github.com/customersvc/backend/internal/domain/shared"
	"github.com/customersvc/backend/internal/infrastructure/logger"
	"github.com/customersvc/backend/internal/infrastructure/persistence"
	"github.com/customersvc/backend/internal/interfaces/http/dto"
	"github.com/customersvc/backend/internal/interfaces/http/middleware"
	"github.com/customersvc/backend/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// MockCustomerRepository is a mock implementation of customer.Repository
type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) Save(ctx context.Context, c *customer.Customer, isNew bool) (*customer.Customer, error) {
	args := m.Called(ctx, c, isNew)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func (m *MockCustomerRepository) FindByID(ctx context.Context, id int64) (*customer.Customer, bool, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*customer.Customer), args.Bool(1), args.Error(2)
}

func (m *MockCustomerRepository) FindAll(ctx context.Context) iter.Seq2[customer.Customer, error] {
	args := m.Called(ctx)
	return args.Get(0).(iter.Seq2[customer.Customer, error])
}

// customerRouter mounts GetByID behind the request ID and logging middleware
// the server uses, logging into an observer at debug level.
func customerRouter(repo customer.Repository) (*gin.Engine, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)

	h := NewCustomerHandler(customerapp.NewCustomerService(repo, nil, log))
	r := gin.New()
	r.Use(middleware.RequestID(), logger.GinMiddleware(log))
	r.GET("/customers/:id", h.GetByID)
	return r, logs
}

// sqliteCustomerRouter serves lookups from a fresh in-memory store
func sqliteCustomerRouter(t *testing.T) (*gin.Engine, *persistence.GormCustomerRepository) {
	t.Helper()
	repo := persistence.NewGormCustomerRepository(testutil.NewSQLiteDB(t))
	r, _ := customerRouter(repo)
	return r, repo
}

func TestCustomerHandler_ExistingCustomer(t *testing.T) {
	r, repo := sqliteCustomerRouter(t)
	_, err := repo.Save(context.Background(), &customer.Customer{ID: 1234, FirstName: "Test", LastName: "First"}, true)
	require.NoError(t, err)

	w := testutil.PerformRequest(r, http.MethodGet, "/customers/1234", nil,
		map[string]string{"Accept": "application/json"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `{"id":1234,"firstName":"Test","lastName":"First"}`, w.Body.String())
}

func TestCustomerHandler_NonExistentCustomer(t *testing.T) {
	r, _ := sqliteCustomerRouter(t)

	w := testutil.PerformRequest(r, http.MethodGet, "/customers/9999", nil, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestCustomerHandler_SavedRecordRoundTrips(t *testing.T) {
	r, repo := sqliteCustomerRouter(t)

	saved, err := repo.Save(context.Background(), &customer.Customer{FirstName: "Ada", LastName: "Lovelace"}, true)
	require.NoError(t, err)
	require.NotZero(t, saved.ID)

	w := testutil.PerformRequest(r, http.MethodGet, "/customers/"+itoa(saved.ID), nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":`+itoa(saved.ID)+`,"firstName":"Ada","lastName":"Lovelace"}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "isNew")
}

func TestCustomerHandler_RepeatedLookupsAreIdentical(t *testing.T) {
	r, repo := sqliteCustomerRouter(t)
	_, err := repo.Save(context.Background(), &customer.Customer{ID: 1234, FirstName: "Test", LastName: "First"}, false)
	require.NoError(t, err)

	first := testutil.PerformRequest(r, http.MethodGet, "/customers/1234", nil, nil)
	for range 3 {
		again := testutil.PerformRequest(r, http.MethodGet, "/customers/1234", nil, nil)
		assert.Equal(t, first.Code, again.Code)
		assert.Equal(t, first.Body.Bytes(), again.Body.Bytes())
	}

	missing := testutil.PerformRequest(r, http.MethodGet, "/customers/9999", nil, nil)
	missingAgain := testutil.PerformRequest(r, http.MethodGet, "/customers/9999", nil, nil)
	assert.Equal(t, missing.Body.Bytes(), missingAgain.Body.Bytes())
}

func TestCustomerHandler_UnstoredIDsAreNotFound(t *testing.T) {
	r, _ := sqliteCustomerRouter(t)

	for _, id := range []string{"0", "-1", "9223372036854775807"} {
		w := testutil.PerformRequest(r, http.MethodGet, "/customers/"+id, nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, id)
	}
}

func TestCustomerHandler_MalformedID(t *testing.T) {
	for _, id := range []string{"abc", "12.5", "1e3", "9223372036854775808"} {
		t.Run(id, func(t *testing.T) {
			repo := new(MockCustomerRepository)
			r, logs := customerRouter(repo)

			w := testutil.PerformRequest(r, http.MethodGet, "/customers/"+id, nil,
				map[string]string{middleware.RequestIDHeader: "req-bad"})

			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeEnvelope(t, w)
			assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
			assert.Equal(t, "req-bad", resp.Error.RequestID)

			repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)

			rejected := logs.FilterMessage("Rejected customer id").All()
			require.Len(t, rejected, 1)
			assert.Equal(t, zapcore.DebugLevel, rejected[0].Level)
		})
	}
}

func TestCustomerHandler_StoreFailure(t *testing.T) {
	repo := new(MockCustomerRepository)
	repo.On("FindByID", mock.Anything, int64(42)).Return(nil, false, errors.New("connection reset by peer"))
	r, logs := customerRouter(repo)

	w := testutil.PerformRequest(r, http.MethodGet, "/customers/42", nil, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeEnvelope(t, w)
	assert.Equal(t, dto.ErrCodeInternal, resp.Error.Code)
	assert.NotEmpty(t, resp.Error.RequestID)
	assert.Equal(t, "An unexpected error occurred", resp.Error.Message)
	assert.NotContains(t, w.Body.String(), "connection reset")

	failures := logs.FilterMessage("Failed to load customer").All()
	require.Len(t, failures, 1)
	assert.Equal(t, zapcore.ErrorLevel, failures[0].Level)
	assert.Equal(t, int64(42), failures[0].ContextMap()["customer_id"])
	repo.AssertExpectations(t)
}

func TestCustomerHandler_StoreDomainError(t *testing.T) {
	repo := new(MockCustomerRepository)
	repo.On("FindByID", mock.Anything, int64(42)).
		Return(nil, false, shared.ErrInvalidInput.Wrap(errors.New("corrupt row")))
	r, _ := customerRouter(repo)

	w := testutil.PerformRequest(r, http.MethodGet, "/customers/42", nil, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeEnvelope(t, w)
	assert.Equal(t, dto.ErrCodeInvalidInput, resp.Error.Code)
	assert.Equal(t, "Invalid input provided", resp.Error.Message)
	assert.NotContains(t, w.Body.String(), "corrupt row")
}

func TestCustomerHandler_NotFoundIsNotLoggedAsError(t *testing.T) {
	repo := new(MockCustomerRepository)
	repo.On("FindByID", mock.Anything, int64(7)).Return(nil, false, nil)
	r, logs := customerRouter(repo)

	w := testutil.PerformRequest(r, http.MethodGet, "/customers/7", nil, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, logs.FilterLevelExact(zapcore.ErrorLevel).All())
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
