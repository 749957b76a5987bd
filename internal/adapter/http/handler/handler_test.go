package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"paynow-terminal-gateway/internal/adapter/http/dto"
	"paynow-terminal-gateway/internal/core/domain"
	"paynow-terminal-gateway/internal/core/ports"
	"paynow-terminal-gateway/internal/core/ports/mocks"
	"paynow-terminal-gateway/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func postJSON(t *testing.T, body interface{}) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	c.Request.Header.Set("Content-Type", "application/json")
	return w, c
}

// --- Auth Handler Tests ---

func TestToken_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockToken := mocks.NewMockTokenService(ctrl)
	h := NewAuthHandler(mockToken, "op-access-key")

	expiry := time.Now().Add(12 * time.Hour)
	mockToken.EXPECT().Generate("pos-01").Return("signed.jwt.token", expiry, nil)

	w, c := postJSON(t, dto.TokenRequest{AccessKey: "op-access-key", OperatorID: "pos-01"})
	h.Token(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "signed.jwt.token", data["token"])
	assert.Equal(t, float64(expiry.Unix()), data["expiry"])
}

func TestToken_WrongAccessKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewAuthHandler(mocks.NewMockTokenService(ctrl), "op-access-key")

	w, c := postJSON(t, dto.TokenRequest{AccessKey: "wrong", OperatorID: "pos-01"})
	h.Token(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "AUTH_003", resp["error_code"])
}

func TestToken_UnconfiguredKeyNeverMatches(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewAuthHandler(mocks.NewMockTokenService(ctrl), "")

	w, c := postJSON(t, dto.TokenRequest{AccessKey: "", OperatorID: "pos-01"})
	h.Token(c)

	// Binding rejects the empty access key before the comparison runs.
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestToken_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewAuthHandler(mocks.NewMockTokenService(ctrl), "op-access-key")

	w, c := postJSON(t, map[string]string{})
	h.Token(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Intent Handler Tests ---

func testIntent() *domain.PaymentIntent {
	now := time.Now().UTC()
	return &domain.PaymentIntent{
		ID:          uuid.New(),
		TerminalID:  "T-001",
		AmountCents: 1550,
		Currency:    "SGD",
		Reference:   "ORDER-42",
		Payload:     "000201010212...",
		QRImage:     []byte{0x89, 0x50, 0x4E, 0x47},
		QRMediaType: "image/png",
		Status:      domain.IntentStatusPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(15 * time.Minute),
	}
}

func TestIntentCreate_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDispatcher := mocks.NewMockDispatcher(ctrl)
	h := NewIntentHandler(mockDispatcher, mocks.NewMockIntentStore(ctrl))

	intent := testIntent()
	mockDispatcher.EXPECT().CreateIntent(gomock.Any(), ports.CreateIntentRequest{
		TerminalID:  "T-001",
		AmountCents: 1550,
		Reference:   "ORDER-42",
	}).Return(intent, nil)

	w, c := postJSON(t, dto.CreateIntentRequest{AmountCents: 1550, Reference: "ORDER-42"})
	c.Params = gin.Params{{Key: "id", Value: "T-001"}}
	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, intent.ID.String(), data["id"])
	assert.Equal(t, "PENDING", data["status"])
	assert.Equal(t, "iVBORw==", data["qr_image"], "QR bytes are base64-encoded")
	assert.Equal(t, "image/png", data["qr_media_type"])
}

func TestIntentCreate_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewIntentHandler(mocks.NewMockDispatcher(ctrl), mocks.NewMockIntentStore(ctrl))

	w, c := postJSON(t, dto.CreateIntentRequest{AmountCents: 0, Reference: "R"})
	c.Params = gin.Params{{Key: "id", Value: "T-001"}}
	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIntentCreate_UnknownTerminal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDispatcher := mocks.NewMockDispatcher(ctrl)
	h := NewIntentHandler(mockDispatcher, mocks.NewMockIntentStore(ctrl))

	mockDispatcher.EXPECT().CreateIntent(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrTerminalNotFound())

	w, c := postJSON(t, dto.CreateIntentRequest{AmountCents: 100, Reference: "R"})
	c.Params = gin.Params{{Key: "id", Value: "T-404"}}
	h.Create(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "DIR_001", resp["error_code"])
}

func TestIntentResolve_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDispatcher := mocks.NewMockDispatcher(ctrl)
	h := NewIntentHandler(mockDispatcher, mocks.NewMockIntentStore(ctrl))

	intent := testIntent()
	intent.Status = domain.IntentStatusPaid
	resolvedAt := time.Now().UTC()
	intent.ResolvedAt = &resolvedAt

	mockDispatcher.EXPECT().Resolve(gomock.Any(), intent.ID, domain.IntentStatusPaid).
		Return(intent, nil)

	w, c := postJSON(t, dto.ResolveIntentRequest{Outcome: "PAID"})
	c.Params = gin.Params{{Key: "id", Value: intent.ID.String()}}
	h.Resolve(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "PAID", data["status"])
	assert.NotEmpty(t, data["resolved_at"])
}

func TestIntentResolve_Conflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDispatcher := mocks.NewMockDispatcher(ctrl)
	h := NewIntentHandler(mockDispatcher, mocks.NewMockIntentStore(ctrl))

	id := uuid.New()
	mockDispatcher.EXPECT().Resolve(gomock.Any(), id, domain.IntentStatusCanceled).
		Return(nil, apperror.ErrIntentAlreadyResolved("PAID"))

	w, c := postJSON(t, dto.ResolveIntentRequest{Outcome: "CANCELED"})
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	h.Resolve(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INT_002", resp["error_code"])
}

func TestIntentResolve_BadUUID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewIntentHandler(mocks.NewMockDispatcher(ctrl), mocks.NewMockIntentStore(ctrl))

	w, c := postJSON(t, dto.ResolveIntentRequest{Outcome: "PAID"})
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}
	h.Resolve(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIntentResolve_OutcomeOutsideEnum(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewIntentHandler(mocks.NewMockDispatcher(ctrl), mocks.NewMockIntentStore(ctrl))

	w, c := postJSON(t, dto.ResolveIntentRequest{Outcome: "EXPIRED"})
	c.Params = gin.Params{{Key: "id", Value: uuid.New().String()}}
	h.Resolve(c)

	// Expiry belongs to the sweeper; operators may only settle or void.
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIntentGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockIntentStore(ctrl)
	h := NewIntentHandler(mocks.NewMockDispatcher(ctrl), mockStore)

	id := uuid.New()
	mockStore.EXPECT().Get(gomock.Any(), id).Return(nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	h.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- Display Handler Tests ---

type fakeSubscription struct {
	terminalID string
	ch         chan domain.TerminalSnapshot
}

func (s *fakeSubscription) Snapshots() <-chan domain.TerminalSnapshot { return s.ch }
func (s *fakeSubscription) TerminalID() string                       { return s.terminalID }

// closeNotifyRecorder implements http.CloseNotifier, which gin's
// Context.Stream requires of the underlying writer.
type closeNotifyRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func newCloseNotifyRecorder() *closeNotifyRecorder {
	return &closeNotifyRecorder{httptest.NewRecorder(), make(chan bool, 1)}
}

func (r *closeNotifyRecorder) CloseNotify() <-chan bool { return r.closed }

func TestDisplayStream_ReplayThenClose(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDispatcher := mocks.NewMockDispatcher(ctrl)
	h := NewDisplayHandler(mockDispatcher, time.Minute, zerolog.Nop())

	intent := testIntent()
	sub := &fakeSubscription{terminalID: "T-001", ch: make(chan domain.TerminalSnapshot, 2)}
	sub.ch <- domain.NewSnapshot("T-001", intent, time.Now().UTC())
	close(sub.ch)

	mockDispatcher.EXPECT().Attach(gomock.Any(), "T-001").Return(sub, nil)
	mockDispatcher.EXPECT().Detach(sub)

	w := newCloseNotifyRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/terminals/T-001/events", nil)
	c.Params = gin.Params{{Key: "id", Value: "T-001"}}

	h.Stream(c)

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "event:snapshot")
	assert.Contains(t, body, intent.ID.String())
}

func TestDisplayStream_ResolvedEventCarriesStatusOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDispatcher := mocks.NewMockDispatcher(ctrl)
	h := NewDisplayHandler(mockDispatcher, time.Minute, zerolog.Nop())

	intent := testIntent()
	intent.Status = domain.IntentStatusPaid
	resolvedAt := time.Now().UTC()
	intent.ResolvedAt = &resolvedAt

	sub := &fakeSubscription{terminalID: "T-001", ch: make(chan domain.TerminalSnapshot, 2)}
	sub.ch <- domain.NewSnapshot("T-001", intent, time.Now().UTC())
	close(sub.ch)

	mockDispatcher.EXPECT().Attach(gomock.Any(), "T-001").Return(sub, nil)
	mockDispatcher.EXPECT().Detach(sub)

	w := newCloseNotifyRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/terminals/T-001/events", nil)
	c.Params = gin.Params{{Key: "id", Value: "T-001"}}

	h.Stream(c)

	body := w.Body.String()
	assert.Contains(t, body, `"status":"PAID"`)
	assert.Contains(t, body, intent.ID.String())
	assert.Contains(t, body, `"resolved_at"`)
	assert.NotContains(t, body, intent.Payload, "closed sales do not re-push the payable payload")
	assert.NotContains(t, body, `"qr_image"`)
	assert.NotContains(t, body, `"amount_cents"`)
}

func TestDisplayStream_AttachFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDispatcher := mocks.NewMockDispatcher(ctrl)
	h := NewDisplayHandler(mockDispatcher, time.Minute, zerolog.Nop())

	mockDispatcher.EXPECT().Attach(gomock.Any(), "T-404").
		Return(nil, apperror.ErrTerminalNotFound())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/terminals/T-404/events", nil)
	c.Params = gin.Params{{Key: "id", Value: "T-404"}}

	h.Stream(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDisplayStream_ClientDisconnect(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDispatcher := mocks.NewMockDispatcher(ctrl)
	h := NewDisplayHandler(mockDispatcher, time.Minute, zerolog.Nop())

	sub := &fakeSubscription{terminalID: "T-001", ch: make(chan domain.TerminalSnapshot, 1)}
	sub.ch <- domain.NewSnapshot("T-001", nil, time.Now().UTC())

	mockDispatcher.EXPECT().Attach(gomock.Any(), "T-001").Return(sub, nil)
	mockDispatcher.EXPECT().Detach(sub)

	ctx, cancel := context.WithCancel(context.Background())
	w := newCloseNotifyRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/terminals/T-001/events", nil).WithContext(ctx)
	c.Params = gin.Params{{Key: "id", Value: "T-001"}}

	done := make(chan struct{})
	go func() {
		h.Stream(c)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream did not end after client disconnect")
	}
}

// --- Health Check Tests ---

type fakeChecker struct {
	name string
	err  error
}

func (f fakeChecker) Ping(context.Context) error { return f.err }
func (f fakeChecker) Name() string               { return f.name }

func TestHealthCheck_AllHealthy(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(fakeChecker{name: "postgresql"}, fakeChecker{name: "redis"})(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
}

func TestHealthCheck_Degraded(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(fakeChecker{name: "postgresql"}, fakeChecker{name: "redis", err: errors.New("connection refused")})(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"status":"degraded"`)
	assert.Contains(t, body, "connection refused")
}
