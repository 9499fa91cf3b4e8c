package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"interiorly/internal/models"
	"interiorly/internal/services"
	"interiorly/internal/utils"
)

type stubAuthService struct {
	sendErr   error
	verifyErr error
}

func (s *stubAuthService) SendOTP(_ context.Context, req *models.SendOTPRequest) (*models.SendOTPResponse, error) {
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	return &models.SendOTPResponse{Message: "OTP sent", DeliveredVia: []string{"mobile", "email"}}, nil
}

func (s *stubAuthService) VerifyOTP(_ context.Context, req *models.VerifyOTPRequest) (*models.AuthResponse, error) {
	if s.verifyErr != nil {
		return nil, s.verifyErr
	}
	return &models.AuthResponse{Token: "token", User: models.PublicUser{ID: "u1", Phone: req.Phone, Role: models.RoleUser}}, nil
}

type stubAdminAuthService struct {
	verifyErr error
	lastMeta  models.RequestMeta
}

func (s *stubAdminAuthService) Login(context.Context, *models.AdminLoginRequest) (*models.AdminLoginResponse, error) {
	return &models.AdminLoginResponse{OTPRequired: true, DeliveredVia: []string{"email"}}, nil
}

func (s *stubAdminAuthService) VerifyOTP(_ context.Context, req *models.AdminVerifyOTPRequest, meta models.RequestMeta) (*models.AdminAuthResponse, error) {
	s.lastMeta = meta
	if s.verifyErr != nil {
		return nil, s.verifyErr
	}
	return &models.AdminAuthResponse{Token: "admin-token", Admin: models.PublicAdmin{Email: req.Email}, MaxAge: 604800}, nil
}

func (s *stubAdminAuthService) Logout(context.Context, primitive.ObjectID, models.RequestMeta) error {
	return nil
}

func (s *stubAdminAuthService) GetProfile(_ context.Context, id primitive.ObjectID) (*models.PublicAdmin, error) {
	return &models.PublicAdmin{ID: id.Hex(), Email: "admin@example.com", Role: models.RoleAdmin}, nil
}

type stubStatsService struct{}

func (stubStatsService) GetStats(_ context.Context, from, to *time.Time) (*models.BookingStats, error) {
	stats := &models.BookingStats{ByStatus: map[string]int64{"pending": 2}, TotalUsers: 3}
	if from != nil {
		n := int64(1)
		stats.NewUsers = &n
	}
	return stats, nil
}

func (stubStatsService) RunUserGauge(context.Context, time.Duration) {}

type stubBookingService struct {
	createErr error
	updateErr error
	deleteErr error
	lastQuery models.BookingQuery
}

func (s *stubBookingService) GetBlockedSlots(_ context.Context, date string) ([]string, error) {
	if date == "" {
		return []string{}, nil
	}
	return []string{"10:00", "14:00"}, nil
}

func (s *stubBookingService) CreateBooking(_ context.Context, userID primitive.ObjectID, req *models.CreateBookingRequest) (*models.Booking, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &models.Booking{ID: primitive.NewObjectID(), UserID: userID, Date: req.Date, Time: req.Time, City: req.City, Status: models.BookingStatusPending}, nil
}

func (s *stubBookingService) ListBookings(_ context.Context, q models.BookingQuery) (*models.BookingPage, error) {
	s.lastQuery = q
	items := []models.Booking{{Date: "2025-06-01", Time: "10:00", Status: models.BookingStatusPending}}
	page := &models.BookingPage{Items: items, Total: 1}
	if q.Paginated() {
		page.Page, page.Limit = 1, 20
	}
	return page, nil
}

func (s *stubBookingService) ListMyBookings(context.Context, primitive.ObjectID) ([]models.Booking, error) {
	return []models.Booking{}, nil
}

func (s *stubBookingService) UpdateStatus(_ context.Context, id primitive.ObjectID, req *models.UpdateBookingStatusRequest) (*models.Booking, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return &models.Booking{ID: id, Status: req.Status}, nil
}

func (s *stubBookingService) DeleteBooking(context.Context, primitive.ObjectID) error {
	return s.deleteErr
}

func withClaims(r *http.Request, id primitive.ObjectID) *http.Request {
	claims := &utils.Claims{ID: id.Hex(), Role: models.RoleUser}
	return r.WithContext(context.WithValue(r.Context(), utils.ClaimsContextKey, claims))
}

func jsonRequest(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestWriteServiceError(t *testing.T) {
	cases := []struct {
		err  error
		code int
		body string
	}{
		{fmt.Errorf("%w: city is required", services.ErrValidation), http.StatusBadRequest, `{"error":"validation failed: city is required"}`},
		{services.ErrSlotConflict, http.StatusConflict, `{"error":"this time slot is already booked"}`},
		{services.ErrEmailInUse, http.StatusConflict, ""},
		{fmt.Errorf("%w: booking", services.ErrNotFound), http.StatusNotFound, ""},
		{services.ErrInvalidCode, http.StatusBadRequest, `{"error":"invalid or expired code"}`},
		{services.ErrOTPExpired, http.StatusBadRequest, ""},
		{services.ErrInvalidCredentials, http.StatusUnauthorized, `{"error":"invalid credentials"}`},
		{services.ErrTooManyAttempts, http.StatusTooManyRequests, `{"error":"too many attempts, try again later"}`},
		{services.ErrDeliveryUnavailable, http.StatusServiceUnavailable, ""},
		{services.ErrSessionExpired, http.StatusUnauthorized, `{"error":"session expired"}`},
		{fmt.Errorf("%w: account no longer exists", services.ErrInvalidToken), http.StatusUnauthorized, `{"error":"invalid token"}`},
		{services.ErrForbidden, http.StatusForbidden, ""},
		{mongo.ErrClientDisconnected, http.StatusInternalServerError, `{"error":"Internal server error"}`},
		{errors.New("E11000 duplicate key error collection: bookings"), http.StatusInternalServerError, `{"error":"Internal server error"}`},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeServiceError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
		assert.Equal(t, tc.code, rec.Code, tc.err.Error())
		if tc.body != "" {
			assert.JSONEq(t, tc.body, rec.Body.String())
		}
	}
}

func TestSendOTPHandler(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})

	rec := httptest.NewRecorder()
	h.SendOTP(rec, jsonRequest(http.MethodPost, "/api/otp/send", `{"phone":"9876543210","email":"a@example.com"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"OTP sent","deliveredVia":["mobile","email"]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.SendOTP(rec, jsonRequest(http.MethodPost, "/api/otp/send", `{"phone":`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	NewAuthHandler(&stubAuthService{sendErr: services.ErrTooManyAttempts}).SendOTP(rec, jsonRequest(http.MethodPost, "/api/otp/send", `{"phone":"9876543210"}`))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestVerifyOTPHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewAuthHandler(&stubAuthService{}).VerifyOTP(rec, jsonRequest(http.MethodPost, "/api/otp/verify", `{"phone":"9876543210","otp":"123456"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token":"token"`)

	rec = httptest.NewRecorder()
	NewAuthHandler(&stubAuthService{verifyErr: services.ErrInvalidCode}).VerifyOTP(rec, jsonRequest(http.MethodPost, "/api/otp/verify", `{"phone":"9876543210","otp":"123456"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminVerifySetsCookie(t *testing.T) {
	for _, tc := range []struct {
		production bool
		secure     bool
		sameSite   http.SameSite
	}{
		{production: false, secure: false, sameSite: http.SameSiteLaxMode},
		{production: true, secure: true, sameSite: http.SameSiteNoneMode},
	} {
		auth := &stubAdminAuthService{}
		h := NewAdminHandler(auth, stubStatsService{}, tc.production, false)

		r := jsonRequest(http.MethodPost, "/api/admin/verify-otp", `{"email":"admin@example.com","otp":"123456"}`)
		r.RemoteAddr = "203.0.113.9:4000"
		r.Header.Set("User-Agent", "console/1.0")
		rec := httptest.NewRecorder()
		h.VerifyOTP(rec, r)

		require.Equal(t, http.StatusOK, rec.Code)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		cookie := cookies[0]
		assert.Equal(t, utils.AdminCookieName, cookie.Name)
		assert.Equal(t, "admin-token", cookie.Value)
		assert.Equal(t, 604800, cookie.MaxAge)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, tc.secure, cookie.Secure)
		assert.Equal(t, tc.sameSite, cookie.SameSite)

		assert.Equal(t, "203.0.113.9", auth.lastMeta.IP)
		assert.Equal(t, "console/1.0", auth.lastMeta.UserAgent)
	}
}

func TestAdminVerifyFailureSetsNoCookie(t *testing.T) {
	h := NewAdminHandler(&stubAdminAuthService{verifyErr: services.ErrTooManyAttempts}, stubStatsService{}, false, false)

	rec := httptest.NewRecorder()
	h.VerifyOTP(rec, jsonRequest(http.MethodPost, "/api/admin/verify-otp", `{"email":"admin@example.com","otp":"123456"}`))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestAdminLoginHandler(t *testing.T) {
	h := NewAdminHandler(&stubAdminAuthService{}, stubStatsService{}, false, false)

	rec := httptest.NewRecorder()
	h.Login(rec, jsonRequest(http.MethodPost, "/api/admin/login", `{"email":"admin@example.com","password":"pw"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"otpRequired":true,"deliveredVia":["email"]}`, rec.Body.String())
	assert.Empty(t, rec.Result().Cookies())
}

func TestAdminLogoutClearsCookie(t *testing.T) {
	h := NewAdminHandler(&stubAdminAuthService{}, stubStatsService{}, false, false)

	rec := httptest.NewRecorder()
	h.Logout(rec, withClaims(httptest.NewRequest(http.MethodPost, "/api/admin/logout", nil), primitive.NewObjectID()))
	assert.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestAdminStatsHandler(t *testing.T) {
	h := NewAdminHandler(&stubAdminAuthService{}, stubStatsService{}, false, false)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/admin/stats?from=2025-06-01T00:00:00Z", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"byStatus":{"pending":2},"totalUsers":3,"newUsers":1}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/admin/stats?from=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddBookingHandler(t *testing.T) {
	userID := primitive.NewObjectID()
	body := `{"date":"2025-06-01","time":"14:00","city":"Chennai"}`

	rec := httptest.NewRecorder()
	NewBookingHandler(&stubBookingService{}).AddBooking(rec, withClaims(jsonRequest(http.MethodPost, "/api/booking/add", body), userID))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"pending"`)

	rec = httptest.NewRecorder()
	NewBookingHandler(&stubBookingService{createErr: services.ErrSlotConflict}).AddBooking(rec, withClaims(jsonRequest(http.MethodPost, "/api/booking/add", body), userID))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	NewBookingHandler(&stubBookingService{}).AddBooking(rec, jsonRequest(http.MethodPost, "/api/booking/add", body))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBlockedSlotsHandler(t *testing.T) {
	h := NewBookingHandler(&stubBookingService{})

	rec := httptest.NewRecorder()
	h.GetBlockedSlots(rec, httptest.NewRequest(http.MethodGet, "/api/booking/blocked-slots?date=2025-06-01", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["10:00","14:00"]`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.GetBlockedSlots(rec, httptest.NewRequest(http.MethodGet, "/api/booking/blocked-slots", nil))
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListBookingsHandler(t *testing.T) {
	svc := &stubBookingService{}
	h := NewBookingHandler(svc)

	rec := httptest.NewRecorder()
	h.ListBookings(rec, httptest.NewRequest(http.MethodGet, "/api/booking?status=pending", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "["), "plain array without pagination")
	assert.Equal(t, "pending", svc.lastQuery.Status)

	rec = httptest.NewRecorder()
	h.ListBookings(rec, httptest.NewRequest(http.MethodGet, "/api/booking?page=1&q=chennai", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)
	assert.Equal(t, "chennai", svc.lastQuery.Q)

	rec = httptest.NewRecorder()
	h.ListBookings(rec, httptest.NewRequest(http.MethodGet, "/api/booking?limit=ten", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateAndDeleteBookingHandlers(t *testing.T) {
	router := mux.NewRouter()
	svc := &stubBookingService{}
	h := NewBookingHandler(svc)
	router.HandleFunc("/api/booking/status/{id}", h.UpdateStatus).Methods(http.MethodPatch)
	router.HandleFunc("/api/booking/{id}", h.DeleteBooking).Methods(http.MethodDelete)

	id := primitive.NewObjectID().Hex()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, jsonRequest(http.MethodPatch, "/api/booking/status/"+id, `{"status":"confirmed"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"confirmed"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, jsonRequest(http.MethodPatch, "/api/booking/status/not-an-id", `{"status":"confirmed"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.updateErr = fmt.Errorf("%w: booking", services.ErrNotFound)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, jsonRequest(http.MethodPatch, "/api/booking/status/"+id, `{"status":"confirmed"}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/booking/"+id, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	svc.deleteErr = fmt.Errorf("%w: booking", services.ErrNotFound)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/booking/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type stubDB struct {
	healthy bool
}

func (s stubDB) Health() map[string]string {
	if s.healthy {
		return map[string]string{"message": "It's healthy"}
	}
	return map[string]string{"message": "db down"}
}

func (stubDB) Client() *mongo.Client { return nil }
func (stubDB) Database() *mongo.Database { return nil }
func (stubDB) EnsureIndexes(context.Context) error { return nil }
func (stubDB) Close() error { return nil }

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewCommonHandler(stubDB{healthy: true}).HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	NewCommonHandler(stubDB{}).HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"message":"db down"}`, rec.Body.String())
}
