package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careslot/careslot/internal/auth"
	"github.com/careslot/careslot/internal/booking"
	"github.com/careslot/careslot/internal/user"
)

// In-memory repositories backing the router under test.

type memBookingRepo struct {
	mu    sync.Mutex
	slots map[uuid.UUID]booking.Slot
	appts map[uuid.UUID]booking.Appointment
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{
		slots: make(map[uuid.UUID]booking.Slot),
		appts: make(map[uuid.UUID]booking.Appointment),
	}
}

func (m *memBookingRepo) GetSlotByID(_ context.Context, id uuid.UUID) (*booking.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return nil, booking.ErrSlotNotFound
	}
	return &s, nil
}

func (m *memBookingRepo) FindSlotByTuple(_ context.Context, doctorID uuid.UUID, slotDate time.Time, slotTime string) (*booking.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.slots {
		if s.DoctorID == doctorID && s.SlotDate.Equal(slotDate) && s.SlotTime == slotTime {
			found := s
			return &found, nil
		}
	}
	return nil, booking.ErrSlotNotFound
}

func (m *memBookingRepo) CreateSlot(_ context.Context, s *booking.Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.slots {
		if other.DoctorID == s.DoctorID && other.SlotDate.Equal(s.SlotDate) && other.SlotTime == s.SlotTime {
			return booking.ErrSlotTaken
		}
	}
	m.slots[s.ID] = *s
	return nil
}

func (m *memBookingRepo) DeleteSlot(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slots[id]; !ok {
		return booking.ErrSlotNotFound
	}
	delete(m.slots, id)
	return nil
}

func (m *memBookingRepo) ListSlots(_ context.Context) ([]booking.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []booking.Slot
	for _, s := range m.slots {
		out = append(out, s)
	}
	return out, nil
}

func (m *memBookingRepo) ListSlotsByDoctor(_ context.Context, doctorID uuid.UUID) ([]booking.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []booking.Slot
	for _, s := range m.slots {
		if s.DoctorID == doctorID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memBookingRepo) ListBookedTimes(_ context.Context, doctorID uuid.UUID, slotDate time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.slots {
		if s.DoctorID == doctorID && s.SlotDate.Equal(slotDate) {
			out = append(out, s.SlotTime)
		}
	}
	return out, nil
}

func (m *memBookingRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*booking.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, booking.ErrAppointmentNotFound
	}
	return &a, nil
}

func (m *memBookingRepo) CreateAppointment(_ context.Context, a *booking.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appts[a.ID] = *a
	return nil
}

func (m *memBookingRepo) UpdateAppointment(_ context.Context, a *booking.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appts[a.ID]; !ok {
		return booking.ErrAppointmentNotFound
	}
	m.appts[a.ID] = *a
	return nil
}

func (m *memBookingRepo) DeleteAppointment(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appts[id]; !ok {
		return booking.ErrAppointmentNotFound
	}
	delete(m.appts, id)
	return nil
}

func (m *memBookingRepo) ListAppointmentDetails(_ context.Context) ([]booking.AppointmentDetail, error) {
	return nil, nil
}

func (m *memBookingRepo) ListAppointmentsForDoctor(_ context.Context, _ uuid.UUID) ([]booking.UserAppointment, error) {
	return nil, nil
}

func (m *memBookingRepo) ListAppointmentsForPatient(_ context.Context, _ uuid.UUID) ([]booking.UserAppointment, error) {
	return nil, nil
}

func (m *memBookingRepo) DeleteOrphanSlots(_ context.Context) (int64, error) { return 0, nil }

func (m *memBookingRepo) CancelOrphanAppointments(_ context.Context) (int64, error) { return 0, nil }

type memUserRepo struct {
	mu       sync.Mutex
	users    map[uuid.UUID]user.User
	doctors  map[uuid.UUID]user.DoctorProfile
	patients map[uuid.UUID]user.PatientProfile
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		users:    make(map[uuid.UUID]user.User),
		doctors:  make(map[uuid.UUID]user.DoctorProfile),
		patients: make(map[uuid.UUID]user.PatientProfile),
	}
}

func (m *memUserRepo) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return &u, nil
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (m *memUserRepo) CreateUser(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = *u
	return nil
}

func (m *memUserRepo) CreateDoctor(_ context.Context, u *user.User, p *user.DoctorProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = *u
	p.DoctorID = u.ID
	m.doctors[u.ID] = *p
	return nil
}

func (m *memUserRepo) CreatePatient(_ context.Context, u *user.User, p *user.PatientProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = *u
	p.PatientID = u.ID
	m.patients[u.ID] = *p
	return nil
}

func (m *memUserRepo) GetDoctorProfile(_ context.Context, id uuid.UUID) (*user.DoctorProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.doctors[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return &p, nil
}

func (m *memUserRepo) GetPatientProfile(_ context.Context, id uuid.UUID) (*user.PatientProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return &p, nil
}

func (m *memUserRepo) UpsertDoctorProfile(_ context.Context, p *user.DoctorProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doctors[p.DoctorID] = *p
	return nil
}

func (m *memUserRepo) UpsertPatientProfile(_ context.Context, p *user.PatientProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patients[p.PatientID] = *p
	return nil
}

func (m *memUserRepo) UpdateUser(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return user.ErrUserNotFound
	}
	m.users[u.ID] = *u
	return nil
}

func (m *memUserRepo) DeleteUser(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return user.ErrUserNotFound
	}
	delete(m.users, id)
	delete(m.doctors, id)
	delete(m.patients, id)
	return nil
}

func (m *memUserRepo) GetDetail(_ context.Context, id uuid.UUID) (*user.Detail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	det := &user.Detail{User: u}
	if d, ok := m.doctors[id]; ok {
		det.Specialization = &d.Specialization
		det.Bio = d.Bio
	}
	if p, ok := m.patients[id]; ok {
		det.Gender = p.Gender
		det.DateOfBirth = p.DateOfBirth
	}
	return det, nil
}

func (m *memUserRepo) List(_ context.Context, role user.Role) ([]user.Detail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []user.Detail
	for _, u := range m.users {
		if role != "" && u.Role != role {
			continue
		}
		out = append(out, user.Detail{User: u})
	}
	return out, nil
}

type nopLocker struct{}

func (nopLocker) WithSlotLock(ctx context.Context, _ uuid.UUID, _, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Test harness

type testEnv struct {
	router  http.Handler
	issuer  *auth.Issuer
	booking *memBookingRepo
	users   *memUserRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	issuer := auth.NewIssuer("access-secret", "refresh-secret", time.Hour, 24*time.Hour)
	bookingRepo := newMemBookingRepo()
	userRepo := newMemUserRepo()

	bookingSvc := booking.NewService(bookingRepo, nopLocker{}, zerolog.Nop())
	userSvc := user.NewService(userRepo, auth.BcryptVerifier{}, issuer, zerolog.Nop())

	router := NewRouter(RouterConfig{
		Users:     userSvc,
		Booking:   bookingSvc,
		Issuer:    issuer,
		Logger:    zerolog.Nop(),
		Env:       "test",
		Version:   "test",
		AuthRate:  1000,
		AuthBurst: 1000,
	})

	return &testEnv{router: router, issuer: issuer, booking: bookingRepo, users: userRepo}
}

// tokenFor seeds a user row and returns a valid access token for it.
func (e *testEnv) tokenFor(t *testing.T, role user.Role) (uuid.UUID, string) {
	t.Helper()

	id := uuid.New()
	e.users.users[id] = user.User{
		ID:        id,
		FirstName: "Test",
		LastName:  "User",
		Email:     id.String() + "@example.com",
		Role:      role,
	}

	token, err := e.issuer.SignAccess(id.String(), id.String()+"@example.com", string(role))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return id, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func futureDate() string {
	return time.Now().AddDate(1, 0, 0).Format(booking.DateLayout)
}

func TestRegisterSetsAuthCookies(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/v1/auth/register", "", map[string]any{
		"first_name":    "John",
		"last_name":     "Smith",
		"email":         "john@example.com",
		"role":          "patient",
		"password":      "s3cret-pw",
		"gender":        "male",
		"date_of_birth": "1990-04-12",
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp RegisterResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.UserType != "patient" || resp.Token == "" {
		t.Errorf("unexpected response: %+v", resp)
	}

	cookies := rec.Result().Cookies()
	byName := make(map[string]*http.Cookie)
	for _, c := range cookies {
		byName[c.Name] = c
	}

	for _, name := range []string{"accessToken", "refreshToken"} {
		c, ok := byName[name]
		if !ok {
			t.Fatalf("cookie %s not set", name)
		}
		if !c.HttpOnly {
			t.Errorf("cookie %s is not HttpOnly", name)
		}
		if c.SameSite != http.SameSiteStrictMode {
			t.Errorf("cookie %s SameSite = %v, want strict", name, c.SameSite)
		}
	}

	if byName["refreshToken"].MaxAge != int((24 * time.Hour).Seconds()) {
		t.Errorf("refreshToken MaxAge = %d", byName["refreshToken"].MaxAge)
	}
}

func TestRegisterValidationStatus(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/v1/auth/register", "", map[string]any{
		"first_name": "Meredith",
		"last_name":  "Grey",
		"email":      "meredith@example.com",
		"role":       "doctor",
		"password":   "s3cret-pw",
		// specialization missing
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestLoginAndRefreshFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/v1/auth/register", "", map[string]any{
		"first_name":    "John",
		"last_name":     "Smith",
		"email":         "john@example.com",
		"role":          "patient",
		"password":      "s3cret-pw",
		"gender":        "male",
		"date_of_birth": "1990-04-12",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d", rec.Code)
	}

	rec = env.do(t, "POST", "/api/v1/auth/login", "", map[string]string{
		"email": "john@example.com", "password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", rec.Code)
	}

	rec = env.do(t, "POST", "/api/v1/auth/login", "", map[string]string{
		"email": "john@example.com", "password": "s3cret-pw",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var refreshCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "refreshToken" {
			refreshCookie = c
		}
	}
	if refreshCookie == nil {
		t.Fatal("login did not set refreshToken cookie")
	}

	// Refresh with the cookie
	req := httptest.NewRequest("POST", "/api/v1/auth/refresh-token", nil)
	req.AddCookie(refreshCookie)
	refreshRec := httptest.NewRecorder()
	env.router.ServeHTTP(refreshRec, req)

	if refreshRec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, body = %s", refreshRec.Code, refreshRec.Body.String())
	}
	var refreshResp RefreshResponse
	if err := json.Unmarshal(refreshRec.Body.Bytes(), &refreshResp); err != nil {
		t.Fatalf("decode refresh: %v", err)
	}
	if _, err := env.issuer.VerifyAccess(refreshResp.AccessToken); err != nil {
		t.Errorf("refreshed access token does not verify: %v", err)
	}

	// Refresh without a cookie
	noCookieRec := httptest.NewRecorder()
	env.router.ServeHTTP(noCookieRec, httptest.NewRequest("POST", "/api/v1/auth/refresh-token", nil))
	if noCookieRec.Code != http.StatusUnauthorized {
		t.Errorf("cookieless refresh status = %d, want 401", noCookieRec.Code)
	}
}

func TestBookingEndpointRoles(t *testing.T) {
	env := newTestEnv(t)

	doctorID, doctorToken := env.tokenFor(t, user.RoleDoctor)
	_, patientToken := env.tokenFor(t, user.RolePatient)

	body := map[string]string{
		"doctor_id": doctorID.String(),
		"slot_date": futureDate(),
		"slot_time": "09:00 AM",
	}

	// No token
	rec := env.do(t, "POST", "/api/v1/appointments", "", body)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", rec.Code)
	}

	// Doctor cannot book
	rec = env.do(t, "POST", "/api/v1/appointments", doctorToken, body)
	if rec.Code != http.StatusForbidden {
		t.Errorf("doctor booking status = %d, want 403", rec.Code)
	}

	// Patient books
	rec = env.do(t, "POST", "/api/v1/appointments", patientToken, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("patient booking status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var appt AppointmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &appt); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if appt.Status != "booked" || appt.DoctorID != doctorID {
		t.Errorf("unexpected appointment: %+v", appt)
	}

	// Identical tuple conflicts
	rec = env.do(t, "POST", "/api/v1/appointments", patientToken, body)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate booking status = %d, want 409", rec.Code)
	}

	// Booked times for the day
	rec = env.do(t, "GET", "/api/v1/slots/doctor?doctor_id="+doctorID.String()+"&slot_date="+futureDate(), patientToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("booked times status = %d", rec.Code)
	}
	var times []string
	if err := json.Unmarshal(rec.Body.Bytes(), &times); err != nil {
		t.Fatalf("decode times: %v", err)
	}
	if len(times) != 1 || times[0] != "09:00 AM" {
		t.Errorf(`times = %v, want ["09:00 AM"]`, times)
	}
}

func TestBookedTimesMissingParams(t *testing.T) {
	env := newTestEnv(t)
	_, patientToken := env.tokenFor(t, user.RolePatient)

	rec := env.do(t, "GET", "/api/v1/slots/doctor?doctor_id="+uuid.NewString(), patientToken, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing slot_date status = %d, want 400", rec.Code)
	}
}

func TestUserEndpointsAuthorization(t *testing.T) {
	env := newTestEnv(t)

	_, adminToken := env.tokenFor(t, user.RoleAdmin)
	patientID, patientToken := env.tokenFor(t, user.RolePatient)
	otherID, _ := env.tokenFor(t, user.RolePatient)

	// Listing is admin only
	rec := env.do(t, "GET", "/api/v1/users", patientToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("patient list status = %d, want 403", rec.Code)
	}
	rec = env.do(t, "GET", "/api/v1/users", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("admin list status = %d, want 200", rec.Code)
	}

	// Self access allowed, cross-user access denied
	rec = env.do(t, "GET", "/api/v1/users/"+patientID.String(), patientToken, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("self get status = %d, want 200", rec.Code)
	}
	rec = env.do(t, "GET", "/api/v1/users/"+otherID.String(), patientToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("cross-user get status = %d, want 403", rec.Code)
	}
	rec = env.do(t, "GET", "/api/v1/users/"+otherID.String(), adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("admin get status = %d, want 200", rec.Code)
	}

	// Me endpoint
	rec = env.do(t, "GET", "/api/v1/users/me", patientToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d", rec.Code)
	}
	var me UserResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.ID != patientID {
		t.Errorf("me.ID = %s, want %s", me.ID, patientID)
	}
}

func TestMyAppointmentsForbiddenForAdmin(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.tokenFor(t, user.RoleAdmin)

	rec := env.do(t, "GET", "/api/v1/appointments/me", adminToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("admin my-appointments status = %d, want 403", rec.Code)
	}
}

func TestExpiredTokenRejectedByMiddleware(t *testing.T) {
	env := newTestEnv(t)

	expiredIssuer := auth.NewIssuer("access-secret", "refresh-secret", -time.Minute, -time.Minute)
	token, err := expiredIssuer.SignAccess(uuid.NewString(), "x@example.com", "patient")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	rec := env.do(t, "GET", "/api/v1/appointments/me", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expired token status = %d, want 401", rec.Code)
	}
}
