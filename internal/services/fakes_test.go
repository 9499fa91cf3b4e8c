package services

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"interiorly/internal/models"
	"interiorly/internal/repositories"
)

var duplicateKeyErr = mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key error"}}}

// otpCell applies the conditional OTP updates to one in-memory state, the way
// the Mongo filters do.
type otpCell struct {
	state *models.OTPState
}

func (c otpCell) set(hash string, expires, now time.Time) error {
	if c.state.IsLocked(now) {
		return repositories.ErrOTPStateChanged
	}
	*c.state = models.OTPState{OTPHash: hash, OTPExpires: &expires}
	return nil
}

func (c otpCell) clear(hash string) error {
	if c.state.OTPHash != hash {
		return repositories.ErrOTPStateChanged
	}
	*c.state = models.OTPState{}
	return nil
}

func (c otpCell) fail(hash string, max int, now, lockUntil time.Time) (*models.OTPState, error) {
	if c.state.OTPHash != hash || c.state.IsLocked(now) {
		return nil, repositories.ErrOTPStateChanged
	}
	c.state.OTPAttempts++
	if c.state.OTPAttempts >= max {
		c.state.OTPLockedUntil = &lockUntil
	}
	out := *c.state
	return &out, nil
}

func (c otpCell) consume(hash string, now time.Time) error {
	if c.state.OTPHash != hash || c.state.IsExpired(now) || c.state.IsLocked(now) {
		return repositories.ErrOTPStateChanged
	}
	*c.state = models.OTPState{}
	return nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[primitive.ObjectID]*models.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if (user.Phone != "" && u.Phone == user.Phone) || (user.Email != "" && u.Email == user.Email) {
			return nil, duplicateKeyErr
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.CreatedAt = time.Now()
	stored := *user
	r.users[user.ID] = &stored
	out := stored
	return &out, nil
}

func (r *fakeUserRepo) find(match func(*models.User) bool) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			out := *u
			return &out, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (r *fakeUserRepo) FindByPhone(_ context.Context, phone string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Phone == phone })
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r *fakeUserRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id })
}

func (r *fakeUserRepo) Update(_ context.Context, id primitive.ObjectID, fields bson.M) (*mongo.UpdateResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return &mongo.UpdateResult{}, nil
	}
	if email, ok := fields["email"].(string); ok {
		for otherID, other := range r.users {
			if otherID != id && email != "" && other.Email == email {
				return nil, duplicateKeyErr
			}
		}
		u.Email = email
	}
	if pending, ok := fields["pendingEmail"].(string); ok {
		u.PendingEmail = pending
	}
	if name, ok := fields["name"].(string); ok {
		u.Name = name
	}
	return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (r *fakeUserRepo) CountAll(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

func (r *fakeUserRepo) CountUsersCreatedBetween(_ context.Context, start, end time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, u := range r.users {
		if !u.CreatedAt.Before(start) && !u.CreatedAt.After(end) {
			n++
		}
	}
	return n, nil
}

func (r *fakeUserRepo) cell(id primitive.ObjectID) (otpCell, error) {
	u, ok := r.users[id]
	if !ok {
		return otpCell{}, repositories.ErrOTPStateChanged
	}
	return otpCell{state: &u.OTPState}, nil
}

func (r *fakeUserRepo) SetOTP(_ context.Context, id primitive.ObjectID, hash string, expires, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.cell(id)
	if err != nil {
		return err
	}
	return c.set(hash, expires, now)
}

func (r *fakeUserRepo) ClearOTP(_ context.Context, id primitive.ObjectID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.cell(id)
	if err != nil {
		return err
	}
	return c.clear(hash)
}

func (r *fakeUserRepo) RecordFailedAttempt(_ context.Context, id primitive.ObjectID, hash string, max int, now, lockUntil time.Time) (*models.OTPState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.cell(id)
	if err != nil {
		return nil, err
	}
	return c.fail(hash, max, now, lockUntil)
}

func (r *fakeUserRepo) ConsumeOTP(_ context.Context, id primitive.ObjectID, hash string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.cell(id)
	if err != nil {
		return err
	}
	return c.consume(hash, now)
}

type fakeAdminRepo struct {
	mu     sync.Mutex
	admins map[primitive.ObjectID]*models.Admin
}

func newFakeAdminRepo(admins ...*models.Admin) *fakeAdminRepo {
	r := &fakeAdminRepo{admins: map[primitive.ObjectID]*models.Admin{}}
	for _, a := range admins {
		if a.ID.IsZero() {
			a.ID = primitive.NewObjectID()
		}
		r.admins[a.ID] = a
	}
	return r
}

func (r *fakeAdminRepo) find(match func(*models.Admin) bool) (*models.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.admins {
		if match(a) {
			out := *a
			return &out, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (r *fakeAdminRepo) FindByEmail(_ context.Context, email string) (*models.Admin, error) {
	return r.find(func(a *models.Admin) bool { return a.Email == email })
}

func (r *fakeAdminRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Admin, error) {
	return r.find(func(a *models.Admin) bool { return a.ID == id })
}

func (r *fakeAdminRepo) Upsert(_ context.Context, admin *models.Admin) (*models.Admin, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeAdminRepo) with(id primitive.ObjectID, fn func(otpCell) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.admins[id]
	if !ok {
		return repositories.ErrOTPStateChanged
	}
	return fn(otpCell{state: &a.OTPState})
}

func (r *fakeAdminRepo) SetOTP(_ context.Context, id primitive.ObjectID, hash string, expires, now time.Time) error {
	return r.with(id, func(c otpCell) error { return c.set(hash, expires, now) })
}

func (r *fakeAdminRepo) ClearOTP(_ context.Context, id primitive.ObjectID, hash string) error {
	return r.with(id, func(c otpCell) error { return c.clear(hash) })
}

func (r *fakeAdminRepo) RecordFailedAttempt(_ context.Context, id primitive.ObjectID, hash string, max int, now, lockUntil time.Time) (state *models.OTPState, err error) {
	err = r.with(id, func(c otpCell) error {
		state, err = c.fail(hash, max, now, lockUntil)
		return err
	})
	return state, err
}

func (r *fakeAdminRepo) ConsumeOTP(_ context.Context, id primitive.ObjectID, hash string, now time.Time) error {
	return r.with(id, func(c otpCell) error { return c.consume(hash, now) })
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (r *fakeAuditRepo) Create(_ context.Context, entry *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

// fakeBookingRepo enforces the active-slot uniqueness under its mutex.
type fakeBookingRepo struct {
	mu       sync.Mutex
	bookings map[primitive.ObjectID]*models.Booking
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: map[primitive.ObjectID]*models.Booking{}}
}

func isActive(status string) bool {
	return status == models.BookingStatusPending || status == models.BookingStatusConfirmed
}

func (r *fakeBookingRepo) slotTaken(b *models.Booking, status string) bool {
	if !isActive(status) {
		return false
	}
	for _, other := range r.bookings {
		if other.ID != b.ID && other.Date == b.Date && other.Time == b.Time && isActive(other.Status) {
			return true
		}
	}
	return false
}

func (r *fakeBookingRepo) Create(_ context.Context, b *models.Booking) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slotTaken(b, b.Status) {
		return nil, duplicateKeyErr
	}
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	b.CreatedAt = time.Now()
	stored := *b
	r.bookings[b.ID] = &stored
	return b, nil
}

func (r *fakeBookingRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	out := *b
	return &out, nil
}

func (r *fakeBookingRepo) FindBlockedSlots(_ context.Context, date string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	slots := []string{}
	for _, b := range r.bookings {
		if b.Date == date && isActive(b.Status) {
			slots = append(slots, b.Time)
		}
	}
	return slots, nil
}

func (r *fakeBookingRepo) matching(q models.BookingQuery) []models.Booking {
	out := []models.Booking{}
	for _, b := range r.bookings {
		if (q.Status == "" || b.Status == q.Status) && (q.Date == "" || b.Date == q.Date) {
			out = append(out, *b)
		}
	}
	return out
}

func (r *fakeBookingRepo) Find(_ context.Context, q models.BookingQuery) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.matching(q)
	if q.Limit == 0 {
		return all, nil
	}
	start := (q.Page - 1) * q.Limit
	if start >= len(all) {
		return []models.Booking{}, nil
	}
	end := min(start+q.Limit, len(all))
	return all[start:end], nil
}

func (r *fakeBookingRepo) Count(_ context.Context, q models.BookingQuery) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.matching(q))), nil
}

func (r *fakeBookingRepo) FindByUser(_ context.Context, userID primitive.ObjectID) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Booking{}
	for _, b := range r.bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) UpdateStatus(_ context.Context, id primitive.ObjectID, status string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	if r.slotTaken(b, status) {
		return nil, duplicateKeyErr
	}
	b.Status = status
	out := *b
	return &out, nil
}

func (r *fakeBookingRepo) Delete(_ context.Context, id primitive.ObjectID) (*mongo.DeleteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[id]; !ok {
		return &mongo.DeleteResult{}, nil
	}
	delete(r.bookings, id)
	return &mongo.DeleteResult{DeletedCount: 1}, nil
}

func (r *fakeBookingRepo) CountByStatus(context.Context) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[string]int64{}
	for _, s := range models.BookingStatuses {
		counts[s] = 0
	}
	for _, b := range r.bookings {
		counts[b.Status]++
	}
	return counts, nil
}

var codePattern = regexp.MustCompile(`\d{6}`)

// fakeSender records the last code sent and fails on demand.
type fakeSender struct {
	mu    sync.Mutex
	fail  bool
	sent  []string
	codes []string
}

func (f *fakeSender) record(to, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("provider unavailable")
	}
	f.sent = append(f.sent, to)
	f.codes = append(f.codes, codePattern.FindString(msg))
	return nil
}

func (f *fakeSender) SendSMS(_ context.Context, phone, message string) error {
	return f.record(phone, message)
}

func (f *fakeSender) SendEmail(_ context.Context, to, _, msg string) error {
	return f.record(to, msg)
}

func (f *fakeSender) lastCode() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.codes) == 0 {
		return ""
	}
	return f.codes[len(f.codes)-1]
}

// recordingSink forwards event names to a channel so tests can wait for them.
type recordingSink struct {
	names chan string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{names: make(chan string, 16)}
}

func (s *recordingSink) Publish(_ context.Context, name string, _ any) error {
	s.names <- name
	return nil
}

// clock is a settable time source for the OTP engine and session issuer.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
