package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/patricktravel/portal/internal/client/wizard"
	"github.com/patricktravel/portal/internal/core/domain"
)

type stubAuth struct {
	calls    int
	result   *domain.AuthResult
	err      error
	lastReg  domain.Registration
	lastUser string
}

func (s *stubAuth) Register(_ context.Context, in domain.Registration) (*domain.AuthResult, error) {
	s.calls++
	s.lastReg = in
	return s.result, s.err
}

func (s *stubAuth) Login(_ context.Context, email, _ string) (*domain.AuthResult, error) {
	s.calls++
	s.lastUser = email
	return s.result, s.err
}

type failingStore struct {
	MemoryStore
	saveErr  error
	loadErr  error
	clearErr error
	cleared  int
}

func (s *failingStore) Load(ctx context.Context) (*Persisted, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.MemoryStore.Load(ctx)
}

func (s *failingStore) Save(ctx context.Context, p Persisted) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.MemoryStore.Save(ctx, p)
}

func (s *failingStore) Clear(ctx context.Context) error {
	s.cleared++
	if s.clearErr != nil {
		return s.clearErr
	}
	return s.MemoryStore.Clear(ctx)
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func okResult() *domain.AuthResult {
	return &domain.AuthResult{
		User:  &domain.User{ID: "u1", Profile: domain.Profile{FirstName: "Ana", Email: "ana@example.com"}},
		Token: "tok",
	}
}

func validRegistration() domain.Registration {
	return domain.Registration{
		Profile:  domain.Profile{FirstName: "Ana", LastName: "Mbeki", Email: " Ana@Example.com "},
		Password: "secret",
	}
}

func TestManager_LoadingUntilInit(t *testing.T) {
	m := NewManager(&stubAuth{}, NewMemoryStore())
	require.True(t, m.State().Loading)

	var seen []State
	m.Subscribe(func(s State) { seen = append(seen, s) })
	m.Init(context.Background())

	require.False(t, m.State().Loading)
	require.Nil(t, m.State().User)
	require.Len(t, seen, 1)
	require.False(t, seen[0].Loading)
}

func TestManager_RegisterValidationSkipsNetwork(t *testing.T) {
	auth := &stubAuth{result: okResult()}
	m := NewManager(auth, NewMemoryStore())

	err := m.Register(context.Background(), domain.Registration{})
	require.ErrorIs(t, err, domain.ErrValidation)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "First name is required", verr.Fields["firstName"])
	require.Zero(t, auth.calls)
	require.Nil(t, m.State().User)
}

func TestManager_RegisterPersistsAndNotifies(t *testing.T) {
	auth := &stubAuth{result: okResult()}
	store := NewMemoryStore()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewManager(auth, store, WithClock(clock.Now))

	var seen []State
	m.Subscribe(func(s State) { seen = append(seen, s) })

	require.NoError(t, m.Register(context.Background(), validRegistration()))
	require.Equal(t, "ana@example.com", auth.lastReg.Email)
	require.Equal(t, domain.AccountStudent, auth.lastReg.AccountType)

	st := m.State()
	require.True(t, st.Authenticated())
	require.Equal(t, "u1", st.User.ID)
	require.Len(t, seen, 1)

	rec, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, "tok", rec.Token)
	require.Equal(t, "u1", rec.User.ID)
	require.Equal(t, clock.t.Add(7*24*time.Hour), rec.CookieExpiresAt)

	c := m.Cookie()
	require.NotNil(t, c)
	require.Equal(t, "token", c.Name)
	require.Equal(t, "tok", c.Value)
	require.Equal(t, "/", c.Path)
	require.True(t, c.Secure)
	require.Equal(t, http.SameSiteStrictMode, c.SameSite)
	require.Equal(t, 7*24*3600, c.MaxAge)
}

func TestManager_LoginErrorsPropagate(t *testing.T) {
	for _, want := range []error{domain.ErrUnconfirmedEmail, domain.ErrInvalidCredentials} {
		auth := &stubAuth{err: want}
		store := NewMemoryStore()
		m := NewManager(auth, store)

		err := m.Login(context.Background(), "ana@example.com", "pw")
		require.ErrorIs(t, err, want)
		require.Nil(t, m.State().User)
		rec, _ := store.Load(context.Background())
		require.Nil(t, rec)
	}
}

func TestManager_LoginRequiresBothFields(t *testing.T) {
	auth := &stubAuth{result: okResult()}
	m := NewManager(auth, NewMemoryStore())

	err := m.Login(context.Background(), "  ", "")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "email")
	require.Contains(t, verr.Fields, "password")
	require.Zero(t, auth.calls)
}

func TestManager_SaveFailureLeavesStateUntouched(t *testing.T) {
	store := &failingStore{saveErr: errors.New("disk full")}
	m := NewManager(&stubAuth{result: okResult()}, store)

	notified := false
	m.Subscribe(func(State) { notified = true })

	err := m.Login(context.Background(), "ana@example.com", "pw")
	require.Error(t, err)
	require.Nil(t, m.State().User)
	require.Nil(t, m.Cookie())
	require.False(t, notified)
}

func TestManager_LogoutIsIdempotent(t *testing.T) {
	store := &failingStore{}
	m := NewManager(&stubAuth{result: okResult()}, store)
	require.NoError(t, m.Login(context.Background(), "ana@example.com", "pw"))

	m.Logout(context.Background())
	require.Nil(t, m.State().User)
	require.Nil(t, m.Cookie())
	rec, _ := store.Load(context.Background())
	require.Nil(t, rec)

	store.clearErr = errors.New("locked")
	m.Logout(context.Background())
	require.Nil(t, m.State().User)
	require.Equal(t, 2, store.cleared)
}

func TestManager_InitRestoresUser(t *testing.T) {
	store := NewMemoryStore()
	clock := &fakeClock{t: time.Now()}
	require.NoError(t, store.Save(context.Background(), Persisted{
		Token:           "tok",
		CookieExpiresAt: clock.t.Add(time.Hour),
		User:            domain.User{ID: "u9", Profile: domain.Profile{FirstName: "Ana"}},
	}))

	m := NewManager(&stubAuth{}, store, WithClock(clock.Now))
	m.Init(context.Background())

	st := m.State()
	require.False(t, st.Loading)
	require.NotNil(t, st.User)
	require.Equal(t, "u9", st.User.ID)
	require.NotNil(t, m.Cookie())
}

func TestManager_InitDiscardsCorruptRecord(t *testing.T) {
	store := &failingStore{loadErr: errors.New("bad json")}
	m := NewManager(&stubAuth{}, store)
	m.Init(context.Background())

	require.False(t, m.State().Loading)
	require.Nil(t, m.State().User)
	require.Equal(t, 1, store.cleared)

	partial := &failingStore{}
	require.NoError(t, partial.Save(context.Background(), Persisted{Token: "tok"}))
	m = NewManager(&stubAuth{}, partial)
	m.Init(context.Background())
	require.Nil(t, m.State().User)
	require.Equal(t, 1, partial.cleared)
}

func TestManager_CookieExpires(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewManager(&stubAuth{result: okResult()}, NewMemoryStore(),
		WithClock(clock.Now), WithCookiePolicy(LegacyCookiePolicy()))
	require.NoError(t, m.Login(context.Background(), "ana@example.com", "pw"))

	clock.Advance(23 * time.Hour)
	c := m.Cookie()
	require.NotNil(t, c)
	require.Equal(t, 3600, c.MaxAge)

	clock.Advance(time.Hour)
	require.Nil(t, m.Cookie())
}

func TestManager_Unsubscribe(t *testing.T) {
	m := NewManager(&stubAuth{result: okResult()}, NewMemoryStore())

	var order []string
	unsubA := m.Subscribe(func(State) { order = append(order, "a") })
	m.Subscribe(func(State) { order = append(order, "b") })

	m.Init(context.Background())
	require.Equal(t, []string{"a", "b"}, order)

	unsubA()
	unsubA()
	m.Logout(context.Background())
	require.Equal(t, []string{"a", "b", "b"}, order)
}

func TestManager_StateIsACopy(t *testing.T) {
	m := NewManager(&stubAuth{result: okResult()}, NewMemoryStore())
	require.NoError(t, m.Login(context.Background(), "ana@example.com", "pw"))

	st := m.State()
	st.User.FirstName = "Mallory"
	require.Equal(t, "Ana", m.State().User.FirstName)
}

func TestRegistrationSubmitter(t *testing.T) {
	auth := &stubAuth{result: okResult()}
	m := NewManager(auth, NewMemoryStore())

	w := wizard.New(wizard.Registration())
	fields := map[string]string{
		"firstName": "Ana", "surname": "Mbeki", "email": "ana@example.com", "confirmEmail": "ana@example.com",
		"password": "secret", "confirmPassword": "secret", "gender": "female", "dateOfBirth": "1995-04-02",
		"birthCountry": "CM", "birthPlace": "Douala", "nationality": "cameroonian", "idType": "passport",
		"idNumber": "P1", "idIssuingCountry": "CM",
	}
	for k, v := range fields {
		require.NoError(t, w.SetField(k, v))
	}

	require.NoError(t, w.Submit(context.Background(), RegistrationSubmitter(m)))
	require.Equal(t, "Mbeki", auth.lastReg.LastName)
	require.Equal(t, "CM", auth.lastReg.Country)
	require.True(t, m.State().Authenticated())
	require.True(t, w.Submitted())
}

func TestManager_DuplicateRegisterKeepsExistingSession(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	auth := &stubAuth{result: okResult()}
	m := NewManager(auth, store, WithClock(clock.Now))
	ctx := context.Background()
	m.Init(ctx)

	require.NoError(t, m.Login(ctx, "ana@example.com", "secret"))
	before := m.State()
	cookieBefore := m.Cookie()
	persistedBefore, err := store.Load(ctx)
	require.NoError(t, err)

	notified := 0
	m.Subscribe(func(State) { notified++ })

	auth.result = nil
	auth.err = fmt.Errorf("register: %w", domain.ErrDuplicateAccount)
	err = m.Register(ctx, validRegistration())
	require.ErrorIs(t, err, domain.ErrDuplicateAccount)

	require.Equal(t, before, m.State())
	require.Equal(t, cookieBefore, m.Cookie())
	persistedAfter, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, persistedBefore, persistedAfter)
	require.Zero(t, notified)
}
