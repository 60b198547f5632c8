package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/givetrack/givetrack/internal/identity"
	"github.com/givetrack/givetrack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	methods      []string
	methodsErr   error
	createUID    string
	createErr    error
	createCalled bool
}

func (f *fakeProvider) SignInMethods(_ context.Context, _ string) ([]string, error) {
	return f.methods, f.methodsErr
}

func (f *fakeProvider) CreateUser(_ context.Context, _, _, _ string) (string, error) {
	f.createCalled = true
	return f.createUID, f.createErr
}

func (f *fakeProvider) VerifyPassword(_ context.Context, _, _ string) (string, error) {
	return "", identity.ErrInvalidCredentials
}

func (f *fakeProvider) SendPasswordReset(_ context.Context, _ string) error {
	return nil
}

type fakeUserStore struct {
	users     map[string]*models.User
	getErr    error
	createErr error
	created   []*models.User
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.users[email], nil
}

func (f *fakeUserStore) Create(_ context.Context, user *models.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, user)
	return nil
}

func newTestRegistration(provider *fakeProvider, users *fakeUserStore, store *fakeOTPStore, sender *fakeSender) *RegistrationService {
	otp := newTestOTPService(store, sender, nil)
	return NewRegistrationService(provider, users, otp, testLogger())
}

func validInput() RegistrationInput {
	return RegistrationInput{
		Name:     "Ada Lovelace",
		Email:    "ada@example.com",
		Password: "secret123",
		Role:     models.RoleDonor,
	}
}

func TestRequestOTPDuplicateInProviderFailsBeforeIssuance(t *testing.T) {
	provider := &fakeProvider{methods: []string{"password"}}
	users := &fakeUserStore{}
	store := &fakeOTPStore{}
	sender := &fakeSender{}
	svc := newTestRegistration(provider, users, store, sender)

	err := svc.RequestOTP(context.Background(), "ada@example.com")
	require.ErrorIs(t, err, ErrDuplicateEmail)

	// The duplicate must short-circuit: no code stored, no email sent.
	assert.Empty(t, store.forRecipient("ada@example.com"))
	assert.Empty(t, sender.sent)
}

func TestRequestOTPDuplicateInDocumentStore(t *testing.T) {
	provider := &fakeProvider{}
	users := &fakeUserStore{users: map[string]*models.User{
		"ada@example.com": {Email: "ada@example.com"},
	}}
	svc := newTestRegistration(provider, users, &fakeOTPStore{}, &fakeSender{})

	err := svc.RequestOTP(context.Background(), "ada@example.com")
	require.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestRequestOTPFailsOpenWhenChecksUnavailable(t *testing.T) {
	provider := &fakeProvider{methodsErr: errors.New("provider timeout")}
	users := &fakeUserStore{getErr: errors.New("store timeout")}
	store := &fakeOTPStore{}
	sender := &fakeSender{}
	svc := newTestRegistration(provider, users, store, sender)

	err := svc.RequestOTP(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Len(t, sender.sent, 1)
}

func TestRequestOTPProviderAlreadyInUseErrorIsHardDuplicate(t *testing.T) {
	provider := &fakeProvider{methodsErr: identity.ErrEmailAlreadyInUse}
	svc := newTestRegistration(provider, &fakeUserStore{}, &fakeOTPStore{}, &fakeSender{})

	err := svc.RequestOTP(context.Background(), "ada@example.com")
	require.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestVerifyOTPHappyPath(t *testing.T) {
	store := &fakeOTPStore{}
	sender := &fakeSender{}
	svc := newTestRegistration(&fakeProvider{}, &fakeUserStore{}, store, sender)

	require.NoError(t, svc.RequestOTP(context.Background(), "ada@example.com"))
	code := sender.sent[0]

	require.NoError(t, svc.VerifyOTP(context.Background(), "ada@example.com", code))
}

func TestVerifyOTPWrongCode(t *testing.T) {
	store := &fakeOTPStore{}
	store.seed("ada@example.com", "123456", timeNowPlus10m())
	svc := newTestRegistration(&fakeProvider{}, &fakeUserStore{}, store, &fakeSender{})

	err := svc.VerifyOTP(context.Background(), "ada@example.com", "000000")
	require.ErrorIs(t, err, ErrInvalidOTP)
}

func TestVerifyOTPRechecksDuplicates(t *testing.T) {
	store := &fakeOTPStore{}
	store.seed("ada@example.com", "123456", timeNowPlus10m())
	provider := &fakeProvider{methods: []string{"password"}}
	svc := newTestRegistration(provider, &fakeUserStore{}, store, &fakeSender{})

	err := svc.VerifyOTP(context.Background(), "ada@example.com", "123456")
	require.ErrorIs(t, err, ErrDuplicateEmail)

	// The duplicate re-check fires before the code is consumed.
	assert.Len(t, store.forRecipient("ada@example.com"), 1)
}

func TestRegisterCreatesAccountAndProfile(t *testing.T) {
	provider := &fakeProvider{createUID: "uid-1"}
	users := &fakeUserStore{}
	svc := newTestRegistration(provider, users, &fakeOTPStore{}, &fakeSender{})

	uid, err := svc.Register(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, "uid-1", uid)

	require.Len(t, users.created, 1)
	profile := users.created[0]
	assert.Equal(t, "uid-1", profile.ID)
	assert.Equal(t, "ada@example.com", profile.Email)
	assert.Equal(t, models.RoleDonor, profile.Role)
	assert.False(t, profile.OnboardingCompleted)
	assert.Contains(t, profile.AvatarURL, "Ada")
}

func TestRegisterDuplicateRaceAtAccountCreation(t *testing.T) {
	provider := &fakeProvider{createErr: identity.ErrEmailAlreadyInUse}
	users := &fakeUserStore{}
	svc := newTestRegistration(provider, users, &fakeOTPStore{}, &fakeSender{})

	_, err := svc.Register(context.Background(), validInput())
	require.ErrorIs(t, err, ErrDuplicateEmail)
	assert.Empty(t, users.created)
}

func TestRegisterOtherCreationErrorIsGeneric(t *testing.T) {
	provider := &fakeProvider{createErr: errors.New("provider exploded")}
	svc := newTestRegistration(provider, &fakeUserStore{}, &fakeOTPStore{}, &fakeSender{})

	_, err := svc.Register(context.Background(), validInput())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateEmail)
}

func TestRegisterDuplicateBeforeAccountCreation(t *testing.T) {
	provider := &fakeProvider{methods: []string{"password"}}
	svc := newTestRegistration(provider, &fakeUserStore{}, &fakeOTPStore{}, &fakeSender{})

	_, err := svc.Register(context.Background(), validInput())
	require.ErrorIs(t, err, ErrDuplicateEmail)
	assert.False(t, provider.createCalled)
}

func timeNowPlus10m() time.Time {
	return time.Now().Add(10 * time.Minute)
}

func TestValidEmail(t *testing.T) {
	valid := []string{"a@b.com", "first.last@sub.example.org", "x+tag@example.co"}
	for _, email := range valid {
		assert.True(t, ValidEmail(email), email)
	}

	invalid := []string{"", "plain", "a@b", "@b.com", "a @b.com", "a@b .com"}
	for _, email := range invalid {
		assert.False(t, ValidEmail(email), email)
	}
}
