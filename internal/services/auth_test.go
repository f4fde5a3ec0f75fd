package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/circlehub/backend/internal/apperror"
	"github.com/circlehub/backend/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUserRepo implements repositories.UserRepository over a map, minting
// sequential IDs and enforcing email uniqueness like the real store.
type fakeUserRepo struct {
	users  map[int64]*models.User
	nextID int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int64]*models.User{}}
}

func (r *fakeUserRepo) CreateUser(ctx context.Context, user *models.User) error {
	for _, u := range r.users {
		if u.Email == user.Email {
			return apperror.DuplicateEmail(user.Email)
		}
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return u, nil
}

func (r *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (r *fakeUserRepo) GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error) {
	for _, u := range r.users {
		if u.FirebaseUID != nil && *u.FirebaseUID == firebaseUID {
			return u, nil
		}
	}
	return nil, apperror.NotFound("user", firebaseUID)
}

func (r *fakeUserRepo) UpdateUser(ctx context.Context, user *models.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) SetOnline(ctx context.Context, id int64, online bool) error {
	u, err := r.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	u.Online = online
	return nil
}

func (r *fakeUserRepo) SetEmailConfirmed(ctx context.Context, id int64) error {
	u, err := r.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	u.EmailConfirmed = true
	return nil
}

func (r *fakeUserRepo) ClearUnreadFlag(ctx context.Context, id int64) error {
	u, err := r.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	u.UnreadNotifications = false
	return nil
}

func (r *fakeUserRepo) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	u, err := r.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (r *fakeUserRepo) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	var out []models.User
	for _, u := range r.users {
		if strings.Contains(u.Username, query) {
			out = append(out, *u)
		}
	}
	return out, nil
}

type fakeResetRepo struct {
	resets map[string]*models.PasswordReset
}

func newFakeResetRepo() *fakeResetRepo {
	return &fakeResetRepo{resets: map[string]*models.PasswordReset{}}
}

func (r *fakeResetRepo) Create(ctx context.Context, reset *models.PasswordReset) error {
	r.resets[reset.ID] = reset
	return nil
}

func (r *fakeResetRepo) GetByID(ctx context.Context, id string) (*models.PasswordReset, error) {
	reset, ok := r.resets[id]
	if !ok {
		return nil, apperror.NotFound("password reset", id)
	}
	return reset, nil
}

func (r *fakeResetRepo) Delete(ctx context.Context, id string) error {
	delete(r.resets, id)
	return nil
}

func (r *fakeResetRepo) DeleteForUser(ctx context.Context, userID int64) error {
	for id, reset := range r.resets {
		if reset.UserID == userID {
			delete(r.resets, id)
		}
	}
	return nil
}

type fakeBlobStore struct {
	blobs map[string][]byte
	n     int
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: map[string][]byte{}}
}

func (b *fakeBlobStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	b.n++
	ref := fmt.Sprintf("%s-%d", name, b.n)
	b.blobs[ref] = data
	return ref, nil
}

func (b *fakeBlobStore) Get(ctx context.Context, ref string) ([]byte, error) {
	data, ok := b.blobs[ref]
	if !ok {
		return nil, apperror.NotFound("blob", ref)
	}
	return data, nil
}

func (b *fakeBlobStore) Delete(ctx context.Context, ref string) error {
	delete(b.blobs, ref)
	return nil
}

type sentMail struct {
	to       string
	template string
	params   map[string]string
}

type fakeMailer struct {
	sent []sentMail
}

func (m *fakeMailer) Send(ctx context.Context, to, template string, params map[string]string) error {
	m.sent = append(m.sent, sentMail{to: to, template: template, params: params})
	return nil
}

func newAuthFixture() (*AuthService, *fakeUserRepo, *fakeResetRepo, *fakeMailer) {
	users := newFakeUserRepo()
	resets := newFakeResetRepo()
	mail := &fakeMailer{}
	svc := NewAuthService(users, resets, newFakeBlobStore(), mail, nil, "test-secret", "http://localhost:8080")
	return svc, users, resets, mail
}

func signUpRequest(email string) *models.SignUpRequest {
	return &models.SignUpRequest{
		Username:        "alice",
		Email:           email,
		Birthdate:       "1999-01-01",
		Age:             27,
		Password:        "hunter22",
		ReenterPassword: "hunter22",
	}
}

func TestSignUpAndLogIn(t *testing.T) {
	svc, _, _, mail := newAuthFixture()
	ctx := context.Background()

	user, err := svc.SignUp(ctx, signUpRequest("alice@example.com"), nil)
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.False(t, user.EmailConfirmed)
	assert.NotEqual(t, "hunter22", user.PasswordHash, "password must not be stored in the clear")

	require.Len(t, mail.sent, 1)
	assert.Equal(t, "alice@example.com", mail.sent[0].to)
	assert.Contains(t, mail.sent[0].params["confirm_url"], "confirm-email")

	token, loggedIn, err := svc.LogIn(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)

	// The JWT carries the user identity and verifies with the same secret.
	claims := &models.JwtCustomClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestSignUpPasswordMismatch(t *testing.T) {
	svc, _, _, _ := newAuthFixture()

	req := signUpRequest("alice@example.com")
	req.ReenterPassword = "different"
	_, err := svc.SignUp(context.Background(), req, nil)
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestSignUpDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newAuthFixture()
	ctx := context.Background()

	_, err := svc.SignUp(ctx, signUpRequest("alice@example.com"), nil)
	require.NoError(t, err)

	_, err = svc.SignUp(ctx, signUpRequest("alice@example.com"), nil)
	assert.ErrorIs(t, err, apperror.ErrDuplicateEmail)
}

func TestLogInWrongPassword(t *testing.T) {
	svc, _, _, _ := newAuthFixture()
	ctx := context.Background()

	_, err := svc.SignUp(ctx, signUpRequest("alice@example.com"), nil)
	require.NoError(t, err)

	_, _, err = svc.LogIn(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, _, err = svc.LogIn(ctx, "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestLogoutBlacklistsToken(t *testing.T) {
	svc, _, _, _ := newAuthFixture()
	ctx := context.Background()

	_, err := svc.SignUp(ctx, signUpRequest("alice@example.com"), nil)
	require.NoError(t, err)
	token, _, err := svc.LogIn(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)

	assert.False(t, svc.IsBlacklisted(token))
	svc.Logout(token)
	assert.True(t, svc.IsBlacklisted(token))
}

func TestConfirmEmail(t *testing.T) {
	svc, users, _, _ := newAuthFixture()
	ctx := context.Background()

	user, err := svc.SignUp(ctx, signUpRequest("alice@example.com"), nil)
	require.NoError(t, err)

	require.NoError(t, svc.ConfirmEmail(ctx, user.ID))
	confirmed, _ := users.GetUserByID(ctx, user.ID)
	assert.True(t, confirmed.EmailConfirmed)

	assert.ErrorIs(t, svc.ConfirmEmail(ctx, 999), apperror.ErrNotFound)
}

func TestPasswordResetFlow(t *testing.T) {
	svc, _, _, mail := newAuthFixture()
	ctx := context.Background()

	_, err := svc.SignUp(ctx, signUpRequest("alice@example.com"), nil)
	require.NoError(t, err)

	outcome, reset, err := svc.RequestPasswordReset(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, OutcomeMatched, outcome)
	require.NotNil(t, reset)
	assert.Len(t, reset.Code, 6)
	assert.Equal(t, reset.Code, mail.sent[len(mail.sent)-1].params["code"])

	outcome, err = svc.CheckResetCode(ctx, reset.ID, "000000")
	require.NoError(t, err)
	if reset.Code != "000000" {
		assert.Equal(t, OutcomeNotMatched, outcome)
	}

	outcome, err = svc.CheckResetCode(ctx, reset.ID, reset.Code)
	require.NoError(t, err)
	assert.Equal(t, OutcomeMatched, outcome)

	require.NoError(t, svc.UpdatePassword(ctx, reset.ID, "newpassword"))

	// The reset record is consumed and the new password works.
	_, err = svc.CheckResetCode(ctx, reset.ID, reset.Code)
	require.NoError(t, err)
	_, _, err = svc.LogIn(ctx, "alice@example.com", "newpassword")
	require.NoError(t, err)
	_, _, err = svc.LogIn(ctx, "alice@example.com", "hunter22")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	svc, _, _, _ := newAuthFixture()

	outcome, reset, err := svc.RequestPasswordReset(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotMatched, outcome)
	assert.Nil(t, reset)
}

func TestExpiredResetCode(t *testing.T) {
	svc, _, resets, _ := newAuthFixture()
	ctx := context.Background()

	_, err := svc.SignUp(ctx, signUpRequest("alice@example.com"), nil)
	require.NoError(t, err)
	_, reset, err := svc.RequestPasswordReset(ctx, "alice@example.com")
	require.NoError(t, err)

	reset.ExpiresAt = time.Now().Add(-time.Minute)

	outcome, err := svc.CheckResetCode(ctx, reset.ID, reset.Code)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotMatched, outcome)

	// Expiry consumed the record.
	_, err = resets.GetByID(ctx, reset.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

type fakeVerifier struct {
	uid string
	err error
}

func (v *fakeVerifier) VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error) {
	if v.err != nil {
		return nil, v.err
	}
	return &fbauth.Token{UID: v.uid}, nil
}

func TestGoogleSignUpAndLogIn(t *testing.T) {
	users := newFakeUserRepo()
	verifier := &fakeVerifier{uid: "firebase-uid-1"}
	svc := NewAuthService(users, newFakeResetRepo(), newFakeBlobStore(), &fakeMailer{}, verifier, "test-secret", "http://localhost:8080")
	ctx := context.Background()

	token, user, err := svc.GoogleSignUp(ctx, &models.GoogleSignUpRequest{
		Username: "alice",
		Email:    "alice@example.com",
		IDToken:  "firebase-id-token",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, user.EmailConfirmed, "Google accounts arrive verified")
	require.NotNil(t, user.FirebaseUID)
	assert.Equal(t, "firebase-uid-1", *user.FirebaseUID)

	token, loggedIn, err := svc.GoogleLogIn(ctx, "firebase-id-token")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, user.ID, loggedIn.ID)

	verifier.err = errors.New("expired")
	_, _, err = svc.GoogleLogIn(ctx, "firebase-id-token")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestRequestResetReplacesPrevious(t *testing.T) {
	svc, _, resets, _ := newAuthFixture()
	ctx := context.Background()

	_, err := svc.SignUp(ctx, signUpRequest("alice@example.com"), nil)
	require.NoError(t, err)

	_, first, err := svc.RequestPasswordReset(ctx, "alice@example.com")
	require.NoError(t, err)
	_, second, err := svc.RequestPasswordReset(ctx, "alice@example.com")
	require.NoError(t, err)

	_, err = resets.GetByID(ctx, first.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound, "older reset must be discarded")
	_, err = resets.GetByID(ctx, second.ID)
	assert.NoError(t, err)
}
