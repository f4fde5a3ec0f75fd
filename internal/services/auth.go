package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/circlehub/backend/internal/apperror"
	"github.com/circlehub/backend/internal/blobstore"
	"github.com/circlehub/backend/internal/mailer"
	"github.com/circlehub/backend/internal/models"
	"github.com/circlehub/backend/internal/repositories"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const resetCodeTTL = 10 * time.Minute

// TokenVerifier is the slice of the Firebase auth client the service needs.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// AuthService covers account flows: signup with email confirmation, Google
// sign-in via Firebase ID tokens, JWT issuance, logout blacklisting, and
// the password-reset code dance.
type AuthService struct {
	users     repositories.UserRepository
	resets    repositories.PasswordResetRepository
	blobs     blobstore.Store
	mail      mailer.Mailer
	verifier  TokenVerifier
	jwtSecret string
	baseURL   string

	mu          sync.Mutex
	blacklisted map[string]struct{}
}

func NewAuthService(
	users repositories.UserRepository,
	resets repositories.PasswordResetRepository,
	blobs blobstore.Store,
	mail mailer.Mailer,
	verifier TokenVerifier,
	jwtSecret, baseURL string,
) *AuthService {
	return &AuthService{
		users:       users,
		resets:      resets,
		blobs:       blobs,
		mail:        mail,
		verifier:    verifier,
		jwtSecret:   jwtSecret,
		baseURL:     baseURL,
		blacklisted: map[string]struct{}{},
	}
}

// SignUp creates the account and sends the confirmation email. The
// duplicate-email check happens inside the insert transaction, so a racing
// signup with the same address loses cleanly with ErrDuplicateEmail.
func (s *AuthService) SignUp(ctx context.Context, req *models.SignUpRequest, profileImage []byte) (*models.User, error) {
	if req.Password != req.ReenterPassword {
		return nil, apperror.Conflict("Passwords do not match")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		Birthdate:    req.Birthdate,
		Age:          req.Age,
		PhoneNumber:  req.PhoneNumber,
		PasswordHash: string(hash),
	}
	if len(profileImage) > 0 {
		ref, err := s.blobs.Put(ctx, "profile", profileImage)
		if err != nil {
			return nil, err
		}
		user.ProfileImageRef = ref
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	params := map[string]string{
		"username":    user.Username,
		"confirm_url": fmt.Sprintf("%s/confirm-email?userid=%d", s.baseURL, user.ID),
	}
	if err := s.mail.Send(ctx, user.Email, mailer.TemplateConfirmSignup, params); err != nil {
		// The account exists; confirmation can be re-requested.
		log.Printf("Failed to send confirmation email to %s: %v", user.Email, err)
	}
	return user, nil
}

// ConfirmEmail is the callback target of the confirmation link.
func (s *AuthService) ConfirmEmail(ctx context.Context, userID int64) error {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return err
	}
	return s.users.SetEmailConfirmed(ctx, userID)
}

// LogIn checks the password and issues a JWT.
func (s *AuthService) LogIn(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", nil, apperror.Unauthorized("Invalid email or password")
		}
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, apperror.Unauthorized("Invalid email or password")
	}
	token, err := s.generateJWT(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// GoogleSignUp verifies the Firebase ID token and creates the linked account.
func (s *AuthService) GoogleSignUp(ctx context.Context, req *models.GoogleSignUpRequest) (string, *models.User, error) {
	token, err := s.verifier.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		return "", nil, apperror.Unauthorized("Invalid or expired ID token")
	}
	uid := token.UID
	user := &models.User{
		Username:       req.Username,
		Email:          req.Email,
		EmailConfirmed: true, // Google accounts arrive verified
		FirebaseUID:    &uid,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return "", nil, err
	}
	jwtToken, err := s.generateJWT(user)
	if err != nil {
		return "", nil, err
	}
	return jwtToken, user, nil
}

// GoogleLogIn verifies the Firebase ID token and issues a JWT for the
// already-linked account.
func (s *AuthService) GoogleLogIn(ctx context.Context, idToken string) (string, *models.User, error) {
	token, err := s.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", nil, apperror.Unauthorized("Invalid or expired ID token")
	}
	user, err := s.users.GetUserByFirebaseUID(ctx, token.UID)
	if err != nil {
		return "", nil, err
	}
	jwtToken, err := s.generateJWT(user)
	if err != nil {
		return "", nil, err
	}
	return jwtToken, user, nil
}

// Logout blacklists the bearer token until process restart.
func (s *AuthService) Logout(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blacklisted[token] = struct{}{}
}

func (s *AuthService) IsBlacklisted(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blacklisted[token]
	return ok
}

// RequestPasswordReset mints a 6-digit code and emails it. An unknown email
// reports OutcomeNotMatched rather than an error.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (Outcome, *models.PasswordReset, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return OutcomeNotMatched, nil, nil
		}
		return OutcomeNotMatched, nil, err
	}
	if err := s.resets.DeleteForUser(ctx, user.ID); err != nil {
		return OutcomeNotMatched, nil, err
	}
	reset := &models.PasswordReset{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Code:      randomCode(),
		ExpiresAt: time.Now().Add(resetCodeTTL),
	}
	if err := s.resets.Create(ctx, reset); err != nil {
		return OutcomeNotMatched, nil, err
	}
	params := map[string]string{"username": user.Username, "code": reset.Code}
	if err := s.mail.Send(ctx, user.Email, mailer.TemplateResetCode, params); err != nil {
		return OutcomeNotMatched, nil, err
	}
	return OutcomeMatched, reset, nil
}

// CheckResetCode compares the submitted code. Expired records are removed
// and report notmatched.
func (s *AuthService) CheckResetCode(ctx context.Context, resetID, code string) (Outcome, error) {
	reset, err := s.resets.GetByID(ctx, resetID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return OutcomeNotMatched, nil
		}
		return OutcomeNotMatched, err
	}
	if time.Now().After(reset.ExpiresAt) {
		if err := s.resets.Delete(ctx, resetID); err != nil {
			return OutcomeNotMatched, err
		}
		return OutcomeNotMatched, nil
	}
	if reset.Code != code {
		return OutcomeNotMatched, nil
	}
	return OutcomeMatched, nil
}

// UpdatePassword consumes the reset record, stores the new hash, and sends
// the changed-password notice.
func (s *AuthService) UpdatePassword(ctx context.Context, resetID, newPassword string) error {
	reset, err := s.resets.GetByID(ctx, resetID)
	if err != nil {
		return err
	}
	if time.Now().After(reset.ExpiresAt) {
		if err := s.resets.Delete(ctx, resetID); err != nil {
			return err
		}
		return apperror.Conflict("password reset expired")
	}
	user, err := s.users.GetUserByID(ctx, reset.UserID)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, string(hash)); err != nil {
		return err
	}
	if err := s.resets.Delete(ctx, resetID); err != nil {
		return err
	}
	params := map[string]string{"username": user.Username}
	if err := s.mail.Send(ctx, user.Email, mailer.TemplateResetSucceeded, params); err != nil {
		log.Printf("Failed to send password-changed email to %s: %v", user.Email, err)
	}
	return nil
}

// ExpireReset discards an outstanding reset attempt (the client abandoned
// the flow).
func (s *AuthService) ExpireReset(ctx context.Context, resetID string) error {
	return s.resets.Delete(ctx, resetID)
}

func (s *AuthService) generateJWT(user *models.User) (string, error) {
	claims := &models.JwtCustomClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(72 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// randomCode returns six random decimal digits.
func randomCode() string {
	var buf [6]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(err)
	}
	digits := make([]byte, 6)
	for i, b := range buf {
		digits[i] = '0' + b%10
	}
	return string(digits)
}
