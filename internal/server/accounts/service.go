// Package accounts contains the account lifecycle logic: sign-up, login,
// profile access, and the multi-stage account deletion orchestrator.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/detailerapp/backend/internal/common"
	"github.com/detailerapp/backend/internal/logging"
	"github.com/detailerapp/backend/internal/retry"
	"github.com/detailerapp/backend/internal/server/auth"
	"github.com/detailerapp/backend/internal/server/blob"
	"github.com/detailerapp/backend/internal/server/docstore"
	"github.com/detailerapp/backend/internal/server/identity"
	"github.com/detailerapp/backend/internal/server/metrics"
	"github.com/detailerapp/backend/internal/server/models"
)

// Deletion stage names. They appear in error messages and metrics labels,
// so support tooling depends on them staying stable.
const (
	StageMessages    = "messages"
	StageAttachments = "attachments"
	StageProfile     = "profile"
	StageEmailIndex  = "email-index"
	StageIdentity    = "identity"
)

// identityDeleteAttempts bounds the retry on the final deletion stage.
// Attempts are immediate, with no backoff between them.
const identityDeleteAttempts = 3

// StageError reports which deletion stage failed. Stages after the failed
// one have not run; stages before it have completed and stay completed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("account deletion failed at stage %q: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Service implements account lifecycle operations on top of the document
// store, the authentication store, and the upload bucket.
type Service struct {
	store         docstore.Store
	idents        identity.Store
	objects       blob.ObjectStore
	jwtSecret     []byte
	tokenValidity time.Duration
	logger        logging.Logger
}

func NewService(store docstore.Store, idents identity.Store, objects blob.ObjectStore, jwtSecret []byte, tokenValidity time.Duration, logger logging.Logger) *Service {
	return &Service{
		store:         store,
		idents:        idents,
		objects:       objects,
		jwtSecret:     jwtSecret,
		tokenValidity: tokenValidity,
		logger:        logger.With("component", "accounts"),
	}
}

// SignUpRequest carries the registration form. Email and password are
// required; the rest is profile data stored as-is.
type SignUpRequest struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	PhoneNumber string
	Birthday    *time.Time
	SchoolName  string
	UserType    string
}

// SignUp registers a credential record and writes the profile document plus
// both email-index records. Returns common.ErrorAlreadyExists when the
// email is taken.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*models.UserAccount, error) {
	if req.Email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", common.ErrorValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	uid := uuid.NewString()
	if err := s.idents.Create(ctx, &identity.Identity{UID: uid, Email: req.Email, PasswordHash: hash}); err != nil {
		return nil, err
	}

	account := &models.UserAccount{
		UID:         uid,
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Birthday:    req.Birthday,
		SchoolName:  req.SchoolName,
		UserType:    req.UserType,
	}
	if err := s.store.Set(ctx, models.CollectionUserData, uid, account.Fields()); err != nil {
		return nil, fmt.Errorf("writing profile document: %w", err)
	}

	index := models.EmailIndexFields(req.Email, uid)
	for _, collection := range models.IndexCollections {
		if err := s.store.Set(ctx, collection, req.Email, index); err != nil {
			return nil, fmt.Errorf("writing email index '%s': %w", collection, err)
		}
	}

	s.logger.Info(ctx, "account created", "uid", uid)
	return account, nil
}

// Login verifies credentials and mints an access token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	ident, err := s.idents.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorUnauthorized
		}
		return "", common.ErrorInternal
	}
	if bcrypt.CompareHashAndPassword(ident.PasswordHash, []byte(password)) != nil {
		return "", common.ErrorUnauthorized
	}
	return auth.GenerateToken(ident.UID, s.jwtSecret, s.tokenValidity)
}

// EmailRegistered reports whether an account exists for the given email.
func (s *Service) EmailRegistered(ctx context.Context, email string) (bool, error) {
	_, err := s.store.Get(ctx, models.CollectionEmailToUID, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetProfile returns the profile document for uid.
func (s *Service) GetProfile(ctx context.Context, uid string) (*models.UserAccount, error) {
	doc, err := s.store.Get(ctx, models.CollectionUserData, uid)
	if err != nil {
		return nil, err
	}
	return models.AccountFromFields(doc.Fields), nil
}

// profileFields is the set of attributes the app may change after sign-up.
var profileFields = map[string]struct{}{
	models.FieldFirstName:   {},
	models.FieldLastName:    {},
	models.FieldPhoneNumber: {},
	models.FieldBirthday:    {},
	models.FieldSchoolName:  {},
	models.FieldUserType:    {},
}

// UpdateProfile merges the given attributes into the profile document.
// Unknown attributes and identity fields (uid, email) are rejected.
func (s *Service) UpdateProfile(ctx context.Context, uid string, fields map[string]any) error {
	if len(fields) == 0 {
		return fmt.Errorf("%w: no fields to update", common.ErrorValidation)
	}
	for name := range fields {
		if _, ok := profileFields[name]; !ok {
			return fmt.Errorf("%w: field '%s' is not updatable", common.ErrorValidation, name)
		}
	}
	return s.store.Update(ctx, models.CollectionUserData, uid, fields)
}

// RegisterDeliveryToken stores the push delivery token on the profile
// document. An empty token clears it, which stops future notifications.
func (s *Service) RegisterDeliveryToken(ctx context.Context, uid, token string) error {
	return s.store.Update(ctx, models.CollectionUserData, uid, map[string]any{
		models.FieldDeliveryToken: token,
	})
}

// DeleteAccount removes every server-side trace of the user, in order:
// owned messages, uploaded attachments, the profile document, the
// email-index records, and finally the credential record. The sequence is
// fail-fast: the first failing stage aborts the rest, and the returned
// StageError names it. Every stage tolerates already-deleted data, so the
// whole operation can be re-run after a partial failure.
func (s *Service) DeleteAccount(ctx context.Context, uid string) error {
	log := s.logger.With("uid", uid)

	if err := s.deleteOwnedMessages(ctx, uid); err != nil {
		return s.stageFailure(ctx, log, StageMessages, err)
	}
	log.Debug(ctx, "deletion stage complete", "stage", StageMessages)

	if err := s.objects.DeletePrefix(ctx, blob.UserPrefix(uid)); err != nil {
		return s.stageFailure(ctx, log, StageAttachments, err)
	}
	log.Debug(ctx, "deletion stage complete", "stage", StageAttachments)

	if err := s.store.Delete(ctx, models.CollectionUserData, uid); err != nil {
		return s.stageFailure(ctx, log, StageProfile, err)
	}
	log.Debug(ctx, "deletion stage complete", "stage", StageProfile)

	if err := s.deleteEmailIndexRecords(ctx, uid); err != nil {
		return s.stageFailure(ctx, log, StageEmailIndex, err)
	}
	log.Debug(ctx, "deletion stage complete", "stage", StageEmailIndex)

	err := retry.Do(ctx, identityDeleteAttempts, func(ctx context.Context) error {
		return s.idents.Delete(ctx, uid)
	})
	if err != nil {
		return s.stageFailure(ctx, log, StageIdentity, err)
	}

	metrics.AccountsDeleted.Inc()
	log.Info(ctx, "account deleted")
	return nil
}

func (s *Service) deleteOwnedMessages(ctx context.Context, uid string) error {
	docs, err := s.store.Query(ctx, models.CollectionMessages, models.FieldFromUID, uid)
	if err != nil {
		return fmt.Errorf("querying owned messages: %w", err)
	}
	if len(docs) == 0 {
		return nil
	}
	if err := s.store.BatchDelete(ctx, docs); err != nil {
		return fmt.Errorf("deleting %d messages: %w", len(docs), err)
	}
	return nil
}

// deleteEmailIndexRecords sweeps every index collection by reverse lookup
// on the uid field. Each collection's records go in one batch; batches are
// independent of each other.
func (s *Service) deleteEmailIndexRecords(ctx context.Context, uid string) error {
	for _, collection := range models.IndexCollections {
		docs, err := s.store.Query(ctx, collection, models.FieldUID, uid)
		if err != nil {
			return fmt.Errorf("querying index '%s': %w", collection, err)
		}
		if len(docs) == 0 {
			continue
		}
		if err := s.store.BatchDelete(ctx, docs); err != nil {
			return fmt.Errorf("deleting %d records from index '%s': %w", len(docs), collection, err)
		}
	}
	return nil
}

func (s *Service) stageFailure(ctx context.Context, log logging.Logger, stage string, err error) error {
	metrics.AccountDeletionFailed.WithLabelValues(stage).Inc()
	log.Error(ctx, "account deletion aborted", "stage", stage, "error", err)
	return &StageError{Stage: stage, Err: err}
}
