package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"math/big"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/siddharthsadhu/BookMyLook-sub003/internal/models"
)

const (
	codeTTL     = 5 * time.Minute
	rateWindow  = time.Hour
	maxRequests = 3
)

const (
	PurposeLogin    = "login"
	PurposeRegister = "register"
)

var (
	ErrInvalidPhone   = errors.New("invalid phone number")
	ErrNotFound       = errors.New("no pending code")
	ErrExpired        = errors.New("code expired")
	ErrMismatch       = errors.New("code mismatch")
	ErrDeliveryFailed = errors.New("code delivery failed")
)

// RateLimitedError reports how long the caller must wait before another
// code can be issued for the phone.
type RateLimitedError struct {
	RetryAfter int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many requests, retry after %ds", e.RetryAfter)
}

// Indian mobile numbers: +91 followed by ten digits starting 6-9.
var phonePattern = regexp.MustCompile(`^\+91[6-9][0-9]{9}$`)

// Notifier dispatches a code to a phone. Best effort; the service treats
// it as opaque.
type Notifier interface {
	Send(ctx context.Context, phone, code string) error
}

// Directory resolves phones to accounts for login verification.
type Directory interface {
	FindUserByPhone(ctx context.Context, phone string) (models.User, bool, error)
}

type Service struct {
	store     Store
	notifier  Notifier
	directory Directory
	now       func() time.Time
	locks     [64]sync.Mutex
}

func NewService(store Store, notifier Notifier, directory Directory) *Service {
	return &Service{
		store:     store,
		notifier:  notifier,
		directory: directory,
		now:       time.Now,
	}
}

// lock returns the stripe guarding a phone. Read-check-write sequences
// for the same phone must not interleave.
func (s *Service) lock(phone string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(phone))
	return &s.locks[h.Sum32()%uint32(len(s.locks))]
}

type SendResult struct {
	ExpiresIn int
}

func (s *Service) RequestCode(ctx context.Context, phone, purpose string) (SendResult, error) {
	phone = strings.TrimSpace(phone)
	if !phonePattern.MatchString(phone) {
		return SendResult{}, ErrInvalidPhone
	}

	mu := s.lock(phone)
	mu.Lock()
	defer mu.Unlock()

	now := s.now().UTC()
	attempts := 0
	existing, ok, err := s.store.Get(ctx, phone)
	if err != nil {
		return SendResult{}, err
	}
	if ok {
		since := now.Sub(existing.ExpiresAt)
		if since < rateWindow {
			if existing.Attempts >= maxRequests {
				remaining := int((rateWindow - since).Seconds())
				if remaining < 1 {
					remaining = 1
				}
				if remaining > int(rateWindow.Seconds()) {
					remaining = int(rateWindow.Seconds())
				}
				return SendResult{}, &RateLimitedError{RetryAfter: remaining}
			}
			attempts = existing.Attempts
		}
		// A fully elapsed window resets the issuance counter.
	}

	code, err := generateCode()
	if err != nil {
		return SendResult{}, err
	}

	entry := Entry{
		Phone:     phone,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: now.Add(codeTTL),
		Attempts:  attempts + 1,
	}
	if err := s.store.Set(ctx, entry); err != nil {
		return SendResult{}, err
	}

	if err := s.notifier.Send(ctx, phone, code); err != nil {
		// Entry stays stored; a retry within the rate window reuses it.
		log.Printf("otp delivery failed phone=%s: %v", phone, err)
		return SendResult{}, ErrDeliveryFailed
	}

	return SendResult{ExpiresIn: int(codeTTL.Seconds())}, nil
}

type VerifyResult struct {
	UserExists bool
	User       models.User
}

func (s *Service) VerifyCode(ctx context.Context, phone, code, purpose string) (VerifyResult, error) {
	phone = strings.TrimSpace(phone)

	mu := s.lock(phone)
	mu.Lock()
	defer mu.Unlock()

	entry, ok, err := s.store.Get(ctx, phone)
	if err != nil {
		return VerifyResult{}, err
	}
	if !ok || entry.Purpose != purpose {
		return VerifyResult{}, ErrNotFound
	}
	if s.now().UTC().After(entry.ExpiresAt) {
		if err := s.store.Delete(ctx, phone); err != nil {
			return VerifyResult{}, err
		}
		return VerifyResult{}, ErrExpired
	}
	if entry.Code != code {
		return VerifyResult{}, ErrMismatch
	}

	// Single use.
	if err := s.store.Delete(ctx, phone); err != nil {
		return VerifyResult{}, err
	}

	result := VerifyResult{}
	if purpose == PurposeLogin {
		user, exists, err := s.directory.FindUserByPhone(ctx, phone)
		if err != nil {
			return result, err
		}
		result.UserExists = exists
		result.User = user
	}
	return result, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
