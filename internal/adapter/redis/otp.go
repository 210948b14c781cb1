package redis

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/neomorfeo/talladmin/internal/domain"
)

var _ domain.OTPService = (*OTPService)(nil)

const (
	otpKeyPrefix      = "otp:code:"
	cooldownKeyPrefix = "otp:cooldown:"
	otpDigits         = 6
	maxWatchRetries   = 4
)

// OTPOptions tunes code lifetime and abuse limits.
type OTPOptions struct {
	TTL         time.Duration
	Cooldown    time.Duration
	MaxAttempts int
}

// DefaultOTPOptions returns a ten minute code, five verification attempts
// and a resend cooldown one second shorter than the flow's countdown, so a
// flow whose countdown reached zero is never refused.
func DefaultOTPOptions() OTPOptions {
	return OTPOptions{
		TTL:         10 * time.Minute,
		Cooldown:    (domain.OTPResendCooldown - 1) * time.Second,
		MaxAttempts: 5,
	}
}

// OTPService stores hashed one-time codes in Redis and hands the plaintext
// code to a CodeSender for delivery.
type OTPService struct {
	rdb    *goredis.Client
	sender domain.CodeSender
	opts   OTPOptions
	now    func() time.Time
}

// NewOTPService creates an OTP service. Zero option fields take their defaults.
func NewOTPService(rdb *goredis.Client, sender domain.CodeSender, opts OTPOptions) *OTPService {
	def := DefaultOTPOptions()
	if opts.TTL <= 0 {
		opts.TTL = def.TTL
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = def.Cooldown
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	return &OTPService{rdb: rdb, sender: sender, opts: opts, now: time.Now}
}

func codeKey(channel string) string     { return otpKeyPrefix + channel }
func cooldownKey(channel, scope string) string {
	return cooldownKeyPrefix + channel + ":" + scope
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

// Send issues a new code for channel, replacing any previous one. It fails
// with domain.ErrResendCooldown while the same scope's previous issuance is
// too recent. Other scopes for the same channel are not held back.
func (s *OTPService) Send(ctx context.Context, channel, scope string) (domain.OTPIssue, error) {
	cooldown := cooldownKey(channel, scope)
	ok, err := s.rdb.SetNX(ctx, cooldown, 1, s.opts.Cooldown).Result()
	if err != nil {
		return domain.OTPIssue{}, fmt.Errorf("setting resend cooldown: %w", err)
	}
	if !ok {
		return domain.OTPIssue{}, domain.ErrResendCooldown
	}

	code, err := generateCode()
	if err != nil {
		return domain.OTPIssue{}, fmt.Errorf("generating code: %w", err)
	}

	issuedAt := s.now().UTC()
	issue := domain.OTPIssue{IssuedAt: issuedAt, ExpiresAt: issuedAt.Add(s.opts.TTL)}

	key := codeKey(channel)
	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, "hash", hashCode(code), "attempts", 0)
		pipe.Expire(ctx, key, s.opts.TTL)
		return nil
	})
	if err != nil {
		s.rdb.Del(ctx, cooldown)
		return domain.OTPIssue{}, fmt.Errorf("storing code: %w", err)
	}

	if err := s.sender.SendCode(ctx, channel, code, issue.ExpiresAt); err != nil {
		s.rdb.Del(ctx, key, cooldown)
		return domain.OTPIssue{}, fmt.Errorf("delivering code: %w", err)
	}

	return issue, nil
}

// Verify checks code against the stored hash. A matching code is consumed.
// A wrong code counts as an attempt; the last allowed attempt burns the code.
func (s *OTPService) Verify(ctx context.Context, channel, code string) error {
	key := codeKey(channel)
	provided := hashCode(code)

	for range maxWatchRetries {
		err := s.rdb.Watch(ctx, func(tx *goredis.Tx) error {
			fields, err := tx.HGetAll(ctx, key).Result()
			if err != nil {
				return err
			}
			stored, found := fields["hash"]
			if !found {
				return domain.ErrOTPExpired
			}

			if subtle.ConstantTimeCompare([]byte(stored), []byte(provided)) == 1 {
				_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				return err
			}

			attempts, _ := strconv.Atoi(fields["attempts"])
			attempts++
			if attempts >= s.opts.MaxAttempts {
				_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return domain.ErrRateLimited
			}

			_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				pipe.HSet(ctx, key, "attempts", attempts)
				return nil
			})
			if err != nil {
				return err
			}
			return domain.ErrInvalidOTP
		}, key)

		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		switch {
		case err == nil:
			return nil
		case errors.Is(err, domain.ErrOTPExpired), errors.Is(err, domain.ErrInvalidOTP), errors.Is(err, domain.ErrRateLimited):
			return err
		default:
			return fmt.Errorf("verifying code: %w", err)
		}
	}

	return fmt.Errorf("verifying code: %w", goredis.TxFailedErr)
}
