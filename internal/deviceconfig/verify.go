package deviceconfig

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/muurk/espcfg/internal/logging"
	"github.com/muurk/espcfg/internal/protocol"
)

// VerificationOptions configures how a restore is checked against the
// device
type VerificationOptions struct {
	// MaxRetries is the maximum number of verification attempts
	// Default: 3
	MaxRetries int

	// InitialDelay gives the device time to store the settings
	// Default: 2s
	InitialDelay time.Duration

	// RetryDelay is the delay between retry attempts
	// Default: 1s
	RetryDelay time.Duration

	// UseExponentialBackoff doubles each retry delay up to MaxRetryDelay
	// Default: true
	UseExponentialBackoff bool

	// MaxRetryDelay is the maximum delay between retries when using exponential backoff
	// Default: 5s
	MaxRetryDelay time.Duration
}

// DefaultVerificationOptions returns sensible defaults for verification
func DefaultVerificationOptions() *VerificationOptions {
	return &VerificationOptions{
		MaxRetries:            3,
		InitialDelay:          2 * time.Second,
		RetryDelay:            1 * time.Second,
		UseExponentialBackoff: true,
		MaxRetryDelay:         5 * time.Second,
	}
}

// VerificationResult contains the results of a restore verification
type VerificationResult struct {
	// Success indicates whether verification succeeded
	Success bool

	// Attempts is the number of attempts made
	Attempts int

	// Mismatches lists every setting that differs, sorted
	Mismatches []string

	// Error is any error that occurred during verification
	Error error
}

// String returns a one-line summary.
func (r *VerificationResult) String() string {
	if r.Success {
		return fmt.Sprintf("verified in %d attempt(s)", r.Attempts)
	}
	if r.Error != nil {
		return fmt.Sprintf("verification failed after %d attempt(s): %v", r.Attempts, r.Error)
	}
	return fmt.Sprintf("%d setting(s) differ after %d attempt(s)", len(r.Mismatches), r.Attempts)
}

// CompareSettings lists the settings of expected that actual lacks or holds
// with a different value. Identity keys are skipped. Values are compared
// by their text form since the firmware stores every setting as a string.
func CompareSettings(expected, actual map[string]any) []string {
	var mismatches []string
	for key, want := range expected {
		if lo.Contains(identityKeys, key) {
			continue
		}
		got, ok := actual[key]
		if !ok {
			mismatches = append(mismatches, fmt.Sprintf("%s: missing on device", key))
			continue
		}
		if stringValue(got) != stringValue(want) {
			mismatches = append(mismatches, fmt.Sprintf("%s: expected %q, got %q", key, stringValue(want), stringValue(got)))
		}
	}
	sort.Strings(mismatches)
	return mismatches
}

// VerifyRestore downloads the device backup until it carries every
// setting of expected, or the attempts are exhausted.
func (c *Client) VerifyRestore(ctx context.Context, expected map[string]any, opts *VerificationOptions) *VerificationResult {
	if opts == nil {
		opts = DefaultVerificationOptions()
	}

	result := &VerificationResult{Mismatches: []string{}}
	if !sleepCtx(ctx, opts.InitialDelay) {
		result.Error = ctx.Err()
		return result
	}

	currentDelay := opts.RetryDelay
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if !sleepCtx(ctx, currentDelay) {
				result.Error = ctx.Err()
				return result
			}
			if opts.UseExponentialBackoff {
				currentDelay *= 2
				if currentDelay > opts.MaxRetryDelay {
					currentDelay = opts.MaxRetryDelay
				}
			}
		}
		result.Attempts++

		raw, err := c.DownloadBackup(ctx)
		if err != nil {
			result.Error = err
			continue
		}
		actual, err := protocol.DecodeBackup(raw)
		if err != nil {
			result.Error = NewParseError("invalid backup during verification", err)
			continue
		}

		result.Error = nil
		result.Mismatches = CompareSettings(expected, actual)
		if len(result.Mismatches) == 0 {
			result.Success = true
			return result
		}
		logging.Debug("Restore not yet visible on device",
			zap.Int("attempt", result.Attempts),
			zap.Int("mismatches", len(result.Mismatches)),
		)
	}

	return result
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
