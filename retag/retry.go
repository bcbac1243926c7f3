// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package retag

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/autotag/core"
)

// Backoff runs an operation until it succeeds, fails permanently or runs out
// of attempts. The wait before attempt n+1 is Delay * 2^(n-1), capped at
// MaxDelay when MaxDelay is positive.
type Backoff struct {
	Attempts int
	Delay    time.Duration
	MaxDelay time.Duration
	Logger   *slog.Logger
}

// Do calls op until it returns nil or a permanent error, or until Attempts
// calls have failed. It returns the last error.
//
// Errors wrapping core.ErrModelUnavailable or core.ErrInput are permanent:
// neither a missing model nor a malformed document changes between attempts.
func (b Backoff) Do(ctx context.Context, op func(ctx context.Context) error) error {
	if b.Attempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var err error
	for attempt := 1; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err = op(ctx); err == nil || permanent(err) {
			return err
		}
		if attempt == b.Attempts {
			return err
		}

		wait := b.wait(attempt)
		logger.Debug("attempt failed, retrying", "attempt", attempt, "of", b.Attempts, "wait", wait, "err", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// wait returns the delay after the given failed attempt.
func (b Backoff) wait(attempt int) time.Duration {
	d := b.Delay
	for i := 1; i < attempt; i++ {
		d *= 2
		if b.MaxDelay > 0 && d >= b.MaxDelay {
			return b.MaxDelay
		}
	}
	if b.MaxDelay > 0 && d > b.MaxDelay {
		return b.MaxDelay
	}
	return d
}

func permanent(err error) bool {
	return errors.Is(err, core.ErrModelUnavailable) || errors.Is(err, core.ErrInput)
}
