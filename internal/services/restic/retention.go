package restic

import (
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/safestic/safestic/internal/errdefs"
	"github.com/safestic/safestic/internal/models"
)

// ValidatePolicy rejects inconsistent retention policies before any
// subprocess is spawned. An enabled policy with all keep counts at zero is
// ambiguous (keep nothing, or forgot to configure?) and must be fixed
// explicitly rather than guessed at.
func ValidatePolicy(policy models.RetentionPolicy) error {
	if !policy.Enabled {
		return errors.Mark(
			errors.New("retention is not enabled"),
			errdefs.ErrConfiguration)
	}
	for _, keep := range []int{policy.KeepHourly, policy.KeepDaily, policy.KeepWeekly, policy.KeepMonthly} {
		if keep < 0 {
			return errors.Mark(
				errors.New("retention keep counts must be non-negative"),
				errdefs.ErrConfiguration)
		}
	}
	if policy.KeepHourly == 0 && policy.KeepDaily == 0 && policy.KeepWeekly == 0 && policy.KeepMonthly == 0 {
		return errors.Mark(
			errors.New("retention is enabled but every keep count is zero"),
			errdefs.ErrConfiguration)
	}
	return nil
}

// PolicyArgs translates a retention policy into the engine's keep flags.
// Only positive buckets are emitted. Pure; no I/O.
func PolicyArgs(policy models.RetentionPolicy) ([]string, error) {
	if err := ValidatePolicy(policy); err != nil {
		return nil, err
	}

	var args []string
	if policy.KeepHourly > 0 {
		args = append(args, "--keep-hourly", strconv.Itoa(policy.KeepHourly))
	}
	if policy.KeepDaily > 0 {
		args = append(args, "--keep-daily", strconv.Itoa(policy.KeepDaily))
	}
	if policy.KeepWeekly > 0 {
		args = append(args, "--keep-weekly", strconv.Itoa(policy.KeepWeekly))
	}
	if policy.KeepMonthly > 0 {
		args = append(args, "--keep-monthly", strconv.Itoa(policy.KeepMonthly))
	}
	return args, nil
}
