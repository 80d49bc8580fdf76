package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	settingsKey = "smartcam:settings"

	MinCooldown = 2000 * time.Millisecond
	MaxCooldown = 2500 * time.Millisecond

	ThemeDark  = "dark"
	ThemeLight = "light"
)

var ErrInvalid = errors.New("invalid settings")

// Settings are the persisted capture preferences.
type Settings struct {
	SmileThreshold float64
	Cooldown       time.Duration
	AutoCapture    bool
	Theme          string
}

type Patch struct {
	SmileThreshold *float64
	Cooldown       *time.Duration
	AutoCapture    *bool
	Theme          *string
}

func (s Settings) Validate() error {
	if s.SmileThreshold <= 0 || s.SmileThreshold >= 1 {
		return fmt.Errorf("%w: smile threshold must be between 0 and 1", ErrInvalid)
	}
	if s.Cooldown < MinCooldown || s.Cooldown > MaxCooldown {
		return fmt.Errorf("%w: cooldown must be between %s and %s", ErrInvalid, MinCooldown, MaxCooldown)
	}
	if s.Theme != ThemeDark && s.Theme != ThemeLight {
		return fmt.Errorf("%w: theme must be %q or %q", ErrInvalid, ThemeDark, ThemeLight)
	}
	return nil
}

func (s Settings) Apply(p Patch) Settings {
	if p.SmileThreshold != nil {
		s.SmileThreshold = *p.SmileThreshold
	}
	if p.Cooldown != nil {
		s.Cooldown = *p.Cooldown
	}
	if p.AutoCapture != nil {
		s.AutoCapture = *p.AutoCapture
	}
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	return s
}

// Store keeps settings in a redis hash. Missing fields fall back to the
// defaults it was built with.
type Store struct {
	redis    *redis.Client
	defaults Settings
}

func NewStore(redisClient *redis.Client, defaults Settings) *Store {
	if defaults.Theme == "" {
		defaults.Theme = ThemeDark
	}
	return &Store{redis: redisClient, defaults: defaults}
}

func (s *Store) Defaults() Settings {
	return s.defaults
}

func (s *Store) Get(ctx context.Context) (Settings, error) {
	fields, err := s.redis.HGetAll(ctx, settingsKey).Result()
	if err != nil {
		return s.defaults, err
	}

	out := s.defaults
	if v, ok := fields["smile_threshold"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			out.SmileThreshold = f
		}
	}
	if v, ok := fields["cooldown_ms"]; ok {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			out.Cooldown = time.Duration(ms) * time.Millisecond
		}
	}
	if v, ok := fields["auto_capture"]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			out.AutoCapture = b
		}
	}
	if v, ok := fields["theme"]; ok && v != "" {
		out.Theme = v
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, p Patch) (Settings, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return current, err
	}

	next := current.Apply(p)
	if err := next.Validate(); err != nil {
		return current, err
	}

	err = s.redis.HSet(ctx, settingsKey,
		"smile_threshold", strconv.FormatFloat(next.SmileThreshold, 'f', -1, 64),
		"cooldown_ms", strconv.FormatInt(next.Cooldown.Milliseconds(), 10),
		"auto_capture", strconv.FormatBool(next.AutoCapture),
		"theme", next.Theme,
	).Err()
	if err != nil {
		return current, err
	}
	return next, nil
}
