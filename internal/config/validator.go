package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-playground/validator/v10"

	lerrors "github.com/standardbeagle/jslibsig/internal/errors"
)

var (
	structValidate     *validator.Validate
	structValidateOnce sync.Once
)

func validate() *validator.Validate {
	structValidateOnce.Do(func() {
		structValidate = validator.New()
		if err := structValidate.RegisterValidation("mult64", validateMultipleOf64); err != nil {
			panic(fmt.Sprintf("register mult64 validation: %v", err))
		}
	})
	return structValidate
}

// validateMultipleOf64 checks that a hash width fills whole uint64 words.
func validateMultipleOf64(fl validator.FieldLevel) bool {
	return fl.Field().Int()%64 == 0
}

// Validator checks a configuration and fills in values derived from the host.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates every section and applies smart defaults.
// The first failing field is returned as a ConfigError.
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if cfg == nil {
		return lerrors.NewConfigError("config", "", errors.New("configuration is nil"))
	}
	v.setSmartDefaults(cfg)

	sections := []struct {
		name string
		val  any
	}{
		{"store", &cfg.Store},
		{"index", &cfg.Index},
		{"recognize", &cfg.Recognize},
		{"signature", &cfg.Signature},
	}
	for _, s := range sections {
		if err := validate().Struct(s.val); err != nil {
			return fieldError(s.name, err)
		}
	}

	for _, p := range append(append([]string{}, cfg.Index.Include...), cfg.Index.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return lerrors.NewConfigError("index.patterns", p, errors.New("invalid glob pattern"))
		}
	}
	return nil
}

// fieldError converts the first validator failure into a ConfigError.
func fieldError(section string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := section + "." + fe.Field()
		msg := fmt.Errorf("failed %q constraint", strings.TrimSpace(fe.Tag()+" "+fe.Param()))
		return lerrors.NewConfigError(field, fmt.Sprint(fe.Value()), msg)
	}
	return lerrors.NewConfigError(section, "", err)
}

func (v *Validator) setSmartDefaults(cfg *Config) {
	if cfg.Recognize.MatchWorkers == 0 {
		cfg.Recognize.MatchWorkers = runtime.NumCPU()
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = DefaultStoreBackend
	}
	cfg.Store.Backend = strings.ToLower(cfg.Store.Backend)
	if cfg.Signature.Seed == 0 {
		cfg.Signature.Seed = DefaultSignatureSeed
	}
}

// ValidateConfig is a convenience wrapper around Validator.
func ValidateConfig(cfg *Config) error {
	return NewValidator().ValidateAndSetDefaults(cfg)
}
