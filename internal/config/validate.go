package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrVarFileMissing is returned when the variables file does not exist.
var ErrVarFileMissing = errors.New("var file not found")

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	stageNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
)

// validatorInstance returns the shared validator used by Validate.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()
		_ = v.RegisterValidation("stage_name", func(fl validator.FieldLevel) bool {
			return stageNamePattern.MatchString(fl.Field().String())
		})
		validateInst = v
	})
	return validateInst
}

// Validate checks the configuration for errors. It runs the struct tag rules
// first, then the cross-field checks the tags cannot express.
func (c *Config) Validate() error {
	if err := validatorInstance().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return formatValidationErrors(verrs)
		}
		return err
	}

	if err := c.validateStages(); err != nil {
		return fmt.Errorf("stage validation failed: %w", err)
	}

	if err := c.validateState(); err != nil {
		return fmt.Errorf("state validation failed: %w", err)
	}

	if !c.SkipDeploy {
		if err := c.validateVarFiles(); err != nil {
			return err
		}
	}

	if c.Probe.Delay < 0 || c.Health.Delay < 0 {
		return fmt.Errorf("retry delays must not be negative")
	}

	return nil
}

func (c *Config) validateStages() error {
	seen := make(map[string]bool, len(c.Stages))
	for i, s := range c.Stages {
		if seen[s.Name] {
			return fmt.Errorf("duplicate stage name %q", s.Name)
		}
		seen[s.Name] = true

		if i == 0 && s.DependsOnPrevious {
			return fmt.Errorf("stage %q is first and cannot depend on a previous stage", s.Name)
		}
	}

	if _, ok := c.FindStage(c.Verify.TopologyStage); !ok {
		return fmt.Errorf("verify.topology_stage %q is not a configured stage", c.Verify.TopologyStage)
	}
	for stage := range c.Verify.RequiredOutputs {
		if !seen[stage] {
			return fmt.Errorf("verify.required_outputs names unknown stage %q", stage)
		}
	}
	return nil
}

func (c *Config) validateState() error {
	if c.State.Backend != "s3" {
		return nil
	}
	if c.State.S3.Bucket == "" {
		return fmt.Errorf("state.s3.bucket is required for the s3 backend")
	}
	if c.State.S3.Region == "" {
		return fmt.Errorf("state.s3.region is required for the s3 backend")
	}
	return nil
}

func (c *Config) validateVarFiles() error {
	checked := make(map[string]bool)
	for _, s := range c.Stages {
		path := c.StageVarFile(s)
		if checked[path] {
			continue
		}
		checked[path] = true
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%w: %s", ErrVarFileMissing, path)
		}
	}
	return nil
}

func formatValidationErrors(verrs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %q (%s)", field, fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s failed %q", field, fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
