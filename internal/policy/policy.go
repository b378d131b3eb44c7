package policy

import (
	"fmt"
	"log/slog"

	"github.com/daimoniac/erratadb/internal/types"
	"github.com/google/cel-go/cel"
)

// Config defines a CEL-based admission policy over normalized advisories.
type Config struct {
	// Expression is the CEL expression that must evaluate to true for an
	// advisory to be admitted into the merge set.
	// Available variables:
	//   - advisoryCode: the human-readable code, e.g. "RHSA-2016:2872"
	//   - category: "security", "bug", "enhancement" or "other"
	//   - severity: the severity string as published, may be empty
	//   - packageCount: number of packages the advisory lists
	//   - repoID: the repository the advisory was read from
	Expression string `yaml:"expression" json:"expression"`

	// RejectionMessage is logged when the policy rejects an advisory (optional)
	RejectionMessage string `yaml:"rejectionMessage" json:"rejectionMessage"`
}

// Engine evaluates the admission policy using a compiled CEL program
type Engine struct {
	logger     *slog.Logger
	config     Config
	celProgram cel.Program
}

// NewEngine compiles the admission policy expression once. An empty
// expression admits everything.
func NewEngine(logger *slog.Logger, config Config) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if config.Expression == "" {
		config.Expression = "true"
	}

	env, err := cel.NewEnv(
		cel.Variable("advisoryCode", cel.StringType),
		cel.Variable("category", cel.StringType),
		cel.Variable("severity", cel.StringType),
		cel.Variable("packageCount", cel.IntType),
		cel.Variable("repoID", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(config.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile policy expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("policy expression must return a boolean, got %v", ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return &Engine{
		logger:     logger,
		config:     config,
		celProgram: program,
	}, nil
}

// Admit reports whether the advisory passes the admission policy.
func (e *Engine) Admit(adv *types.Advisory, repoID string) (bool, error) {
	if adv == nil {
		return false, fmt.Errorf("advisory is nil")
	}

	out, _, err := e.celProgram.Eval(map[string]interface{}{
		"advisoryCode": adv.Code,
		"category":     string(adv.Category),
		"severity":     adv.Severity,
		"packageCount": len(adv.Packages),
		"repoID":       repoID,
	})
	if err != nil {
		return false, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	admitted, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("policy expression did not return a boolean: %v", out.Value())
	}

	if !admitted {
		reason := e.config.RejectionMessage
		if reason == "" {
			reason = "rejected by admission policy"
		}
		e.logger.Info("advisory rejected",
			"advisory", adv.Code,
			"category", adv.Category,
			"severity", adv.Severity,
			"repo", repoID,
			"reason", reason)
	}

	return admitted, nil
}
