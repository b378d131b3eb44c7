package policy

import (
	"log/slog"
	"testing"

	"github.com/daimoniac/erratadb/internal/types"
)

func securityAdvisory() *types.Advisory {
	return &types.Advisory{
		ID:       10201602872,
		Code:     "RHSA-2016:2872",
		Category: types.CategorySecurity,
		Severity: "Important",
		Packages: []types.Package{
			{Name: "kernel", Version: "3.10.0", Release: "123.el7", Arch: "x86_64"},
		},
	}
}

func TestEngine_Admit_DefaultExpressionAdmitsEverything(t *testing.T) {
	engine, err := NewEngine(slog.Default(), Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	admitted, err := engine.Admit(securityAdvisory(), "rhel-7-server-rpms")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !admitted {
		t.Errorf("expected default policy to admit, got rejected")
	}
}

func TestEngine_Admit_CategoryFilter(t *testing.T) {
	engine, err := NewEngine(slog.Default(), Config{
		Expression: `category == "security"`,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	admitted, err := engine.Admit(securityAdvisory(), "rhel-7-server-rpms")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !admitted {
		t.Errorf("expected security advisory to be admitted")
	}

	bugfix := securityAdvisory()
	bugfix.Code = "RHBA-2016:2423"
	bugfix.Category = types.CategoryBug

	admitted, err = engine.Admit(bugfix, "rhel-7-server-rpms")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if admitted {
		t.Errorf("expected bugfix advisory to be rejected")
	}
}

func TestEngine_Admit_SeverityAndPackageCount(t *testing.T) {
	engine, err := NewEngine(slog.Default(), Config{
		Expression: `severity == "Important" && packageCount > 0`,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	admitted, err := engine.Admit(securityAdvisory(), "rhel-7-server-rpms")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !admitted {
		t.Errorf("expected advisory to be admitted")
	}

	empty := securityAdvisory()
	empty.Packages = nil

	admitted, err = engine.Admit(empty, "rhel-7-server-rpms")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if admitted {
		t.Errorf("expected advisory without packages to be rejected")
	}
}

func TestNewEngine_RejectsNonBooleanExpression(t *testing.T) {
	if _, err := NewEngine(slog.Default(), Config{Expression: `advisoryCode`}); err == nil {
		t.Error("expected an error for a non-boolean expression")
	}
}

func TestNewEngine_RejectsInvalidExpression(t *testing.T) {
	if _, err := NewEngine(slog.Default(), Config{Expression: `nonexistent == 1`}); err == nil {
		t.Error("expected an error for an expression over unknown variables")
	}
}

func TestEngine_Admit_NilAdvisory(t *testing.T) {
	engine, err := NewEngine(slog.Default(), Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := engine.Admit(nil, "rhel-7-server-rpms"); err == nil {
		t.Error("expected an error for a nil advisory")
	}
}
