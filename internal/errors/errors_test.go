package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestSourceUnavailableError(t *testing.T) {
	cause := errors.New("no such file or directory")
	err := NewSourceUnavailable("rhel-7-server-rpms", cause)

	if !IsSourceUnavailable(err) {
		t.Error("expected IsSourceUnavailable to be true")
	}
	if IsCorruptAdvisory(err) {
		t.Error("expected IsCorruptAdvisory to be false")
	}
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Error("expected errors.Is(err, ErrSourceUnavailable) to be true")
	}
	if !strings.Contains(err.Error(), "rhel-7-server-rpms") {
		t.Errorf("expected repo in message, got %q", err.Error())
	}
}

func TestMalformedIdentifierError(t *testing.T) {
	err := NewMalformedIdentifierf("RHSA2016:2872", "missing %q separator", "-")

	if !IsMalformedIdentifier(err) {
		t.Error("expected IsMalformedIdentifier to be true")
	}
	code, ok := AdvisoryCode(err)
	if !ok || code != "RHSA2016:2872" {
		t.Errorf("expected advisory code RHSA2016:2872, got %q (ok=%v)", code, ok)
	}
}

func TestCorruptAdvisoryError(t *testing.T) {
	t.Run("with code", func(t *testing.T) {
		err := NewCorruptAdvisoryf("RHBA-2016:2423", "missing pkglist node")
		if !IsCorruptAdvisory(err) {
			t.Error("expected IsCorruptAdvisory to be true")
		}
		code, ok := AdvisoryCode(err)
		if !ok || code != "RHBA-2016:2423" {
			t.Errorf("expected advisory code RHBA-2016:2423, got %q", code)
		}
	})

	t.Run("without code", func(t *testing.T) {
		err := NewCorruptAdvisory("", errors.New("missing references node"))
		code, ok := AdvisoryCode(err)
		if !ok || code != "Unknown" {
			t.Errorf("expected Unknown, got %q", code)
		}
		if !strings.Contains(err.Error(), "Unknown") {
			t.Errorf("expected Unknown in message, got %q", err.Error())
		}
	})

	t.Run("wrapped", func(t *testing.T) {
		err := fmt.Errorf("normalizing repo rhel-7-server-rpms: %w",
			NewCorruptAdvisoryf("RHSA-2016:2872", "bad references shape"))
		if !IsCorruptAdvisory(err) {
			t.Error("expected IsCorruptAdvisory to survive wrapping")
		}
		code, ok := AdvisoryCode(err)
		if !ok || code != "RHSA-2016:2872" {
			t.Errorf("expected advisory code through wrap, got %q", code)
		}
	})
}

func TestPersistenceError(t *testing.T) {
	cause := errors.New("UNIQUE constraint failed")
	err := NewPersistence("advisories", []interface{}{int64(10201602872), "RHSA-2016:2872"}, cause)

	if !IsPersistence(err) {
		t.Error("expected IsPersistence to be true")
	}
	if !errors.Is(err, ErrPersistence) {
		t.Error("expected errors.Is(err, ErrPersistence) to be true")
	}

	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatal("expected errors.As to find PersistenceError")
	}
	if perr.Table != "advisories" {
		t.Errorf("expected table advisories, got %q", perr.Table)
	}
	if !strings.Contains(err.Error(), "advisories") {
		t.Errorf("expected table in message, got %q", err.Error())
	}
}

func TestAdvisoryCodeOnUnrelatedError(t *testing.T) {
	if _, ok := AdvisoryCode(errors.New("plain")); ok {
		t.Error("expected no advisory code on unrelated error")
	}
}
