package errors

import (
	"io"
	"testing"
)

func TestErrorsAppend(t *testing.T) {
	var errs Errors
	errs = errs.Append(nil, New("a"), nil, Errors{New("b"), New("c")})
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d", len(errs))
	}
	if errs.Return() == nil {
		t.Error("expected non-nil error")
	}
	if Errors(nil).Return() != nil {
		t.Error("expected nil error from empty list")
	}
}

func TestErrorsMessage(t *testing.T) {
	tests := []struct {
		errs Errors
		want string
	}{
		{Errors{}, "no errors"},
		{Errors{New("one")}, "one"},
		{Errors{New("one"), New("two\nlines")}, "2 errors:\n\tone\n\ttwo\n\tlines"},
	}
	for _, test := range tests {
		if got := test.errs.Error(); got != test.want {
			t.Errorf("expected %q, got %q", test.want, got)
		}
	}
}

func TestUnion(t *testing.T) {
	if Union(nil, nil, Errors{}) != nil {
		t.Error("expected nil union")
	}
	err := Union(New("a"), Errors{New("b")}, nil)
	if Len(err) != 2 {
		t.Errorf("expected 2 errors, got %d", Len(err))
	}
}

func TestIsThroughList(t *testing.T) {
	err := Union(New("a"), At("Workspace/Part", io.ErrUnexpectedEOF))
	if !Is(err, io.ErrUnexpectedEOF) {
		t.Error("expected Is to find wrapped error")
	}
	var perr PathError
	if !As(err, &perr) || perr.Path != "Workspace/Part" {
		t.Errorf("expected PathError, got %v", perr)
	}
	if got := perr.Error(); got != "Workspace/Part: unexpected EOF" {
		t.Errorf("unexpected message %q", got)
	}
	if At("x", nil) != nil {
		t.Error("expected nil from At with nil error")
	}
}
