package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err: &AppError{
				Code:    ErrCodeNotFound,
				Message: "job not found",
			},
			want: "job not found",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeInternal,
				Message: "failed to dispatch",
				Cause:   errors.New("connection refused"),
			},
			want: "failed to dispatch: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &AppError{
		Code:    ErrCodeUnavailable,
		Message: "wrapped error",
		Cause:   cause,
	}

	if unwrapped := err.Unwrap(); !errors.Is(unwrapped, cause) {
		t.Errorf("AppError.Unwrap() = %v, want %v", unwrapped, cause)
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		wantCode ErrorCode
		wantMsg  string
	}{
		{name: "NotFound", err: NotFound("missing"), wantCode: ErrCodeNotFound, wantMsg: "missing"},
		{name: "NotFoundf", err: NotFoundf("job %s not found", "j1"), wantCode: ErrCodeNotFound, wantMsg: "job j1 not found"},
		{name: "Conflict", err: Conflict("duplicate"), wantCode: ErrCodeConflict, wantMsg: "duplicate"},
		{name: "Conflictf", err: Conflictf("external id %q exists", "e1"), wantCode: ErrCodeConflict, wantMsg: `external id "e1" exists`},
		{name: "Validation", err: Validation("bad input"), wantCode: ErrCodeValidation, wantMsg: "bad input"},
		{name: "Validationf", err: Validationf("bad %s", "url"), wantCode: ErrCodeValidation, wantMsg: "bad url"},
		{name: "Internal", err: Internal("boom"), wantCode: ErrCodeInternal, wantMsg: "boom"},
		{name: "Internalf", err: Internalf("boom %d", 2), wantCode: ErrCodeInternal, wantMsg: "boom 2"},
		{name: "Unavailable", err: Unavailable("upstream down"), wantCode: ErrCodeUnavailable, wantMsg: "upstream down"},
		{name: "Unavailablef", err: Unavailablef("upstream %d", 503), wantCode: ErrCodeUnavailable, wantMsg: "upstream 503"},
		{name: "NotFailed", err: NotFailed("not failed"), wantCode: ErrCodeNotFailed, wantMsg: "not failed"},
		{name: "NotCompleted", err: NotCompleted("not done"), wantCode: ErrCodeNotCompleted, wantMsg: "not done"},
		{name: "AlreadyDelivered", err: AlreadyDelivered("done already"), wantCode: ErrCodeAlreadyDelivered, wantMsg: "done already"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.wantCode)
			}
			if tt.err.Message != tt.wantMsg {
				t.Errorf("Message = %v, want %v", tt.err.Message, tt.wantMsg)
			}
		})
	}
}

func TestValidationField(t *testing.T) {
	err := ValidationField("product_id", "product id is required")
	if err.Code != ErrCodeValidation {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeValidation)
	}
	if err.Field != "product_id" {
		t.Errorf("Field = %v, want product_id", err.Field)
	}
	if got := GetField(err); got != "product_id" {
		t.Errorf("GetField() = %v, want product_id", got)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("socket closed")

	err := Wrap(cause, ErrCodeUnavailable, "submit failed")
	if err.Code != ErrCodeUnavailable {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeUnavailable)
	}
	if !errors.Is(err, cause) {
		t.Error("wrapped error should match cause via errors.Is")
	}

	if Wrap(nil, ErrCodeInternal, "ignored") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	if Wrapf(nil, ErrCodeInternal, "ignored %d", 1) != nil {
		t.Error("Wrapf(nil) should return nil")
	}
}

func TestCodeCheckers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{name: "IsNotFound match", err: NotFound("x"), check: IsNotFound, want: true},
		{name: "IsNotFound wrapped", err: fmt.Errorf("get job: %w", NotFound("x")), check: IsNotFound, want: true},
		{name: "IsNotFound mismatch", err: Conflict("x"), check: IsNotFound, want: false},
		{name: "IsConflict", err: Conflict("x"), check: IsConflict, want: true},
		{name: "IsValidation", err: Validation("x"), check: IsValidation, want: true},
		{name: "IsForeignKey", err: &AppError{Code: ErrCodeForeignKey}, check: IsForeignKey, want: true},
		{name: "IsInternal", err: Internal("x"), check: IsInternal, want: true},
		{name: "IsTimeout", err: &AppError{Code: ErrCodeTimeout}, check: IsTimeout, want: true},
		{name: "IsCanceled", err: &AppError{Code: ErrCodeCanceled}, check: IsCanceled, want: true},
		{name: "IsUnavailable", err: Unavailable("x"), check: IsUnavailable, want: true},
		{name: "IsNotFailed", err: NotFailed("x"), check: IsNotFailed, want: true},
		{name: "IsNotCompleted", err: NotCompleted("x"), check: IsNotCompleted, want: true},
		{name: "IsAlreadyDelivered", err: AlreadyDelivered("x"), check: IsAlreadyDelivered, want: true},
		{name: "plain error", err: errors.New("x"), check: IsInternal, want: false},
		{name: "nil error", err: nil, check: IsNotFound, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check(tt.err); got != tt.want {
				t.Errorf("checker = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "unavailable is transient", err: Unavailable("503"), want: true},
		{name: "timeout is transient", err: &AppError{Code: ErrCodeTimeout}, want: true},
		{name: "wrapped unavailable", err: fmt.Errorf("submit: %w", Unavailable("503")), want: true},
		{name: "validation is permanent", err: Validation("bad"), want: false},
		{name: "conflict is permanent", err: Conflict("dup"), want: false},
		{name: "not found is permanent", err: NotFound("x"), want: false},
		{name: "plain error", err: errors.New("x"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(NotFailed("x")); got != ErrCodeNotFailed {
		t.Errorf("GetCode() = %v, want %v", got, ErrCodeNotFailed)
	}
	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode(plain) = %v, want empty", got)
	}
}
