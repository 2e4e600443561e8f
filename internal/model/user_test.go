package model

import "testing"

func TestUserValidate(t *testing.T) {
	u := &User{Email: "ada@example.com", Username: "ada_l", FirstName: "Ada", LastName: "Lovelace", Role: RoleUser}
	if errs := u.Validate(); len(errs) != 0 {
		t.Fatalf("expected valid user, got %v", errs)
	}

	u.Email = "not-an-email"
	u.Username = "ada lovelace"
	u.Role = "root"
	errs := u.Validate()
	for _, want := range []ValidationError{
		{Field: "email", Reason: ReasonInvalid},
		{Field: "username", Reason: ReasonInvalid},
		{Field: "role", Reason: ReasonInclusion},
	} {
		if !errs.Has(want.Field, want.Reason) {
			t.Fatalf("expected %v in %v", want, errs)
		}
	}
}

func TestUserNames(t *testing.T) {
	u := &User{FirstName: "ada", LastName: "lovelace"}
	if got := u.FullName(); got != "ada lovelace" {
		t.Fatalf("unexpected full name %q", got)
	}
	if got := u.Initials(); got != "AL" {
		t.Fatalf("unexpected initials %q", got)
	}
}

func TestValidatePassword(t *testing.T) {
	if errs := ValidatePassword("12345"); !errs.Has("password", ReasonTooShort) {
		t.Fatalf("expected too short, got %v", errs)
	}
	if errs := ValidatePassword("correct horse"); len(errs) != 0 {
		t.Fatalf("expected valid password, got %v", errs)
	}
}

func TestValidationErrorsErr(t *testing.T) {
	var errs ValidationErrors
	if errs.Err() != nil {
		t.Fatal("empty list must yield nil error")
	}
	err := Invalid("slug", ReasonTaken)
	v, ok := AsValidation(err)
	if !ok || !v.Has("slug", ReasonTaken) {
		t.Fatalf("expected slug taken, got %v", err)
	}
	if !IsNotFound(NotFound("user", 7)) {
		t.Fatal("expected not found")
	}
}
