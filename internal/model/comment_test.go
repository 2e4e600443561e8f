package model

import (
	"reflect"
	"testing"
)

func TestMentionedUsernames(t *testing.T) {
	got := MentionedUsernames("@alice please review, cc @bob_2 and @alice again. mail@")
	want := []string{"alice", "bob_2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if names := MentionedUsernames("no mentions here"); len(names) != 0 {
		t.Fatalf("expected none, got %v", names)
	}
}

func TestCommentPermissions(t *testing.T) {
	project := &Project{ID: 1, OwnerID: 10}
	comment := &Comment{UserID: 20}

	tests := []struct {
		name string
		user *User
		want bool
	}{
		{"author", &User{ID: 20, Role: RoleUser}, true},
		{"owner", &User{ID: 10, Role: RoleUser}, true},
		{"admin", &User{ID: 99, Role: RoleAdmin}, true},
		{"stranger", &User{ID: 30, Role: RoleUser}, false},
		{"nil user", nil, false},
	}
	for _, tt := range tests {
		if got := CanEditComment(comment, tt.user, project); got != tt.want {
			t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
		if got := CanDeleteComment(comment, tt.user, project); got != tt.want {
			t.Fatalf("%s: expected delete %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestCommentValidate(t *testing.T) {
	if errs := (&Comment{Content: " "}).Validate(); !errs.Has("content", ReasonBlank) {
		t.Fatalf("expected blank content, got %v", errs)
	}
	long := make([]rune, 2001)
	for i := range long {
		long[i] = 'a'
	}
	if errs := (&Comment{Content: string(long)}).Validate(); !errs.Has("content", ReasonTooLong) {
		t.Fatalf("expected too long, got %v", errs)
	}
	if got := StatusChangeMessage(StatusTodo, StatusDone); got != "todo -> done" {
		t.Fatalf("unexpected audit message %q", got)
	}
}
