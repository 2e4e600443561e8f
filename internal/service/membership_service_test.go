package service

import (
	"context"
	"errors"
	"testing"

	"taskflow/internal/model"
)

func TestAddMemberSendsWelcome(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	owner := e.store.addUser("owner", model.RoleUser)
	bob := e.store.addUser("bob", model.RoleUser)
	p := e.project(t, owner, "Apollo")

	m, err := e.Memberships.Add(ctx, p.ID, bob.ID, "")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if m.Role != model.MemberRoleMember {
		t.Fatalf("expected default member role, got %s", m.Role)
	}

	welcome := e.notifier.kind(model.NotifyWelcome)
	if len(welcome) != 1 || welcome[0].UserID != bob.ID {
		t.Fatalf("expected one welcome for bob, got %+v", welcome)
	}
	if welcome[0].Message != "You have been added to the project: Apollo" || welcome[0].Link.ProjectSlug != "apollo" {
		t.Fatalf("unexpected welcome %+v", welcome[0])
	}

	_, err = e.Memberships.Add(ctx, p.ID, bob.ID, model.MemberRoleAdmin)
	mustValidation(t, err, "user_id", model.ReasonTaken)
	if len(e.notifier.kind(model.NotifyWelcome)) != 1 {
		t.Fatal("duplicate membership must not notify again")
	}

	_, err = e.Memberships.Add(ctx, p.ID, bob.ID, "viewer")
	mustValidation(t, err, "role", model.ReasonInclusion)
}

func TestRemoveMemberUnassignsTasksInProject(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	owner := e.store.addUser("owner", model.RoleUser)
	bob := e.store.addUser("bob", model.RoleUser)
	p := e.project(t, owner, "Apollo")
	other := e.project(t, owner, "Gemini")
	for _, project := range []*model.Project{p, other} {
		if _, err := e.Memberships.Add(ctx, project.ID, bob.ID, ""); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	inP := e.task(t, p, owner, bob)
	inOther := e.task(t, other, owner, bob)

	if err := e.Memberships.Remove(ctx, p.ID, bob.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if got, _ := e.Tasks.Get(ctx, inP.ID); got.AssigneeID != nil {
		t.Fatal("task in the project must be unassigned")
	}
	if got, _ := e.Tasks.Get(ctx, inOther.ID); !got.IsAssignedTo(bob.ID) {
		t.Fatal("task in another project must keep its assignee")
	}
	if m, _ := e.Memberships.Membership(ctx, p.ID, bob.ID); m != nil {
		t.Fatalf("membership should be gone, got %+v", m)
	}
	if err := e.Memberships.Remove(ctx, p.ID, bob.ID); !model.IsNotFound(err) {
		t.Fatalf("removing twice should be not found, got %v", err)
	}
}

func TestRemoveOwnerRejected(t *testing.T) {
	e := newEngine(t)
	owner := e.store.addUser("owner", model.RoleUser)
	p := e.project(t, owner, "Apollo")

	err := e.Memberships.Remove(context.Background(), p.ID, owner.ID)
	mustValidation(t, err, "user_id", model.ReasonOwnerMember)
}

func TestRemoveMemberIsAtomic(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	owner := e.store.addUser("owner", model.RoleUser)
	bob := e.store.addUser("bob", model.RoleUser)
	p := e.project(t, owner, "Apollo")
	if _, err := e.Memberships.Add(ctx, p.ID, bob.ID, ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	task := e.task(t, p, owner, bob)

	e.store.failures["DeleteMembership"] = errBoom
	if err := e.Memberships.Remove(ctx, p.ID, bob.ID); !errors.Is(err, errBoom) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	if got, _ := e.Tasks.Get(ctx, task.ID); !got.IsAssignedTo(bob.ID) {
		t.Fatal("failed removal must keep the assignment")
	}
}

func TestCanEditProject(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	owner := e.store.addUser("owner", model.RoleUser)
	admin := e.store.addUser("root", model.RoleAdmin)
	lead := e.store.addUser("lead", model.RoleUser)
	member := e.store.addUser("member", model.RoleUser)
	outsider := e.store.addUser("outsider", model.RoleUser)
	p := e.project(t, owner, "Apollo")
	if _, err := e.Memberships.Add(ctx, p.ID, lead.ID, model.MemberRoleAdmin); err != nil {
		t.Fatalf("add lead: %v", err)
	}
	if _, err := e.Memberships.Add(ctx, p.ID, member.ID, ""); err != nil {
		t.Fatalf("add member: %v", err)
	}

	tests := []struct {
		name string
		user *model.User
		want bool
	}{
		{"owner", owner, true},
		{"global admin", admin, true},
		{"project admin", lead, true},
		{"member", member, false},
		{"outsider", outsider, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Memberships.CanEditProject(ctx, tt.user.ID, p.ID)
			if err != nil {
				t.Fatalf("can edit: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
