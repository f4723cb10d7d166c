package registry_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"splice/internal/registry"
)

func TestLoginAndResolve(t *testing.T) {
	reg := registry.New()
	token, identity := reg.Login("encoder-7")
	if token == "" || identity.ID == uuid.Nil {
		t.Fatalf("unexpected login result: token=%q identity=%+v", token, identity)
	}

	resolved, err := reg.Resolve(token)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.ID != identity.ID || resolved.DisplayName != "encoder-7" {
		t.Fatalf("unexpected identity: %+v", resolved)
	}
}

func TestResolveUnknownToken(t *testing.T) {
	reg := registry.New()
	_, err := reg.Resolve("no-such-token")
	if !errors.Is(err, registry.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestLoginBlankNameGetsPlaceholder(t *testing.T) {
	reg := registry.New()
	_, identity := reg.Login("  ")
	if identity.DisplayName == "" {
		t.Fatal("expected placeholder display name")
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	reg := registry.New()
	token, _ := reg.Login("worker")
	if err := reg.Logout(token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := reg.Resolve(token); !errors.Is(err, registry.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after logout, got %v", err)
	}
}

func TestSetCurrentTaskVisibleInList(t *testing.T) {
	reg := registry.New()
	_, identity := reg.Login("worker-a")
	task := uuid.New()
	reg.SetCurrentTask(identity.ID, task)

	workers := reg.List()
	if len(workers) != 1 {
		t.Fatalf("unexpected worker count: %d", len(workers))
	}
	if workers[0].CurrentTask != task {
		t.Fatalf("current task not recorded: %+v", workers[0])
	}
}
