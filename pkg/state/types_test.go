package state_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	invgroups "github.com/goliatone/go-invgroups"
	"github.com/goliatone/go-invgroups/pkg/state"
)

func TestRefIdentifier(t *testing.T) {
	player := uuid.MustParse("6f1f7c2e-1111-4a5b-9c3d-000000000001")
	cases := []struct {
		name    string
		ref     state.Ref
		want    string
		wantErr bool
	}{
		{name: "valid", ref: state.Ref{Player: player, Group: "survival"}, want: "player/6f1f7c2e-1111-4a5b-9c3d-000000000001/group/survival"},
		{name: "trims group", ref: state.Ref{Player: player, Group: " creative "}, want: "player/6f1f7c2e-1111-4a5b-9c3d-000000000001/group/creative"},
		{name: "nil player", ref: state.Ref{Group: "survival"}, wantErr: true},
		{name: "empty group", ref: state.Ref{Player: player}, wantErr: true},
		{name: "slash in group", ref: state.Ref{Player: player, Group: "a/b"}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.ref.Identifier()
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("identifier: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q got %q", tc.want, got)
			}
		})
	}
}

type failingStore struct {
	loadErr   error
	saveCalls int
}

func (s *failingStore) Load(context.Context, state.Ref) (invgroups.PlayerData, state.Meta, bool, error) {
	return invgroups.PlayerData{}, state.Meta{}, false, s.loadErr
}

func (s *failingStore) Save(_ context.Context, _ state.Ref, _ invgroups.PlayerData, meta state.Meta) (state.Meta, error) {
	s.saveCalls++
	return meta, nil
}

func TestMutateValidationFailureDoesNotSave(t *testing.T) {
	store := &failingStore{}
	ref := state.Ref{Player: uuid.New(), Group: "survival"}

	_, _, err := state.Mutate[invgroups.PlayerData](context.Background(), store, ref, state.Meta{}, func(d *invgroups.PlayerData) error {
		d.Main = make([]*invgroups.ItemStack, invgroups.MainSlots+1)
		return nil
	})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if store.saveCalls != 0 {
		t.Fatalf("expected no save calls, got %d", store.saveCalls)
	}
}

func TestMutateWrapsLoadError(t *testing.T) {
	boom := errors.New("boom")
	store := &failingStore{loadErr: boom}
	ref := state.Ref{Player: uuid.New(), Group: "survival"}

	_, _, err := state.Mutate[invgroups.PlayerData](context.Background(), store, ref, state.Meta{}, func(*invgroups.PlayerData) error { return nil })
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped load error, got %v", err)
	}
}

func TestMutateMutatorErrorStopsSave(t *testing.T) {
	store := &failingStore{}
	ref := state.Ref{Player: uuid.New(), Group: "survival"}
	want := errors.New("nope")

	_, _, err := state.Mutate[invgroups.PlayerData](context.Background(), store, ref, state.Meta{}, func(*invgroups.PlayerData) error { return want })
	if !errors.Is(err, want) {
		t.Fatalf("expected mutator error, got %v", err)
	}
	if store.saveCalls != 0 {
		t.Fatalf("expected no save calls, got %d", store.saveCalls)
	}
}
