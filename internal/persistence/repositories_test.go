package persistence_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/counseling-diary/internal/persistence"
	"github.com/example/counseling-diary/internal/testfixtures"
)

func TestStoreContract(t *testing.T) {
	t.Parallel()

	for _, factory := range testfixtures.StoreFactories() {
		factory := factory
		t.Run(factory.Name, func(t *testing.T) {
			t.Parallel()
			runUserContract(t, factory)
			runRoomContract(t, factory)
			runMembershipContract(t, factory)
			runCardContract(t, factory)
		})
	}
}

func runUserContract(t *testing.T, factory testfixtures.StoreFactory) {
	t.Run("creates, reads, and updates users", func(t *testing.T) {
		store := factory.New(t)
		ctx := context.Background()

		user := testfixtures.NewUserFixture(testfixtures.WithUserEmail("Mixed.Case@Example.com"))
		testfixtures.SeedUsers(t, store, user)

		byEmail, err := store.GetUserByEmail(ctx, "mixed.case@example.com")
		if err != nil {
			t.Fatalf("GetUserByEmail: %v", err)
		}
		if byEmail.ID != user.ID {
			t.Fatalf("expected %s, got %s", user.ID, byEmail.ID)
		}

		exists, err := store.EmailExists(ctx, "MIXED.CASE@example.com")
		if err != nil || !exists {
			t.Fatalf("EmailExists = %v, %v", exists, err)
		}

		updated := user.Persistence()
		updated.Name = "Renamed"
		updated.UpdatedAt = user.CreatedAt.Add(time.Hour)
		if err := store.UpdateUser(ctx, updated); err != nil {
			t.Fatalf("UpdateUser: %v", err)
		}
		got, err := store.GetUser(ctx, user.ID)
		if err != nil {
			t.Fatalf("GetUser: %v", err)
		}
		if got.Name != "Renamed" || !got.UpdatedAt.Equal(updated.UpdatedAt) || !got.CreatedAt.Equal(user.CreatedAt) {
			t.Fatalf("unexpected user after update: %+v", got)
		}
	})

	t.Run("rejects duplicate emails and reports missing users", func(t *testing.T) {
		store := factory.New(t)
		ctx := context.Background()

		first := testfixtures.NewUserFixture()
		testfixtures.SeedUsers(t, store, first)

		dup := testfixtures.NewUserFixture(testfixtures.WithUserEmail(first.Email))
		if err := store.CreateUser(ctx, dup.Persistence()); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
		if _, err := store.GetUser(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if err := store.UpdateUser(ctx, testfixtures.NewUserFixture().Persistence()); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound on update, got %v", err)
		}
	})
}

func runRoomContract(t *testing.T, factory testfixtures.StoreFactory) {
	t.Run("creates rooms with the owner membership", func(t *testing.T) {
		store := factory.New(t)
		ctx := context.Background()

		owner := testfixtures.NewCounselorFixture()
		testfixtures.SeedUsers(t, store, owner)
		older := testfixtures.NewRoomFixture(owner.ID, testfixtures.WithRoomCreatedAt(testfixtures.ReferenceTime()))
		newer := testfixtures.NewRoomFixture(owner.ID, testfixtures.WithRoomCreatedAt(testfixtures.ReferenceTime().Add(time.Hour)))
		testfixtures.SeedRoom(t, store, older)
		testfixtures.SeedRoom(t, store, newer)

		if _, err := store.GetMembership(ctx, older.ID, owner.ID); err != nil {
			t.Fatalf("owner membership missing: %v", err)
		}
		byCode, err := store.GetRoomByInviteCode(ctx, newer.InviteCode)
		if err != nil || byCode.ID != newer.ID {
			t.Fatalf("GetRoomByInviteCode = %+v, %v", byCode, err)
		}

		rooms, err := store.ListRoomsByCreator(ctx, owner.ID)
		if err != nil {
			t.Fatalf("ListRoomsByCreator: %v", err)
		}
		if len(rooms) != 2 || rooms[0].ID != newer.ID || rooms[1].ID != older.ID {
			t.Fatalf("expected newest first, got %+v", rooms)
		}
	})

	t.Run("orders rooms by sub-second creation time", func(t *testing.T) {
		store := factory.New(t)
		ctx := context.Background()

		owner := testfixtures.NewCounselorFixture()
		testfixtures.SeedUsers(t, store, owner)
		base := testfixtures.ReferenceTime().Truncate(time.Second).Add(5 * time.Second)
		older := testfixtures.NewRoomFixture(owner.ID, testfixtures.WithRoomCreatedAt(base.Add(100*time.Millisecond)))
		newer := testfixtures.NewRoomFixture(owner.ID, testfixtures.WithRoomCreatedAt(base.Add(120*time.Millisecond)))
		testfixtures.SeedRoom(t, store, older)
		testfixtures.SeedRoom(t, store, newer)

		rooms, err := store.ListRoomsByCreator(ctx, owner.ID)
		if err != nil {
			t.Fatalf("ListRoomsByCreator: %v", err)
		}
		if len(rooms) != 2 || rooms[0].ID != newer.ID || rooms[1].ID != older.ID {
			t.Fatalf("expected newest first, got %+v", rooms)
		}
		if !rooms[0].CreatedAt.Equal(newer.CreatedAt) {
			t.Fatalf("created_at round trip: got %v, want %v", rooms[0].CreatedAt, newer.CreatedAt)
		}
	})

	t.Run("reports invite code collisions", func(t *testing.T) {
		store := factory.New(t)
		ctx := context.Background()

		owner := testfixtures.NewCounselorFixture()
		testfixtures.SeedUsers(t, store, owner)
		first := testfixtures.NewRoomFixture(owner.ID, testfixtures.WithInviteCode("ABC123"))
		testfixtures.SeedRoom(t, store, first)

		exists, err := store.InviteCodeExists(ctx, "ABC123")
		if err != nil || !exists {
			t.Fatalf("InviteCodeExists = %v, %v", exists, err)
		}

		clash := testfixtures.NewRoomFixture(owner.ID, testfixtures.WithInviteCode("ABC123"))
		err = store.CreateRoom(ctx, clash.Persistence(), clash.OwnerMembership())
		if !errors.Is(err, persistence.ErrInviteCodeTaken) {
			t.Fatalf("expected ErrInviteCodeTaken, got %v", err)
		}
		if !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("invite collisions should also match ErrDuplicate, got %v", err)
		}
		if _, err := store.GetRoom(ctx, clash.ID); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("colliding room must not be stored, got %v", err)
		}
		if _, err := store.GetMembership(ctx, clash.ID, owner.ID); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("colliding owner membership must not be stored, got %v", err)
		}
	})

	t.Run("deletes rooms with their memberships and cards", func(t *testing.T) {
		store := factory.New(t)
		ctx := context.Background()

		owner := testfixtures.NewCounselorFixture()
		client := testfixtures.NewUserFixture()
		testfixtures.SeedUsers(t, store, owner, client)
		doomed := testfixtures.NewRoomFixture(owner.ID)
		kept := testfixtures.NewRoomFixture(owner.ID)
		testfixtures.SeedRoom(t, store, doomed)
		testfixtures.SeedRoom(t, store, kept)
		testfixtures.SeedMembership(t, store, persistence.Membership{RoomID: doomed.ID, UserID: client.ID, JoinedAt: testfixtures.ReferenceTime()})
		testfixtures.SeedMembership(t, store, persistence.Membership{RoomID: kept.ID, UserID: client.ID, JoinedAt: testfixtures.ReferenceTime()})
		testfixtures.SeedCard(t, store, testfixtures.NewCardFixture(doomed.ID, client.ID, "2024-05-01"))
		testfixtures.SeedCard(t, store, testfixtures.NewCardFixture(kept.ID, client.ID, "2024-05-01"))

		if err := store.DeleteRoomCascade(ctx, doomed.ID); err != nil {
			t.Fatalf("DeleteRoomCascade: %v", err)
		}
		if _, err := store.GetRoom(ctx, doomed.ID); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("room should be gone, got %v", err)
		}
		if n, err := store.CountCards(ctx, persistence.CardFilter{RoomID: doomed.ID}); err != nil || n != 0 {
			t.Fatalf("cards left in deleted room: %d, %v", n, err)
		}
		if n, err := store.CountMembers(ctx, doomed.ID, ""); err != nil || n != 0 {
			t.Fatalf("memberships left in deleted room: %d, %v", n, err)
		}
		if n, err := store.CountCards(ctx, persistence.CardFilter{RoomID: kept.ID}); err != nil || n != 1 {
			t.Fatalf("other room lost cards: %d, %v", n, err)
		}
		if err := store.DeleteRoomCascade(ctx, doomed.ID); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("second delete should report ErrNotFound, got %v", err)
		}
	})
}

func runMembershipContract(t *testing.T, factory testfixtures.StoreFactory) {
	t.Run("tracks members and their rooms", func(t *testing.T) {
		store := factory.New(t)
		ctx := context.Background()

		owner := testfixtures.NewCounselorFixture()
		alice := testfixtures.NewUserFixture(testfixtures.WithUserName("Alice"))
		bob := testfixtures.NewUserFixture(testfixtures.WithUserName("Bob"))
		testfixtures.SeedUsers(t, store, owner, alice, bob)

		first := testfixtures.NewRoomFixture(owner.ID)
		second := testfixtures.NewRoomFixture(owner.ID)
		testfixtures.SeedRoom(t, store, first)
		testfixtures.SeedRoom(t, store, second)

		base := first.CreatedAt.Add(time.Hour)
		testfixtures.SeedMembership(t, store, persistence.Membership{RoomID: first.ID, UserID: alice.ID, JoinedAt: base})
		testfixtures.SeedMembership(t, store, persistence.Membership{RoomID: first.ID, UserID: bob.ID, JoinedAt: base.Add(time.Minute)})
		testfixtures.SeedMembership(t, store, persistence.Membership{RoomID: second.ID, UserID: alice.ID, JoinedAt: base.Add(time.Hour)})

		err := store.CreateMembership(ctx, persistence.Membership{RoomID: first.ID, UserID: alice.ID, JoinedAt: base})
		if !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}

		members, err := store.ListMembers(ctx, first.ID)
		if err != nil {
			t.Fatalf("ListMembers: %v", err)
		}
		if len(members) != 3 {
			t.Fatalf("expected owner and two clients, got %+v", members)
		}
		if members[1].UserID != alice.ID || members[1].Name != "Alice" || members[1].Role != "client" {
			t.Fatalf("unexpected member %+v", members[1])
		}

		count, err := store.CountMembers(ctx, first.ID, owner.ID)
		if err != nil || count != 2 {
			t.Fatalf("CountMembers excluding owner = %d, %v", count, err)
		}

		rooms, err := store.ListRoomsForMember(ctx, alice.ID)
		if err != nil {
			t.Fatalf("ListRoomsForMember: %v", err)
		}
		if len(rooms) != 2 || rooms[0].Room.ID != second.ID || !rooms[0].JoinedAt.Equal(base.Add(time.Hour)) {
			t.Fatalf("expected most recent join first, got %+v", rooms)
		}

		late := testfixtures.NewRoomFixture(owner.ID, testfixtures.WithRoomCreatedAt(base.Add(90*time.Minute)))
		testfixtures.SeedRoom(t, store, late)
		lateJoin := base.Add(2 * time.Hour).Truncate(time.Second).Add(5 * time.Second)
		testfixtures.SeedMembership(t, store, persistence.Membership{RoomID: late.ID, UserID: bob.ID, JoinedAt: lateJoin.Add(100 * time.Millisecond)})
		testfixtures.SeedMembership(t, store, persistence.Membership{RoomID: late.ID, UserID: alice.ID, JoinedAt: lateJoin.Add(120 * time.Millisecond)})

		lateMembers, err := store.ListMembers(ctx, late.ID)
		if err != nil {
			t.Fatalf("ListMembers: %v", err)
		}
		if len(lateMembers) != 3 || lateMembers[1].UserID != bob.ID || lateMembers[2].UserID != alice.ID {
			t.Fatalf("expected sub-second join order, got %+v", lateMembers)
		}
		rooms, err = store.ListRoomsForMember(ctx, alice.ID)
		if err != nil {
			t.Fatalf("ListRoomsForMember: %v", err)
		}
		if len(rooms) != 3 || rooms[0].Room.ID != late.ID {
			t.Fatalf("expected latest sub-second join first, got %+v", rooms)
		}

		if err := store.DeleteMembership(ctx, first.ID, bob.ID); err != nil {
			t.Fatalf("DeleteMembership: %v", err)
		}
		if err := store.DeleteMembership(ctx, first.ID, bob.ID); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound on repeat delete, got %v", err)
		}
	})
}

func runCardContract(t *testing.T, factory testfixtures.StoreFactory) {
	t.Run("upserts keep identity and submission time", func(t *testing.T) {
		store := factory.New(t)
		ctx := context.Background()

		owner := testfixtures.NewCounselorFixture()
		client := testfixtures.NewUserFixture()
		testfixtures.SeedUsers(t, store, owner, client)
		room := testfixtures.NewRoomFixture(owner.ID)
		testfixtures.SeedRoom(t, store, room)

		original := testfixtures.SeedCard(t, store, testfixtures.NewCardFixture(room.ID, client.ID, "2024-05-01"))

		key := original.Key()
		later := original.SubmittedAt.Add(time.Hour)
		var seen *persistence.Card
		updated, err := store.UpsertCard(ctx, key, func(existing *persistence.Card) (persistence.Card, error) {
			seen = existing
			next := *existing
			next.ID = "ignored"
			next.SubmittedAt = later
			next.HeaderName = "Updated"
			next.UpdatedAt = later
			return next, nil
		})
		if err != nil {
			t.Fatalf("UpsertCard: %v", err)
		}
		if seen == nil || seen.ID != original.ID {
			t.Fatalf("mutation should see the stored card, got %+v", seen)
		}
		if updated.ID != original.ID || !updated.SubmittedAt.Equal(original.SubmittedAt) {
			t.Fatalf("identity changed: %+v", updated)
		}
		if updated.HeaderName != "Updated" || !updated.UpdatedAt.Equal(later) {
			t.Fatalf("update not applied: %+v", updated)
		}

		stored, err := store.GetCard(ctx, key)
		if err != nil {
			t.Fatalf("GetCard: %v", err)
		}
		if stored.HeaderName != "Updated" || stored.DayData != original.DayData {
			t.Fatalf("unexpected stored card %+v", stored)
		}
	})

	t.Run("propagates mutation errors without writing", func(t *testing.T) {
		store := factory.New(t)
		ctx := context.Background()

		owner := testfixtures.NewCounselorFixture()
		client := testfixtures.NewUserFixture()
		testfixtures.SeedUsers(t, store, owner, client)
		room := testfixtures.NewRoomFixture(owner.ID)
		testfixtures.SeedRoom(t, store, room)

		boom := errors.New("boom")
		key := persistence.CardKey{RoomID: room.ID, ClientID: client.ID, Date: "2024-05-02"}
		_, err := store.UpsertCard(ctx, key, func(*persistence.Card) (persistence.Card, error) {
			return persistence.Card{}, boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected mutation error, got %v", err)
		}
		if _, err := store.GetCard(ctx, key); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected no card, got %v", err)
		}
	})

	t.Run("filters and counts cards", func(t *testing.T) {
		store := factory.New(t)
		ctx := context.Background()

		owner := testfixtures.NewCounselorFixture()
		alice := testfixtures.NewUserFixture(testfixtures.WithUserName("Alice"))
		bob := testfixtures.NewUserFixture(testfixtures.WithUserName("Bob"))
		testfixtures.SeedUsers(t, store, owner, alice, bob)
		room := testfixtures.NewRoomFixture(owner.ID)
		other := testfixtures.NewRoomFixture(owner.ID)
		testfixtures.SeedRoom(t, store, room)
		testfixtures.SeedRoom(t, store, other)

		testfixtures.SeedCard(t, store, testfixtures.NewCardFixture(room.ID, alice.ID, "2024-05-01"))
		testfixtures.SeedCard(t, store, testfixtures.NewCardFixture(room.ID, alice.ID, "2024-05-03"))
		testfixtures.SeedCard(t, store, testfixtures.NewCardFixture(room.ID, bob.ID, "2024-05-01"))
		testfixtures.SeedCard(t, store, testfixtures.NewCardFixture(other.ID, alice.ID, "2024-05-01"))

		cards, err := store.ListCards(ctx, persistence.CardFilter{RoomID: room.ID})
		if err != nil {
			t.Fatalf("ListCards: %v", err)
		}
		if len(cards) != 3 || cards[0].Card.Date != "2024-05-03" {
			t.Fatalf("expected newest date first, got %+v", cards)
		}
		if cards[0].ClientName != "Alice" || cards[0].ClientEmail != alice.Email {
			t.Fatalf("client details missing: %+v", cards[0])
		}

		byDate, err := store.ListCards(ctx, persistence.CardFilter{RoomID: room.ID, Date: "2024-05-01"})
		if err != nil || len(byDate) != 2 {
			t.Fatalf("date filter = %d cards, %v", len(byDate), err)
		}

		counts := []struct {
			filter persistence.CardFilter
			want   int
		}{
			{filter: persistence.CardFilter{RoomID: room.ID}, want: 3},
			{filter: persistence.CardFilter{RoomID: room.ID, ClientID: alice.ID}, want: 2},
			{filter: persistence.CardFilter{ClientID: alice.ID}, want: 3},
			{filter: persistence.CardFilter{RoomID: other.ID, ClientID: bob.ID}, want: 0},
		}
		for _, tc := range counts {
			got, err := store.CountCards(ctx, tc.filter)
			if err != nil {
				t.Fatalf("CountCards(%+v): %v", tc.filter, err)
			}
			if got != tc.want {
				t.Fatalf("CountCards(%+v) = %d, want %d", tc.filter, got, tc.want)
			}
		}
	})

	t.Run("concurrent upserts for one key store a single card", func(t *testing.T) {
		store := factory.New(t)
		ctx := context.Background()

		owner := testfixtures.NewCounselorFixture()
		client := testfixtures.NewUserFixture()
		testfixtures.SeedUsers(t, store, owner, client)
		room := testfixtures.NewRoomFixture(owner.ID)
		testfixtures.SeedRoom(t, store, room)

		key := persistence.CardKey{RoomID: room.ID, ClientID: client.ID, Date: "2024-06-01"}
		var group errgroup.Group
		for i := 0; i < 8; i++ {
			i := i
			group.Go(func() error {
				_, err := store.UpsertCard(ctx, key, func(existing *persistence.Card) (persistence.Card, error) {
					now := testfixtures.ReferenceTime().Add(time.Duration(i) * time.Second)
					if existing != nil {
						next := *existing
						next.UpdatedAt = now
						return next, nil
					}
					return testfixtures.NewCardFixture(key.RoomID, key.ClientID, key.Date,
						testfixtures.WithCardID(fmt.Sprintf("card-race-%d", i)),
					).Persistence(), nil
				})
				return err
			})
		}
		if err := group.Wait(); err != nil {
			t.Fatalf("concurrent upserts: %v", err)
		}

		count, err := store.CountCards(ctx, persistence.CardFilter{RoomID: room.ID, ClientID: client.ID, Date: key.Date})
		if err != nil || count != 1 {
			t.Fatalf("expected one card, got %d, %v", count, err)
		}
	})
}
