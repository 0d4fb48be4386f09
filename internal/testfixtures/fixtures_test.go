package testfixtures

import "testing"

func TestFixturesProduceDistinctRecords(t *testing.T) {
	a := NewCounselorFixture()
	b := NewUserFixture()
	if a.ID == b.ID || a.Email == b.Email {
		t.Fatalf("fixtures collided: %+v %+v", a, b)
	}
	if a.Role != "counselor" || b.Role != "client" {
		t.Fatalf("unexpected roles %q, %q", a.Role, b.Role)
	}

	room := NewRoomFixture(a.ID)
	if room.OwnerMembership().UserID != a.ID || room.Persistence().CreatedBy != a.ID {
		t.Fatalf("room not owned by %s: %+v", a.ID, room)
	}
	if len(room.InviteCode) != 6 {
		t.Fatalf("invite code %q should have 6 characters", room.InviteCode)
	}

	card := NewCardFixture(room.ID, b.ID, "2024-05-01")
	if key := card.Persistence().Key(); key.RoomID != room.ID || key.ClientID != b.ID || key.Date != "2024-05-01" {
		t.Fatalf("unexpected card key %+v", key)
	}
}
