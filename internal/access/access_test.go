package access

import (
	"testing"

	"engcontrol/api/internal/store"
)

func regularActor() Actor {
	return Actor{ID: "usr_1", Name: "Maria Souza", Sector: "Setup Engenharia"}
}

func developer() Actor {
	return Actor{ID: "usr_dev", Name: "Carlos Mota", Sector: "Engenharia de Processos", IsDeveloper: true}
}

func TestEventVisible(t *testing.T) {
	sameSector := store.Event{ID: "e1", Sector: "Setup Engenharia"}
	otherSector := store.Event{ID: "e2", Sector: "Manutenção / Máquinas"}

	if !EventVisible(regularActor(), sameSector) {
		t.Fatalf("actor must see events in their own sector")
	}
	if EventVisible(regularActor(), otherSector) {
		t.Fatalf("actor must not see events outside their sector")
	}
	if !EventVisible(developer(), otherSector) {
		t.Fatalf("developer must see every sector")
	}
}

func TestNotificationVisible(t *testing.T) {
	actor := regularActor()
	other := "usr_2"
	self := actor.ID

	broadcast := store.Notification{ID: "n1"}
	targetedAtActor := store.Notification{ID: "n2", TargetUserID: &self}
	targetedAtOther := store.Notification{ID: "n3", TargetUserID: &other}
	devOnly := store.Notification{ID: "n4", Audience: AudienceDev}

	if !NotificationVisible(actor, broadcast) {
		t.Fatalf("broadcasts are visible to everyone")
	}
	if !NotificationVisible(actor, targetedAtActor) {
		t.Fatalf("targeted notifications are visible to their target")
	}
	if NotificationVisible(actor, targetedAtOther) {
		t.Fatalf("targeted notifications are hidden from everyone else")
	}
	if NotificationVisible(actor, devOnly) {
		t.Fatalf("dev-audience notifications are hidden from regular actors")
	}
	for _, n := range []store.Notification{broadcast, targetedAtActor, targetedAtOther, devOnly} {
		if !NotificationVisible(developer(), n) {
			t.Fatalf("developer must see notification %s", n.ID)
		}
	}
}

func TestAuditVisible(t *testing.T) {
	devOnly := store.Notification{ID: "n1", Audience: AudienceDev}
	broadcast := store.Notification{ID: "n2"}

	if AuditVisible(regularActor(), devOnly) {
		t.Fatalf("regular actors never see the audit view")
	}
	if !AuditVisible(developer(), devOnly) {
		t.Fatalf("developer must see dev-audience entries in the audit view")
	}
	if AuditVisible(developer(), broadcast) {
		t.Fatalf("broadcasts do not belong in the audit view")
	}
}

func TestCanManageEvent(t *testing.T) {
	own := store.Event{ID: "e1", AuthorID: "usr_1", Sector: "Setup Engenharia"}
	foreign := store.Event{ID: "e2", AuthorID: "usr_2", Sector: "Setup Engenharia"}

	if !CanManageEvent(regularActor(), own) {
		t.Fatalf("authors manage their own events")
	}
	if CanManageEvent(regularActor(), foreign) {
		t.Fatalf("actors never manage someone else's event")
	}
	if !CanManageEvent(developer(), foreign) {
		t.Fatalf("developers manage every event")
	}
}

func TestClearableByActor(t *testing.T) {
	actor := regularActor()
	self := actor.ID
	other := "usr_2"

	cases := []struct {
		name string
		n    store.Notification
		want bool
	}{
		{"broadcast survives", store.Notification{}, false},
		{"targeted at actor clears", store.Notification{TargetUserID: &self}, true},
		{"targeted at other survives", store.Notification{TargetUserID: &other}, false},
		{"dev audience survives", store.Notification{Audience: AudienceDev, TargetUserID: &self}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClearableByActor(actor, tc.n); got != tc.want {
				t.Fatalf("ClearableByActor() = %v, want %v", got, tc.want)
			}
		})
	}
}
