package service

import (
	"context"
	"errors"
	"testing"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

func TestRecordWorkUpsertsSession(t *testing.T) {
	f := newFixture()
	tech := f.store.addTechnician("Tina")
	client := f.store.addUser("Client", domain.RoleClient)
	ticket := f.store.addTicket(client, domain.TicketStatusInProgress)
	f.store.addAssignment(ticket, tech, true, domain.AssignmentStateInProgress)

	if err := f.collab.RecordWork(context.Background(), ticket.ID, *tech.UserID, "replacing toner", nil, nil); err != nil {
		t.Fatalf("RecordWork: %v", err)
	}
	if err := f.collab.RecordWork(context.Background(), ticket.ID, *tech.UserID, "testing output", nil, nil); err != nil {
		t.Fatalf("RecordWork second call: %v", err)
	}

	sessions, _ := f.store.repositories().WorkSessions.ListByTicket(context.Background(), ticket.ID)
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1 (overwrite, not append)", len(sessions))
	}
	if sessions[0].WorkingOn != "testing output" {
		t.Errorf("working_on = %q, want latest value", sessions[0].WorkingOn)
	}
	if f.store.countActivities(ticket.ID, domain.ActivityWorkNoteAdded) != 2 {
		t.Error("each work update should append an activity")
	}
	if len(f.broadcaster.groups) == 0 || f.broadcaster.groups[0] != "ticket:"+ticket.ID {
		t.Errorf("broadcast groups = %v, want ticket:%s", f.broadcaster.groups, ticket.ID)
	}
}

func TestRecordWorkRejectsUnassignedTechnician(t *testing.T) {
	f := newFixture()
	tech := f.store.addTechnician("Tina")
	client := f.store.addUser("Client", domain.RoleClient)
	ticket := f.store.addTicket(client, domain.TicketStatusOpen)

	err := f.collab.RecordWork(context.Background(), ticket.ID, *tech.UserID, "sneaking in", nil, nil)
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "UNAUTHORIZED" {
		t.Fatalf("err = %v, want UNAUTHORIZED", err)
	}
}

func TestUpdateTechnicianStateInProgressPullsTicket(t *testing.T) {
	f := newFixture()
	tech := f.store.addTechnician("Tina")
	client := f.store.addUser("Client", domain.RoleClient)
	ticket := f.store.addTicket(client, domain.TicketStatusOpen)
	f.store.addAssignment(ticket, tech, true, domain.AssignmentStateAssigned)

	updated, err := f.collab.UpdateTechnicianState(context.Background(), ticket.ID, *tech.UserID, domain.AssignmentStateInProgress)
	if err != nil {
		t.Fatalf("UpdateTechnicianState: %v", err)
	}
	if updated.State != domain.AssignmentStateInProgress {
		t.Errorf("assignment state = %s, want IN_PROGRESS", updated.State)
	}
	if f.store.tickets[ticket.ID].Status != domain.TicketStatusInProgress {
		t.Errorf("ticket status = %s, want IN_PROGRESS", f.store.tickets[ticket.ID].Status)
	}
}

func TestUpdateTechnicianStateDoesNotReopenClosedTicket(t *testing.T) {
	f := newFixture()
	tech := f.store.addTechnician("Tina")
	client := f.store.addUser("Client", domain.RoleClient)
	ticket := f.store.addTicket(client, domain.TicketStatusClosed)
	f.store.addAssignment(ticket, tech, true, domain.AssignmentStateOnHold)

	if _, err := f.collab.UpdateTechnicianState(context.Background(), ticket.ID, *tech.UserID, domain.AssignmentStateInProgress); err != nil {
		t.Fatalf("UpdateTechnicianState: %v", err)
	}
	if f.store.tickets[ticket.ID].Status != domain.TicketStatusClosed {
		t.Errorf("ticket status = %s, closed ticket must stay closed", f.store.tickets[ticket.ID].Status)
	}
}

func TestAllCompletedResolvesTicketWithActivity(t *testing.T) {
	f := newFixture()
	alice := f.store.addTechnician("Alice")
	bob := f.store.addTechnician("Bob")
	client := f.store.addUser("Client", domain.RoleClient)
	ticket := f.store.addTicket(client, domain.TicketStatusInProgress)
	f.store.addAssignment(ticket, alice, true, domain.AssignmentStateCompleted)
	f.store.addAssignment(ticket, bob, false, domain.AssignmentStateInProgress)

	// Bob is still working, nothing happens.
	if _, err := f.collab.UpdateTechnicianState(context.Background(), ticket.ID, *bob.UserID, domain.AssignmentStateOnHold); err != nil {
		t.Fatalf("UpdateTechnicianState: %v", err)
	}
	if f.store.tickets[ticket.ID].Status != domain.TicketStatusInProgress {
		t.Fatalf("status = %s, want unchanged IN_PROGRESS", f.store.tickets[ticket.ID].Status)
	}

	statusChangesBefore := f.store.countActivities(ticket.ID, domain.ActivityStatusChanged)

	// The last completion resolves the ticket.
	if _, err := f.collab.UpdateTechnicianState(context.Background(), ticket.ID, *bob.UserID, domain.AssignmentStateCompleted); err != nil {
		t.Fatalf("UpdateTechnicianState: %v", err)
	}
	if f.store.tickets[ticket.ID].Status != domain.TicketStatusResolved {
		t.Errorf("status = %s, want RESOLVED", f.store.tickets[ticket.ID].Status)
	}
	if got := f.store.countActivities(ticket.ID, domain.ActivityStatusChanged) - statusChangesBefore; got != 1 {
		t.Errorf("auto-resolve added %d STATUS_CHANGED activities, want 1", got)
	}
}

func TestGetSnapshotVisibility(t *testing.T) {
	f := newFixture()
	tech := f.store.addTechnician("Tina")
	outsider := f.store.addTechnician("Outsider")
	admin := f.store.addUser("Admin", domain.RoleAdmin)
	client := f.store.addUser("Client", domain.RoleClient)
	other := f.store.addUser("Other", domain.RoleClient)
	ticket := f.store.addTicket(client, domain.TicketStatusOpen)
	f.store.addAssignment(ticket, tech, true, domain.AssignmentStateAssigned)

	cases := []struct {
		name      string
		userID    string
		role      domain.UserRole
		wantsView bool
	}{
		{"admin", admin.ID, domain.RoleAdmin, true},
		{"assigned technician", *tech.UserID, domain.RoleTechnician, true},
		{"outside technician", *outsider.UserID, domain.RoleTechnician, false},
		{"creator", client.ID, domain.RoleClient, true},
		{"other client", other.ID, domain.RoleClient, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snapshot, err := f.collab.GetSnapshot(context.Background(), ticket.ID, tc.userID, tc.role)
			if err != nil {
				t.Fatalf("GetSnapshot: %v", err)
			}
			if (snapshot != nil) != tc.wantsView {
				t.Errorf("snapshot visible = %v, want %v", snapshot != nil, tc.wantsView)
			}
		})
	}
}

func TestSnapshotExcludesRemovedTechnicianSession(t *testing.T) {
	f := newFixture()
	alice := f.store.addTechnician("Alice")
	bob := f.store.addTechnician("Bob")
	admin := f.store.addUser("Admin", domain.RoleAdmin)
	client := f.store.addUser("Client", domain.RoleClient)
	ticket := f.store.addTicket(client, domain.TicketStatusInProgress)
	f.store.addAssignment(ticket, alice, true, domain.AssignmentStateInProgress)
	f.store.addAssignment(ticket, bob, false, domain.AssignmentStateInProgress)

	if err := f.collab.RecordWork(context.Background(), ticket.ID, *bob.UserID, "investigating", nil, nil); err != nil {
		t.Fatalf("RecordWork: %v", err)
	}

	if _, err := f.manager.RemoveAssignment(context.Background(), ticket.ID, bob.ID, admin.ID); err != nil {
		t.Fatalf("RemoveAssignment: %v", err)
	}

	snapshot, err := f.collab.GetSnapshot(context.Background(), ticket.ID, admin.ID, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if len(snapshot.ActiveTechnicians) != 1 {
		t.Fatalf("active technicians = %d, want 1 after removal", len(snapshot.ActiveTechnicians))
	}
	if snapshot.ActiveTechnicians[0].TechnicianID != alice.ID {
		t.Errorf("active technician = %s, want %s", snapshot.ActiveTechnicians[0].TechnicianID, alice.ID)
	}
}

func TestSnapshotRecentActivitiesCappedNewestFirst(t *testing.T) {
	f := newFixture()
	admin := f.store.addUser("Admin", domain.RoleAdmin)
	client := f.store.addUser("Client", domain.RoleClient)
	ticket := f.store.addTicket(client, domain.TicketStatusOpen)

	repos := f.store.repositories()
	for i := 0; i < 15; i++ {
		if err := repos.Activities.Create(context.Background(), &domain.ActivityRecord{
			TicketID:    ticket.ID,
			ActorUserID: admin.ID,
			Type:        domain.ActivityCommentAdded,
			Message:     "note",
		}); err != nil {
			t.Fatalf("Create activity: %v", err)
		}
	}

	snapshot, err := f.collab.GetSnapshot(context.Background(), ticket.ID, admin.ID, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if len(snapshot.RecentActivities) != 10 {
		t.Fatalf("recent activities = %d, want capped at 10", len(snapshot.RecentActivities))
	}
	if snapshot.LastActivity == nil || snapshot.LastActivity.ID != snapshot.RecentActivities[0].ID {
		t.Error("last activity should be the newest entry")
	}
}

func TestBroadcastFailureDoesNotFailWrite(t *testing.T) {
	f := newFixture()
	f.broadcaster.fail = true
	tech := f.store.addTechnician("Tina")
	client := f.store.addUser("Client", domain.RoleClient)
	ticket := f.store.addTicket(client, domain.TicketStatusInProgress)
	f.store.addAssignment(ticket, tech, true, domain.AssignmentStateInProgress)

	if err := f.collab.RecordWork(context.Background(), ticket.ID, *tech.UserID, "still fine", nil, nil); err != nil {
		t.Fatalf("RecordWork should succeed despite broadcast failure, got %v", err)
	}
}
