package service

import (
	"context"
	"testing"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func leadCount(assignments []domain.Assignment) int {
	count := 0
	for _, a := range assignments {
		if a.IsLead {
			count++
		}
	}
	return count
}

func TestSetAssignmentsFirstInListBecomesLead(t *testing.T) {
	f := newFixture()
	alice := f.store.addTechnician("Alice")
	bob := f.store.addTechnician("Bob")
	client := f.store.addUser("Client", domain.RoleClient)
	admin := f.store.addUser("Admin", domain.RoleAdmin)
	ticket := f.store.addTicket(client, domain.TicketStatusOpen)

	result, err := f.manager.SetAssignments(context.Background(), ticket.ID, []string{alice.ID, bob.ID}, nil, admin.ID)
	if err != nil {
		t.Fatalf("SetAssignments: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("assignments = %d, want 2", len(result))
	}
	if leadCount(result) != 1 {
		t.Fatalf("lead count = %d, want exactly 1", leadCount(result))
	}
	for _, a := range result {
		if a.IsLead && a.TechnicianID != alice.ID {
			t.Errorf("lead = %s, want first-listed %s", a.TechnicianID, alice.ID)
		}
		if a.State != domain.AssignmentStateInvited {
			t.Errorf("new assignment state = %s, want INVITED", a.State)
		}
	}

	stored := f.store.tickets[ticket.ID]
	if stored.LeadTechnicianID == nil || *stored.LeadTechnicianID != alice.ID {
		t.Errorf("ticket lead projection = %v, want %s", stored.LeadTechnicianID, alice.ID)
	}
}

func TestSetAssignmentsRespectsRequestedLead(t *testing.T) {
	f := newFixture()
	alice := f.store.addTechnician("Alice")
	bob := f.store.addTechnician("Bob")
	admin := f.store.addUser("Admin", domain.RoleAdmin)
	client := f.store.addUser("Client", domain.RoleClient)
	ticket := f.store.addTicket(client, domain.TicketStatusOpen)

	result, err := f.manager.SetAssignments(context.Background(), ticket.ID, []string{alice.ID, bob.ID}, &bob.ID, admin.ID)
	if err != nil {
		t.Fatalf("SetAssignments: %v", err)
	}
	for _, a := range result {
		if a.IsLead != (a.TechnicianID == bob.ID) {
			t.Errorf("technician %s lead=%v, want lead only for %s", a.TechnicianID, a.IsLead, bob.ID)
		}
	}
}

func TestSetAssignmentsKeepsSurvivingLeadAndState(t *testing.T) {
	f := newFixture()
	alice := f.store.addTechnician("Alice")
	bob := f.store.addTechnician("Bob")
	cara := f.store.addTechnician("Cara")
	admin := f.store.addUser("Admin", domain.RoleAdmin)
	client := f.store.addUser("Client", domain.RoleClient)
	ticket := f.store.addTicket(client, domain.TicketStatusOpen)

	f.store.addAssignment(ticket, alice, false, domain.AssignmentStateInProgress)
	f.store.addAssignment(ticket, bob, true, domain.AssignmentStateAssigned)

	// Replace Alice with Cara; Bob survives and keeps the lead.
	result, err := f.manager.SetAssignments(context.Background(), ticket.ID, []string{cara.ID, bob.ID}, nil, admin.ID)
	if err != nil {
		t.Fatalf("SetAssignments: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("assignments = %d, want 2", len(result))
	}
	for _, a := range result {
		switch a.TechnicianID {
		case bob.ID:
			if !a.IsLead {
				t.Error("surviving lead should remain lead")
			}
			if a.State != domain.AssignmentStateAssigned {
				t.Errorf("surviving state = %s, want ASSIGNED", a.State)
			}
		case cara.ID:
			if a.IsLead {
				t.Error("new technician should not take the lead from a survivor")
			}
		default:
			t.Errorf("unexpected technician %s in result", a.TechnicianID)
		}
	}

	if _, err := f.store.repositories().Assignments.GetByTicketAndTechnician(context.Background(), ticket.ID, alice.ID); !isNoRows(err) {
		t.Error("removed technician should no longer be assigned")
	}
}

func TestSetAssignmentsRejectsUnknownTechnician(t *testing.T) {
	f := newFixture()
	admin := f.store.addUser("Admin", domain.RoleAdmin)
	client := f.store.addUser("Client", domain.RoleClient)
	ticket := f.store.addTicket(client, domain.TicketStatusOpen)

	if _, err := f.manager.SetAssignments(context.Background(), ticket.ID, []string{"tech-missing"}, nil, admin.ID); err == nil {
		t.Fatal("expected validation error for unknown technician")
	}
}

func TestSetAssignmentsEmptyListClearsLead(t *testing.T) {
	f := newFixture()
	alice := f.store.addTechnician("Alice")
	admin := f.store.addUser("Admin", domain.RoleAdmin)
	client := f.store.addUser("Client", domain.RoleClient)
	ticket := f.store.addTicket(client, domain.TicketStatusOpen)
	f.store.addAssignment(ticket, alice, true, domain.AssignmentStateAssigned)

	result, err := f.manager.SetAssignments(context.Background(), ticket.ID, nil, nil, admin.ID)
	if err != nil {
		t.Fatalf("SetAssignments: %v", err)
	}
	if len(result) != 0 {
		t.Fatalf("assignments = %d, want 0", len(result))
	}
	stored := f.store.tickets[ticket.ID]
	if stored.LeadTechnicianID != nil || stored.LeadUserID != nil {
		t.Error("lead projection should be cleared when all technicians are removed")
	}
}

func TestRemoveAssignmentPromotesNextLead(t *testing.T) {
	f := newFixture()
	alice := f.store.addTechnician("Alice")
	bob := f.store.addTechnician("Bob")
	admin := f.store.addUser("Admin", domain.RoleAdmin)
	client := f.store.addUser("Client", domain.RoleClient)
	ticket := f.store.addTicket(client, domain.TicketStatusOpen)
	f.store.addAssignment(ticket, alice, true, domain.AssignmentStateAssigned)
	f.store.addAssignment(ticket, bob, false, domain.AssignmentStateInvited)

	removed, err := f.manager.RemoveAssignment(context.Background(), ticket.ID, alice.ID, admin.ID)
	if err != nil {
		t.Fatalf("RemoveAssignment: %v", err)
	}
	if !removed {
		t.Fatal("removed = false, want true")
	}

	remaining, _ := f.store.repositories().Assignments.ListByTicket(context.Background(), ticket.ID)
	if len(remaining) != 1 || !remaining[0].IsLead || remaining[0].TechnicianID != bob.ID {
		t.Fatalf("remaining = %+v, want Bob promoted to lead", remaining)
	}
	stored := f.store.tickets[ticket.ID]
	if stored.LeadTechnicianID == nil || *stored.LeadTechnicianID != bob.ID {
		t.Errorf("lead projection = %v, want %s", stored.LeadTechnicianID, bob.ID)
	}
}

func TestRemoveAssignmentClearsResponsible(t *testing.T) {
	f := newFixture()
	alice := f.store.addTechnician("Alice")
	bob := f.store.addTechnician("Bob")
	admin := f.store.addUser("Admin", domain.RoleAdmin)
	client := f.store.addUser("Client", domain.RoleClient)
	ticket := f.store.addTicket(client, domain.TicketStatusOpen)
	f.store.addAssignment(ticket, bob, true, domain.AssignmentStateAssigned)
	f.store.addAssignment(ticket, alice, false, domain.AssignmentStateInProgress)

	if _, err := f.responsible.SetResponsible(context.Background(), ticket.ID, alice.ID, admin.ID, domain.RoleAdmin); err != nil {
		t.Fatalf("SetResponsible: %v", err)
	}

	removed, err := f.manager.RemoveAssignment(context.Background(), ticket.ID, alice.ID, admin.ID)
	if err != nil {
		t.Fatalf("RemoveAssignment: %v", err)
	}
	if !removed {
		t.Fatal("removed = false, want true")
	}

	stored := f.store.tickets[ticket.ID]
	if stored.ResponsibleTechnicianID != nil || stored.ResponsibleUserID != nil ||
		stored.ResponsibleSetByUserID != nil || stored.ResponsibleSetAt != nil {
		t.Errorf("responsible fields = %v/%v/%v/%v, want all cleared after removing the responsible technician",
			stored.ResponsibleTechnicianID, stored.ResponsibleUserID, stored.ResponsibleSetByUserID, stored.ResponsibleSetAt)
	}
	if stored.LeadTechnicianID == nil || *stored.LeadTechnicianID != bob.ID {
		t.Errorf("lead projection = %v, want untouched lead %s", stored.LeadTechnicianID, bob.ID)
	}
}

func TestRemoveAssignmentMissingIsNoop(t *testing.T) {
	f := newFixture()
	admin := f.store.addUser("Admin", domain.RoleAdmin)
	client := f.store.addUser("Client", domain.RoleClient)
	ticket := f.store.addTicket(client, domain.TicketStatusOpen)

	removed, err := f.manager.RemoveAssignment(context.Background(), ticket.ID, "tech-missing", admin.ID)
	if err != nil {
		t.Fatalf("RemoveAssignment: %v", err)
	}
	if removed {
		t.Fatal("removed = true, want false for technician not assigned")
	}
}

func TestListAssignmentsHiddenFromOutsideTechnician(t *testing.T) {
	f := newFixture()
	alice := f.store.addTechnician("Alice")
	outsider := f.store.addTechnician("Outsider")
	client := f.store.addUser("Client", domain.RoleClient)
	ticket := f.store.addTicket(client, domain.TicketStatusOpen)
	f.store.addAssignment(ticket, alice, true, domain.AssignmentStateAssigned)

	visible, err := f.manager.ListAssignments(context.Background(), ticket.ID, *alice.UserID, domain.RoleTechnician)
	if err != nil {
		t.Fatalf("ListAssignments: %v", err)
	}
	if len(visible) != 1 {
		t.Errorf("assigned technician sees %d assignments, want 1", len(visible))
	}

	hidden, err := f.manager.ListAssignments(context.Background(), ticket.ID, *outsider.UserID, domain.RoleTechnician)
	if err != nil {
		t.Fatalf("ListAssignments: %v", err)
	}
	if len(hidden) != 0 {
		t.Errorf("outside technician sees %d assignments, want 0", len(hidden))
	}
}
