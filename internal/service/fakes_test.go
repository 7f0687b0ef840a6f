package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// memStore holds all in-memory tables and satisfies repository.TxManager.
// There is no real transaction semantics; tests that exercise rollback
// behavior assert on returned errors instead.
type memStore struct {
	seq          int
	tickets      map[string]*domain.Ticket
	assignments  map[string]*domain.Assignment
	workSessions map[string]*domain.WorkSession
	activities   []*domain.ActivityRecord
	technicians  map[string]*domain.Technician
	users        map[string]*domain.User
	messages     []*domain.TicketMessage
}

func newMemStore() *memStore {
	return &memStore{
		tickets:      map[string]*domain.Ticket{},
		assignments:  map[string]*domain.Assignment{},
		workSessions: map[string]*domain.WorkSession{},
		technicians:  map[string]*domain.Technician{},
		users:        map[string]*domain.User{},
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%03d", prefix, s.seq)
}

func (s *memStore) repositories() repository.Repositories {
	return repository.Repositories{
		Tickets:      &memTicketRepo{s},
		Assignments:  &memAssignmentRepo{s},
		WorkSessions: &memWorkSessionRepo{s},
		Activities:   &memActivityRepo{s},
		Technicians:  &memTechnicianRepo{s},
		Users:        &memUserRepo{s},
		Messages:     &memMessageRepo{s},
	}
}

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, r repository.Repositories) error) error {
	return fn(ctx, s.repositories())
}

// addUser seeds a user and returns it.
func (s *memStore) addUser(name string, role domain.UserRole) *domain.User {
	user := &domain.User{
		ID:       s.nextID("user"),
		FullName: name,
		Email:    strings.ToLower(name) + "@example.com",
		Role:     role,
		Status:   domain.UserStatusActive,
	}
	s.users[user.ID] = user
	return user
}

// addTechnician seeds an active technician linked to a fresh user.
func (s *memStore) addTechnician(name string) *domain.Technician {
	user := s.addUser(name, domain.RoleTechnician)
	tech := &domain.Technician{
		ID:       s.nextID("tech"),
		FullName: name,
		Email:    user.Email,
		UserID:   &user.ID,
		IsActive: true,
	}
	s.technicians[tech.ID] = tech
	return tech
}

func (s *memStore) addTicket(creator *domain.User, status domain.TicketStatus) *domain.Ticket {
	ticket := &domain.Ticket{
		ID:              s.nextID("ticket"),
		ExternalKey:     "TCK-" + s.nextID("key"),
		Title:           "Printer on fire",
		Status:          status,
		Priority:        domain.TicketPriorityMedium,
		CreatedByUserID: creator.ID,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	s.tickets[ticket.ID] = ticket
	return ticket
}

func (s *memStore) addAssignment(ticket *domain.Ticket, tech *domain.Technician, isLead bool, state domain.AssignmentState) *domain.Assignment {
	a := &domain.Assignment{
		ID:               s.nextID("asg"),
		TicketID:         ticket.ID,
		TechnicianID:     tech.ID,
		TechnicianUserID: *tech.UserID,
		IsLead:           isLead,
		State:            state,
		AssignedAt:       time.Now(),
	}
	s.assignments[a.ID] = a
	if isLead {
		ticket.LeadTechnicianID = &tech.ID
		ticket.LeadUserID = tech.UserID
	}
	return a
}

func (s *memStore) activityMessages(ticketID string) []string {
	var out []string
	for _, a := range s.activities {
		if a.TicketID == ticketID {
			out = append(out, a.Message)
		}
	}
	return out
}

func (s *memStore) countActivities(ticketID string, activityType domain.ActivityType) int {
	count := 0
	for _, a := range s.activities {
		if a.TicketID == ticketID && a.Type == activityType {
			count++
		}
	}
	return count
}

type memTicketRepo struct{ s *memStore }

func (r *memTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	ticket.ID = r.s.nextID("ticket")
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = time.Now()
	copied := *ticket
	r.s.tickets[ticket.ID] = &copied
	return nil
}

func (r *memTicketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	if _, ok := r.s.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	copied := *ticket
	r.s.tickets[ticket.ID] = &copied
	return nil
}

func (r *memTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *memTicketRepo) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, t := range r.s.tickets {
		if filter.CreatedByUserID != nil && t.CreatedByUserID != *filter.CreatedByUserID {
			continue
		}
		if filter.AssignedUserID != nil && !r.assignedTo(t, *filter.AssignedUserID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memTicketRepo) assignedTo(t *domain.Ticket, userID string) bool {
	if t.LeadUserID != nil && *t.LeadUserID == userID {
		return true
	}
	for _, a := range r.s.assignments {
		if a.TicketID == t.ID && a.TechnicianUserID == userID {
			return true
		}
	}
	return false
}

func (r *memTicketRepo) ListUnassigned(ctx context.Context, createdFrom, createdTo *time.Time) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, t := range r.s.tickets {
		if t.LeadTechnicianID != nil {
			continue
		}
		if createdFrom != nil && t.CreatedAt.Before(*createdFrom) {
			continue
		}
		if createdTo != nil && t.CreatedAt.After(*createdTo) {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memTicketRepo) CountActiveByTechnician(ctx context.Context, technicianID string, technicianUserID *string) (int, error) {
	count := 0
	for _, t := range r.s.tickets {
		if t.IsClosedOut() {
			continue
		}
		if t.LeadTechnicianID != nil && *t.LeadTechnicianID == technicianID {
			count++
			continue
		}
		if technicianUserID != nil && t.LeadUserID != nil && *t.LeadUserID == *technicianUserID {
			count++
		}
	}
	return count, nil
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

type memAssignmentRepo struct{ s *memStore }

func (r *memAssignmentRepo) Create(ctx context.Context, assignment *domain.Assignment) error {
	assignment.ID = r.s.nextID("asg")
	assignment.AssignedAt = time.Now()
	copied := *assignment
	r.s.assignments[assignment.ID] = &copied
	return nil
}

func (r *memAssignmentRepo) Update(ctx context.Context, assignment *domain.Assignment) error {
	for id, a := range r.s.assignments {
		if a.TicketID == assignment.TicketID && a.TechnicianID == assignment.TechnicianID {
			copied := *assignment
			copied.ID = id
			r.s.assignments[id] = &copied
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *memAssignmentRepo) Delete(ctx context.Context, ticketID, technicianID string) error {
	for id, a := range r.s.assignments {
		if a.TicketID == ticketID && a.TechnicianID == technicianID {
			delete(r.s.assignments, id)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *memAssignmentRepo) GetByTicketAndTechnician(ctx context.Context, ticketID, technicianID string) (*domain.Assignment, error) {
	for _, a := range r.s.assignments {
		if a.TicketID == ticketID && a.TechnicianID == technicianID {
			copied := *a
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memAssignmentRepo) GetByTicketAndTechnicianUser(ctx context.Context, ticketID, technicianUserID string) (*domain.Assignment, error) {
	for _, a := range r.s.assignments {
		if a.TicketID == ticketID && a.TechnicianUserID == technicianUserID {
			copied := *a
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memAssignmentRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.Assignment, error) {
	var out []domain.Assignment
	for _, a := range r.s.assignments {
		if a.TicketID == ticketID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memAssignmentRepo) ListByTechnicianUser(ctx context.Context, technicianUserID string) ([]domain.Assignment, error) {
	var out []domain.Assignment
	for _, a := range r.s.assignments {
		if a.TechnicianUserID == technicianUserID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memWorkSessionRepo struct{ s *memStore }

func (r *memWorkSessionRepo) Upsert(ctx context.Context, session *domain.WorkSession) error {
	for id, existing := range r.s.workSessions {
		if existing.TicketID == session.TicketID && existing.TechnicianUserID == session.TechnicianUserID {
			now := time.Now()
			copied := *session
			copied.ID = id
			copied.StartedAt = existing.StartedAt
			copied.UpdatedAt = &now
			r.s.workSessions[id] = &copied
			return nil
		}
	}
	session.ID = r.s.nextID("ws")
	session.StartedAt = time.Now()
	copied := *session
	r.s.workSessions[session.ID] = &copied
	return nil
}

func (r *memWorkSessionRepo) GetByTicketAndTechnicianUser(ctx context.Context, ticketID, technicianUserID string) (*domain.WorkSession, error) {
	for _, ws := range r.s.workSessions {
		if ws.TicketID == ticketID && ws.TechnicianUserID == technicianUserID {
			copied := *ws
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memWorkSessionRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.WorkSession, error) {
	var out []domain.WorkSession
	for _, ws := range r.s.workSessions {
		if ws.TicketID == ticketID {
			out = append(out, *ws)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memActivityRepo struct{ s *memStore }

func (r *memActivityRepo) Create(ctx context.Context, activity *domain.ActivityRecord) error {
	activity.ID = r.s.nextID("act")
	activity.CreatedAt = time.Now()
	copied := *activity
	r.s.activities = append(r.s.activities, &copied)
	return nil
}

func (r *memActivityRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.ActivityRecord, error) {
	var out []domain.ActivityRecord
	for _, a := range r.s.activities {
		if a.TicketID == ticketID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *memActivityRepo) ListRecentByTicket(ctx context.Context, ticketID string, limit int) ([]domain.ActivityRecord, error) {
	all, _ := r.ListByTicket(ctx, ticketID)
	// Reverse to newest-first, matching the SQL ordering.
	out := make([]domain.ActivityRecord, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

type memTechnicianRepo struct{ s *memStore }

func (r *memTechnicianRepo) Create(ctx context.Context, technician *domain.Technician) error {
	technician.ID = r.s.nextID("tech")
	copied := *technician
	r.s.technicians[technician.ID] = &copied
	return nil
}

func (r *memTechnicianRepo) GetByID(ctx context.Context, id string) (*domain.Technician, error) {
	tech, ok := r.s.technicians[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *tech
	return &copied, nil
}

func (r *memTechnicianRepo) GetByUserID(ctx context.Context, userID string) (*domain.Technician, error) {
	for _, tech := range r.s.technicians {
		if tech.UserID != nil && *tech.UserID == userID {
			copied := *tech
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memTechnicianRepo) ListByIDs(ctx context.Context, ids []string) ([]domain.Technician, error) {
	var out []domain.Technician
	for _, id := range ids {
		if tech, ok := r.s.technicians[id]; ok {
			out = append(out, *tech)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memTechnicianRepo) ListActive(ctx context.Context) ([]domain.Technician, error) {
	var out []domain.Technician
	for _, tech := range r.s.technicians {
		if tech.IsActive {
			out = append(out, *tech)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memUserRepo struct{ s *memStore }

func (r *memUserRepo) Create(ctx context.Context, user *domain.User) error {
	user.ID = r.s.nextID("user")
	copied := *user
	r.s.users[user.ID] = &copied
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, user := range r.s.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memMessageRepo struct{ s *memStore }

func (r *memMessageRepo) Create(ctx context.Context, message *domain.TicketMessage) error {
	message.ID = r.s.nextID("msg")
	message.CreatedAt = time.Now()
	copied := *message
	r.s.messages = append(r.s.messages, &copied)
	return nil
}

func (r *memMessageRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketMessage, error) {
	var out []domain.TicketMessage
	for _, m := range r.s.messages {
		if m.TicketID == ticketID {
			out = append(out, *m)
		}
	}
	return out, nil
}

// recordingNotifier captures notification calls.
type recordingNotifier struct {
	created  []string
	assigned [][]string
	messages []string
	closed   []string
	activity []string
	fail     bool
}

func (n *recordingNotifier) err() error {
	if n.fail {
		return fmt.Errorf("notification channel down")
	}
	return nil
}

func (n *recordingNotifier) NotifyCreated(ctx context.Context, ticketID, title, createdByUserID string) error {
	n.created = append(n.created, ticketID)
	return n.err()
}

func (n *recordingNotifier) NotifyAssigned(ctx context.Context, ticketID, title string, userIDs []string) error {
	n.assigned = append(n.assigned, userIDs)
	return n.err()
}

func (n *recordingNotifier) NotifyMessage(ctx context.Context, ticketID, authorUserID, title string, leadUserID *string, createdByUserID string) error {
	n.messages = append(n.messages, ticketID)
	return n.err()
}

func (n *recordingNotifier) NotifyClosed(ctx context.Context, ticketID, createdByUserID, title string, status domain.TicketStatus) error {
	n.closed = append(n.closed, ticketID)
	return n.err()
}

func (n *recordingNotifier) NotifyActivityToAssigned(ctx context.Context, ticketID, actorUserID, text string) error {
	n.activity = append(n.activity, text)
	return n.err()
}

// recordingBroadcaster captures group broadcasts.
type recordingBroadcaster struct {
	groups []string
	events []string
	fail   bool
}

func (b *recordingBroadcaster) SendToGroup(ctx context.Context, group, event string, payload any) error {
	b.groups = append(b.groups, group)
	b.events = append(b.events, event)
	if b.fail {
		return fmt.Errorf("broadcast channel down")
	}
	return nil
}

type fixture struct {
	store       *memStore
	notifier    *recordingNotifier
	broadcaster *recordingBroadcaster
	engine      *AssignmentEngine
	manager     *AssignmentManager
	responsible *ResponsibleManager
	collab      *CollaborationTracker
	tickets     *TicketService
}

func newFixture() *fixture {
	store := newMemStore()
	notifier := &recordingNotifier{}
	broadcaster := &recordingBroadcaster{}
	logger := zap.NewNop()
	repos := store.repositories()

	collab := NewCollaborationTracker(CollaborationTrackerDependencies{
		Store:       store,
		Repos:       repos,
		Notifier:    notifier,
		Broadcaster: broadcaster,
		Logger:      logger,
	})
	engine := NewAssignmentEngine(AssignmentEngineDependencies{
		Store:    store,
		Repos:    repos,
		Notifier: notifier,
		Logger:   logger,
	})
	manager := NewAssignmentManager(AssignmentManagerDependencies{
		Store:    store,
		Repos:    repos,
		Notifier: notifier,
		Collab:   collab,
		Logger:   logger,
	})
	responsible := NewResponsibleManager(store, collab, logger)
	tickets := NewTicketService(TicketServiceDependencies{
		Store:    store,
		Repos:    repos,
		Engine:   engine,
		Manager:  manager,
		Collab:   collab,
		Notifier: notifier,
		Logger:   logger,
	})

	return &fixture{
		store:       store,
		notifier:    notifier,
		broadcaster: broadcaster,
		engine:      engine,
		manager:     manager,
		responsible: responsible,
		collab:      collab,
		tickets:     tickets,
	}
}
