package assignment

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// -- Mock Repository --
//
// The mock mirrors the transactional semantics of the pg repository:
// conditional bed claims, active-uniqueness enforcement and room status
// recompute all happen inside each call.

type mockRoom struct {
	id     uuid.UUID
	status string
}

type mockRepo struct {
	rooms       map[uuid.UUID]*mockRoom
	beds        map[uuid.UUID]*Bed
	assignments map[uuid.UUID]*Assignment
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		rooms:       make(map[uuid.UUID]*mockRoom),
		beds:        make(map[uuid.UUID]*Bed),
		assignments: make(map[uuid.UUID]*Assignment),
	}
}

func (m *mockRepo) addRoom() *mockRoom {
	room := &mockRoom{id: uuid.New(), status: "AVAILABLE"}
	m.rooms[room.id] = room
	return room
}

func (m *mockRepo) addBed(roomID uuid.UUID, label, status string) *Bed {
	bed := &Bed{ID: uuid.New(), RoomID: roomID, Label: label, Status: status}
	m.beds[bed.ID] = bed
	m.recomputeRoom(roomID)
	return bed
}

func (m *mockRepo) recomputeRoom(roomID uuid.UUID) {
	room, ok := m.rooms[roomID]
	if !ok {
		return
	}
	hasBeds, hasAssignable := false, false
	for _, b := range m.beds {
		if b.RoomID != roomID {
			continue
		}
		hasBeds = true
		if b.Status != "OCCUPIED" {
			hasAssignable = true
		}
	}
	if hasBeds && !hasAssignable {
		room.status = "OCCUPIED"
	} else {
		room.status = "AVAILABLE"
	}
}

func (m *mockRepo) RoomExists(_ context.Context, roomID uuid.UUID) (bool, error) {
	_, ok := m.rooms[roomID]
	return ok, nil
}

func (m *mockRepo) GetActiveByPatient(_ context.Context, patientID uuid.UUID) (*Assignment, error) {
	for _, a := range m.assignments {
		if a.PatientID == patientID && a.Status == StatusActive {
			return a, nil
		}
	}
	return nil, nil
}

func (m *mockRepo) GetActiveByBed(_ context.Context, bedID uuid.UUID) (*Assignment, error) {
	for _, a := range m.assignments {
		if a.BedID == bedID && a.Status == StatusActive {
			return a, nil
		}
	}
	return nil, ErrAssignmentNotFound
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Assignment, error) {
	a, ok := m.assignments[id]
	if !ok {
		return nil, ErrAssignmentNotFound
	}
	return a, nil
}

func (m *mockRepo) Create(ctx context.Context, a *Assignment, bedID *uuid.UUID) (*Bed, error) {
	// Re-validate exclusivity the way the partial unique indexes would.
	if active, _ := m.GetActiveByPatient(ctx, a.PatientID); active != nil {
		return nil, ErrPatientAlreadyAssigned
	}

	var bed *Bed
	if bedID != nil {
		b, ok := m.beds[*bedID]
		if !ok || b.RoomID != a.RoomID {
			return nil, ErrBedNotInRoom
		}
		if b.Status != "AVAILABLE" && b.Status != "CLEANING" {
			return nil, ErrBedUnavailable
		}
		bed = b
	} else {
		var candidates []*Bed
		for _, b := range m.beds {
			if b.RoomID == a.RoomID && b.Status == "AVAILABLE" {
				candidates = append(candidates, b)
			}
		}
		if len(candidates) == 0 {
			return nil, ErrNoAvailableBeds
		}
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].Label < candidates[j].Label })
		bed = candidates[0]
	}

	bed.Status = "OCCUPIED"
	a.ID = uuid.New()
	a.BedID = bed.ID
	a.Status = StatusActive
	if a.AssignedAt.IsZero() {
		a.AssignedAt = time.Now().UTC()
	}
	m.assignments[a.ID] = a
	m.recomputeRoom(a.RoomID)
	return bed, nil
}

func (m *mockRepo) Complete(_ context.Context, id uuid.UUID, notes *string, bedStatus string) (*Bed, error) {
	a, ok := m.assignments[id]
	if !ok || a.Status != StatusActive {
		return nil, ErrAssignmentNotFound
	}
	a.Status = StatusCompleted
	now := time.Now().UTC()
	a.ReleasedAt = &now
	if notes != nil {
		if a.Notes == nil || *a.Notes == "" {
			a.Notes = notes
		} else {
			combined := *a.Notes + "\n" + *notes
			a.Notes = &combined
		}
	}

	bed, ok := m.beds[a.BedID]
	if !ok {
		return &Bed{ID: a.BedID, RoomID: a.RoomID, Status: bedStatus}, nil
	}
	bed.Status = bedStatus
	m.recomputeRoom(bed.RoomID)
	return bed, nil
}

func (m *mockRepo) ListExpiredActive(_ context.Context, before time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, a := range m.assignments {
		if a.Status == StatusActive && a.AssignedAt.Before(before) {
			ids = append(ids, a.ID)
		}
	}
	return ids, nil
}

func (m *mockRepo) ListByRoom(_ context.Context, roomID uuid.UUID, limit, offset int) ([]*Detail, int, error) {
	var details []*Detail
	for _, a := range m.assignments {
		if a.RoomID != roomID {
			continue
		}
		d := &Detail{Assignment: *a}
		if bed, ok := m.beds[a.BedID]; ok {
			d.BedLabel = bed.Label
		}
		details = append(details, d)
	}
	sort.Slice(details, func(i, j int) bool {
		return details[i].AssignedAt.After(details[j].AssignedAt)
	})
	return details, len(details), nil
}

// -- Mock collaborators --

type mockPatients struct {
	known map[uuid.UUID]string
}

func (m *mockPatients) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := m.known[id]
	return ok, nil
}

func (m *mockPatients) DisplayName(_ context.Context, id uuid.UUID) (string, error) {
	return m.known[id], nil
}

type mockStaff struct {
	mapping map[uuid.UUID]uuid.UUID
}

func (m *mockStaff) Resolve(_ context.Context, ref uuid.UUID) (*uuid.UUID, error) {
	if id, ok := m.mapping[ref]; ok {
		return &id, nil
	}
	return nil, nil
}

// -- Test fixture --

type env struct {
	svc      *Service
	repo     *mockRepo
	patients *mockPatients
	staff    *mockStaff
}

func newEnv() *env {
	repo := newMockRepo()
	patients := &mockPatients{known: make(map[uuid.UUID]string)}
	staff := &mockStaff{mapping: make(map[uuid.UUID]uuid.UUID)}
	return &env{
		svc:      NewService(repo, patients, staff, zerolog.Nop()),
		repo:     repo,
		patients: patients,
		staff:    staff,
	}
}

func (e *env) addPatient(name string) uuid.UUID {
	id := uuid.New()
	e.patients.known[id] = name
	return id
}

// -- Tests --

func TestCreate_AutoPickLowestLabel(t *testing.T) {
	e := newEnv()
	room := e.repo.addRoom()
	e.repo.addBed(room.id, "Bed 2", "AVAILABLE")
	bed1 := e.repo.addBed(room.id, "Bed 1", "AVAILABLE")
	patient := e.addPatient("Asha Patel")

	detail, err := e.svc.Create(context.Background(), CreateRequest{RoomID: room.id, PatientID: patient})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.BedID != bed1.ID {
		t.Errorf("expected lowest-labelled bed %s, got %s", bed1.Label, detail.BedLabel)
	}
	if detail.Status != StatusActive {
		t.Errorf("expected ACTIVE, got %s", detail.Status)
	}
	if detail.PatientName != "Asha Patel" {
		t.Errorf("expected patient name attached, got %q", detail.PatientName)
	}
}

func TestCreate_SpecificBed(t *testing.T) {
	e := newEnv()
	room := e.repo.addRoom()
	e.repo.addBed(room.id, "Bed 1", "AVAILABLE")
	bed2 := e.repo.addBed(room.id, "Bed 2", "AVAILABLE")
	patient := e.addPatient("Asha Patel")

	detail, err := e.svc.Create(context.Background(), CreateRequest{RoomID: room.id, PatientID: patient, BedID: &bed2.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.BedID != bed2.ID {
		t.Errorf("expected requested bed, got %s", detail.BedLabel)
	}
	if bed2.Status != "OCCUPIED" {
		t.Errorf("expected bed OCCUPIED, got %s", bed2.Status)
	}
}

func TestCreate_CleaningBedIsAssignable(t *testing.T) {
	e := newEnv()
	room := e.repo.addRoom()
	bed := e.repo.addBed(room.id, "Bed 1", "CLEANING")
	patient := e.addPatient("Asha Patel")

	_, err := e.svc.Create(context.Background(), CreateRequest{RoomID: room.id, PatientID: patient, BedID: &bed.ID})
	if err != nil {
		t.Fatalf("expected CLEANING bed to be assignable, got %v", err)
	}
	if bed.Status != "OCCUPIED" {
		t.Errorf("expected bed OCCUPIED, got %s", bed.Status)
	}
}

func TestCreate_RoomNotFound(t *testing.T) {
	e := newEnv()
	patient := e.addPatient("Asha Patel")

	_, err := e.svc.Create(context.Background(), CreateRequest{RoomID: uuid.New(), PatientID: patient})
	if err != ErrRoomNotFound {
		t.Errorf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestCreate_PatientNotFound(t *testing.T) {
	e := newEnv()
	room := e.repo.addRoom()
	e.repo.addBed(room.id, "Bed 1", "AVAILABLE")

	_, err := e.svc.Create(context.Background(), CreateRequest{RoomID: room.id, PatientID: uuid.New()})
	if err != ErrPatientNotFound {
		t.Errorf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestCreate_PatientAlreadyAssigned(t *testing.T) {
	e := newEnv()
	r1 := e.repo.addRoom()
	r2 := e.repo.addRoom()
	e.repo.addBed(r1.id, "Bed 1", "AVAILABLE")
	e.repo.addBed(r2.id, "Bed 1", "AVAILABLE")
	patient := e.addPatient("Asha Patel")

	if _, err := e.svc.Create(context.Background(), CreateRequest{RoomID: r1.id, PatientID: patient}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Uniqueness is global, a bed in another room is still a conflict.
	_, err := e.svc.Create(context.Background(), CreateRequest{RoomID: r2.id, PatientID: patient})
	if err != ErrPatientAlreadyAssigned {
		t.Errorf("expected ErrPatientAlreadyAssigned, got %v", err)
	}
}

func TestCreate_BedNotInRoom(t *testing.T) {
	e := newEnv()
	r1 := e.repo.addRoom()
	r2 := e.repo.addRoom()
	bedElsewhere := e.repo.addBed(r2.id, "Bed 1", "AVAILABLE")
	patient := e.addPatient("Asha Patel")

	_, err := e.svc.Create(context.Background(), CreateRequest{RoomID: r1.id, PatientID: patient, BedID: &bedElsewhere.ID})
	if err != ErrBedNotInRoom {
		t.Errorf("expected ErrBedNotInRoom, got %v", err)
	}
}

func TestCreate_BedUnavailable(t *testing.T) {
	e := newEnv()
	room := e.repo.addRoom()
	bed := e.repo.addBed(room.id, "Bed 1", "AVAILABLE")
	e.repo.addBed(room.id, "Bed 2", "AVAILABLE")
	p1 := e.addPatient("Asha Patel")
	p2 := e.addPatient("Ravi Nair")

	if _, err := e.svc.Create(context.Background(), CreateRequest{RoomID: room.id, PatientID: p1, BedID: &bed.ID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := e.svc.Create(context.Background(), CreateRequest{RoomID: room.id, PatientID: p2, BedID: &bed.ID})
	if err != ErrBedUnavailable {
		t.Errorf("expected ErrBedUnavailable, got %v", err)
	}
}

func TestCreate_NoAvailableBeds(t *testing.T) {
	e := newEnv()
	room := e.repo.addRoom()
	patient := e.addPatient("Asha Patel")

	_, err := e.svc.Create(context.Background(), CreateRequest{RoomID: room.id, PatientID: patient})
	if err != ErrNoAvailableBeds {
		t.Errorf("expected ErrNoAvailableBeds, got %v", err)
	}
}

func TestCreate_DoctorReferenceResolved(t *testing.T) {
	e := newEnv()
	room := e.repo.addRoom()
	e.repo.addBed(room.id, "Bed 1", "AVAILABLE")
	patient := e.addPatient("Asha Patel")

	personID := uuid.New()
	roleID := uuid.New()
	e.staff.mapping[personID] = roleID

	detail, err := e.svc.Create(context.Background(), CreateRequest{RoomID: room.id, PatientID: patient, DoctorRef: &personID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.DoctorID == nil || *detail.DoctorID != roleID {
		t.Errorf("expected resolved staff role id %s, got %v", roleID, detail.DoctorID)
	}
}

func TestCreate_UnresolvableDoctorDropped(t *testing.T) {
	e := newEnv()
	room := e.repo.addRoom()
	e.repo.addBed(room.id, "Bed 1", "AVAILABLE")
	patient := e.addPatient("Asha Patel")

	unknown := uuid.New()
	detail, err := e.svc.Create(context.Background(), CreateRequest{RoomID: room.id, PatientID: patient, DoctorRef: &unknown})
	if err != nil {
		t.Fatalf("assignment should proceed without a doctor, got %v", err)
	}
	if detail.DoctorID != nil {
		t.Errorf("expected dropped doctor reference, got %v", detail.DoctorID)
	}
}

func TestRelease_ByAssignmentID(t *testing.T) {
	e := newEnv()
	room := e.repo.addRoom()
	e.repo.addBed(room.id, "Bed 1", "AVAILABLE")
	patient := e.addPatient("Asha Patel")

	detail, err := e.svc.Create(context.Background(), CreateRequest{RoomID: room.id, PatientID: patient})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bed, err := e.svc.Release(context.Background(), ReleaseRequest{AssignmentID: &detail.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bed.Status != "CLEANING" {
		t.Errorf("manual release must send the bed to CLEANING, got %s", bed.Status)
	}
	a, _ := e.svc.Get(context.Background(), detail.ID)
	if a.Status != StatusCompleted || a.ReleasedAt == nil {
		t.Errorf("expected COMPLETED with released_at set, got %s %v", a.Status, a.ReleasedAt)
	}
}

func TestRelease_ByBedID(t *testing.T) {
	e := newEnv()
	room := e.repo.addRoom()
	bed := e.repo.addBed(room.id, "Bed 1", "AVAILABLE")
	patient := e.addPatient("Asha Patel")

	if _, err := e.svc.Create(context.Background(), CreateRequest{RoomID: room.id, PatientID: patient, BedID: &bed.ID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	released, err := e.svc.Release(context.Background(), ReleaseRequest{BedID: &bed.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if released.ID != bed.ID {
		t.Errorf("expected bed %s, got %s", bed.ID, released.ID)
	}
}

func TestRelease_ByBedID_NoActiveAssignment(t *testing.T) {
	e := newEnv()
	room := e.repo.addRoom()
	bed := e.repo.addBed(room.id, "Bed 1", "AVAILABLE")

	_, err := e.svc.Release(context.Background(), ReleaseRequest{BedID: &bed.ID})
	if err != ErrAssignmentNotFound {
		t.Errorf("expected ErrAssignmentNotFound, got %v", err)
	}
}

func TestRelease_TwiceFails(t *testing.T) {
	e := newEnv()
	room := e.repo.addRoom()
	e.repo.addBed(room.id, "Bed 1", "AVAILABLE")
	patient := e.addPatient("Asha Patel")

	detail, err := e.svc.Create(context.Background(), CreateRequest{RoomID: room.id, PatientID: patient})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := e.svc.Release(context.Background(), ReleaseRequest{AssignmentID: &detail.ID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = e.svc.Release(context.Background(), ReleaseRequest{AssignmentID: &detail.ID})
	if err != ErrAssignmentNotFound {
		t.Errorf("second release must fail with ErrAssignmentNotFound, got %v", err)
	}
}

func TestRelease_RequiresIdentifier(t *testing.T) {
	e := newEnv()
	if _, err := e.svc.Release(context.Background(), ReleaseRequest{}); err == nil {
		t.Fatal("expected error when neither assignment_id nor bed_id is given")
	}
}

func TestRoomStatusScenario(t *testing.T) {
	e := newEnv()
	room := e.repo.addRoom()
	bed1 := e.repo.addBed(room.id, "Bed 1", "AVAILABLE")
	bed2 := e.repo.addBed(room.id, "Bed 2", "AVAILABLE")
	p1 := e.addPatient("Asha Patel")
	p2 := e.addPatient("Ravi Nair")

	a1, err := e.svc.Create(context.Background(), CreateRequest{RoomID: room.id, PatientID: p1, BedID: &bed1.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if room.status == "OCCUPIED" {
		t.Error("room must stay AVAILABLE while Bed 2 is free")
	}

	if _, err := e.svc.Create(context.Background(), CreateRequest{RoomID: room.id, PatientID: p2, BedID: &bed2.ID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if room.status != "OCCUPIED" {
		t.Error("room must be OCCUPIED once every bed is taken")
	}

	if _, err := e.svc.Release(context.Background(), ReleaseRequest{AssignmentID: &a1.ID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if room.status == "OCCUPIED" {
		t.Error("room must leave OCCUPIED after a bed frees up")
	}
	if bed1.Status != "CLEANING" {
		t.Errorf("released bed must be CLEANING, got %s", bed1.Status)
	}
}

func TestReleaseExpired(t *testing.T) {
	e := newEnv()
	room := e.repo.addRoom()
	bed1 := e.repo.addBed(room.id, "Bed 1", "AVAILABLE")
	bed2 := e.repo.addBed(room.id, "Bed 2", "AVAILABLE")
	p1 := e.addPatient("Asha Patel")
	p2 := e.addPatient("Ravi Nair")

	stale, err := e.svc.Create(context.Background(), CreateRequest{RoomID: room.id, PatientID: p1, BedID: &bed1.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e.repo.assignments[stale.ID].AssignedAt = time.Now().UTC().Add(-25 * time.Hour)

	if _, err := e.svc.Create(context.Background(), CreateRequest{RoomID: room.id, PatientID: p2, BedID: &bed2.ID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	released, err := e.svc.ReleaseExpired(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if released != 1 {
		t.Fatalf("expected 1 released, got %d", released)
	}

	// Expired holds skip CLEANING, the bed is immediately reusable.
	if bed1.Status != "AVAILABLE" {
		t.Errorf("expected expired bed AVAILABLE, got %s", bed1.Status)
	}
	if bed2.Status != "OCCUPIED" {
		t.Errorf("fresh assignment must be untouched, bed is %s", bed2.Status)
	}

	a := e.repo.assignments[stale.ID]
	if a.Status != StatusCompleted {
		t.Errorf("expected COMPLETED, got %s", a.Status)
	}
	if a.Notes == nil || *a.Notes != AutoReleaseNote {
		t.Errorf("expected auto-release note, got %v", a.Notes)
	}
}

func TestReleaseExpired_NothingToDo(t *testing.T) {
	e := newEnv()
	released, err := e.svc.ReleaseExpired(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if released != 0 {
		t.Errorf("expected 0 released, got %d", released)
	}
}

func TestHistory_NewestFirst(t *testing.T) {
	e := newEnv()
	room := e.repo.addRoom()
	bed := e.repo.addBed(room.id, "Bed 1", "AVAILABLE")
	p1 := e.addPatient("Asha Patel")
	p2 := e.addPatient("Ravi Nair")

	first, err := e.svc.Create(context.Background(), CreateRequest{RoomID: room.id, PatientID: p1, BedID: &bed.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e.repo.assignments[first.ID].AssignedAt = time.Now().UTC().Add(-time.Hour)
	if _, err := e.svc.Release(context.Background(), ReleaseRequest{AssignmentID: &first.ID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := e.svc.Create(context.Background(), CreateRequest{RoomID: room.id, PatientID: p2, BedID: &bed.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	history, total, err := e.svc.History(context.Background(), room.id, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(history) != 2 {
		t.Fatalf("expected 2 entries, got total=%d len=%d", total, len(history))
	}
	if history[0].ID != second.ID {
		t.Error("expected newest assignment first")
	}
	if history[1].Status != StatusCompleted {
		t.Errorf("completed assignment must remain in history, got %s", history[1].Status)
	}
}

func TestHistory_RoomNotFound(t *testing.T) {
	e := newEnv()
	_, _, err := e.svc.History(context.Background(), uuid.New(), 20, 0)
	if err != ErrRoomNotFound {
		t.Errorf("expected ErrRoomNotFound, got %v", err)
	}
}
