package ward

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

var validRoomStatuses = map[string]bool{
	RoomAvailable:   true,
	RoomOccupied:    true,
	RoomCleaning:    true,
	RoomMaintenance: true,
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateRoom(ctx context.Context, room *Room) error {
	if room.Label == "" {
		return fmt.Errorf("label is required")
	}
	if room.Capacity < 0 {
		return fmt.Errorf("capacity must not be negative")
	}
	if room.Status != "" && !validRoomStatuses[room.Status] {
		return fmt.Errorf("invalid status: %s", room.Status)
	}
	return s.repo.CreateRoom(ctx, room)
}

func (s *Service) GetRoom(ctx context.Context, id uuid.UUID) (*RoomDetail, error) {
	return s.repo.GetRoomDetail(ctx, id)
}

func (s *Service) ListRooms(ctx context.Context, limit, offset int) ([]*RoomDetail, int, error) {
	return s.repo.ListRooms(ctx, limit, offset)
}

func (s *Service) UpdateRoomStatus(ctx context.Context, id uuid.UUID, status string, notes *string) (*Room, error) {
	if !validRoomStatuses[status] {
		return nil, fmt.Errorf("invalid status: %s", status)
	}
	return s.repo.UpdateRoomStatus(ctx, id, status, notes)
}

// CreateBed adds a bed to a room. The room's capacity counter moves with
// the bed count but stays advisory: operators can set it independently.
func (s *Service) CreateBed(ctx context.Context, roomID uuid.UUID, label string) (*Bed, error) {
	if label == "" {
		return nil, fmt.Errorf("label is required")
	}
	bed := &Bed{RoomID: roomID, Label: label, Status: BedAvailable}
	if err := s.repo.CreateBed(ctx, bed); err != nil {
		return nil, err
	}
	return bed, nil
}

func (s *Service) DeleteBed(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteBed(ctx, id)
}

func (s *Service) LogHousekeeping(ctx context.Context, hk *HousekeepingLog) error {
	if hk.Status == "" {
		return fmt.Errorf("status is required")
	}
	if _, err := s.repo.GetRoom(ctx, hk.RoomID); err != nil {
		return err
	}
	return s.repo.AddHousekeepingLog(ctx, hk)
}

func (s *Service) ListHousekeeping(ctx context.Context, roomID uuid.UUID, limit, offset int) ([]*HousekeepingLog, int, error) {
	if _, err := s.repo.GetRoom(ctx, roomID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListHousekeeping(ctx, roomID, limit, offset)
}
