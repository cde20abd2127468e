package repository

import (
	"errors"
	"time"

	"github.com/tanaka-0224/Iverse2/internal/domain"
	"github.com/tanaka-0224/Iverse2/internal/localstore"
)

// ErrDemoBoardNotFound is returned when a demo board id is unknown
var ErrDemoBoardNotFound = errors.New("demo board not found")

// DemoBoardRepository keeps demo-mode boards in the local store
type DemoBoardRepository interface {
	// List returns every demo board, newest first
	List() ([]domain.DemoBoard, error)
	Find(id string) (*domain.DemoBoard, error)
	Create(board domain.DemoBoard) (*domain.DemoBoard, error)
	// Update merges non-nil fields into the stored board
	Update(id string, title, purpose *string, limitCount *int) (*domain.DemoBoard, error)
}

type demoBoardRepositoryImpl struct {
	store *localstore.Store
}

// NewDemoBoardRepository creates a new instance of DemoBoardRepository
func NewDemoBoardRepository(store *localstore.Store) DemoBoardRepository {
	return &demoBoardRepositoryImpl{store: store}
}

func (r *demoBoardRepositoryImpl) List() ([]domain.DemoBoard, error) {
	var boards []domain.DemoBoard
	if _, err := r.store.Get(localstore.KeyDemoBoards, &boards); err != nil {
		return nil, err
	}
	if boards == nil {
		boards = []domain.DemoBoard{}
	}
	return boards, nil
}

func (r *demoBoardRepositoryImpl) Find(id string) (*domain.DemoBoard, error) {
	boards, err := r.List()
	if err != nil {
		return nil, err
	}
	for i := range boards {
		if boards[i].ID == id {
			return &boards[i], nil
		}
	}
	return nil, ErrDemoBoardNotFound
}

func (r *demoBoardRepositoryImpl) Create(board domain.DemoBoard) (*domain.DemoBoard, error) {
	now := time.Now().UTC()
	if board.ID == "" {
		board.ID = domain.NewDemoID()
	}
	board.CreatedAt = now
	board.UpdatedAt = now

	var boards []domain.DemoBoard
	err := r.store.Mutate(localstore.KeyDemoBoards, &boards, func(bool) error {
		boards = append([]domain.DemoBoard{board}, boards...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &board, nil
}

func (r *demoBoardRepositoryImpl) Update(id string, title, purpose *string, limitCount *int) (*domain.DemoBoard, error) {
	var (
		boards  []domain.DemoBoard
		updated domain.DemoBoard
	)
	err := r.store.Mutate(localstore.KeyDemoBoards, &boards, func(bool) error {
		for i := range boards {
			if boards[i].ID != id {
				continue
			}
			if title != nil {
				boards[i].Title = *title
			}
			if purpose != nil {
				boards[i].Purpose = purpose
			}
			if limitCount != nil {
				boards[i].LimitCount = *limitCount
			}
			boards[i].UpdatedAt = time.Now().UTC()
			updated = boards[i]
			return nil
		}
		return ErrDemoBoardNotFound
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DemoProfileRepository keeps demo-mode profiles in the local store
type DemoProfileRepository interface {
	Get(id string) (*domain.DemoProfile, bool, error)
	Save(profile *domain.DemoProfile) error
}

type demoProfileRepositoryImpl struct {
	store *localstore.Store
}

// NewDemoProfileRepository creates a new instance of DemoProfileRepository
func NewDemoProfileRepository(store *localstore.Store) DemoProfileRepository {
	return &demoProfileRepositoryImpl{store: store}
}

func (r *demoProfileRepositoryImpl) Get(id string) (*domain.DemoProfile, bool, error) {
	var profile domain.DemoProfile
	found, err := r.store.Get(localstore.DemoProfileKey(id), &profile)
	if err != nil || !found {
		return nil, false, err
	}
	return &profile, true, nil
}

func (r *demoProfileRepositoryImpl) Save(profile *domain.DemoProfile) error {
	return r.store.Set(localstore.DemoProfileKey(profile.ID), profile)
}
