package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"reelgen-backend/internal/models"
)

type fakeDeletingStore struct {
	stuck       []*models.File
	deletedRows []uuid.UUID
	rowErrFor   map[uuid.UUID]error
}

func (s *fakeDeletingStore) ListDeleting(ctx context.Context, limit int) ([]*models.File, error) {
	return s.stuck, nil
}

func (s *fakeDeletingStore) DeleteRow(ctx context.Context, id uuid.UUID) error {
	if err := s.rowErrFor[id]; err != nil {
		return err
	}
	s.deletedRows = append(s.deletedRows, id)
	return nil
}

type fakeObjectDeleter struct {
	existing  map[string]bool
	deleted   []string
	deleteErr error
}

func (d *fakeObjectDeleter) Exists(ctx context.Context, objectName string) (bool, error) {
	return d.existing[objectName], nil
}

func (d *fakeObjectDeleter) Delete(ctx context.Context, objectName string) error {
	if d.deleteErr != nil {
		return d.deleteErr
	}
	d.deleted = append(d.deleted, objectName)
	return nil
}

func stuckFile(objectName string) *models.File {
	return &models.File{
		ID:         uuid.New(),
		ObjectName: objectName,
		Status:     models.FileStatusDeleting,
	}
}

func TestSweep_DeletesObjectThenRow(t *testing.T) {
	f := stuckFile("user_x/doc.pdf")
	files := &fakeDeletingStore{stuck: []*models.File{f}}
	store := &fakeObjectDeleter{existing: map[string]bool{"user_x/doc.pdf": true}}

	r := NewReconciler(files, store, 0)
	if err := r.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if len(store.deleted) != 1 || store.deleted[0] != "user_x/doc.pdf" {
		t.Errorf("deleted objects = %v", store.deleted)
	}
	if len(files.deletedRows) != 1 || files.deletedRows[0] != f.ID {
		t.Errorf("deleted rows = %v", files.deletedRows)
	}
}

func TestSweep_MissingObjectStillRemovesRow(t *testing.T) {
	// Object already gone: an earlier attempt deleted it but crashed before
	// removing the row.
	f := stuckFile("user_x/gone.pdf")
	files := &fakeDeletingStore{stuck: []*models.File{f}}
	store := &fakeObjectDeleter{}

	r := NewReconciler(files, store, 0)
	if err := r.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if len(store.deleted) != 0 {
		t.Errorf("no object delete expected, got %v", store.deleted)
	}
	if len(files.deletedRows) != 1 {
		t.Errorf("row should be removed, got %v", files.deletedRows)
	}
}

func TestSweep_ObjectDeleteFailureKeepsRow(t *testing.T) {
	f := stuckFile("user_x/locked.pdf")
	files := &fakeDeletingStore{stuck: []*models.File{f}}
	store := &fakeObjectDeleter{
		existing:  map[string]bool{"user_x/locked.pdf": true},
		deleteErr: errors.New("store unavailable"),
	}

	r := NewReconciler(files, store, 0)
	if err := r.Sweep(context.Background()); err != nil {
		t.Fatalf("per-file failures must not abort the sweep: %v", err)
	}

	if len(files.deletedRows) != 0 {
		t.Error("row must survive until the object is actually gone")
	}
}

func TestSweep_OneFailureDoesNotBlockOthers(t *testing.T) {
	bad := stuckFile("user_x/bad.pdf")
	good := stuckFile("user_x/good.pdf")
	files := &fakeDeletingStore{
		stuck:     []*models.File{bad, good},
		rowErrFor: map[uuid.UUID]error{bad.ID: errors.New("db hiccup")},
	}
	store := &fakeObjectDeleter{}

	r := NewReconciler(files, store, 0)
	if err := r.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if len(files.deletedRows) != 1 || files.deletedRows[0] != good.ID {
		t.Errorf("deleted rows = %v, want just the healthy file", files.deletedRows)
	}
}
