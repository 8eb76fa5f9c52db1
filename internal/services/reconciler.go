package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"reelgen-backend/internal/models"
)

type DeletingFileStore interface {
	ListDeleting(ctx context.Context, limit int) ([]*models.File, error)
	DeleteRow(ctx context.Context, id uuid.UUID) error
}

type ObjectDeleter interface {
	Delete(ctx context.Context, objectName string) error
	Exists(ctx context.Context, objectName string) (bool, error)
}

// Reconciler finishes two-phase file deletes. A delete first marks the row
// "deleting", then removes the object, then the row; the sweeper retries any
// row stuck mid-way so a crash never strands an orphan object.
type Reconciler struct {
	files    DeletingFileStore
	store    ObjectDeleter
	interval time.Duration
	stopChan chan struct{}
}

func NewReconciler(files DeletingFileStore, store ObjectDeleter, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reconciler{
		files:    files,
		store:    store,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

func (r *Reconciler) Start() {
	go r.loop()
}

func (r *Reconciler) Stop() {
	close(r.stopChan)
}

func (r *Reconciler) loop() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := r.Sweep(ctx); err != nil {
				log.Printf("delete reconciliation sweep failed: %v", err)
			}
			cancel()
		}
	}
}

// Sweep processes one batch of rows stuck in the deleting state.
func (r *Reconciler) Sweep(ctx context.Context) error {
	files, err := r.files.ListDeleting(ctx, 50)
	if err != nil {
		return err
	}

	for _, f := range files {
		if err := r.finishDelete(ctx, f); err != nil {
			log.Printf("failed to reconcile delete of file %s (%s): %v", f.ID, f.ObjectName, err)
		}
	}
	return nil
}

func (r *Reconciler) finishDelete(ctx context.Context, f *models.File) error {
	exists, err := r.store.Exists(ctx, f.ObjectName)
	if err != nil {
		return err
	}
	if exists {
		if err := r.store.Delete(ctx, f.ObjectName); err != nil {
			return err
		}
	}
	return r.files.DeleteRow(ctx, f.ID)
}
