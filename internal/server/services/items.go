package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dmitrijs2005/valutx/internal/common"
	"github.com/dmitrijs2005/valutx/internal/dbx"
	"github.com/dmitrijs2005/valutx/internal/logging"
	"github.com/dmitrijs2005/valutx/internal/server/audit"
	"github.com/dmitrijs2005/valutx/internal/server/models"
	"github.com/dmitrijs2005/valutx/internal/server/repositories/repomanager"
)

const (
	DefaultItemPageSize = 100
	MaxPageSize         = 1000
)

type CreateItemInput struct {
	Type       string
	Ciphertext string
	IV         string
	AuthTag    string
}

// UpdateItemInput is a partial update. BaseVersion nil skips the conflict
// check for clients that predate versioning.
type UpdateItemInput struct {
	Patch       models.ItemPatch
	BaseVersion *int64
}

// ItemService stores encrypted records without looking inside them and
// rejects stale writes by version.
type ItemService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	audit       audit.Sink
	logger      logging.Logger
	now         func() time.Time
	newID       func() string
}

func NewItemService(db *sql.DB, rm repomanager.RepositoryManager, sink audit.Sink, logger logging.Logger) *ItemService {
	if sink == nil {
		sink = audit.Discard{}
	}
	return &ItemService{
		db:          db,
		repomanager: rm,
		audit:       sink,
		logger:      logger.With("module", "item_service"),
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

func (s *ItemService) Create(ctx context.Context, userID string, in CreateItemInput) (*models.Item, error) {
	ctx, span := tracer.Start(ctx, "ItemService.Create")
	defer span.End()

	if in.Type == "" || in.Ciphertext == "" || in.IV == "" {
		return nil, common.ErrorValidation
	}

	now := s.now().UTC()
	item, err := s.repomanager.Items(s.db).Create(ctx, &models.Item{
		ID:           s.newID(),
		UserID:       userID,
		Type:         in.Type,
		Ciphertext:   in.Ciphertext,
		IV:           in.IV,
		AuthTag:      in.AuthTag,
		Version:      1,
		CreatedAt:    now,
		LastModified: now,
	})
	if err != nil {
		return nil, failInternal(ctx, s.logger, span, "create item failed", err)
	}

	span.SetAttributes(attribute.String("item.id", item.ID))
	s.emit(ctx, audit.Event{UserID: userID, Type: models.EventItemCreate, Details: fmt.Sprintf("Created item %s", item.ID)})
	return item, nil
}

func (s *ItemService) Get(ctx context.Context, userID, itemID string) (*models.Item, error) {
	ctx, span := tracer.Start(ctx, "ItemService.Get")
	defer span.End()

	item, err := s.repomanager.Items(s.db).Get(ctx, userID, itemID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, failInternal(ctx, s.logger, span, "get item failed", err)
	}
	return item, nil
}

func (s *ItemService) List(ctx context.Context, userID string, page models.Page) ([]*models.Item, error) {
	ctx, span := tracer.Start(ctx, "ItemService.List")
	defer span.End()

	list, err := s.repomanager.Items(s.db).List(ctx, userID, page.Normalize(DefaultItemPageSize, MaxPageSize))
	if err != nil {
		return nil, failInternal(ctx, s.logger, span, "list items failed", err)
	}
	return list, nil
}

// Update applies the supplied fields and bumps the version by one. A base
// version that no longer matches returns common.ErrVersionConflict; the
// caller re-fetches and merges locally.
func (s *ItemService) Update(ctx context.Context, userID, itemID string, in UpdateItemInput) (*models.Item, error) {
	ctx, span := tracer.Start(ctx, "ItemService.Update")
	defer span.End()

	if emptyField(in.Patch.Type) || emptyField(in.Patch.Ciphertext) || emptyField(in.Patch.IV) {
		return nil, common.ErrorValidation
	}

	var item *models.Item
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		item, err = s.repomanager.Items(tx).UpdateIfVersionMatches(ctx, userID, itemID, in.BaseVersion, in.Patch, s.now().UTC())
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			return nil, common.ErrorNotFound
		case errors.Is(err, common.ErrVersionConflict):
			span.SetAttributes(attribute.Bool("item.conflict", true))
			return nil, common.ErrVersionConflict
		}
		return nil, failInternal(ctx, s.logger, span, "update item failed", err)
	}

	span.SetAttributes(attribute.Int64("item.version", item.Version))
	s.emit(ctx, audit.Event{UserID: userID, Type: models.EventItemUpdate, Details: fmt.Sprintf("Updated item %s", item.ID)})
	return item, nil
}

func (s *ItemService) Delete(ctx context.Context, userID, itemID string) error {
	ctx, span := tracer.Start(ctx, "ItemService.Delete")
	defer span.End()

	if err := s.repomanager.Items(s.db).Delete(ctx, userID, itemID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return failInternal(ctx, s.logger, span, "delete item failed", err)
	}

	s.emit(ctx, audit.Event{UserID: userID, Type: models.EventItemDelete, Details: fmt.Sprintf("Deleted item %s", itemID)})
	return nil
}

func (s *ItemService) emit(ctx context.Context, e audit.Event) {
	if err := s.audit.Emit(ctx, e); err != nil {
		s.logger.Warn(ctx, "audit emission failed", "event_type", string(e.Type), "error", err)
	}
}

func emptyField(v *string) bool {
	return v != nil && *v == ""
}
