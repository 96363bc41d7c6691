package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/valutx/internal/common"
	"github.com/dmitrijs2005/valutx/internal/dbx"
	"github.com/dmitrijs2005/valutx/internal/logging"
	"github.com/dmitrijs2005/valutx/internal/server/audit"
	"github.com/dmitrijs2005/valutx/internal/server/models"
	"github.com/dmitrijs2005/valutx/internal/server/objectstore"
	"github.com/dmitrijs2005/valutx/internal/server/repositories/repomanager"
)

const exportFormatVersion = 1

// Export points at an uploaded vault export.
type Export struct {
	Key       string
	URL       string
	ExpiresAt time.Time
}

type exportDocument struct {
	FormatVersion int          `json:"format_version"`
	ExportedAt    time.Time    `json:"exported_at"`
	Email         string       `json:"email"`
	KDFSalt       string       `json:"kdf_salt"`
	WrappedDEK    string       `json:"encrypted_dek"`
	Items         []exportItem `json:"items"`
}

type exportItem struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	EncData      string    `json:"enc_data"`
	IV           string    `json:"iv"`
	AuthTag      string    `json:"auth_tag"`
	Version      int64     `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	LastModified time.Time `json:"last_modified"`
}

// ExportService uploads a user's encrypted vault to object storage. The
// document is still opaque: without the master password it decrypts to
// nothing.
type ExportService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       objectstore.Store
	audit       audit.Sink
	logger      logging.Logger
	urlTTL      time.Duration
	now         func() time.Time
	newID       func() string
}

// NewExportService accepts a nil store; Export then returns
// common.ErrExportUnavailable.
func NewExportService(db *sql.DB, rm repomanager.RepositoryManager, store objectstore.Store, sink audit.Sink,
	urlTTL time.Duration, logger logging.Logger) *ExportService {
	if sink == nil {
		sink = audit.Discard{}
	}
	if urlTTL <= 0 {
		urlTTL = 15 * time.Minute
	}
	return &ExportService{
		db:          db,
		repomanager: rm,
		store:       store,
		audit:       sink,
		logger:      logger.With("module", "export_service"),
		urlTTL:      urlTTL,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

func (s *ExportService) Export(ctx context.Context, userID string) (*Export, error) {
	ctx, span := tracer.Start(ctx, "ExportService.Export")
	defer span.End()

	if s.store == nil {
		return nil, common.ErrExportUnavailable
	}

	now := s.now().UTC()
	doc := exportDocument{FormatVersion: exportFormatVersion, ExportedAt: now, Items: []exportItem{}}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.repomanager.Users(tx).GetByID(ctx, userID)
		if err != nil {
			return err
		}
		doc.Email, doc.KDFSalt, doc.WrappedDEK = user.Email, user.KDFSalt, user.WrappedDEK

		repo := s.repomanager.Items(tx)
		for page := (models.Page{Limit: MaxPageSize}); ; page.Offset += page.Limit {
			list, err := repo.List(ctx, userID, page)
			if err != nil {
				return err
			}
			for _, it := range list {
				doc.Items = append(doc.Items, exportItem{
					ID:           it.ID,
					Type:         it.Type,
					EncData:      it.Ciphertext,
					IV:           it.IV,
					AuthTag:      it.AuthTag,
					Version:      it.Version,
					CreatedAt:    it.CreatedAt,
					LastModified: it.LastModified,
				})
			}
			if len(list) < page.Limit {
				return nil
			}
		}
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, failInternal(ctx, s.logger, span, "read vault for export failed", err)
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, failInternal(ctx, s.logger, span, "encode export failed", err)
	}

	key := objectstore.ExportKey(userID, now, s.newID())
	if err := s.store.Put(ctx, key, body, "application/json"); err != nil {
		return nil, failInternal(ctx, s.logger, span, "upload export failed", err)
	}

	url, err := s.store.PresignGet(ctx, key, s.urlTTL)
	if err != nil {
		return nil, failInternal(ctx, s.logger, span, "presign export failed", err)
	}

	s.emit(ctx, audit.Event{UserID: userID, Type: models.EventExport, Details: "Vault exported"})
	return &Export{Key: key, URL: url, ExpiresAt: now.Add(s.urlTTL)}, nil
}

func (s *ExportService) emit(ctx context.Context, e audit.Event) {
	if err := s.audit.Emit(ctx, e); err != nil {
		s.logger.Warn(ctx, "audit emission failed", "event_type", string(e.Type), "error", err)
	}
}
