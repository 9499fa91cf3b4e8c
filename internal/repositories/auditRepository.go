package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"interiorly/internal/database"
	"interiorly/internal/models"
	"interiorly/internal/utils"
)

type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

type auditRepository struct {
	db database.Service
}

func NewAuditRepository(db database.Service) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, entry *models.AuditLog) (err error) {
	done := utils.QueryTimer("create", "audit")
	defer func() { done(err) }()

	entry.ID = primitive.NewObjectID()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	_, err = r.db.Database().Collection(database.AuditLogsCollection).InsertOne(ctx, entry)
	if err != nil {
		log.Error().Err(err).Str("action", entry.Action).Msg("Failed to write audit log")
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}
