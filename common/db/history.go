package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/servimatch/go-servi/models"
)

// HistoryDatabase archives confirmed status transitions so the admin and history
// views can reconstruct what happened to a request over time. It is an archive,
// not the source of truth: the backend still owns current status.
type HistoryDatabase struct {
	opts   HistoryDbOpts
	logger models.Logger
}

type HistoryDbOpts struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

func NewHistoryDb(opts HistoryDbOpts, logger models.Logger) *HistoryDatabase {
	return &HistoryDatabase{opts, logger}
}

func (hdb *HistoryDatabase) connect(ctx context.Context) (*pgx.Conn, error) {
	connUrl := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		hdb.opts.User,
		hdb.opts.Password,
		hdb.opts.Host,
		hdb.opts.Port,
		hdb.opts.Name,
	)
	conn, err := pgx.Connect(ctx, connUrl)
	if err != nil {
		hdb.logger.Errorf("historyDb: error connecting to db: %v", err)
		return nil, err
	}
	return conn, nil
}

func (hdb *HistoryDatabase) RecordTransition(ctx context.Context, record *models.TransitionRecord) error {
	dbCtx, dbCancel := context.WithTimeout(ctx, models.DefaultBackendTimeout)
	defer dbCancel()

	conn, err := hdb.connect(dbCtx)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	_, err = conn.Exec(
		dbCtx,
		"INSERT INTO transition (id, request_id, owner_scope, from_status, to_status, source, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		record.Id,
		record.RequestId,
		record.OwnerScope,
		record.From.BackendToken(),
		record.To.BackendToken(),
		string(record.Source),
		record.CreatedAt.Format(models.DbDateFormat),
	)
	if err != nil {
		hdb.logger.Errorf("historyDb: error inserting transition for %s: %v", record.RequestId, err)
		return err
	}
	return nil
}

func (hdb *HistoryDatabase) GetTransitions(ctx context.Context, requestId string, limit int) ([]*models.TransitionRecord, error) {
	return hdb.query(
		ctx,
		"SELECT id, request_id, owner_scope, from_status, to_status, source, created_at FROM transition WHERE request_id = $1 ORDER BY created_at LIMIT $2",
		requestId,
		limit,
	)
}

func (hdb *HistoryDatabase) GetScopeTransitions(ctx context.Context, ownerScope string, limit int) ([]*models.TransitionRecord, error) {
	return hdb.query(
		ctx,
		"SELECT id, request_id, owner_scope, from_status, to_status, source, created_at FROM transition WHERE owner_scope = $1 ORDER BY created_at DESC LIMIT $2",
		ownerScope,
		limit,
	)
}

func (hdb *HistoryDatabase) query(ctx context.Context, sql string, args ...any) ([]*models.TransitionRecord, error) {
	dbCtx, dbCancel := context.WithTimeout(ctx, models.DefaultBackendTimeout)
	defer dbCancel()

	conn, err := hdb.connect(dbCtx)
	if err != nil {
		return nil, err
	}
	defer conn.Close(context.Background())

	rows, err := conn.Query(dbCtx, sql, args...)
	if err != nil {
		hdb.logger.Errorf("historyDb: error querying db: %v", err)
		return nil, err
	}
	defer rows.Close()

	var records []*models.TransitionRecord
	for rows.Next() {
		var id uuid.UUID
		var requestId, ownerScope, fromToken, toToken, source string
		var createdAt time.Time
		if err = rows.Scan(&id, &requestId, &ownerScope, &fromToken, &toToken, &source, &createdAt); err != nil {
			hdb.logger.Errorf("historyDb: error scanning row: %v", err)
			return nil, err
		}
		records = append(records, &models.TransitionRecord{
			Id:         id,
			RequestId:  requestId,
			OwnerScope: ownerScope,
			From:       models.RequestStatusFromBackend(fromToken),
			To:         models.RequestStatusFromBackend(toToken),
			Source:     models.TransitionSource(source),
			CreatedAt:  createdAt,
		})
	}
	return records, nil
}
