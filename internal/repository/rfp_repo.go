package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Anushre2005/swiftbid/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// ErrRfpNotFound возвращается, когда RFP с указанным id отсутствует в каталоге.
var ErrRfpNotFound = errors.New("rfp not found")

// ErrNoNextStage возвращается при попытке продвинуть RFP дальше финального этапа.
var ErrNoNextStage = errors.New("rfp is already at the final stage")

// RfpRepository - интерфейс для работы с каталогом RFP.
type RfpRepository interface {
	GetRfps(ctx context.Context, limit, offset int, filter models.RfpFilter) ([]models.Rfp, error)
	GetRfpByID(ctx context.Context, rfpId string) (*models.Rfp, error)
	RfpExists(ctx context.Context, rfpId string) (bool, error)
	GetRfpStatus(ctx context.Context, rfpId string) (models.RfpStatus, error)
	AdvanceStage(ctx context.Context, rfpId string) (*models.Rfp, error)
}

// PostgresRfpRepository - реализация RfpRepository для базы данных.
type PostgresRfpRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresRfpRepository создаёт новый экземпляр PostgresRfpRepository.
func NewPostgresRfpRepository(db *pgxpool.Pool) *PostgresRfpRepository {
	return &PostgresRfpRepository{DB: db}
}

const rfpColumns = `id, client, title, deadline, deadline_date, value, source, current_stage, waiting_on, owner, risk_flag, sales_notes, status`

func scanRfp(row pgx.Row) (*models.Rfp, error) {
	var rfp models.Rfp
	err := row.Scan(
		&rfp.ID,
		&rfp.Client,
		&rfp.Title,
		&rfp.Deadline,
		&rfp.DeadlineDate,
		&rfp.Value,
		&rfp.Source,
		&rfp.CurrentStage,
		&rfp.WaitingOn,
		&rfp.Owner,
		&rfp.RiskFlag,
		&rfp.SalesNotes,
		&rfp.Status,
	)
	if err != nil {
		return nil, err
	}
	return &rfp, nil
}

// GetRfps возвращает список RFP с учётом фильтров.
func (r *PostgresRfpRepository) GetRfps(ctx context.Context, limit, offset int, filter models.RfpFilter) ([]models.Rfp, error) {
	query := `SELECT ` + rfpColumns + ` FROM rfp`
	var filters []string
	var args []interface{}
	argIndex := 1

	if len(filter.Stages) > 0 {
		filters = append(filters, fmt.Sprintf("current_stage = ANY($%d)", argIndex))
		args = append(args, pq.Array(filter.Stages))
		argIndex++
	}

	if filter.WaitingOn != "" {
		filters = append(filters, fmt.Sprintf("waiting_on = $%d", argIndex))
		args = append(args, filter.WaitingOn)
		argIndex++
	}

	if filter.Owner != "" {
		filters = append(filters, fmt.Sprintf("owner = $%d", argIndex))
		args = append(args, filter.Owner)
		argIndex++
	}

	if filter.Risky {
		filters = append(filters, "risk_flag = TRUE")
	}

	if len(filters) > 0 {
		query += " WHERE " + strings.Join(filters, " AND ")
	}

	query += fmt.Sprintf(" ORDER BY client LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rfps []models.Rfp
	for rows.Next() {
		rfp, err := scanRfp(rows)
		if err != nil {
			return nil, err
		}
		rfps = append(rfps, *rfp)
	}
	return rfps, nil
}

// GetRfpByID возвращает RFP по его ID.
func (r *PostgresRfpRepository) GetRfpByID(ctx context.Context, rfpId string) (*models.Rfp, error) {
	query := `SELECT ` + rfpColumns + ` FROM rfp WHERE id = $1`
	rfp, err := scanRfp(r.DB.QueryRow(ctx, query, rfpId))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRfpNotFound
	}
	if err != nil {
		return nil, err
	}
	return rfp, nil
}

// RfpExists проверяет, существует ли RFP.
func (r *PostgresRfpRepository) RfpExists(ctx context.Context, rfpId string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM rfp WHERE id = $1)`
	err := r.DB.QueryRow(ctx, query, rfpId).Scan(&exists)
	return exists, err
}

// GetRfpStatus возвращает статус RFP; незаполненный статус выводится из waiting_on.
func (r *PostgresRfpRepository) GetRfpStatus(ctx context.Context, rfpId string) (models.RfpStatus, error) {
	rfp, err := r.GetRfpByID(ctx, rfpId)
	if err != nil {
		return "", err
	}
	return rfp.EffectiveStatus(), nil
}

// waitingOnByStage задаёт роль, которая действует на каждом этапе.
var waitingOnByStage = map[models.RfpStage]models.RfpWaitingOn{
	models.Discovery: models.WaitingOnSales,
	models.Tech:      models.WaitingOnTech,
	models.Pricing:   models.WaitingOnPricing,
	models.Approval:  models.WaitingOnManagement,
	models.Final:     models.WaitingOnManagement,
}

// AdvanceStage переводит RFP на следующий этап. Продвижение с финального
// этапа помечает RFP завершённым.
func (r *PostgresRfpRepository) AdvanceStage(ctx context.Context, rfpId string) (*models.Rfp, error) {
	current, err := r.GetRfpByID(ctx, rfpId)
	if err != nil {
		return nil, err
	}

	if current.CurrentStage == models.Final {
		query := `UPDATE rfp SET waiting_on = $1, status = $2 WHERE id = $3 RETURNING ` + rfpColumns
		return scanRfp(r.DB.QueryRow(ctx, query, models.WaitingOnCompleted, models.CompletedRfp, rfpId))
	}

	var next models.RfpStage
	for i, stage := range models.StageOrder {
		if stage == current.CurrentStage && i+1 < len(models.StageOrder) {
			next = models.StageOrder[i+1]
			break
		}
	}
	if next == "" {
		return nil, ErrNoNextStage
	}

	query := `UPDATE rfp SET current_stage = $1, waiting_on = $2 WHERE id = $3 RETURNING ` + rfpColumns
	return scanRfp(r.DB.QueryRow(ctx, query, next, waitingOnByStage[next], rfpId))
}
