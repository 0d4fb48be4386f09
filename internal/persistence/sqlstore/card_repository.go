package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/example/counseling-diary/internal/persistence"
)

// CardRepository implements persistence.CardRepository.
type CardRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewCardRepository creates a card repository on pool.
func NewCardRepository(pool *ConnectionPool) *CardRepository {
	return &CardRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

const cardColumns = `c.id, c.room_id, c.client_id, c.card_date, c.header_name,
	c.header_written_during_counseling, c.header_frequency, c.day_data, c.submitted_at, c.updated_at`

// UpsertCard reads the card stored under key, applies mutate and writes the
// result with INSERT ... ON CONFLICT inside one transaction. When a concurrent
// writer inserted the row first, the conflict clause updates that row and the
// stored id and submitted_at are returned.
func (r *CardRepository) UpsertCard(ctx context.Context, key persistence.CardKey, mutate persistence.CardMutation) (persistence.Card, error) {
	var stored persistence.Card
	err := r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			var existing *persistence.Card
			current, err := scanCard(r.helper.QueryRowTx(ctx, tx, `
				SELECT `+cardColumns+`
				FROM dbt_cards c
				WHERE c.room_id = ? AND c.client_id = ? AND c.card_date = ?`,
				key.RoomID, key.ClientID, key.Date,
			))
			switch {
			case err == nil:
				existing = &current
			case errors.Is(err, sql.ErrNoRows):
			default:
				return r.mapper.MapError(err)
			}

			card, err := mutate(existing)
			if err != nil {
				return err
			}
			if card.Key() != key {
				return fmt.Errorf("sqlstore: card key changed during upsert: %w", persistence.ErrConstraintViolation)
			}

			var id, submittedAt string
			err = r.helper.QueryRowTx(ctx, tx, `
				INSERT INTO dbt_cards (id, room_id, client_id, card_date, header_name,
					header_written_during_counseling, header_frequency, day_data, submitted_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (room_id, client_id, card_date) DO UPDATE SET
					header_name = excluded.header_name,
					header_written_during_counseling = excluded.header_written_during_counseling,
					header_frequency = excluded.header_frequency,
					day_data = excluded.day_data,
					updated_at = excluded.updated_at
				RETURNING id, submitted_at`,
				card.ID, card.RoomID, card.ClientID, card.Date, card.HeaderName,
				card.HeaderWrittenDuringCounseling, card.HeaderFrequency, card.DayData,
				formatTime(card.SubmittedAt), formatTime(card.UpdatedAt),
			).Scan(&id, &submittedAt)
			if err != nil {
				return r.mapper.MapError(err)
			}

			card.ID = id
			if card.SubmittedAt, err = parseTime("submitted_at", submittedAt); err != nil {
				return err
			}
			stored = card
			return nil
		})
	})
	if err != nil {
		return persistence.Card{}, err
	}
	return stored, nil
}

// GetCard loads the card stored under key.
func (r *CardRepository) GetCard(ctx context.Context, key persistence.CardKey) (persistence.Card, error) {
	card, err := scanCard(r.helper.QueryRow(ctx, `
		SELECT `+cardColumns+`
		FROM dbt_cards c
		WHERE c.room_id = ? AND c.client_id = ? AND c.card_date = ?`,
		key.RoomID, key.ClientID, key.Date,
	))
	if err != nil {
		return persistence.Card{}, r.mapper.MapError(err)
	}
	return card, nil
}

// ListCards returns matching cards joined with the client account, newest date first.
func (r *CardRepository) ListCards(ctx context.Context, filter persistence.CardFilter) ([]persistence.CardWithClient, error) {
	where, args := cardFilterClause(filter)
	rows, err := r.helper.Query(ctx, `
		SELECT `+cardColumns+`, u.name, u.email
		FROM dbt_cards c
		JOIN users u ON u.id = c.client_id`+where+`
		ORDER BY c.card_date DESC, c.client_id ASC, c.id ASC`, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	cards := make([]persistence.CardWithClient, 0)
	for rows.Next() {
		var item persistence.CardWithClient
		card, err := scanCard(cardRowWithClient{rows: rows, name: &item.ClientName, email: &item.ClientEmail})
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		item.Card = card
		cards = append(cards, item)
	}
	return cards, r.mapper.MapError(rows.Err())
}

// CountCards counts matching cards.
func (r *CardRepository) CountCards(ctx context.Context, filter persistence.CardFilter) (int, error) {
	where, args := cardFilterClause(filter)
	var count int
	err := r.helper.QueryRow(ctx, `SELECT COUNT(*) FROM dbt_cards c`+where, args...).Scan(&count)
	return count, r.mapper.MapError(err)
}

func cardFilterClause(filter persistence.CardFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	if filter.RoomID != "" {
		conditions = append(conditions, "c.room_id = ?")
		args = append(args, filter.RoomID)
	}
	if filter.ClientID != "" {
		conditions = append(conditions, "c.client_id = ?")
		args = append(args, filter.ClientID)
	}
	if filter.Date != "" {
		conditions = append(conditions, "c.card_date = ?")
		args = append(args, filter.Date)
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return "\n\t\tWHERE " + strings.Join(conditions, " AND "), args
}

// cardRowWithClient appends the joined client columns to a card scan.
type cardRowWithClient struct {
	rows  *sql.Rows
	name  *string
	email *string
}

func (c cardRowWithClient) Scan(dest ...any) error {
	return c.rows.Scan(append(dest, c.name, c.email)...)
}

func scanCard(row rowScanner) (persistence.Card, error) {
	var (
		card                   persistence.Card
		submittedAt, updatedAt string
	)
	err := row.Scan(
		&card.ID,
		&card.RoomID,
		&card.ClientID,
		&card.Date,
		&card.HeaderName,
		&card.HeaderWrittenDuringCounseling,
		&card.HeaderFrequency,
		&card.DayData,
		&submittedAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Card{}, err
	}
	if card.SubmittedAt, err = parseTime("submitted_at", submittedAt); err != nil {
		return persistence.Card{}, err
	}
	if card.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Card{}, err
	}
	return card, nil
}
