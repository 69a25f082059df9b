package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"quizmatch-service/internal/app"
	"quizmatch-service/internal/domain"
	"github.com/uptrace/bun"
)

// Store is the bun-backed implementation of app.MatchStore. Transactions
// read the match row with FOR UPDATE, so concurrent submits and turn-ends on
// the same match serialize at the database.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx app.MatchTx) error) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(&storeTx{tx: tx})
	})
}

func (s *Store) GetMatch(ctx context.Context, matchID string) (*domain.Match, error) {
	row := new(matchRow)
	err := s.db.NewSelect().Model(row).Where("m.id = ?", matchID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get match: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) AnswersFor(ctx context.Context, matchID, userID string, round int) ([]domain.PlayerAnswer, error) {
	var rows []playerAnswerRow
	err := s.db.NewSelect().Model(&rows).
		Where("pa.match_id = ?", matchID).
		Where("pa.user_id = ?", userID).
		Where("pa.round_number = ?", round).
		Order("pa.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("answers for round: %w", err)
	}
	return answersToDomain(rows), nil
}

func (s *Store) AllAnswers(ctx context.Context, matchID string) ([]domain.PlayerAnswer, error) {
	var rows []playerAnswerRow
	err := s.db.NewSelect().Model(&rows).
		Where("pa.match_id = ?", matchID).
		Order("pa.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("all answers: %w", err)
	}
	return answersToDomain(rows), nil
}

func (s *Store) ListWaitingEntries(ctx context.Context, userID string) ([]domain.QueueEntry, error) {
	var rows []queueEntryRow
	err := s.db.NewSelect().Model(&rows).
		Where("mq.user_id = ?", userID).
		Where("mq.status = ?", string(domain.QueueWaiting)).
		Order("mq.joined_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list waiting entries: %w", err)
	}
	out := make([]domain.QueueEntry, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].toDomain())
	}
	return out, nil
}

func (s *Store) ListOngoingMatches(ctx context.Context, userID string) ([]domain.Match, error) {
	var rows []matchRow
	err := s.db.NewSelect().Model(&rows).
		Where("m.player1_id = ? OR m.player2_id = ?", userID, userID).
		Where("m.status != ?", string(domain.MatchWaiting)).
		Order("m.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ongoing matches: %w", err)
	}
	out := make([]domain.Match, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].toDomain())
	}
	return out, nil
}

func answersToDomain(rows []playerAnswerRow) []domain.PlayerAnswer {
	out := make([]domain.PlayerAnswer, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out
}

type storeTx struct {
	tx bun.Tx
}

func (t *storeTx) WaitingEntry(ctx context.Context, userID, category string) (*domain.QueueEntry, error) {
	row := new(queueEntryRow)
	err := t.tx.NewSelect().Model(row).
		Where("mq.user_id = ?", userID).
		Where("mq.category = ?", category).
		Where("mq.status = ?", string(domain.QueueWaiting)).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("waiting entry: %w", err)
	}
	return row.toDomain(), nil
}

func (t *storeTx) LatestWaitingOpponent(ctx context.Context, userID, category string) (*domain.QueueEntry, error) {
	row := new(queueEntryRow)
	err := t.tx.NewSelect().Model(row).
		Where("mq.category = ?", category).
		Where("mq.status = ?", string(domain.QueueWaiting)).
		Where("mq.user_id != ?", userID).
		OrderExpr("mq.joined_at DESC").
		Limit(1).
		For("UPDATE"). // keep a racing join from pairing the same entry twice
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("waiting opponent: %w", err)
	}
	return row.toDomain(), nil
}

func (t *storeTx) InsertQueueEntry(ctx context.Context, entry *domain.QueueEntry) error {
	row := queueEntryFromDomain(entry)
	if _, err := t.tx.NewInsert().Model(row).ExcludeColumn("id").Returning("*").Exec(ctx); err != nil {
		return fmt.Errorf("insert queue entry: %w", err)
	}
	*entry = *row.toDomain()
	return nil
}

func (t *storeTx) SetQueueStatus(ctx context.Context, entryID string, status domain.QueueStatus) error {
	_, err := t.tx.NewUpdate().Model((*queueEntryRow)(nil)).
		Set("status = ?", string(status)).
		Where("id = ?", entryID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set queue status: %w", err)
	}
	return nil
}

func (t *storeTx) InsertMatch(ctx context.Context, match *domain.Match) error {
	row := matchFromDomain(match)
	if _, err := t.tx.NewInsert().Model(row).ExcludeColumn("id").Returning("*").Exec(ctx); err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	*match = *row.toDomain()
	return nil
}

func (t *storeTx) MatchForUpdate(ctx context.Context, matchID string) (*domain.Match, error) {
	row := new(matchRow)
	err := t.tx.NewSelect().Model(row).
		Where("m.id = ?", matchID).
		For("UPDATE").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("match for update: %w", err)
	}
	return row.toDomain(), nil
}

func (t *storeTx) UpdateMatch(ctx context.Context, match *domain.Match) error {
	row := matchFromDomain(match)
	_, err := t.tx.NewUpdate().Model(row).
		Column("player1_score", "player2_score", "current_turn_player", "round_number", "status", "completed_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update match: %w", err)
	}
	return nil
}

func (t *storeTx) FindAnswer(ctx context.Context, matchID, userID, questionID string, round int) (*domain.PlayerAnswer, error) {
	row := new(playerAnswerRow)
	err := t.tx.NewSelect().Model(row).
		Where("pa.match_id = ?", matchID).
		Where("pa.user_id = ?", userID).
		Where("pa.question_id = ?", questionID).
		Where("pa.round_number = ?", round).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find answer: %w", err)
	}
	answer := row.toDomain()
	return &answer, nil
}

func (t *storeTx) InsertAnswer(ctx context.Context, answer *domain.PlayerAnswer) error {
	row := playerAnswerFromDomain(answer)
	if _, err := t.tx.NewInsert().Model(row).ExcludeColumn("id").Returning("*").Exec(ctx); err != nil {
		return fmt.Errorf("insert answer: %w", err)
	}
	*answer = row.toDomain()
	return nil
}

func (t *storeTx) CountAnsweredQuestions(ctx context.Context, matchID, userID string) (int, error) {
	var count int
	err := t.tx.NewSelect().Model((*playerAnswerRow)(nil)).
		ColumnExpr("count(DISTINCT pa.question_id)").
		Where("pa.match_id = ?", matchID).
		Where("pa.user_id = ?", userID).
		Scan(ctx, &count)
	if err != nil {
		return 0, fmt.Errorf("count answered: %w", err)
	}
	return count, nil
}

func (t *storeTx) AddXP(ctx context.Context, userID string, delta int) error {
	_, err := t.tx.NewUpdate().Table("users").
		Set("xp = coalesce(xp, 0) + ?", delta).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("add xp: %w", err)
	}
	return nil
}
