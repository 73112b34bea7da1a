package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/shopchat/shopchat/internal/eval"
	"github.com/shopchat/shopchat/internal/shopper"
)

// PostgresStore keeps sessions in a single table with query as the unique
// key. The upsert preserves the row id on conflict, so re-asked queries keep
// their original sequential id.
type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{DB: db}
}

func (s *PostgresStore) Upsert(ctx context.Context, sess *shopper.Session) error {
	productsJSON, err := json.Marshal(sess.Products)
	if err != nil {
		return fmt.Errorf("encoding products: %w", err)
	}
	byItemJSON, err := json.Marshal(sess.ProductsByItem)
	if err != nil {
		return fmt.Errorf("encoding products_by_item: %w", err)
	}
	scoreJSON, err := json.Marshal(sess.EvaluationScore)
	if err != nil {
		return fmt.Errorf("encoding evaluation_score: %w", err)
	}

	row := s.DB.QueryRowContext(ctx, `
        INSERT INTO sessions (session_id, query, products, products_by_item, ai_reply, evaluation_score)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (query) DO UPDATE SET
            session_id = EXCLUDED.session_id,
            products = EXCLUDED.products,
            products_by_item = EXCLUDED.products_by_item,
            ai_reply = EXCLUDED.ai_reply,
            evaluation_score = EXCLUDED.evaluation_score,
            updated_at = now()
        RETURNING id`,
		sess.SessionID, sess.Query, productsJSON, byItemJSON, sess.AIReply, scoreJSON)
	if err := row.Scan(&sess.ID); err != nil {
		return fmt.Errorf("upserting session: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]shopper.Session, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT id, session_id, query, products, products_by_item, ai_reply, evaluation_score
        FROM sessions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []shopper.Session
	for rows.Next() {
		var sess shopper.Session
		var productsJSON, byItemJSON, scoreJSON []byte
		if err := rows.Scan(&sess.ID, &sess.SessionID, &sess.Query, &productsJSON, &byItemJSON, &sess.AIReply, &scoreJSON); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		if err := json.Unmarshal(productsJSON, &sess.Products); err != nil {
			return nil, fmt.Errorf("decoding products for session %d: %w", sess.ID, err)
		}
		if err := json.Unmarshal(byItemJSON, &sess.ProductsByItem); err != nil {
			return nil, fmt.Errorf("decoding products_by_item for session %d: %w", sess.ID, err)
		}
		if err := json.Unmarshal(scoreJSON, &sess.EvaluationScore); err != nil {
			return nil, fmt.Errorf("decoding evaluation_score for session %d: %w", sess.ID, err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *PostgresStore) UpdateEvaluation(ctx context.Context, id int, score eval.Score) error {
	scoreJSON, err := json.Marshal(score)
	if err != nil {
		return fmt.Errorf("encoding evaluation_score: %w", err)
	}
	res, err := s.DB.ExecContext(ctx,
		`UPDATE sessions SET evaluation_score=$1, updated_at=now() WHERE id=$2`, scoreJSON, id)
	if err != nil {
		return fmt.Errorf("updating session %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("session %d not found", id)
	}
	return nil
}

func (s *PostgresStore) Close() error { return s.DB.Close() }
