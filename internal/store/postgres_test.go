package store

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/shopchat/shopchat/internal/eval"
)

func TestPostgresUpsertReturnsID(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	s := NewPostgresStore(db)
	sess := sampleSession("iphone 15")

	mock.ExpectQuery(`INSERT INTO sessions`).
		WithArgs(sess.SessionID, sess.Query, sqlmock.AnyArg(), sqlmock.AnyArg(), sess.AIReply, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	if err := s.Upsert(context.Background(), sess); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if sess.ID != 7 {
		t.Fatalf("expected id 7, got %d", sess.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresListDecodesRows(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "session_id", "query", "products", "products_by_item", "ai_reply", "evaluation_score"}).
		AddRow(1, "abc", "iphone 15",
			[]byte(`[{"title":"iPhone 15","price":"4599 SAR","source":"Amazon","link":"https://example.com/iphone","image":null}]`),
			[]byte(`{"iphone 15":[]}`),
			"reply",
			[]byte(`{"faithfulness":90,"relevance":80,"completeness":70,"total":81}`))
	mock.ExpectQuery(`SELECT id, session_id, query`).WillReturnRows(rows)

	s := NewPostgresStore(db)
	sessions, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected one session, got %d", len(sessions))
	}
	if sessions[0].Products[0].Title != "iPhone 15" {
		t.Fatalf("products not decoded: %+v", sessions[0].Products)
	}
	if sessions[0].EvaluationScore.Total != 81 {
		t.Fatalf("score not decoded: %+v", sessions[0].EvaluationScore)
	}
}

func TestPostgresUpdateEvaluationNotFound(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE sessions SET evaluation_score`).
		WithArgs(sqlmock.AnyArg(), 42).
		WillReturnResult(sqlmock.NewResult(0, 0))

	s := NewPostgresStore(db)
	if err := s.UpdateEvaluation(context.Background(), 42, eval.Score{}); err == nil {
		t.Fatalf("expected not-found error")
	}
}
