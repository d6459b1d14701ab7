package docstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/detailerapp/backend/internal/common"
)

func newStoreWithMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresStore(db), mock, db
}

func TestGet_Found(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+fields\s+FROM\s+documents\s+WHERE\s+collection\s*=\s*\$1\s+AND\s+doc_id\s*=\s*\$2\s*$`

	rows := sqlmock.NewRows([]string{"fields"}).AddRow([]byte(`{"uid":"u1","email":"a@b.c"}`))
	mock.ExpectQuery(q).WithArgs("user-data", "u1").WillReturnRows(rows)

	doc, err := store.Get(context.Background(), "user-data", "u1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if doc.Fields["email"] != "a@b.c" {
		t.Fatalf("unexpected fields: %+v", doc.Fields)
	}
}

func TestGet_NotFound(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+fields\s+FROM\s+documents`).
		WithArgs("user-data", "ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), "user-data", "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestSet_Upserts(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+documents\s*\(collection,\s*doc_id,\s*fields\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*ON\s+CONFLICT\s*\(collection,\s*doc_id\)\s*DO\s+UPDATE\s+SET\s+fields\s*=\s*EXCLUDED\.fields\s*$`

	mock.ExpectExec(q).
		WithArgs("user-data", "u1", []byte(`{"uid":"u1"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Set(context.Background(), "user-data", "u1", map[string]any{"uid": "u1"}); err != nil {
		t.Fatalf("Set error: %v", err)
	}
}

func TestUpdate_MergesFields(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+documents\s+SET\s+fields\s*=\s*fields\s*\|\|\s*\$3\s+WHERE\s+collection\s*=\s*\$1\s+AND\s+doc_id\s*=\s*\$2\s*$`

	mock.ExpectExec(q).
		WithArgs("user-data", "u1", []byte(`{"fcmToken":"tok"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Update(context.Background(), "user-data", "u1", map[string]any{"fcmToken": "tok"}); err != nil {
		t.Fatalf("Update error: %v", err)
	}
}

func TestUpdate_MissingDocument(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+documents`).
		WithArgs("user-data", "ghost", []byte(`{"a":"b"}`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Update(context.Background(), "user-data", "ghost", map[string]any{"a": "b"})
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestDelete_AbsentIsNoop(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE\s+FROM\s+documents\s+WHERE\s+collection\s*=\s*\$1\s+AND\s+doc_id\s*=\s*\$2`).
		WithArgs("messages", "gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Delete(context.Background(), "messages", "gone"); err != nil {
		t.Fatalf("Delete of absent document must be a no-op, got %v", err)
	}
}

func TestQuery_MatchesFieldValue(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+doc_id,\s*fields\s+FROM\s+documents\s+WHERE\s+collection\s*=\s*\$1\s+AND\s+fields->>\$2\s*=\s*\$3\s+ORDER\s+BY\s+doc_id\s*$`

	rows := sqlmock.NewRows([]string{"doc_id", "fields"}).
		AddRow("m1", []byte(`{"fromUID":"u1"}`)).
		AddRow("m2", []byte(`{"fromUID":"u1"}`))
	mock.ExpectQuery(q).WithArgs("messages", "fromUID", "u1").WillReturnRows(rows)

	docs, err := store.Query(context.Background(), "messages", "fromUID", "u1")
	if err != nil {
		t.Fatalf("Query error: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "m1" || docs[1].ID != "m2" {
		t.Fatalf("unexpected documents: %+v", docs)
	}
}

func TestBatchDelete_SingleTransaction(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE\s+FROM\s+documents`).
		WithArgs("messages", "m1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE\s+FROM\s+documents`).
		WithArgs("messages", "m2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	docs := []Document{
		{Collection: "messages", ID: "m1"},
		{Collection: "messages", ID: "m2"},
	}
	if err := store.BatchDelete(context.Background(), docs); err != nil {
		t.Fatalf("BatchDelete error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBatchDelete_RollsBackOnError(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE\s+FROM\s+documents`).
		WithArgs("messages", "m1").
		WillReturnError(errors.New("db down"))
	mock.ExpectRollback()

	err := store.BatchDelete(context.Background(), []Document{{Collection: "messages", ID: "m1"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBatchDelete_EmptyBatch(t *testing.T) {
	store, _, db := newStoreWithMock(t)
	defer db.Close()

	if err := store.BatchDelete(context.Background(), nil); err != nil {
		t.Fatalf("empty batch must be a no-op, got %v", err)
	}
}
