package repositories

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"hairsim/pkg/utils"
)

func newGormMock(t *testing.T) (DocumentRepository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return NewDocumentRepository(db), mock
}

var documentColumns = []string{"id", "collection", "data", "created_at", "updated_at", "deleted_at"}

func TestDocumentRepo_Get(t *testing.T) {
	r, mock := newGormMock(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "documents" WHERE .*collection = \$1.*id = \$2`).
		WillReturnRows(sqlmock.NewRows(documentColumns).
			AddRow(id.String(), "clients", []byte(`{"accountId":"acc-1"}`), int64(100), int64(200), nil))

	doc, err := r.Get(context.Background(), "clients", id.String())
	require.NoError(t, err)
	require.Equal(t, id.String(), doc.ID)
	require.JSONEq(t, `{"accountId":"acc-1"}`, string(doc.Data))
	require.Equal(t, int64(200), doc.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepo_Get_NotFound(t *testing.T) {
	r, mock := newGormMock(t)

	mock.ExpectQuery(`SELECT \* FROM "documents"`).
		WillReturnRows(sqlmock.NewRows(documentColumns))
	_, err := r.Get(context.Background(), "clients", uuid.NewString())
	require.ErrorIs(t, err, utils.ErrNotFound)

	// malformed ids never reach the database
	_, err = r.Get(context.Background(), "clients", "not-a-uuid")
	require.ErrorIs(t, err, utils.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepo_Update_MergesPatch(t *testing.T) {
	r, mock := newGormMock(t)
	id := uuid.NewString()

	mock.ExpectExec(`UPDATE "documents" SET "data"=data \|\| \$1::jsonb,"updated_at"=\$2 WHERE .*id = \$3 AND collection = \$4`).
		WithArgs(`{"status":"completed"}`, sqlmock.AnyArg(), id, "clients").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := r.Update(context.Background(), "clients", id, map[string]any{"status": "completed"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepo_Update_NoRows(t *testing.T) {
	r, mock := newGormMock(t)

	mock.ExpectExec(`UPDATE "documents" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := r.Update(context.Background(), "clients", uuid.NewString(), map[string]any{"status": "completed"})
	require.ErrorIs(t, err, utils.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepo_FindBy(t *testing.T) {
	r, mock := newGormMock(t)
	id1, id2 := uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "documents" WHERE .*collection = \$1 AND data->>\$2 = \$3.*ORDER BY created_at DESC`).
		WithArgs("clients", "accountId", "acc-1").
		WillReturnRows(sqlmock.NewRows(documentColumns).
			AddRow(id1.String(), "clients", []byte(`{"accountId":"acc-1","intake":{"name":"B"}}`), int64(20), int64(20), nil).
			AddRow(id2.String(), "clients", []byte(`{"accountId":"acc-1","intake":{"name":"A"}}`), int64(10), int64(10), nil))

	docs, err := r.FindBy(context.Background(), "clients", "accountId", "acc-1")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, id1.String(), docs[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
