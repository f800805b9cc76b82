package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"dotmac/internal/persistence"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

var userColumnNames = []string{"id", "email", "name", "password_hash", "email_verified", "is_active", "mfa_enabled", "roles", "created_at", "updated_at"}

func newMockSql(t *testing.T, dialect persistence.Dialect) (*Sql, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	store, err := NewSql(NewSqlOpts{Db: db, Dialect: dialect})
	require.NoError(t, err)
	return store, mock
}

func TestNewSqlRequiresDb(t *testing.T) {
	_, err := NewSql(NewSqlOpts{})
	require.ErrorIs(t, err, ErrorDatabaseUndefined)
}

func TestSqlGetUserById(t *testing.T) {
	store, mock := newMockSql(t, persistence.DialectMysql)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = ?")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(userColumnNames).
			AddRow("user-1", "ops@isp.net", "Ops", "hash", true, true, false, `["admin"]`, now, now))

	user, err := store.GetUserById(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, "ops@isp.net", user.Email)
	require.True(t, user.EmailVerified)
	require.Equal(t, []string{"admin"}, user.Roles)
}

func TestSqlGetUserNotFound(t *testing.T) {
	store, mock := newMockSql(t, persistence.DialectPostgres)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WithArgs("missing@isp.net").
		WillReturnRows(sqlmock.NewRows(userColumnNames))

	_, err := store.GetUserByEmail(context.Background(), "missing@isp.net")
	require.ErrorIs(t, err, ErrorNotFound)
}

func TestSqlCreateUserDuplicate(t *testing.T) {
	store, mock := newMockSql(t, persistence.DialectMysql)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := store.CreateUser(context.Background(), User{Id: "user-1", Email: "ops@isp.net"})
	require.ErrorIs(t, err, ErrorDuplicateEntry)
}

func TestSqlCreateOrganizationCommitsOwner(t *testing.T) {
	store, mock := newMockSql(t, persistence.DialectPostgres)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO organizations (id, name, slug, metadata, created_at) VALUES ($1, $2, $3, $4, $5)")).
		WithArgs("org-1", "Fibre Co", "fibre-co", `{}`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO members (org_id, user_id, "role", created_at)`)).
		WithArgs("org-1", "user-1", "owner", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.CreateOrganization(
		context.Background(),
		Organization{Id: "org-1", Name: "Fibre Co", Slug: "fibre-co", CreatedAt: time.Now()},
		Member{OrgId: "org-1", UserId: "user-1", Role: "owner", CreatedAt: time.Now()},
	)
	require.NoError(t, err)
}

func TestSqlCreateOrganizationRollsBackOnDuplicateSlug(t *testing.T) {
	store, mock := newMockSql(t, persistence.DialectPostgres)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO organizations")).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	err := store.CreateOrganization(
		context.Background(),
		Organization{Id: "org-1", Name: "Fibre Co", Slug: "fibre-co"},
		Member{OrgId: "org-1", UserId: "user-1", Role: "owner"},
	)
	require.ErrorIs(t, err, ErrorDuplicateEntry)
}

func TestSqlConsumePendingLoginExpired(t *testing.T) {
	store, mock := newMockSql(t, persistence.DialectMysql)
	expiresAt := time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM pending_logins WHERE digest = ?")).
		WithArgs("digest").
		WillReturnRows(sqlmock.NewRows([]string{"digest", "user_id", "ip_address", "user_agent", "expires_at"}).
			AddRow("digest", "user-1", "", "", expiresAt))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM pending_logins WHERE digest = ?")).
		WithArgs("digest").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := store.ConsumePendingLogin(context.Background(), "digest", expiresAt.Add(time.Second))
	require.ErrorIs(t, err, ErrorExpired)
}

func TestSqlDeleteUserSessionsReturnsIds(t *testing.T) {
	store, mock := newMockSql(t, persistence.DialectMysql)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM sessions WHERE user_id = ?")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("s1").AddRow("s2"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE user_id = ?")).
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	ids, err := store.DeleteUserSessions(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, []string{"s1", "s2"}, ids)
}

func TestSqlGetSessionNullActiveOrganization(t *testing.T) {
	store, mock := newMockSql(t, persistence.DialectMysql)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions WHERE id = ?")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "active_org_id", "ip_address", "user_agent", "created_at", "refreshed_at", "expires_at"}).
			AddRow("s1", "user-1", nil, "10.0.0.1", "curl", now, now, now.Add(7*24*time.Hour)))

	session, err := store.GetSession(context.Background(), "s1")
	require.NoError(t, err)
	require.Empty(t, session.ActiveOrgId)
	require.Equal(t, "10.0.0.1", session.IpAddress)
}

func TestSqlUpdateMemberRoleNotFound(t *testing.T) {
	store, mock := newMockSql(t, persistence.DialectMysql)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE members SET `role` = ? WHERE org_id = ? AND user_id = ?")).
		WithArgs("viewer", "org-1", "user-9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateMemberRole(context.Background(), "org-1", "user-9", "viewer")
	require.ErrorIs(t, err, ErrorNotFound)
}

func TestSqlRejectsWrongStatementKind(t *testing.T) {
	store, _ := newMockSql(t, persistence.DialectMysql)
	err := store.executeInsert(context.Background(), store.input("test", "DELETE FROM users"))
	require.ErrorIs(t, err, ErrorInvalidInput)
}
