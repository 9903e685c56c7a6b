package repository

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []any
}

// recordingDB 记录 Exec 的语句与参数，返回预设的影响行数
type recordingDB struct {
	tag   pgconn.CommandTag
	err   error
	calls []execCall
}

func (d *recordingDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	d.calls = append(d.calls, execCall{sql: sql, args: args})
	return d.tag, d.err
}

func (d *recordingDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected query")
}

func (d *recordingDB) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("unexpected query row")
}

func (d *recordingDB) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("unexpected begin")
}

var spaces = regexp.MustCompile(`\s+`)

func normalize(sql string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(sql, " "))
}

func TestMarkReadKeepsFirstReadAt(t *testing.T) {
	db := &recordingDB{tag: pgconn.NewCommandTag("UPDATE 1")}
	repo := &NotificationRepository{db: db}
	at := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.MarkRead(context.Background(), 7, 42, at))

	require.Len(t, db.calls, 1)
	sql := normalize(db.calls[0].sql)
	assert.Contains(t, sql, "SET is_read = TRUE, read_at = COALESCE(read_at, $3)")
	assert.Contains(t, sql, "WHERE id = $1 AND user_id = $2")
	assert.Equal(t, []any{int64(42), int64(7), at}, db.calls[0].args)
}

func TestMarkReadNotOwned(t *testing.T) {
	db := &recordingDB{tag: pgconn.NewCommandTag("UPDATE 0")}
	repo := &NotificationRepository{db: db}

	err := repo.MarkRead(context.Background(), 7, 3, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkAllReadOnlyTouchesUnread(t *testing.T) {
	db := &recordingDB{tag: pgconn.NewCommandTag("UPDATE 2")}
	repo := &NotificationRepository{db: db}
	at := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	n, err := repo.MarkAllRead(context.Background(), 7, at)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.Len(t, db.calls, 1)
	sql := normalize(db.calls[0].sql)
	assert.Contains(t, sql, "SET is_read = TRUE, read_at = $2")
	assert.Contains(t, sql, "WHERE user_id = $1 AND is_read = FALSE")
	assert.Equal(t, []any{int64(7), at}, db.calls[0].args)
}

func TestMarkAllReadWrapsStoreError(t *testing.T) {
	boom := errors.New("conn reset")
	repo := &NotificationRepository{db: &recordingDB{err: boom}}

	_, err := repo.MarkAllRead(context.Background(), 7, time.Now())
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
}
