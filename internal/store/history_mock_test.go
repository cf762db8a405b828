package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/newsdigest/internal/pipeline"
)

func newMockHistory(t *testing.T) (*History, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &History{conn: db, now: func() time.Time { return time.Unix(1700000000, 0) }}, mock
}

func TestHistory_RecordRollsBackOnItemFailure(t *testing.T) {
	h, mock := newMockHistory(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO runs")).
		WithArgs(KindHeadlines, "https://news.example/", pipeline.StatusSuccess, "overall", "", int64(1700000000)).
		WillReturnResult(sqlmock.NewResult(7, 1))
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO items"))
	prep.ExpectExec().
		WithArgs(int64(7), "First", "https://news.example/news/1", "summary", "").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := h.RecordHeadlines(context.Background(), pipeline.HeadlineResult{
		URL:            "https://news.example/",
		Status:         pipeline.StatusSuccess,
		OverallSummary: "overall",
		IndividualSummaries: []pipeline.HeadlineSummary{
			{Headline: "First", Summary: "summary", Link: "https://news.example/news/1"},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert item")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistory_RecordArticlesCommits(t *testing.T) {
	h, mock := newMockHistory(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO runs")).
		WithArgs(KindArticles, "api", pipeline.StatusFailed, "", "", int64(1700000000)).
		WillReturnResult(sqlmock.NewResult(3, 1))
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO items"))
	prep.ExpectExec().
		WithArgs(int64(3), "Error", "https://a.example/x", "Processing failed: boom", "boom").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	id, err := h.RecordArticles(context.Background(), "api", []pipeline.ArticleResult{
		{URL: "https://a.example/x", Title: "Error", Summary: "Processing failed: boom", Error: "boom"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistory_SeenLinkQueryError(t *testing.T) {
	h, mock := newMockHistory(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM items")).
		WithArgs("https://news.example/news/1").
		WillReturnError(errors.New("locked"))

	seen, err := h.SeenLink(context.Background(), "https://news.example/news/1")
	require.Error(t, err)
	assert.False(t, seen)
	assert.NoError(t, mock.ExpectationsWereMet())
}
