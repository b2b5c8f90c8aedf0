package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internlens/internlens-api/internal/models"
)

func TestUpsertVote(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewVoteRepository(db)

	mock.ExpectExec("INSERT INTO review_votes .+ ON CONFLICT \\(review_id, user_id\\) DO UPDATE").
		WillReturnResult(sqlmock.NewResult(1, 1))

	vote := &models.ReviewVote{ReviewID: "r1", UserID: "u1", Value: models.VoteUp}
	err := repo.Upsert(context.Background(), vote)
	require.NoError(t, err)
	assert.NotEmpty(t, vote.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteVote(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewVoteRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM review_votes WHERE review_id = $1 AND user_id = $2")).
		WithArgs("r1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Delete(context.Background(), "r1", "u1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountUp(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewVoteRepository(db)

	rows := sqlmock.NewRows([]string{"count"}).AddRow(7)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM review_votes WHERE review_id = $1 AND value = 'UP'")).
		WithArgs("r1").
		WillReturnRows(rows)

	count, err := repo.CountUp(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, 7, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
