package campaigns

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryCreateDefaultsStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	now := time.Now().UTC()

	campaign := &Campaign{
		OrgID:      uuid.New(),
		Name:       "दशैं शुभकामना",
		Channel:    "sms",
		TemplateID: uuid.New(),
		Tags:       []string{"kathmandu"},
	}

	mock.ExpectQuery("INSERT INTO campaigns").
		WithArgs(sqlmock.AnyArg(), campaign.OrgID, campaign.Name, "sms", campaign.TemplateID,
			pq.Array(campaign.Tags), StatusDraft).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	require.NoError(t, repo.Create(context.Background(), campaign))
	assert.Equal(t, StatusDraft, campaign.Status)
	assert.NotEqual(t, uuid.Nil, campaign.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	id := uuid.New()

	mock.ExpectQuery("SELECT id, org_id").WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = repo.Get(context.Background(), id)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRepositoryListByOrg(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	orgID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT id, org_id, name, channel, template_id, tags, status").
		WithArgs(orgID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "org_id", "name", "channel", "template_id", "tags", "status", "created_at", "updated_at",
		}).
			AddRow(uuid.New(), orgID, "a", "sms", uuid.New(), pq.Array([]string{}), StatusQueued, now, now).
			AddRow(uuid.New(), orgID, "b", "voice", uuid.New(), nil, StatusDraft, now, now))

	out, err := repo.ListByOrg(context.Background(), orgID)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.NotNil(t, out[1].Tags)
}

func TestRepositorySetStatusNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	id := uuid.New()

	mock.ExpectQuery("UPDATE campaigns SET status").WithArgs(id, StatusQueued).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))

	err = repo.SetStatus(context.Background(), id, StatusQueued)
	assert.True(t, errors.Is(err, ErrNotFound))
}
