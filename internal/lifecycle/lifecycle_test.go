package lifecycle_test

import (
	"testing"
	"time"

	"floodrescue/backend/internal/apperr"
	"floodrescue/backend/internal/lifecycle"
	"floodrescue/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpen() models.Request {
	return *models.NewRequest(models.Draft{
		ContactName:  "Tran Van A",
		ContactPhone: "+84 909 123 456",
		Location:     &models.Location{Lat: 10.7769, Lng: 106.7009},
		Severity:     models.SeverityCritical,
	}, "anon-1", time.Now())
}

func TestNext(t *testing.T) {
	tests := []struct {
		name    string
		from    models.Status
		ev      lifecycle.Event
		want    models.Status
		wantErr error
	}{
		{"claim open", models.StatusOpen, lifecycle.EventClaim, models.StatusInProgress, nil},
		{"cancel open", models.StatusOpen, lifecycle.EventCancel, lifecycle.StatusDeleted, nil},
		{"complete in progress", models.StatusInProgress, lifecycle.EventComplete, models.StatusPendingConfirmation, nil},
		{"confirm pending", models.StatusPendingConfirmation, lifecycle.EventConfirm, models.StatusResolved, nil},
		{"claim taken", models.StatusInProgress, lifecycle.EventClaim, "", apperr.ErrClaimConflict},
		{"complete open", models.StatusOpen, lifecycle.EventComplete, "", apperr.ErrInvalidTransition},
		{"cancel in progress", models.StatusInProgress, lifecycle.EventCancel, "", apperr.ErrInvalidTransition},
		{"confirm in progress", models.StatusInProgress, lifecycle.EventConfirm, "", apperr.ErrInvalidTransition},
		{"claim resolved", models.StatusResolved, lifecycle.EventClaim, "", apperr.ErrTerminal},
		{"cancel resolved", models.StatusResolved, lifecycle.EventCancel, "", apperr.ErrTerminal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := lifecycle.Next(tt.from, tt.ev)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.from, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAllowedAndReachable(t *testing.T) {
	assert.True(t, lifecycle.Allowed(models.StatusOpen, models.StatusInProgress))
	assert.True(t, lifecycle.Allowed(models.StatusPendingConfirmation, models.StatusResolved))
	assert.False(t, lifecycle.Allowed(models.StatusOpen, models.StatusResolved))
	assert.False(t, lifecycle.Allowed(models.StatusResolved, models.StatusOpen))
	assert.False(t, lifecycle.Allowed(models.StatusInProgress, models.StatusOpen))

	assert.True(t, lifecycle.Reachable(models.StatusOpen, models.StatusResolved))
	assert.True(t, lifecycle.Reachable(models.StatusInProgress, models.StatusInProgress))
	assert.False(t, lifecycle.Reachable(models.StatusPendingConfirmation, models.StatusInProgress))
	assert.False(t, lifecycle.Reachable("BOGUS", models.StatusOpen))
}

func TestClaim(t *testing.T) {
	// Arrange
	r := newOpen()
	loc := &models.Location{Lat: 10.8, Lng: 106.7}

	// Act
	got, err := lifecycle.Claim(r, models.Identity{ID: "resp-1", Name: "Minh", Phone: "0901"}, loc)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, got.Status)
	assert.Equal(t, "resp-1", got.RescuerID)
	assert.Equal(t, "Minh", got.RescuerName)
	assert.Equal(t, *loc, *got.RescuerLocation)
	assert.Equal(t, models.StatusOpen, r.Status, "input is not modified")

	// Act & Assert - Second claim and anonymous claim
	_, err = lifecycle.Claim(got, models.Identity{ID: "resp-2"}, nil)
	assert.ErrorIs(t, err, apperr.ErrClaimConflict)

	_, err = lifecycle.Claim(r, models.Identity{}, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestComplete(t *testing.T) {
	claimed, err := lifecycle.Claim(newOpen(), models.Identity{ID: "resp-1"}, nil)
	require.NoError(t, err)

	t.Run("no proof", func(t *testing.T) {
		_, err := lifecycle.Complete(claimed, "resp-1", nil, 5)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
	t.Run("too many proofs", func(t *testing.T) {
		_, err := lifecycle.Complete(claimed, "resp-1", []string{"a", "b", "c"}, 2)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
	t.Run("blank proof", func(t *testing.T) {
		_, err := lifecycle.Complete(claimed, "resp-1", []string{" "}, 5)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
	t.Run("other responder", func(t *testing.T) {
		_, err := lifecycle.Complete(claimed, "resp-2", []string{"https://img/1.jpg"}, 5)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})
	t.Run("not claimed", func(t *testing.T) {
		_, err := lifecycle.Complete(newOpen(), "resp-1", []string{"https://img/1.jpg"}, 5)
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	})
	t.Run("ok", func(t *testing.T) {
		got, err := lifecycle.Complete(claimed, "resp-1", []string{"https://img/1.jpg"}, 5)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPendingConfirmation, got.Status)
		assert.Equal(t, []string{"https://img/1.jpg"}, got.ProofImageURLs)
	})
}

func TestConfirm(t *testing.T) {
	// Arrange
	claimed, _ := lifecycle.Claim(newOpen(), models.Identity{ID: "resp-1"}, nil)
	pending, err := lifecycle.Complete(claimed, "resp-1", []string{"p"}, 5)
	require.NoError(t, err)

	// Act & Assert
	_, err = lifecycle.Confirm(pending, "anon-2")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = lifecycle.Confirm(claimed, "anon-1")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	resolved, err := lifecycle.Confirm(pending, "anon-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, resolved.Status)

	_, err = lifecycle.Confirm(resolved, "anon-1")
	assert.ErrorIs(t, err, apperr.ErrTerminal)
}

func TestCancel(t *testing.T) {
	// Arrange
	open := newOpen()
	claimed, _ := lifecycle.Claim(open, models.Identity{ID: "resp-1"}, nil)

	// Act & Assert
	assert.NoError(t, lifecycle.Cancel(open, "anon-1"))
	assert.ErrorIs(t, lifecycle.Cancel(open, "anon-2"), apperr.ErrUnauthorized)
	assert.ErrorIs(t, lifecycle.Cancel(claimed, "anon-1"), apperr.ErrInvalidTransition)
}

func TestAmend(t *testing.T) {
	// Arrange
	open := newOpen()
	note := "water rising, on the roof"
	people := 4

	// Act
	got, err := lifecycle.Amend(open, "anon-1", models.Amendment{Note: &note, NumberOfPeople: &people})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, note, got.Note)
	assert.Equal(t, 4, *got.NumberOfPeople)
	assert.Equal(t, open.Location, got.Location)
	assert.Equal(t, open.Severity, got.Severity)

	// Act & Assert - Rejected amendments
	_, err = lifecycle.Amend(open, "anon-1", models.Amendment{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = lifecycle.Amend(open, "anon-9", models.Amendment{Note: &note})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	open.Status = models.StatusResolved
	_, err = lifecycle.Amend(open, "anon-1", models.Amendment{Note: &note})
	assert.ErrorIs(t, err, apperr.ErrTerminal)
	assert.ErrorIs(t, lifecycle.CanMessage(open), apperr.ErrTerminal)
}
