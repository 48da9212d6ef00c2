package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-events/bookingbot/config"
	"github.com/atelier-events/bookingbot/internal/capacity"
	"github.com/atelier-events/bookingbot/internal/registration"
	"github.com/atelier-events/bookingbot/internal/schedule"
)

type fakeRegistrationStore struct {
	counts map[string]int
}

func (s *fakeRegistrationStore) List(ctx context.Context) ([]registration.Registration, error) {
	return nil, nil
}

func (s *fakeRegistrationStore) GetByID(ctx context.Context, id uuid.UUID) (*registration.Registration, error) {
	return nil, registration.ErrNotFound
}

func (s *fakeRegistrationStore) CountBySlot(ctx context.Context, dateLabel, timeLabel string) (int, error) {
	return s.counts[dateLabel+"|"+timeLabel], nil
}

func TestSlotsReportsReservedAndPersisted(t *testing.T) {
	gin.SetMode(gin.TestMode)

	catalog, err := schedule.Parse(config.DefaultOfferings)
	require.NoError(t, err)

	tracker := capacity.NewMemoryTracker(15)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ok, err := tracker.TryReserve(ctx, "21 Jan — Location A", "10:00")
		require.NoError(t, err)
		require.True(t, ok)
	}

	// One reservation was abandoned before completing, so only two rows exist.
	store := &fakeRegistrationStore{counts: map[string]int{
		"21 Jan — Location A|10:00": 2,
	}}
	h := NewHandler(store, tracker, catalog, nil, NewTokenService("s", 1), "", 15, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/admin/slots", nil)
	h.Slots(c)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			Slots []SlotStatus `json:"slots"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	// 2 dates x 3 times each.
	require.Len(t, body.Data.Slots, 6)
	first := body.Data.Slots[0]
	assert.Equal(t, "21 Jan — Location A", first.DateLabel)
	assert.Equal(t, "10:00", first.TimeLabel)
	assert.Equal(t, 3, first.Reserved)
	assert.Equal(t, 2, first.Persisted)
	assert.Equal(t, 15, first.Capacity)

	// Untouched slot reports zeros.
	last := body.Data.Slots[5]
	assert.Equal(t, 0, last.Reserved)
	assert.Equal(t, 0, last.Persisted)
}
