package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewService(reg)

	s.IncMatchesCreated()
	s.IncMatchesCreated()
	s.IncMatchMisses()
	s.IncMeetingTransition("cancelled")
	s.IncNotifSent("slack")
	s.IncNotifFailed("telegram")
	s.ObserveMatchDuration(0.02)
	s.SetStartupTime(1.5)

	rr := httptest.NewRecorder()
	NewMetricsHandler(reg).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)

	out := string(body)
	assert.Contains(t, out, "pairup_matches_created_total 2")
	assert.Contains(t, out, "pairup_match_misses_total 1")
	assert.Contains(t, out, `pairup_meeting_transitions_total{status="cancelled"} 1`)
	assert.Contains(t, out, `pairup_notifications_sent_total{channel="slack"} 1`)
	assert.Contains(t, out, `pairup_notifications_failed_total{channel="telegram"} 1`)
	assert.Contains(t, out, "pairup_find_match_duration_seconds_count 1")
	assert.Contains(t, out, "pairup_startup_time_seconds 1.5")
}

func TestMock(t *testing.T) {
	m := NewMock()
	m.IncMeetingTransition("completed")
	m.IncMeetingTransition("completed")
	m.IncNotifSent("telegram")

	assert.Equal(t, 2, m.MeetingTransitions("completed"))
	assert.Equal(t, 0, m.MeetingTransitions("cancelled"))
	assert.Equal(t, 1, m.NotifSent("telegram"))
	assert.Equal(t, 0, m.NotifFailed("telegram"))
}
