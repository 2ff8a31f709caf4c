package crm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStageServer(t *testing.T, statusID int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/leads", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("query"))
		fmt.Fprintf(w, `{"_embedded":{"leads":[{"status_id":%d}]}}`, statusID)
	}))
}

func TestStageOfMapsConfiguredStatuses(t *testing.T) {
	tests := []struct {
		statusID int
		want     StageClassification
	}{
		{142, StageHumanAttention},
		{143, StageNotInterested},
		{144, StageMeetingLocked},
		{999, StageOpen}, // unmapped status stays open
	}

	for _, tt := range tests {
		srv := newStageServer(t, tt.statusID)
		c := NewHTTPClient(srv.URL, "token", []int{142}, []int{143}, []int{144})

		stage, err := c.StageOf(context.Background(), "5511999990001")
		srv.Close()
		require.NoError(t, err)
		assert.Equal(t, tt.want, stage)
	}
}

func TestStageOfUnknownLeadIsOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "token", nil, nil, nil)
	stage, err := c.StageOf(context.Background(), "5511999990001")
	require.NoError(t, err)
	assert.Equal(t, StageOpen, stage)
}

func TestStageOfErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "token", nil, nil, nil)
	_, err := c.StageOf(context.Background(), "5511999990001")
	require.Error(t, err)
}

func TestBlocksAutomation(t *testing.T) {
	assert.False(t, StageOpen.BlocksAutomation())
	assert.True(t, StageHumanAttention.BlocksAutomation())
	assert.True(t, StageNotInterested.BlocksAutomation())
	assert.True(t, StageMeetingLocked.BlocksAutomation())
}
