package model

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCreateReportRequest() CreateReportRequest {
	return CreateReportRequest{
		WeekStart: "2026-08-24",
		Progress:  "shipped the thing",
		Plans:     "ship the next thing",
	}
}

func TestCreateReportRequest_Validate_Success(t *testing.T) {
	req := validCreateReportRequest()
	require.NoError(t, req.Validate())

	ws, err := req.ParseWeekStart()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), ws)
}

func TestCreateReportRequest_Validate_MissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateReportRequest)
		errMsg string
	}{
		{"missing week_start", func(r *CreateReportRequest) { r.WeekStart = "" }, "week_start is required"},
		{"bad week_start", func(r *CreateReportRequest) { r.WeekStart = "next monday" }, "YYYY-MM-DD"},
		{"missing progress", func(r *CreateReportRequest) { r.Progress = "   " }, "progress is required"},
		{"missing plans", func(r *CreateReportRequest) { r.Plans = "" }, "plans is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateReportRequest()
			tt.mutate(&req)
			err := req.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestCreateReportRequest_Validate_BlankBlockersDropped(t *testing.T) {
	blockers := "   "
	req := validCreateReportRequest()
	req.Blockers = &blockers
	require.NoError(t, req.Validate())
	assert.Nil(t, req.Blockers)
}

func TestCreateReportRequest_Validate_TrimsBlockers(t *testing.T) {
	blockers := "  waiting on infra  "
	req := validCreateReportRequest()
	req.Blockers = &blockers
	require.NoError(t, req.Validate())
	require.NotNil(t, req.Blockers)
	assert.Equal(t, "waiting on infra", *req.Blockers)
}

func TestCreateReportRequest_Validate_Tags(t *testing.T) {
	req := validCreateReportRequest()
	req.Tags = []string{" infra ", "", "oncall"}
	require.NoError(t, req.Validate())
	assert.Equal(t, []string{"infra", "oncall"}, req.Tags)

	req = validCreateReportRequest()
	req.Tags = []string{strings.Repeat("x", 65)}
	require.Error(t, req.Validate())

	req = validCreateReportRequest()
	req.Tags = make([]string, 21)
	for i := range req.Tags {
		req.Tags[i] = "t"
	}
	require.Error(t, req.Validate())
}

func TestCreateReportRequest_Validate_FieldLength(t *testing.T) {
	req := validCreateReportRequest()
	req.Progress = strings.Repeat("a", 10001)
	require.Error(t, req.Validate())
}
