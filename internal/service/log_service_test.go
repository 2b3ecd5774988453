package service

import (
	"context"
	"path/filepath"
	"testing"

	"ai-data-analyst-be/internal/pkg/logger"
	"ai-data-analyst-be/internal/pkg/serverutils"
	"ai-data-analyst-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityLogWritesReadableEntries(t *testing.T) {
	activity := logger.NewIsolatedLogger(filepath.Join(t.TempDir(), "activity.log"))
	svc := NewActivityLogService(nil, activity)

	require.NoError(t, svc.handleEvent(context.Background(), events.DatasetLoaded("s1", "sales.csv", 3, 2)))
	require.NoError(t, svc.handleEvent(context.Background(), events.UploadFailed("s1", "x.pdf", "UnsupportedFormat")))
	activity.Sync()

	logs := NewLogService(map[string]logger.ILogger{"activity": activity})

	page, err := logs.GetLogs(context.Background(), "activity", 1, 10, "", "")
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, events.TypeUploadFailed, page.Items[0].Message)
	assert.Equal(t, "WARN", page.Items[0].Level)

	detail, err := logs.GetLogDetail(context.Background(), "activity", page.Items[1].Id)
	require.NoError(t, err)
	assert.Equal(t, "sales.csv", detail.Details["file_name"])

	_, err = logs.GetLogs(context.Background(), "billing", 1, 10, "", "")
	assert.ErrorIs(t, err, serverutils.ErrNotFound)

	_, err = logs.GetLogDetail(context.Background(), "activity", "nope")
	assert.ErrorIs(t, err, serverutils.ErrNotFound)
}
