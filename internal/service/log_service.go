package service

import (
	"context"
	"fmt"

	"ai-data-analyst-be/internal/dto"
	"ai-data-analyst-be/internal/pkg/logger"
	"ai-data-analyst-be/internal/pkg/serverutils"
)

type ILogService interface {
	GetLogs(ctx context.Context, source string, page, limit int, level, module string) (*dto.LogPageResponse, error)
	GetLogDetail(ctx context.Context, source, id string) (*dto.LogDetailResponse, error)
}

type logService struct {
	sources map[string]logger.ILogger
}

// NewLogService exposes the named log files (e.g. "system", "activity").
func NewLogService(sources map[string]logger.ILogger) ILogService {
	return &logService{sources: sources}
}

func (s *logService) source(name string) (logger.ILogger, error) {
	if name == "" {
		name = "system"
	}
	l, ok := s.sources[name]
	if !ok {
		return nil, fmt.Errorf("log source %q: %w", name, serverutils.ErrNotFound)
	}
	return l, nil
}

func (s *logService) GetLogs(ctx context.Context, source string, page, limit int, level, module string) (*dto.LogPageResponse, error) {
	l, err := s.source(source)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 10
	}

	entries, err := l.GetLogs(logger.LogQuery{
		Level:  level,
		Module: module,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, err
	}

	items := make([]dto.LogListResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, toLogListResponse(e))
	}
	return &dto.LogPageResponse{Page: page, Limit: limit, Items: items}, nil
}

func (s *logService) GetLogDetail(ctx context.Context, source, id string) (*dto.LogDetailResponse, error) {
	l, err := s.source(source)
	if err != nil {
		return nil, err
	}
	entry, err := l.GetLogById(id)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, serverutils.ErrNotFound)
	}
	return &dto.LogDetailResponse{
		LogListResponse: toLogListResponse(*entry),
		Details:         entry.Details,
	}, nil
}

func toLogListResponse(e logger.LogEntry) dto.LogListResponse {
	return dto.LogListResponse{
		Id:        e.Id,
		Level:     e.Level,
		Module:    e.Module,
		Message:   e.Message,
		CreatedAt: e.Timestamp,
	}
}
