package service

import (
	"context"
	"fmt"
	"time"

	"ai-data-analyst-be/internal/dto"
	"ai-data-analyst-be/internal/pkg/logger"
	"ai-data-analyst-be/internal/pkg/serverutils"
	"ai-data-analyst-be/internal/repository/memory"
	"ai-data-analyst-be/pkg/apperr"
	"ai-data-analyst-be/pkg/compiler"
	"ai-data-analyst-be/pkg/conversation"
	"ai-data-analyst-be/pkg/engine"

	"github.com/google/uuid"
)

type IAnalysisService interface {
	CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error)
	CloseSession(ctx context.Context, sessionID string) error
	Upload(ctx context.Context, sessionID, fileName string, data []byte) (*dto.UploadDatasetResponse, error)
	Ask(ctx context.Context, sessionID string, req *dto.AskRequest) (*dto.AskResponse, error)
	Reset(ctx context.Context, sessionID string) error
	GetTranscript(ctx context.Context, sessionID string) (*dto.TranscriptResponse, error)
	GetSchema(ctx context.Context, sessionID string) (*dto.SchemaResponse, error)
	GetState(ctx context.Context, sessionID string) (*dto.SessionStateResponse, error)
	Exists(sessionID string) bool
	SessionCount() int
	Shutdown()
}

// PipelineConfig holds what every new session is wired with.
type PipelineConfig struct {
	Resolver    conversation.Resolver
	Compiler    compiler.Compiler
	Reporter    conversation.Reporter
	Notifier    conversation.Notifier
	Activity    *ActivityRecorder
	Logger      logger.ILogger
	QueueDepth  int
	SessionTTL  time.Duration
	SampleRows  int
	SummaryRows int

	// EngineOpener overrides the in-memory SQLite opener, for tests.
	EngineOpener engine.Opener
}

type analysisService struct {
	cfg      PipelineConfig
	sessions *memory.SessionRepository
	logger   logger.ILogger
}

func NewAnalysisService(cfg PipelineConfig) IAnalysisService {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNopLogger()
	}
	if cfg.Activity == nil {
		cfg.Activity = NewActivityRecorder(nil, nil, cfg.Logger)
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = time.Hour
	}
	s := &analysisService{cfg: cfg, logger: cfg.Logger}
	s.sessions = memory.NewSessionRepository(cfg.SessionTTL, s.evicted)
	return s
}

func (s *analysisService) evicted(id string, session *conversation.Session) {
	if err := session.Close(); err != nil {
		s.logger.Warn("AnalysisService", "Engine close failed", map[string]interface{}{"session_id": id, "error": err.Error()})
	}
	s.cfg.Activity.SessionClosed(id)
	s.logger.Info("AnalysisService", "Session released", map[string]interface{}{"session_id": id})
}

func (s *analysisService) CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error) {
	id := uuid.NewString()

	bridge := engine.New(engine.Options{
		QueueDepth: s.cfg.QueueDepth,
		Opener:     s.cfg.EngineOpener,
		Logger:     s.logger,
		Observer:   s.cfg.Activity.EngineObserver(),
	})

	session := conversation.NewSession(id, conversation.Dependencies{
		Engine:   bridge,
		Resolver: s.cfg.Resolver,
		Compiler: s.cfg.Compiler,
		Reporter: s.cfg.Reporter,
		Notifier: s.cfg.Notifier,
		Observer: s.cfg.Activity,
		Logger:   s.logger,
	}, conversation.Options{
		SampleRows:  s.cfg.SampleRows,
		SummaryRows: s.cfg.SummaryRows,
	})
	s.sessions.Save(session)
	s.cfg.Activity.SessionOpened(id)

	return &dto.CreateSessionResponse{
		Id:        id,
		State:     string(session.State()),
		ExpiresAt: time.Now().Add(s.cfg.SessionTTL).UTC(),
	}, nil
}

func (s *analysisService) get(sessionID string) (*conversation.Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, serverutils.ErrNotFound)
	}
	return session, nil
}

func (s *analysisService) Exists(sessionID string) bool {
	_, ok := s.sessions.Get(sessionID)
	return ok
}

func (s *analysisService) CloseSession(ctx context.Context, sessionID string) error {
	if _, err := s.get(sessionID); err != nil {
		return err
	}
	s.sessions.Delete(sessionID)
	return nil
}

func (s *analysisService) Upload(ctx context.Context, sessionID, fileName string, data []byte) (*dto.UploadDatasetResponse, error) {
	session, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}

	res, err := session.Upload(ctx, fileName, data)
	if err != nil {
		s.cfg.Activity.UploadFailed(sessionID, fileName, apperr.KindOf(err))
		return nil, err
	}

	return &dto.UploadDatasetResponse{
		FileName: res.FileName,
		Table:    res.Schema.Table,
		Columns:  res.Schema.Columns,
		RowCount: res.RowCount,
		Welcome:  res.Welcome,
	}, nil
}

func (s *analysisService) Ask(ctx context.Context, sessionID string, req *dto.AskRequest) (*dto.AskResponse, error) {
	session, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}

	res, err := session.Ask(ctx, req.Question)
	if err != nil {
		return nil, err
	}

	return &dto.AskResponse{
		Status:        string(res.Status),
		Question:      res.Question,
		Entry:         res.Entry,
		Clarification: res.Clarification,
		Plan:          res.Plan,
		ErrorKind:     string(res.ErrorKind),
	}, nil
}

func (s *analysisService) Reset(ctx context.Context, sessionID string) error {
	session, err := s.get(sessionID)
	if err != nil {
		return err
	}
	return session.Reset(ctx)
}

func (s *analysisService) GetTranscript(ctx context.Context, sessionID string) (*dto.TranscriptResponse, error) {
	session, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}
	return &dto.TranscriptResponse{SessionId: sessionID, Entries: session.Transcript()}, nil
}

func (s *analysisService) GetSchema(ctx context.Context, sessionID string) (*dto.SchemaResponse, error) {
	session, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}
	desc := session.Schema()
	if desc == nil {
		return nil, conversation.ErrNoDataset
	}
	return &dto.SchemaResponse{
		FileName: session.FileName(),
		Table:    desc.Table,
		Columns:  desc.Columns,
	}, nil
}

func (s *analysisService) GetState(ctx context.Context, sessionID string) (*dto.SessionStateResponse, error) {
	session, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}
	return &dto.SessionStateResponse{
		Id:          sessionID,
		State:       string(session.State()),
		FileName:    session.FileName(),
		EngineState: session.EngineState().String(),
		EntryCount:  len(session.Transcript()),
	}, nil
}

func (s *analysisService) SessionCount() int {
	return s.sessions.Count()
}

// Shutdown closes every live session and its engine.
func (s *analysisService) Shutdown() {
	s.sessions.DeleteAll()
}
