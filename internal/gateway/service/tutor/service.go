package tutor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"tutorui/internal/gateway/repository/eventlog"
	"tutorui/internal/gateway/repository/pagearchive"
	"tutorui/internal/genui"
	"tutorui/internal/llm"
)

// PhaseCompose labels model calls made while composing a page.
const PhaseCompose = "compose"

type Mode string

const (
	ModeSafe     Mode = "safe"
	ModeStrict   Mode = "strict"
	ModeBaseline Mode = "baseline"
)

var (
	ErrEmptyUtterance = errors.New("utterance is required")
	ErrUnknownMode    = errors.New("unknown compose mode")
)

// ParseMode maps a request mode to a Mode. Empty selects ModeSafe.
func ParseMode(raw string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(raw))); m {
	case "":
		return ModeSafe, nil
	case ModeSafe, ModeStrict, ModeBaseline:
		return m, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownMode, raw)
	}
}

type ComposeRequest struct {
	Utterance string
	Context   genui.RequestContext
	Mode      Mode
}

type ComposeResult struct {
	Page       genui.Page
	ArchiveKey string
}

// Service ties the orchestrator to the interaction history and the page
// archive. Both stores are optional.
type Service struct {
	orch        *genui.Orchestrator
	events      eventlog.Store
	archive     pagearchive.Store
	recentLimit int
	hook        llm.PromptHook
	log         *zap.Logger
}

type Option func(*Service)

func WithEventLog(s eventlog.Store) Option { return func(svc *Service) { svc.events = s } }

func WithArchive(s pagearchive.Store) Option { return func(svc *Service) { svc.archive = s } }

func WithRecentLimit(n int) Option { return func(svc *Service) { svc.recentLimit = n } }

// WithPromptHook observes every model call Compose makes.
func WithPromptHook(h llm.PromptHook) Option { return func(svc *Service) { svc.hook = h } }

func WithLogger(l *zap.Logger) Option {
	return func(svc *Service) {
		if l != nil {
			svc.log = l
		}
	}
}

func New(orch *genui.Orchestrator, opts ...Option) *Service {
	s := &Service{
		orch:        orch,
		recentLimit: 10,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Orchestrator() *genui.Orchestrator { return s.orch }

// Compose builds a page for req. Only ModeStrict can fail on model output;
// its errors wrap the genui sentinels.
func (s *Service) Compose(ctx context.Context, req ComposeRequest) (ComposeResult, error) {
	if s == nil || s.orch == nil {
		return ComposeResult{}, fmt.Errorf("tutor service is not available")
	}
	if strings.TrimSpace(req.Utterance) == "" {
		return ComposeResult{}, ErrEmptyUtterance
	}
	mode := req.Mode
	if mode == "" {
		mode = ModeSafe
	}
	rc := s.withRecentActivity(ctx, req.Context)

	ctx = llm.WithPhase(ctx, PhaseCompose)
	if s.hook != nil {
		ctx = llm.WithHook(ctx, s.hook)
	}

	var page genui.Page
	switch mode {
	case ModeBaseline:
		page = s.orch.ComposePage(req.Utterance, rc)
	case ModeStrict:
		p, err := s.orch.ComposeStrict(ctx, req.Utterance, rc)
		if err != nil {
			return ComposeResult{}, err
		}
		page = p
	case ModeSafe:
		page = s.orch.ComposeSafe(ctx, req.Utterance, rc)
	default:
		return ComposeResult{}, fmt.Errorf("%w %q", ErrUnknownMode, mode)
	}

	return ComposeResult{Page: page, ArchiveKey: s.archivePage(ctx, rc.UserID, page)}, nil
}

// HandleEvent answers an interaction event and records it for the user.
// Recording is best effort.
func (s *Service) HandleEvent(ctx context.Context, userID string, ev genui.InteractionEvent) *genui.Acknowledgement {
	if s == nil || s.orch == nil {
		return nil
	}
	userID = strings.TrimSpace(userID)
	ack := s.orch.ProcessInteractionEvent(ev, genui.RequestContext{UserID: userID})
	if s.events != nil && userID != "" {
		rec := eventlog.Record{UserID: userID, Event: ev, Acknowledged: ack != nil, CreatedAt: time.Now().UTC()}
		if err := s.events.Append(ctx, rec); err != nil {
			s.log.Warn("failed to record interaction event", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return ack
}

// RecentActivity returns the newest recorded events for the user as opaque
// JSON records, newest first.
func (s *Service) RecentActivity(ctx context.Context, userID string) ([]json.RawMessage, error) {
	if s.events == nil || strings.TrimSpace(userID) == "" {
		return nil, nil
	}
	recs, err := s.events.Recent(ctx, userID, s.recentLimit)
	if err != nil {
		return nil, err
	}
	out := make([]json.RawMessage, 0, len(recs))
	for _, rec := range recs {
		raw, err := json.Marshal(activityOf(rec))
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

// ArchivedPage loads a previously archived page by key.
func (s *Service) ArchivedPage(ctx context.Context, key string) (genui.Page, error) {
	if s.archive == nil {
		return genui.Page{}, pagearchive.ErrNotFound
	}
	return s.archive.Get(ctx, key)
}

type activity struct {
	ComponentType string         `json:"componentType"`
	Action        string         `json:"action"`
	Data          map[string]any `json:"data,omitempty"`
	Timestamp     float64        `json:"timestamp,omitempty"`
	Acknowledged  bool           `json:"acknowledged"`
}

func activityOf(rec eventlog.Record) activity {
	return activity{
		ComponentType: rec.Event.ComponentType,
		Action:        rec.Event.Action,
		Data:          rec.Event.Data,
		Timestamp:     rec.Event.Timestamp,
		Acknowledged:  rec.Acknowledged,
	}
}

func (s *Service) withRecentActivity(ctx context.Context, rc genui.RequestContext) genui.RequestContext {
	if len(rc.RecentActivity) > 0 {
		return rc
	}
	recent, err := s.RecentActivity(ctx, rc.UserID)
	if err != nil {
		s.log.Warn("failed to load recent activity", zap.String("user_id", rc.UserID), zap.Error(err))
		return rc
	}
	rc.RecentActivity = recent
	return rc
}

func (s *Service) archivePage(ctx context.Context, userID string, page genui.Page) string {
	if s.archive == nil {
		return ""
	}
	key, err := s.archive.Put(ctx, userID, page)
	if err != nil {
		s.log.Warn("failed to archive page", zap.String("user_id", userID), zap.Error(err))
		return ""
	}
	return key
}
