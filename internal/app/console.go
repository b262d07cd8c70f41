package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/samvad-hq/analytics-console/internal/config"
	"github.com/samvad-hq/analytics-console/internal/logger"
	"github.com/samvad-hq/analytics-console/internal/storage"
	"github.com/samvad-hq/analytics-console/pkg/api"
	"github.com/samvad-hq/analytics-console/pkg/publishers"
)

// ErrUnhealthy is returned by Health when the backend answers but is not healthy.
var ErrUnhealthy = errors.New("backend reported unhealthy status")

// ErrNoSession is returned when a session operation has no id to act on.
var ErrNoSession = errors.New("no session id given and no current session remembered")

// Backend is the subset of api.Client the console drives.
type Backend interface {
	SendMessage(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error)
	HealthCheck(ctx context.Context) (*api.HealthResponse, error)
	DeleteSession(ctx context.Context, sessionID string) error
	GetAgents(ctx context.Context) (*api.AgentListResponse, error)
}

// TranscriptPublisher fans completed chat turns out to downstream sinks.
type TranscriptPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
	Size() int
	Close() error
}

// defaultPublishTimeout bounds transcript delivery after a reply is rendered.
const defaultPublishTimeout = 5 * time.Second

// Console runs one operator command against the analytics backend: it calls
// the API, keeps the local session memory in step, and renders the result.
// The session store is opened on first use, so commands that never touch
// sessions do not depend on it.
type Console struct {
	backend        Backend
	backendURL     string
	store          storage.Store
	openStore      func() (storage.Store, error)
	publisher      TranscriptPublisher
	publishTimeout time.Duration
	renderer       *Renderer
	log            logger.Logger
}

// ChatOptions selects which session a chat turn belongs to.
type ChatOptions struct {
	Message   string
	SessionID string
	// NewSession ignores any remembered session.
	NewSession bool
}

// NewConsole builds a console runtime from config.
func NewConsole(cfg *config.Config, log logger.Logger, out io.Writer) (*Console, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}

	c := newConsole(api.New(cfg.APIURL), nil, NewRenderer(cfg.OutputFormat, out), log)
	c.backendURL = cfg.APIURL
	c.openStore = func() (storage.Store, error) {
		return storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
			SessionTTL:      cfg.SessionTTL,
			CleanupInterval: cfg.StorageCleanupInterval,
		})
	}

	if cfg.PublishersFile != "" {
		fanout, err := buildPublishers(context.Background(), cfg.PublishersFile, c.log)
		if err != nil {
			return nil, err
		}
		c.publisher = fanout
	}

	c.log.DebugObj("console initialized", "console_config", map[string]any{
		"api_url":          cfg.APIURL,
		"storage_type":     cfg.StorageType,
		"bbolt_path":       cfg.BBoltPath,
		"output":           cfg.OutputFormat,
		"publishers_count": c.publisherCount(),
	})
	return c, nil
}

func buildPublishers(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	reg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := reg.Enabled()
	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{"id": pubCfg.ID, "type": pubCfg.Type})
	}
	log.DebugObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubs), nil
}

func newConsole(backend Backend, store storage.Store, renderer *Renderer, log logger.Logger) *Console {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Console{
		backend:        backend,
		store:          store,
		publishTimeout: defaultPublishTimeout,
		renderer:       renderer,
		log:            log,
	}
}

// sessions returns the session store, opening it on first use.
func (c *Console) sessions() (storage.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	if c.openStore == nil {
		c.store, _ = storage.NewStore("none", "", storage.Options{})
		return c.store, nil
	}
	store, err := c.openStore()
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	c.store = store
	return store, nil
}

// chatSessions is sessions for chat turns: without a store the chat still
// runs, it just is not remembered.
func (c *Console) chatSessions() storage.Store {
	store, err := c.sessions()
	if err != nil {
		c.log.WarnObj("session memory unavailable", "error", err.Error())
		store, _ = storage.NewStore("none", "", storage.Options{})
	}
	return store
}

// Chat sends one message, continuing the remembered session unless told otherwise.
func (c *Console) Chat(ctx context.Context, opts ChatOptions) error {
	msg := strings.TrimSpace(opts.Message)
	if msg == "" {
		return fmt.Errorf("message must not be empty")
	}

	store := c.chatSessions()
	sessionID := strings.TrimSpace(opts.SessionID)
	if sessionID == "" && !opts.NewSession {
		id, ok, err := store.Current()
		if err != nil {
			c.log.WarnObj("session lookup failed", "error", err.Error())
		} else if ok {
			sessionID = id
		}
	}

	start := time.Now()
	req := &api.ChatRequest{Message: msg, SessionID: sessionID}
	resp, err := c.backend.SendMessage(ctx, req)
	if err != nil {
		c.logFailure("chat", err)
		return fmt.Errorf("send message: %w", err)
	}
	c.log.InfoObj("chat completed", "chat_meta", map[string]any{
		"session_id": resp.SessionID,
		"continued":  sessionID != "",
		"has_chart":  resp.HasChart(),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})

	if resp.SessionID != "" {
		if err := store.Remember(resp.SessionID); err != nil {
			c.log.WarnObj("remember session failed", "error", err.Error())
		}
	}
	if err := c.renderer.Chat(resp); err != nil {
		return err
	}
	c.publishTranscript(ctx, req, resp)
	return nil
}

// publishTranscript runs after the reply is rendered and is bounded by
// publishTimeout. It never fails the chat; sink errors are logged.
func (c *Console) publishTranscript(ctx context.Context, req *api.ChatRequest, resp *api.ChatResponse) {
	if c.publisher == nil || c.publisher.Size() == 0 {
		return
	}
	timeout := c.publishTimeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	evt := publishers.NewEvent(c.backendURL, req, resp)
	delivered, err := c.publisher.Publish(ctx, evt)
	if err != nil {
		c.log.WarnObj("transcript publish failed", "publish_error", map[string]any{
			"session_id": evt.SessionID,
			"delivered":  delivered,
			"error":      err.Error(),
		})
		return
	}
	c.log.DebugObj("transcript published", "publish_meta", map[string]any{
		"session_id": evt.SessionID,
		"delivered":  delivered,
	})
}

func (c *Console) publisherCount() int {
	if c.publisher == nil {
		return 0
	}
	return c.publisher.Size()
}

// Health renders the backend health and fails with ErrUnhealthy when degraded.
func (c *Console) Health(ctx context.Context) error {
	resp, err := c.backend.HealthCheck(ctx)
	if err != nil {
		c.logFailure("health", err)
		return fmt.Errorf("health check: %w", err)
	}
	if err := c.renderer.Health(resp); err != nil {
		return err
	}
	if !resp.Healthy() {
		c.log.WarnObj("backend unhealthy", "health", resp)
		return ErrUnhealthy
	}
	return nil
}

// Agents renders the agents registered with the backend.
func (c *Console) Agents(ctx context.Context) error {
	resp, err := c.backend.GetAgents(ctx)
	if err != nil {
		c.logFailure("agents", err)
		return fmt.Errorf("get agents: %w", err)
	}
	if resp.TotalCount != len(resp.Agents) {
		c.log.WarnObj("agent count mismatch", "agents_meta", map[string]any{
			"total_count": resp.TotalCount,
			"listed":      len(resp.Agents),
		})
	}
	return c.renderer.Agents(resp)
}

// DeleteSession deletes id on the backend, or the remembered session when id
// is empty, and forgets it locally.
func (c *Console) DeleteSession(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	store, storeErr := c.sessions()
	if id == "" {
		if storeErr != nil {
			return storeErr
		}
		cur, ok, err := store.Current()
		if err != nil {
			return fmt.Errorf("lookup current session: %w", err)
		}
		if !ok {
			return ErrNoSession
		}
		id = cur
	}

	if err := c.backend.DeleteSession(ctx, id); err != nil {
		c.logFailure("delete session", err)
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if storeErr != nil {
		c.log.WarnObj("forget session skipped", "error", storeErr.Error())
	} else if err := store.Forget(id); err != nil {
		c.log.WarnObj("forget session failed", "error", err.Error())
	}
	c.log.InfoObj("session deleted", "session_id", id)
	return c.renderer.SessionDeleted(id)
}

// CurrentSession renders the remembered session, if any.
func (c *Console) CurrentSession() error {
	store, err := c.sessions()
	if err != nil {
		return err
	}
	id, ok, err := store.Current()
	if err != nil {
		return fmt.Errorf("lookup current session: %w", err)
	}
	return c.renderer.CurrentSession(id, ok)
}

// Close releases the session store and any publisher connections.
func (c *Console) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publishers: %w", err))
		}
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (c *Console) logFailure(op string, err error) {
	fields := map[string]any{"op": op, "error": err.Error()}
	var te *api.TransportError
	if errors.As(err, &te) {
		fields["kind"] = string(te.Kind)
		fields["method"] = te.Method
		fields["path"] = te.Path
		if te.StatusCode != 0 {
			fields["status"] = te.StatusCode
		}
	}
	c.log.WarnObj("backend request failed", "request_error", fields)
}
