// Package session ties one loaded dataset to its pilot, chat history, and
// produced charts. A session is the unit of interaction: the HTTP API and
// the CLI both drive datasets through sessions. All mutation goes through
// one mutex, so a chat message and an autopilot run never interleave.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/data-autopilot/internal/autocorrect"
	"github.com/jonathan/data-autopilot/internal/autopilot"
	"github.com/jonathan/data-autopilot/internal/dataset"
	"github.com/jonathan/data-autopilot/internal/detect"
	"github.com/jonathan/data-autopilot/internal/llm"
	"github.com/jonathan/data-autopilot/internal/prompts"
	"github.com/jonathan/data-autopilot/internal/sandbox"
	"github.com/jonathan/data-autopilot/internal/types"
)

// Role identifies a chat message author.
type Role string

// Chat roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn. Assistant turns may carry charts and, when the
// request could not be fulfilled, the terminal fault.
type Message struct {
	Role    Role              `json:"role"`
	Content string            `json:"content"`
	Charts  []types.ChartSpec `json:"charts,omitempty"`
	Fault   *types.Fault      `json:"fault,omitempty"`
	At      time.Time         `json:"at"`
}

// Session is one dataset under interactive control.
type Session struct {
	mu sync.Mutex

	id       uuid.UUID
	source   string
	created  time.Time
	ds       *dataset.Dataset
	client   llm.Client
	det      *detect.Detector
	loop     *autocorrect.Loop
	pilot    *autopilot.Pilot
	executor *sandbox.Executor

	history []Message
	charts  []types.ChartSpec
}

// Option configures a session.
type Option func(*sessionConfig)

type sessionConfig struct {
	pilot autopilot.Options
}

// WithPilotOptions overrides the autopilot run policy for this session. The
// attempt bound also applies to the chat correction loop.
func WithPilotOptions(opts autopilot.Options) Option {
	return func(c *sessionConfig) { c.pilot = opts }
}

// New creates a session over a loaded dataset. The client may be nil; chat
// then rejects requests but the autopilot's deterministic phases still run.
func New(source string, ds *dataset.Dataset, client llm.Client, executor *sandbox.Executor, opts ...Option) *Session {
	if executor == nil {
		executor = sandbox.New(sandbox.Limits{})
	}
	cfg := sessionConfig{pilot: autopilot.DefaultOptions()}
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Session{
		id:       uuid.New(),
		source:   source,
		created:  time.Now().UTC(),
		ds:       ds,
		client:   client,
		det:      detect.New(detect.DefaultConfig()),
		executor: executor,
		pilot:    autopilot.New(ds, client, executor, cfg.pilot),
	}
	if client != nil {
		s.loop = autocorrect.New(client, executor, autocorrect.WithMaxAttempts(cfg.pilot.MaxAttempts))
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// Source returns the name of the loaded data source.
func (s *Session) Source() string { return s.source }

// CreatedAt returns the session creation time.
func (s *Session) CreatedAt() time.Time { return s.created }

// Dataset returns the live dataset. Callers must not mutate it directly.
func (s *Session) Dataset() *dataset.Dataset { return s.ds }

// Summary renders the current dataset profile for display.
func (s *Session) Summary(maxRows int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ds.Summary(maxRows)
}

// History returns the chat transcript so far.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.history...)
}

// Charts returns every chart produced in this session, oldest first.
func (s *Session) Charts() []types.ChartSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.ChartSpec(nil), s.charts...)
}

// Report returns the autopilot run report accumulated so far.
func (s *Session) Report() *types.RunReport { return s.pilot.Report() }

// RunAutopilot executes the pipeline (or resumes it after an abort) and
// collects the dashboard charts into the session gallery.
func (s *Session) RunAutopilot(ctx context.Context) (*types.RunReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.pilot.Run(ctx)
	if err != nil {
		return report, err
	}
	if dash, ok := report.Phases[types.PhaseDashboard]; ok {
		s.charts = append(s.charts, dash.Charts...)
	}
	return report, nil
}

// Chat turns a free-form request into a program, executes it through the
// correction loop, and re-profiles the dataset when it changed.
func (s *Session) Chat(ctx context.Context, request string) (*Message, error) {
	request = strings.TrimSpace(request)
	if request == "" {
		return nil, types.NewFault(types.FaultProvider, "empty request")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, Message{Role: RoleUser, Content: request, At: time.Now().UTC()})

	if s.loop == nil {
		reply := s.appendAssistant("No model is configured; chat is unavailable.",
			nil, types.NewFault(types.FaultProvider, "no model configured"))
		return reply, nil
	}

	result := s.loop.Run(ctx, s.ds, prompts.Chat(s.ds.Summary(5), request))
	if !result.Success {
		reply := s.appendAssistant(
			"I could not complete that request: "+result.Fault.Message, nil, result.Fault)
		return reply, nil
	}

	// The program may have reshaped columns; refresh the profiles.
	if _, err := s.det.ProfileDataset(ctx, s.ds); err == nil {
		if report := s.pilot.Report(); report != nil {
			profiles := make(map[string]types.ColumnProfile)
			for _, col := range s.ds.Columns() {
				if col.Profile != nil {
					profiles[col.Name] = *col.Profile
				}
			}
			report.Profiles = profiles
		}
	}

	s.charts = append(s.charts, result.Artifacts...)
	content := strings.Join(result.Output, "\n")
	if content == "" {
		content = "Done."
	}
	return s.appendAssistant(content, result.Artifacts, nil), nil
}

func (s *Session) appendAssistant(content string, charts []types.ChartSpec, fault *types.Fault) *Message {
	msg := Message{
		Role:    RoleAssistant,
		Content: content,
		Charts:  charts,
		Fault:   fault,
		At:      time.Now().UTC(),
	}
	s.history = append(s.history, msg)
	return &s.history[len(s.history)-1]
}

// Revert undoes every autopilot transformation, restoring the loaded cells.
func (s *Session) Revert() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pilot.Revert()
}
