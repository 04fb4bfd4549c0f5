package usecase

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"

	"drobe-backend/internal/domain"
	"drobe-backend/internal/domain/model"
	"drobe-backend/internal/domain/ports/adapter"
	"drobe-backend/internal/domain/ports/repository"
)

// ---- In-memory repositories ----

type memSessionRepo struct {
	mu   sync.Mutex
	byID map[string]*model.ChatSession
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{byID: map[string]*model.ChatSession{}}
}

func (m *memSessionRepo) Save(_ context.Context, _ any, s *model.ChatSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.byID[s.ID] = &cp
	return nil
}

func (m *memSessionRepo) FindByID(_ context.Context, _ any, id string) (*model.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessionRepo) FindActiveByID(ctx context.Context, qx any, id string) (*model.ChatSession, error) {
	s, err := m.FindByID(ctx, qx, id)
	if err != nil {
		return nil, err
	}
	if !s.Active {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

func (m *memSessionRepo) ListActive(_ context.Context, _ any) ([]*model.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ChatSession
	for _, s := range m.byID {
		if s.Active {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memSessionRepo) Deactivate(_ context.Context, _ any, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Active = false
	s.UpdatedAt = time.Now()
	return nil
}

func (m *memSessionRepo) Touch(_ context.Context, _ any, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.UpdatedAt = time.Now()
	return nil
}

func (m *memSessionRepo) DeactivateIdle(_ context.Context, _ int) (int64, error) {
	return 0, nil
}

type memMessageRepo struct {
	mu         sync.Mutex
	bySession  map[string][]*model.ChatMessage
	appendErrs []error
}

func newMemMessageRepo() *memMessageRepo {
	return &memMessageRepo{bySession: map[string][]*model.ChatMessage{}}
}

func (m *memMessageRepo) Append(_ context.Context, _ any, msg *model.ChatMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.appendErrs) > 0 {
		err := m.appendErrs[0]
		m.appendErrs = m.appendErrs[1:]
		if err != nil {
			return "", err
		}
	}
	cp := *msg
	m.bySession[msg.SessionID] = append(m.bySession[msg.SessionID], &cp)
	return cp.ID, nil
}

func (m *memMessageRepo) ListBySession(_ context.Context, _ any, sessionID string, limit int) ([]*model.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.bySession[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	out := make([]*model.ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (m *memMessageRepo) ListTextBySession(_ context.Context, _ any, sessionID string) ([]*model.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ChatMessage
	for _, msg := range m.bySession[sessionID] {
		if msg.Text != "" {
			out = append(out, msg)
		}
	}
	return out, nil
}

type memCurriculumRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Curriculum
}

func newMemCurriculumRepo() *memCurriculumRepo {
	return &memCurriculumRepo{byID: map[string]*model.Curriculum{}}
}

func (m *memCurriculumRepo) Save(_ context.Context, _ any, c *model.Curriculum) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *memCurriculumRepo) FindByID(_ context.Context, _ any, id string) (*model.Curriculum, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok || !c.Active {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCurriculumRepo) List(_ context.Context, _ any, f repository.CurriculumFilter) ([]*model.Curriculum, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Curriculum
	for _, c := range m.byID {
		if !c.Active {
			continue
		}
		if f.Country != "" && c.Country != f.Country {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (m *memCurriculumRepo) Countries(_ context.Context, _ any) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, c := range m.byID {
		if c.Active && !seen[c.Country] {
			seen[c.Country] = true
			out = append(out, c.Country)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memCurriculumRepo) Deactivate(_ context.Context, _ any, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.Active = false
	return nil
}

type memLabelRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Label
}

func newMemLabelRepo() *memLabelRepo {
	return &memLabelRepo{byID: map[string]*model.Label{}}
}

func (m *memLabelRepo) Save(_ context.Context, _ any, l *model.Label) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *l
	m.byID[l.ID] = &cp
	return nil
}

func (m *memLabelRepo) FindByID(_ context.Context, _ any, id string) (*model.Label, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *memLabelRepo) ListByCurriculum(_ context.Context, _ any, curriculumID string) ([]*model.Label, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Label
	for _, l := range m.byID {
		if l.CurriculumID == curriculumID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}

func (m *memLabelRepo) Delete(_ context.Context, _ any, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type memTopicRepo struct {
	mu     sync.Mutex
	byID   map[string]*model.Topic
	labels *memLabelRepo
}

func newMemTopicRepo(labels *memLabelRepo) *memTopicRepo {
	return &memTopicRepo{byID: map[string]*model.Topic{}, labels: labels}
}

func (m *memTopicRepo) Save(_ context.Context, _ any, t *model.Topic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.byID[t.ID] = &cp
	return nil
}

func (m *memTopicRepo) FindByID(_ context.Context, _ any, id string) (*model.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[id]
	if !ok || !t.Active {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTopicRepo) ListByLabel(_ context.Context, _ any, labelID string) ([]*model.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Topic
	for _, t := range m.byID {
		if t.LabelID == labelID && t.Active {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}

func (m *memTopicRepo) ListByCurriculum(ctx context.Context, qx any, curriculumID string) ([]*model.Topic, error) {
	labels, err := m.labels.ListByCurriculum(ctx, qx, curriculumID)
	if err != nil {
		return nil, err
	}
	var out []*model.Topic
	for _, l := range labels {
		topics, err := m.ListByLabel(ctx, qx, l.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, topics...)
	}
	return out, nil
}

func (m *memTopicRepo) Deactivate(_ context.Context, _ any, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.Active = false
	return nil
}

// fakeTxm runs the function directly; the in-memory repos ignore qx.
type fakeTxm struct{}

func (fakeTxm) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}

// ---- Media and live fakes ----

type memMediaStore struct {
	mu   sync.Mutex
	objs map[string][]byte
}

func newMemMediaStore() *memMediaStore {
	return &memMediaStore{objs: map[string][]byte{}}
}

func (m *memMediaStore) Put(_ context.Context, key, _ string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objs[key] = buf.Bytes()
	return m.URL(key), nil
}

func (m *memMediaStore) URL(key string) string { return "http://media.test/" + key }

type scriptedConn struct {
	mu       sync.Mutex
	sent     []adapter.Turn
	complete bool
	replies  []*adapter.LiveMessage
	recvErr  error
	closed   int
}

func (c *scriptedConn) SendTurns(_ context.Context, turns []adapter.Turn, turnComplete bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, turns...)
	c.complete = turnComplete
	return nil
}

func (c *scriptedConn) SendRealtimeAudio(_ context.Context, _ []byte) error { return nil }

func (c *scriptedConn) Receive(ctx context.Context) (*adapter.LiveMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.replies) == 0 {
		if c.recvErr != nil {
			return nil, c.recvErr
		}
		return nil, io.EOF
	}
	msg := c.replies[0]
	c.replies = c.replies[1:]
	return msg, nil
}

func (c *scriptedConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

type scriptedDialer struct {
	conn    *scriptedConn
	gotCfg  *adapter.LiveConnectConfig
	dialErr error
}

func (d *scriptedDialer) Connect(_ context.Context, _ string, cfg *adapter.LiveConnectConfig) (adapter.LiveConn, error) {
	d.gotCfg = cfg
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	return d.conn, nil
}
