package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/highspring-tester/hat/internal/auth"
	"github.com/highspring-tester/hat/internal/events"
	"github.com/highspring-tester/hat/internal/models"
	"github.com/highspring-tester/hat/internal/repositories"
	"github.com/highspring-tester/hat/internal/validator"
)

// memRepo is an in-memory repositories.Repository. CloseAttempt and Sequence.Next
// are atomic under the mutex, like their database counterparts.
type memRepo struct {
	mu            sync.Mutex
	nextID        uint
	candidates    map[uint]*models.Candidate
	questions     map[string]*models.Question
	sequences     map[string]int64
	users         map[string]*models.User
	notifications map[uint]*models.NotificationFailure
}

func newMemRepo() *memRepo {
	return &memRepo{
		candidates:    map[uint]*models.Candidate{},
		questions:     map[string]*models.Question{},
		sequences:     map[string]int64{},
		users:         map[string]*models.User{},
		notifications: map[uint]*models.NotificationFailure{},
	}
}

func (r *memRepo) Candidate() repositories.CandidateRepository       { return memCandidates{r} }
func (r *memRepo) Question() repositories.QuestionRepository         { return memQuestions{r} }
func (r *memRepo) Sequence() repositories.SequenceRepository         { return memSequences{r} }
func (r *memRepo) User() repositories.UserRepository                 { return memUsers{r} }
func (r *memRepo) Notification() repositories.NotificationRepository { return memNotifications{r} }
func (r *memRepo) Ping(ctx context.Context) error                    { return nil }
func (r *memRepo) Close() error                                      { return nil }

func (r *memRepo) id() uint {
	r.nextID++
	return r.nextID
}

// ----- candidates -----

type memCandidates struct{ r *memRepo }

func (m memCandidates) Create(ctx context.Context, c *models.Candidate) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, existing := range m.r.candidates {
		if existing.Email == c.Email || existing.Username == c.Username {
			return repositories.ErrDuplicateKey
		}
	}
	c.ID = m.r.id()
	cp := *c
	m.r.candidates[c.ID] = &cp
	return nil
}

func (m memCandidates) GetByID(ctx context.Context, id uint) (*models.Candidate, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	c, ok := m.r.candidates[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m memCandidates) GetByUsername(ctx context.Context, username string) (*models.Candidate, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, c := range m.r.candidates {
		if c.Username == username {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m memCandidates) List(ctx context.Context, f repositories.CandidateFilters) ([]*models.Candidate, int64, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []*models.Candidate
	for _, c := range m.r.candidates {
		if f.Program != "" && c.Program != f.Program {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (m memCandidates) CloseAttempt(ctx context.Context, id uint, v models.Verdict) error {
	if v.Result == "" {
		return repositories.ErrEmptyVerdict
	}
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	c, ok := m.r.candidates[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if c.Result != "" {
		return repositories.ErrAttemptClosed
	}
	completed := v.CompletedAt
	c.Status, c.Result, c.Score, c.VideoLink, c.CompletedAt = v.Status, v.Result, v.Score, v.VideoLink, &completed
	return nil
}

// ----- questions -----

type memQuestions struct{ r *memRepo }

func (m memQuestions) Create(ctx context.Context, q *models.Question) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if _, ok := m.r.questions[q.QuestionID]; ok {
		return repositories.ErrDuplicateKey
	}
	q.ID = m.r.id()
	cp := *q
	m.r.questions[q.QuestionID] = &cp
	return nil
}

func (m memQuestions) GetByQuestionID(ctx context.Context, id string) (*models.Question, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	q, ok := m.r.questions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (m memQuestions) Update(ctx context.Context, q *models.Question) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if _, ok := m.r.questions[q.QuestionID]; !ok {
		return repositories.ErrNotFound
	}
	cp := *q
	m.r.questions[q.QuestionID] = &cp
	return nil
}

func (m memQuestions) Delete(ctx context.Context, id string) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if _, ok := m.r.questions[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(m.r.questions, id)
	return nil
}

func (m memQuestions) ListByBank(ctx context.Context, bank string) ([]*models.Question, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []*models.Question
	for _, q := range m.r.questions {
		if q.Bank == bank {
			cp := *q
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out, nil
}

func (m memQuestions) CountByBank(ctx context.Context, bank string) (int64, error) {
	qs, _ := m.ListByBank(ctx, bank)
	return int64(len(qs)), nil
}

func (m memQuestions) CountByDifficulty(ctx context.Context, bank string) (map[models.DifficultyTier]int, error) {
	qs, _ := m.ListByBank(ctx, bank)
	out := map[models.DifficultyTier]int{}
	for _, q := range qs {
		out[q.Difficulty]++
	}
	return out, nil
}

// ----- sequences -----

type memSequences struct{ r *memRepo }

func (m memSequences) seedLocked(bank string) int64 {
	var ids []string
	for _, q := range m.r.questions {
		if q.Bank == bank {
			ids = append(ids, q.QuestionID)
		}
	}
	return repositories.SequenceSeed(ids)
}

func (m memSequences) Next(ctx context.Context, bank string) (int64, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	v, ok := m.r.sequences[bank]
	if !ok {
		v = m.seedLocked(bank)
	}
	v++
	m.r.sequences[bank] = v
	return v, nil
}

func (m memSequences) Current(ctx context.Context, bank string) (int64, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if v, ok := m.r.sequences[bank]; ok {
		return v, nil
	}
	return m.seedLocked(bank), nil
}

// ----- users -----

type memUsers struct{ r *memRepo }

func (m memUsers) Create(ctx context.Context, u *models.User) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, existing := range m.r.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return repositories.ErrDuplicateKey
		}
	}
	u.ID = m.r.id()
	cp := *u
	m.r.users[u.Username] = &cp
	return nil
}

func (m memUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	u, ok := m.r.users[username]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, u := range m.r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

// ----- notifications -----

type memNotifications struct{ r *memRepo }

func (m memNotifications) RecordFailure(ctx context.Context, f *models.NotificationFailure) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	f.ID = m.r.id()
	cp := *f
	m.r.notifications[f.ID] = &cp
	return nil
}

func (m memNotifications) ListPending(ctx context.Context, maxAttempts, limit int) ([]*models.NotificationFailure, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []*models.NotificationFailure
	for _, n := range m.r.notifications {
		if !n.Delivered && n.Attempts < maxAttempts {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m memNotifications) MarkDelivered(ctx context.Context, id uint) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	n, ok := m.r.notifications[id]
	if !ok {
		return repositories.ErrNotFound
	}
	now := time.Now()
	n.Delivered, n.DeliveredAt = true, &now
	return nil
}

func (m memNotifications) MarkAttempt(ctx context.Context, id uint, lastErr string) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	n, ok := m.r.notifications[id]
	if !ok {
		return repositories.ErrNotFound
	}
	n.Attempts++
	n.LastError = lastErr
	return nil
}

// ----- collaborators -----

type sentMail struct {
	To, Subject, HTML string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, to, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, HTML: html})
	return nil
}

func (m *recordingMailer) setErr(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *recordingMailer) Sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

// testEnv wires every service against the in-memory store.
type testEnv struct {
	repo      *memRepo
	issuer    *auth.Issuer
	mailer    *recordingMailer
	publisher *events.MockEventPublisher
	manager   ServiceManager
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := testLogger()
	env := &testEnv{
		repo:      newMemRepo(),
		issuer:    auth.NewIssuer("test-secret-test-secret-test-secret", "hat-test", auth.TokenTTLs{Admin: 8 * time.Hour, Exam: 3 * time.Hour}),
		mailer:    &recordingMailer{},
		publisher: events.NewMockEventPublisher(logger),
	}
	env.manager = NewDefaultServiceManager(Dependencies{
		Repo:      env.repo,
		Issuer:    env.issuer,
		Mailer:    env.mailer,
		Publisher: env.publisher,
		Logger:    logger,
		Validator: validator.New(),
	})
	if err := env.manager.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return env
}

func (e *testEnv) addQuestions(t *testing.T, bank string, tier models.DifficultyTier, n int) {
	t.Helper()
	prefix, err := QuestionPrefix(bank)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		seq, _ := e.repo.Sequence().Next(context.Background(), bank)
		q := &models.Question{
			QuestionID: FormatQuestionID(prefix, seq),
			Bank:       bank,
			Question:   "q " + string(tier),
			Difficulty: tier,
			Options:    "a, b, c",
			Answer:     "a",
		}
		if err := e.repo.Question().Create(context.Background(), q); err != nil {
			t.Fatal(err)
		}
	}
}

func (e *testEnv) addCandidate(t *testing.T, email, password, program, project string) *models.Candidate {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatal(err)
	}
	c := &models.Candidate{
		Name:           "Test Candidate",
		Email:          email,
		Username:       email,
		Password:       hash,
		RecruiterName:  "Rita Recruiter",
		RecruiterEmail: "rita@hat.local",
		Program:        program,
		Project:        project,
		Status:         models.StatusMailSent,
	}
	if err := e.repo.Candidate().Create(context.Background(), c); err != nil {
		t.Fatal(err)
	}
	return c
}

func examClaims(c *models.Candidate) *auth.Claims {
	return &auth.Claims{
		Scope:       models.ScopeTestTaker,
		CandidateID: c.ID,
		Bank:        BankName(c.Program, c.Project),
	}
}
