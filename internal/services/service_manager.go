package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/highspring-tester/hat/internal/auth"
	"github.com/highspring-tester/hat/internal/events"
	"github.com/highspring-tester/hat/internal/mail"
	"github.com/highspring-tester/hat/internal/repositories"
	"github.com/highspring-tester/hat/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	// Exam settings
	ExposeAnswers bool
	Shuffle       ShuffleFunc

	// Notification settings
	ResultTopic string
	MailTimeout time.Duration

	DefaultTimeout time.Duration
}

// Dependencies are the collaborators shared by every service.
type Dependencies struct {
	Repo      repositories.Repository
	Issuer    *auth.Issuer
	Mailer    mail.Sender
	Publisher events.EventPublisher
	SSO       SSOVerifier
	Logger    *slog.Logger
	Validator *validator.Validator
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	deps   Dependencies
	config ServiceManagerConfig

	authService         AuthService
	examService         ExamService
	assembler           ExamAssembler
	questionBankService QuestionBankService
	importExportService ImportExportService
	enrollmentService   EnrollmentService
	notifier            ResultNotifier

	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

func NewServiceManager(deps Dependencies, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{deps: deps, config: config}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(deps Dependencies) ServiceManager {
	return NewServiceManager(deps, ServiceManagerConfig{
		ExposeAnswers:  true,
		ResultTopic:    "hat.candidate.results",
		MailTimeout:    10 * time.Second,
		DefaultTimeout: 30 * time.Second,
	})
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	if err := sm.checkDependencies(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	sm.deps.Logger.Info("Initializing service manager")
	sm.initializeServices()

	sm.initialized = true
	sm.deps.Logger.Info("Service manager initialized successfully")
	return nil
}

func (sm *serviceManager) checkDependencies() error {
	switch {
	case sm.deps.Repo == nil:
		return fmt.Errorf("repository is required")
	case sm.deps.Issuer == nil:
		return fmt.Errorf("token issuer is required")
	case sm.deps.Mailer == nil:
		return fmt.Errorf("mail sender is required")
	case sm.deps.Publisher == nil:
		return fmt.Errorf("event publisher is required")
	case sm.deps.Logger == nil:
		return fmt.Errorf("logger is required")
	case sm.deps.Validator == nil:
		return fmt.Errorf("validator is required")
	}
	return nil
}

func (sm *serviceManager) initializeServices() {
	d := sm.deps

	assemblerOpts := []AssemblerOption{WithExposeAnswers(sm.config.ExposeAnswers)}
	if sm.config.Shuffle != nil {
		assemblerOpts = append(assemblerOpts, WithShuffle(sm.config.Shuffle))
	}
	sm.assembler = NewExamAssembler(d.Repo.Question(), d.Logger.With("component", "assembler"), assemblerOpts...)

	sm.notifier = NewResultNotifier(d.Repo, d.Mailer, d.Publisher, sm.config.ResultTopic, sm.config.MailTimeout,
		d.Logger.With("component", "notifier"))

	sm.examService = NewExamService(d.Repo, d.Issuer, sm.assembler, sm.notifier,
		d.Logger.With("component", "exam"), d.Validator)
	sm.deps.Logger.Info("Exam service initialized", "expose_answers", sm.config.ExposeAnswers)

	sm.authService = NewAuthService(d.Repo, d.Issuer, sm.examService, d.SSO,
		d.Logger.With("component", "auth"), d.Validator)
	sm.deps.Logger.Info("Auth service initialized", "sso", d.SSO != nil)

	sm.questionBankService = NewQuestionBankService(d.Repo, d.Logger.With("component", "question_bank"), d.Validator)
	sm.importExportService = NewImportExportService(d.Repo, sm.questionBankService, d.Logger.With("component", "import_export"))
	sm.deps.Logger.Info("Question bank services initialized")

	sm.enrollmentService = NewEnrollmentService(d.Repo, sm.importExportService, d.Mailer, d.Publisher,
		sm.config.ResultTopic, sm.config.MailTimeout, d.Logger.With("component", "enrollment"), d.Validator)
	sm.deps.Logger.Info("Enrollment service initialized")
}

// Service getters
func (sm *serviceManager) Auth() AuthService {
	sm.mustBeInitialized()
	return sm.authService
}

func (sm *serviceManager) Exam() ExamService {
	sm.mustBeInitialized()
	return sm.examService
}

func (sm *serviceManager) Assembler() ExamAssembler {
	sm.mustBeInitialized()
	return sm.assembler
}

func (sm *serviceManager) QuestionBank() QuestionBankService {
	sm.mustBeInitialized()
	return sm.questionBankService
}

func (sm *serviceManager) ImportExport() ImportExportService {
	sm.mustBeInitialized()
	return sm.importExportService
}

func (sm *serviceManager) Enrollment() EnrollmentService {
	sm.mustBeInitialized()
	return sm.enrollmentService
}

func (sm *serviceManager) Notifier() ResultNotifier {
	sm.mustBeInitialized()
	return sm.notifier
}

func (sm *serviceManager) mustBeInitialized() {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if sm.config.DefaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, sm.config.DefaultTimeout)
		defer cancel()
	}
	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}
	return nil
}

// Shutdown closes the event publisher. Stores are owned by the repository manager.
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown || !sm.initialized {
		return nil
	}
	sm.shutdown = true

	sm.deps.Logger.Info("Shutting down service manager")
	if err := sm.deps.Publisher.Close(); err != nil {
		return fmt.Errorf("failed to close event publisher: %w", err)
	}
	return nil
}
