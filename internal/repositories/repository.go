package repositories

import "context"

// Repository aggregates every store the service uses.
type Repository interface {
	Candidate() CandidateRepository
	Question() QuestionRepository
	Sequence() SequenceRepository
	User() UserRepository
	Notification() NotificationRepository

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
