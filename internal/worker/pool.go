package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"studybuddy-backend/internal/logger"
	"studybuddy-backend/internal/models"
	"studybuddy-backend/internal/repository"
	"studybuddy-backend/internal/services"
	"studybuddy-backend/internal/storage"
)

const (
	QueueStudyMaterials = "queue:study-materials"

	lockTTL        = 10 * time.Minute
	popTimeout     = 30 * time.Second
	maxDocumentLen = 64 << 20
)

// ErrSuperseded marks a result dropped because the user started a newer
// generation while this one was running.
var ErrSuperseded = errors.New("superseded by a newer request")

type jobStatusStore interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateError(ctx context.Context, id uuid.UUID, errMsg string) error
}

type documentGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
}

type textExtractor interface {
	Extract(data []byte) (string, error)
}

type materialsGenerator interface {
	Generate(ctx context.Context, conv services.Conversation, text string, progress services.ProgressFunc) (*models.StudyMaterials, error)
	GenerateFromSummary(ctx context.Context, conv services.Conversation, summary string, progress services.ProgressFunc) (*models.StudyMaterials, error)
}

type conversationFactory interface {
	NewConversation() services.Conversation
}

type materialsSaver interface {
	Save(ctx context.Context, jobID uuid.UUID, m *models.StudyMaterials) error
}

type sequenceReader interface {
	Latest(ctx context.Context, userID uuid.UUID) (int64, error)
}

type updatePublisher interface {
	PublishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage)
}

// Deps are the collaborators a worker needs to turn a queued job into
// stored study materials.
type Deps struct {
	Jobs          jobStatusStore
	Documents     documentGetter
	Store         storage.DocumentStore
	Extractor     textExtractor
	Pipeline      materialsGenerator
	Conversations conversationFactory
	Materials     materialsSaver
	Sequence      sequenceReader
	Publisher     updatePublisher
}

type Pool struct {
	redis       *redis.Client
	deps        Deps
	log         *logger.Logger
	workerCount int
	stopChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func NewPool(redisClient *redis.Client, deps Deps, log *logger.Logger, workerCount int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{
		redis:       redisClient,
		deps:        deps,
		log:         log.With("component", "worker"),
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.log.Info("started worker goroutines", "count", p.workerCount)
}

// Stop signals the workers and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.stopChan) })
	p.wg.Wait()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	log := p.log.With("worker", id)

	for {
		select {
		case <-p.stopChan:
			log.Info("worker shutting down")
			return
		default:
		}

		ctx := context.Background()

		result, err := p.redis.BLPop(ctx, popTimeout, QueueStudyMaterials).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				log.Warn("queue pop failed", "error", err)
				time.Sleep(time.Second)
			}
			continue
		}
		if len(result) < 2 {
			continue
		}

		var job models.Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Error("failed to parse job", "error", err)
			continue
		}

		lockKey := fmt.Sprintf("job_lock:%s", job.ID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", lockTTL).Result()
		if err != nil || !locked {
			continue
		}

		log.Info("processing job", "job_id", job.ID, "type", job.Type)
		p.Process(ctx, &job)

		p.redis.Del(ctx, lockKey)
	}
}

// Process runs one job to a terminal state. Failures are not retried.
func (p *Pool) Process(ctx context.Context, job *models.Job) {
	p.deps.Jobs.UpdateStatus(ctx, job.ID, models.JobStatusProcessing)

	var err error
	switch job.Type {
	case models.JobTypeStudyMaterials:
		err = p.processStudyMaterials(ctx, job)
	default:
		err = fmt.Errorf("unknown job type: %s", job.Type)
	}

	if err != nil {
		p.handleFailure(ctx, job, err)
		return
	}
	p.handleSuccess(ctx, job)
}

func (p *Pool) processStudyMaterials(ctx context.Context, job *models.Job) error {
	cfg, err := repository.JobConfig(job)
	if err != nil {
		return fmt.Errorf("invalid job config: %w", err)
	}

	progress := func(step int, name string) {
		p.deps.Publisher.PublishUpdate(ctx, job.UserID, models.WSMessage{
			Type: "status_update",
			Payload: models.StatusUpdate{
				JobID:                     job.ID,
				Step:                      step,
				StepName:                  name,
				EstimatedSecondsRemaining: (4 - step) * 10,
			},
		})
	}

	conv := p.deps.Conversations.NewConversation()

	var materials *models.StudyMaterials
	if cfg.Summary != "" {
		materials, err = p.deps.Pipeline.GenerateFromSummary(ctx, conv, cfg.Summary, progress)
	} else {
		if cfg.DocumentID == nil {
			return fmt.Errorf("job has neither a document nor a summary")
		}
		var text string
		text, err = p.loadDocumentText(ctx, job.UserID, *cfg.DocumentID)
		if err != nil {
			return err
		}
		materials, err = p.deps.Pipeline.Generate(ctx, conv, text, progress)
	}
	if err != nil {
		return err
	}

	latest, err := p.deps.Sequence.Latest(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("failed to read generation sequence: %w", err)
	}
	if job.Sequence != latest {
		return ErrSuperseded
	}

	if err := p.deps.Materials.Save(ctx, job.ID, materials); err != nil {
		return fmt.Errorf("failed to store materials: %w", err)
	}
	return nil
}

func (p *Pool) loadDocumentText(ctx context.Context, userID, documentID uuid.UUID) (string, error) {
	doc, err := p.deps.Documents.GetByID(ctx, documentID)
	if err != nil {
		return "", fmt.Errorf("failed to load document: %w", err)
	}
	if doc.OwnerID != userID {
		return "", fmt.Errorf("document %s does not belong to user %s", documentID, userID)
	}

	rc, err := p.deps.Store.Open(ctx, doc.StorageKey)
	if err != nil {
		return "", fmt.Errorf("failed to open document: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxDocumentLen))
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}
	return p.deps.Extractor.Extract(data)
}

func (p *Pool) handleSuccess(ctx context.Context, job *models.Job) {
	p.deps.Jobs.UpdateStatus(ctx, job.ID, models.JobStatusCompleted)

	p.deps.Publisher.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "completed",
		Payload: models.CompletedEvent{
			JobID:      job.ID,
			ResultID:   job.ID,
			ResultType: "study_materials",
		},
	})

	p.log.Info("job completed", "job_id", job.ID)
}

func (p *Pool) handleFailure(ctx context.Context, job *models.Job, err error) {
	code, message := failureDetails(err)

	if errors.Is(err, ErrSuperseded) {
		p.log.Info("dropping stale result", "job_id", job.ID, "sequence", job.Sequence)
	} else {
		p.log.Error("job failed", "job_id", job.ID, "error", err)
	}

	p.deps.Jobs.UpdateStatus(ctx, job.ID, models.JobStatusFailed)
	p.deps.Jobs.UpdateError(ctx, job.ID, message)

	p.deps.Publisher.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "error",
		Payload: models.ErrorEvent{
			JobID:        job.ID,
			ErrorCode:    code,
			ErrorMessage: message,
		},
	})
}

// failureDetails maps a pipeline error to the code and message shown to
// the user.
func failureDetails(err error) (code, message string) {
	switch {
	case errors.Is(err, ErrSuperseded):
		return "SUPERSEDED", "superseded"
	case errors.Is(err, services.ErrUnsupportedFormat):
		return "UNSUPPORTED_FORMAT", "Only PDF documents are supported"
	case errors.Is(err, services.ErrNoTextExtracted):
		return "NO_TEXT_EXTRACTED", "No text could be extracted from this document"
	case errors.Is(err, services.ErrGenerationFailed):
		return "GENERATION_FAILED", services.ErrGenerationFailed.Error()
	default:
		return "JOB_FAILED", services.ErrGenerationFailed.Error()
	}
}
