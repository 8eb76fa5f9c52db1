package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"reelgen-backend/internal/models"
	"reelgen-backend/internal/repository"
	"reelgen-backend/internal/services"
)

const (
	QueueAudioSynthesis  = "queue:audio-synthesis"
	QueueVideoGeneration = "queue:video-generation"
)

// Job is the queue envelope pointing at an audio or video task record.
type Job struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"type"`
	ReferenceID uuid.UUID `json:"reference_id"`
}

// Enqueue pushes a job for a task record onto its queue. jobType matches the
// queue suffix ("audio-synthesis" or "video-generation").
func Enqueue(ctx context.Context, client *redis.Client, jobType string, referenceID uuid.UUID) error {
	job := Job{
		ID:          uuid.New(),
		Type:        jobType,
		ReferenceID: referenceID,
	}
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return client.LPush(ctx, "queue:"+jobType, string(data)).Err()
}

// Pool consumes the audio-synthesis and video-generation queues. Failed jobs
// are marked failed immediately; resubmission is an explicit client action,
// never automatic.
type Pool struct {
	redis       *redis.Client
	audioRepo   *repository.AudioRepo
	videoRepo   *repository.VideoRepo
	tts         *services.TTSService
	videoGen    *services.VideoGenService
	storage     *services.StorageService
	workerCount int
	stopChan    chan struct{}
}

func NewPool(
	redisClient *redis.Client,
	audioRepo *repository.AudioRepo,
	videoRepo *repository.VideoRepo,
	tts *services.TTSService,
	videoGen *services.VideoGenService,
	storage *services.StorageService,
	workerCount int,
) *Pool {
	return &Pool{
		redis:       redisClient,
		audioRepo:   audioRepo,
		videoRepo:   videoRepo,
		tts:         tts,
		videoGen:    videoGen,
		storage:     storage,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	queues := []string{
		QueueAudioSynthesis,
		QueueVideoGeneration,
	}

	for i := 0; i < p.workerCount; i++ {
		go p.worker(i, queues)
	}

	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int, queues []string) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		result, err := p.redis.BLPop(ctx, 30*time.Second, queues...).Result()
		if err != nil {
			continue // Timeout or error, retry
		}
		if len(result) < 2 {
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job: %v", id, err)
			continue
		}

		// Claim the job so a re-delivered payload is not processed twice
		lockKey := fmt.Sprintf("job_lock:%s", job.ID)
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 30*time.Minute).Result()
		if err != nil || !locked {
			continue
		}

		log.Printf("Worker %d: processing job %s (type: %s)", id, job.ID, job.Type)

		var processErr error
		switch job.Type {
		case "audio-synthesis":
			processErr = p.processAudio(ctx, &job)
		case "video-generation":
			processErr = p.processVideo(ctx, &job)
		default:
			processErr = fmt.Errorf("unknown job type: %s", job.Type)
		}

		if processErr != nil {
			log.Printf("Worker %d: job %s failed: %v", id, job.ID, processErr)
		} else {
			log.Printf("Worker %d: job %s completed", id, job.ID)
		}

		p.redis.Del(ctx, lockKey)
	}
}

func (p *Pool) processAudio(ctx context.Context, job *Job) error {
	audio, err := p.audioRepo.GetByID(ctx, job.ReferenceID)
	if err != nil {
		return fmt.Errorf("failed to get audio record: %w", err)
	}

	if err := p.audioRepo.UpdateStatus(ctx, audio.ID, models.TaskStatusProcessing); err != nil {
		return err
	}

	data, err := p.tts.Synthesize(ctx, audio.TextInput, audio.VoiceName, audio.LanguageCode, audio.AudioFormat)
	if err != nil {
		p.failAudio(ctx, audio.ID, err)
		return err
	}

	objectName := fmt.Sprintf("audio/%s%s", audio.ID, services.AudioExtension(audio.AudioFormat))
	contentType := services.ContentTypeForExt(objectName)
	if err := p.storage.Upload(ctx, objectName, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		p.failAudio(ctx, audio.ID, err)
		return err
	}

	return p.audioRepo.MarkCompleted(ctx, audio.ID, objectName, int64(len(data)))
}

func (p *Pool) failAudio(ctx context.Context, id uuid.UUID, cause error) {
	if err := p.audioRepo.MarkFailed(ctx, id, cause.Error()); err != nil {
		log.Printf("failed to mark audio %s failed: %v", id, err)
	}
}

func (p *Pool) processVideo(ctx context.Context, job *Job) error {
	video, err := p.videoRepo.GetByID(ctx, job.ReferenceID)
	if err != nil {
		return fmt.Errorf("failed to get video record: %w", err)
	}

	if err := p.videoRepo.UpdateStatus(ctx, video.ID, models.TaskStatusProcessing); err != nil {
		return err
	}

	result, err := p.videoGen.GenerateComplete(ctx, video.Prompt, video.ID, video.Model, true, nil)
	if result.TaskID != "" {
		if setErr := p.videoRepo.SetTaskID(ctx, video.ID, result.TaskID); setErr != nil {
			log.Printf("failed to record task id for video %s: %v", video.ID, setErr)
		}
	}
	if err != nil {
		p.failVideo(ctx, video.ID, err)
		return err
	}

	objectName := fmt.Sprintf("video/%s.mp4", video.ID)
	size, err := p.storage.UploadLocalFile(ctx, objectName, result.OutputPath, "video/mp4")
	if err != nil {
		p.failVideo(ctx, video.ID, err)
		return err
	}
	services.CleanupLocalFile(result.OutputPath)

	videoURL, _, err := p.storage.SignedDownloadURL(ctx, objectName, "")
	if err != nil {
		p.failVideo(ctx, video.ID, err)
		return err
	}

	return p.videoRepo.MarkCompleted(ctx, video.ID, objectName, videoURL, size)
}

func (p *Pool) failVideo(ctx context.Context, id uuid.UUID, cause error) {
	if err := p.videoRepo.MarkFailed(ctx, id, cause.Error()); err != nil {
		log.Printf("failed to mark video %s failed: %v", id, err)
	}
}
