package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"reelgen-backend/internal/handlers"
	"reelgen-backend/internal/middleware"
	"reelgen-backend/internal/websocket"
)

func New(
	userHandler *handlers.UserHandler,
	sessionHandler *handlers.SessionHandler,
	fileHandler *handlers.FileHandler,
	contentHandler *handlers.ContentHandler,
	audioHandler *handlers.AudioHandler,
	videoHandler *handlers.VideoHandler,
	processingHandler *handlers.ProcessingHandler,
	wsHub *websocket.Hub,
	frontendURL string,
	generationRateLimit int,
	generationRateWindow time.Duration,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Generation endpoints are expensive upstream; keep them rate limited.
	generationLimiter := middleware.NewRateLimiter(generationRateLimit, generationRateWindow)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── User Routes ────
		r.Route("/users", func(r chi.Router) {
			r.Post("/", userHandler.Create)
			r.Get("/", userHandler.List)
			r.Get("/by-email", userHandler.GetByEmail)
			r.Get("/{id}", userHandler.Get)
		})

		// ──── Video Session Routes ────
		r.Route("/video-sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Create)
			r.Get("/", sessionHandler.List)
			r.Get("/{id}", sessionHandler.Get)
			r.Put("/{id}", sessionHandler.Update)
			r.Delete("/{id}", sessionHandler.Delete)
			r.Get("/{id}/files", sessionHandler.ListFiles)
			r.Post("/{id}/complete", sessionHandler.Complete)

			r.Group(func(r chi.Router) {
				r.Use(generationLimiter.Middleware)
				r.Post("/{id}/start-processing", sessionHandler.StartProcessing)
			})
		})

		// ──── File Routes ────
		r.Route("/files", func(r chi.Router) {
			r.Post("/upload", fileHandler.Upload)
			r.Post("/upload-multiple", fileHandler.UploadMultiple)
			r.Post("/register", fileHandler.Register)
			r.Get("/", fileHandler.List)
			r.Get("/{id}", fileHandler.Get)
			r.Put("/{id}", fileHandler.Update)
			r.Delete("/{id}", fileHandler.Delete)
			r.Get("/{id}/download-url", fileHandler.DownloadURL)
		})

		r.Route("/storage", func(r chi.Router) {
			r.Post("/signed-upload-urls", fileHandler.SignedUploadURLs)
		})

		// ──── Content Generation Routes ────
		r.Route("/content-generation", func(r chi.Router) {
			r.Use(generationLimiter.Middleware)
			r.Post("/analyze", contentHandler.Analyze)
			r.Post("/refine-prompt", contentHandler.RefinePrompt)
			r.Post("/generate-video", contentHandler.GenerateVideo)
			r.Post("/complete-workflow", contentHandler.CompleteWorkflow)
		})

		// ──── Audio Routes ────
		r.Route("/audio", func(r chi.Router) {
			r.Post("/synthesize", audioHandler.Synthesize)
			r.Get("/voices", audioHandler.Voices)
			r.Get("/", audioHandler.List)
			r.Get("/{id}", audioHandler.Get)
			r.Get("/{id}/download-url", audioHandler.DownloadURL)
		})

		// ──── Video Task Routes ────
		r.Route("/videos", func(r chi.Router) {
			r.Post("/", videoHandler.Create)
			r.Get("/", videoHandler.List)
			r.Get("/by-task/{taskID}", videoHandler.GetByTask)
			r.Get("/{id}", videoHandler.Get)
			r.Put("/{id}", videoHandler.Update)
			r.Get("/{id}/download-url", videoHandler.DownloadURL)
		})

		// ──── Media Processing Routes ────
		r.Route("/video-processing", func(r chi.Router) {
			r.Post("/merge", processingHandler.Merge)
			r.Post("/add-audio", processingHandler.AddAudio)
			r.Post("/extract-audio", processingHandler.ExtractAudio)
			r.Get("/info", processingHandler.Info)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
