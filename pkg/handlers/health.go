package handlers

import (
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/jotabap/web-conversor/pkg/config"
)

// ServiceName identifies this service in ping responses.
const ServiceName = "web-conversor"

// Protocols lists the conversions the service offers.
var Protocols = []string{"EXCEL→JSON", "JSON→EXCEL", "EXCEL→SQL"}

// AIStatus reports whether remote AI assistance is configured.
type AIStatus interface {
	Available() bool
	Provider() string
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status        string    `json:"status"`
	NeuralNetwork string    `json:"neural_network"`
	AIEngine      string    `json:"ai_engine"`
	Timestamp     time.Time `json:"timestamp"`
}

// PingResponse contains service status and version information.
type PingResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Service     string `json:"service"`
	GoVersion   string `json:"go_version"`
	Hostname    string `json:"hostname"`
	Environment string `json:"environment"`
}

// RootResponse is returned by GET /.
type RootResponse struct {
	Message   string   `json:"message"`
	Status    string   `json:"status"`
	Version   string   `json:"version"`
	Protocols []string `json:"protocols"`
}

// InfoResponse is returned by GET /api/info.
type InfoResponse struct {
	Name              string   `json:"name"`
	Version           string   `json:"version"`
	Description       string   `json:"description"`
	Environment       string   `json:"environment"`
	AIEnabled         bool     `json:"ai_enabled"`
	AIProvider        string   `json:"ai_provider,omitempty"`
	MaxFileSize       string   `json:"max_file_size"`
	AllowedExtensions []string `json:"allowed_extensions"`
}

// HealthHandler handles health check, ping and service description endpoints.
type HealthHandler struct {
	cfg    *config.Config
	ai     AIStatus
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler with the given configuration.
// ai may be nil when no AI client was built.
func NewHealthHandler(cfg *config.Config, ai AIStatus, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, ai: ai, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
	mux.HandleFunc("GET /{$}", h.Root)
	mux.HandleFunc("GET /api/info", h.Info)
}

func (h *HealthHandler) aiAvailable() bool {
	return h.ai != nil && h.ai.Available()
}

// Health handles GET /health requests.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	engine := "READY"
	if !h.aiAvailable() {
		engine = "DISABLED"
	}

	response := HealthResponse{
		Status:        "ONLINE",
		NeuralNetwork: "ACTIVE",
		AIEngine:      engine,
		Timestamp:     time.Now().UTC(),
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
	}
}

// Ping handles GET /ping requests.
// Returns detailed service information including version and environment.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		if err := ErrorResponse(w, http.StatusInternalServerError, "HOSTNAME_ERROR", "Failed to get hostname"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     ServiceName,
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}

// Root handles GET / requests.
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	response := RootResponse{
		Message:   "MATRIX AI CONVERTER - NEURAL NETWORK ONLINE",
		Status:    "ACTIVE",
		Version:   h.cfg.Version,
		Protocols: Protocols,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode root response", zap.Error(err))
	}
}

// Info handles GET /api/info requests.
func (h *HealthHandler) Info(w http.ResponseWriter, r *http.Request) {
	response := InfoResponse{
		Name:              h.cfg.App.Name,
		Version:           h.cfg.Version,
		Description:       h.cfg.App.Description,
		Environment:       h.cfg.Env,
		AIEnabled:         h.aiAvailable(),
		MaxFileSize:       fmt.Sprintf("%.1fMB", float64(h.cfg.Files.MaxFileSize)/(1024*1024)),
		AllowedExtensions: h.cfg.Files.AllowedExtensions,
	}
	if response.AIEnabled {
		response.AIProvider = h.ai.Provider()
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode info response", zap.Error(err))
	}
}
