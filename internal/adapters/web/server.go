package web

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
	"github.com/mikey/llm-mail-triage/internal/core"
	"go.uber.org/zap"
)

// Server exposes the triage pipeline over HTTP: one endpoint to run a batch
// and read endpoints to filter the current result set
type Server struct {
	service    *core.TriageService
	logger     *zap.Logger
	listenAddr string
	viewsPath  string
	maxEmails  int
	app        *fiber.App
}

// NewServer creates a new web server
func NewServer(
	service *core.TriageService,
	logger *zap.Logger,
	listenAddr string,
	viewsPath string,
	maxEmails int,
) *Server {
	return &Server{
		service:    service,
		logger:     logger,
		listenAddr: listenAddr,
		viewsPath:  viewsPath,
		maxEmails:  maxEmails,
	}
}

type verdictResponse struct {
	Tier       string    `json:"tier"`
	Summary    string    `json:"summary"`
	Deadlines  []string  `json:"deadlines"`
	Links      []string  `json:"links"`
	Model      string    `json:"model"`
	AnalyzedAt time.Time `json:"analyzed_at"`
}

type emailResponse struct {
	ID          string          `json:"id"`
	From        string          `json:"from"`
	Subject     string          `json:"subject"`
	Status      string          `json:"status"`
	HasDeadline bool            `json:"has_deadline"`
	Verdict     verdictResponse `json:"verdict"`
	ProcessedAt time.Time       `json:"processed_at"`
}

type summaryResponse struct {
	Total    int `json:"total"`
	Analyzed int `json:"analyzed"`
	Failed   int `json:"failed"`
}

// Start starts the web server
func (s *Server) Start() error {
	engine := html.New(s.viewsPath, ".html")

	s.app = fiber.New(fiber.Config{
		Views: engine,
	})

	s.app.Get("/", s.handleIndex)
	s.app.Post("/api/analyze", s.handleAnalyze)
	s.app.Get("/api/emails", s.handleEmails)
	s.app.Get("/api/emails/:id", s.handleEmail)

	s.logger.Info("Web server starting", zap.String("address", s.listenAddr))

	go func() {
		if err := s.app.Listen(s.listenAddr); err != nil {
			s.logger.Error("Web server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the web server
func (s *Server) Stop() error {
	if s.app == nil {
		return nil
	}
	return s.app.Shutdown()
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	return c.Render("index", fiber.Map{
		"Title": "Mail Triage",
		"Count": len(s.service.All()),
	})
}

func (s *Server) handleAnalyze(c *fiber.Ctx) error {
	maxCount := s.maxEmails
	if raw := c.Query("max"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "max must be a positive integer",
			})
		}
		maxCount = parsed
	}

	summary, err := s.service.RunBatch(c.Context(), maxCount)
	if err != nil {
		status := fiber.StatusInternalServerError
		switch {
		case errors.Is(err, core.ErrRunInProgress):
			status = fiber.StatusConflict
		case errors.Is(err, core.ErrMailboxAuth), errors.Is(err, core.ErrMailboxTransport):
			status = fiber.StatusBadGateway
		}
		s.logger.Error("Triage run failed", zap.Error(err))
		return c.Status(status).JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"summary": summaryResponse{
			Total:    summary.Total,
			Analyzed: summary.Analyzed,
			Failed:   summary.Failed,
		},
	})
}

func (s *Server) handleEmails(c *fiber.Ctx) error {
	var tier *core.Tier
	if raw := c.Query("tier"); raw != "" {
		parsed := core.Tier(raw)
		if !parsed.IsValid() {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "unrecognized tier: " + raw,
			})
		}
		tier = &parsed
	}

	var hasDeadline *bool
	if raw := c.Query("has_deadline"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "has_deadline must be a boolean",
			})
		}
		hasDeadline = &parsed
	}

	entries := s.service.Filtered(tier, hasDeadline)
	emails := make([]emailResponse, 0, len(entries))
	for _, entry := range entries {
		emails = append(emails, toEmailResponse(entry))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"emails":  emails,
	})
}

func (s *Server) handleEmail(c *fiber.Ctx) error {
	entry, ok := s.service.Get(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "email not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"email":   toEmailResponse(entry),
	})
}

func toEmailResponse(entry *core.AnalyzedEmail) emailResponse {
	resp := emailResponse{
		ID:          entry.ID,
		From:        entry.From,
		Subject:     entry.Subject,
		Status:      string(entry.Status),
		ProcessedAt: entry.ProcessedAt,
	}

	if entry.Verdict != nil {
		resp.HasDeadline = entry.Verdict.HasDeadline()
		resp.Verdict = verdictResponse{
			Tier:       string(entry.Verdict.Tier),
			Summary:    entry.Verdict.Summary,
			Deadlines:  entry.Verdict.Deadlines,
			Links:      entry.Verdict.Links,
			Model:      entry.Verdict.ModelUsed,
			AnalyzedAt: entry.Verdict.AnalyzedAt,
		}
	}

	return resp
}
