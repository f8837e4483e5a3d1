package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/patrickmn/go-cache"

	"github.com/mockmate/go-mockmate/pkg/feedback"
	"github.com/mockmate/go-mockmate/pkg/interview"
	"github.com/mockmate/go-mockmate/pkg/session"
	"github.com/mockmate/go-mockmate/pkg/store"
	"github.com/mockmate/go-mockmate/pkg/vapi"
)

// generateRequest is the interview generation request body.
type generateRequest struct {
	Role      string `json:"role" validate:"required"`
	Level     string `json:"level"`
	Type      string `json:"type"`
	Techstack string `json:"techstack"`
	Amount    int    `json:"amount" validate:"gte=0,lte=20"`
	UserID    string `json:"userid" validate:"required"`
}

// feedbackRequest is the feedback creation request body.
type feedbackRequest struct {
	InterviewID string            `json:"interviewId" validate:"required"`
	UserID      string            `json:"userId" validate:"required"`
	Transcript  []session.Message `json:"transcript" validate:"required,min=1"`
	FeedbackID  string            `json:"feedbackId"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": s.appName,
		"version": s.version,
	})
}

// handleToken serves session tokens. Tokens are cached per user so a
// page reload does not mint a fresh one every time.
func (s *Server) handleToken(c *fiber.Ctx) error {
	var req vapi.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(vapi.TokenResponse{Error: "invalid request body"})
	}
	if req.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(vapi.TokenResponse{Error: "userId is required"})
	}

	if cached, ok := s.tokenCache.Get(req.UserID); ok {
		return c.JSON(vapi.TokenResponse{Success: true, Token: cached.(string)})
	}

	token, err := s.mintToken(req.UserID)
	if err != nil {
		s.logger.Error("token minting failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(vapi.TokenResponse{Error: "could not mint token"})
	}

	s.tokenCache.Set(req.UserID, token, cache.DefaultExpiration)
	return c.JSON(vapi.TokenResponse{Success: true, Token: token})
}

// mintToken prefers a signed per-user token and falls back to the
// static public key when signing is unavailable.
func (s *Server) mintToken(userID string) (string, error) {
	if s.minter == nil {
		if s.publicKey == "" {
			return "", errors.New("web: token minting is not configured")
		}
		return s.publicKey, nil
	}

	token, err := s.minter.Issue(userID)
	if err != nil {
		if s.publicKey != "" {
			s.logger.Warn("token minting failed, serving public key", "error", err)
			return s.publicKey, nil
		}
		return "", err
	}
	return token, nil
}

// handleGenerate creates a finalized interview from generated
// questions.
func (s *Server) handleGenerate(c *fiber.Ctx) error {
	var req generateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := s.validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	stack := interview.NormalizeTechstack(req.Techstack)
	questions, err := s.questions.GenerateQuestions(c.Context(), interview.QuestionRequest{
		Role:      req.Role,
		Level:     req.Level,
		Type:      req.Type,
		Techstack: stack,
		Amount:    req.Amount,
	})
	if err != nil {
		s.logger.Error("question generation failed", "error", err)
		return serverError(c, "could not generate questions")
	}

	itv := &interview.Interview{
		UserID:     req.UserID,
		Role:       req.Role,
		Level:      req.Level,
		Type:       req.Type,
		Techstack:  stack,
		Questions:  questions,
		Finalized:  true,
		CoverImage: interview.RandomCover(),
	}
	if err := s.store.SaveInterview(c.Context(), itv); err != nil {
		s.logger.Error("interview save failed", "error", err)
		return serverError(c, "could not save interview")
	}

	s.logger.Info("interview generated", "interviewId", itv.ID, "role", itv.Role)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":     true,
		"interviewId": itv.ID,
	})
}

func (s *Server) handleGetInterview(c *fiber.Ctx) error {
	itv, err := s.store.GetInterview(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c, "interview not found")
		}
		s.logger.Error("interview lookup failed", "error", err)
		return serverError(c, "could not load interview")
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"interview": itv,
	})
}

func (s *Server) handleListInterviews(c *fiber.Ctx) error {
	userID := c.Query("userId")
	if userID == "" {
		return badRequest(c, "userId is required")
	}

	interviews, err := s.store.ListInterviewsByUser(c.Context(), userID)
	if err != nil {
		s.logger.Error("interview list failed", "error", err)
		return serverError(c, "could not list interviews")
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"interviews": interviews,
	})
}

// handleLatestInterviews returns other candidates' finalized
// interviews, newest first.
func (s *Server) handleLatestInterviews(c *fiber.Ctx) error {
	interviews, err := s.store.ListLatestInterviews(c.Context(), c.Query("userId"), c.QueryInt("limit"))
	if err != nil {
		s.logger.Error("interview list failed", "error", err)
		return serverError(c, "could not list interviews")
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"interviews": interviews,
	})
}

func (s *Server) handleCreateFeedback(c *fiber.Ctx) error {
	var req feedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := s.validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	fb, err := s.feedback.CreateFeedback(c.Context(), feedback.CreateParams{
		InterviewID: req.InterviewID,
		UserID:      req.UserID,
		Transcript:  req.Transcript,
		FeedbackID:  req.FeedbackID,
	})
	if err != nil {
		s.logger.Error("feedback creation failed", "error", err)
		return serverError(c, "could not create feedback")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":    true,
		"feedbackId": fb.ID,
	})
}

func (s *Server) handleGetFeedback(c *fiber.Ctx) error {
	interviewID := c.Query("interviewId")
	userID := c.Query("userId")
	if interviewID == "" || userID == "" {
		return badRequest(c, "interviewId and userId are required")
	}

	fb, err := s.store.GetFeedback(c.Context(), interviewID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c, "feedback not found")
		}
		s.logger.Error("feedback lookup failed", "error", err)
		return serverError(c, "could not load feedback")
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"feedback": fb,
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": msg})
}

func notFound(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "error": msg})
}

func serverError(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": msg})
}
