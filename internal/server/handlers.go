package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"portfolio-api/internal/blog"
	"portfolio-api/internal/gateway"
	"portfolio-api/internal/models"
	"portfolio-api/internal/store"
)

const busyMessage = "All AI models are currently busy. Please try again in a moment."

func (s *Server) handleChat(c echo.Context) error {
	var req chatRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	reply, err := s.gateway.Complete(c.Request().Context(), req.Messages)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrAuthRejected):
			// Configuration problem, not transient load. Keep the log loud
			// and the client message generic.
			slog.Error("chat gateway credentials rejected", "err", err)
			return requestError{Status: http.StatusInternalServerError, Message: "Failed to process chat request"}
		case errors.Is(err, gateway.ErrExhausted):
			slog.Error("chat gateway exhausted all candidates", "err", err)
			return requestError{Status: http.StatusServiceUnavailable, Message: busyMessage}
		default:
			slog.Error("chat request failed", "err", err)
			return requestError{Status: http.StatusInternalServerError, Message: "Failed to process chat request"}
		}
	}

	return c.JSON(http.StatusOK, map[string]string{"reply": reply})
}

func (s *Server) handleSubscribe(c echo.Context) error {
	var req subscribeRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	if strings.TrimSpace(req.Email) == "" {
		return requestError{Status: http.StatusBadRequest, Message: "Email is required"}
	}
	if !validEmail(req.Email) {
		return requestError{Status: http.StatusBadRequest, Message: "Invalid email format"}
	}

	sub, created, err := s.store.Subscribe(c.Request().Context(), req.Email, req.Name, c.RealIP())
	if err != nil {
		if errors.Is(err, store.ErrAlreadySubscribed) {
			return requestError{Status: http.StatusConflict, Message: "This email is already subscribed to our newsletter"}
		}
		slog.Error("newsletter subscribe failed", "err", err)
		return requestError{Status: http.StatusInternalServerError, Message: "Failed to subscribe to newsletter"}
	}

	if created {
		s.mail.SendAsync(sub.Email, "Welcome to the newsletter",
			"Thanks for subscribing! You'll hear from me when there's something worth sharing.")
		return c.JSON(http.StatusCreated, map[string]any{
			"success": true,
			"message": "Successfully subscribed to newsletter! Check your email for confirmation.",
		})
	}

	s.mail.SendAsync(sub.Email, "Welcome back",
		"Your newsletter subscription has been reactivated.")
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Welcome back! Your subscription has been reactivated.",
	})
}

func (s *Server) handleUnsubscribe(c echo.Context) error {
	var req unsubscribeRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	if strings.TrimSpace(req.Email) == "" {
		return requestError{Status: http.StatusBadRequest, Message: "Email is required"}
	}

	if err := s.store.Unsubscribe(c.Request().Context(), req.Email); err != nil {
		if errors.Is(err, store.ErrNotSubscribed) {
			return requestError{Status: http.StatusNotFound, Message: "Email not found in our newsletter list"}
		}
		slog.Error("newsletter unsubscribe failed", "err", err)
		return requestError{Status: http.StatusInternalServerError, Message: "Error unsubscribing"}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Successfully unsubscribed from newsletter",
	})
}

func (s *Server) handleContact(c echo.Context) error {
	var req contactRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.Message) == "" {
		return requestError{Status: http.StatusBadRequest, Message: "Please provide all required fields"}
	}
	if !validEmail(req.Email) {
		return requestError{Status: http.StatusBadRequest, Message: "Invalid email format"}
	}

	saved, err := s.store.SaveContact(c.Request().Context(), models.ContactMessage{
		Email:     req.Email,
		Subject:   req.Subject,
		Message:   req.Message,
		IPAddress: c.RealIP(),
	})
	if err != nil {
		slog.Error("contact save failed", "err", err)
		return requestError{Status: http.StatusInternalServerError, Message: "Failed to send message. Please try again later."}
	}

	if owner := s.mail.OwnerAddress(); owner != "" {
		s.mail.SendAsync(owner, "Portfolio Contact: "+saved.Subject,
			fmt.Sprintf("From: %s\n\n%s", saved.Email, saved.Message))
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"message": "Message sent successfully! I will get back to you soon.",
		"data": map[string]any{
			"id":         saved.ID,
			"created_at": saved.CreatedAt,
		},
	})
}

func (s *Server) handleListPosts(c echo.Context) error {
	limit := intQuery(c, "limit", 10)
	page := intQuery(c, "page", 1)

	result := s.library.List(c.QueryParam("tag"), c.QueryParam("search"), limit, page)
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"count":   result.Count,
		"total":   result.Total,
		"page":    result.Page,
		"pages":   result.Pages,
		"data":    result.Posts,
	})
}

func (s *Server) handleGetPost(c echo.Context) error {
	post, err := s.library.Get(c.Param("slug"))
	if err != nil {
		if errors.Is(err, blog.ErrNotFound) {
			return requestError{Status: http.StatusNotFound, Message: "Blog not found"}
		}
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"data":    post,
	})
}

func (s *Server) handleListSubscribers(c echo.Context) error {
	status := c.QueryParam("status")
	if status == "" {
		status = models.StatusActive
	}
	limit := intQuery(c, "limit", 100)

	subscribers, err := s.store.ListSubscribers(c.Request().Context(), status, limit)
	if err != nil {
		slog.Error("list subscribers failed", "err", err)
		return requestError{Status: http.StatusInternalServerError, Message: "Failed to retrieve subscribers"}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":     true,
		"count":       len(subscribers),
		"subscribers": subscribers,
	})
}

func (s *Server) handleListContacts(c echo.Context) error {
	contacts, err := s.store.ListContacts(c.Request().Context())
	if err != nil {
		slog.Error("list contacts failed", "err", err)
		return requestError{Status: http.StatusInternalServerError, Message: "Failed to fetch contacts"}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"count":   len(contacts),
		"data":    contacts,
	})
}

func intQuery(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
