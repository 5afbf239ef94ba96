package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"

	"portfolio-api/internal/models"
)

var (
	errMissingMessages = errors.New("messages must be provided")
	errInvalidRole     = errors.New("invalid role")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// chatRequest is the inbound chat widget payload.
type chatRequest struct {
	Messages []models.Message
}

// UnmarshalJSON implements custom parsing to enforce validation.
func (r *chatRequest) UnmarshalJSON(data []byte) error {
	type alias struct {
		Messages *[]models.Message `json:"messages"`
	}

	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Messages == nil {
		return errMissingMessages
	}

	for i, msg := range *raw.Messages {
		if !models.ValidRole(msg.Role) {
			return fmt.Errorf("%w %q in message %d", errInvalidRole, msg.Role, i)
		}
	}

	r.Messages = *raw.Messages
	return nil
}

// subscribeRequest is the newsletter signup payload.
type subscribeRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// unsubscribeRequest is the newsletter opt-out payload.
type unsubscribeRequest struct {
	Email string `json:"email"`
}

// contactRequest is the contact form payload.
type contactRequest struct {
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func validEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

func decodeRequestBody[T any](c echo.Context, target *T) error {
	req := c.Request()
	defer req.Body.Close()

	req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBodyBytes)

	decoder := json.NewDecoder(req.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return requestError{
				Status:  http.StatusBadRequest,
				Message: "request body is required",
			}
		}
		return requestError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("invalid JSON payload: %v", err),
		}
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: "request body must contain a single JSON object",
		}
	}
	return nil
}
