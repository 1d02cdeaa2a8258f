package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"sacco-backend/internal/adapters/persistence/models"
	"sacco-backend/internal/config"

	"go.uber.org/zap"
)

// NotificationService delivers password reset codes by SMS gateway and
// hands them to the broker for the email/WhatsApp consumers
type NotificationService struct {
	gatewayURL   string
	gatewayToken string
	client       *http.Client
	events       EventPublisher
	ttl          time.Duration
	log          *zap.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(cfg config.NotifyConfig, ttl time.Duration, events EventPublisher, log *zap.Logger) *NotificationService {
	if events == nil {
		events = nopPublisher{}
	}
	return &NotificationService{
		gatewayURL:   cfg.SMSGatewayURL,
		gatewayToken: cfg.SMSGatewayToken,
		client:       &http.Client{Timeout: 10 * time.Second},
		events:       events,
		ttl:          ttl,
		log:          log,
	}
}

// IsSMSEnabled checks if the SMS gateway is configured
func (s *NotificationService) IsSMSEnabled() bool {
	return s.gatewayURL != ""
}

// PasswordResetNotification is the broker payload for a reset code
type PasswordResetNotification struct {
	MemberID  uint      `json:"member_id"`
	Phone     string    `json:"phone"`
	Email     *string   `json:"email,omitempty"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

type smsRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// SendResetCode sends the code by SMS (when configured) and publishes it.
// Errors from both channels are joined.
func (s *NotificationService) SendResetCode(ctx context.Context, member *models.Member, code string) error {
	var errs []error

	if s.IsSMSEnabled() {
		msg := fmt.Sprintf("Your SACCO password reset code is %s. It expires in %d minutes.", code, int(s.ttl.Minutes()))
		if err := s.sendSMS(ctx, member.Phone, msg); err != nil {
			errs = append(errs, fmt.Errorf("sms: %w", err))
		}
	}

	event := PasswordResetNotification{
		MemberID:  member.ID,
		Phone:     member.Phone,
		Email:     member.Email,
		Name:      member.FullName(),
		Code:      code,
		ExpiresAt: time.Now().Add(s.ttl),
	}
	if err := s.events.Publish(ctx, EventPasswordResetCode, event); err != nil {
		errs = append(errs, fmt.Errorf("publish: %w", err))
	}

	s.log.Debug("reset code dispatched",
		zap.Uint("member_id", member.ID),
		zap.Bool("sms", s.IsSMSEnabled()),
	)
	return errors.Join(errs...)
}

// sendSMS posts a message to the SMS gateway
func (s *NotificationService) sendSMS(ctx context.Context, to, message string) error {
	body, err := json.Marshal(smsRequest{To: to, Message: message})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gatewayURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.gatewayToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.gatewayToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	return nil
}
