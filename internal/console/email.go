// Copyright (c) 2026 RoadRW. All rights reserved.

package console

import (
	"context"
	"net/http"

	"github.com/roadrw/consolekit/internal/platform/restclient"
)

// # Email Provider Settings

// EmailSettings is the backend's outbound email provider configuration.
type EmailSettings struct {
	Provider    string `json:"provider"`
	Host        string `json:"host,omitempty"`
	Port        int    `json:"port,omitempty"`
	Username    string `json:"username,omitempty"`
	FromAddress string `json:"fromAddress"`
	FromName    string `json:"fromName,omitempty"`
	Secure      bool   `json:"secure"`
}

// EmailSettingsInput updates the provider configuration. The password is
// write-only: the backend never echoes it back.
type EmailSettingsInput struct {
	Provider    string `json:"provider"`
	Host        string `json:"host,omitempty"`
	Port        int    `json:"port,omitempty"`
	Username    string `json:"username,omitempty"`
	Password    string `json:"password,omitempty"`
	FromAddress string `json:"fromAddress"`
	FromName    string `json:"fromName,omitempty"`
	Secure      bool   `json:"secure"`
}

// GetEmailSettings fetches the current provider configuration.
func (s *Service) GetEmailSettings(ctx context.Context) (*EmailSettings, error) {
	settings := &EmailSettings{}
	err := s.client.DoJSON(ctx, restclient.Request{
		Method: http.MethodGet,
		Path:   "/settings/email",
	}, settings)
	if err != nil {
		return nil, err
	}
	return settings, nil
}

// UpdateEmailSettings replaces the provider configuration.
func (s *Service) UpdateEmailSettings(ctx context.Context, input EmailSettingsInput) (*EmailSettings, error) {
	settings := &EmailSettings{}
	err := s.client.DoJSON(ctx, restclient.Request{
		Method: http.MethodPut,
		Path:   "/settings/email",
		Body:   input,
	}, settings)
	if err != nil {
		return nil, err
	}
	return settings, nil
}

// SendTestEmail asks the backend to send a probe message to the address.
func (s *Service) SendTestEmail(ctx context.Context, to string) error {
	_, err := s.client.Do(ctx, restclient.Request{
		Method: http.MethodPost,
		Path:   "/settings/email/test",
		Body:   map[string]string{"to": to},
	})
	return err
}
