// Copyright (c) 2026 RoadRW. All rights reserved.

package console

import (
	"context"
	"net/http"
	"net/url"

	"github.com/roadrw/consolekit/internal/platform/restclient"
)

// # Occurrence Codes

// OccurrenceCode maps a carrier-specific delivery occurrence code to the
// console's canonical occurrence taxonomy.
type OccurrenceCode struct {
	ID          string `json:"id"`
	CarrierID   string `json:"transportadora_id"`
	Code        string `json:"codigo"`
	Canonical   string `json:"codigo_ocorrencia_codigo"`
	Description string `json:"descricao"`
}

// OccurrenceCodeInput creates or replaces a code mapping.
type OccurrenceCodeInput struct {
	Code        string `json:"codigo"`
	Canonical   string `json:"codigo_ocorrencia_codigo"`
	Description string `json:"descricao"`
}

// ListOccurrenceCodes returns a carrier's occurrence code mappings.
func (s *Service) ListOccurrenceCodes(ctx context.Context, carrierID string) ([]OccurrenceCode, error) {
	var codes []OccurrenceCode
	err := s.client.DoJSON(ctx, restclient.Request{
		Method: http.MethodGet,
		Path:   "/transportadoras/" + url.PathEscape(carrierID) + "/codigos-ocorrencia",
	}, &codes)
	return codes, err
}

// CreateOccurrenceCode adds a code mapping for a carrier.
func (s *Service) CreateOccurrenceCode(ctx context.Context, carrierID string, input OccurrenceCodeInput) (*OccurrenceCode, error) {
	code := &OccurrenceCode{}
	err := s.client.DoJSON(ctx, restclient.Request{
		Method: http.MethodPost,
		Path:   "/transportadoras/" + url.PathEscape(carrierID) + "/codigos-ocorrencia",
		Body:   input,
	}, code)
	if err != nil {
		return nil, err
	}
	return code, nil
}

// UpdateOccurrenceCode replaces a code mapping.
func (s *Service) UpdateOccurrenceCode(ctx context.Context, carrierID, id string, input OccurrenceCodeInput) (*OccurrenceCode, error) {
	code := &OccurrenceCode{}
	err := s.client.DoJSON(ctx, restclient.Request{
		Method: http.MethodPut,
		Path:   "/transportadoras/" + url.PathEscape(carrierID) + "/codigos-ocorrencia/" + url.PathEscape(id),
		Body:   input,
	}, code)
	if err != nil {
		return nil, err
	}
	return code, nil
}

// DeleteOccurrenceCode removes a code mapping.
func (s *Service) DeleteOccurrenceCode(ctx context.Context, carrierID, id string) error {
	_, err := s.client.Do(ctx, restclient.Request{
		Method: http.MethodDelete,
		Path:   "/transportadoras/" + url.PathEscape(carrierID) + "/codigos-ocorrencia/" + url.PathEscape(id),
	})
	return err
}
