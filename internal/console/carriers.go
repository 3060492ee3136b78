// Copyright (c) 2026 RoadRW. All rights reserved.

package console

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/roadrw/consolekit/internal/platform/restclient"
	"github.com/roadrw/consolekit/pkg/pagination"
)

// # Carriers (Transportadoras)

// Carrier is a freight carrier registered in the console.
type Carrier struct {
	ID                    string `json:"id"`
	CNPJ                  string `json:"cnpj"`
	Name                  string `json:"nome"`
	Address               string `json:"endereco"`
	City                  string `json:"municipio"`
	UF                    string `json:"uf"`
	OccurrenceIntegration string `json:"integracao_ocorrencia,omitempty"`
	AutoManifest          bool   `json:"romaneio_auto"`
	AutoRouting           bool   `json:"roterizacao_automatica"`
	Active                bool   `json:"ativo"`
}

// CarrierInput creates or replaces a carrier.
type CarrierInput struct {
	CNPJ                  string `json:"cnpj"`
	Name                  string `json:"nome"`
	Address               string `json:"endereco"`
	City                  string `json:"municipio"`
	UF                    string `json:"uf"`
	OccurrenceIntegration string `json:"integracao_ocorrencia,omitempty"`
	AutoManifest          bool   `json:"romaneio_auto"`
	AutoRouting           bool   `json:"roterizacao_automatica"`
}

// normalize mirrors the console's input hygiene: digits-only CNPJ,
// trimmed names, uppercase UF.
func (in CarrierInput) normalize() CarrierInput {
	in.CNPJ = digitsOnly(in.CNPJ)
	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)
	in.City = strings.TrimSpace(in.City)
	in.UF = strings.ToUpper(strings.TrimSpace(in.UF))
	return in
}

// CarrierFilter narrows carrier listings.
type CarrierFilter struct {
	Name string
	UF   string
}

// CarrierStats is the aggregate block from the stats endpoint.
type CarrierStats struct {
	Total    int `json:"total"`
	Active   int `json:"ativos"`
	Inactive int `json:"inativos"`
}

// ListCarriers returns one page of carriers.
func (s *Service) ListCarriers(ctx context.Context, params pagination.Params, filter CarrierFilter) ([]Carrier, pagination.Meta, error) {
	query := params.Query()
	if filter.Name != "" {
		query.Set("nome", filter.Name)
	}
	if filter.UF != "" {
		query.Set("uf", strings.ToUpper(filter.UF))
	}

	response, err := s.client.Do(ctx, restclient.Request{
		Method: http.MethodGet,
		Path:   "/transportadoras",
		Query:  query,
	})
	if err != nil {
		return nil, pagination.Meta{}, err
	}

	var carriers []Carrier
	if err := json.Unmarshal(response.Data, &carriers); err != nil {
		return nil, pagination.Meta{}, err
	}

	var meta pagination.Meta
	if len(response.Meta) > 0 {
		if err := json.Unmarshal(response.Meta, &meta); err != nil {
			return nil, pagination.Meta{}, err
		}
	}
	return carriers, meta, nil
}

// GetCarrier fetches a carrier by ID.
func (s *Service) GetCarrier(ctx context.Context, id string) (*Carrier, error) {
	carrier := &Carrier{}
	err := s.client.DoJSON(ctx, restclient.Request{
		Method: http.MethodGet,
		Path:   "/transportadoras/" + url.PathEscape(id),
	}, carrier)
	if err != nil {
		return nil, err
	}
	return carrier, nil
}

// GetCarrierByCNPJ fetches a carrier by its (formatted or bare) CNPJ.
func (s *Service) GetCarrierByCNPJ(ctx context.Context, cnpj string) (*Carrier, error) {
	carrier := &Carrier{}
	err := s.client.DoJSON(ctx, restclient.Request{
		Method: http.MethodGet,
		Path:   "/transportadoras/cnpj/" + url.PathEscape(digitsOnly(cnpj)),
	}, carrier)
	if err != nil {
		return nil, err
	}
	return carrier, nil
}

// SearchCarriers performs a free-text carrier search.
func (s *Service) SearchCarriers(ctx context.Context, text string, limit int) ([]Carrier, error) {
	query := pagination.Params{Limit: limit}.Query()
	query.Del("page")
	query.Set("q", text)

	var carriers []Carrier
	err := s.client.DoJSON(ctx, restclient.Request{
		Method: http.MethodGet,
		Path:   "/transportadoras/search",
		Query:  query,
	}, &carriers)
	return carriers, err
}

// CreateCarrier registers a new carrier.
func (s *Service) CreateCarrier(ctx context.Context, input CarrierInput) (*Carrier, error) {
	carrier := &Carrier{}
	err := s.client.DoJSON(ctx, restclient.Request{
		Method: http.MethodPost,
		Path:   "/transportadoras",
		Body:   input.normalize(),
	}, carrier)
	if err != nil {
		return nil, err
	}
	return carrier, nil
}

// UpdateCarrier replaces a carrier's registration data.
func (s *Service) UpdateCarrier(ctx context.Context, id string, input CarrierInput) (*Carrier, error) {
	carrier := &Carrier{}
	err := s.client.DoJSON(ctx, restclient.Request{
		Method: http.MethodPut,
		Path:   "/transportadoras/" + url.PathEscape(id),
		Body:   input.normalize(),
	}, carrier)
	if err != nil {
		return nil, err
	}
	return carrier, nil
}

// DeleteCarrier soft-deletes a carrier.
func (s *Service) DeleteCarrier(ctx context.Context, id string) error {
	_, err := s.client.Do(ctx, restclient.Request{
		Method: http.MethodDelete,
		Path:   "/transportadoras/" + url.PathEscape(id),
	})
	return err
}

// RestoreCarrier reverses a soft delete.
func (s *Service) RestoreCarrier(ctx context.Context, id string) error {
	_, err := s.client.Do(ctx, restclient.Request{
		Method: http.MethodPost,
		Path:   "/transportadoras/" + url.PathEscape(id) + "/restore",
	})
	return err
}

// CarrierStats returns carrier aggregates for the dashboard.
func (s *Service) CarrierStats(ctx context.Context) (*CarrierStats, error) {
	stats := &CarrierStats{}
	err := s.client.DoJSON(ctx, restclient.Request{
		Method: http.MethodGet,
		Path:   "/transportadoras/stats",
	}, stats)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// digitsOnly strips everything but 0-9, matching the console's CNPJ
// cleanup before hitting the API.
func digitsOnly(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
