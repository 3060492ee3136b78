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

// # Clients (Customers)

// Customer is a shipper account serviced by the logistics operation.
type Customer struct {
	ID     string `json:"id"`
	CNPJ   string `json:"cnpj"`
	Name   string `json:"nome"`
	Email  string `json:"email"`
	City   string `json:"municipio"`
	UF     string `json:"uf"`
	Active bool   `json:"ativo"`
}

// CustomerInput creates or replaces a customer.
type CustomerInput struct {
	CNPJ  string `json:"cnpj"`
	Name  string `json:"nome"`
	Email string `json:"email"`
	City  string `json:"municipio"`
	UF    string `json:"uf"`
}

func (in CustomerInput) normalize() CustomerInput {
	in.CNPJ = digitsOnly(in.CNPJ)
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.City = strings.TrimSpace(in.City)
	in.UF = strings.ToUpper(strings.TrimSpace(in.UF))
	return in
}

// ListCustomers returns one page of customers.
func (s *Service) ListCustomers(ctx context.Context, params pagination.Params) ([]Customer, pagination.Meta, error) {
	response, err := s.client.Do(ctx, restclient.Request{
		Method: http.MethodGet,
		Path:   "/clientes",
		Query:  params.Query(),
	})
	if err != nil {
		return nil, pagination.Meta{}, err
	}

	var customers []Customer
	if err := json.Unmarshal(response.Data, &customers); err != nil {
		return nil, pagination.Meta{}, err
	}
	var meta pagination.Meta
	if len(response.Meta) > 0 {
		if err := json.Unmarshal(response.Meta, &meta); err != nil {
			return nil, pagination.Meta{}, err
		}
	}
	return customers, meta, nil
}

// GetCustomer fetches a customer by ID.
func (s *Service) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	customer := &Customer{}
	err := s.client.DoJSON(ctx, restclient.Request{
		Method: http.MethodGet,
		Path:   "/clientes/" + url.PathEscape(id),
	}, customer)
	if err != nil {
		return nil, err
	}
	return customer, nil
}

// CreateCustomer registers a new customer.
func (s *Service) CreateCustomer(ctx context.Context, input CustomerInput) (*Customer, error) {
	customer := &Customer{}
	err := s.client.DoJSON(ctx, restclient.Request{
		Method: http.MethodPost,
		Path:   "/clientes",
		Body:   input.normalize(),
	}, customer)
	if err != nil {
		return nil, err
	}
	return customer, nil
}

// UpdateCustomer replaces a customer's registration data.
func (s *Service) UpdateCustomer(ctx context.Context, id string, input CustomerInput) (*Customer, error) {
	customer := &Customer{}
	err := s.client.DoJSON(ctx, restclient.Request{
		Method: http.MethodPut,
		Path:   "/clientes/" + url.PathEscape(id),
		Body:   input.normalize(),
	}, customer)
	if err != nil {
		return nil, err
	}
	return customer, nil
}

// DeleteCustomer removes a customer.
func (s *Service) DeleteCustomer(ctx context.Context, id string) error {
	_, err := s.client.Do(ctx, restclient.Request{
		Method: http.MethodDelete,
		Path:   "/clientes/" + url.PathEscape(id),
	})
	return err
}
