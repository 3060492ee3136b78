// Copyright (c) 2026 RoadRW. All rights reserved.

package console

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/roadrw/consolekit/internal/platform/restclient"
	"github.com/roadrw/consolekit/pkg/pagination"
)

// # Invoices (Faturas)

// InvoiceStatus is the settlement state of a freight invoice.
type InvoiceStatus string

const (
	InvoiceOpen     InvoiceStatus = "aberta"
	InvoicePaid     InvoiceStatus = "paga"
	InvoiceOverdue  InvoiceStatus = "vencida"
	InvoiceCanceled InvoiceStatus = "cancelada"
)

// Invoice is a freight invoice issued against a customer.
type Invoice struct {
	ID         string `json:"id"`
	Number     string `json:"numero"`
	CustomerID string `json:"cliente_id"`
	CarrierID  string `json:"transportadora_id"`

	// AmountCents avoids float drift on monetary values.
	AmountCents int64 `json:"valor_centavos"`

	IssuedAt time.Time     `json:"emissao"`
	DueAt    time.Time     `json:"vencimento"`
	Status   InvoiceStatus `json:"status"`
}

// InvoiceFilter narrows invoice listings.
type InvoiceFilter struct {
	CustomerID string
	CarrierID  string
	Status     InvoiceStatus
}

// ListInvoices returns one page of invoices.
func (s *Service) ListInvoices(ctx context.Context, params pagination.Params, filter InvoiceFilter) ([]Invoice, pagination.Meta, error) {
	query := params.Query()
	if filter.CustomerID != "" {
		query.Set("cliente_id", filter.CustomerID)
	}
	if filter.CarrierID != "" {
		query.Set("transportadora_id", filter.CarrierID)
	}
	if filter.Status != "" {
		query.Set("status", string(filter.Status))
	}

	response, err := s.client.Do(ctx, restclient.Request{
		Method: http.MethodGet,
		Path:   "/faturas",
		Query:  query,
	})
	if err != nil {
		return nil, pagination.Meta{}, err
	}

	var invoices []Invoice
	if err := json.Unmarshal(response.Data, &invoices); err != nil {
		return nil, pagination.Meta{}, err
	}
	var meta pagination.Meta
	if len(response.Meta) > 0 {
		if err := json.Unmarshal(response.Meta, &meta); err != nil {
			return nil, pagination.Meta{}, err
		}
	}
	return invoices, meta, nil
}

// GetInvoice fetches an invoice by ID.
func (s *Service) GetInvoice(ctx context.Context, id string) (*Invoice, error) {
	invoice := &Invoice{}
	err := s.client.DoJSON(ctx, restclient.Request{
		Method: http.MethodGet,
		Path:   "/faturas/" + url.PathEscape(id),
	}, invoice)
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// SettleInvoice marks an invoice as paid.
func (s *Service) SettleInvoice(ctx context.Context, id string) (*Invoice, error) {
	invoice := &Invoice{}
	err := s.client.DoJSON(ctx, restclient.Request{
		Method: http.MethodPost,
		Path:   "/faturas/" + url.PathEscape(id) + "/baixa",
	}, invoice)
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// CancelInvoice cancels an open invoice.
func (s *Service) CancelInvoice(ctx context.Context, id string) error {
	_, err := s.client.Do(ctx, restclient.Request{
		Method: http.MethodPost,
		Path:   "/faturas/" + url.PathEscape(id) + "/cancelar",
	})
	return err
}
