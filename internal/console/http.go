// Copyright (c) 2026 RoadRW. All rights reserved.

package console

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/roadrw/consolekit/internal/platform/request"
	"github.com/roadrw/consolekit/internal/platform/respond"
	"github.com/roadrw/consolekit/internal/platform/validate"
	"github.com/roadrw/consolekit/pkg/pagination"
)

// # Definitions & Constructors

// Handler exposes the console resources over the gateway's HTTP surface.
//
// # Scope
//
// Each route is a thin adapter: decode, validate, delegate to [Service],
// respond. The guard middleware has already authenticated and authorized
// the request before any handler here runs.
type Handler struct {
	service *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns a [chi.Router] with the operational console resources.
//
// # Endpoints
//   - /transportadoras : Carrier registry and occurrence code mappings.
//   - /clientes        : Customer registry.
//   - /faturas         : Freight invoices and settlement.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Route("/transportadoras", func(r chi.Router) {
		r.Get("/", handler.listCarriers)
		r.Post("/", handler.createCarrier)
		r.Get("/stats", handler.carrierStats)
		r.Get("/search", handler.searchCarriers)
		r.Get("/cnpj/{cnpj}", handler.getCarrierByCNPJ)

		r.Route("/{carrierID}", func(r chi.Router) {
			r.Get("/", handler.getCarrier)
			r.Put("/", handler.updateCarrier)
			r.Delete("/", handler.deleteCarrier)
			r.Post("/restore", handler.restoreCarrier)

			r.Route("/codigos-ocorrencia", func(r chi.Router) {
				r.Get("/", handler.listOccurrenceCodes)
				r.Post("/", handler.createOccurrenceCode)
				r.Put("/{codeID}", handler.updateOccurrenceCode)
				r.Delete("/{codeID}", handler.deleteOccurrenceCode)
			})
		})
	})

	router.Route("/clientes", func(r chi.Router) {
		r.Get("/", handler.listCustomers)
		r.Post("/", handler.createCustomer)
		r.Get("/{customerID}", handler.getCustomer)
		r.Put("/{customerID}", handler.updateCustomer)
		r.Delete("/{customerID}", handler.deleteCustomer)
	})

	router.Route("/faturas", func(r chi.Router) {
		r.Get("/", handler.listInvoices)
		r.Get("/{invoiceID}", handler.getInvoice)
		r.Post("/{invoiceID}/baixa", handler.settleInvoice)
		r.Post("/{invoiceID}/cancelar", handler.cancelInvoice)
	})

	return router
}

// SettingsRoutes returns the administrative settings routes.
//
// # Endpoints
//   - GET/PUT /email   : Outbound email provider configuration.
//   - POST /email/test : Send a probe message.
func (handler *Handler) SettingsRoutes() chi.Router {
	router := chi.NewRouter()

	router.Get("/email", handler.getEmailSettings)
	router.Put("/email", handler.updateEmailSettings)
	router.Post("/email/test", handler.sendTestEmail)

	return router
}

// # Carrier Handlers

func (handler *Handler) listCarriers(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()
	params := pagination.FromQuery(query)
	filter := CarrierFilter{
		Name: query.Get("nome"),
		UF:   query.Get("uf"),
	}

	carriers, meta, err := handler.service.ListCarriers(request.Context(), params, filter)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Paginated(writer, carriers, meta)
}

func (handler *Handler) getCarrier(writer http.ResponseWriter, request *http.Request) {
	carrier, err := handler.service.GetCarrier(request.Context(), requestutil.Param(request, "carrierID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, carrier)
}

func (handler *Handler) getCarrierByCNPJ(writer http.ResponseWriter, request *http.Request) {
	carrier, err := handler.service.GetCarrierByCNPJ(request.Context(), requestutil.Param(request, "cnpj"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, carrier)
}

func (handler *Handler) searchCarriers(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))

	carriers, err := handler.service.SearchCarriers(request.Context(), query.Get("q"), limit)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, carriers)
}

func (handler *Handler) createCarrier(writer http.ResponseWriter, request *http.Request) {
	var input CarrierInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if err := validateCarrier(input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	carrier, err := handler.service.CreateCarrier(request.Context(), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, carrier)
}

func (handler *Handler) updateCarrier(writer http.ResponseWriter, request *http.Request) {
	var input CarrierInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if err := validateCarrier(input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	carrier, err := handler.service.UpdateCarrier(request.Context(), requestutil.Param(request, "carrierID"), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, carrier)
}

func (handler *Handler) deleteCarrier(writer http.ResponseWriter, request *http.Request) {
	if err := handler.service.DeleteCarrier(request.Context(), requestutil.Param(request, "carrierID")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

func (handler *Handler) restoreCarrier(writer http.ResponseWriter, request *http.Request) {
	if err := handler.service.RestoreCarrier(request.Context(), requestutil.Param(request, "carrierID")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

func (handler *Handler) carrierStats(writer http.ResponseWriter, request *http.Request) {
	stats, err := handler.service.CarrierStats(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, stats)
}

// validateCarrier enforces the registration rules shared by create and update.
func validateCarrier(input CarrierInput) error {
	validator := &validate.Validator{}
	validator.Required("cnpj", input.CNPJ).
		Custom("cnpj", len(digitsOnly(input.CNPJ)) != 14, "Must contain exactly 14 digits").
		Required("nome", input.Name).
		MaxLen("nome", input.Name, 200).
		Required("uf", input.UF).
		Custom("uf", len(strings.TrimSpace(input.UF)) != 2, "Must be a two-letter state code")
	return validator.Err()
}

// # Occurrence Code Handlers

func (handler *Handler) listOccurrenceCodes(writer http.ResponseWriter, request *http.Request) {
	codes, err := handler.service.ListOccurrenceCodes(request.Context(), requestutil.Param(request, "carrierID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, codes)
}

func (handler *Handler) createOccurrenceCode(writer http.ResponseWriter, request *http.Request) {
	var input OccurrenceCodeInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required("codigo", input.Code).
		Required("codigo_ocorrencia_codigo", input.Canonical)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	code, err := handler.service.CreateOccurrenceCode(request.Context(), requestutil.Param(request, "carrierID"), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, code)
}

func (handler *Handler) updateOccurrenceCode(writer http.ResponseWriter, request *http.Request) {
	var input OccurrenceCodeInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	code, err := handler.service.UpdateOccurrenceCode(request.Context(),
		requestutil.Param(request, "carrierID"), requestutil.Param(request, "codeID"), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, code)
}

func (handler *Handler) deleteOccurrenceCode(writer http.ResponseWriter, request *http.Request) {
	err := handler.service.DeleteOccurrenceCode(request.Context(),
		requestutil.Param(request, "carrierID"), requestutil.Param(request, "codeID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

// # Customer Handlers

func (handler *Handler) listCustomers(writer http.ResponseWriter, request *http.Request) {
	customers, meta, err := handler.service.ListCustomers(request.Context(), pagination.FromQuery(request.URL.Query()))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Paginated(writer, customers, meta)
}

func (handler *Handler) getCustomer(writer http.ResponseWriter, request *http.Request) {
	customer, err := handler.service.GetCustomer(request.Context(), requestutil.Param(request, "customerID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, customer)
}

func (handler *Handler) createCustomer(writer http.ResponseWriter, request *http.Request) {
	var input CustomerInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if err := validateCustomer(input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	customer, err := handler.service.CreateCustomer(request.Context(), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, customer)
}

func (handler *Handler) updateCustomer(writer http.ResponseWriter, request *http.Request) {
	var input CustomerInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if err := validateCustomer(input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	customer, err := handler.service.UpdateCustomer(request.Context(), requestutil.Param(request, "customerID"), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, customer)
}

func (handler *Handler) deleteCustomer(writer http.ResponseWriter, request *http.Request) {
	if err := handler.service.DeleteCustomer(request.Context(), requestutil.Param(request, "customerID")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

// validateCustomer enforces the registration rules shared by create and update.
func validateCustomer(input CustomerInput) error {
	validator := &validate.Validator{}
	validator.Required("cnpj", input.CNPJ).
		Custom("cnpj", len(digitsOnly(input.CNPJ)) != 14, "Must contain exactly 14 digits").
		Required("nome", input.Name)
	if input.Email != "" {
		validator.Email("email", input.Email)
	}
	return validator.Err()
}

// # Invoice Handlers

func (handler *Handler) listInvoices(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()
	filter := InvoiceFilter{
		CustomerID: query.Get("cliente_id"),
		CarrierID:  query.Get("transportadora_id"),
		Status:     InvoiceStatus(query.Get("status")),
	}

	invoices, meta, err := handler.service.ListInvoices(request.Context(), pagination.FromQuery(query), filter)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Paginated(writer, invoices, meta)
}

func (handler *Handler) getInvoice(writer http.ResponseWriter, request *http.Request) {
	invoice, err := handler.service.GetInvoice(request.Context(), requestutil.Param(request, "invoiceID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, invoice)
}

func (handler *Handler) settleInvoice(writer http.ResponseWriter, request *http.Request) {
	invoice, err := handler.service.SettleInvoice(request.Context(), requestutil.Param(request, "invoiceID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, invoice)
}

func (handler *Handler) cancelInvoice(writer http.ResponseWriter, request *http.Request) {
	if err := handler.service.CancelInvoice(request.Context(), requestutil.Param(request, "invoiceID")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

// # Email Settings Handlers

func (handler *Handler) getEmailSettings(writer http.ResponseWriter, request *http.Request) {
	settings, err := handler.service.GetEmailSettings(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, settings)
}

func (handler *Handler) updateEmailSettings(writer http.ResponseWriter, request *http.Request) {
	var input EmailSettingsInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required("provider", input.Provider).
		Required("fromAddress", input.FromAddress).
		Email("fromAddress", input.FromAddress)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	settings, err := handler.service.UpdateEmailSettings(request.Context(), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, settings)
}

func (handler *Handler) sendTestEmail(writer http.ResponseWriter, request *http.Request) {
	var input struct {
		To string `json:"to"`
	}
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required("to", input.To).Email("to", input.To)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.SendTestEmail(request.Context(), input.To); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]string{"status": "sent"})
}
