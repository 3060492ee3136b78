// Copyright (c) 2026 RoadRW. All rights reserved.

/*
Package console provides typed clients for the console's backend
resources: carriers, occurrence codes, clients, invoices, and the email
provider settings.

These are the thin service-layer API clients of the console — they own
request/response shapes and endpoint paths, nothing else. Rendering,
validation flows, and session handling live elsewhere; every call runs
through the shared REST client and therefore inherits bearer tokens,
timeouts, throttling, and the one-shot 401 refresh discipline.
*/
package console

import (
	"github.com/roadrw/consolekit/internal/platform/restclient"
)

// Service bundles the resource clients around one REST client.
type Service struct {
	client *restclient.Client
}

// NewService creates the console resource service.
func NewService(client *restclient.Client) *Service {
	return &Service{client: client}
}
