package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ClientService orchestrates validation, authorization, and persistence for clients.
type ClientService struct {
	clients     Repository[Client]
	locations   Repository[Location]
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewClientService constructs a client service with the provided dependencies.
func NewClientService(clients Repository[Client], locations Repository[Location], idGenerator func() string, now func() time.Time) *ClientService {
	return NewClientServiceWithLogger(clients, locations, idGenerator, now, nil)
}

// NewClientServiceWithLogger constructs a client service with a specified logger.
func NewClientServiceWithLogger(clients Repository[Client], locations Repository[Location], idGenerator func() string, now func() time.Time, logger *slog.Logger) *ClientService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ClientService{clients: clients, locations: locations, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *ClientService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ClientService", operation, attrs...)
}

// CreateClient validates input and persists a new client for administrators.
func (s *ClientService) CreateClient(ctx context.Context, principal Principal, input ClientInput) (client Client, err error) {
	if s == nil {
		err = fmt.Errorf("ClientService is nil")
		return
	}
	if s.clients == nil {
		err = fmt.Errorf("client repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateClient", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create client", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("client_id", client.ID).InfoContext(ctx, "client created")
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	input = normalizeClientInput(input)
	if vErr := validateStruct(input); vErr.HasErrors() {
		err = vErr
		return
	}
	if err = s.ensureUniqueName(ctx, "", input.Name); err != nil {
		return
	}

	client = Client{
		ID:            s.idGenerator(),
		Name:          input.Name,
		ContactPerson: input.ContactPerson,
		Phone:         input.Phone,
		Email:         input.Email,
		Address:       input.Address,
		CreatedAt:     s.now(),
	}
	client.UpdatedAt = client.CreatedAt

	if err = s.clients.Put(ctx, client); err != nil {
		err = mapRepoError(err)
	}
	return
}

// UpdateClient validates input and updates an existing client for administrators.
func (s *ClientService) UpdateClient(ctx context.Context, principal Principal, clientID string, input ClientInput) (client Client, err error) {
	if s == nil {
		err = fmt.Errorf("ClientService is nil")
		return
	}
	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.clients == nil {
		err = fmt.Errorf("client repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateClient",
		"principal_id", principal.UserID,
		"client_id", clientID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update client", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "client updated")
	}()

	var existing Client
	existing, err = s.clients.Get(ctx, clientID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	input = normalizeClientInput(input)
	if vErr := validateStruct(input); vErr.HasErrors() {
		err = vErr
		return
	}
	if err = s.ensureUniqueName(ctx, existing.ID, input.Name); err != nil {
		return
	}

	client = existing
	client.Name = input.Name
	client.ContactPerson = input.ContactPerson
	client.Phone = input.Phone
	client.Email = input.Email
	client.Address = input.Address
	client.UpdatedAt = s.now()

	if err = s.clients.Put(ctx, client); err != nil {
		err = mapRepoError(err)
	}
	return
}

// DeleteClient removes a client that no location refers to.
func (s *ClientService) DeleteClient(ctx context.Context, principal Principal, clientID string) error {
	if s == nil {
		return fmt.Errorf("ClientService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if s.clients == nil {
		return fmt.Errorf("client repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteClient",
		"principal_id", principal.UserID,
		"client_id", clientID,
	)

	if s.locations != nil {
		locations, err := s.locations.List(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "failed to list locations", "error", err, "error_kind", ErrorKind(err))
			return err
		}
		for _, loc := range locations {
			if loc.ClientID == clientID {
				vErr := &ValidationError{}
				vErr.add("client", "client has locations")
				logger.ErrorContext(ctx, "failed to delete client", "error", vErr, "error_kind", ErrorKind(vErr))
				return vErr
			}
		}
	}

	if err := s.clients.Delete(ctx, clientID); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to delete client", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "client deleted")
	return nil
}

// GetClient returns one client for administrators.
func (s *ClientService) GetClient(ctx context.Context, principal Principal, clientID string) (Client, error) {
	if s == nil {
		return Client{}, fmt.Errorf("ClientService is nil")
	}
	if !principal.IsAdmin {
		return Client{}, ErrUnauthorized
	}
	if s.clients == nil {
		return Client{}, ErrNotFound
	}
	client, err := s.clients.Get(ctx, clientID)
	if err != nil {
		return Client{}, mapRepoError(err)
	}
	return client, nil
}

// ListClients returns every client ordered by name for administrators.
func (s *ClientService) ListClients(ctx context.Context, principal Principal) (clients []Client, err error) {
	if s == nil {
		err = fmt.Errorf("ClientService is nil")
		return
	}
	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.clients == nil {
		return nil, nil
	}

	clients, err = s.clients.List(ctx)
	if err != nil {
		s.loggerWith(ctx, "ListClients", "principal_id", principal.UserID).
			ErrorContext(ctx, "failed to list clients", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	sortByName(clients, func(c Client) string { return c.Name }, func(c Client) string { return c.ID })
	return clients, nil
}

func (s *ClientService) ensureUniqueName(ctx context.Context, selfID, name string) error {
	clients, err := s.clients.List(ctx)
	if err != nil {
		return err
	}
	for _, c := range clients {
		if c.ID != selfID && strings.EqualFold(c.Name, name) {
			return ErrAlreadyExists
		}
	}
	return nil
}

func normalizeClientInput(input ClientInput) ClientInput {
	return ClientInput{
		Name:          strings.TrimSpace(input.Name),
		ContactPerson: strings.TrimSpace(input.ContactPerson),
		Phone:         strings.TrimSpace(input.Phone),
		Email:         strings.ToLower(strings.TrimSpace(input.Email)),
		Address:       strings.TrimSpace(input.Address),
	}
}
