package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// LocationService manages the places of each client.
type LocationService struct {
	locations   Repository[Location]
	clients     Repository[Client]
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewLocationService constructs a location service with the provided dependencies.
func NewLocationService(locations Repository[Location], clients Repository[Client], idGenerator func() string, now func() time.Time) *LocationService {
	return NewLocationServiceWithLogger(locations, clients, idGenerator, now, nil)
}

// NewLocationServiceWithLogger constructs a location service with a specified logger.
func NewLocationServiceWithLogger(locations Repository[Location], clients Repository[Client], idGenerator func() string, now func() time.Time, logger *slog.Logger) *LocationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &LocationService{locations: locations, clients: clients, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *LocationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "LocationService", operation, attrs...)
}

// CreateLocation validates input and persists a new location for administrators.
func (s *LocationService) CreateLocation(ctx context.Context, principal Principal, input LocationInput) (location Location, err error) {
	if s == nil {
		err = fmt.Errorf("LocationService is nil")
		return
	}
	if s.locations == nil {
		err = fmt.Errorf("location repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateLocation", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create location", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("location_id", location.ID, "client_id", location.ClientID).InfoContext(ctx, "location created")
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	input = normalizeLocationInput(input)
	if err = s.validate(ctx, "", input); err != nil {
		return
	}

	location = Location{
		ID:          s.idGenerator(),
		ClientID:    input.ClientID,
		Name:        input.Name,
		Address:     input.Address,
		Description: input.Description,
		CreatedAt:   s.now(),
	}
	location.UpdatedAt = location.CreatedAt

	if err = s.locations.Put(ctx, location); err != nil {
		err = mapRepoError(err)
	}
	return
}

// UpdateLocation validates input and updates an existing location for administrators.
func (s *LocationService) UpdateLocation(ctx context.Context, principal Principal, locationID string, input LocationInput) (location Location, err error) {
	if s == nil {
		err = fmt.Errorf("LocationService is nil")
		return
	}
	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.locations == nil {
		err = fmt.Errorf("location repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateLocation",
		"principal_id", principal.UserID,
		"location_id", locationID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update location", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "location updated")
	}()

	var existing Location
	existing, err = s.locations.Get(ctx, locationID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	input = normalizeLocationInput(input)
	if err = s.validate(ctx, existing.ID, input); err != nil {
		return
	}

	location = existing
	location.ClientID = input.ClientID
	location.Name = input.Name
	location.Address = input.Address
	location.Description = input.Description
	location.UpdatedAt = s.now()

	if err = s.locations.Put(ctx, location); err != nil {
		err = mapRepoError(err)
	}
	return
}

// DeleteLocation removes a location when requested by an administrator.
func (s *LocationService) DeleteLocation(ctx context.Context, principal Principal, locationID string) error {
	if s == nil {
		return fmt.Errorf("LocationService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if s.locations == nil {
		return fmt.Errorf("location repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteLocation",
		"principal_id", principal.UserID,
		"location_id", locationID,
	)
	if err := s.locations.Delete(ctx, locationID); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to delete location", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "location deleted")
	return nil
}

// GetLocation returns one location.
func (s *LocationService) GetLocation(ctx context.Context, locationID string) (Location, error) {
	if s == nil {
		return Location{}, fmt.Errorf("LocationService is nil")
	}
	if s.locations == nil {
		return Location{}, ErrNotFound
	}
	location, err := s.locations.Get(ctx, locationID)
	if err != nil {
		return Location{}, mapRepoError(err)
	}
	return location, nil
}

// ListLocations returns locations ordered by name, narrowed to clientID when set.
func (s *LocationService) ListLocations(ctx context.Context, clientID string) ([]Location, error) {
	if s == nil {
		return nil, fmt.Errorf("LocationService is nil")
	}
	if s.locations == nil {
		return nil, nil
	}

	all, err := s.locations.List(ctx)
	if err != nil {
		s.loggerWith(ctx, "ListLocations").ErrorContext(ctx, "failed to list locations", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}

	clientID = strings.TrimSpace(clientID)
	out := make([]Location, 0, len(all))
	for _, loc := range all {
		if clientID != "" && loc.ClientID != clientID {
			continue
		}
		out = append(out, loc)
	}
	sortByName(out, func(l Location) string { return l.Name }, func(l Location) string { return l.ID })
	return out, nil
}

func (s *LocationService) validate(ctx context.Context, selfID string, input LocationInput) error {
	vErr := validateStruct(input)
	if vErr.HasErrors() {
		return vErr
	}

	if s.clients != nil {
		if _, err := s.clients.Get(ctx, input.ClientID); err != nil {
			if errors.Is(mapRepoError(err), ErrNotFound) {
				vErr.add("clientId", "client does not exist")
				return vErr
			}
			return err
		}
	}

	all, err := s.locations.List(ctx)
	if err != nil {
		return err
	}
	for _, loc := range all {
		if loc.ID != selfID && loc.ClientID == input.ClientID && strings.EqualFold(loc.Name, input.Name) {
			return ErrAlreadyExists
		}
	}
	return nil
}

func normalizeLocationInput(input LocationInput) LocationInput {
	return LocationInput{
		ClientID:    strings.TrimSpace(input.ClientID),
		Name:        strings.TrimSpace(input.Name),
		Address:     strings.TrimSpace(input.Address),
		Description: strings.TrimSpace(input.Description),
	}
}
